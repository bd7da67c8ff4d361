package shared

import (
	"context"
	"io/fs"

	"github.com/temirov/repocheck/internal/execshell"
)

// OriginRemoteNameConstant identifies the remote consulted for CI lookups.
const OriginRemoteNameConstant = "origin"

// FileSystem exposes the filesystem operations used by repository services.
type FileSystem interface {
	Stat(path string) (fs.FileInfo, error)
	Lstat(path string) (fs.FileInfo, error)
	ReadDir(path string) ([]fs.DirEntry, error)
	EvalSymlinks(path string) (string, error)
	Abs(path string) (string, error)
	MkdirAll(path string, permissions fs.FileMode) error
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, permissions fs.FileMode) error
}

// GitExecutor exposes the subset of shell execution used by repository services.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
	ExecuteGitHubCLI(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// WalkError records a directory that could not be examined during discovery.
type WalkError struct {
	Path  string
	Cause error
}

// Error describes the walk failure.
func (walkError WalkError) Error() string {
	return walkError.Path + walkErrorSeparatorConstant + walkError.Cause.Error()
}

// Unwrap exposes the underlying filesystem error.
func (walkError WalkError) Unwrap() error {
	return walkError.Cause
}

// DiscoveryOptions narrows which directories a RepositoryDiscoverer descends into.
type DiscoveryOptions struct {
	ExcludePatterns []string
	ExcludePaths    []string
}

// RepositoryDiscoverer locates repository roots beneath scan roots.
type RepositoryDiscoverer interface {
	DiscoverRepositories(roots []string, options DiscoveryOptions) ([]string, []WalkError)
}

const walkErrorSeparatorConstant = ": "
