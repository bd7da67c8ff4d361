package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/temirov/repocheck/internal/execshell"
	"github.com/temirov/repocheck/internal/repos/shared"
	"github.com/temirov/repocheck/internal/status"
)

const (
	gitRevParseSubcommandConstant         = "rev-parse"
	gitWorkTreeFlagConstant               = "--is-inside-work-tree"
	gitAbbrevRefFlagConstant              = "--abbrev-ref"
	gitSymbolicFullNameFlagConstant       = "--symbolic-full-name"
	gitHeadReferenceConstant              = "HEAD"
	gitUpstreamReferenceConstant          = "@{u}"
	gitSymbolicRefSubcommandConstant      = "symbolic-ref"
	gitShortFlagConstant                  = "--short"
	gitQuietFlagConstant                  = "-q"
	gitRevListSubcommandConstant          = "rev-list"
	gitLeftRightFlagConstant              = "--left-right"
	gitCountFlagConstant                  = "--count"
	gitDivergenceRangeConstant            = "@{u}...HEAD"
	gitStatusSubcommandConstant           = "status"
	gitPorcelainFlagConstant              = "--porcelain"
	gitStashSubcommandConstant            = "stash"
	gitListSubcommandConstant             = "list"
	gitPullSubcommandConstant             = "pull"
	gitFastForwardOnlyFlagConstant        = "--ff-only"
	gitFetchSubcommandConstant            = "fetch"
	gitCloneSubcommandConstant            = "clone"
	gitBranchFlagConstant                 = "--branch"
	gitRemoteSubcommandConstant           = "remote"
	gitGetURLSubcommandConstant           = "get-url"
	gitTerminalPromptEnvironmentName      = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptDisableValue         = "0"
	untrackedPorcelainPrefixConstant      = "??"
	workTreeTrueOutputConstant            = "true"
	lineSeparatorConstant                 = "\n"
	executorNotConfiguredMessage          = "git executor not configured"
	notWorkTreeMessageConstant            = "not inside a git work tree"
	probeErrorTemplateConstant            = "cannot inspect %s as a git repository: %v"
	factErrorTemplateConstant             = "%s: %v"
	divergenceParseErrorTemplateConstant  = "unexpected rev-list output %q"
	cloneDestinationErrorTemplateConstant = "clone destination %s: %w"
	branchFactLabelConstant               = "branch"
	upstreamFactLabelConstant             = "upstream"
	divergenceFactLabelConstant           = "divergence"
	workingTreeFactLabelConstant          = "working_tree"
	stashFactLabelConstant                = "stash"
	parentDirectoryPermissionsConstant    = 0o755
)

var filesChangedPattern = regexp.MustCompile(`(\d+)\s+files?\s+changed`)

// ErrGitExecutorNotConfigured indicates the prober was constructed without an executor.
var ErrGitExecutorNotConfigured = errors.New(executorNotConfiguredMessage)

// ErrNotWorkTree indicates git answered but the directory is not a work tree.
var ErrNotWorkTree = errors.New(notWorkTreeMessageConstant)

// ProbeError reports a directory that could not be inspected as a repository.
type ProbeError struct {
	RepositoryPath string
	Cause          error
}

// Error describes the probe failure.
func (probeError ProbeError) Error() string {
	return fmt.Sprintf(probeErrorTemplateConstant, probeError.RepositoryPath, probeError.Cause)
}

// Unwrap exposes the underlying failure.
func (probeError ProbeError) Unwrap() error {
	return probeError.Cause
}

// Prober answers read-only questions about working trees and performs the few mutating
// operations the tool supports: fast-forward pull, clone and fetch.
type Prober struct {
	executor   shared.GitExecutor
	fileSystem shared.FileSystem
}

// NewProber constructs a Prober that runs git through executor.
func NewProber(executor shared.GitExecutor, fileSystem shared.FileSystem) (*Prober, error) {
	if executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	return &Prober{executor: executor, fileSystem: fileSystem}, nil
}

// Probe collects a snapshot of repositoryPath without contacting any remote. A failure to confirm
// the directory is a work tree is recorded as the snapshot's ProbeError; failures of the remaining
// queries are recorded as fact errors. The returned error is non-nil only when executionContext ends.
func (prober *Prober) Probe(executionContext context.Context, repositoryPath string) (status.RepoSnapshot, error) {
	snapshot := status.RepoSnapshot{}

	workTreeResult, workTreeError := prober.runGit(executionContext, repositoryPath, gitRevParseSubcommandConstant, gitWorkTreeFlagConstant)
	if contextError := executionContext.Err(); contextError != nil {
		return snapshot, contextError
	}
	if workTreeError == nil && strings.TrimSpace(workTreeResult.StandardOutput) != workTreeTrueOutputConstant {
		workTreeError = ErrNotWorkTree
	}
	if workTreeError != nil {
		snapshot.ProbeError = ProbeError{RepositoryPath: repositoryPath, Cause: workTreeError}
		return snapshot, nil
	}

	prober.collectBranch(executionContext, repositoryPath, &snapshot)
	prober.collectUpstream(executionContext, repositoryPath, &snapshot)
	if snapshot.HasUpstream {
		prober.collectDivergence(executionContext, repositoryPath, &snapshot)
	}
	prober.collectWorkingTree(executionContext, repositoryPath, &snapshot)
	prober.collectStash(executionContext, repositoryPath, &snapshot)

	if contextError := executionContext.Err(); contextError != nil {
		return snapshot, contextError
	}
	return snapshot, nil
}

func (prober *Prober) collectBranch(executionContext context.Context, repositoryPath string, snapshot *status.RepoSnapshot) {
	branchResult, branchError := prober.runGit(executionContext, repositoryPath, gitRevParseSubcommandConstant, gitAbbrevRefFlagConstant, gitHeadReferenceConstant)
	if branchError == nil {
		branchName := strings.TrimSpace(branchResult.StandardOutput)
		if branchName == gitHeadReferenceConstant {
			snapshot.Detached = true
			return
		}
		snapshot.Branch = branchName
		return
	}

	unbornResult, unbornError := prober.runGit(executionContext, repositoryPath, gitSymbolicRefSubcommandConstant, gitShortFlagConstant, gitQuietFlagConstant, gitHeadReferenceConstant)
	if unbornError != nil {
		snapshot.FactErrors = append(snapshot.FactErrors, fmt.Sprintf(factErrorTemplateConstant, branchFactLabelConstant, branchError))
		return
	}
	snapshot.Branch = strings.TrimSpace(unbornResult.StandardOutput)
}

func (prober *Prober) collectUpstream(executionContext context.Context, repositoryPath string, snapshot *status.RepoSnapshot) {
	_, upstreamError := prober.runGit(executionContext, repositoryPath, gitRevParseSubcommandConstant, gitAbbrevRefFlagConstant, gitSymbolicFullNameFlagConstant, gitUpstreamReferenceConstant)
	if upstreamError == nil {
		snapshot.HasUpstream = true
		return
	}

	var failedError execshell.CommandFailedError
	if !errors.As(upstreamError, &failedError) {
		snapshot.FactErrors = append(snapshot.FactErrors, fmt.Sprintf(factErrorTemplateConstant, upstreamFactLabelConstant, upstreamError))
	}
}

func (prober *Prober) collectDivergence(executionContext context.Context, repositoryPath string, snapshot *status.RepoSnapshot) {
	divergenceResult, divergenceError := prober.runGit(executionContext, repositoryPath, gitRevListSubcommandConstant, gitLeftRightFlagConstant, gitCountFlagConstant, gitDivergenceRangeConstant)
	if divergenceError != nil {
		snapshot.FactErrors = append(snapshot.FactErrors, fmt.Sprintf(factErrorTemplateConstant, divergenceFactLabelConstant, divergenceError))
		return
	}

	behindCount, aheadCount, parseError := ParseDivergenceCounts(divergenceResult.StandardOutput)
	if parseError != nil {
		snapshot.FactErrors = append(snapshot.FactErrors, fmt.Sprintf(factErrorTemplateConstant, divergenceFactLabelConstant, parseError))
		return
	}
	snapshot.BehindCount = behindCount
	snapshot.AheadCount = aheadCount
}

func (prober *Prober) collectWorkingTree(executionContext context.Context, repositoryPath string, snapshot *status.RepoSnapshot) {
	statusResult, statusError := prober.runGit(executionContext, repositoryPath, gitStatusSubcommandConstant, gitPorcelainFlagConstant)
	if statusError != nil {
		snapshot.FactErrors = append(snapshot.FactErrors, fmt.Sprintf(factErrorTemplateConstant, workingTreeFactLabelConstant, statusError))
		return
	}
	snapshot.ModifiedCount, snapshot.UntrackedCount = CountPorcelainEntries(statusResult.StandardOutput)
}

func (prober *Prober) collectStash(executionContext context.Context, repositoryPath string, snapshot *status.RepoSnapshot) {
	stashResult, stashError := prober.runGit(executionContext, repositoryPath, gitStashSubcommandConstant, gitListSubcommandConstant)
	if stashError != nil {
		snapshot.FactErrors = append(snapshot.FactErrors, fmt.Sprintf(factErrorTemplateConstant, stashFactLabelConstant, stashError))
		return
	}
	snapshot.HasStash = len(strings.TrimSpace(stashResult.StandardOutput)) > 0
}

// Pull fast-forwards the current branch of repositoryPath from its upstream.
func (prober *Prober) Pull(executionContext context.Context, repositoryPath string) (status.PullReport, error) {
	pullResult, pullError := prober.runGit(executionContext, repositoryPath, gitPullSubcommandConstant, gitFastForwardOnlyFlagConstant)
	if pullError != nil {
		return status.PullReport{}, pullError
	}
	return status.PullReport{FilesChanged: ParseFilesChanged(pullResult.StandardOutput)}, nil
}

// Fetch updates remote-tracking references of repositoryPath.
func (prober *Prober) Fetch(executionContext context.Context, repositoryPath string) error {
	_, fetchError := prober.runGit(executionContext, repositoryPath, gitFetchSubcommandConstant)
	return fetchError
}

// Clone clones remoteURL into destinationPath, checking out branch when it is not empty.
// Missing parent directories of destinationPath are created first.
func (prober *Prober) Clone(executionContext context.Context, remoteURL string, branch string, destinationPath string) error {
	if prober.fileSystem != nil {
		if mkdirError := prober.fileSystem.MkdirAll(filepath.Dir(destinationPath), parentDirectoryPermissionsConstant); mkdirError != nil {
			return fmt.Errorf(cloneDestinationErrorTemplateConstant, destinationPath, mkdirError)
		}
	}

	arguments := []string{gitCloneSubcommandConstant}
	if trimmedBranch := strings.TrimSpace(branch); len(trimmedBranch) > 0 {
		arguments = append(arguments, gitBranchFlagConstant, trimmedBranch)
	}
	arguments = append(arguments, remoteURL, destinationPath)

	_, cloneError := prober.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:            arguments,
		EnvironmentVariables: nonInteractiveEnvironment(),
	})
	return cloneError
}

// RemoteURL returns the URL configured for remoteName in repositoryPath.
func (prober *Prober) RemoteURL(executionContext context.Context, repositoryPath string, remoteName string) (string, error) {
	remoteResult, remoteError := prober.runGit(executionContext, repositoryPath, gitRemoteSubcommandConstant, gitGetURLSubcommandConstant, remoteName)
	if remoteError != nil {
		return "", remoteError
	}
	return strings.TrimSpace(remoteResult.StandardOutput), nil
}

func (prober *Prober) runGit(executionContext context.Context, repositoryPath string, arguments ...string) (execshell.ExecutionResult, error) {
	return prober.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:            arguments,
		WorkingDirectory:     repositoryPath,
		EnvironmentVariables: nonInteractiveEnvironment(),
	})
}

func nonInteractiveEnvironment() map[string]string {
	return map[string]string{gitTerminalPromptEnvironmentName: gitTerminalPromptDisableValue}
}

// ParseDivergenceCounts parses `git rev-list --left-right --count @{u}...HEAD` output,
// which lists the behind count followed by the ahead count.
func ParseDivergenceCounts(output string) (int, int, error) {
	fields := strings.Fields(output)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf(divergenceParseErrorTemplateConstant, output)
	}
	behindCount, behindError := strconv.Atoi(fields[0])
	aheadCount, aheadError := strconv.Atoi(fields[1])
	if behindError != nil || aheadError != nil || behindCount < 0 || aheadCount < 0 {
		return 0, 0, fmt.Errorf(divergenceParseErrorTemplateConstant, output)
	}
	return behindCount, aheadCount, nil
}

// CountPorcelainEntries splits `git status --porcelain` output into modified and untracked counts.
func CountPorcelainEntries(output string) (int, int) {
	modifiedCount := 0
	untrackedCount := 0
	for _, line := range strings.Split(output, lineSeparatorConstant) {
		if len(strings.TrimSpace(line)) == 0 {
			continue
		}
		if strings.HasPrefix(line, untrackedPorcelainPrefixConstant) {
			untrackedCount++
			continue
		}
		modifiedCount++
	}
	return modifiedCount, untrackedCount
}

// ParseFilesChanged extracts the "N files changed" count from pull output, returning zero when absent.
func ParseFilesChanged(output string) int {
	match := filesChangedPattern.FindStringSubmatch(output)
	if len(match) < 2 {
		return 0
	}
	filesChanged, conversionError := strconv.Atoi(match[1])
	if conversionError != nil {
		return 0
	}
	return filesChanged
}
