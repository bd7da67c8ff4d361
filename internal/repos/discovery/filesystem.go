package discovery

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/temirov/repocheck/internal/repos/filesystem"
	"github.com/temirov/repocheck/internal/repos/shared"
	pathutils "github.com/temirov/repocheck/internal/utils/path"
)

const (
	gitMetadataDirectoryNameConstant = ".git"
	hiddenEntryPrefixConstant        = "."
	currentDirectoryConstant         = "."
	recursiveGlobPrefixConstant      = "**/"
	recursiveGlobTokenConstant       = "**"
	notDirectoryMessageConstant      = "scan root is not a directory"
)

// ErrScanRootNotDirectory indicates a scan root exists but is not a directory.
var ErrScanRootNotDirectory = errors.New(notDirectoryMessageConstant)

// FilesystemRepositoryDiscoverer locates git repositories on disk.
type FilesystemRepositoryDiscoverer struct {
	fileSystem shared.FileSystem
}

// NewFilesystemRepositoryDiscoverer constructs a repository discoverer backed by the operating system filesystem.
func NewFilesystemRepositoryDiscoverer() *FilesystemRepositoryDiscoverer {
	return NewFilesystemRepositoryDiscovererWithFileSystem(filesystem.OSFileSystem{})
}

// NewFilesystemRepositoryDiscovererWithFileSystem constructs a discoverer over the provided filesystem.
func NewFilesystemRepositoryDiscovererWithFileSystem(fileSystem shared.FileSystem) *FilesystemRepositoryDiscoverer {
	if fileSystem == nil {
		fileSystem = filesystem.OSFileSystem{}
	}
	return &FilesystemRepositoryDiscoverer{fileSystem: fileSystem}
}

type discoveryWalk struct {
	fileSystem     shared.FileSystem
	options        shared.DiscoveryOptions
	excludePaths   []string
	visitedPaths   map[string]struct{}
	repositories   map[string]struct{}
	walkErrors     []shared.WalkError
	currentRootDir string
}

// DiscoverRepositories walks the provided roots and returns the sorted, de-duplicated set of directories
// containing a .git entry. A repository is a leaf: its subdirectories are never examined. Excluded and
// hidden directories are pruned before descent, symbolic links to directories are followed once per
// real path, and unreadable directories or missing roots are reported as walk errors without stopping
// the walk.
func (discoverer *FilesystemRepositoryDiscoverer) DiscoverRepositories(roots []string, options shared.DiscoveryOptions) ([]string, []shared.WalkError) {
	walk := &discoveryWalk{
		fileSystem:   discoverer.fileSystem,
		options:      options,
		excludePaths: cleanExcludePaths(discoverer.fileSystem, options.ExcludePaths),
		visitedPaths: make(map[string]struct{}),
		repositories: make(map[string]struct{}),
	}

	for _, root := range roots {
		absoluteRoot, absoluteError := discoverer.fileSystem.Abs(root)
		if absoluteError != nil {
			walk.recordError(root, absoluteError)
			continue
		}

		rootInfo, statError := discoverer.fileSystem.Stat(absoluteRoot)
		if statError != nil {
			walk.recordError(absoluteRoot, statError)
			continue
		}
		if !rootInfo.IsDir() {
			walk.recordError(absoluteRoot, ErrScanRootNotDirectory)
			continue
		}

		walk.currentRootDir = absoluteRoot
		walk.visitDirectory(absoluteRoot)
	}

	repositories := make([]string, 0, len(walk.repositories))
	for repositoryPath := range walk.repositories {
		repositories = append(repositories, repositoryPath)
	}
	sort.Strings(repositories)

	return repositories, walk.walkErrors
}

func (walk *discoveryWalk) visitDirectory(directoryPath string) {
	// An excluded alias must not claim its target, which may be reachable through another path.
	if walk.isExcluded(directoryPath) {
		return
	}

	realPath, resolveError := walk.fileSystem.EvalSymlinks(directoryPath)
	if resolveError != nil {
		walk.recordError(directoryPath, resolveError)
		return
	}
	if _, visited := walk.visitedPaths[realPath]; visited {
		return
	}
	walk.visitedPaths[realPath] = struct{}{}

	if walk.isRepository(directoryPath) {
		walk.repositories[directoryPath] = struct{}{}
		return
	}

	entries, readError := walk.fileSystem.ReadDir(directoryPath)
	if readError != nil {
		walk.recordError(directoryPath, readError)
		return
	}

	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), hiddenEntryPrefixConstant) {
			continue
		}

		childPath := filepath.Join(directoryPath, entry.Name())
		if !walk.isDirectoryEntry(childPath, entry) {
			continue
		}

		walk.visitDirectory(childPath)
	}
}

func (walk *discoveryWalk) isDirectoryEntry(childPath string, entry fs.DirEntry) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&fs.ModeSymlink == 0 {
		return false
	}
	childInfo, statError := walk.fileSystem.Stat(childPath)
	if statError != nil {
		return false
	}
	return childInfo.IsDir()
}

func (walk *discoveryWalk) isRepository(directoryPath string) bool {
	_, statError := walk.fileSystem.Lstat(filepath.Join(directoryPath, gitMetadataDirectoryNameConstant))
	return statError == nil
}

func (walk *discoveryWalk) isExcluded(directoryPath string) bool {
	for _, excludedPath := range walk.excludePaths {
		if pathutils.IsWithin(excludedPath, directoryPath) {
			return true
		}
	}

	relativeComponents := relativePathComponents(walk.currentRootDir, directoryPath)
	for _, pattern := range walk.options.ExcludePatterns {
		if MatchesExcludePattern(pattern, directoryPath, relativeComponents) {
			return true
		}
	}
	return false
}

func (walk *discoveryWalk) recordError(path string, cause error) {
	walk.walkErrors = append(walk.walkErrors, shared.WalkError{Path: path, Cause: cause})
}

// MatchesExcludePattern reports whether pattern matches the full path, its base name, or any of the
// supplied path components. A leading "**/" is ignored for base name and component matching, so
// "**/node_modules" and "node_modules" behave the same way below the scan root.
func MatchesExcludePattern(pattern string, directoryPath string, components []string) bool {
	trimmedPattern := strings.TrimSpace(pattern)
	if len(trimmedPattern) == 0 {
		return false
	}

	if globMatches(trimmedPattern, directoryPath) {
		return true
	}

	namePattern := strings.TrimPrefix(trimmedPattern, recursiveGlobPrefixConstant)
	namePattern = strings.ReplaceAll(namePattern, recursiveGlobTokenConstant, "*")
	if globMatches(namePattern, filepath.Base(directoryPath)) {
		return true
	}

	for _, component := range components {
		if globMatches(namePattern, component) {
			return true
		}
	}
	return false
}

func globMatches(pattern string, candidate string) bool {
	matched, matchError := filepath.Match(pattern, candidate)
	return matchError == nil && matched
}

func relativePathComponents(rootPath string, directoryPath string) []string {
	relativePath, relativeError := filepath.Rel(rootPath, directoryPath)
	if relativeError != nil || relativePath == currentDirectoryConstant {
		return nil
	}
	return strings.Split(relativePath, string(filepath.Separator))
}

func cleanExcludePaths(fileSystem shared.FileSystem, excludePaths []string) []string {
	cleaned := make([]string, 0, len(excludePaths))
	for _, excludePath := range excludePaths {
		trimmedPath := strings.TrimSpace(excludePath)
		if len(trimmedPath) == 0 {
			continue
		}
		absolutePath, absoluteError := fileSystem.Abs(trimmedPath)
		if absoluteError != nil {
			continue
		}
		cleaned = append(cleaned, filepath.Clean(absolutePath))
	}
	return cleaned
}
