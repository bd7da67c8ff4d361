package reconcile

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/temirov/repocheck/internal/repos/filesystem"
	"github.com/temirov/repocheck/internal/repos/shared"
	pathutils "github.com/temirov/repocheck/internal/utils/path"
)

const (
	manifestUnparseableMessageConstant   = "manifest cannot be parsed"
	manifestNotFoundMessageConstant      = "no manifest found; create one with 'repocheck sync --init' or pass --manifest"
	manifestExistsMessageConstant        = "manifest already exists"
	manifestErrorTemplateConstant        = "manifest entry %d (%s): %s"
	manifestReadErrorTemplateConstant    = "%w: %s: %v"
	manifestExistsErrorTemplateConstant  = "%w: %s"
	manifestWriteErrorTemplateConstant   = "unable to write manifest %s: %w"
	missingPathMessageConstant           = "path is required"
	missingRemoteMessageConstant         = "remote is required unless the entry is ignored"
	duplicatePathTemplateConstant        = "duplicate path, first declared by entry %d"
	unnamedEntryPathConstant             = "<no path>"
	userConfigurationDirectoryConstant   = ".config"
	applicationConfigurationDirConstant  = "repocheck"
	manifestFileNameConstant             = "repos.yml"
	manifestAlternateFileNameConstant    = "repos.yaml"
	manifestFilePermissionsConstant      = 0o644
	manifestDirectoryPermissionsConstant = 0o755
)

const manifestTemplateConstant = `# Repositories tracked by repocheck sync.
# Missing repositories are cloned; existing clean repositories behind their upstream are fast-forwarded.

# Relative entry paths are resolved against path_prefix, which itself defaults to this file's directory.
path_prefix: ~/code

repos:
  # - path: my-project
  #   remote: git@github.com:username/my-project.git
  #   branch: main      # optional, defaults to the remote's default branch
  # - path: old-experiment
  #   remote: git@github.com:username/old-experiment.git
  #   ignore: true      # never cloned or pulled
`

var (
	// ErrManifestUnparseable marks a manifest file that is not valid YAML or does not have the manifest shape.
	ErrManifestUnparseable = errors.New(manifestUnparseableMessageConstant)
	// ErrManifestNotFound indicates no manifest exists at the explicit path or any default location.
	ErrManifestNotFound = errors.New(manifestNotFoundMessageConstant)
	// ErrManifestExists indicates a template would overwrite an existing file.
	ErrManifestExists = errors.New(manifestExistsMessageConstant)
)

// ManifestEntry declares one repository that should exist locally.
type ManifestEntry struct {
	Path   string `yaml:"path" json:"path"`
	Remote string `yaml:"remote" json:"remote"`
	Branch string `yaml:"branch,omitempty" json:"branch,omitempty"`
	Ignore bool   `yaml:"ignore,omitempty" json:"ignore,omitempty"`
}

// Manifest is the parsed content of a repos.yml file.
type Manifest struct {
	PathPrefix string          `yaml:"path_prefix"`
	Repos      []ManifestEntry `yaml:"repos"`
	// SourcePath is the file the manifest was read from; relative prefixes resolve against its directory.
	SourcePath string `yaml:"-"`
}

// ManifestError reports an entry that cannot be reconciled.
type ManifestError struct {
	Index   int    `json:"index" yaml:"index"`
	Path    string `json:"path" yaml:"path"`
	Message string `json:"message" yaml:"message"`
}

// Error describes the invalid entry.
func (manifestError ManifestError) Error() string {
	path := manifestError.Path
	if len(path) == 0 {
		path = unnamedEntryPathConstant
	}
	return fmt.Sprintf(manifestErrorTemplateConstant, manifestError.Index, path, manifestError.Message)
}

// ResolvedEntry is a valid manifest entry with its absolute destination.
type ResolvedEntry struct {
	Index        int
	Entry        ManifestEntry
	AbsolutePath string
}

// ManifestLoader locates, reads and writes manifest files.
type ManifestLoader struct {
	fileSystem   shared.FileSystem
	homeExpander *pathutils.HomeExpander
}

// NewManifestLoader constructs a ManifestLoader. A nil fileSystem uses the operating system.
func NewManifestLoader(fileSystem shared.FileSystem, homeExpander *pathutils.HomeExpander) *ManifestLoader {
	if fileSystem == nil {
		fileSystem = filesystem.OSFileSystem{}
	}
	if homeExpander == nil {
		homeExpander = pathutils.NewHomeExpander()
	}
	return &ManifestLoader{fileSystem: fileSystem, homeExpander: homeExpander}
}

// DefaultManifestLocations lists the files consulted when no manifest path is given, in order.
func (loader *ManifestLoader) DefaultManifestLocations(workingDirectory string) []string {
	userDirectory := filepath.Join(loader.homeExpander.Expand("~"), userConfigurationDirectoryConstant, applicationConfigurationDirConstant)
	return []string{
		loader.homeExpander.ResolveAbsolute(manifestFileNameConstant, workingDirectory),
		loader.homeExpander.ResolveAbsolute(manifestAlternateFileNameConstant, workingDirectory),
		filepath.Join(userDirectory, manifestFileNameConstant),
		filepath.Join(userDirectory, manifestAlternateFileNameConstant),
	}
}

// Locate returns explicitPath resolved against workingDirectory, or the first default location that exists.
func (loader *ManifestLoader) Locate(explicitPath string, workingDirectory string) (string, error) {
	if len(strings.TrimSpace(explicitPath)) > 0 {
		resolvedPath := loader.homeExpander.ResolveAbsolute(explicitPath, workingDirectory)
		if _, statError := loader.fileSystem.Stat(resolvedPath); statError != nil {
			return "", fmt.Errorf(manifestReadErrorTemplateConstant, ErrManifestNotFound, resolvedPath, statError)
		}
		return resolvedPath, nil
	}

	for _, candidatePath := range loader.DefaultManifestLocations(workingDirectory) {
		if info, statError := loader.fileSystem.Stat(candidatePath); statError == nil && !info.IsDir() {
			return candidatePath, nil
		}
	}
	return "", ErrManifestNotFound
}

// Load reads and parses the manifest at manifestPath.
func (loader *ManifestLoader) Load(manifestPath string) (Manifest, error) {
	content, readError := loader.fileSystem.ReadFile(manifestPath)
	if readError != nil {
		if errors.Is(readError, fs.ErrNotExist) {
			return Manifest{}, fmt.Errorf(manifestReadErrorTemplateConstant, ErrManifestNotFound, manifestPath, readError)
		}
		return Manifest{}, fmt.Errorf(manifestReadErrorTemplateConstant, ErrManifestUnparseable, manifestPath, readError)
	}

	manifest, parseError := ParseManifest(content)
	if parseError != nil {
		return Manifest{}, fmt.Errorf(manifestReadErrorTemplateConstant, ErrManifestUnparseable, manifestPath, parseError)
	}
	manifest.SourcePath = manifestPath
	return manifest, nil
}

// ParseManifest decodes manifest YAML. An empty document yields an empty manifest.
func ParseManifest(content []byte) (Manifest, error) {
	var manifest Manifest
	if len(bytes.TrimSpace(content)) == 0 {
		return manifest, nil
	}
	if decodeError := yaml.Unmarshal(content, &manifest); decodeError != nil {
		return Manifest{}, decodeError
	}
	return manifest, nil
}

// Resolve validates the manifest entries and computes their absolute destinations. Invalid entries
// are returned as ManifestErrors and excluded from the resolved list; the first of two entries that
// resolve to the same destination wins.
func (loader *ManifestLoader) Resolve(manifest Manifest, workingDirectory string) ([]ResolvedEntry, []ManifestError) {
	baseDirectory := workingDirectory
	if len(manifest.SourcePath) > 0 {
		baseDirectory = filepath.Dir(manifest.SourcePath)
	}
	pathPrefix := baseDirectory
	if len(strings.TrimSpace(manifest.PathPrefix)) > 0 {
		pathPrefix = loader.homeExpander.ResolveAbsolute(manifest.PathPrefix, baseDirectory)
	}

	resolvedEntries := make([]ResolvedEntry, 0, len(manifest.Repos))
	manifestErrors := make([]ManifestError, 0)
	firstIndexByPath := make(map[string]int, len(manifest.Repos))

	for index, entry := range manifest.Repos {
		normalizedEntry := ManifestEntry{
			Path:   strings.TrimSpace(entry.Path),
			Remote: strings.TrimSpace(entry.Remote),
			Branch: strings.TrimSpace(entry.Branch),
			Ignore: entry.Ignore,
		}

		if len(normalizedEntry.Path) == 0 {
			manifestErrors = append(manifestErrors, ManifestError{Index: index, Message: missingPathMessageConstant})
			continue
		}
		if len(normalizedEntry.Remote) == 0 && !normalizedEntry.Ignore {
			manifestErrors = append(manifestErrors, ManifestError{Index: index, Path: normalizedEntry.Path, Message: missingRemoteMessageConstant})
			continue
		}

		absolutePath := loader.homeExpander.ResolveAbsolute(normalizedEntry.Path, pathPrefix)
		if firstIndex, duplicate := firstIndexByPath[absolutePath]; duplicate {
			manifestErrors = append(manifestErrors, ManifestError{Index: index, Path: normalizedEntry.Path, Message: fmt.Sprintf(duplicatePathTemplateConstant, firstIndex)})
			continue
		}
		firstIndexByPath[absolutePath] = index

		resolvedEntries = append(resolvedEntries, ResolvedEntry{Index: index, Entry: normalizedEntry, AbsolutePath: absolutePath})
	}

	return resolvedEntries, manifestErrors
}

// WriteTemplate writes a commented manifest template to manifestPath, refusing to overwrite an existing file.
func (loader *ManifestLoader) WriteTemplate(manifestPath string, workingDirectory string) (string, error) {
	targetPath := manifestPath
	if len(strings.TrimSpace(targetPath)) == 0 {
		targetPath = manifestFileNameConstant
	}
	resolvedPath := loader.homeExpander.ResolveAbsolute(targetPath, workingDirectory)

	if _, statError := loader.fileSystem.Lstat(resolvedPath); statError == nil {
		return "", fmt.Errorf(manifestExistsErrorTemplateConstant, ErrManifestExists, resolvedPath)
	}
	if mkdirError := loader.fileSystem.MkdirAll(filepath.Dir(resolvedPath), manifestDirectoryPermissionsConstant); mkdirError != nil {
		return "", fmt.Errorf(manifestWriteErrorTemplateConstant, resolvedPath, mkdirError)
	}
	if writeError := loader.fileSystem.WriteFile(resolvedPath, []byte(manifestTemplateConstant), manifestFilePermissionsConstant); writeError != nil {
		return "", fmt.Errorf(manifestWriteErrorTemplateConstant, resolvedPath, writeError)
	}
	return resolvedPath, nil
}

// ManifestTemplate returns the content written by WriteTemplate.
func ManifestTemplate() string {
	return manifestTemplateConstant
}
