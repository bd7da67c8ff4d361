package pathutils

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const homeShortcutConstant = "~"

// HomeDirectoryProvider returns the home directory that "~" stands for.
type HomeDirectoryProvider func() (string, error)

// HomeExpander turns "~" and "~/..." in scan roots, exclude paths and manifest
// entries into absolute paths. The home directory is looked up at most once.
type HomeExpander struct {
	lookupHomeDirectory HomeDirectoryProvider
	lookupOnce          sync.Once
	cachedHomeDirectory string
}

// NewHomeExpander returns an expander backed by os.UserHomeDir.
func NewHomeExpander() *HomeExpander {
	return NewHomeExpanderWithProvider(nil)
}

// NewHomeExpanderWithProvider returns an expander backed by provider, or by os.UserHomeDir when provider is nil.
func NewHomeExpanderWithProvider(provider HomeDirectoryProvider) *HomeExpander {
	if provider == nil {
		provider = os.UserHomeDir
	}
	return &HomeExpander{lookupHomeDirectory: provider}
}

// Expand replaces a leading "~" with the home directory. Paths such as "~user/x",
// and every path when the home directory is unknown, come back unchanged.
func (expander *HomeExpander) Expand(candidatePath string) string {
	if expander == nil || !strings.HasPrefix(candidatePath, homeShortcutConstant) {
		return candidatePath
	}

	remainder := candidatePath[len(homeShortcutConstant):]
	if len(remainder) > 0 && remainder[0] != '/' && remainder[0] != os.PathSeparator {
		return candidatePath
	}

	homeDirectory := expander.homeDirectory()
	if len(homeDirectory) == 0 {
		return candidatePath
	}
	if len(remainder) == 0 {
		return homeDirectory
	}
	return filepath.Join(homeDirectory, remainder[1:])
}

// ResolveAbsolute expands candidatePath and anchors a relative result at baseDirectory,
// which is itself expanded. An empty baseDirectory means the process working directory.
func (expander *HomeExpander) ResolveAbsolute(candidatePath string, baseDirectory string) string {
	expandedPath := expander.Expand(strings.TrimSpace(candidatePath))
	switch {
	case len(expandedPath) == 0:
		return expandedPath
	case filepath.IsAbs(expandedPath):
		return filepath.Clean(expandedPath)
	}

	if anchor := strings.TrimSpace(baseDirectory); len(anchor) > 0 {
		return filepath.Join(expander.ResolveAbsolute(anchor, ""), expandedPath)
	}

	absolutePath, absoluteError := filepath.Abs(expandedPath)
	if absoluteError != nil {
		return filepath.Clean(expandedPath)
	}
	return absolutePath
}

func (expander *HomeExpander) homeDirectory() string {
	expander.lookupOnce.Do(func() {
		homeDirectory, lookupError := expander.lookupHomeDirectory()
		if lookupError == nil {
			expander.cachedHomeDirectory = homeDirectory
		}
	})
	return expander.cachedHomeDirectory
}
