package pathutils

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const windowsOperatingSystemConstant = "windows"

// RepositoryPathSanitizerConfiguration controls how candidate scan roots are normalized.
type RepositoryPathSanitizerConfiguration struct {
	// BaseDirectory resolves relative candidates; the process working directory is used when empty.
	BaseDirectory string
}

// RepositoryPathSanitizer turns user supplied scan roots into clean absolute paths.
type RepositoryPathSanitizer struct {
	homeExpander  *HomeExpander
	configuration RepositoryPathSanitizerConfiguration
}

// NewRepositoryPathSanitizer constructs a RepositoryPathSanitizer with default behavior.
func NewRepositoryPathSanitizer() *RepositoryPathSanitizer {
	return NewRepositoryPathSanitizerWithConfiguration(nil, RepositoryPathSanitizerConfiguration{})
}

// NewRepositoryPathSanitizerWithConfiguration constructs a RepositoryPathSanitizer using the provided expander and configuration.
func NewRepositoryPathSanitizerWithConfiguration(homeExpander *HomeExpander, configuration RepositoryPathSanitizerConfiguration) *RepositoryPathSanitizer {
	if homeExpander == nil {
		homeExpander = NewHomeExpander()
	}
	return &RepositoryPathSanitizer{homeExpander: homeExpander, configuration: configuration}
}

// Sanitize trims whitespace, expands the home directory shortcut, resolves each candidate to a clean
// absolute path, and removes duplicates while preserving first-seen order. Nested roots are kept:
// each one is walked, and the discoverer de-duplicates repositories found twice.
func (sanitizer *RepositoryPathSanitizer) Sanitize(candidatePaths []string) []string {
	if sanitizer == nil {
		sanitizer = NewRepositoryPathSanitizer()
	}

	seenComparisons := make(map[string]struct{}, len(candidatePaths))
	sanitizedPaths := make([]string, 0, len(candidatePaths))
	for _, candidatePath := range candidatePaths {
		trimmedCandidate := strings.TrimSpace(candidatePath)
		if len(trimmedCandidate) == 0 {
			continue
		}

		absolutePath := sanitizer.homeExpander.ResolveAbsolute(trimmedCandidate, sanitizer.configuration.BaseDirectory)
		comparison := comparisonPath(absolutePath)
		if _, seen := seenComparisons[comparison]; seen {
			continue
		}
		seenComparisons[comparison] = struct{}{}
		sanitizedPaths = append(sanitizedPaths, absolutePath)
	}

	if len(sanitizedPaths) == 0 {
		return nil
	}
	return sanitizedPaths
}

// IsWithin reports whether candidate equals parent or is located beneath it.
func IsWithin(parent string, candidate string) bool {
	parentClean := comparisonPath(parent)
	candidateClean := comparisonPath(candidate)

	if candidateClean == parentClean {
		return true
	}
	if len(candidateClean) <= len(parentClean) || !strings.HasPrefix(candidateClean, parentClean) {
		return false
	}
	if parentClean[len(parentClean)-1] == os.PathSeparator {
		return true
	}
	return candidateClean[len(parentClean)] == os.PathSeparator
}

func comparisonPath(path string) string {
	comparison := filepath.Clean(path)
	if runtime.GOOS == windowsOperatingSystemConstant {
		comparison = strings.ToLower(comparison)
	}
	return comparison
}
