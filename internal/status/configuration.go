package status

import (
	"strings"
	"time"

	"github.com/temirov/repocheck/internal/repos/shared"
)

const (
	defaultWorkerCountConstant  = 8
	defaultMainBranchConstant   = "main"
	defaultMasterBranchConstant = "master"
)

// AutoPullConfiguration captures the auto_pull section of the scan configuration.
type AutoPullConfiguration struct {
	Enabled      bool     `mapstructure:"enabled"`
	RequireClean bool     `mapstructure:"require_clean"`
	SkipPatterns []string `mapstructure:"skip_patterns"`
}

// CommandConfiguration captures persistent settings for the scan and check commands.
type CommandConfiguration struct {
	ScanPaths       []string              `mapstructure:"scan_paths"`
	ExcludePatterns []string              `mapstructure:"exclude_patterns"`
	ExcludePaths    []string              `mapstructure:"exclude_paths"`
	MainBranches    []string              `mapstructure:"main_branches"`
	Workers         int                   `mapstructure:"workers"`
	Timeout         time.Duration         `mapstructure:"timeout"`
	Fetch           bool                  `mapstructure:"fetch"`
	CIStatus        bool                  `mapstructure:"ci_status"`
	ShowClean       bool                  `mapstructure:"show_clean"`
	AutoPull        AutoPullConfiguration `mapstructure:"auto_pull"`
}

// DefaultCommandConfiguration returns baseline configuration values for the scan command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		MainBranches: []string{defaultMainBranchConstant, defaultMasterBranchConstant},
		Workers:      defaultWorkerCountConstant,
		ShowClean:    true,
		AutoPull: AutoPullConfiguration{
			Enabled:      true,
			RequireClean: true,
		},
	}
}

// Sanitize trims list entries and applies defaults to unset values.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.ScanPaths = sanitizeEntries(configuration.ScanPaths)
	sanitized.ExcludePatterns = sanitizeEntries(configuration.ExcludePatterns)
	sanitized.ExcludePaths = sanitizeEntries(configuration.ExcludePaths)
	sanitized.MainBranches = sanitizeEntries(configuration.MainBranches)
	sanitized.AutoPull.SkipPatterns = sanitizeEntries(configuration.AutoPull.SkipPatterns)
	if sanitized.Workers <= 0 {
		sanitized.Workers = defaultWorkerCountConstant
	}
	if sanitized.Timeout < 0 {
		sanitized.Timeout = 0
	}
	return sanitized
}

// ClassificationPolicy derives the classifier policy.
func (configuration CommandConfiguration) ClassificationPolicy() ClassificationPolicy {
	return NewClassificationPolicy(configuration.MainBranches)
}

// AutoPullPolicy derives the auto-pull policy.
func (configuration CommandConfiguration) AutoPullPolicy() AutoPullPolicy {
	return AutoPullPolicy{
		Enabled:      configuration.AutoPull.Enabled,
		RequireClean: configuration.AutoPull.RequireClean,
		SkipPatterns: append([]string(nil), configuration.AutoPull.SkipPatterns...),
	}
}

// DiscoveryOptions derives the walker options.
func (configuration CommandConfiguration) DiscoveryOptions() shared.DiscoveryOptions {
	return shared.DiscoveryOptions{
		ExcludePatterns: append([]string(nil), configuration.ExcludePatterns...),
		ExcludePaths:    append([]string(nil), configuration.ExcludePaths...),
	}
}

func sanitizeEntries(raw []string) []string {
	sanitized := make([]string, 0, len(raw))
	for index := range raw {
		trimmed := strings.TrimSpace(raw[index])
		if len(trimmed) == 0 {
			continue
		}
		sanitized = append(sanitized, trimmed)
	}
	return sanitized
}
