package reconcile

import (
	"strings"
	"time"

	"github.com/temirov/repocheck/internal/status"
)

const (
	defaultMainBranchConstant   = "main"
	defaultMasterBranchConstant = "master"
)

// CommandConfiguration captures persistent settings for the sync command.
type CommandConfiguration struct {
	Manifest     string        `mapstructure:"manifest"`
	Fetch        bool          `mapstructure:"fetch"`
	PullExisting bool          `mapstructure:"pull_existing"`
	Workers      int           `mapstructure:"workers"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MainBranches []string      `mapstructure:"main_branches"`
}

// DefaultCommandConfiguration returns baseline configuration values for the sync command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Fetch:        true,
		PullExisting: true,
		Workers:      defaultWorkerCountConstant,
		MainBranches: []string{defaultMainBranchConstant, defaultMasterBranchConstant},
	}
}

// Sanitize trims values and applies defaults to unset fields.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.Manifest = strings.TrimSpace(configuration.Manifest)
	branches := make([]string, 0, len(configuration.MainBranches))
	for _, branch := range configuration.MainBranches {
		if trimmed := strings.TrimSpace(branch); len(trimmed) > 0 {
			branches = append(branches, trimmed)
		}
	}
	sanitized.MainBranches = branches
	if sanitized.Workers <= 0 {
		sanitized.Workers = defaultWorkerCountConstant
	}
	if sanitized.Timeout < 0 {
		sanitized.Timeout = 0
	}
	return sanitized
}

// ReconcileOptions derives execution options for one run.
func (configuration CommandConfiguration) ReconcileOptions(runIdentifier string, dryRun bool) ReconcileOptions {
	return ReconcileOptions{
		RunIdentifier:   runIdentifier,
		DryRun:          dryRun,
		PullExisting:    configuration.PullExisting,
		FetchBeforePull: configuration.Fetch,
		Workers:         configuration.Workers,
		Classification:  status.NewClassificationPolicy(configuration.MainBranches),
	}
}
