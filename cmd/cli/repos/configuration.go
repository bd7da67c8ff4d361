package repos

import (
	"github.com/temirov/repocheck/internal/reconcile"
	"github.com/temirov/repocheck/internal/status"
)

const (
	scanConfigurationKeyConstant         = "scan"
	syncConfigurationKeyConstant         = "sync"
	configurationScanPathsKeyConstant    = "scan_paths"
	configurationExcludePatternsKey      = "exclude_patterns"
	configurationExcludePathsKeyConstant = "exclude_paths"
	configurationMainBranchesKeyConstant = "main_branches"
	configurationWorkersKeyConstant      = "workers"
	configurationTimeoutKeyConstant      = "timeout"
	configurationFetchKeyConstant        = "fetch"
	configurationCIStatusKeyConstant     = "ci_status"
	configurationShowCleanKeyConstant    = "show_clean"
	configurationAutoPullKeyConstant     = "auto_pull"
	configurationEnabledKeyConstant      = "enabled"
	configurationRequireCleanKeyConstant = "require_clean"
	configurationSkipPatternsKeyConstant = "skip_patterns"
	configurationManifestKeyConstant     = "manifest"
	configurationPullExistingKeyConstant = "pull_existing"
	configurationKeySeparatorConstant    = "."
)

// ToolsConfiguration captures the configuration sections of the repository commands.
type ToolsConfiguration struct {
	Scan status.CommandConfiguration    `mapstructure:"scan"`
	Sync reconcile.CommandConfiguration `mapstructure:"sync"`
}

// DefaultToolsConfiguration returns baseline configuration values for the repository commands.
func DefaultToolsConfiguration() ToolsConfiguration {
	return ToolsConfiguration{
		Scan: status.DefaultCommandConfiguration(),
		Sync: reconcile.DefaultCommandConfiguration(),
	}
}

// DefaultConfigurationValues produces Viper defaults for the repository commands beneath rootKey.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultToolsConfiguration()
	scanKey := func(keys ...string) string {
		return joinConfigurationKey(append([]string{rootKey, scanConfigurationKeyConstant}, keys...)...)
	}
	syncKey := func(keys ...string) string {
		return joinConfigurationKey(append([]string{rootKey, syncConfigurationKeyConstant}, keys...)...)
	}

	values := make(map[string]any, 18)
	values[scanKey(configurationScanPathsKeyConstant)] = defaults.Scan.ScanPaths
	values[scanKey(configurationExcludePatternsKey)] = defaults.Scan.ExcludePatterns
	values[scanKey(configurationExcludePathsKeyConstant)] = defaults.Scan.ExcludePaths
	values[scanKey(configurationMainBranchesKeyConstant)] = defaults.Scan.MainBranches
	values[scanKey(configurationWorkersKeyConstant)] = defaults.Scan.Workers
	values[scanKey(configurationTimeoutKeyConstant)] = defaults.Scan.Timeout
	values[scanKey(configurationFetchKeyConstant)] = defaults.Scan.Fetch
	values[scanKey(configurationCIStatusKeyConstant)] = defaults.Scan.CIStatus
	values[scanKey(configurationShowCleanKeyConstant)] = defaults.Scan.ShowClean
	values[scanKey(configurationAutoPullKeyConstant, configurationEnabledKeyConstant)] = defaults.Scan.AutoPull.Enabled
	values[scanKey(configurationAutoPullKeyConstant, configurationRequireCleanKeyConstant)] = defaults.Scan.AutoPull.RequireClean
	values[scanKey(configurationAutoPullKeyConstant, configurationSkipPatternsKeyConstant)] = defaults.Scan.AutoPull.SkipPatterns
	values[syncKey(configurationManifestKeyConstant)] = defaults.Sync.Manifest
	values[syncKey(configurationFetchKeyConstant)] = defaults.Sync.Fetch
	values[syncKey(configurationPullExistingKeyConstant)] = defaults.Sync.PullExisting
	values[syncKey(configurationWorkersKeyConstant)] = defaults.Sync.Workers
	values[syncKey(configurationTimeoutKeyConstant)] = defaults.Sync.Timeout
	values[syncKey(configurationMainBranchesKeyConstant)] = defaults.Sync.MainBranches
	return values
}

func joinConfigurationKey(keys ...string) string {
	joined := ""
	for _, key := range keys {
		if len(key) == 0 {
			continue
		}
		if len(joined) > 0 {
			joined += configurationKeySeparatorConstant
		}
		joined += key
	}
	return joined
}
