package repos

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/repocheck/internal/execshell"
	"github.com/temirov/repocheck/internal/report"
	"github.com/temirov/repocheck/internal/repos/dependencies"
	"github.com/temirov/repocheck/internal/repos/shared"
	"github.com/temirov/repocheck/internal/status"
	"github.com/temirov/repocheck/internal/utils"
	flagutils "github.com/temirov/repocheck/internal/utils/flags"
)

const (
	scanUseConstant               = "scan [path ...]"
	scanShortDescription          = "Report the status of every repository beneath the scan paths"
	scanLongDescription           = "scan walks the configured scan paths (or the given paths), classifies each git repository relative to its upstream, reports warnings, and fast-forwards clean repositories that are behind."
	scanFetchFlagNameConstant     = "fetch"
	scanFetchFlagUsageConstant    = "Fetch from remotes before inspecting repositories"
	scanCIFlagNameConstant        = "ci"
	scanCIFlagUsageConstant       = "Look up the latest GitHub Actions run of each repository"
	scanWarningsFlagNameConstant  = "warnings-only"
	scanWarningsFlagUsageConstant = "Hide clean repositories without warnings"
	scanExcludeFlagNameConstant   = "exclude"
	scanExcludeFlagUsageConstant  = "Additional directory glob to skip while walking (repeatable)"
	scanQuietFlagUsageConstant    = "Print only dirty repositories and repositories with warnings"
	scanNoPullFlagNameConstant    = "no-pull"
	scanNoPullFlagUsageConstant   = "Report only; do not fast-forward repositories that are behind"
	scanStartedMessageConstant    = "scan started"
	logFieldRootsConstant         = "roots"
	logFieldAutoPullConstant      = "auto_pull"
	logFieldCIStatusConstant      = "ci_status"
	logFieldFetchConstant         = "fetch"
)

var scanExecutionFlagDefinitions = flagutils.ExecutionFlagDefinitions{
	NoPull: flagutils.ExecutionFlagDefinition{Name: scanNoPullFlagNameConstant, Usage: scanNoPullFlagUsageConstant, Enabled: true},
}

// ScanCommandBuilder assembles the scan command.
type ScanCommandBuilder struct {
	LoggerProvider               LoggerProvider
	Discoverer                   shared.RepositoryDiscoverer
	GitExecutor                  shared.GitExecutor
	Inspector                    status.RepositoryInspector
	CIResolver                   status.CIStatusResolver
	CommandEventsObserver        execshell.CommandEventObserver
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() status.CommandConfiguration
	HomeDirectory                string
}

// Build constructs the scan command.
func (builder *ScanCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   scanUseConstant,
		Short: scanShortDescription,
		Long:  scanLongDescription,
		RunE:  builder.run,
	}

	command.Flags().Bool(scanFetchFlagNameConstant, false, scanFetchFlagUsageConstant)
	command.Flags().Bool(scanCIFlagNameConstant, false, scanCIFlagUsageConstant)
	command.Flags().Bool(scanWarningsFlagNameConstant, false, scanWarningsFlagUsageConstant)
	command.Flags().StringSlice(scanExcludeFlagNameConstant, nil, scanExcludeFlagUsageConstant)
	flagutils.BindExecutionFlags(command, flagutils.ExecutionDefaults{}, scanExecutionFlagDefinitions)
	bindOutputFlags(command, scanQuietFlagUsageConstant)
	bindConcurrencyFlags(command)

	return command, nil
}

func (builder *ScanCommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration := builder.resolveConfiguration(command)

	outputFormat, formatError := readOutputFormat(command)
	if formatError != nil {
		return formatError
	}
	quiet, _ := command.Flags().GetBool(quietFlagNameConstant)

	roots := determineRepositoryRoots(arguments, configuration.ScanPaths)
	if len(roots) == 0 {
		_ = displayCommandHelp(command)
		return status.ErrNoScanPaths
	}

	logger := resolveLogger(builder.LoggerProvider)
	gitExecutor, executorError := dependencies.ResolveGitExecutor(builder.GitExecutor, logger, resolveCommandEventsObserver(builder.CommandEventsObserver, builder.HumanReadableLoggingProvider, logger))
	if executorError != nil {
		return executorError
	}

	inspector, inspectorError := dependencies.ResolveRepositoryInspector(builder.Inspector, gitExecutor, nil)
	if inspectorError != nil {
		return inspectorError
	}

	var ciResolver status.CIStatusResolver
	if configuration.CIStatus {
		resolved, resolverError := dependencies.ResolveCIStatusResolver(builder.CIResolver, gitExecutor, inspector, logger)
		if resolverError != nil {
			return resolverError
		}
		ciResolver = resolved
	}

	service, serviceError := status.NewService(dependencies.ResolveRepositoryDiscoverer(builder.Discoverer), inspector, ciResolver, logger)
	if serviceError != nil {
		return serviceError
	}

	runIdentifier := utils.NewRunIdentifier()
	utils.WithRunIdentifier(logger, runIdentifier).Info(scanStartedMessageConstant,
		zap.Strings(logFieldRootsConstant, roots),
		zap.Bool(logFieldAutoPullConstant, configuration.AutoPull.Enabled),
		zap.Bool(logFieldCIStatusConstant, configuration.CIStatus),
		zap.Bool(logFieldFetchConstant, configuration.Fetch))

	executionContext, cancel := commandExecutionContext(command, configuration.Timeout)
	defer cancel()

	result, scanError := service.Scan(executionContext, status.ScanOptions{
		RunIdentifier:    runIdentifier,
		Roots:            roots,
		Discovery:        configuration.DiscoveryOptions(),
		Classification:   configuration.ClassificationPolicy(),
		AutoPull:         configuration.AutoPullPolicy(),
		Workers:          configuration.Workers,
		FetchBeforeProbe: configuration.Fetch,
		ResolveCIStatus:  configuration.CIStatus,
	})
	if scanError != nil {
		return scanError
	}

	renderer := report.NewRenderer(command.OutOrStdout(), outputFormat, builder.resolveHomeDirectory())
	return renderer.RenderScan(result, report.ScanRenderOptions{ShowClean: configuration.ShowClean, Quiet: quiet})
}

// resolveConfiguration merges command-line overrides into the configured scan settings.
func (builder *ScanCommandBuilder) resolveConfiguration(command *cobra.Command) status.CommandConfiguration {
	configuration := status.DefaultCommandConfiguration()
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider()
	}

	overrideBool(command, scanFetchFlagNameConstant, &configuration.Fetch)
	overrideBool(command, scanCIFlagNameConstant, &configuration.CIStatus)
	if warningsOnly, _ := command.Flags().GetBool(scanWarningsFlagNameConstant); warningsOnly {
		configuration.ShowClean = false
	}
	if executionFlags := flagutils.ReadExecutionFlags(command, scanExecutionFlagDefinitions); executionFlags.NoPullSet && executionFlags.NoPull {
		configuration.AutoPull.Enabled = false
	}
	if excludes, excludeError := command.Flags().GetStringSlice(scanExcludeFlagNameConstant); excludeError == nil {
		configuration.ExcludePatterns = append(append([]string{}, configuration.ExcludePatterns...), excludes...)
	}
	overrideConcurrency(command, &configuration.Workers, &configuration.Timeout)

	sanitized := configuration.Sanitize()
	sanitized.ExcludePaths = trimRoots(sanitized.ExcludePaths)
	return sanitized
}

func (builder *ScanCommandBuilder) resolveHomeDirectory() string {
	if len(builder.HomeDirectory) > 0 {
		return builder.HomeDirectory
	}
	return resolveHomeDirectory()
}
