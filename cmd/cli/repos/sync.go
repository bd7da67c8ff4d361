package repos

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/repocheck/internal/execshell"
	"github.com/temirov/repocheck/internal/reconcile"
	"github.com/temirov/repocheck/internal/report"
	"github.com/temirov/repocheck/internal/repos/dependencies"
	"github.com/temirov/repocheck/internal/repos/shared"
	"github.com/temirov/repocheck/internal/status"
	"github.com/temirov/repocheck/internal/utils"
	flagutils "github.com/temirov/repocheck/internal/utils/flags"
	pathutils "github.com/temirov/repocheck/internal/utils/path"
)

const (
	syncUseConstant                   = "sync"
	syncShortDescription              = "Clone missing repositories and fast-forward tracked ones from a manifest"
	syncLongDescription               = "sync reads a repos.yml manifest, clones every listed repository that is missing, and fast-forwards existing clean repositories that are behind their upstream. Ignored entries are never touched."
	syncManifestFlagNameConstant      = "manifest"
	syncManifestFlagShorthandConstant = "m"
	syncManifestFlagUsageConstant     = "Manifest file (defaults to ./repos.yml, ./repos.yaml, then ~/.config/repocheck/repos.yml)"
	syncInitFlagNameConstant          = "init"
	syncInitFlagUsageConstant         = "Write a commented manifest template and exit"
	syncDryRunFlagNameConstant        = "dry-run"
	syncDryRunFlagUsageConstant       = "Show the planned actions without cloning or pulling"
	syncNoPullFlagUsageConstant       = "Clone missing repositories only; leave existing ones untouched"
	syncFetchFlagUsageConstant        = "Fetch from the upstream before deciding whether to pull"
	syncQuietFlagUsageConstant        = "Hide skipped entries and the summary"
	syncManifestCreatedTemplate       = "Created manifest: %s\n"
	syncFailuresTemplateConstant      = "sync finished with %d failed operation(s) and %d manifest error(s)"
	syncManifestLoadedMessageConstant = "manifest loaded"
	logFieldManifestConstant          = "manifest"
	logFieldEntriesConstant           = "entries"
	logFieldManifestErrorsConstant    = "manifest_errors"
)

// ErrSyncIncomplete indicates at least one manifest entry was invalid or failed to reconcile.
var ErrSyncIncomplete = errors.New("sync incomplete")

var syncExecutionFlagDefinitions = flagutils.ExecutionFlagDefinitions{
	DryRun: flagutils.ExecutionFlagDefinition{Name: syncDryRunFlagNameConstant, Usage: syncDryRunFlagUsageConstant, Enabled: true},
	NoPull: flagutils.ExecutionFlagDefinition{Name: scanNoPullFlagNameConstant, Usage: syncNoPullFlagUsageConstant, Enabled: true},
}

// SyncCommandBuilder assembles the sync command.
type SyncCommandBuilder struct {
	LoggerProvider               LoggerProvider
	GitExecutor                  shared.GitExecutor
	Inspector                    status.RepositoryInspector
	FileSystem                   shared.FileSystem
	HomeExpander                 *pathutils.HomeExpander
	CommandEventsObserver        execshell.CommandEventObserver
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() reconcile.CommandConfiguration
	WorkingDirectory             string
	HomeDirectory                string
}

// Build constructs the sync command.
func (builder *SyncCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   syncUseConstant,
		Short: syncShortDescription,
		Long:  syncLongDescription,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}

	command.Flags().StringP(syncManifestFlagNameConstant, syncManifestFlagShorthandConstant, "", syncManifestFlagUsageConstant)
	command.Flags().Bool(syncInitFlagNameConstant, false, syncInitFlagUsageConstant)
	command.Flags().Bool(scanFetchFlagNameConstant, true, syncFetchFlagUsageConstant)
	flagutils.BindExecutionFlags(command, flagutils.ExecutionDefaults{}, syncExecutionFlagDefinitions)
	bindOutputFlags(command, syncQuietFlagUsageConstant)
	bindConcurrencyFlags(command)

	return command, nil
}

func (builder *SyncCommandBuilder) run(command *cobra.Command, _ []string) error {
	configuration := builder.resolveConfiguration(command)
	workingDirectory := resolveWorkingDirectory(builder.WorkingDirectory)
	fileSystem := dependencies.ResolveFileSystem(builder.FileSystem)
	loader := reconcile.NewManifestLoader(fileSystem, builder.HomeExpander)

	if initRequested, _ := command.Flags().GetBool(syncInitFlagNameConstant); initRequested {
		writtenPath, writeError := loader.WriteTemplate(configuration.Manifest, workingDirectory)
		if writeError != nil {
			return writeError
		}
		_, printError := fmt.Fprintf(command.OutOrStdout(), syncManifestCreatedTemplate, writtenPath)
		return printError
	}

	outputFormat, formatError := readOutputFormat(command)
	if formatError != nil {
		return formatError
	}
	quiet, _ := command.Flags().GetBool(quietFlagNameConstant)
	executionFlags := flagutils.ReadExecutionFlags(command, syncExecutionFlagDefinitions)

	manifestPath, locateError := loader.Locate(configuration.Manifest, workingDirectory)
	if locateError != nil {
		return locateError
	}
	manifest, loadError := loader.Load(manifestPath)
	if loadError != nil {
		return loadError
	}
	resolvedEntries, manifestErrors := loader.Resolve(manifest, workingDirectory)

	logger := resolveLogger(builder.LoggerProvider)
	runIdentifier := utils.NewRunIdentifier()
	utils.WithRunIdentifier(logger, runIdentifier).Info(syncManifestLoadedMessageConstant,
		zap.String(logFieldManifestConstant, manifestPath),
		zap.Int(logFieldEntriesConstant, len(resolvedEntries)),
		zap.Int(logFieldManifestErrorsConstant, len(manifestErrors)))

	gitExecutor, executorError := dependencies.ResolveGitExecutor(builder.GitExecutor, logger, resolveCommandEventsObserver(builder.CommandEventsObserver, builder.HumanReadableLoggingProvider, logger))
	if executorError != nil {
		return executorError
	}
	inspector, inspectorError := dependencies.ResolveRepositoryInspector(builder.Inspector, gitExecutor, fileSystem)
	if inspectorError != nil {
		return inspectorError
	}
	reconciler, reconcilerError := reconcile.NewReconciler(inspector, fileSystem, logger)
	if reconcilerError != nil {
		return reconcilerError
	}

	executionContext, cancel := commandExecutionContext(command, configuration.Timeout)
	defer cancel()

	options := configuration.ReconcileOptions(runIdentifier, executionFlags.DryRunSet && executionFlags.DryRun)
	result := reconciler.Reconcile(executionContext, manifestPath, resolvedEntries, manifestErrors, options)

	homeDirectory := builder.HomeDirectory
	if len(homeDirectory) == 0 {
		homeDirectory = resolveHomeDirectory()
	}
	if renderError := report.NewRenderer(command.OutOrStdout(), outputFormat, homeDirectory).RenderReconcile(result, quiet); renderError != nil {
		return renderError
	}

	if result.Failed > 0 || len(result.ManifestErrors) > 0 {
		return fmt.Errorf("%w: "+syncFailuresTemplateConstant, ErrSyncIncomplete, result.Failed, len(result.ManifestErrors))
	}
	return nil
}

// resolveConfiguration merges command-line overrides into the configured sync settings.
func (builder *SyncCommandBuilder) resolveConfiguration(command *cobra.Command) reconcile.CommandConfiguration {
	configuration := reconcile.DefaultCommandConfiguration()
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider()
	}

	if command.Flags().Changed(syncManifestFlagNameConstant) {
		configuration.Manifest, _ = command.Flags().GetString(syncManifestFlagNameConstant)
	}
	overrideBool(command, scanFetchFlagNameConstant, &configuration.Fetch)
	if executionFlags := flagutils.ReadExecutionFlags(command, syncExecutionFlagDefinitions); executionFlags.NoPullSet && executionFlags.NoPull {
		configuration.PullExisting = false
	}
	overrideConcurrency(command, &configuration.Workers, &configuration.Timeout)
	return configuration.Sanitize()
}
