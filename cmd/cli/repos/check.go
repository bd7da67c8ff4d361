package repos

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/temirov/repocheck/internal/execshell"
	"github.com/temirov/repocheck/internal/report"
	"github.com/temirov/repocheck/internal/repos/dependencies"
	"github.com/temirov/repocheck/internal/repos/shared"
	"github.com/temirov/repocheck/internal/status"
	"github.com/temirov/repocheck/internal/utils"
)

const (
	checkUseConstant              = "check <path>"
	checkShortDescription         = "Report the detailed status of a single repository"
	checkLongDescription          = "check probes one git repository, classifies it relative to its upstream, and lists every warning. It never pulls."
	checkNotRepositoryTemplate    = "not a git repository: %s"
	checkGitDirectoryNameConstant = ".git"
)

// CheckCommandBuilder assembles the check command.
type CheckCommandBuilder struct {
	LoggerProvider               LoggerProvider
	GitExecutor                  shared.GitExecutor
	Inspector                    status.RepositoryInspector
	CIResolver                   status.CIStatusResolver
	FileSystem                   shared.FileSystem
	CommandEventsObserver        execshell.CommandEventObserver
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() status.CommandConfiguration
	HomeDirectory                string
}

// Build constructs the check command.
func (builder *CheckCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   checkUseConstant,
		Short: checkShortDescription,
		Long:  checkLongDescription,
		Args:  cobra.ExactArgs(1),
		RunE:  builder.run,
	}

	command.Flags().Bool(scanFetchFlagNameConstant, false, scanFetchFlagUsageConstant)
	command.Flags().Bool(scanCIFlagNameConstant, false, scanCIFlagUsageConstant)
	bindOutputFlags(command, "")
	command.Flags().Duration(timeoutFlagNameConstant, 0, timeoutFlagUsageConstant)

	return command, nil
}

func (builder *CheckCommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration := builder.resolveConfiguration(command)

	outputFormat, formatError := readOutputFormat(command)
	if formatError != nil {
		return formatError
	}

	repositoryPaths := trimRoots(arguments)
	if len(repositoryPaths) == 0 {
		return displayCommandHelp(command)
	}
	repositoryPath, absoluteError := filepath.Abs(repositoryPaths[0])
	if absoluteError != nil {
		return absoluteError
	}

	fileSystem := dependencies.ResolveFileSystem(builder.FileSystem)
	if _, statError := fileSystem.Stat(filepath.Join(repositoryPath, checkGitDirectoryNameConstant)); statError != nil {
		return fmt.Errorf(checkNotRepositoryTemplate, repositoryPath)
	}

	logger := resolveLogger(builder.LoggerProvider)
	gitExecutor, executorError := dependencies.ResolveGitExecutor(builder.GitExecutor, logger, resolveCommandEventsObserver(builder.CommandEventsObserver, builder.HumanReadableLoggingProvider, logger))
	if executorError != nil {
		return executorError
	}

	inspector, inspectorError := dependencies.ResolveRepositoryInspector(builder.Inspector, gitExecutor, fileSystem)
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

	service, serviceError := status.NewService(dependencies.ResolveRepositoryDiscoverer(nil), inspector, ciResolver, logger)
	if serviceError != nil {
		return serviceError
	}

	executionContext, cancel := commandExecutionContext(command, configuration.Timeout)
	defer cancel()

	repositoryReport, inspectError := service.Inspect(executionContext, repositoryPath, status.ScanOptions{
		RunIdentifier:    utils.NewRunIdentifier(),
		Classification:   configuration.ClassificationPolicy(),
		FetchBeforeProbe: configuration.Fetch,
		ResolveCIStatus:  configuration.CIStatus,
	})
	if inspectError != nil {
		return inspectError
	}

	homeDirectory := builder.HomeDirectory
	if len(homeDirectory) == 0 {
		homeDirectory = resolveHomeDirectory()
	}
	return report.NewRenderer(command.OutOrStdout(), outputFormat, homeDirectory).RenderReport(repositoryReport)
}

func (builder *CheckCommandBuilder) resolveConfiguration(command *cobra.Command) status.CommandConfiguration {
	configuration := status.DefaultCommandConfiguration()
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider()
	}

	overrideBool(command, scanFetchFlagNameConstant, &configuration.Fetch)
	overrideBool(command, scanCIFlagNameConstant, &configuration.CIStatus)
	workers := configuration.Workers
	overrideConcurrency(command, &workers, &configuration.Timeout)
	return configuration.Sanitize()
}
