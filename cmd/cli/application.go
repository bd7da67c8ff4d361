package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/temirov/repocheck/cmd/cli/repos"
	"github.com/temirov/repocheck/internal/reconcile"
	"github.com/temirov/repocheck/internal/status"
	"github.com/temirov/repocheck/internal/utils"
)

const (
	applicationNameConstant                 = "repocheck"
	applicationShortDescriptionConstant     = "Status and sync for every git repository on this machine"
	applicationLongDescriptionConstant      = "repocheck scans directory trees for git repositories, reports how each one stands relative to its upstream, fast-forwards clean repositories that are behind, and keeps a machine in sync with a manifest of tracked repositories."
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Read settings from this file instead of ./config.yaml or ~/.config/repocheck/config.yaml"
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "Log level: debug, info, warn or error"
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "Log format: structured (JSON) or console"
	commonConfigurationKeyConstant          = "common"
	commonLogLevelConfigKeyConstant         = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant        = commonConfigurationKeyConstant + ".log_format"
	environmentPrefixConstant               = "REPOCHECK"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	configurationInitializedMessageConstant = "configuration loaded"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	rootCommandDebugMessageConstant         = "root command invoked without a subcommand"
	logFieldArgumentsConstant               = "arguments"
	workingDirectorySearchPathConstant      = "."
	userConfigurationSearchPathConstant     = "$HOME/.config/repocheck"
	toolsConfigurationKeyConstant           = "tools"
	developmentVersionConstant              = "dev"
	develBuildVersionConstant               = "(devel)"
)

// applicationVersion is overridden at build time with -ldflags "-X".
var applicationVersion = ""

var ignorableSyncErrors = []error{syscall.ENOTSUP, syscall.EINVAL, syscall.ENOTTY}

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common ApplicationCommonConfiguration `mapstructure:"common"`
	Tools  repos.ToolsConfiguration       `mapstructure:"tools"`
}

// ApplicationCommonConfiguration stores logging configuration shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand           *cobra.Command
	configurationLoader   *utils.ConfigurationLoader
	loggerFactory         *utils.LoggerFactory
	logger                *zap.Logger
	configuration         ApplicationConfiguration
	configurationMetadata utils.LoadedConfiguration
	configurationFilePath string
	logLevelFlagValue     string
	logFormatFlagValue    string
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		[]string{workingDirectorySearchPathConstant, userConfigurationSearchPathConstant},
	)
	configurationLoader.SetEmbeddedConfiguration(EmbeddedDefaultConfiguration())

	application := &Application{
		configurationLoader: configurationLoader,
		loggerFactory:       utils.NewLoggerFactory(),
		logger:              zap.NewNop(),
		configuration:       ApplicationConfiguration{Tools: repos.DefaultToolsConfiguration()},
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		Version:       resolveApplicationVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return application.runRootCommand(command, arguments)
		},
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", logFormatFlagUsageConstant)

	for _, builder := range application.subcommandBuilders() {
		subcommand, buildError := builder.Build()
		if buildError != nil {
			continue
		}
		cobraCommand.AddCommand(subcommand)
	}

	application.rootCommand = cobraCommand

	return application
}

type subcommandBuilder interface {
	Build() (*cobra.Command, error)
}

// subcommandBuilders wires every subcommand to the configuration and logger resolved in
// PersistentPreRunE. Providers are read lazily because configuration loads after Build.
func (application *Application) subcommandBuilders() []subcommandBuilder {
	loggerProvider := func() *zap.Logger { return application.logger }
	scanConfigurationProvider := func() status.CommandConfiguration { return application.configuration.Tools.Scan }

	return []subcommandBuilder{
		&repos.ScanCommandBuilder{
			LoggerProvider:               loggerProvider,
			HumanReadableLoggingProvider: application.humanReadableLoggingEnabled,
			ConfigurationProvider:        scanConfigurationProvider,
		},
		&repos.CheckCommandBuilder{
			LoggerProvider:               loggerProvider,
			HumanReadableLoggingProvider: application.humanReadableLoggingEnabled,
			ConfigurationProvider:        scanConfigurationProvider,
		},
		&repos.SyncCommandBuilder{
			LoggerProvider:               loggerProvider,
			HumanReadableLoggingProvider: application.humanReadableLoggingEnabled,
			ConfigurationProvider: func() reconcile.CommandConfiguration {
				return application.configuration.Tools.Sync
			},
		},
		&InitCommandBuilder{},
	}
}

// Execute runs the configured Cobra command hierarchy and ensures logger flushing. An interrupt or
// termination signal cancels the running command's context.
func (application *Application) Execute() error {
	signalContext, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	executionError := application.rootCommand.ExecuteContext(signalContext)
	if syncError := application.flushLogger(); syncError != nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// SetArguments overrides the command-line arguments, mainly for tests.
func (application *Application) SetArguments(arguments []string) {
	application.rootCommand.SetArgs(arguments)
}

// RootCommand exposes the Cobra root command.
func (application *Application) RootCommand() *cobra.Command {
	return application.rootCommand
}

// Configuration returns the configuration loaded for the most recent command.
func (application *Application) Configuration() ApplicationConfiguration {
	return application.configuration
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:  string(utils.LogLevelInfo),
		commonLogFormatConfigKeyConstant: string(utils.LogFormatStructured),
	}
	for configurationKey, configurationValue := range repos.DefaultConfigurationValues(toolsConfigurationKeyConstant) {
		defaultValues[configurationKey] = configurationValue
	}

	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(application.configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}

	application.configurationMetadata = loadedConfiguration

	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}

	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}

	logger, loggerCreationError := application.loggerFactory.CreateLogger(
		utils.LogLevel(application.configuration.Common.LogLevel),
		utils.LogFormat(application.configuration.Common.LogFormat),
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}

	application.logger = logger

	application.logger.Info(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
	)

	return nil
}

func (application *Application) humanReadableLoggingEnabled() bool {
	logFormatValue := strings.TrimSpace(application.configuration.Common.LogFormat)
	return strings.EqualFold(logFormatValue, string(utils.LogFormatConsole))
}

func (application *Application) runRootCommand(command *cobra.Command, arguments []string) error {
	application.logger.Debug(rootCommandDebugMessageConstant, zap.Strings(logFieldArgumentsConstant, arguments))
	return command.Help()
}

// flushLogger syncs the logger. Terminals and pipes reject fsync with one of
// ignorableSyncErrors, which is not a failure of the run.
func (application *Application) flushLogger() error {
	syncError := application.logger.Sync()
	for _, ignorableError := range ignorableSyncErrors {
		if errors.Is(syncError, ignorableError) {
			return nil
		}
	}
	return syncError
}

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}
	for _, flagSet := range []*pflag.FlagSet{command.Flags(), command.InheritedFlags(), command.Root().PersistentFlags()} {
		if flagSet.Changed(flagName) {
			return true
		}
	}
	return false
}

func resolveApplicationVersion() string {
	if trimmed := strings.TrimSpace(applicationVersion); len(trimmed) > 0 {
		return trimmed
	}
	if buildInformation, available := debug.ReadBuildInfo(); available {
		if moduleVersion := buildInformation.Main.Version; len(moduleVersion) > 0 && moduleVersion != develBuildVersionConstant {
			return moduleVersion
		}
	}
	return developmentVersionConstant
}
