package repos

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/repocheck/internal/execshell"
	"github.com/temirov/repocheck/internal/report"
	"github.com/temirov/repocheck/internal/ui"
	flagutils "github.com/temirov/repocheck/internal/utils/flags"
	pathutils "github.com/temirov/repocheck/internal/utils/path"
)

const (
	outputFlagNameConstant        = "output"
	outputFlagShorthandConstant   = "o"
	outputFlagDescriptionConstant = "Output format"
	quietFlagNameConstant         = "quiet"
	quietFlagShorthandConstant    = "q"
	workersFlagNameConstant       = "workers"
	workersFlagUsageConstant      = "Maximum number of repositories processed concurrently"
	timeoutFlagNameConstant       = "timeout"
	timeoutFlagUsageConstant      = "Abort the run after this duration (0 disables the limit)"
)

var repositoryHomeDirectoryExpander = pathutils.NewHomeExpander()

// LoggerProvider yields a zap logger for command execution.
type LoggerProvider func() *zap.Logger

func determineRepositoryRoots(arguments []string, configuredRoots []string) []string {
	roots := trimRoots(arguments)
	if len(roots) > 0 {
		return roots
	}

	configured := trimRoots(configuredRoots)
	if len(configured) > 0 {
		return configured
	}

	return nil
}

func trimRoots(raw []string) []string {
	trimmed := make([]string, 0, len(raw))
	for _, argument := range raw {
		candidate := strings.TrimSpace(argument)
		if len(candidate) == 0 {
			continue
		}
		trimmed = append(trimmed, repositoryHomeDirectoryExpander.Expand(candidate))
	}
	return trimmed
}

func resolveLogger(provider LoggerProvider) *zap.Logger {
	if provider == nil {
		return zap.NewNop()
	}
	logger := provider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// resolveCommandEventsObserver prefers an injected observer and otherwise reports git activity in
// human-readable form when console logging is enabled.
func resolveCommandEventsObserver(existing execshell.CommandEventObserver, humanReadableProvider func() bool, logger *zap.Logger) execshell.CommandEventObserver {
	if existing != nil {
		return existing
	}
	if humanReadableProvider != nil && humanReadableProvider() {
		return ui.NewConsoleCommandEventLogger(logger)
	}
	return nil
}

func resolveWorkingDirectory(configured string) string {
	if len(strings.TrimSpace(configured)) > 0 {
		return configured
	}
	workingDirectory, workingDirectoryError := os.Getwd()
	if workingDirectoryError != nil {
		return ""
	}
	return workingDirectory
}

func resolveHomeDirectory() string {
	homeDirectory, homeDirectoryError := os.UserHomeDir()
	if homeDirectoryError != nil {
		return ""
	}
	return homeDirectory
}

// commandExecutionContext derives the run context from the command, bounded by timeout when positive.
func commandExecutionContext(command *cobra.Command, timeout time.Duration) (context.Context, context.CancelFunc) {
	parentContext := context.Background()
	if command != nil && command.Context() != nil {
		parentContext = command.Context()
	}
	if timeout > 0 {
		return context.WithTimeout(parentContext, timeout)
	}
	return context.WithCancel(parentContext)
}

func bindOutputFlags(command *cobra.Command, quietUsage string) {
	command.Flags().StringP(outputFlagNameConstant, outputFlagShorthandConstant, string(report.FormatTable), flagutils.FormatChoiceUsage(string(report.FormatTable), report.FormatChoices(), outputFlagDescriptionConstant))
	if len(quietUsage) > 0 {
		command.Flags().BoolP(quietFlagNameConstant, quietFlagShorthandConstant, false, quietUsage)
	}
}

func readOutputFormat(command *cobra.Command) (report.Format, error) {
	formatValue, _ := command.Flags().GetString(outputFlagNameConstant)
	return report.ParseFormat(formatValue)
}

func bindConcurrencyFlags(command *cobra.Command) {
	command.Flags().Int(workersFlagNameConstant, 0, workersFlagUsageConstant)
	command.Flags().Duration(timeoutFlagNameConstant, 0, timeoutFlagUsageConstant)
}

func overrideConcurrency(command *cobra.Command, workers *int, timeout *time.Duration) {
	if command.Flags().Changed(workersFlagNameConstant) {
		if flagWorkers, flagError := command.Flags().GetInt(workersFlagNameConstant); flagError == nil && flagWorkers > 0 {
			*workers = flagWorkers
		}
	}
	if command.Flags().Changed(timeoutFlagNameConstant) {
		if flagTimeout, flagError := command.Flags().GetDuration(timeoutFlagNameConstant); flagError == nil && flagTimeout >= 0 {
			*timeout = flagTimeout
		}
	}
}

func overrideBool(command *cobra.Command, flagName string, target *bool) {
	if !command.Flags().Changed(flagName) {
		return
	}
	if flagValue, flagError := command.Flags().GetBool(flagName); flagError == nil {
		*target = flagValue
	}
}

func displayCommandHelp(command *cobra.Command) error {
	if command == nil {
		return nil
	}
	return command.Help()
}
