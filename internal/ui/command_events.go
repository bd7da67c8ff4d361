package ui

import (
	"go.uber.org/zap"

	"github.com/temirov/repocheck/internal/execshell"
)

const (
	gitPullSubcommandConstant  = "pull"
	gitCloneSubcommandConstant = "clone"
	gitFetchSubcommandConstant = "fetch"
)

// ConsoleCommandEventLogger renders command lifecycle events for people watching a terminal.
// Commands that change a repository are reported at info level; read-only queries are reported at debug
// level so that a scan of many repositories stays quiet unless debugging is requested.
type ConsoleCommandEventLogger struct {
	logger    *zap.Logger
	formatter execshell.CommandMessageFormatter
}

// NewConsoleCommandEventLogger constructs a console event logger backed by the provided zap logger.
func NewConsoleCommandEventLogger(logger *zap.Logger) *ConsoleCommandEventLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleCommandEventLogger{logger: logger}
}

// CommandStarted implements execshell.CommandEventObserver.
func (eventLogger *ConsoleCommandEventLogger) CommandStarted(command execshell.ShellCommand) {
	if eventLogger == nil {
		return
	}
	eventLogger.progressLogFunction(command)(eventLogger.formatter.BuildStartedMessage(command))
}

// CommandCompleted implements execshell.CommandEventObserver.
func (eventLogger *ConsoleCommandEventLogger) CommandCompleted(command execshell.ShellCommand, result execshell.ExecutionResult) {
	if eventLogger == nil {
		return
	}
	if result.ExitCode == 0 {
		eventLogger.progressLogFunction(command)(eventLogger.formatter.BuildSuccessMessage(command, result))
		return
	}
	if isMutatingCommand(command) {
		eventLogger.logger.Warn(eventLogger.formatter.BuildFailureMessage(command, result))
		return
	}
	eventLogger.logger.Debug(eventLogger.formatter.BuildFailureMessage(command, result))
}

// CommandExecutionFailed implements execshell.CommandEventObserver.
func (eventLogger *ConsoleCommandEventLogger) CommandExecutionFailed(command execshell.ShellCommand, failure error) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Error(eventLogger.formatter.BuildExecutionFailureMessage(command, failure))
}

func (eventLogger *ConsoleCommandEventLogger) progressLogFunction(command execshell.ShellCommand) func(string, ...zap.Field) {
	if isMutatingCommand(command) {
		return eventLogger.logger.Info
	}
	return eventLogger.logger.Debug
}

func isMutatingCommand(command execshell.ShellCommand) bool {
	if command.Name != execshell.CommandGit || len(command.Details.Arguments) == 0 {
		return false
	}
	switch command.Details.Arguments[0] {
	case gitPullSubcommandConstant, gitCloneSubcommandConstant, gitFetchSubcommandConstant:
		return true
	default:
		return false
	}
}
