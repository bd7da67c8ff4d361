package execshell_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/repocheck/internal/execshell"
)

const (
	testExecutionSuccessCaseNameConstant     = "success"
	testExecutionFailureCaseNameConstant     = "failure_exit_code"
	testExecutionRunnerErrorCaseNameConstant = "runner_error"
	testStatusArgumentConstant               = "status"
	testPorcelainArgumentConstant            = "--porcelain"
	testWorkingDirectoryConstant             = "/workspace/repo"
	testStandardErrorOutputConstant          = "fatal: not a git repository"
)

type recordingCommandRunner struct {
	executionResult  execshell.ExecutionResult
	executionError   error
	recordedCommands []execshell.ShellCommand
}

func (runner *recordingCommandRunner) Run(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	runner.recordedCommands = append(runner.recordedCommands, command)
	return runner.executionResult, runner.executionError
}

type recordingEventObserver struct {
	events []string
}

func (eventObserver *recordingEventObserver) CommandStarted(execshell.ShellCommand) {
	eventObserver.events = append(eventObserver.events, "started")
}

func (eventObserver *recordingEventObserver) CommandCompleted(execshell.ShellCommand, execshell.ExecutionResult) {
	eventObserver.events = append(eventObserver.events, "completed")
}

func (eventObserver *recordingEventObserver) CommandExecutionFailed(execshell.ShellCommand, error) {
	eventObserver.events = append(eventObserver.events, "execution_failed")
}

func TestShellExecutorInitializationValidation(testInstance *testing.T) {
	testCases := []struct {
		name        string
		logger      *zap.Logger
		runner      execshell.CommandRunner
		expectError error
	}{
		{name: "logger_validation", logger: nil, runner: &recordingCommandRunner{}, expectError: execshell.ErrLoggerNotConfigured},
		{name: "runner_validation", logger: zap.NewNop(), runner: nil, expectError: execshell.ErrCommandRunnerNotConfigured},
		{name: "successful_initialization", logger: zap.NewNop(), runner: &recordingCommandRunner{}},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor, creationError := execshell.NewShellExecutor(testCase.logger, testCase.runner)
			if testCase.expectError != nil {
				require.ErrorIs(testInstance, creationError, testCase.expectError)
				return
			}
			require.NoError(testInstance, creationError)
			require.NotNil(testInstance, executor)
		})
	}
}

func TestShellExecutorExecuteBehavior(testInstance *testing.T) {
	testCases := []struct {
		name            string
		runnerResult    execshell.ExecutionResult
		runnerError     error
		expectErrorType any
		expectedEvents  []string
	}{
		{
			name:           testExecutionSuccessCaseNameConstant,
			runnerResult:   execshell.ExecutionResult{StandardOutput: " M main.go\n"},
			expectedEvents: []string{"started", "completed"},
		},
		{
			name:            testExecutionFailureCaseNameConstant,
			runnerResult:    execshell.ExecutionResult{StandardError: testStandardErrorOutputConstant, ExitCode: 128},
			expectErrorType: execshell.CommandFailedError{},
			expectedEvents:  []string{"started", "completed"},
		},
		{
			name:            testExecutionRunnerErrorCaseNameConstant,
			runnerError:     errors.New("runner failure"),
			expectErrorType: execshell.CommandExecutionError{},
			expectedEvents:  []string{"started", "execution_failed"},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			observerCore, observerLogs := observer.New(zap.DebugLevel)
			eventObserver := &recordingEventObserver{}
			recordingRunner := &recordingCommandRunner{executionResult: testCase.runnerResult, executionError: testCase.runnerError}

			shellExecutor, creationError := execshell.NewShellExecutorWithObserver(zap.New(observerCore), recordingRunner, eventObserver)
			require.NoError(testInstance, creationError)

			commandDetails := execshell.CommandDetails{
				Arguments:        []string{testStatusArgumentConstant, testPorcelainArgumentConstant},
				WorkingDirectory: testWorkingDirectoryConstant,
			}
			executionResult, executionError := shellExecutor.ExecuteGit(context.Background(), commandDetails)

			if testCase.expectErrorType != nil {
				require.Error(testInstance, executionError)
				require.IsType(testInstance, testCase.expectErrorType, executionError)
				require.Empty(testInstance, executionResult.StandardOutput)
			} else {
				require.NoError(testInstance, executionError)
				require.Equal(testInstance, testCase.runnerResult.StandardOutput, executionResult.StandardOutput)
			}

			require.Len(testInstance, observerLogs.All(), 2)
			require.Equal(testInstance, "Reviewing working tree status in /workspace/repo", observerLogs.All()[0].Message)
			require.Equal(testInstance, testCase.expectedEvents, eventObserver.events)
		})
	}
}

func TestCommandFailedErrorIncludesStandardError(testInstance *testing.T) {
	failedError := execshell.CommandFailedError{
		Command: execshell.ShellCommand{Name: execshell.CommandGit, Details: execshell.CommandDetails{Arguments: []string{"rev-parse", "--is-inside-work-tree"}}},
		Result:  execshell.ExecutionResult{ExitCode: 128, StandardError: testStandardErrorOutputConstant + "\n"},
	}

	require.Equal(testInstance, "git rev-parse --is-inside-work-tree exited with code 128: fatal: not a git repository", failedError.Error())
}

func TestCommandExecutionErrorUnwrapsCause(testInstance *testing.T) {
	cause := context.Canceled
	executionError := execshell.CommandExecutionError{Command: execshell.ShellCommand{Name: execshell.CommandGitHub}, Cause: cause}

	require.ErrorIs(testInstance, executionError, context.Canceled)
}

func TestShellExecutorWrappersSetCommandNames(testInstance *testing.T) {
	testCases := []struct {
		name            string
		invoke          func(executor *execshell.ShellExecutor) error
		expectedCommand execshell.CommandName
	}{
		{
			name: "git_wrapper",
			invoke: func(executor *execshell.ShellExecutor) error {
				_, executionError := executor.ExecuteGit(context.Background(), execshell.CommandDetails{})
				return executionError
			},
			expectedCommand: execshell.CommandGit,
		},
		{
			name: "github_wrapper",
			invoke: func(executor *execshell.ShellExecutor) error {
				_, executionError := executor.ExecuteGitHubCLI(context.Background(), execshell.CommandDetails{})
				return executionError
			},
			expectedCommand: execshell.CommandGitHub,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			recordingRunner := &recordingCommandRunner{executionResult: execshell.ExecutionResult{ExitCode: 1}}
			executor, creationError := execshell.NewShellExecutor(zap.NewNop(), recordingRunner)
			require.NoError(testInstance, creationError)

			require.Error(testInstance, testCase.invoke(executor))
			require.Len(testInstance, recordingRunner.recordedCommands, 1)
			require.Equal(testInstance, testCase.expectedCommand, recordingRunner.recordedCommands[0].Name)
		})
	}
}
