package execshell

// CommandEventObserver is told about every git and gh invocation the executor makes.
// Observers run on the calling goroutine and must be safe for concurrent use,
// because scans and syncs probe repositories in parallel.
type CommandEventObserver interface {
	CommandStarted(command ShellCommand)
	CommandCompleted(command ShellCommand, result ExecutionResult)
	// CommandExecutionFailed is reported when no ExecutionResult exists, such as a missing binary or a cancelled context.
	CommandExecutionFailed(command ShellCommand, failure error)
}

type silentCommandEventObserver struct{}

func (silentCommandEventObserver) CommandStarted(ShellCommand) {}

func (silentCommandEventObserver) CommandCompleted(ShellCommand, ExecutionResult) {}

func (silentCommandEventObserver) CommandExecutionFailed(ShellCommand, error) {}
