// Package execshell runs git and the GitHub CLI on behalf of repocheck.
//
// ShellExecutor logs every invocation, forwards lifecycle events to an
// optional CommandEventObserver, and turns non-zero exit codes into
// CommandFailedError values. OSCommandRunner is the os/exec backed runner.
package execshell
