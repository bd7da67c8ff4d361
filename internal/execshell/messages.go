package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s%s"
	genericSuccessTemplateConstant          = "Completed %s%s"
	genericFailureTemplateConstant          = "%s%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s%s failed: %s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	commandArgumentsJoinSeparatorConstant   = " "
	standardErrorSuffixTemplateConstant     = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	emptyStringConstant                     = ""
	defaultWorkingDirectoryLabelConstant    = "current directory"
	flagPrefixConstant                      = "-"
)

const (
	gitRevParseSubcommandNameConstant    = "rev-parse"
	gitWorkTreeFlagConstant              = "--is-inside-work-tree"
	gitSymbolicFullNameFlagConstant      = "--symbolic-full-name"
	gitHeadReferenceConstant             = "HEAD"
	gitSymbolicRefSubcommandNameConstant = "symbolic-ref"
	gitRevListSubcommandNameConstant     = "rev-list"
	gitStatusSubcommandNameConstant      = "status"
	gitStashSubcommandNameConstant       = "stash"
	gitFetchSubcommandNameConstant       = "fetch"
	gitPullSubcommandNameConstant        = "pull"
	gitCloneSubcommandNameConstant       = "clone"
	gitRemoteSubcommandNameConstant      = "remote"
	gitRemoteGetURLSubcommandNameConstant = "get-url"
	gitBranchFlagConstant                = "--branch"
	gitHubRunSubcommandNameConstant      = "run"
	gitHubRunListSubcommandNameConstant  = "list"
	gitHubRepositoryFlagConstant         = "--repo"
)

const (
	gitWorkTreeStartTemplateConstant             = "Analyzing repository at %s"
	gitWorkTreeSuccessTemplateConstant           = "%s is a Git repository"
	gitWorkTreeFailureTemplateConstant           = "Could not confirm %s is a Git repository (exit code %d%s)"
	gitBranchStartTemplateConstant               = "Identifying current branch in %s"
	gitBranchSuccessTemplateConstant             = "Current branch in %s is %s"
	gitBranchDetachedSuccessTemplateConstant     = "%s is in a detached HEAD state"
	gitBranchFailureTemplateConstant             = "Failed to identify current branch in %s (exit code %d%s)"
	gitUpstreamStartTemplateConstant             = "Checking upstream branch configuration in %s"
	gitUpstreamSuccessTemplateConstant           = "Upstream branch in %s is %s"
	gitUpstreamMissingTemplateConstant           = "No upstream branch configured in %s"
	gitDivergenceStartTemplateConstant           = "Counting commits relative to upstream in %s"
	gitDivergenceSuccessTemplateConstant         = "Counted commits relative to upstream in %s"
	gitDivergenceFailureTemplateConstant         = "Failed to count commits relative to upstream in %s (exit code %d%s)"
	gitStatusStartTemplateConstant               = "Reviewing working tree status in %s"
	gitStatusSuccessTemplateConstant             = "Collected working tree status for %s"
	gitStatusFailureTemplateConstant             = "Failed to review working tree status in %s (exit code %d%s)"
	gitStashStartTemplateConstant                = "Listing stashes in %s"
	gitStashSuccessTemplateConstant              = "Listed stashes in %s"
	gitStashFailureTemplateConstant              = "Failed to list stashes in %s (exit code %d%s)"
	gitFetchStartTemplateConstant                = "Fetching from %s in %s"
	gitFetchSuccessTemplateConstant              = "Fetched from %s in %s"
	gitFetchFailureTemplateConstant              = "Failed to fetch from %s in %s (exit code %d%s)"
	gitFetchAllRemotesLabelConstant              = "all remotes"
	gitPullStartTemplateConstant                 = "Fast-forwarding %s"
	gitPullSuccessTemplateConstant               = "Fast-forwarded %s"
	gitPullFailureTemplateConstant               = "Failed to fast-forward %s (exit code %d%s)"
	gitCloneStartTemplateConstant                = "Cloning %s into %s"
	gitCloneWithBranchStartTemplateConstant      = "Cloning %s (branch %s) into %s"
	gitCloneSuccessTemplateConstant              = "Cloned %s into %s"
	gitCloneFailureTemplateConstant              = "Failed to clone %s into %s (exit code %d%s)"
	gitRemoteLookupStartTemplateConstant         = "Checking %s remote for %s"
	gitRemoteLookupSuccessTemplateConstant       = "%s remote for %s points to %s"
	gitRemoteLookupFailureTemplateConstant       = "Failed to read %s remote for %s (exit code %d%s)"
	gitHubRunListStartTemplateConstant           = "Looking up latest workflow run for %s"
	gitHubRunListSuccessTemplateConstant         = "Retrieved latest workflow run for %s"
	gitHubRunListFailureTemplateConstant         = "Failed to look up workflow runs for %s (exit code %d%s)"
	executionFailureWithSubjectTemplateConstant  = "%s: %s"
)

// CommandMessageFormatter renders human-readable descriptions of shell command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage describes a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage describes a command that exited cleanly.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageSuccess)
}

// BuildFailureMessage describes a command that exited with a non-zero code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage describes a command that could not run.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	var message string
	switch command.Name {
	case CommandGit:
		message = formatter.describeGitMessage(command, result, stage)
	case CommandGitHub:
		message = formatter.describeGitHubMessage(command, result, stage)
	}
	if len(message) == 0 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
	if stage == messageStageExecutionFailure {
		return fmt.Sprintf(executionFailureWithSubjectTemplateConstant, message, formatter.describeFailure(failure))
	}
	return message
}

func (formatter CommandMessageFormatter) describeGitMessage(command ShellCommand, result ExecutionResult, stage messageStage) string {
	arguments := command.Details.Arguments
	if len(arguments) == 0 {
		return emptyStringConstant
	}
	directory := formatter.describeWorkingDirectory(command)
	standardErrorSuffix := formatter.formatStandardErrorSuffix(result.StandardError)

	switch arguments[0] {
	case gitRevParseSubcommandNameConstant:
		return formatter.describeGitRevParseMessage(arguments, directory, result, stage)
	case gitSymbolicRefSubcommandNameConstant:
		return selectStageMessage(stage,
			fmt.Sprintf(gitBranchStartTemplateConstant, directory),
			fmt.Sprintf(gitBranchSuccessTemplateConstant, directory, strings.TrimSpace(result.StandardOutput)),
			fmt.Sprintf(gitBranchFailureTemplateConstant, directory, result.ExitCode, standardErrorSuffix))
	case gitRevListSubcommandNameConstant:
		return selectStageMessage(stage,
			fmt.Sprintf(gitDivergenceStartTemplateConstant, directory),
			fmt.Sprintf(gitDivergenceSuccessTemplateConstant, directory),
			fmt.Sprintf(gitDivergenceFailureTemplateConstant, directory, result.ExitCode, standardErrorSuffix))
	case gitStatusSubcommandNameConstant:
		return selectStageMessage(stage,
			fmt.Sprintf(gitStatusStartTemplateConstant, directory),
			fmt.Sprintf(gitStatusSuccessTemplateConstant, directory),
			fmt.Sprintf(gitStatusFailureTemplateConstant, directory, result.ExitCode, standardErrorSuffix))
	case gitStashSubcommandNameConstant:
		return selectStageMessage(stage,
			fmt.Sprintf(gitStashStartTemplateConstant, directory),
			fmt.Sprintf(gitStashSuccessTemplateConstant, directory),
			fmt.Sprintf(gitStashFailureTemplateConstant, directory, result.ExitCode, standardErrorSuffix))
	case gitFetchSubcommandNameConstant:
		remote := extractFirstNonFlagArgument(arguments[1:])
		if len(remote) == 0 {
			remote = gitFetchAllRemotesLabelConstant
		}
		return selectStageMessage(stage,
			fmt.Sprintf(gitFetchStartTemplateConstant, remote, directory),
			fmt.Sprintf(gitFetchSuccessTemplateConstant, remote, directory),
			fmt.Sprintf(gitFetchFailureTemplateConstant, remote, directory, result.ExitCode, standardErrorSuffix))
	case gitPullSubcommandNameConstant:
		return selectStageMessage(stage,
			fmt.Sprintf(gitPullStartTemplateConstant, directory),
			fmt.Sprintf(gitPullSuccessTemplateConstant, directory),
			fmt.Sprintf(gitPullFailureTemplateConstant, directory, result.ExitCode, standardErrorSuffix))
	case gitCloneSubcommandNameConstant:
		return formatter.describeGitCloneMessage(arguments[1:], result, stage)
	case gitRemoteSubcommandNameConstant:
		if len(arguments) < 3 || arguments[1] != gitRemoteGetURLSubcommandNameConstant {
			return emptyStringConstant
		}
		remoteName := arguments[2]
		return selectStageMessage(stage,
			fmt.Sprintf(gitRemoteLookupStartTemplateConstant, remoteName, directory),
			fmt.Sprintf(gitRemoteLookupSuccessTemplateConstant, remoteName, directory, strings.TrimSpace(result.StandardOutput)),
			fmt.Sprintf(gitRemoteLookupFailureTemplateConstant, remoteName, directory, result.ExitCode, standardErrorSuffix))
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) describeGitRevParseMessage(arguments []string, directory string, result ExecutionResult, stage messageStage) string {
	standardErrorSuffix := formatter.formatStandardErrorSuffix(result.StandardError)
	switch {
	case containsArgument(arguments, gitWorkTreeFlagConstant):
		return selectStageMessage(stage,
			fmt.Sprintf(gitWorkTreeStartTemplateConstant, directory),
			fmt.Sprintf(gitWorkTreeSuccessTemplateConstant, directory),
			fmt.Sprintf(gitWorkTreeFailureTemplateConstant, directory, result.ExitCode, standardErrorSuffix))
	case containsArgument(arguments, gitSymbolicFullNameFlagConstant):
		return selectStageMessage(stage,
			fmt.Sprintf(gitUpstreamStartTemplateConstant, directory),
			fmt.Sprintf(gitUpstreamSuccessTemplateConstant, directory, strings.TrimSpace(result.StandardOutput)),
			fmt.Sprintf(gitUpstreamMissingTemplateConstant, directory))
	case containsArgument(arguments, gitHeadReferenceConstant):
		branchName := strings.TrimSpace(result.StandardOutput)
		successMessage := fmt.Sprintf(gitBranchSuccessTemplateConstant, directory, branchName)
		if branchName == gitHeadReferenceConstant {
			successMessage = fmt.Sprintf(gitBranchDetachedSuccessTemplateConstant, directory)
		}
		return selectStageMessage(stage,
			fmt.Sprintf(gitBranchStartTemplateConstant, directory),
			successMessage,
			fmt.Sprintf(gitBranchFailureTemplateConstant, directory, result.ExitCode, standardErrorSuffix))
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) describeGitCloneMessage(arguments []string, result ExecutionResult, stage messageStage) string {
	branchName := findFlagValue(arguments, gitBranchFlagConstant)
	positional := make([]string, 0, 2)
	for argumentIndex := 0; argumentIndex < len(arguments); argumentIndex++ {
		argument := arguments[argumentIndex]
		if argument == gitBranchFlagConstant {
			argumentIndex++
			continue
		}
		if strings.HasPrefix(argument, flagPrefixConstant) {
			continue
		}
		positional = append(positional, argument)
	}
	if len(positional) < 2 {
		return emptyStringConstant
	}
	remoteURL, destination := positional[0], positional[1]
	startMessage := fmt.Sprintf(gitCloneStartTemplateConstant, remoteURL, destination)
	if len(branchName) > 0 {
		startMessage = fmt.Sprintf(gitCloneWithBranchStartTemplateConstant, remoteURL, branchName, destination)
	}
	return selectStageMessage(stage,
		startMessage,
		fmt.Sprintf(gitCloneSuccessTemplateConstant, remoteURL, destination),
		fmt.Sprintf(gitCloneFailureTemplateConstant, remoteURL, destination, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError)))
}

func (formatter CommandMessageFormatter) describeGitHubMessage(command ShellCommand, result ExecutionResult, stage messageStage) string {
	arguments := command.Details.Arguments
	if len(arguments) < 2 || arguments[0] != gitHubRunSubcommandNameConstant || arguments[1] != gitHubRunListSubcommandNameConstant {
		return emptyStringConstant
	}
	repository := findFlagValue(arguments, gitHubRepositoryFlagConstant)
	if len(repository) == 0 {
		repository = formatter.describeWorkingDirectory(command)
	}
	return selectStageMessage(stage,
		fmt.Sprintf(gitHubRunListStartTemplateConstant, repository),
		fmt.Sprintf(gitHubRunListSuccessTemplateConstant, repository),
		fmt.Sprintf(gitHubRunListFailureTemplateConstant, repository, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError)))
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	label := describeCommand(command)
	workingDirectorySuffix := formatter.formatWorkingDirectorySuffix(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, label, workingDirectorySuffix)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, label, workingDirectorySuffix)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, label, workingDirectorySuffix, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, label, workingDirectorySuffix, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) formatWorkingDirectorySuffix(command ShellCommand) string {
	if len(strings.TrimSpace(command.Details.WorkingDirectory)) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(workingDirectorySuffixTemplateConstant, command.Details.WorkingDirectory)
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmed := strings.TrimSpace(standardError)
	if len(trimmed) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmed)
}

func (formatter CommandMessageFormatter) describeWorkingDirectory(command ShellCommand) string {
	trimmed := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmed) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return trimmed
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

// selectStageMessage picks the message for the stage; execution failures reuse the start message as subject.
func selectStageMessage(stage messageStage, startMessage string, successMessage string, failureMessage string) string {
	switch stage {
	case messageStageSuccess:
		return successMessage
	case messageStageFailure:
		return failureMessage
	default:
		return startMessage
	}
}

func containsArgument(arguments []string, value string) bool {
	for _, argument := range arguments {
		if argument == value {
			return true
		}
	}
	return false
}

func findFlagValue(arguments []string, flag string) string {
	for argumentIndex := 0; argumentIndex < len(arguments)-1; argumentIndex++ {
		if arguments[argumentIndex] == flag {
			return arguments[argumentIndex+1]
		}
	}
	return emptyStringConstant
}

func extractFirstNonFlagArgument(arguments []string) string {
	for _, argument := range arguments {
		if strings.HasPrefix(argument, flagPrefixConstant) {
			continue
		}
		return argument
	}
	return emptyStringConstant
}
