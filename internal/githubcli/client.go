package githubcli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/repocheck/internal/execshell"
	"github.com/temirov/repocheck/internal/gitrepo"
	"github.com/temirov/repocheck/internal/repos/shared"
	"github.com/temirov/repocheck/internal/status"
)

const (
	runSubcommandConstant                   = "run"
	listSubcommandConstant                  = "list"
	repoFlagConstant                        = "--repo"
	limitFlagConstant                       = "--limit"
	jsonFlagConstant                        = "--json"
	latestRunLimitConstant                  = "1"
	workflowRunJSONFieldsConstant           = "status,conclusion"
	requiredValueMessageConstant            = "value required"
	executorNotConfiguredMessageConstant    = "github cli executor not configured"
	remoteReaderNotConfiguredMessage        = "origin remote reader not configured"
	notGitHubRemoteMessageConstant          = "origin is not hosted on github.com"
	operationErrorWithCauseTemplateConstant = "%s operation failed: %s"
	responseDecodingErrorTemplateConstant   = "%s response decoding failed: %s"
	invalidInputErrorTemplateConstant       = "%s: %s"
	repositoryFieldNameConstant             = "repository"
	ciStatusUnresolvedMessageConstant       = "ci status unresolved"
	logFieldRepositoryPathConstant          = "repository_path"
	latestWorkflowRunOperationNameConstant  = OperationName("LatestWorkflowRun")
	runStatusCompletedConstant              = "completed"
	runConclusionSuccessConstant            = "success"
)

var (
	pendingRunStatuses      = map[string]struct{}{"queued": {}, "in_progress": {}, "waiting": {}, "pending": {}, "requested": {}}
	failingRunConclusions   = map[string]struct{}{"failure": {}, "cancelled": {}, "timed_out": {}, "startup_failure": {}}
	errNotGitHubRemote      = errors.New(notGitHubRemoteMessageConstant)
	errRemoteReaderRequired = errors.New(remoteReaderNotConfiguredMessage)
)

// ErrExecutorNotConfigured indicates the client was constructed without a command executor.
var ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)

// OperationName describes a named GitHub CLI workflow supported by the client.
type OperationName string

// GitHubCommandExecutor executes GitHub CLI commands.
type GitHubCommandExecutor interface {
	ExecuteGitHubCLI(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// OriginURLReader reads a configured remote URL from a local repository.
type OriginURLReader interface {
	RemoteURL(executionContext context.Context, repositoryPath string, remoteName string) (string, error)
}

// WorkflowRun is the subset of `gh run list --json` fields consulted for CI status.
type WorkflowRun struct {
	Status     string `json:"status"`
	Conclusion string `json:"conclusion"`
}

// InvalidInputError describes validation failures for client inputs.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the validation failure.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.FieldName, inputError.Message)
}

// OperationError wraps failures encountered while executing GitHub CLI commands.
type OperationError struct {
	Operation OperationName
	Cause     error
}

// Error describes the operation failure.
func (operationError OperationError) Error() string {
	return fmt.Sprintf(operationErrorWithCauseTemplateConstant, operationError.Operation, operationError.Cause)
}

// Unwrap exposes the underlying cause.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}

// ResponseDecodingError indicates the GitHub CLI response could not be decoded.
type ResponseDecodingError struct {
	Operation OperationName
	Cause     error
}

// Error describes the decoding failure.
func (decodingError ResponseDecodingError) Error() string {
	return fmt.Sprintf(responseDecodingErrorTemplateConstant, decodingError.Operation, decodingError.Cause)
}

// Unwrap exposes the underlying decoding error.
func (decodingError ResponseDecodingError) Unwrap() error {
	return decodingError.Cause
}

// Client resolves CI status through the GitHub CLI.
type Client struct {
	executor     GitHubCommandExecutor
	remoteReader OriginURLReader
	logger       *zap.Logger
}

// NewClient constructs a GitHub CLI client. remoteReader is required only by ResolveCIStatus.
func NewClient(executor GitHubCommandExecutor, remoteReader OriginURLReader, logger *zap.Logger) (*Client, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{executor: executor, remoteReader: remoteReader, logger: logger}, nil
}

// LatestWorkflowRun returns the most recent workflow run of repository (owner/name).
// The boolean result is false when the repository has no runs.
func (client *Client) LatestWorkflowRun(executionContext context.Context, repository string) (WorkflowRun, bool, error) {
	trimmedRepository := strings.TrimSpace(repository)
	if len(trimmedRepository) == 0 {
		return WorkflowRun{}, false, InvalidInputError{FieldName: repositoryFieldNameConstant, Message: requiredValueMessageConstant}
	}

	executionResult, executionError := client.executor.ExecuteGitHubCLI(executionContext, execshell.CommandDetails{
		Arguments: []string{
			runSubcommandConstant,
			listSubcommandConstant,
			repoFlagConstant,
			trimmedRepository,
			limitFlagConstant,
			latestRunLimitConstant,
			jsonFlagConstant,
			workflowRunJSONFieldsConstant,
		},
	})
	if executionError != nil {
		return WorkflowRun{}, false, OperationError{Operation: latestWorkflowRunOperationNameConstant, Cause: executionError}
	}

	var runs []WorkflowRun
	if decodingError := json.Unmarshal([]byte(executionResult.StandardOutput), &runs); decodingError != nil {
		return WorkflowRun{}, false, ResponseDecodingError{Operation: latestWorkflowRunOperationNameConstant, Cause: decodingError}
	}
	if len(runs) == 0 {
		return WorkflowRun{}, false, nil
	}
	return runs[0], true, nil
}

// ResolveCIStatus maps the latest workflow run of the repository's GitHub origin onto a CIStatus.
// Repositories without a GitHub origin, and any lookup failure, resolve to unknown.
func (client *Client) ResolveCIStatus(executionContext context.Context, repositoryPath string) status.CIStatus {
	slug, slugError := client.resolveSlug(executionContext, repositoryPath)
	if slugError != nil {
		client.logger.Debug(ciStatusUnresolvedMessageConstant, zap.String(logFieldRepositoryPathConstant, repositoryPath), zap.Error(slugError))
		return status.CIStatusUnknown
	}

	run, found, runError := client.LatestWorkflowRun(executionContext, slug)
	if runError != nil {
		client.logger.Debug(ciStatusUnresolvedMessageConstant, zap.String(logFieldRepositoryPathConstant, repositoryPath), zap.Error(runError))
		return status.CIStatusUnknown
	}
	if !found {
		return status.CIStatusNone
	}
	return MapWorkflowRun(run)
}

func (client *Client) resolveSlug(executionContext context.Context, repositoryPath string) (string, error) {
	if client.remoteReader == nil {
		return "", errRemoteReaderRequired
	}
	originURL, remoteError := client.remoteReader.RemoteURL(executionContext, repositoryPath, shared.OriginRemoteNameConstant)
	if remoteError != nil {
		return "", remoteError
	}
	remote, parseError := gitrepo.ParseRemoteURL(originURL)
	if parseError != nil {
		return "", parseError
	}
	if !remote.IsGitHub() {
		return "", errNotGitHubRemote
	}
	return remote.Slug(), nil
}

// MapWorkflowRun converts a workflow run into a CIStatus.
func MapWorkflowRun(run WorkflowRun) status.CIStatus {
	runStatus := strings.ToLower(strings.TrimSpace(run.Status))
	if _, pending := pendingRunStatuses[runStatus]; pending {
		return status.CIStatusPending
	}
	if runStatus != runStatusCompletedConstant && len(runStatus) > 0 {
		return status.CIStatusUnknown
	}

	conclusion := strings.ToLower(strings.TrimSpace(run.Conclusion))
	if conclusion == runConclusionSuccessConstant {
		return status.CIStatusPassing
	}
	if _, failing := failingRunConclusions[conclusion]; failing {
		return status.CIStatusFailing
	}
	return status.CIStatusUnknown
}
