package githubcli_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/repocheck/internal/execshell"
	"github.com/temirov/repocheck/internal/githubcli"
	"github.com/temirov/repocheck/internal/status"
)

const (
	testRepositoryPathConstant   = "/home/user/dev/repocheck"
	testGitHubOriginConstant     = "git@github.com:temirov/repocheck.git"
	testRepositorySlugConstant   = "temirov/repocheck"
	testGitLabOriginConstant     = "https://gitlab.com/temirov/repocheck.git"
	testCompletedSuccessConstant = `[{"status":"completed","conclusion":"success"}]`
)

var errGitHubCLIMissing = errors.New("gh: command not found")

type stubGitHubExecutor struct {
	output          string
	failure         error
	recordedDetails []execshell.CommandDetails
}

func (executor *stubGitHubExecutor) ExecuteGitHubCLI(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recordedDetails = append(executor.recordedDetails, details)
	if executor.failure != nil {
		return execshell.ExecutionResult{}, executor.failure
	}
	return execshell.ExecutionResult{StandardOutput: executor.output}, nil
}

type stubOriginReader struct {
	originURL string
	failure   error
}

func (reader stubOriginReader) RemoteURL(context.Context, string, string) (string, error) {
	return reader.originURL, reader.failure
}

func TestNewClientValidation(testInstance *testing.T) {
	client, creationError := githubcli.NewClient(nil, nil, nil)
	require.ErrorIs(testInstance, creationError, githubcli.ErrExecutorNotConfigured)
	require.Nil(testInstance, client)
}

func TestResolveCIStatus(testInstance *testing.T) {
	testCases := []struct {
		name           string
		executor       *stubGitHubExecutor
		reader         githubcli.OriginURLReader
		expectedStatus status.CIStatus
		expectCommand  bool
	}{
		{name: "passing", executor: &stubGitHubExecutor{output: testCompletedSuccessConstant}, reader: stubOriginReader{originURL: testGitHubOriginConstant}, expectedStatus: status.CIStatusPassing, expectCommand: true},
		{name: "failing", executor: &stubGitHubExecutor{output: `[{"status":"completed","conclusion":"failure"}]`}, reader: stubOriginReader{originURL: testGitHubOriginConstant}, expectedStatus: status.CIStatusFailing, expectCommand: true},
		{name: "pending", executor: &stubGitHubExecutor{output: `[{"status":"in_progress","conclusion":""}]`}, reader: stubOriginReader{originURL: testGitHubOriginConstant}, expectedStatus: status.CIStatusPending, expectCommand: true},
		{name: "no_runs", executor: &stubGitHubExecutor{output: `[]`}, reader: stubOriginReader{originURL: testGitHubOriginConstant}, expectedStatus: status.CIStatusNone, expectCommand: true},
		{name: "gh_unavailable", executor: &stubGitHubExecutor{failure: errGitHubCLIMissing}, reader: stubOriginReader{originURL: testGitHubOriginConstant}, expectedStatus: status.CIStatusUnknown, expectCommand: true},
		{name: "malformed_output", executor: &stubGitHubExecutor{output: `not json`}, reader: stubOriginReader{originURL: testGitHubOriginConstant}, expectedStatus: status.CIStatusUnknown, expectCommand: true},
		{name: "non_github_origin", executor: &stubGitHubExecutor{output: testCompletedSuccessConstant}, reader: stubOriginReader{originURL: testGitLabOriginConstant}, expectedStatus: status.CIStatusUnknown},
		{name: "missing_origin", executor: &stubGitHubExecutor{output: testCompletedSuccessConstant}, reader: stubOriginReader{failure: errors.New("no such remote")}, expectedStatus: status.CIStatusUnknown},
		{name: "no_reader", executor: &stubGitHubExecutor{output: testCompletedSuccessConstant}, expectedStatus: status.CIStatusUnknown},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			client, creationError := githubcli.NewClient(testCase.executor, testCase.reader, zap.NewNop())
			require.NoError(testInstance, creationError)

			require.Equal(testInstance, testCase.expectedStatus, client.ResolveCIStatus(context.Background(), testRepositoryPathConstant))
			if !testCase.expectCommand {
				require.Empty(testInstance, testCase.executor.recordedDetails)
				return
			}
			require.Len(testInstance, testCase.executor.recordedDetails, 1)
			require.Equal(testInstance,
				[]string{"run", "list", "--repo", testRepositorySlugConstant, "--limit", "1", "--json", "status,conclusion"},
				testCase.executor.recordedDetails[0].Arguments)
		})
	}
}

func TestLatestWorkflowRunErrors(testInstance *testing.T) {
	client, creationError := githubcli.NewClient(&stubGitHubExecutor{failure: errGitHubCLIMissing}, nil, nil)
	require.NoError(testInstance, creationError)

	_, _, inputError := client.LatestWorkflowRun(context.Background(), " ")
	require.ErrorAs(testInstance, inputError, &githubcli.InvalidInputError{})

	_, _, operationError := client.LatestWorkflowRun(context.Background(), testRepositorySlugConstant)
	require.ErrorAs(testInstance, operationError, &githubcli.OperationError{})
	require.ErrorIs(testInstance, operationError, errGitHubCLIMissing)
}

func TestMapWorkflowRun(testInstance *testing.T) {
	testCases := []struct {
		run      githubcli.WorkflowRun
		expected status.CIStatus
	}{
		{run: githubcli.WorkflowRun{Status: "queued"}, expected: status.CIStatusPending},
		{run: githubcli.WorkflowRun{Status: "waiting"}, expected: status.CIStatusPending},
		{run: githubcli.WorkflowRun{Status: "completed", Conclusion: "success"}, expected: status.CIStatusPassing},
		{run: githubcli.WorkflowRun{Status: "completed", Conclusion: "cancelled"}, expected: status.CIStatusFailing},
		{run: githubcli.WorkflowRun{Status: "completed", Conclusion: "timed_out"}, expected: status.CIStatusFailing},
		{run: githubcli.WorkflowRun{Status: "completed", Conclusion: "skipped"}, expected: status.CIStatusUnknown},
		{run: githubcli.WorkflowRun{Status: "mystery"}, expected: status.CIStatusUnknown},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.run.Status+"_"+testCase.run.Conclusion, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expected, githubcli.MapWorkflowRun(testCase.run))
		})
	}
}
