package gitrepo_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/repocheck/internal/execshell"
	"github.com/temirov/repocheck/internal/gitrepo"
	"github.com/temirov/repocheck/internal/repos/filesystem"
	"github.com/temirov/repocheck/internal/status"
)

const proberRepositoryPath = "/home/user/dev/service"

var errGitUnavailable = errors.New("executable file not found in $PATH")

type scriptedResponse struct {
	output   string
	exitCode int
	failure  error
}

type scriptedGitExecutor struct {
	mutex     sync.Mutex
	responses map[string]scriptedResponse
	recorded  []execshell.CommandDetails
}

func (executor *scriptedGitExecutor) ExecuteGit(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.mutex.Lock()
	defer executor.mutex.Unlock()
	executor.recorded = append(executor.recorded, details)

	response, exists := executor.responses[strings.Join(details.Arguments, " ")]
	if !exists {
		response = scriptedResponse{}
	}
	command := execshell.ShellCommand{Name: execshell.CommandGit, Details: details}
	if response.failure != nil {
		return execshell.ExecutionResult{}, execshell.CommandExecutionError{Command: command, Cause: response.failure}
	}
	result := execshell.ExecutionResult{StandardOutput: response.output, ExitCode: response.exitCode}
	if response.exitCode != 0 {
		return execshell.ExecutionResult{}, execshell.CommandFailedError{Command: command, Result: result}
	}
	return result, nil
}

func (executor *scriptedGitExecutor) ExecuteGitHubCLI(context.Context, execshell.CommandDetails) (execshell.ExecutionResult, error) {
	return execshell.ExecutionResult{}, nil
}

func (executor *scriptedGitExecutor) commandLines() []string {
	executor.mutex.Lock()
	defer executor.mutex.Unlock()
	lines := make([]string, 0, len(executor.recorded))
	for _, details := range executor.recorded {
		lines = append(lines, strings.Join(details.Arguments, " "))
	}
	return lines
}

func healthyResponses() map[string]scriptedResponse {
	return map[string]scriptedResponse{
		"rev-parse --is-inside-work-tree":                  {output: "true\n"},
		"rev-parse --abbrev-ref HEAD":                      {output: "main\n"},
		"rev-parse --abbrev-ref --symbolic-full-name @{u}": {output: "origin/main\n"},
		"rev-list --left-right --count @{u}...HEAD":        {output: "3\t1\n"},
		"status --porcelain":                               {output: " M README.md\nA  cmd/new.go\n?? notes.txt\n"},
		"stash list":                                       {output: "stash@{0}: WIP on main\n"},
		"pull --ff-only":                                   {output: "Updating 1a2b3c..4d5e6f\nFast-forward\n 4 files changed, 10 insertions(+)\n"},
		"remote get-url origin":                            {output: "git@github.com:temirov/repocheck.git\n"},
	}
}

func newProber(testInstance *testing.T, executor *scriptedGitExecutor) *gitrepo.Prober {
	testInstance.Helper()
	prober, creationError := gitrepo.NewProber(executor, filesystem.OSFileSystem{})
	require.NoError(testInstance, creationError)
	return prober
}

func TestNewProberRequiresExecutor(testInstance *testing.T) {
	prober, creationError := gitrepo.NewProber(nil, nil)
	require.Nil(testInstance, prober)
	require.ErrorIs(testInstance, creationError, gitrepo.ErrGitExecutorNotConfigured)
}

func TestProbeCollectsSnapshot(testInstance *testing.T) {
	executor := &scriptedGitExecutor{responses: healthyResponses()}

	snapshot, probeError := newProber(testInstance, executor).Probe(context.Background(), proberRepositoryPath)

	require.NoError(testInstance, probeError)
	require.Equal(testInstance, status.RepoSnapshot{
		Branch:         "main",
		HasUpstream:    true,
		AheadCount:     1,
		BehindCount:    3,
		ModifiedCount:  2,
		UntrackedCount: 1,
		HasStash:       true,
	}, snapshot)
	for _, details := range executor.recorded {
		require.Equal(testInstance, proberRepositoryPath, details.WorkingDirectory)
		require.Equal(testInstance, "0", details.EnvironmentVariables["GIT_TERMINAL_PROMPT"])
		require.NotContains(testInstance, details.Arguments, "fetch")
	}
}

func TestProbeVariants(testInstance *testing.T) {
	testCases := []struct {
		name              string
		overrides         map[string]scriptedResponse
		assertSnapshot    func(testInstance *testing.T, snapshot status.RepoSnapshot)
		forbiddenCommands []string
	}{
		{
			name:      "detached_head",
			overrides: map[string]scriptedResponse{"rev-parse --abbrev-ref HEAD": {output: "HEAD\n"}},
			assertSnapshot: func(testInstance *testing.T, snapshot status.RepoSnapshot) {
				require.True(testInstance, snapshot.Detached)
				require.Empty(testInstance, snapshot.Branch)
			},
		},
		{
			name: "unborn_branch",
			overrides: map[string]scriptedResponse{
				"rev-parse --abbrev-ref HEAD":   {exitCode: 128},
				"symbolic-ref --short -q HEAD": {output: "trunk\n"},
			},
			assertSnapshot: func(testInstance *testing.T, snapshot status.RepoSnapshot) {
				require.Equal(testInstance, "trunk", snapshot.Branch)
				require.False(testInstance, snapshot.Detached)
				require.Empty(testInstance, snapshot.FactErrors)
			},
		},
		{
			name:      "no_upstream",
			overrides: map[string]scriptedResponse{"rev-parse --abbrev-ref --symbolic-full-name @{u}": {exitCode: 128}},
			assertSnapshot: func(testInstance *testing.T, snapshot status.RepoSnapshot) {
				require.False(testInstance, snapshot.HasUpstream)
				require.Zero(testInstance, snapshot.AheadCount)
				require.Zero(testInstance, snapshot.BehindCount)
				require.Empty(testInstance, snapshot.FactErrors)
			},
			forbiddenCommands: []string{"rev-list --left-right --count @{u}...HEAD"},
		},
		{
			name:      "clean_tree_without_stash",
			overrides: map[string]scriptedResponse{"status --porcelain": {output: ""}, "stash list": {output: ""}},
			assertSnapshot: func(testInstance *testing.T, snapshot status.RepoSnapshot) {
				require.Zero(testInstance, snapshot.ModifiedCount)
				require.Zero(testInstance, snapshot.UntrackedCount)
				require.False(testInstance, snapshot.HasStash)
			},
		},
		{
			name:      "failed_fact_recorded",
			overrides: map[string]scriptedResponse{"stash list": {exitCode: 1}, "rev-list --left-right --count @{u}...HEAD": {output: "garbage"}},
			assertSnapshot: func(testInstance *testing.T, snapshot status.RepoSnapshot) {
				require.Nil(testInstance, snapshot.ProbeError)
				require.False(testInstance, snapshot.HasStash)
				require.Zero(testInstance, snapshot.BehindCount)
				require.Len(testInstance, snapshot.FactErrors, 2)
				require.True(testInstance, strings.HasPrefix(snapshot.FactErrors[0], "divergence: "))
				require.True(testInstance, strings.HasPrefix(snapshot.FactErrors[1], "stash: "))
			},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			responses := healthyResponses()
			for arguments, response := range testCase.overrides {
				responses[arguments] = response
			}
			executor := &scriptedGitExecutor{responses: responses}

			snapshot, probeError := newProber(testInstance, executor).Probe(context.Background(), proberRepositoryPath)

			require.NoError(testInstance, probeError)
			testCase.assertSnapshot(testInstance, snapshot)
			for _, forbidden := range testCase.forbiddenCommands {
				require.NotContains(testInstance, executor.commandLines(), forbidden)
			}
		})
	}
}

func TestProbeRecordsProbeError(testInstance *testing.T) {
	testCases := []struct {
		name     string
		response scriptedResponse
		cause    error
	}{
		{name: "not_a_repository", response: scriptedResponse{exitCode: 128}},
		{name: "git_unavailable", response: scriptedResponse{failure: errGitUnavailable}, cause: errGitUnavailable},
		{name: "bare_repository", response: scriptedResponse{output: "false\n"}, cause: gitrepo.ErrNotWorkTree},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &scriptedGitExecutor{responses: map[string]scriptedResponse{"rev-parse --is-inside-work-tree": testCase.response}}

			snapshot, probeError := newProber(testInstance, executor).Probe(context.Background(), proberRepositoryPath)

			require.NoError(testInstance, probeError)
			var typedError gitrepo.ProbeError
			require.ErrorAs(testInstance, snapshot.ProbeError, &typedError)
			require.Equal(testInstance, proberRepositoryPath, typedError.RepositoryPath)
			if testCase.cause != nil {
				require.ErrorIs(testInstance, snapshot.ProbeError, testCase.cause)
			}
			require.Len(testInstance, executor.recorded, 1)
		})
	}
}

func TestProbeReturnsContextError(testInstance *testing.T) {
	executionContext, cancel := context.WithCancel(context.Background())
	cancel()

	_, probeError := newProber(testInstance, &scriptedGitExecutor{responses: healthyResponses()}).Probe(executionContext, proberRepositoryPath)
	require.ErrorIs(testInstance, probeError, context.Canceled)
}

func TestPullParsesFilesChanged(testInstance *testing.T) {
	executor := &scriptedGitExecutor{responses: healthyResponses()}

	pullReport, pullError := newProber(testInstance, executor).Pull(context.Background(), proberRepositoryPath)

	require.NoError(testInstance, pullError)
	require.Equal(testInstance, 4, pullReport.FilesChanged)
	require.Equal(testInstance, []string{"pull --ff-only"}, executor.commandLines())
}

func TestPullReturnsCommandFailure(testInstance *testing.T) {
	executor := &scriptedGitExecutor{responses: map[string]scriptedResponse{"pull --ff-only": {exitCode: 128}}}

	_, pullError := newProber(testInstance, executor).Pull(context.Background(), proberRepositoryPath)

	var failedError execshell.CommandFailedError
	require.ErrorAs(testInstance, pullError, &failedError)
	require.Equal(testInstance, 128, failedError.Result.ExitCode)
}

func TestCloneBuildsArguments(testInstance *testing.T) {
	destinationRoot := testInstance.TempDir()
	testCases := []struct {
		name              string
		branch            string
		expectedArguments []string
	}{
		{name: "default_branch", expectedArguments: []string{"clone", "https://github.com/temirov/repocheck.git", destinationRoot + "/nested/repocheck"}},
		{name: "explicit_branch", branch: "develop", expectedArguments: []string{"clone", "--branch", "develop", "https://github.com/temirov/repocheck.git", destinationRoot + "/nested/repocheck"}},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &scriptedGitExecutor{responses: map[string]scriptedResponse{}}

			cloneError := newProber(testInstance, executor).Clone(context.Background(), "https://github.com/temirov/repocheck.git", testCase.branch, destinationRoot+"/nested/repocheck")

			require.NoError(testInstance, cloneError)
			require.Len(testInstance, executor.recorded, 1)
			require.Equal(testInstance, testCase.expectedArguments, executor.recorded[0].Arguments)
			require.Empty(testInstance, executor.recorded[0].WorkingDirectory)
			require.DirExists(testInstance, destinationRoot+"/nested")
		})
	}
}

func TestFetchAndRemoteURL(testInstance *testing.T) {
	executor := &scriptedGitExecutor{responses: healthyResponses()}
	prober := newProber(testInstance, executor)

	require.NoError(testInstance, prober.Fetch(context.Background(), proberRepositoryPath))
	remoteURL, remoteError := prober.RemoteURL(context.Background(), proberRepositoryPath, "origin")
	require.NoError(testInstance, remoteError)
	require.Equal(testInstance, "git@github.com:temirov/repocheck.git", remoteURL)
	require.Equal(testInstance, []string{"fetch", "remote get-url origin"}, executor.commandLines())
}

func TestParsingHelpers(testInstance *testing.T) {
	behindCount, aheadCount, parseError := gitrepo.ParseDivergenceCounts("7\t0\n")
	require.NoError(testInstance, parseError)
	require.Equal(testInstance, 7, behindCount)
	require.Zero(testInstance, aheadCount)

	_, _, parseError = gitrepo.ParseDivergenceCounts("7")
	require.Error(testInstance, parseError)

	modifiedCount, untrackedCount := gitrepo.CountPorcelainEntries("?? a\n?? b\n M c\n")
	require.Equal(testInstance, 1, modifiedCount)
	require.Equal(testInstance, 2, untrackedCount)

	require.Equal(testInstance, 1, gitrepo.ParseFilesChanged(" 1 file changed, 2 insertions(+)"))
	require.Zero(testInstance, gitrepo.ParseFilesChanged("Already up to date."))
}
