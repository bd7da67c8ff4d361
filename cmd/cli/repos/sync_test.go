package repos_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	repos "github.com/temirov/repocheck/cmd/cli/repos"
	"github.com/temirov/repocheck/internal/reconcile"
	"github.com/temirov/repocheck/internal/status"
	pathutils "github.com/temirov/repocheck/internal/utils/path"
)

const syncTestManifestContent = `repos:
  - path: fresh
    remote: git@github.com:octo/fresh.git
  - path: existing
    remote: git@github.com:octo/existing.git
  - path: old
    remote: git@github.com:octo/old.git
    ignore: true
`

type syncFixture struct {
	workspace    string
	freshPath    string
	existingPath string
	inspector    *stubInspector
}

func newSyncFixture(testInstance *testing.T) syncFixture {
	testInstance.Helper()
	workspace := testInstance.TempDir()
	existingPath := filepath.Join(workspace, "existing")
	require.NoError(testInstance, os.MkdirAll(filepath.Join(existingPath, ".git"), 0o755))
	require.NoError(testInstance, os.WriteFile(filepath.Join(workspace, "repos.yml"), []byte(syncTestManifestContent), 0o644))

	inspector := newStubInspector(map[string]status.RepoSnapshot{
		existingPath: {Branch: "main", HasUpstream: true, BehindCount: 2},
	})
	inspector.pullReports[existingPath] = status.PullReport{FilesChanged: 5}
	return syncFixture{workspace: workspace, freshPath: filepath.Join(workspace, "fresh"), existingPath: existingPath, inspector: inspector}
}

func (fixture syncFixture) builder(testInstance *testing.T) *repos.SyncCommandBuilder {
	homeDirectory := testInstance.TempDir()
	return &repos.SyncCommandBuilder{
		LoggerProvider:   func() *zap.Logger { return zap.NewNop() },
		Inspector:        fixture.inspector,
		HomeExpander:     pathutils.NewHomeExpanderWithProvider(func() (string, error) { return homeDirectory, nil }),
		WorkingDirectory: fixture.workspace,
		HomeDirectory:    homeDirectory,
	}
}

func TestSyncCommandReconcilesManifest(testInstance *testing.T) {
	fixture := newSyncFixture(testInstance)
	command, buildError := fixture.builder(testInstance).Build()
	require.NoError(testInstance, buildError)

	output, executionError := executeCommand(command)
	require.NoError(testInstance, executionError)
	require.Equal(testInstance, []string{fixture.freshPath}, fixture.inspector.clonedPaths)
	require.Equal(testInstance, []string{fixture.existingPath}, fixture.inspector.fetchedPaths)
	require.Equal(testInstance, []string{fixture.existingPath}, fixture.inspector.pulledPaths)
	require.Contains(testInstance, output, "Syncing 3 tracked repositories")
	require.Contains(testInstance, output, "pulled 5 files")
	require.Contains(testInstance, output, "ignored by manifest")
	require.Contains(testInstance, output, "Summary: 1 cloned, 1 pulled, 1 skipped")
}

func TestSyncCommandModes(testInstance *testing.T) {
	testCases := []struct {
		name             string
		arguments        []string
		expectedClones   int
		expectedPulls    int
		expectedFetches  int
		expectedContains []string
		absentContains   []string
	}{
		{
			name:             "dry run touches nothing",
			arguments:        []string{"--dry-run"},
			expectedContains: []string{"Dry run: 3 tracked repositories", "would clone git@github.com:octo/fresh.git", "Summary: 1 to clone, 1 to pull, 1 to skip"},
		},
		{
			name:             "no pull clones only",
			arguments:        []string{"--no-pull"},
			expectedClones:   1,
			expectedContains: []string{"already exists", "Summary: 1 cloned, 2 skipped"},
		},
		{
			name:             "fetch disabled",
			arguments:        []string{"--fetch=false"},
			expectedClones:   1,
			expectedPulls:    1,
			expectedContains: []string{"Summary: 1 cloned, 1 pulled, 1 skipped"},
		},
		{
			name:             "quiet hides skipped entries",
			arguments:        []string{"--quiet"},
			expectedClones:   1,
			expectedPulls:    1,
			expectedFetches:  1,
			expectedContains: []string{"cloned from git@github.com:octo/fresh.git"},
			absentContains:   []string{"ignored by manifest", "Summary:", "Syncing"},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			fixture := newSyncFixture(subTest)
			command, buildError := fixture.builder(subTest).Build()
			require.NoError(subTest, buildError)

			output, executionError := executeCommand(command, testCase.arguments...)
			require.NoError(subTest, executionError)
			require.Len(subTest, fixture.inspector.clonedPaths, testCase.expectedClones)
			require.Len(subTest, fixture.inspector.pulledPaths, testCase.expectedPulls)
			require.Len(subTest, fixture.inspector.fetchedPaths, testCase.expectedFetches)
			for _, expected := range testCase.expectedContains {
				require.Contains(subTest, output, expected)
			}
			for _, absent := range testCase.absentContains {
				require.NotContains(subTest, output, absent)
			}
		})
	}
}

func TestSyncCommandReportsFailures(testInstance *testing.T) {
	fixture := newSyncFixture(testInstance)
	fixture.inspector.cloneErrors[fixture.freshPath] = errors.New("permission denied")
	manifestPath := filepath.Join(fixture.workspace, "repos.yml")
	require.NoError(testInstance, os.WriteFile(manifestPath, []byte(syncTestManifestContent+"  - remote: git@github.com:octo/nameless.git\n"), 0o644))

	command, buildError := fixture.builder(testInstance).Build()
	require.NoError(testInstance, buildError)

	output, executionError := executeCommand(command, "--manifest", manifestPath, "-o", "json")
	require.ErrorIs(testInstance, executionError, repos.ErrSyncIncomplete)

	var result reconcile.ReconcileResult
	require.NoError(testInstance, json.Unmarshal([]byte(output), &result))
	require.Equal(testInstance, manifestPath, result.ManifestPath)
	require.Equal(testInstance, 1, result.Failed)
	require.Equal(testInstance, 1, result.Pulled)
	require.Len(testInstance, result.ManifestErrors, 1)
	require.Equal(testInstance, reconcile.OutcomeFailed, result.Items[0].Outcome.Kind)
	require.Equal(testInstance, "clone failed: permission denied", result.Items[0].Outcome.Message)
}

func TestSyncCommandInitWritesTemplate(testInstance *testing.T) {
	fixture := syncFixture{workspace: testInstance.TempDir(), inspector: newStubInspector(map[string]status.RepoSnapshot{})}

	command, buildError := fixture.builder(testInstance).Build()
	require.NoError(testInstance, buildError)
	output, executionError := executeCommand(command, "--init")
	require.NoError(testInstance, executionError)

	manifestPath := filepath.Join(fixture.workspace, "repos.yml")
	require.Equal(testInstance, "Created manifest: "+manifestPath+"\n", output)
	content, readError := os.ReadFile(manifestPath)
	require.NoError(testInstance, readError)
	require.Equal(testInstance, reconcile.ManifestTemplate(), string(content))

	command, buildError = fixture.builder(testInstance).Build()
	require.NoError(testInstance, buildError)
	_, repeatError := executeCommand(command, "--init")
	require.ErrorIs(testInstance, repeatError, reconcile.ErrManifestExists)
}

func TestSyncCommandRequiresManifest(testInstance *testing.T) {
	fixture := syncFixture{workspace: testInstance.TempDir(), inspector: newStubInspector(map[string]status.RepoSnapshot{})}

	command, buildError := fixture.builder(testInstance).Build()
	require.NoError(testInstance, buildError)
	_, executionError := executeCommand(command)
	require.ErrorIs(testInstance, executionError, reconcile.ErrManifestNotFound)
}
