package repos_test

import (
	"bytes"
	"context"
	"sync"

	"github.com/spf13/cobra"

	"github.com/temirov/repocheck/internal/repos/shared"
	"github.com/temirov/repocheck/internal/status"
)

type stubDiscoverer struct {
	repositories []string
	walkErrors   []shared.WalkError
	roots        []string
	options      shared.DiscoveryOptions
}

func (discoverer *stubDiscoverer) DiscoverRepositories(roots []string, options shared.DiscoveryOptions) ([]string, []shared.WalkError) {
	discoverer.roots = append([]string{}, roots...)
	discoverer.options = options
	return append([]string{}, discoverer.repositories...), discoverer.walkErrors
}

type stubInspector struct {
	mutex        sync.Mutex
	snapshots    map[string]status.RepoSnapshot
	pullReports  map[string]status.PullReport
	cloneErrors  map[string]error
	pulledPaths  []string
	fetchedPaths []string
	clonedPaths  []string
}

func newStubInspector(snapshots map[string]status.RepoSnapshot) *stubInspector {
	return &stubInspector{
		snapshots:   snapshots,
		pullReports: map[string]status.PullReport{},
		cloneErrors: map[string]error{},
	}
}

func (inspector *stubInspector) Probe(executionContext context.Context, repositoryPath string) (status.RepoSnapshot, error) {
	if contextError := executionContext.Err(); contextError != nil {
		return status.RepoSnapshot{}, contextError
	}
	inspector.mutex.Lock()
	defer inspector.mutex.Unlock()
	return inspector.snapshots[repositoryPath], nil
}

func (inspector *stubInspector) Pull(_ context.Context, repositoryPath string) (status.PullReport, error) {
	inspector.mutex.Lock()
	defer inspector.mutex.Unlock()
	inspector.pulledPaths = append(inspector.pulledPaths, repositoryPath)
	snapshot := inspector.snapshots[repositoryPath]
	snapshot.BehindCount = 0
	inspector.snapshots[repositoryPath] = snapshot
	return inspector.pullReports[repositoryPath], nil
}

func (inspector *stubInspector) Fetch(_ context.Context, repositoryPath string) error {
	inspector.mutex.Lock()
	defer inspector.mutex.Unlock()
	inspector.fetchedPaths = append(inspector.fetchedPaths, repositoryPath)
	return nil
}

func (inspector *stubInspector) Clone(_ context.Context, _ string, _ string, destinationPath string) error {
	inspector.mutex.Lock()
	defer inspector.mutex.Unlock()
	inspector.clonedPaths = append(inspector.clonedPaths, destinationPath)
	return inspector.cloneErrors[destinationPath]
}

type stubCIResolver struct {
	statuses map[string]status.CIStatus
}

func (resolver stubCIResolver) ResolveCIStatus(_ context.Context, repositoryPath string) status.CIStatus {
	if ciStatus, found := resolver.statuses[repositoryPath]; found {
		return ciStatus
	}
	return status.CIStatusUnknown
}

func executeCommand(command *cobra.Command, arguments ...string) (string, error) {
	outputBuffer := &bytes.Buffer{}
	command.SetOut(outputBuffer)
	command.SetErr(&bytes.Buffer{})
	command.SetArgs(arguments)
	command.SetContext(context.Background())
	executionError := command.Execute()
	return outputBuffer.String(), executionError
}
