package status_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/repocheck/internal/status"
)

const (
	classifierMainBranchName    = "main"
	classifierFeatureBranchName = "feature/login"
	classifierRepositoryPath    = "/home/user/dev/service"
)

var errClassifierProbeFailed = errors.New("not a git repository")

func TestClassifyStatusPrecedence(testInstance *testing.T) {
	testCases := []struct {
		name           string
		snapshot       status.RepoSnapshot
		expectedStatus status.RepoStatus
	}{
		{name: "clean", snapshot: status.RepoSnapshot{Branch: classifierMainBranchName, HasUpstream: true}, expectedStatus: status.RepoStatusClean},
		{name: "probe_error_wins", snapshot: status.RepoSnapshot{ProbeError: errClassifierProbeFailed, HasUpstream: true, AheadCount: 2, BehindCount: 1, ModifiedCount: 3}, expectedStatus: status.RepoStatusError},
		{name: "no_remote_beats_dirty", snapshot: status.RepoSnapshot{Branch: classifierMainBranchName, ModifiedCount: 4, UntrackedCount: 1}, expectedStatus: status.RepoStatusNoRemote},
		{name: "diverged_beats_dirty", snapshot: status.RepoSnapshot{HasUpstream: true, AheadCount: 1, BehindCount: 2, ModifiedCount: 1}, expectedStatus: status.RepoStatusDiverged},
		{name: "ahead_beats_dirty", snapshot: status.RepoSnapshot{HasUpstream: true, AheadCount: 3, ModifiedCount: 1}, expectedStatus: status.RepoStatusAhead},
		{name: "behind_beats_untracked", snapshot: status.RepoSnapshot{HasUpstream: true, BehindCount: 5, UntrackedCount: 2}, expectedStatus: status.RepoStatusBehind},
		{name: "dirty_beats_untracked", snapshot: status.RepoSnapshot{HasUpstream: true, ModifiedCount: 1, UntrackedCount: 1}, expectedStatus: status.RepoStatusDirty},
		{name: "untracked_only", snapshot: status.RepoSnapshot{HasUpstream: true, UntrackedCount: 1}, expectedStatus: status.RepoStatusUntracked},
		{name: "stash_does_not_change_status", snapshot: status.RepoSnapshot{HasUpstream: true, HasStash: true}, expectedStatus: status.RepoStatusClean},
	}

	policy := status.NewClassificationPolicy([]string{classifierMainBranchName})
	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			repositoryStatus, _ := status.Classify(testCase.snapshot, policy)
			require.Equal(testInstance, testCase.expectedStatus, repositoryStatus)
		})
	}
}

func TestClassifyWarnings(testInstance *testing.T) {
	testCases := []struct {
		name             string
		snapshot         status.RepoSnapshot
		expectedWarnings []status.Warning
	}{
		{name: "dirty_main", snapshot: status.RepoSnapshot{Branch: classifierMainBranchName, HasUpstream: true, ModifiedCount: 1}, expectedWarnings: []status.Warning{status.WarningDirtyMain}},
		{name: "untracked_main_case_insensitive", snapshot: status.RepoSnapshot{Branch: "MAIN", HasUpstream: true, UntrackedCount: 1}, expectedWarnings: []status.Warning{status.WarningDirtyMain}},
		{name: "dirty_feature_branch", snapshot: status.RepoSnapshot{Branch: classifierFeatureBranchName, HasUpstream: true, ModifiedCount: 1}, expectedWarnings: []status.Warning{}},
		{name: "modified_but_behind_main", snapshot: status.RepoSnapshot{Branch: classifierMainBranchName, HasUpstream: true, BehindCount: 1, ModifiedCount: 1}, expectedWarnings: []status.Warning{}},
		{name: "no_remote_dirty_main", snapshot: status.RepoSnapshot{Branch: classifierMainBranchName, ModifiedCount: 1}, expectedWarnings: []status.Warning{status.WarningNoRemote}},
		{name: "detached_with_stash", snapshot: status.RepoSnapshot{Detached: true, HasUpstream: true, HasStash: true}, expectedWarnings: []status.Warning{status.WarningDetached, status.WarningHasStash}},
		{name: "probe_error_has_no_no_remote_warning", snapshot: status.RepoSnapshot{ProbeError: errClassifierProbeFailed}, expectedWarnings: []status.Warning{}},
		{name: "warning_order", snapshot: status.RepoSnapshot{Detached: true, HasStash: true}, expectedWarnings: []status.Warning{status.WarningNoRemote, status.WarningDetached, status.WarningHasStash}},
	}

	policy := status.NewClassificationPolicy([]string{" Main ", "master", ""})
	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			_, warnings := status.Classify(testCase.snapshot, policy)
			require.Equal(testInstance, testCase.expectedWarnings, warnings)
		})
	}
}

func TestClassifyIsPure(testInstance *testing.T) {
	snapshot := status.RepoSnapshot{Branch: classifierMainBranchName, HasUpstream: true, ModifiedCount: 2, HasStash: true}
	policy := status.NewClassificationPolicy([]string{classifierMainBranchName})

	firstStatus, firstWarnings := status.Classify(snapshot, policy)
	secondStatus, secondWarnings := status.Classify(snapshot, policy)

	require.Equal(testInstance, firstStatus, secondStatus)
	require.Equal(testInstance, firstWarnings, secondWarnings)
	require.Equal(testInstance, status.RepoSnapshot{Branch: classifierMainBranchName, HasUpstream: true, ModifiedCount: 2, HasStash: true}, snapshot)
}

func TestBuildReportCopiesFacts(testInstance *testing.T) {
	snapshot := status.RepoSnapshot{
		Branch:         classifierMainBranchName,
		HasUpstream:    true,
		BehindCount:    3,
		UntrackedCount: 1,
		FactErrors:     []string{"stash: exit status 128"},
	}

	report := status.BuildReport(classifierRepositoryPath, snapshot, status.NewClassificationPolicy([]string{classifierMainBranchName}))

	require.Equal(testInstance, classifierRepositoryPath, report.Path)
	require.Equal(testInstance, status.RepoStatusBehind, report.Status)
	require.Equal(testInstance, 3, report.BehindCount)
	require.Equal(testInstance, 1, report.UntrackedCount)
	require.Empty(testInstance, report.Warnings)
	require.Empty(testInstance, report.ErrorMessage)
	require.Equal(testInstance, snapshot.FactErrors, report.FactErrors)
}

func TestBuildReportRecordsProbeError(testInstance *testing.T) {
	report := status.BuildReport(classifierRepositoryPath, status.RepoSnapshot{ProbeError: errClassifierProbeFailed}, status.ClassificationPolicy{})

	require.Equal(testInstance, status.RepoStatusError, report.Status)
	require.Equal(testInstance, errClassifierProbeFailed.Error(), report.ErrorMessage)
	require.False(testInstance, report.HasWarning(status.WarningNoRemote))
}

func TestCancelledReport(testInstance *testing.T) {
	report := status.CancelledReport(classifierRepositoryPath)

	require.Equal(testInstance, status.RepoStatusError, report.Status)
	require.Equal(testInstance, status.ErrScanCancelled.Error(), report.ErrorMessage)
	require.Empty(testInstance, report.Warnings)
}

func TestIsMainBranch(testInstance *testing.T) {
	policy := status.NewClassificationPolicy([]string{"main", "Master"})

	require.True(testInstance, policy.IsMainBranch("MAIN"))
	require.True(testInstance, policy.IsMainBranch("master"))
	require.False(testInstance, policy.IsMainBranch(classifierFeatureBranchName))
	require.False(testInstance, policy.IsMainBranch(""))
}
