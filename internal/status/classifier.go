package status

import "strings"

// ClassificationPolicy carries the configuration consulted by Classify.
type ClassificationPolicy struct {
	MainBranches []string
}

// NewClassificationPolicy copies and lower-cases the main branch names.
func NewClassificationPolicy(mainBranches []string) ClassificationPolicy {
	normalized := make([]string, 0, len(mainBranches))
	for _, branchName := range mainBranches {
		trimmed := strings.TrimSpace(branchName)
		if len(trimmed) == 0 {
			continue
		}
		normalized = append(normalized, strings.ToLower(trimmed))
	}
	return ClassificationPolicy{MainBranches: normalized}
}

// IsMainBranch reports whether branchName is one of the policy's main branches, ignoring case.
func (policy ClassificationPolicy) IsMainBranch(branchName string) bool {
	if len(branchName) == 0 {
		return false
	}
	for _, mainBranch := range policy.MainBranches {
		if strings.EqualFold(mainBranch, branchName) {
			return true
		}
	}
	return false
}

type classificationRule struct {
	status  RepoStatus
	matches func(snapshot RepoSnapshot) bool
}

// classificationRules is evaluated in order; the first matching rule decides the status.
var classificationRules = []classificationRule{
	{status: RepoStatusError, matches: func(snapshot RepoSnapshot) bool { return snapshot.ProbeError != nil }},
	{status: RepoStatusNoRemote, matches: func(snapshot RepoSnapshot) bool { return !snapshot.HasUpstream }},
	{status: RepoStatusDiverged, matches: func(snapshot RepoSnapshot) bool { return snapshot.AheadCount > 0 && snapshot.BehindCount > 0 }},
	{status: RepoStatusAhead, matches: func(snapshot RepoSnapshot) bool { return snapshot.AheadCount > 0 }},
	{status: RepoStatusBehind, matches: func(snapshot RepoSnapshot) bool { return snapshot.BehindCount > 0 }},
	{status: RepoStatusDirty, matches: func(snapshot RepoSnapshot) bool { return snapshot.ModifiedCount > 0 }},
	{status: RepoStatusUntracked, matches: func(snapshot RepoSnapshot) bool { return snapshot.UntrackedCount > 0 }},
}

// Classify derives the status and warnings of a snapshot. It is a pure function of its inputs.
func Classify(snapshot RepoSnapshot, policy ClassificationPolicy) (RepoStatus, []Warning) {
	repositoryStatus := RepoStatusClean
	for _, rule := range classificationRules {
		if rule.matches(snapshot) {
			repositoryStatus = rule.status
			break
		}
	}

	warnings := make([]Warning, 0, 4)
	if (repositoryStatus == RepoStatusDirty || repositoryStatus == RepoStatusUntracked) && policy.IsMainBranch(snapshot.Branch) {
		warnings = append(warnings, WarningDirtyMain)
	}
	if snapshot.ProbeError == nil && !snapshot.HasUpstream {
		warnings = append(warnings, WarningNoRemote)
	}
	if snapshot.Detached {
		warnings = append(warnings, WarningDetached)
	}
	if snapshot.HasStash {
		warnings = append(warnings, WarningHasStash)
	}

	return repositoryStatus, warnings
}

// BuildReport classifies the snapshot and assembles the report for repositoryPath.
func BuildReport(repositoryPath string, snapshot RepoSnapshot, policy ClassificationPolicy) RepoReport {
	repositoryStatus, warnings := Classify(snapshot, policy)
	report := RepoReport{
		Path:           repositoryPath,
		Branch:         snapshot.Branch,
		Detached:       snapshot.Detached,
		Status:         repositoryStatus,
		Warnings:       warnings,
		AheadCount:     snapshot.AheadCount,
		BehindCount:    snapshot.BehindCount,
		ModifiedCount:  snapshot.ModifiedCount,
		UntrackedCount: snapshot.UntrackedCount,
		HasStash:       snapshot.HasStash,
	}
	if snapshot.ProbeError != nil {
		report.ErrorMessage = snapshot.ProbeError.Error()
	}
	if len(snapshot.FactErrors) > 0 {
		report.FactErrors = append([]string(nil), snapshot.FactErrors...)
	}
	return report
}

// CancelledReport is the report recorded for a repository the run never reached.
func CancelledReport(repositoryPath string) RepoReport {
	return RepoReport{
		Path:         repositoryPath,
		Status:       RepoStatusError,
		Warnings:     []Warning{},
		ErrorMessage: ErrScanCancelled.Error(),
	}
}
