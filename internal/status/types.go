package status

import (
	"context"
	"errors"
)

// RepoStatus is the single-valued classification of a repository.
type RepoStatus string

// Repository statuses.
const (
	RepoStatusClean     RepoStatus = RepoStatus("clean")
	RepoStatusDirty     RepoStatus = RepoStatus("dirty")
	RepoStatusUntracked RepoStatus = RepoStatus("untracked")
	RepoStatusAhead     RepoStatus = RepoStatus("ahead")
	RepoStatusBehind    RepoStatus = RepoStatus("behind")
	RepoStatusDiverged  RepoStatus = RepoStatus("diverged")
	RepoStatusNoRemote  RepoStatus = RepoStatus("no_remote")
	RepoStatusError     RepoStatus = RepoStatus("error")
)

// Warning flags a risky practice independent of the status.
type Warning string

// Repository warnings in reporting order.
const (
	WarningDirtyMain Warning = Warning("dirty_main")
	WarningNoRemote  Warning = Warning("no_remote")
	WarningDetached  Warning = Warning("detached")
	WarningHasStash  Warning = Warning("has_stash")
)

// CIStatus summarizes the most recent CI run of a repository.
type CIStatus string

// CI statuses.
const (
	CIStatusPassing CIStatus = CIStatus("passing")
	CIStatusFailing CIStatus = CIStatus("failing")
	CIStatusPending CIStatus = CIStatus("pending")
	CIStatusNone    CIStatus = CIStatus("none")
	CIStatusUnknown CIStatus = CIStatus("unknown")
)

// PullOutcomeKind distinguishes the result of an auto-pull decision.
type PullOutcomeKind string

// Pull outcome kinds.
const (
	PullOutcomePulled  PullOutcomeKind = PullOutcomeKind("pulled")
	PullOutcomeSkipped PullOutcomeKind = PullOutcomeKind("skipped")
	PullOutcomeFailed  PullOutcomeKind = PullOutcomeKind("failed")
)

const (
	scanCancelledMessageConstant = "scan cancelled"
	noScanPathsMessageConstant   = "no scan paths resolved"
	pullErrorSeparatorConstant   = ": "
	pullErrorPrefixConstant      = "pull failed for "
)

// ErrScanCancelled marks repositories left unprocessed when a run is cancelled.
var ErrScanCancelled = errors.New(scanCancelledMessageConstant)

// ErrNoScanPaths indicates neither configuration nor arguments supplied a scan root.
var ErrNoScanPaths = errors.New(noScanPathsMessageConstant)

// RepoSnapshot holds the raw facts observed about one repository at one instant.
// ProbeError is set when the directory could not be inspected as a repository at all;
// FactErrors lists individual queries that failed and left their fact at the zero value.
type RepoSnapshot struct {
	Branch         string
	Detached       bool
	HasUpstream    bool
	AheadCount     int
	BehindCount    int
	ModifiedCount  int
	UntrackedCount int
	HasStash       bool
	ProbeError     error
	FactErrors     []string
}

// RepoReport is the classified, serializable view of a repository.
type RepoReport struct {
	Path           string     `json:"path" yaml:"path"`
	Branch         string     `json:"branch" yaml:"branch"`
	Detached       bool       `json:"detached" yaml:"detached"`
	Status         RepoStatus `json:"status" yaml:"status"`
	Warnings       []Warning  `json:"warnings" yaml:"warnings"`
	AheadCount     int        `json:"ahead_count" yaml:"ahead_count"`
	BehindCount    int        `json:"behind_count" yaml:"behind_count"`
	ModifiedCount  int        `json:"modified_count" yaml:"modified_count"`
	UntrackedCount int        `json:"untracked_count" yaml:"untracked_count"`
	HasStash       bool       `json:"has_stash" yaml:"has_stash"`
	CIStatus       CIStatus   `json:"ci_status,omitempty" yaml:"ci_status,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty" yaml:"error_message,omitempty"`
	FactErrors     []string   `json:"fact_errors,omitempty" yaml:"fact_errors,omitempty"`
}

// HasWarning reports whether the report carries the warning.
func (report RepoReport) HasWarning(warning Warning) bool {
	for _, existing := range report.Warnings {
		if existing == warning {
			return true
		}
	}
	return false
}

// PullOutcome records what the auto-puller did with a behind repository.
type PullOutcome struct {
	Path           string          `json:"path" yaml:"path"`
	Kind           PullOutcomeKind `json:"kind" yaml:"kind"`
	OldBehindCount int             `json:"old_behind_count" yaml:"old_behind_count"`
	NewBehindCount int             `json:"new_behind_count" yaml:"new_behind_count"`
	FilesChanged   int             `json:"files_changed" yaml:"files_changed"`
	Reason         string          `json:"reason,omitempty" yaml:"reason,omitempty"`
	ErrorMessage   string          `json:"error_message,omitempty" yaml:"error_message,omitempty"`
}

// ScanResult aggregates one scan run.
type ScanResult struct {
	RunIdentifier string        `json:"run_id" yaml:"run_id"`
	Roots         []string      `json:"roots" yaml:"roots"`
	Repositories  []RepoReport  `json:"repositories" yaml:"repositories"`
	PullOutcomes  []PullOutcome `json:"pull_outcomes" yaml:"pull_outcomes"`
	ScanErrors    []string      `json:"scan_errors" yaml:"scan_errors"`
	TotalScanned  int           `json:"total_scanned" yaml:"total_scanned"`
}

// PullError reports a fast-forward pull that did not complete.
type PullError struct {
	RepositoryPath string
	Cause          error
}

// Error describes the pull failure.
func (pullError PullError) Error() string {
	return pullErrorPrefixConstant + pullError.RepositoryPath + pullErrorSeparatorConstant + pullError.Cause.Error()
}

// Unwrap exposes the underlying command error.
func (pullError PullError) Unwrap() error {
	return pullError.Cause
}

// PullReport describes a successful fast-forward pull.
type PullReport struct {
	FilesChanged int
}

// RepositoryInspector is the version-control capability used by the status engine and the reconciler.
// Probe never contacts a remote. It returns an error only when the context ends before the probe
// completes; inspection failures are carried in RepoSnapshot.ProbeError.
type RepositoryInspector interface {
	Probe(executionContext context.Context, repositoryPath string) (RepoSnapshot, error)
	Pull(executionContext context.Context, repositoryPath string) (PullReport, error)
	Fetch(executionContext context.Context, repositoryPath string) error
	Clone(executionContext context.Context, remoteURL string, branch string, destinationPath string) error
}

// CIStatusResolver looks up the CI status of a repository.
type CIStatusResolver interface {
	ResolveCIStatus(executionContext context.Context, repositoryPath string) CIStatus
}
