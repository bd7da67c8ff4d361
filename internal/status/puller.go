package status

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/temirov/repocheck/internal/repos/discovery"
)

const (
	skipReasonLocalChangesConstant        = "working tree has local changes"
	skipReasonSkipPatternTemplateConstant = "path matches skip pattern %q"
	pullSucceededMessageConstant          = "fast-forwarded repository"
	pullFailedMessageConstant             = "fast-forward pull failed"
	pullSkippedMessageConstant            = "skipped auto-pull"
	logFieldRepositoryPathConstant        = "repository_path"
	logFieldReasonConstant                = "reason"
	logFieldOldBehindCountConstant        = "old_behind_count"
	logFieldNewBehindCountConstant        = "new_behind_count"
	logFieldFilesChangedConstant          = "files_changed"
)

// AutoPullPolicy controls which behind repositories are fast-forwarded.
type AutoPullPolicy struct {
	Enabled      bool
	RequireClean bool
	SkipPatterns []string
}

// PullDecision is the outcome of evaluating a report against an AutoPullPolicy.
type PullDecision struct {
	// Applicable is false when the policy has nothing to say about the repository.
	Applicable bool
	Eligible   bool
	SkipReason string
}

// Evaluate decides whether report should be pulled. Only behind repositories are applicable; a behind
// repository is eligible unless a clean worktree is required and local changes exist, or its path
// matches a skip pattern.
func (policy AutoPullPolicy) Evaluate(report RepoReport) PullDecision {
	if !policy.Enabled || report.Status != RepoStatusBehind {
		return PullDecision{}
	}
	if policy.RequireClean && (report.ModifiedCount > 0 || report.UntrackedCount > 0) {
		return PullDecision{Applicable: true, SkipReason: skipReasonLocalChangesConstant}
	}
	if matchedPattern, matched := matchSkipPattern(report.Path, policy.SkipPatterns); matched {
		return PullDecision{Applicable: true, SkipReason: fmt.Sprintf(skipReasonSkipPatternTemplateConstant, matchedPattern)}
	}
	return PullDecision{Applicable: true, Eligible: true}
}

// AutoPuller applies an AutoPullPolicy, allowing at most one in-flight pull per repository path.
type AutoPuller struct {
	inspector RepositoryInspector
	policy    AutoPullPolicy
	logger    *zap.Logger
	pathGuard *singleflight.Group
}

// NewAutoPuller constructs an AutoPuller.
func NewAutoPuller(inspector RepositoryInspector, policy AutoPullPolicy, logger *zap.Logger) *AutoPuller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AutoPuller{inspector: inspector, policy: policy, logger: logger, pathGuard: &singleflight.Group{}}
}

// Policy returns the policy applied by the puller.
func (puller *AutoPuller) Policy() AutoPullPolicy {
	return puller.policy
}

// Apply evaluates the report and pulls when eligible. The boolean result is false when the
// repository produces no outcome. Once executionContext is done an eligible repository is
// skipped instead of pulled. The report itself is never modified.
func (puller *AutoPuller) Apply(executionContext context.Context, report RepoReport) (PullOutcome, bool) {
	decision := puller.policy.Evaluate(report)
	if !decision.Applicable {
		return PullOutcome{}, false
	}

	if !decision.Eligible {
		return puller.skipped(report, decision.SkipReason), true
	}
	if executionContext.Err() != nil {
		return puller.skipped(report, scanCancelledMessageConstant), true
	}

	return puller.Pull(executionContext, report.Path, report.BehindCount), true
}

func (puller *AutoPuller) skipped(report RepoReport, reason string) PullOutcome {
	puller.logger.Info(pullSkippedMessageConstant,
		zap.String(logFieldRepositoryPathConstant, report.Path),
		zap.String(logFieldReasonConstant, reason))
	return PullOutcome{
		Path:           report.Path,
		Kind:           PullOutcomeSkipped,
		OldBehindCount: report.BehindCount,
		NewBehindCount: report.BehindCount,
		Reason:         reason,
	}
}

// Pull fast-forwards repositoryPath and re-measures how far it remains behind its upstream.
// Concurrent calls for the same cleaned path share a single pull.
func (puller *AutoPuller) Pull(executionContext context.Context, repositoryPath string, oldBehindCount int) PullOutcome {
	guardKey := filepath.Clean(repositoryPath)
	sharedResult, _, _ := puller.pathGuard.Do(guardKey, func() (any, error) {
		return puller.pullOnce(executionContext, repositoryPath, oldBehindCount), nil
	})
	return sharedResult.(PullOutcome)
}

func (puller *AutoPuller) pullOnce(executionContext context.Context, repositoryPath string, oldBehindCount int) PullOutcome {
	pullReport, pullError := puller.inspector.Pull(executionContext, repositoryPath)
	if pullError != nil {
		failure := PullError{RepositoryPath: repositoryPath, Cause: pullError}
		puller.logger.Warn(pullFailedMessageConstant,
			zap.String(logFieldRepositoryPathConstant, repositoryPath),
			zap.Error(failure))
		return PullOutcome{
			Path:           repositoryPath,
			Kind:           PullOutcomeFailed,
			OldBehindCount: oldBehindCount,
			NewBehindCount: oldBehindCount,
			ErrorMessage:   failure.Error(),
		}
	}

	newBehindCount := 0
	snapshot, probeError := puller.inspector.Probe(executionContext, repositoryPath)
	if probeError == nil && snapshot.ProbeError == nil {
		newBehindCount = snapshot.BehindCount
	}

	puller.logger.Info(pullSucceededMessageConstant,
		zap.String(logFieldRepositoryPathConstant, repositoryPath),
		zap.Int(logFieldOldBehindCountConstant, oldBehindCount),
		zap.Int(logFieldNewBehindCountConstant, newBehindCount),
		zap.Int(logFieldFilesChangedConstant, pullReport.FilesChanged))

	return PullOutcome{
		Path:           repositoryPath,
		Kind:           PullOutcomePulled,
		OldBehindCount: oldBehindCount,
		NewBehindCount: newBehindCount,
		FilesChanged:   pullReport.FilesChanged,
	}
}

func matchSkipPattern(repositoryPath string, skipPatterns []string) (string, bool) {
	cleanedPath := filepath.Clean(repositoryPath)
	components := make([]string, 0)
	for _, component := range strings.Split(cleanedPath, string(filepath.Separator)) {
		if len(component) > 0 {
			components = append(components, component)
		}
	}
	for _, pattern := range skipPatterns {
		if discovery.MatchesExcludePattern(pattern, cleanedPath, components) {
			return pattern, true
		}
	}
	return "", false
}
