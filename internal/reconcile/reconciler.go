package reconcile

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/repocheck/internal/repos/filesystem"
	"github.com/temirov/repocheck/internal/repos/shared"
	"github.com/temirov/repocheck/internal/status"
)

// ActionKind identifies what the reconciler does with a manifest entry.
type ActionKind string

// Reconcile actions.
const (
	ActionClone        ActionKind = ActionKind("clone")
	ActionPull         ActionKind = ActionKind("pull")
	ActionSkipIgnored  ActionKind = ActionKind("skip_ignored")
	ActionSkipExisting ActionKind = ActionKind("skip_existing")
)

// OutcomeKind summarizes how an executed action ended.
type OutcomeKind string

// Reconcile outcomes.
const (
	OutcomeCloned   OutcomeKind = OutcomeKind("cloned")
	OutcomePulled   OutcomeKind = OutcomeKind("pulled")
	OutcomeUpToDate OutcomeKind = OutcomeKind("up_to_date")
	OutcomeSkipped  OutcomeKind = OutcomeKind("skipped")
	OutcomeFailed   OutcomeKind = OutcomeKind("failed")
)

const (
	gitMetadataEntryNameConstant       = ".git"
	defaultWorkerCountConstant         = 8
	syncCancelledMessageConstant       = "sync cancelled"
	inspectorNotConfiguredMessage      = "repository inspector not configured"
	notRepositoryTemplateConstant      = "path exists but is not a git repository: %s"
	cloneFailedTemplateConstant        = "clone failed: %v"
	fetchFailedTemplateConstant        = "fetch failed: %v"
	probeFailedTemplateConstant        = "cannot inspect repository: %v"
	clonedMessageTemplateConstant      = "cloned from %s"
	pulledMessageTemplateConstant      = "pulled %d files"
	upToDateMessageConstant            = "already up to date"
	ignoredMessageConstant             = "ignored by manifest"
	existingMessageConstant            = "already exists"
	noUpstreamMessageConstant          = "no upstream configured"
	notEligibleTemplateConstant        = "status %s is not eligible for fast-forward"
	previewCloneTemplateConstant       = "would clone %s into %s"
	previewCloneBranchTemplateConstant = "would clone %s (branch %s) into %s"
	previewPullTemplateConstant        = "would fast-forward %s if clean and behind"
	reconcileStartedMessageConstant    = "reconciling manifest"
	reconcileFinishedMessageConstant   = "reconciliation finished"
	actionFailedMessageConstant        = "reconcile action failed"
	logFieldManifestPathConstant       = "manifest_path"
	logFieldEntryCountConstant         = "entries"
	logFieldDryRunConstant             = "dry_run"
	logFieldRepositoryPathConstant     = "repository_path"
	logFieldActionConstant             = "action"
	logFieldClonedConstant             = "cloned"
	logFieldPulledConstant             = "pulled"
	logFieldSkippedConstant            = "skipped"
	logFieldFailedConstant             = "failed"
	logFieldReasonConstant             = "reason"
	logFieldRunIdentifierConstant      = "run_id"
)

var (
	// ErrSyncCancelled marks manifest entries left unprocessed when a sync is cancelled.
	ErrSyncCancelled = errors.New(syncCancelledMessageConstant)
	// ErrInspectorNotConfigured indicates the reconciler was constructed without a repository inspector.
	ErrInspectorNotConfigured = errors.New(inspectorNotConfiguredMessage)
)

// ReconcileAction is the action computed for one manifest entry.
type ReconcileAction struct {
	Kind   ActionKind `json:"kind" yaml:"kind"`
	Path   string     `json:"path" yaml:"path"`
	Remote string     `json:"remote,omitempty" yaml:"remote,omitempty"`
	Branch string     `json:"branch,omitempty" yaml:"branch,omitempty"`
}

// ItemOutcome records the result of executing a ReconcileAction.
type ItemOutcome struct {
	Kind    OutcomeKind         `json:"kind" yaml:"kind"`
	Message string              `json:"message" yaml:"message"`
	Pull    *status.PullOutcome `json:"pull,omitempty" yaml:"pull,omitempty"`
}

// ReconcileItem pairs a manifest entry with its action and either an outcome or a dry-run preview.
type ReconcileItem struct {
	Index   int             `json:"index" yaml:"index"`
	Entry   ManifestEntry   `json:"entry" yaml:"entry"`
	Action  ReconcileAction `json:"action" yaml:"action"`
	Outcome *ItemOutcome    `json:"outcome,omitempty" yaml:"outcome,omitempty"`
	Preview string          `json:"preview,omitempty" yaml:"preview,omitempty"`
}

// ReconcileResult aggregates one reconciliation run. In dry-run mode the counters tally planned actions.
type ReconcileResult struct {
	RunIdentifier  string          `json:"run_id" yaml:"run_id"`
	ManifestPath   string          `json:"manifest_path" yaml:"manifest_path"`
	DryRun         bool            `json:"dry_run" yaml:"dry_run"`
	Items          []ReconcileItem `json:"items" yaml:"items"`
	ManifestErrors []ManifestError `json:"manifest_errors" yaml:"manifest_errors"`
	Cloned         int             `json:"cloned" yaml:"cloned"`
	Pulled         int             `json:"pulled" yaml:"pulled"`
	Skipped        int             `json:"skipped" yaml:"skipped"`
	Failed         int             `json:"failed" yaml:"failed"`
}

// ReconcileOptions controls planning and execution.
type ReconcileOptions struct {
	RunIdentifier   string
	DryRun          bool
	PullExisting    bool
	FetchBeforePull bool
	Workers         int
	Classification  status.ClassificationPolicy
}

// Reconciler turns manifest entries into clone and pull operations.
type Reconciler struct {
	inspector  status.RepositoryInspector
	fileSystem shared.FileSystem
	logger     *zap.Logger
}

// NewReconciler constructs a Reconciler. A nil fileSystem uses the operating system.
func NewReconciler(inspector status.RepositoryInspector, fileSystem shared.FileSystem, logger *zap.Logger) (*Reconciler, error) {
	if inspector == nil {
		return nil, ErrInspectorNotConfigured
	}
	if fileSystem == nil {
		fileSystem = filesystem.OSFileSystem{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{inspector: inspector, fileSystem: fileSystem, logger: logger}, nil
}

// Plan computes the action for each resolved entry, in manifest order. It only inspects path existence.
func (reconciler *Reconciler) Plan(entries []ResolvedEntry, pullExisting bool) []ReconcileAction {
	actions := make([]ReconcileAction, 0, len(entries))
	for _, resolved := range entries {
		action := ReconcileAction{Path: resolved.AbsolutePath, Remote: resolved.Entry.Remote, Branch: resolved.Entry.Branch}
		switch {
		case resolved.Entry.Ignore:
			action.Kind = ActionSkipIgnored
		case !reconciler.pathExists(resolved.AbsolutePath):
			action.Kind = ActionClone
		case pullExisting:
			action.Kind = ActionPull
		default:
			action.Kind = ActionSkipExisting
		}
		actions = append(actions, action)
	}
	return actions
}

// Reconcile plans the resolved entries and, unless options.DryRun is set, executes the plan with at most
// options.Workers concurrent operations. Items are returned in manifest order.
func (reconciler *Reconciler) Reconcile(executionContext context.Context, manifestPath string, entries []ResolvedEntry, manifestErrors []ManifestError, options ReconcileOptions) ReconcileResult {
	logger := reconciler.logger
	if len(options.RunIdentifier) > 0 {
		logger = logger.With(zap.String(logFieldRunIdentifierConstant, options.RunIdentifier))
	}
	logger.Info(reconcileStartedMessageConstant,
		zap.String(logFieldManifestPathConstant, manifestPath),
		zap.Int(logFieldEntryCountConstant, len(entries)),
		zap.Bool(logFieldDryRunConstant, options.DryRun))

	actions := reconciler.Plan(entries, options.PullExisting)
	items := make([]ReconcileItem, len(entries))
	for index, resolved := range entries {
		items[index] = ReconcileItem{Index: resolved.Index, Entry: resolved.Entry, Action: actions[index]}
	}

	if options.DryRun {
		for index := range items {
			items[index].Preview = previewAction(items[index].Action)
		}
	} else {
		reconciler.execute(executionContext, items, options, logger)
	}

	result := ReconcileResult{
		RunIdentifier:  options.RunIdentifier,
		ManifestPath:   manifestPath,
		DryRun:         options.DryRun,
		Items:          items,
		ManifestErrors: append([]ManifestError{}, manifestErrors...),
	}
	tallyResult(&result)

	logger.Info(reconcileFinishedMessageConstant,
		zap.Int(logFieldClonedConstant, result.Cloned),
		zap.Int(logFieldPulledConstant, result.Pulled),
		zap.Int(logFieldSkippedConstant, result.Skipped),
		zap.Int(logFieldFailedConstant, result.Failed))
	return result
}

func (reconciler *Reconciler) execute(executionContext context.Context, items []ReconcileItem, options ReconcileOptions, logger *zap.Logger) {
	workerCount := options.Workers
	if workerCount <= 0 {
		workerCount = defaultWorkerCountConstant
	}
	puller := status.NewAutoPuller(reconciler.inspector, status.AutoPullPolicy{Enabled: true, RequireClean: true}, logger)

	workerGroup := &errgroup.Group{}
	workerGroup.SetLimit(workerCount)
	for index := range items {
		if executionContext.Err() != nil {
			items[index].Outcome = &ItemOutcome{Kind: OutcomeFailed, Message: ErrSyncCancelled.Error()}
			continue
		}
		workerGroup.Go(func() error {
			if executionContext.Err() != nil {
				items[index].Outcome = &ItemOutcome{Kind: OutcomeFailed, Message: ErrSyncCancelled.Error()}
				return nil
			}
			outcome := reconciler.executeAction(executionContext, items[index].Action, options, puller)
			if outcome.Kind == OutcomeFailed {
				logger.Warn(actionFailedMessageConstant,
					zap.String(logFieldRepositoryPathConstant, items[index].Action.Path),
					zap.String(logFieldActionConstant, string(items[index].Action.Kind)),
					zap.String(logFieldReasonConstant, outcome.Message))
			}
			items[index].Outcome = &outcome
			return nil
		})
	}
	_ = workerGroup.Wait()
}

func (reconciler *Reconciler) executeAction(executionContext context.Context, action ReconcileAction, options ReconcileOptions, puller *status.AutoPuller) ItemOutcome {
	switch action.Kind {
	case ActionSkipIgnored:
		return ItemOutcome{Kind: OutcomeSkipped, Message: ignoredMessageConstant}
	case ActionSkipExisting:
		return ItemOutcome{Kind: OutcomeSkipped, Message: existingMessageConstant}
	case ActionClone:
		if cloneError := reconciler.inspector.Clone(executionContext, action.Remote, action.Branch, action.Path); cloneError != nil {
			return ItemOutcome{Kind: OutcomeFailed, Message: fmt.Sprintf(cloneFailedTemplateConstant, cloneError)}
		}
		return ItemOutcome{Kind: OutcomeCloned, Message: fmt.Sprintf(clonedMessageTemplateConstant, action.Remote)}
	default:
		return reconciler.pullExisting(executionContext, action, options, puller)
	}
}

func (reconciler *Reconciler) pullExisting(executionContext context.Context, action ReconcileAction, options ReconcileOptions, puller *status.AutoPuller) ItemOutcome {
	if _, lstatError := reconciler.fileSystem.Lstat(filepath.Join(action.Path, gitMetadataEntryNameConstant)); lstatError != nil {
		return ItemOutcome{Kind: OutcomeFailed, Message: fmt.Sprintf(notRepositoryTemplateConstant, action.Path)}
	}

	if options.FetchBeforePull {
		if fetchError := reconciler.inspector.Fetch(executionContext, action.Path); fetchError != nil {
			return ItemOutcome{Kind: OutcomeFailed, Message: fmt.Sprintf(fetchFailedTemplateConstant, fetchError)}
		}
	}

	snapshot, probeError := reconciler.inspector.Probe(executionContext, action.Path)
	if probeError != nil {
		return ItemOutcome{Kind: OutcomeFailed, Message: ErrSyncCancelled.Error()}
	}
	if snapshot.ProbeError != nil {
		return ItemOutcome{Kind: OutcomeFailed, Message: fmt.Sprintf(probeFailedTemplateConstant, snapshot.ProbeError)}
	}

	report := status.BuildReport(action.Path, snapshot, options.Classification)
	pullOutcome, produced := puller.Apply(executionContext, report)
	if !produced {
		if report.Status == status.RepoStatusNoRemote {
			return ItemOutcome{Kind: OutcomeSkipped, Message: noUpstreamMessageConstant}
		}
		if report.BehindCount == 0 {
			return ItemOutcome{Kind: OutcomeUpToDate, Message: upToDateMessageConstant}
		}
		return ItemOutcome{Kind: OutcomeSkipped, Message: fmt.Sprintf(notEligibleTemplateConstant, report.Status)}
	}

	switch pullOutcome.Kind {
	case status.PullOutcomePulled:
		return ItemOutcome{Kind: OutcomePulled, Message: fmt.Sprintf(pulledMessageTemplateConstant, pullOutcome.FilesChanged), Pull: &pullOutcome}
	case status.PullOutcomeSkipped:
		return ItemOutcome{Kind: OutcomeSkipped, Message: pullOutcome.Reason, Pull: &pullOutcome}
	default:
		return ItemOutcome{Kind: OutcomeFailed, Message: pullOutcome.ErrorMessage, Pull: &pullOutcome}
	}
}

func (reconciler *Reconciler) pathExists(path string) bool {
	_, statError := reconciler.fileSystem.Lstat(path)
	return statError == nil
}

func previewAction(action ReconcileAction) string {
	switch action.Kind {
	case ActionClone:
		if len(action.Branch) > 0 {
			return fmt.Sprintf(previewCloneBranchTemplateConstant, action.Remote, action.Branch, action.Path)
		}
		return fmt.Sprintf(previewCloneTemplateConstant, action.Remote, action.Path)
	case ActionPull:
		return fmt.Sprintf(previewPullTemplateConstant, action.Path)
	case ActionSkipIgnored:
		return ignoredMessageConstant
	default:
		return existingMessageConstant
	}
}

func tallyResult(result *ReconcileResult) {
	for _, item := range result.Items {
		if result.DryRun {
			switch item.Action.Kind {
			case ActionClone:
				result.Cloned++
			case ActionPull:
				result.Pulled++
			default:
				result.Skipped++
			}
			continue
		}
		if item.Outcome == nil {
			continue
		}
		switch item.Outcome.Kind {
		case OutcomeCloned:
			result.Cloned++
		case OutcomePulled:
			result.Pulled++
		case OutcomeFailed:
			result.Failed++
		default:
			result.Skipped++
		}
	}
}
