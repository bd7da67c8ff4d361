package status

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/repocheck/internal/repos/shared"
	pathutils "github.com/temirov/repocheck/internal/utils/path"
)

const (
	discoveryCompletedMessageConstant  = "discovered repositories"
	scanCompletedMessageConstant       = "scan completed"
	probingRepositoriesMessageConstant = "probing repositories"
	scanInterruptedMessageConstant     = "scan interrupted before all repositories were probed"
	fetchFailedMessageConstant         = "fetch failed; probing local state"
	logFieldRootsConstant              = "roots"
	logFieldRepositoryCountConstant    = "repository_count"
	logFieldWorkerCountConstant        = "workers"
	logFieldPulledCountConstant        = "pull_outcomes"
	logFieldScanErrorCountConstant     = "scan_errors"
	logFieldCancelledCountConstant     = "cancelled"
	inspectorNotConfiguredMessage      = "repository inspector not configured"
	discovererNotConfiguredMessage     = "repository discoverer not configured"
	fetchFactErrorTemplateConstant     = "fetch: %v"
	minimumWorkerCountConstant         = 1
)

var (
	// ErrInspectorNotConfigured indicates the service was constructed without a repository inspector.
	ErrInspectorNotConfigured = errors.New(inspectorNotConfiguredMessage)
	// ErrDiscovererNotConfigured indicates the service was constructed without a repository discoverer.
	ErrDiscovererNotConfigured = errors.New(discovererNotConfiguredMessage)
)

// ScanOptions describes one scan run.
type ScanOptions struct {
	RunIdentifier    string
	Roots            []string
	Discovery        shared.DiscoveryOptions
	Classification   ClassificationPolicy
	AutoPull         AutoPullPolicy
	Workers          int
	FetchBeforeProbe bool
	ResolveCIStatus  bool
}

// Service runs the scan pipeline: discovery, probing, classification, CI lookup and auto-pull.
type Service struct {
	discoverer shared.RepositoryDiscoverer
	inspector  RepositoryInspector
	ciResolver CIStatusResolver
	sanitizer  *pathutils.RepositoryPathSanitizer
	logger     *zap.Logger
}

// NewService constructs a Service. ciResolver may be nil when CI lookups are never requested.
func NewService(discoverer shared.RepositoryDiscoverer, inspector RepositoryInspector, ciResolver CIStatusResolver, logger *zap.Logger) (*Service, error) {
	if discoverer == nil {
		return nil, ErrDiscovererNotConfigured
	}
	if inspector == nil {
		return nil, ErrInspectorNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		discoverer: discoverer,
		inspector:  inspector,
		ciResolver: ciResolver,
		sanitizer:  pathutils.NewRepositoryPathSanitizer(),
		logger:     logger,
	}, nil
}

// Scan discovers repositories beneath the roots and reports each of them. Repositories appear in the
// result in walker order regardless of completion order. When executionContext ends, repositories not
// yet probed are reported as cancelled and the partial result is returned without an error.
func (service *Service) Scan(executionContext context.Context, options ScanOptions) (ScanResult, error) {
	roots := service.sanitizer.Sanitize(options.Roots)
	if len(roots) == 0 {
		return ScanResult{}, ErrNoScanPaths
	}

	discoveryOptions := shared.DiscoveryOptions{
		ExcludePatterns: options.Discovery.ExcludePatterns,
		ExcludePaths:    service.sanitizer.Sanitize(options.Discovery.ExcludePaths),
	}
	repositoryPaths, walkErrors := service.discoverer.DiscoverRepositories(roots, discoveryOptions)

	logger := service.logger
	if len(options.RunIdentifier) > 0 {
		logger = logger.With(zap.String("run_id", options.RunIdentifier))
	}
	logger.Info(discoveryCompletedMessageConstant,
		zap.Strings(logFieldRootsConstant, roots),
		zap.Int(logFieldRepositoryCountConstant, len(repositoryPaths)))

	scanErrors := make([]string, 0, len(walkErrors))
	for _, walkError := range walkErrors {
		scanErrors = append(scanErrors, walkError.Error())
	}

	puller := NewAutoPuller(service.inspector, options.AutoPull, logger)
	reports, outcomes := service.inspectAll(executionContext, repositoryPaths, options, puller, logger)

	pullOutcomes := make([]PullOutcome, 0, len(outcomes))
	cancelledCount := 0
	for index := range repositoryPaths {
		if outcomes[index] != nil {
			pullOutcomes = append(pullOutcomes, *outcomes[index])
		}
		if reports[index].Status == RepoStatusError && reports[index].ErrorMessage == ErrScanCancelled.Error() {
			cancelledCount++
		}
	}
	if cancelledCount > 0 {
		logger.Warn(scanInterruptedMessageConstant, zap.Int(logFieldCancelledCountConstant, cancelledCount))
	}

	logger.Info(scanCompletedMessageConstant,
		zap.Int(logFieldRepositoryCountConstant, len(reports)),
		zap.Int(logFieldPulledCountConstant, len(pullOutcomes)),
		zap.Int(logFieldScanErrorCountConstant, len(scanErrors)))

	return ScanResult{
		RunIdentifier: options.RunIdentifier,
		Roots:         roots,
		Repositories:  reports,
		PullOutcomes:  pullOutcomes,
		ScanErrors:    scanErrors,
		TotalScanned:  len(reports),
	}, nil
}

// Inspect probes and classifies one repository without walking, pulling or consulting CI unless
// options request it.
func (service *Service) Inspect(executionContext context.Context, repositoryPath string, options ScanOptions) (RepoReport, error) {
	if options.FetchBeforeProbe {
		if fetchError := service.inspector.Fetch(executionContext, repositoryPath); fetchError != nil {
			service.logger.Warn(fetchFailedMessageConstant, zap.String(logFieldRepositoryPathConstant, repositoryPath), zap.Error(fetchError))
		}
	}
	snapshot, probeError := service.inspector.Probe(executionContext, repositoryPath)
	if probeError != nil {
		return CancelledReport(repositoryPath), probeError
	}
	report := BuildReport(repositoryPath, snapshot, options.Classification)
	if options.ResolveCIStatus && service.ciResolver != nil && snapshot.ProbeError == nil {
		report.CIStatus = service.ciResolver.ResolveCIStatus(executionContext, repositoryPath)
	}
	return report, nil
}

func (service *Service) inspectAll(executionContext context.Context, repositoryPaths []string, options ScanOptions, puller *AutoPuller, logger *zap.Logger) ([]RepoReport, []*PullOutcome) {
	reports := make([]RepoReport, len(repositoryPaths))
	outcomes := make([]*PullOutcome, len(repositoryPaths))

	workerCount := options.Workers
	if workerCount < minimumWorkerCountConstant {
		workerCount = defaultWorkerCountConstant
	}
	logger.Debug(probingRepositoriesMessageConstant, zap.Int(logFieldWorkerCountConstant, workerCount))

	workerGroup := &errgroup.Group{}
	workerGroup.SetLimit(workerCount)
	for index, repositoryPath := range repositoryPaths {
		if executionContext.Err() != nil {
			reports[index] = CancelledReport(repositoryPath)
			continue
		}
		workerGroup.Go(func() error {
			if executionContext.Err() != nil {
				reports[index] = CancelledReport(repositoryPath)
				return nil
			}
			report, inspectError := service.inspectOne(executionContext, repositoryPath, options)
			if inspectError != nil {
				reports[index] = CancelledReport(repositoryPath)
				return nil
			}
			reports[index] = report
			if outcome, produced := puller.Apply(executionContext, report); produced {
				outcomes[index] = &outcome
			}
			return nil
		})
	}
	_ = workerGroup.Wait()

	return reports, outcomes
}

func (service *Service) inspectOne(executionContext context.Context, repositoryPath string, options ScanOptions) (RepoReport, error) {
	var fetchError error
	if options.FetchBeforeProbe {
		fetchError = service.inspector.Fetch(executionContext, repositoryPath)
	}

	report, inspectError := service.Inspect(executionContext, repositoryPath, ScanOptions{
		Classification:  options.Classification,
		ResolveCIStatus: options.ResolveCIStatus,
	})
	if inspectError != nil {
		return RepoReport{}, inspectError
	}
	if fetchError != nil && report.Status != RepoStatusError {
		report.FactErrors = append(report.FactErrors, fmt.Sprintf(fetchFactErrorTemplateConstant, fetchError))
	}
	return report, nil
}
