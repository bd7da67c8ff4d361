package report

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/temirov/repocheck/internal/reconcile"
	"github.com/temirov/repocheck/internal/status"
	flagutils "github.com/temirov/repocheck/internal/utils/flags"
)

// Format selects the encoding of rendered results.
type Format string

// Supported output formats.
const (
	FormatTable Format = Format("table")
	FormatJSON  Format = Format("json")
	FormatYAML  Format = Format("yaml")
)

const (
	outputFormatSubjectConstant     = "output format"
	homeShortcutPrefixConstant      = "~/"
	emptyCellConstant               = "-"
	countSeparatorConstant          = " "
	divergenceSeparatorConstant     = "/"
	modifiedSuffixConstant          = "M"
	untrackedSuffixConstant         = "?"
	aheadPrefixConstant             = "+"
	behindPrefixConstant            = "-"
	jsonIndentConstant              = "  "
	yamlIndentConstant              = 2
	pathHeaderConstant              = "Path"
	branchHeaderConstant            = "Branch"
	statusHeaderConstant            = "Status"
	changesHeaderConstant           = "Changes"
	divergenceHeaderConstant        = "Ahead/Behind"
	ciHeaderConstant                = "CI"
	detachedBranchConstant          = "(detached)"
	scanSummaryTemplateConstant     = "Scanned %d repositories\n"
	scanBreakdownTemplateConstant   = "  %s clean, %s dirty, %s with warnings\n"
	noRepositoriesMessageConstant   = "No repositories found."
	warningsTitleConstant           = "Warnings"
	warningLineTemplateConstant     = "  %s %s: %s\n"
	pulledTitleTemplateConstant     = "Pulled %d repo(s)"
	skippedTitleTemplateConstant    = "Skipped pulling %d repo(s)"
	failedTitleTemplateConstant     = "Failed to pull %d repo(s)"
	pulledLineTemplateConstant      = "  %s %s: %d files changed, behind %d -> %d\n"
	outcomeLineTemplateConstant     = "  %s %s: %s\n"
	scanErrorsTitleConstant         = "Scan errors"
	scanErrorLineTemplateConstant   = "  %s %s\n"
	quietLineTemplateConstant       = "%s %s (%s)\n"
	quietDirtyLabelConstant         = "dirty"
	quietWarningLabelConstant       = "warn"
	syncHeaderTemplateConstant      = "Syncing %d tracked repositories\n\n"
	dryRunHeaderTemplateConstant    = "Dry run: %d tracked repositories, nothing will be changed\n\n"
	manifestErrorsTitleConstant     = "Manifest errors"
	summaryLabelConstant            = "Summary:"
	summaryPartSeparatorConstant    = ", "
	nothingToDoMessageConstant      = "nothing to do"
	summaryClonedTemplateConstant   = "%d cloned"
	summaryPulledTemplateConstant   = "%d pulled"
	summarySkippedTemplateConstant  = "%d skipped"
	summaryFailedTemplateConstant   = "%d failed"
	plannedClonesTemplateConstant   = "%d to clone"
	plannedPullsTemplateConstant    = "%d to pull"
	plannedSkipsTemplateConstant    = "%d to skip"
	warningMarkerConstant           = "!"
	successMarkerConstant           = "+"
	pulledMarkerConstant            = "↓"
	failureMarkerConstant           = "x"
	skippedMarkerConstant           = "·"
	previewMarkerConstant           = "~"
	unknownWarningTemplateConstant  = "%s"
	dirtyMainWarningMessageConstant = "Uncommitted changes on main branch"
	noRemoteWarningMessageConstant  = "No upstream remote configured"
	detachedWarningMessageConstant  = "Detached HEAD state"
	hasStashWarningMessageConstant  = "Stashed changes present"
	noRemoteStatusLabelConstant     = "no remote"
	newlineConstant                 = "\n"
)

var warningMessages = map[status.Warning]string{
	status.WarningDirtyMain: dirtyMainWarningMessageConstant,
	status.WarningNoRemote:  noRemoteWarningMessageConstant,
	status.WarningDetached:  detachedWarningMessageConstant,
	status.WarningHasStash:  hasStashWarningMessageConstant,
}

// FormatChoices lists the accepted --output values.
func FormatChoices() []string {
	return []string{string(FormatTable), string(FormatJSON), string(FormatYAML)}
}

// ParseFormat validates an --output value.
func ParseFormat(value string) (Format, error) {
	choice, parseError := flagutils.ParseChoice(outputFormatSubjectConstant, value, FormatChoices())
	if parseError != nil {
		return "", parseError
	}
	return Format(choice), nil
}

// ScanRenderOptions controls the table rendering of scan results. Machine formats always carry every repository.
type ScanRenderOptions struct {
	ShowClean bool
	Quiet     bool
}

// Renderer writes scan, check and sync results to an output stream.
type Renderer struct {
	writer        io.Writer
	format        Format
	homeDirectory string
	palette       palette
}

// NewRenderer constructs a Renderer. homeDirectory, when set, shortens displayed paths to ~/ form.
func NewRenderer(writer io.Writer, format Format, homeDirectory string) *Renderer {
	if len(format) == 0 {
		format = FormatTable
	}
	return &Renderer{
		writer:        writer,
		format:        format,
		homeDirectory: filepath.Clean(homeDirectory),
		palette:       newPalette(lipgloss.NewRenderer(writer)),
	}
}

// RenderScan writes a scan result.
func (renderer *Renderer) RenderScan(result status.ScanResult, options ScanRenderOptions) error {
	switch renderer.format {
	case FormatJSON:
		return renderer.encodeJSON(result)
	case FormatYAML:
		return renderer.encodeYAML(result)
	}

	var builder strings.Builder
	if options.Quiet {
		renderer.writeQuietScan(&builder, result.Repositories)
		_, writeError := io.WriteString(renderer.writer, builder.String())
		return writeError
	}

	renderer.writeScanSummary(&builder, result)

	visibleReports := filterReports(result.Repositories, options.ShowClean)
	if len(visibleReports) > 0 {
		builder.WriteString(renderer.repositoryTable(visibleReports))
		builder.WriteString(newlineConstant)
	}
	renderer.writeWarnings(&builder, result.Repositories)
	renderer.writePullOutcomes(&builder, result.PullOutcomes)
	renderer.writeScanErrors(&builder, result.ScanErrors)

	_, writeError := io.WriteString(renderer.writer, builder.String())
	return writeError
}

// RenderReport writes a single repository report.
func (renderer *Renderer) RenderReport(report status.RepoReport) error {
	switch renderer.format {
	case FormatJSON:
		return renderer.encodeJSON(report)
	case FormatYAML:
		return renderer.encodeYAML(report)
	}

	var builder strings.Builder
	builder.WriteString(renderer.repositoryTable([]status.RepoReport{report}))
	builder.WriteString(newlineConstant)
	renderer.writeWarnings(&builder, []status.RepoReport{report})

	_, writeError := io.WriteString(renderer.writer, builder.String())
	return writeError
}

// RenderReconcile writes a sync result. Quiet hides skipped and up-to-date items and the summary.
func (renderer *Renderer) RenderReconcile(result reconcile.ReconcileResult, quiet bool) error {
	switch renderer.format {
	case FormatJSON:
		return renderer.encodeJSON(result)
	case FormatYAML:
		return renderer.encodeYAML(result)
	}

	var builder strings.Builder
	if !quiet {
		if result.DryRun {
			fmt.Fprintf(&builder, dryRunHeaderTemplateConstant, len(result.Items))
		} else {
			fmt.Fprintf(&builder, syncHeaderTemplateConstant, len(result.Items))
		}
	}

	for _, item := range result.Items {
		renderer.writeReconcileItem(&builder, item, quiet)
	}

	if len(result.ManifestErrors) > 0 {
		builder.WriteString(newlineConstant)
		builder.WriteString(renderer.palette.warning.Bold(true).Render(manifestErrorsTitleConstant))
		builder.WriteString(newlineConstant)
		for _, manifestError := range result.ManifestErrors {
			fmt.Fprintf(&builder, scanErrorLineTemplateConstant, renderer.palette.warning.Render(warningMarkerConstant), manifestError.Error())
		}
	}

	if !quiet {
		builder.WriteString(newlineConstant)
		builder.WriteString(renderer.palette.bold.Render(summaryLabelConstant))
		builder.WriteString(countSeparatorConstant)
		builder.WriteString(renderer.reconcileSummary(result))
		builder.WriteString(newlineConstant)
	}

	_, writeError := io.WriteString(renderer.writer, builder.String())
	return writeError
}

// DisplayPath shortens paths beneath the home directory to ~/ form.
func (renderer *Renderer) DisplayPath(path string) string {
	if len(renderer.homeDirectory) == 0 || renderer.homeDirectory == "." {
		return path
	}
	relativePath, relativeError := filepath.Rel(renderer.homeDirectory, path)
	if relativeError != nil || relativePath == "." || relativePath == ".." || strings.HasPrefix(relativePath, ".."+string(filepath.Separator)) {
		return path
	}
	return homeShortcutPrefixConstant + filepath.ToSlash(relativePath)
}

func (renderer *Renderer) repositoryTable(reports []status.RepoReport) string {
	includeCI := false
	for _, report := range reports {
		if len(report.CIStatus) > 0 {
			includeCI = true
			break
		}
	}

	headers := []string{pathHeaderConstant, branchHeaderConstant, statusHeaderConstant, changesHeaderConstant, divergenceHeaderConstant}
	if includeCI {
		headers = append(headers, ciHeaderConstant)
	}

	rows := make([][]string, 0, len(reports))
	for _, report := range reports {
		branch := report.Branch
		if report.Detached && len(branch) == 0 {
			branch = detachedBranchConstant
		}
		row := []string{
			renderer.DisplayPath(report.Path),
			branch,
			renderer.palette.statusStyle(report.Status).Render(statusLabel(report.Status)),
			FormatChanges(report),
			FormatDivergence(report),
		}
		if includeCI {
			ciCell := string(report.CIStatus)
			if len(ciCell) == 0 {
				ciCell = emptyCellConstant
			}
			row = append(row, renderer.palette.ciStyle(report.CIStatus).Render(ciCell))
		}
		rows = append(rows, row)
	}

	headerStyle := renderer.palette.header
	cellStyle := renderer.palette.cell
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(renderer.palette.dim).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row int, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		String()
}

func (renderer *Renderer) writeScanSummary(builder *strings.Builder, result status.ScanResult) {
	cleanCount, dirtyCount, warningCount := 0, 0, 0
	for _, report := range result.Repositories {
		switch report.Status {
		case status.RepoStatusClean:
			cleanCount++
		case status.RepoStatusDirty:
			dirtyCount++
		}
		if len(report.Warnings) > 0 {
			warningCount++
		}
	}

	fmt.Fprintf(builder, scanSummaryTemplateConstant, result.TotalScanned)
	fmt.Fprintf(builder, scanBreakdownTemplateConstant,
		renderer.palette.success.Render(strconv.Itoa(cleanCount)),
		renderer.palette.failure.Render(strconv.Itoa(dirtyCount)),
		renderer.palette.warning.Render(strconv.Itoa(warningCount)))
	builder.WriteString(newlineConstant)
	if result.TotalScanned == 0 {
		builder.WriteString(noRepositoriesMessageConstant)
		builder.WriteString(newlineConstant)
	}
}

func (renderer *Renderer) writeQuietScan(builder *strings.Builder, reports []status.RepoReport) {
	for _, report := range reports {
		if report.Status == status.RepoStatusDirty {
			fmt.Fprintf(builder, quietLineTemplateConstant, renderer.palette.failure.Render(quietDirtyLabelConstant), renderer.DisplayPath(report.Path), report.Branch)
		}
	}
	for _, report := range reports {
		if report.Status != status.RepoStatusDirty && len(report.Warnings) > 0 {
			fmt.Fprintf(builder, quietLineTemplateConstant, renderer.palette.warning.Render(quietWarningLabelConstant), renderer.DisplayPath(report.Path), report.Branch)
		}
	}
}

func (renderer *Renderer) writeWarnings(builder *strings.Builder, reports []status.RepoReport) {
	lines := make([]string, 0)
	for _, report := range reports {
		for _, warning := range report.Warnings {
			lines = append(lines, fmt.Sprintf(warningLineTemplateConstant, renderer.palette.warning.Render(warningMarkerConstant), renderer.DisplayPath(report.Path), WarningMessage(warning)))
		}
	}
	if len(lines) == 0 {
		return
	}
	builder.WriteString(renderer.palette.warning.Bold(true).Render(warningsTitleConstant))
	builder.WriteString(newlineConstant)
	for _, line := range lines {
		builder.WriteString(line)
	}
}

func (renderer *Renderer) writePullOutcomes(builder *strings.Builder, outcomes []status.PullOutcome) {
	grouped := map[status.PullOutcomeKind][]status.PullOutcome{}
	for _, outcome := range outcomes {
		grouped[outcome.Kind] = append(grouped[outcome.Kind], outcome)
	}

	if pulled := grouped[status.PullOutcomePulled]; len(pulled) > 0 {
		builder.WriteString(newlineConstant)
		builder.WriteString(renderer.palette.success.Render(fmt.Sprintf(pulledTitleTemplateConstant, len(pulled))))
		builder.WriteString(newlineConstant)
		for _, outcome := range pulled {
			fmt.Fprintf(builder, pulledLineTemplateConstant, renderer.palette.success.Render(successMarkerConstant), renderer.DisplayPath(outcome.Path), outcome.FilesChanged, outcome.OldBehindCount, outcome.NewBehindCount)
		}
	}
	if skipped := grouped[status.PullOutcomeSkipped]; len(skipped) > 0 {
		builder.WriteString(newlineConstant)
		builder.WriteString(renderer.palette.dim.Render(fmt.Sprintf(skippedTitleTemplateConstant, len(skipped))))
		builder.WriteString(newlineConstant)
		for _, outcome := range skipped {
			fmt.Fprintf(builder, outcomeLineTemplateConstant, renderer.palette.dim.Render(skippedMarkerConstant), renderer.DisplayPath(outcome.Path), outcome.Reason)
		}
	}
	if failed := grouped[status.PullOutcomeFailed]; len(failed) > 0 {
		builder.WriteString(newlineConstant)
		builder.WriteString(renderer.palette.failure.Render(fmt.Sprintf(failedTitleTemplateConstant, len(failed))))
		builder.WriteString(newlineConstant)
		for _, outcome := range failed {
			fmt.Fprintf(builder, outcomeLineTemplateConstant, renderer.palette.failure.Render(failureMarkerConstant), renderer.DisplayPath(outcome.Path), outcome.ErrorMessage)
		}
	}
}

func (renderer *Renderer) writeScanErrors(builder *strings.Builder, scanErrors []string) {
	if len(scanErrors) == 0 {
		return
	}
	builder.WriteString(newlineConstant)
	builder.WriteString(renderer.palette.failure.Render(scanErrorsTitleConstant))
	builder.WriteString(newlineConstant)
	for _, scanError := range scanErrors {
		fmt.Fprintf(builder, scanErrorLineTemplateConstant, renderer.palette.failure.Render(failureMarkerConstant), scanError)
	}
}

func (renderer *Renderer) writeReconcileItem(builder *strings.Builder, item reconcile.ReconcileItem, quiet bool) {
	displayPath := renderer.DisplayPath(item.Action.Path)
	if item.Outcome == nil {
		if quiet && (item.Action.Kind == reconcile.ActionSkipIgnored || item.Action.Kind == reconcile.ActionSkipExisting) {
			return
		}
		fmt.Fprintf(builder, outcomeLineTemplateConstant, renderer.palette.dim.Render(previewMarkerConstant), displayPath, item.Preview)
		return
	}

	switch item.Outcome.Kind {
	case reconcile.OutcomeCloned:
		fmt.Fprintf(builder, outcomeLineTemplateConstant, renderer.palette.success.Render(successMarkerConstant), displayPath, item.Outcome.Message)
	case reconcile.OutcomePulled:
		fmt.Fprintf(builder, outcomeLineTemplateConstant, renderer.palette.accent.Render(pulledMarkerConstant), displayPath, item.Outcome.Message)
	case reconcile.OutcomeFailed:
		fmt.Fprintf(builder, outcomeLineTemplateConstant, renderer.palette.failure.Render(failureMarkerConstant), displayPath, item.Outcome.Message)
	default:
		if quiet {
			return
		}
		fmt.Fprintf(builder, outcomeLineTemplateConstant, renderer.palette.dim.Render(skippedMarkerConstant), displayPath, item.Outcome.Message)
	}
}

func (renderer *Renderer) reconcileSummary(result reconcile.ReconcileResult) string {
	parts := make([]string, 0, 4)
	if result.DryRun {
		if result.Cloned > 0 {
			parts = append(parts, renderer.palette.success.Render(fmt.Sprintf(plannedClonesTemplateConstant, result.Cloned)))
		}
		if result.Pulled > 0 {
			parts = append(parts, renderer.palette.accent.Render(fmt.Sprintf(plannedPullsTemplateConstant, result.Pulled)))
		}
		if result.Skipped > 0 {
			parts = append(parts, renderer.palette.dim.Render(fmt.Sprintf(plannedSkipsTemplateConstant, result.Skipped)))
		}
	} else {
		if result.Cloned > 0 {
			parts = append(parts, renderer.palette.success.Render(fmt.Sprintf(summaryClonedTemplateConstant, result.Cloned)))
		}
		if result.Pulled > 0 {
			parts = append(parts, renderer.palette.accent.Render(fmt.Sprintf(summaryPulledTemplateConstant, result.Pulled)))
		}
		if result.Skipped > 0 {
			parts = append(parts, renderer.palette.dim.Render(fmt.Sprintf(summarySkippedTemplateConstant, result.Skipped)))
		}
		if result.Failed > 0 {
			parts = append(parts, renderer.palette.failure.Render(fmt.Sprintf(summaryFailedTemplateConstant, result.Failed)))
		}
	}
	if len(parts) == 0 {
		return nothingToDoMessageConstant
	}
	return strings.Join(parts, summaryPartSeparatorConstant)
}

func (renderer *Renderer) encodeJSON(value any) error {
	encoder := json.NewEncoder(renderer.writer)
	encoder.SetIndent("", jsonIndentConstant)
	return encoder.Encode(value)
}

func (renderer *Renderer) encodeYAML(value any) error {
	encoder := yaml.NewEncoder(renderer.writer)
	encoder.SetIndent(yamlIndentConstant)
	if encodeError := encoder.Encode(value); encodeError != nil {
		return encodeError
	}
	return encoder.Close()
}

// FormatChanges renders modified and untracked counts as "2M 1?", or "-" when the worktree is clean.
func FormatChanges(report status.RepoReport) string {
	parts := make([]string, 0, 2)
	if report.ModifiedCount > 0 {
		parts = append(parts, strconv.Itoa(report.ModifiedCount)+modifiedSuffixConstant)
	}
	if report.UntrackedCount > 0 {
		parts = append(parts, strconv.Itoa(report.UntrackedCount)+untrackedSuffixConstant)
	}
	if len(parts) == 0 {
		return emptyCellConstant
	}
	return strings.Join(parts, countSeparatorConstant)
}

// FormatDivergence renders ahead and behind counts as "+2/-3", or "-" when in sync.
func FormatDivergence(report status.RepoReport) string {
	parts := make([]string, 0, 2)
	if report.AheadCount > 0 {
		parts = append(parts, aheadPrefixConstant+strconv.Itoa(report.AheadCount))
	}
	if report.BehindCount > 0 {
		parts = append(parts, behindPrefixConstant+strconv.Itoa(report.BehindCount))
	}
	if len(parts) == 0 {
		return emptyCellConstant
	}
	return strings.Join(parts, divergenceSeparatorConstant)
}

// WarningMessage returns the human-readable description of a warning.
func WarningMessage(warning status.Warning) string {
	if message, known := warningMessages[warning]; known {
		return message
	}
	return fmt.Sprintf(unknownWarningTemplateConstant, warning)
}

func statusLabel(repositoryStatus status.RepoStatus) string {
	if repositoryStatus == status.RepoStatusNoRemote {
		return noRemoteStatusLabelConstant
	}
	return string(repositoryStatus)
}

func filterReports(reports []status.RepoReport, showClean bool) []status.RepoReport {
	if showClean {
		return reports
	}
	filtered := make([]status.RepoReport, 0, len(reports))
	for _, report := range reports {
		if report.Status == status.RepoStatusClean && len(report.Warnings) == 0 {
			continue
		}
		filtered = append(filtered, report)
	}
	return filtered
}
