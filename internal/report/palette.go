package report

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/temirov/repocheck/internal/status"
)

const (
	colorGreenConstant   = "2"
	colorRedConstant     = "1"
	colorYellowConstant  = "3"
	colorMagentaConstant = "5"
	colorCyanConstant    = "6"
	colorBlueConstant    = "12"
	colorGrayConstant    = "241"
)

type palette struct {
	header   lipgloss.Style
	cell     lipgloss.Style
	bold     lipgloss.Style
	dim      lipgloss.Style
	success  lipgloss.Style
	failure  lipgloss.Style
	warning  lipgloss.Style
	accent   lipgloss.Style
	statuses map[status.RepoStatus]lipgloss.Style
	ci       map[status.CIStatus]lipgloss.Style
}

// newPalette builds styles bound to the output's color profile; non-terminal writers get plain text.
func newPalette(renderer *lipgloss.Renderer) palette {
	foreground := func(color string) lipgloss.Style {
		return renderer.NewStyle().Foreground(lipgloss.Color(color))
	}

	failure := foreground(colorRedConstant)
	return palette{
		header:  renderer.NewStyle().Bold(true).Foreground(lipgloss.Color(colorBlueConstant)).Padding(0, 1),
		cell:    renderer.NewStyle().Padding(0, 1),
		bold:    renderer.NewStyle().Bold(true),
		dim:     foreground(colorGrayConstant),
		success: foreground(colorGreenConstant),
		failure: failure,
		warning: foreground(colorYellowConstant),
		accent:  foreground(colorCyanConstant),
		statuses: map[status.RepoStatus]lipgloss.Style{
			status.RepoStatusClean:     foreground(colorGreenConstant),
			status.RepoStatusDirty:     failure,
			status.RepoStatusUntracked: foreground(colorYellowConstant),
			status.RepoStatusAhead:     foreground(colorCyanConstant),
			status.RepoStatusBehind:    foreground(colorMagentaConstant),
			status.RepoStatusDiverged:  failure.Bold(true),
			status.RepoStatusNoRemote:  renderer.NewStyle().Faint(true),
			status.RepoStatusError:     failure.Bold(true),
		},
		ci: map[status.CIStatus]lipgloss.Style{
			status.CIStatusPassing: foreground(colorGreenConstant),
			status.CIStatusFailing: failure,
			status.CIStatusPending: foreground(colorYellowConstant),
		},
	}
}

func (palette palette) statusStyle(repositoryStatus status.RepoStatus) lipgloss.Style {
	if style, known := palette.statuses[repositoryStatus]; known {
		return style
	}
	return palette.cell.UnsetPadding()
}

func (palette palette) ciStyle(ciStatus status.CIStatus) lipgloss.Style {
	if style, known := palette.ci[ciStatus]; known {
		return style
	}
	return palette.dim
}
