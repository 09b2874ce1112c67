package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/mohammed-shakir/layer-report-client/internal/status"
)

type Styles struct {
	Title    lipgloss.Style
	Pane     lipgloss.Style
	Focused  lipgloss.Style
	Cursor   lipgloss.Style
	Dim      lipgloss.Style
	Disabled lipgloss.Style
	Kinds    map[status.Kind]lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		Pane:     lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1),
		Focused:  lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("39")).Padding(0, 1),
		Cursor:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		Dim:      lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		Disabled: lipgloss.NewStyle().Foreground(lipgloss.Color("238")).Strikethrough(true),
		Kinds: map[status.Kind]lipgloss.Style{
			status.KindInfo:     lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
			status.KindBusy:     lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
			status.KindSuccess:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
			status.KindDegraded: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
			status.KindError:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		},
	}
}

func (s Styles) pane(focused bool) lipgloss.Style {
	if focused {
		return s.Focused
	}
	return s.Pane
}
