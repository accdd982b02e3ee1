package views

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"courierdash/ui/tui/state"
	"courierdash/ui/tui/styles"
)

// TableView renders the Topics and Subscriptions pages.
type TableView struct{}

func (v TableView) Render(s state.AppState, props ViewProps) string {
	title := s.CurrentPage.Title()
	help := "[↑/↓] move • [/] filter • [s/S] sort • [d] delete • [esc] back"
	switch {
	case s.CurrentPage == state.PageTopics:
		help = "[↑/↓] move • [enter] subscriptions • [/] filter • [s/S] sort • [d] delete • [esc] back"
	case s.TopicScope != "":
		title = fmt.Sprintf("Subscriptions of %q", s.TopicScope)
	}

	caption := lipgloss.JoinHorizontal(lipgloss.Left,
		lipgloss.NewStyle().Bold(true).PaddingLeft(2).Render(title),
		lipgloss.NewStyle().Foreground(lipgloss.Color("#888")).Render(fmt.Sprintf("  %s shown", props.Count)),
	)

	parts := []string{RenderHeader(s, props), "", caption}
	if props.Filter != "" {
		parts = append(parts, lipgloss.NewStyle().PaddingLeft(2).Render(props.Filter))
	}
	parts = append(parts,
		lipgloss.NewStyle().Padding(1, 2, 0, 2).Render(props.Table),
		styles.HelpStyle.Render(help),
	)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
