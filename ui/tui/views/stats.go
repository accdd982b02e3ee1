package views

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	zone "github.com/lrstanley/bubblezone"

	"courierdash/ui/tui/state"
	"courierdash/ui/tui/styles"
)

type StatsView struct{}

func (v StatsView) Render(s state.AppState, props ViewProps) string {
	header := RenderHeader(s, props)
	dash := s.Dashboard

	if dash.Empty {
		msg := "Waiting for the first poll..."
		if s.Err != nil {
			msg = "No data. The broker could not be reached."
		}
		return lipgloss.JoinVertical(lipgloss.Left,
			header,
			styles.CardStyle.Render(msg),
			styles.HelpStyle.Render("[r] refresh • [+/-] interval • [esc] back • [q] quit"),
		)
	}

	grid := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(styles.Highlight)).
		Headers(append([]string{""}, dash.Stats.Columns...)...).
		StyleFunc(func(row, col int) lipgloss.Style {
			st := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow || col == 0 {
				return st.Bold(true)
			}
			return st.Align(lipgloss.Right)
		})
	for _, r := range dash.Stats.Rows {
		grid.Row(append([]string{r.Label}, r.Cells...)...)
	}

	var health []string
	for _, sec := range dash.Sections {
		if len(sec.Items) == 0 {
			continue
		}
		health = append(health, lipgloss.NewStyle().Bold(true).Render(sec.Title), RenderSection(sec), "")
	}
	healthCard := styles.CardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, health...))

	chartCard := zone.Mark("rate_chart", styles.CardStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.NewStyle().Bold(true).Render("Messages published per poll"),
			props.ChartView,
		),
	))

	summary := ColorForStatus(dash.Summary.Severity).Render("Overall: " + dash.Summary.Severity)

	return zone.Scan(lipgloss.JoinVertical(lipgloss.Left,
		header,
		grid.Render(),
		lipgloss.JoinHorizontal(lipgloss.Top, healthCard, chartCard),
		lipgloss.NewStyle().PaddingLeft(2).Render(summary),
		styles.HelpStyle.Render("[r] refresh • [+/-] interval • [esc] back • [q] quit"),
	))
}
