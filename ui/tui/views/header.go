package views

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"courierdash/internal/poller"
	"courierdash/ui/tui/state"
	"courierdash/ui/tui/styles"
)

// RenderHeader is the line shared by every page: spinner, title, uptime,
// poll interval and last update, followed by the notice or delete prompt.
func RenderHeader(s state.AppState, props ViewProps) string {
	spin := "  "
	if s.Updating {
		spin = props.SpinnerView
	}

	last := "never"
	if !s.LastUpdate.IsZero() {
		last = s.LastUpdate.Local().Format("15:04:05")
	}
	info := fmt.Sprintf("up %s • every %s • updated %s", props.Uptime, poller.Label(s.Interval), last)

	lines := []string{lipgloss.JoinHorizontal(lipgloss.Left,
		spin,
		styles.TitleStyle.Render("Courier // "+s.CurrentPage.Title()),
		lipgloss.NewStyle().Foreground(lipgloss.Color("#888")).Render(info),
	)}

	switch {
	case s.Confirm != nil:
		lines = append(lines, styles.ErrorBanner.Render(fmt.Sprintf("Delete %s %q? [y/n]", s.Confirm.Kind, s.Confirm.Name)))
	case s.Notice != nil:
		lines = append(lines, noticeStyle(s.Notice.Level).Render(s.Notice.Text))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func noticeStyle(level state.NoticeLevel) lipgloss.Style {
	switch level {
	case state.NoticeSuccess:
		return styles.SuccessBanner
	case state.NoticeError:
		return styles.ErrorBanner
	default:
		return styles.InfoBanner
	}
}
