package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"courierdash/ui/tui/state"
)

// ConsoleView shows the most recent log lines, oldest first.
type ConsoleView struct{}

// ClampScroll bounds scrollY so the last page of lines stays visible.
func ClampScroll(scrollY, totalLines, availableHeight int) int {
	scrollY = min(scrollY, totalLines-availableHeight)
	return max(scrollY, 0)
}

func (v ConsoleView) Render(s state.AppState, props ViewProps) string {
	header := RenderHeader(s, props)

	availableHeight := max(props.Height-lipgloss.Height(header)-4, 1)

	lines := props.Console
	totalLines := len(lines)
	scrollY := ClampScroll(props.ScrollY, totalLines, availableHeight)
	end := min(scrollY+availableHeight, totalLines)

	content := "No log lines yet."
	if totalLines > 0 {
		content = strings.Join(lines[scrollY:end], "\n")
	}

	box := lipgloss.NewStyle().
		Width(max(props.Width-4, 10)).
		Height(availableHeight).
		Padding(0, 1).
		Render(content)

	footerText := fmt.Sprintf("Scroll: %d/%d • Press 'esc' to go back", scrollY, totalLines)
	if totalLines > availableHeight {
		footerText += " • Use ↑/↓ to scroll"
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.NewStyle().Padding(1, 2).Render(box),
		lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("#555")).Render(footerText),
	)
}
