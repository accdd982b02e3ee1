package views

import (
	"fmt"
	"math"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"courierdash/internal/poller"
	"courierdash/ui/tui/state"
	"courierdash/ui/tui/styles"
)

const (
	menuListTop   = 6 // first item row, below header and caption
	menuItemRows  = 3 // bordered box height
	menuItemWidth = 44
	hoverRange    = 10.0
)

type MenuView struct{}

func (v MenuView) Render(s state.AppState, props ViewProps) string {
	header := styles.MenuHeaderStyle.Width(props.Width).Render("COURIER // BROKER CONSOLE")

	items := make([]string, len(state.MenuPages))
	for i, p := range state.MenuPages {
		items[i] = zone.Mark(fmt.Sprintf("menu_%d", i), menuItem(i, p, s, props))
	}

	menu := lipgloss.NewStyle().Padding(1, 0).MarginTop(1).Render(lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Bold(true).PaddingLeft(2).Foreground(styles.Brand).Render("BROKER"),
		styles.CaptionStyle.Render(menuCaption(s)),
		lipgloss.JoinVertical(lipgloss.Left, items...),
	))

	footer := lipgloss.NewStyle().PaddingLeft(2).Render(lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Foreground(lipgloss.Color("#666")).Render("Poll interval: "+poller.Label(s.Interval)),
		lipgloss.NewStyle().Foreground(lipgloss.Color("#333")).Render("\n[↑/↓] Navigate • [Enter] Select • [R] Refresh • [+/-] Interval • [Q] Quit"),
	))

	return zone.Scan(lipgloss.JoinVertical(lipgloss.Left, header, menu, footer))
}

// menuItem draws one entry. The spring-animated cursor pops the item out and
// the mouse lightens the border of items near it.
func menuItem(i int, p state.Page, s state.AppState, props ViewProps) string {
	strength := math.Max(0, 1-math.Abs(float64(i)-props.AnimCursor))

	border := lipgloss.TerminalColor(styles.Muted)
	centerY := menuListTop + i*menuItemRows + 1
	if d := math.Abs(float64(props.MouseY - centerY)); d < hoverRange/2 {
		border = lipgloss.Color("#aaa")
	}
	if strength > 0.1 || i == props.MenuCursor {
		border = styles.Brand
	}

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1).
		MarginLeft(2 + int(strength*2)).
		Width(menuItemWidth).
		Foreground(lipgloss.Color("#AAA"))
	if i == props.MenuCursor {
		style = style.Bold(true).Foreground(lipgloss.Color("#FFF"))
	}

	title := fmt.Sprintf("%02d. %s", i+1, p.Title())
	badge := menuBadge(p, s)
	if badge == "" {
		return style.Render(title)
	}
	gap := max(menuItemWidth-4-lipgloss.Width(title)-lipgloss.Width(badge), 1)
	return style.Render(title + fmt.Sprintf("%*s", gap, "") + badge)
}

// menuBadge shows live counts next to the pages that list them.
func menuBadge(p state.Page, s state.AppState) string {
	if s.Dashboard.Empty {
		return ""
	}
	switch p {
	case state.PageStats:
		return ColorForStatus(s.Dashboard.Summary.Severity).Render(s.Dashboard.Summary.Severity)
	case state.PageTopics:
		return fmt.Sprint(s.Snapshot.NumTopics)
	case state.PageSubscriptions:
		return fmt.Sprint(s.Snapshot.NumSubscriptions)
	}
	return ""
}

func menuCaption(s state.AppState) string {
	switch {
	case s.Err != nil:
		return "Unable to reach the broker."
	case s.Dashboard.Empty:
		return "Waiting for the first poll."
	}
	return fmt.Sprintf("%d topics, %d subscriptions, overall %s.",
		s.Snapshot.NumTopics, s.Snapshot.NumSubscriptions, s.Dashboard.Summary.Severity)
}
