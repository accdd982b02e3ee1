package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"courierdash/internal/engine"
	"courierdash/internal/output"
	"courierdash/ui/tui/styles"
)

func ColorForStatus(status string) lipgloss.Style {
	sStyle := styles.StatusStyle
	switch status {
	case engine.StatusWarning:
		return sStyle.Foreground(styles.Gold)
	case engine.StatusCritical:
		return sStyle.Foreground(styles.Red)
	}
	return sStyle.Foreground(styles.Lime)
}

// RenderSection lists a health section, one check per line.
func RenderSection(sec output.Section) string {
	var b strings.Builder
	for _, item := range sec.Items {
		val := item.Note
		if item.Status != "" {
			val = ColorForStatus(item.Status).Render(fmt.Sprintf("%s [%s]", val, item.Status))
		}
		fmt.Fprintf(&b, "%-28s : %s\n", item.Label, val)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
