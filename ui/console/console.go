package console

import (
	"fmt"
	"io"
	"strings"

	"courierdash/internal/engine"
	"courierdash/internal/output"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

// Print renders the dashboard view to the writer in a compact format.
func Print(w io.Writer, view output.DashboardView) {
	fmt.Fprintf(w, "%s■ COURIER REPORT%s", colorCyan, colorReset)
	if view.Uptime != "" {
		fmt.Fprintf(w, "  up %s", view.Uptime)
	}
	fmt.Fprintln(w)

	if view.Empty {
		fmt.Fprintf(w, "  %sno data%s\n\n", colorYellow, colorReset)
		return
	}

	printStats(w, view.Stats)
	printTable(w, "Topics", view.Topics)
	printTable(w, "Subscriptions", view.Subscriptions)

	for _, sec := range view.Sections {
		if len(sec.Items) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s%s%s\n", colorCyan, "─ "+sec.Title, colorReset)

		for _, it := range sec.Items {
			// Compact Label (max 20 chars)
			label := it.Label
			if len(label) > 20 {
				label = label[:17] + "..."
			}

			valStr := it.Note
			if len(valStr) > 25 {
				valStr = valStr[:22] + "..."
			}

			dots := strings.Repeat("·", 22-len(label))
			fmt.Fprintf(w, "  %s%s %10s%s\n", label, colorCyan+dots+colorReset, valStr, marker(it.Status))
		}
	}

	printSummary(w, view.Summary)
}

func printStats(w io.Writer, stats output.StatsTable) {
	fmt.Fprintf(w, "%s─ Stats%s\n", colorCyan, colorReset)
	fmt.Fprintf(w, "  %-9s", "")
	for _, col := range stats.Columns {
		fmt.Fprintf(w, " %*s", cellWidth(col), col)
	}
	fmt.Fprintln(w)
	for _, row := range stats.Rows {
		fmt.Fprintf(w, "  %-9s", row.Label)
		for i, cell := range row.Cells {
			fmt.Fprintf(w, " %*s", cellWidth(stats.Columns[i]), cell)
		}
		fmt.Fprintln(w)
	}
}

func cellWidth(col string) int {
	return max(len(col), 6)
}

// printTable writes the table with columns sized to their widest cell.
func printTable(w io.Writer, title string, t output.Table) {
	fmt.Fprintf(w, "%s─ %s (%d)%s\n", colorCyan, title, len(t.Rows), colorReset)
	if len(t.Rows) == 0 {
		return
	}

	widths := make([]int, len(t.Columns))
	for i, col := range t.Columns {
		widths[i] = len(col)
	}
	for _, r := range t.Rows {
		for i, cell := range r.Cells {
			widths[i] = max(widths[i], len(cell))
		}
	}

	line := func(cells []string) {
		fmt.Fprint(w, " ")
		for i, cell := range cells {
			fmt.Fprintf(w, " %-*s", widths[i], cell)
		}
		fmt.Fprintln(w)
	}
	line(t.Columns)
	for _, r := range t.Rows {
		line(r.Cells)
	}
}

func printSummary(w io.Writer, s engine.Summary) {
	fmt.Fprintf(w, "%s─ Summary%s: %s%s%s | %d warning(s), %d critical\n",
		colorCyan, colorReset, colorFor(s.Severity), s.Severity, colorReset, s.Warnings, s.Criticals)
	for _, e := range s.Explanations {
		fmt.Fprintf(w, "  - %s\n", e)
	}
	fmt.Fprintln(w)
}

func marker(status string) string {
	switch status {
	case engine.StatusHealthy:
		return fmt.Sprintf(" %s✓%s", colorGreen, colorReset)
	case engine.StatusWarning:
		return fmt.Sprintf(" %s!%s", colorYellow, colorReset)
	case engine.StatusCritical:
		return fmt.Sprintf(" %sX%s", colorRed, colorReset)
	}
	return ""
}

func colorFor(status string) string {
	switch status {
	case engine.StatusWarning:
		return colorYellow
	case engine.StatusCritical:
		return colorRed
	default:
		return colorGreen
	}
}
