package components

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"courierdash/internal/output"
	"courierdash/ui/tui/styles"
)

const maxColumnWidth = 32

// DataTable shows an output.Table with a filter line and a sort column.
type DataTable struct {
	table     table.Model
	filter    textinput.Model
	source    output.Table
	rows      []output.Row
	sortCol   int
	ascending bool
}

func NewDataTable() *DataTable {
	fi := textinput.New()
	fi.Prompt = "/ "
	fi.Placeholder = "filter"
	fi.CharLimit = 64

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.Highlight).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFF7DB")).
		Background(styles.Highlight)

	t := table.New(table.WithFocused(true), table.WithHeight(10))
	t.SetStyles(s)

	return &DataTable{table: t, filter: fi, ascending: true}
}

// SetSource replaces the table contents, keeping filter, sort and cursor.
func (d *DataTable) SetSource(src output.Table) {
	d.source = src
	if d.sortCol >= len(src.Columns) {
		d.sortCol = 0
	}
	d.refresh()
}

func (d *DataTable) refresh() {
	d.rows = d.source.View(d.filter.Value(), d.sortCol, d.ascending)

	cols := make([]table.Column, len(d.source.Columns))
	for i, title := range d.source.Columns {
		if i == d.sortCol {
			title += map[bool]string{true: " ▲", false: " ▼"}[d.ascending]
		}
		w := lipgloss.Width(title)
		for _, r := range d.rows {
			w = max(w, lipgloss.Width(r.Cells[i]))
		}
		cols[i] = table.Column{Title: title, Width: min(w, maxColumnWidth)}
	}

	rows := make([]table.Row, len(d.rows))
	for i, r := range d.rows {
		rows[i] = table.Row(r.Cells)
	}

	// Rows go first so no render sees more columns than a row has cells.
	d.table.SetRows(nil)
	d.table.SetColumns(cols)
	d.table.SetRows(rows)
	d.table.SetCursor(d.table.Cursor())
}

// CycleSort moves the sort to the next column.
func (d *DataTable) CycleSort() {
	if n := len(d.source.Columns); n > 0 {
		d.sortCol = (d.sortCol + 1) % n
	}
	d.refresh()
}

// FlipSort reverses the sort direction.
func (d *DataTable) FlipSort() {
	d.ascending = !d.ascending
	d.refresh()
}

func (d *DataTable) SortColumn() (int, bool) {
	return d.sortCol, d.ascending
}

func (d *DataTable) StartFilter() tea.Cmd {
	return d.filter.Focus()
}

func (d *DataTable) StopFilter() {
	d.filter.Blur()
}

func (d *DataTable) ClearFilter() {
	d.filter.SetValue("")
	d.filter.Blur()
	d.refresh()
}

func (d *DataTable) Filtering() bool {
	return d.filter.Focused()
}

func (d *DataTable) FilterValue() string {
	return d.filter.Value()
}

func (d *DataTable) UpdateFilter(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	d.filter, cmd = d.filter.Update(msg)
	d.refresh()
	return cmd
}

// Update forwards navigation keys to the table.
func (d *DataTable) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	d.table, cmd = d.table.Update(msg)
	return cmd
}

// Selected returns the row under the cursor.
func (d *DataTable) Selected() (output.Row, bool) {
	c := d.table.Cursor()
	if c < 0 || c >= len(d.rows) {
		return output.Row{}, false
	}
	return d.rows[c], true
}

// Count renders "shown/total".
func (d *DataTable) Count() string {
	return output.Count(len(d.rows), len(d.source.Rows))
}

func (d *DataTable) SetSize(w, h int) {
	d.table.SetWidth(w)
	d.table.SetHeight(max(h, 3))
	d.filter.Width = max(w-4, 10)
}

func (d *DataTable) View() string {
	return d.table.View()
}

// FilterView is empty unless a filter is being edited or applied.
func (d *DataTable) FilterView() string {
	if !d.filter.Focused() && d.filter.Value() == "" {
		return ""
	}
	return d.filter.View()
}
