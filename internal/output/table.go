package output

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"
)

// Row is one table line. Sort holds a numeric key per cell, NaN where the
// cell is text, so "1.2k" sorts after "999".
type Row struct {
	Key   string
	Cells []string
	Sort  []float64
}

type Table struct {
	Columns []string
	Rows    []Row
}

func text() float64 { return math.NaN() }

// Filter keeps the rows where any cell contains query, ignoring case. An
// empty query keeps everything.
func Filter(rows []Row, query string) []Row {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return rows
	}
	var out []Row
	for _, r := range rows {
		for _, c := range r.Cells {
			if strings.Contains(strings.ToLower(c), query) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// SortRows returns a copy of rows ordered by column. Numeric keys compare as
// numbers, everything else as case-insensitive text; ties fall back to Key.
func SortRows(rows []Row, column int, ascending bool) []Row {
	out := slices.Clone(rows)
	slices.SortStableFunc(out, func(a, b Row) int {
		c := compareCell(a, b, column)
		if !ascending {
			c = -c
		}
		if c == 0 {
			c = cmp.Compare(a.Key, b.Key)
		}
		return c
	})
	return out
}

func compareCell(a, b Row, column int) int {
	if column < 0 || column >= len(a.Cells) || column >= len(b.Cells) {
		return 0
	}
	if column < len(a.Sort) && column < len(b.Sort) {
		x, y := a.Sort[column], b.Sort[column]
		if !math.IsNaN(x) && !math.IsNaN(y) {
			return cmp.Compare(x, y)
		}
	}
	return cmp.Compare(strings.ToLower(a.Cells[column]), strings.ToLower(b.Cells[column]))
}

// Count renders "shown/total" for table footers.
func Count(shown, total int) string {
	return fmt.Sprintf("%d/%d", shown, total)
}

// View applies a filter and sort to the table and returns the rows to show.
func (t Table) View(query string, column int, ascending bool) []Row {
	return SortRows(Filter(t.Rows, query), column, ascending)
}
