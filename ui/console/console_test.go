package console

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"courierdash/internal/engine"
	"courierdash/internal/metrics"
	"courierdash/internal/output"
)

func TestColorFor(t *testing.T) {
	tests := []struct {
		status   string
		expected string
	}{
		{"WARN", colorYellow},
		{"CRIT", colorRed},
		{"OK", colorGreen},
		{"", colorGreen},
		{"UNKNOWN", colorGreen},
	}

	for _, tt := range tests {
		result := colorFor(tt.status)
		if result != tt.expected {
			t.Errorf("colorFor(%q) = %q; want %q", tt.status, result, tt.expected)
		}
	}
}

const sample = `{
	"start_time": "2024-05-10T11:00:00Z",
	"topics": {"orders": {"messages": 3, "messages_all_time": 3}},
	"subscriptions": {
		"billing": {"topic": "orders", "message_index": 3},
		"a-very-long-subscription-name": {"topic": "gone"}
	}
}`

func TestPrint(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	snap := metrics.Reconcile([]byte(sample), metrics.Empty())
	view := output.BuildDashboard(snap, engine.Evaluate(snap, engine.DefaultConfig()), now)

	var buf bytes.Buffer
	Print(&buf, view)
	out := buf.String()

	for _, want := range []string{"COURIER REPORT", "up 0d 1h 0m", "─ Stats", "Topics (1)", "Subscriptions (2)", "orders", "gone (orphaned)", "WARN"} {
		if !strings.Contains(out, want) {
			t.Errorf("Print output missing %q:\n%s", want, out)
		}
	}
}

func TestPrint_Empty(t *testing.T) {
	var buf bytes.Buffer
	Print(&buf, output.DashboardView{Empty: true})

	if !strings.Contains(buf.String(), "no data") {
		t.Errorf("Expected the empty marker, got %q", buf.String())
	}
	if strings.Contains(buf.String(), "Stats") {
		t.Error("Empty view should not print the stats grid")
	}
}
