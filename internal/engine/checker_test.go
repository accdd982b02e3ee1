package engine

import (
	"slices"
	"strings"
	"testing"

	"courierdash/internal/metrics"
)

func snapshot(subs ...metrics.SubscriptionSnapshot) metrics.StateSnapshot {
	s := metrics.Empty()
	s.PercentageProcessed = 1
	for _, sub := range subs {
		s.Subscriptions[sub.Name] = sub
	}
	return s
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		snap     metrics.StateSnapshot
		expected map[string]string // Check Name -> Expected Status
		absent   []string
	}{
		{
			name: "All Healthy",
			snap: snapshot(metrics.SubscriptionSnapshot{Name: "billing", Topic: "orders", PercentageProcessed: 1}),
			expected: map[string]string{
				"Backlog billing":      StatusHealthy,
				"Orphaned billing":     StatusHealthy,
				"Stalled billing":      StatusHealthy,
				"Redeliveries billing": StatusHealthy,
				"Processed":            StatusHealthy,
				"Memory RSS":           StatusHealthy,
			},
		},
		{
			name: "Backlog Warning",
			snap: snapshot(metrics.SubscriptionSnapshot{Name: "billing", PercentageProcessed: 0.4}),
			expected: map[string]string{
				"Backlog billing": StatusWarning,
			},
		},
		{
			name: "Backlog Critical",
			snap: snapshot(metrics.SubscriptionSnapshot{Name: "billing", PercentageProcessed: 0.05}),
			expected: map[string]string{
				"Backlog billing": StatusCritical,
			},
		},
		{
			name: "Orphan skips backlog",
			snap: snapshot(metrics.SubscriptionSnapshot{Name: "lost", Topic: "gone", Orphaned: true}),
			expected: map[string]string{
				"Orphaned lost": StatusWarning,
			},
			absent: []string{"Backlog lost"},
		},
		{
			name: "Stalled when pending without acks",
			snap: snapshot(metrics.SubscriptionSnapshot{Name: "billing", PercentageProcessed: 1, Pending: 3}),
			expected: map[string]string{
				"Stalled billing": StatusWarning,
			},
		},
		{
			name: "Pending with acks is not stalled",
			snap: snapshot(metrics.SubscriptionSnapshot{Name: "billing", PercentageProcessed: 1, Pending: 3, AckedInterval: 2}),
			expected: map[string]string{
				"Stalled billing": StatusHealthy,
			},
		},
		{
			name: "Redeliveries Critical",
			snap: snapshot(metrics.SubscriptionSnapshot{Name: "billing", PercentageProcessed: 1, PulledRetriesInterval: 500}),
			expected: map[string]string{
				"Redeliveries billing": StatusCritical,
			},
		},
		{
			name: "Global processed and memory",
			snap: func() metrics.StateSnapshot {
				s := snapshot()
				s.PercentageProcessed = 0.3
				s.MemoryResidentSetSize = 2 << 30
				return s
			}(),
			expected: map[string]string{
				"Processed":  StatusWarning,
				"Memory RSS": StatusCritical,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := Evaluate(tt.snap, DefaultConfig())

			seen := map[string]bool{}
			for _, res := range results {
				seen[res.Name] = true
				if want, ok := tt.expected[res.Name]; ok {
					if res.Status != want {
						t.Errorf("%s: for %s expected %s, got %s (Value: %.2f)", tt.name, res.Name, want, res.Status, res.Value)
					}
				}
			}
			for name := range tt.expected {
				if !seen[name] {
					t.Errorf("%s: missing check %s", tt.name, name)
				}
			}
			for _, name := range tt.absent {
				if seen[name] {
					t.Errorf("%s: %s should have been skipped", tt.name, name)
				}
			}
		})
	}
}

func TestEvaluate_SortedByName(t *testing.T) {
	snap := snapshot(
		metrics.SubscriptionSnapshot{Name: "zeta", PercentageProcessed: 1},
		metrics.SubscriptionSnapshot{Name: "alpha", PercentageProcessed: 1},
	)
	results := Evaluate(snap, DefaultConfig())

	if !slices.IsSortedFunc(results, func(a, b CheckResult) int { return strings.Compare(a.Name, b.Name) }) {
		t.Errorf("results not sorted: %v", results)
	}
	if len(results) != 10 {
		t.Errorf("expected 10 results, got %d", len(results))
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "warning above critical", mutate: func(c *Config) { c.Retries.Warning = 200 }, wantErr: true},
		{name: "negative", mutate: func(c *Config) { c.Memory.Warning = -1 }, wantErr: true},
		{name: "backlog over one", mutate: func(c *Config) { c.Backlog.Critical = 1.5 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	results := []CheckResult{
		{Name: "Backlog a", Value: 0.95, Status: StatusCritical},
		{Name: "Orphaned b", Value: 1, Status: StatusWarning},
		{Name: "Processed", Value: 0.1, Status: StatusHealthy},
	}

	s := Summarize(results)
	if s.Severity != StatusCritical {
		t.Errorf("expected severity CRIT, got %s", s.Severity)
	}
	if s.Criticals != 1 || s.Warnings != 1 {
		t.Errorf("expected 1 critical and 1 warning, got %d and %d", s.Criticals, s.Warnings)
	}
	want := []string{"Backlog a critical: 0.95", "Orphaned b warning: 1"}
	if !slices.Equal(s.Explanations, want) {
		t.Errorf("explanations = %v, want %v", s.Explanations, want)
	}

	if got := Summarize(nil).Severity; got != StatusHealthy {
		t.Errorf("empty results should be OK, got %s", got)
	}
}
