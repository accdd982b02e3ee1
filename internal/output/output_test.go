package output

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courierdash/internal/engine"
	"courierdash/internal/metrics"
)

func TestAbbreviate(t *testing.T) {
	tests := []struct {
		value  float64
		digits int
		want   string
	}{
		{0, 0, "0"},
		{999, 0, "999"},
		{999, 1, "999.0"},
		{1000, 0, "1k"},
		{1234, 1, "1.2k"},
		{999999, 0, "1000k"},
		{1500000, 1, "1.5m"},
		{2500000000, 1, "2.5b"},
		{7e12, 0, "7t"},
		{-1234, 1, "-1.2k"},
	}

	for _, tt := range tests {
		if got := Abbreviate(tt.value, tt.digits); got != tt.want {
			t.Errorf("Abbreviate(%v, %d) = %q, want %q", tt.value, tt.digits, got, tt.want)
		}
	}
}

func TestFormatters(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "97.3%", Percentage(0.973, 1))
	assert.Equal(t, "100%", Percentage(1, 0))
	assert.Equal(t, "4.1 kB", Size(4096))
	assert.Equal(t, "-2.0 MB", Size(-2_000_000))
	assert.Equal(t, "0 B", Size(0))
	assert.Equal(t, "1d 2h 3m", Uptime(26*time.Hour+3*time.Minute+59*time.Second))
	assert.Equal(t, "0d 0h 0m", Uptime(-time.Hour))
	assert.Equal(t, "0d 1h 0m", Age(now.Add(-time.Hour), now))
	assert.Equal(t, "never", Expires(0, now, now))
	assert.Equal(t, "50", Expires(60, now.Add(-10*time.Second), now))
	assert.Equal(t, "-5", Expires(10, now.Add(-15*time.Second), now))
	assert.Equal(t, "never", Ago(time.Time{}, now))
	assert.Equal(t, "10 seconds ago", Ago(now.Add(-10*time.Second), now))
}

func sampleRows() []Row {
	return []Row{
		{Key: "b", Cells: []string{"Billing", "1.2k"}, Sort: []float64{text(), 1200}},
		{Key: "a", Cells: []string{"audit", "999"}, Sort: []float64{text(), 999}},
		{Key: "c", Cells: []string{"Cache", "5"}, Sort: []float64{text(), 5}},
	}
}

func keys(rows []Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Key)
	}
	return out
}

func TestFilter(t *testing.T) {
	rows := sampleRows()

	assert.Equal(t, []string{"b", "a", "c"}, keys(Filter(rows, "")))
	assert.Equal(t, []string{"b"}, keys(Filter(rows, "BILL")))
	assert.Equal(t, []string{"a"}, keys(Filter(rows, "99")))
	assert.Empty(t, Filter(rows, "zzz"))
}

func TestSortRows(t *testing.T) {
	rows := sampleRows()

	assert.Equal(t, []string{"a", "b", "c"}, keys(SortRows(rows, 0, true)), "text sorts case-insensitively")
	assert.Equal(t, []string{"c", "a", "b"}, keys(SortRows(rows, 1, true)), "numbers sort by value")
	assert.Equal(t, []string{"b", "a", "c"}, keys(SortRows(rows, 1, false)))
	assert.Equal(t, []string{"b", "a", "c"}, keys(rows), "input is left alone")
}

func TestCount(t *testing.T) {
	assert.Equal(t, "2/5", Count(2, 5))
	assert.Equal(t, "0/0", Count(0, 0))
}

const sampleMetrics = `{
	"topics_all_time": 2,
	"subscriptions_all_time": 2,
	"memory_resident_set_size": 2048,
	"start_time": "2024-05-10T11:00:00Z",
	"topics": {
		"orders": {"messages": 10, "messages_all_time": 10, "message_ttl": 60, "ttl": 0,
			"created": "2024-05-10T11:30:00Z", "updated": "2024-05-10T11:30:00Z"}
	},
	"subscriptions": {
		"billing": {"topic": "orders", "message_index": 10, "pending": 0, "pulled_all_time": 5, "acked_all_time": 5},
		"lost": {"topic": "gone", "pending": 2}
	}
}`

func TestBuildDashboard(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	snap := metrics.Reconcile([]byte(sampleMetrics), metrics.Empty())
	results := engine.Evaluate(snap, engine.DefaultConfig())

	v := BuildDashboard(snap, results, now)

	assert.False(t, v.Empty)
	assert.Equal(t, "0d 1h 0m", v.Uptime)

	require.Len(t, v.Stats.Rows, 3)
	assert.Equal(t, []string{"Current", "Interval", "All Time"}, []string{v.Stats.Rows[0].Label, v.Stats.Rows[1].Label, v.Stats.Rows[2].Label})
	assert.Equal(t, "1", v.Stats.Rows[0].Cells[0])
	assert.Equal(t, "100%", v.Stats.Rows[0].Cells[9])
	assert.Equal(t, "2.0 kB", v.Stats.Rows[0].Cells[10])

	require.Len(t, v.Topics.Rows, 1)
	assert.Equal(t, []string{"orders", "10", "1", "100.0%", "10", "0", "60", "0", "never", "0d 0h 30m"}, v.Topics.Rows[0].Cells)

	require.Len(t, v.Subscriptions.Rows, 2)
	assert.Equal(t, "billing", v.Subscriptions.Rows[0].Key)
	assert.Equal(t, "10 / 10", v.Subscriptions.Rows[0].Cells[3])
	assert.Equal(t, "gone (orphaned)", v.Subscriptions.Rows[1].Cells[1])

	broker := v.SectionByID(SectionBroker)
	require.NotNil(t, broker)
	mem := broker.ItemByKey("memory_rss")
	require.NotNil(t, mem)
	assert.Equal(t, "2.0 kB", mem.Note)

	subs := v.SectionByID(SectionSubscriptions)
	require.NotNil(t, subs)
	orphan := subs.ItemByKey("orphaned_lost")
	require.NotNil(t, orphan)
	assert.Equal(t, engine.StatusWarning, orphan.Status)
	assert.Equal(t, engine.StatusWarning, v.Summary.Severity)
	assert.Nil(t, v.SectionByID("nope"))
}

type stubSource struct {
	body string
	err  error
}

func (s stubSource) Metrics(context.Context) ([]byte, error) {
	return []byte(s.body), s.err
}

func TestRunPipeline(t *testing.T) {
	gens := metrics.NewGenerations()

	payload, gens, err := RunPipeline(context.Background(), stubSource{body: `{"topics_all_time": 4}`}, gens, engine.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, int64(4), payload.Snapshot.TopicsInterval)
	assert.NotEmpty(t, payload.Results)
	assert.Equal(t, int64(4), gens.Current.TopicsAllTime)

	payload, gens, err = RunPipeline(context.Background(), stubSource{body: `{"topics_all_time": 9}`}, gens, engine.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, int64(5), payload.Snapshot.TopicsInterval)
	assert.Equal(t, int64(4), gens.Previous.TopicsAllTime)

	boom := errors.New("down")
	payload, gens, err = RunPipeline(context.Background(), stubSource{err: boom}, gens, engine.DefaultConfig())
	require.ErrorIs(t, err, boom)
	assert.Nil(t, payload)
	assert.True(t, gens.Current.IsEmpty())
}
