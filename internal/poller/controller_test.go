package poller

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(actions []Action) []ActionKind {
	out := make([]ActionKind, 0, len(actions))
	for _, a := range actions {
		out = append(out, a.Kind)
	}
	return out
}

func find(t *testing.T, actions []Action, kind ActionKind) Action {
	t.Helper()
	for _, a := range actions {
		if a.Kind == kind {
			return a
		}
	}
	t.Fatalf("no %s action in %v", kind, actions)
	return Action{}
}

func TestController_StartFetchesOnce(t *testing.T) {
	c := NewController(5 * time.Second)

	assert.Equal(t, []ActionKind{ActionFetch}, kinds(c.Start()))
	assert.True(t, c.InFlight)
	assert.True(t, c.Updating)

	assert.Empty(t, c.Start(), "start while in flight must not fetch again")
}

func TestController_CompletedSchedulesNextTickAndDebounce(t *testing.T) {
	c := NewController(5 * time.Second)
	c.Start()

	actions := c.Completed()
	assert.False(t, c.InFlight)
	assert.True(t, c.Pending)

	settle := find(t, actions, ActionClearUpdating)
	assert.Equal(t, Debounce, settle.After)
	assert.Equal(t, 300*time.Millisecond, settle.After)

	next := find(t, actions, ActionSchedule)
	assert.Equal(t, 5*time.Second, next.After)
	assert.Equal(t, c.Generation, next.Gen)

	assert.True(t, c.Updating, "indicator stays up until the debounce fires")
	c.ClearUpdating(settle.Gen)
	assert.False(t, c.Updating)
}

func TestController_NoOverlappingFetches(t *testing.T) {
	c := NewController(time.Second)
	c.Start()

	assert.Empty(t, c.Tick(c.Generation))
	assert.Empty(t, c.Refresh())
	assert.True(t, c.InFlight)

	actions := c.Completed()
	next := find(t, actions, ActionSchedule)
	assert.Equal(t, []ActionKind{ActionFetch}, kinds(c.Tick(next.Gen)))
}

func TestController_StaleTicksAreIgnored(t *testing.T) {
	c := NewController(time.Second)
	c.Start()
	stale := find(t, c.Completed(), ActionSchedule)

	c.Refresh()
	c.Completed()

	assert.Empty(t, c.Tick(stale.Gen))
	assert.False(t, c.InFlight)
}

func TestController_SetIntervalCancelsAndRestarts(t *testing.T) {
	c := NewController(10 * time.Second)
	c.Start()
	old := find(t, c.Completed(), ActionSchedule)

	actions := c.SetInterval(time.Second)
	assert.Equal(t, []ActionKind{ActionFetch}, kinds(actions))
	assert.NotEqual(t, old.Gen, c.Generation)
	assert.Empty(t, c.Tick(old.Gen), "the old timer is cancelled")

	next := find(t, c.Completed(), ActionSchedule)
	assert.Equal(t, time.Second, next.After)
}

func TestController_SetIntervalDuringFetchWaitsForCompletion(t *testing.T) {
	c := NewController(10 * time.Second)
	c.Start()

	assert.Empty(t, c.SetInterval(30*time.Second))
	assert.True(t, c.InFlight)

	next := find(t, c.Completed(), ActionSchedule)
	assert.Equal(t, 30*time.Second, next.After)
	assert.Equal(t, c.Generation, next.Gen)
}

func TestController_OffIsManualOnly(t *testing.T) {
	c := NewController(0)
	c.Start()

	actions := c.Completed()
	assert.Equal(t, []ActionKind{ActionClearUpdating}, kinds(actions))
	assert.False(t, c.Pending)
	assert.Empty(t, c.Tick(c.Generation))

	assert.Equal(t, []ActionKind{ActionFetch}, kinds(c.Refresh()))
}

func TestController_ClearUpdatingIgnoresOlderFetches(t *testing.T) {
	c := NewController(0)
	c.Start()
	first := find(t, c.Completed(), ActionClearUpdating)

	c.Refresh()
	c.ClearUpdating(first.Gen)
	assert.True(t, c.Updating, "a newer fetch keeps the indicator up")

	second := find(t, c.Completed(), ActionClearUpdating)
	c.ClearUpdating(second.Gen)
	assert.False(t, c.Updating)
}

func TestController_CompletedWithoutFetchIsNoop(t *testing.T) {
	c := NewController(time.Second)
	assert.Empty(t, c.Completed())
}

func TestPresets(t *testing.T) {
	tests := []struct {
		in   time.Duration
		next time.Duration
		prev time.Duration
	}{
		{in: 0, next: time.Second, prev: time.Minute},
		{in: time.Second, next: 5 * time.Second, prev: 0},
		{in: 30 * time.Second, next: time.Minute, prev: 10 * time.Second},
		{in: time.Minute, next: 0, prev: 30 * time.Second},
		{in: 7 * time.Second, next: 10 * time.Second, prev: time.Second},
	}

	for _, tt := range tests {
		t.Run(Label(tt.in), func(t *testing.T) {
			assert.Equal(t, tt.next, Next(tt.in))
			assert.Equal(t, tt.prev, Prev(tt.in))
		})
	}
}

func TestLabel(t *testing.T) {
	require.Len(t, Presets, 6)
	var got []string
	for _, p := range Presets {
		got = append(got, Label(p))
	}
	assert.Equal(t, []string{"Off", "1s", "5s", "10s", "30s", "1m"}, got)
	assert.Equal(t, "1.5s", Label(1500*time.Millisecond))
}
