// Package poller schedules metrics fetches. Controller holds the scheduling
// state as a plain value and tells its driver what to do next; the TUI drives
// it with tea commands and Worker drives it with real timers.
package poller

import (
	"fmt"
	"time"
)

// Debounce is how long the updating indicator stays up after a fetch.
const Debounce = 300 * time.Millisecond

// Presets are the selectable poll intervals. Zero means Off.
var Presets = []time.Duration{
	0,
	time.Second,
	5 * time.Second,
	10 * time.Second,
	30 * time.Second,
	time.Minute,
}

// ActionKind enumerates what a driver must do after a transition.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionFetch
	ActionSchedule
	ActionClearUpdating
)

func (k ActionKind) String() string {
	switch k {
	case ActionFetch:
		return "fetch"
	case ActionSchedule:
		return "schedule"
	case ActionClearUpdating:
		return "clear-updating"
	default:
		return "none"
	}
}

// Action is a single instruction. For ActionSchedule, Gen must be passed
// back to Tick when the timer fires. For ActionClearUpdating, Gen must be
// passed back to ClearUpdating.
type Action struct {
	Kind  ActionKind
	After time.Duration
	Gen   uint64
}

// Controller is the poll state machine. At most one fetch is in flight and
// the next tick is only scheduled once the previous fetch completed.
type Controller struct {
	Interval   time.Duration
	InFlight   bool
	Updating   bool
	Generation uint64
	Pending    bool

	fetches uint64
}

// NewController returns a controller polling every interval.
func NewController(interval time.Duration) Controller {
	return Controller{Interval: interval}
}

// Off reports whether only manual refreshes fetch.
func (c *Controller) Off() bool {
	return c.Interval <= 0
}

// Start issues the first fetch.
func (c *Controller) Start() []Action {
	if c.InFlight {
		return nil
	}
	return c.begin()
}

// Tick handles a scheduled timer. Ticks from an older generation and ticks
// that arrive during a fetch are dropped.
func (c *Controller) Tick(gen uint64) []Action {
	if gen != c.Generation || c.InFlight || c.Off() {
		return nil
	}
	return c.begin()
}

// Refresh fetches now. The pending tick, if any, is cancelled so a single
// cycle keeps running.
func (c *Controller) Refresh() []Action {
	if c.InFlight {
		return nil
	}
	c.Generation++
	return c.begin()
}

// Completed records the end of a fetch, successful or not.
func (c *Controller) Completed() []Action {
	if !c.InFlight {
		return nil
	}
	c.InFlight = false
	actions := []Action{{Kind: ActionClearUpdating, After: Debounce, Gen: c.fetches}}
	if !c.Off() {
		c.Pending = true
		actions = append(actions, Action{Kind: ActionSchedule, After: c.Interval, Gen: c.Generation})
	}
	return actions
}

// ClearUpdating lowers the updating indicator unless another fetch started
// since the clear was scheduled.
func (c *Controller) ClearUpdating(gen uint64) {
	if gen == c.fetches && !c.InFlight {
		c.Updating = false
	}
}

// SetInterval changes the poll interval and restarts the cycle. If a fetch
// is in flight the new cycle begins when it completes.
func (c *Controller) SetInterval(d time.Duration) []Action {
	if d < 0 {
		d = 0
	}
	c.Interval = d
	c.Generation++
	c.Pending = false
	if c.InFlight {
		return nil
	}
	return c.begin()
}

func (c *Controller) begin() []Action {
	c.InFlight = true
	c.Updating = true
	c.Pending = false
	c.fetches++
	return []Action{{Kind: ActionFetch}}
}

// Next returns the preset after d, wrapping to Off.
func Next(d time.Duration) time.Duration {
	i := presetIndex(d)
	return Presets[(i+1)%len(Presets)]
}

// Prev returns the preset before d, wrapping to the longest.
func Prev(d time.Duration) time.Duration {
	i := presetIndex(d)
	return Presets[(i-1+len(Presets))%len(Presets)]
}

// presetIndex returns the index of the largest preset not above d.
func presetIndex(d time.Duration) int {
	idx := 0
	for i, p := range Presets {
		if p <= d {
			idx = i
		}
	}
	return idx
}

// Label renders an interval the way the interval selector shows it.
func Label(d time.Duration) string {
	switch {
	case d <= 0:
		return "Off"
	case d%time.Minute == 0:
		return fmt.Sprintf("%dm", d/time.Minute)
	case d%time.Second == 0:
		return fmt.Sprintf("%ds", d/time.Second)
	default:
		return d.String()
	}
}
