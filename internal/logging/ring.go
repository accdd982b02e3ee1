package logging

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// RingHook keeps the most recent log lines for the Console page.
type RingHook struct {
	mu    sync.Mutex
	lines []string
	max   int
	level logrus.Level
}

var _ logrus.Hook = (*RingHook)(nil)

// NewRingHook keeps up to size lines at level or more severe.
func NewRingHook(size int, level logrus.Level) *RingHook {
	if size <= 0 {
		size = 100
	}
	return &RingHook{max: size, level: level}
}

func (h *RingHook) Levels() []logrus.Level {
	return logrus.AllLevels[:h.level+1]
}

func (h *RingHook) Fire(entry *logrus.Entry) error {
	if entry == nil {
		return nil
	}
	line := formatLine(entry)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.lines = append(h.lines, line)
	if len(h.lines) > h.max {
		h.lines = h.lines[len(h.lines)-h.max:]
	}
	return nil
}

// Lines returns a copy of the buffered lines, oldest first.
func (h *RingHook) Lines() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.lines)
}

func formatLine(e *logrus.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %-5s %s", e.Time.Format("15:04:05"), strings.ToUpper(e.Level.String()), e.Message)

	keys := lo.Keys(e.Data)
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
	}
	return b.String()
}
