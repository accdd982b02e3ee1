package views

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"courierdash/internal/metrics"
	"courierdash/internal/output"
	"courierdash/ui/tui/state"
)

func TestFormatData(t *testing.T) {
	assert.Equal(t, `{"a":1}`, FormatData(`{"a":1}`, false))
	assert.Equal(t, "{\n  \"a\": 1\n}", FormatData(`{"a":1}`, true))
	assert.Equal(t, "not json", FormatData("not json", true))
}

func TestClampScroll(t *testing.T) {
	assert.Equal(t, 0, ClampScroll(-3, 10, 5))
	assert.Equal(t, 5, ClampScroll(9, 10, 5))
	assert.Equal(t, 2, ClampScroll(2, 10, 5))
	assert.Equal(t, 0, ClampScroll(4, 3, 5))
}

func TestMenuBadge(t *testing.T) {
	var s state.AppState
	s.Dashboard.Empty = true
	assert.Empty(t, menuBadge(state.PageTopics, s), "no counts before the first poll")

	s.Dashboard = output.DashboardView{}
	s.Snapshot = metrics.StateSnapshot{NumTopics: 2, NumSubscriptions: 3}
	assert.Equal(t, "2", menuBadge(state.PageTopics, s))
	assert.Equal(t, "3", menuBadge(state.PageSubscriptions, s))
	assert.Empty(t, menuBadge(state.PagePublish, s))

	s.Dashboard.Summary.Severity = "OK"
	assert.Equal(t, "2 topics, 3 subscriptions, overall OK.", menuCaption(s))
}
