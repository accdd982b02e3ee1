package tui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"courierdash/internal/courier"
	"courierdash/internal/engine"
	"courierdash/ui/tui/state"

	tea "github.com/charmbracelet/bubbletea"
)

// MockBroker for testing
type MockBroker struct {
	mu      sync.Mutex
	body    string
	err     error
	deleted []string
	topics  []string
	subs    []courier.SubscriptionConfig
	acked   []string
	pull    []courier.Message
}

func (m *MockBroker) Metrics(context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return []byte(m.body), m.err
}

func (m *MockBroker) CreateTopic(_ context.Context, name string, _ courier.TopicConfig) (*courier.Topic, error) {
	m.topics = append(m.topics, name)
	return &courier.Topic{Name: name}, m.err
}

func (m *MockBroker) DeleteTopic(_ context.Context, name string) error {
	m.deleted = append(m.deleted, "topic:"+name)
	return m.err
}

func (m *MockBroker) CreateSubscription(_ context.Context, name string, cfg courier.SubscriptionConfig) (*courier.Subscription, error) {
	m.subs = append(m.subs, cfg)
	return &courier.Subscription{Name: name, Topic: cfg.Topic}, m.err
}

func (m *MockBroker) DeleteSubscription(_ context.Context, name string) error {
	m.deleted = append(m.deleted, "subscription:"+name)
	return m.err
}

func (m *MockBroker) Publish(_ context.Context, _ string, data ...string) ([]string, error) {
	return []string{"id-1"}, m.err
}

func (m *MockBroker) Pull(context.Context, string, uint) ([]courier.Message, error) {
	return m.pull, m.err
}

func (m *MockBroker) Ack(_ context.Context, _ string, ids ...string) ([]string, error) {
	m.acked = append(m.acked, ids...)
	return ids, m.err
}

func newTestModel(b *MockBroker) *MainModel {
	m := InitialModel(b, Config{Interval: time.Second, Health: engine.DefaultConfig()})
	return &m
}

func press(t *testing.T, m *MainModel, keys ...tea.KeyMsg) tea.Cmd {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var updated tea.Model
		updated, cmd = m.Update(k)
		if updated.(*MainModel) != m {
			t.Fatal("Update returned a different model")
		}
	}
	return cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
	keyUp    = tea.KeyMsg{Type: tea.KeyUp}
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
	keyTab   = tea.KeyMsg{Type: tea.KeyTab}
	keySpace = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
)

func TestMenuNavigation(t *testing.T) {
	model := newTestModel(&MockBroker{})

	// Initial state
	if model.menuCursor != 0 {
		t.Errorf("Expected initial menu cursor 0, got %d", model.menuCursor)
	}
	if model.state.CurrentPage != state.PageMenu {
		t.Errorf("Expected initial page PageMenu, got %v", model.state.CurrentPage)
	}

	press(t, model, keyDown)
	if model.menuCursor != 1 {
		t.Errorf("Expected menu cursor 1 after Down key, got %d", model.menuCursor)
	}

	press(t, model, keyUp, keyUp)
	if model.menuCursor != 0 {
		t.Errorf("Expected menu cursor to stay at 0, got %d", model.menuCursor)
	}

	for range state.MenuPages {
		press(t, model, keyDown)
	}
	if model.menuCursor != len(state.MenuPages)-1 {
		t.Errorf("Expected menu cursor to stop at the last page, got %d", model.menuCursor)
	}
}

func TestMenuAnimationLogic(t *testing.T) {
	model := newTestModel(&MockBroker{})

	// Move cursor to 1
	model.menuCursor = 1

	if model.animCursor != 0 {
		t.Errorf("Expected initial animCursor 0, got %f", model.animCursor)
	}

	// The spring physics should move animCursor towards menuCursor (1.0)
	animateMsg := AnimateMsg(time.Now())
	model.Update(animateMsg)

	if model.animCursor <= 0 {
		t.Errorf("Expected animCursor to increase after animation frame, got %f", model.animCursor)
	}
	if model.animCursor >= 1.0 {
		t.Errorf("Expected animCursor to not reach target immediately, got %f", model.animCursor)
	}

	model.Update(animateMsg)
	prevCursor := model.animCursor
	model.Update(animateMsg)

	if model.animCursor <= prevCursor {
		t.Errorf("Expected animCursor to continue increasing, got %f (prev %f)", model.animCursor, prevCursor)
	}
}

func TestPageTransition(t *testing.T) {
	model := newTestModel(&MockBroker{})

	press(t, model, keyEnter)
	if model.state.CurrentPage != state.PageStats {
		t.Errorf("Expected page to change to PageStats, got %v", model.state.CurrentPage)
	}

	press(t, model, runes("b"))
	if model.state.CurrentPage != state.PageMenu {
		t.Errorf("Expected page to change back to PageMenu, got %v", model.state.CurrentPage)
	}

	model.menuCursor = len(state.MenuPages) - 1
	press(t, model, keyEnter)
	if model.state.CurrentPage != state.PageConsole {
		t.Errorf("Expected page to change to PageConsole, got %v", model.state.CurrentPage)
	}
	press(t, model, keyDown, keyDown)
	if model.consoleScrollY != 2 {
		t.Errorf("Expected console scroll 2, got %d", model.consoleScrollY)
	}
	press(t, model, keyEsc)
	if model.consoleScrollY != 0 || model.state.CurrentPage != state.PageMenu {
		t.Errorf("Expected esc to reset the console and return to the menu")
	}
}

func TestQuit(t *testing.T) {
	model := newTestModel(&MockBroker{})
	cmd := press(t, model, runes("q"))
	if cmd == nil {
		t.Fatal("Expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected tea.QuitMsg")
	}
	if model.View() != "Bye!\n" {
		t.Errorf("Unexpected view after quit: %q", model.View())
	}
}

func TestNewTopicForm_BrokerError(t *testing.T) {
	b := &MockBroker{err: errors.New("boom")}
	model := newTestModel(b)
	model.menuCursor = 5
	press(t, model, keyEnter)
	if model.state.CurrentPage != state.PageNewTopic || !model.activeForm().Active() {
		t.Fatalf("Expected a focused New Topic form, got page %v", model.state.CurrentPage)
	}

	// q types into the form instead of quitting.
	press(t, model, runes("q"), keyTab, keyTab)
	if model.quitting {
		t.Fatal("q in a form field should not quit")
	}

	cmd := press(t, model, keyEnter)
	msg, ok := cmd().(actionDoneMsg)
	if !ok || msg.err == nil {
		t.Fatalf("Expected the broker error, got %#v", msg)
	}
	if len(b.topics) != 1 || b.topics[0] != "q" {
		t.Errorf("Expected topic q to be requested, got %v", b.topics)
	}

	model.Update(msg)
	if model.state.Notice == nil || model.state.Notice.Level != state.NoticeError || model.state.Notice.Text != "boom" {
		t.Errorf("Expected an error notice, got %+v", model.state.Notice)
	}
	if model.activeForm().Value(topicName) != "q" {
		t.Error("A failed create should keep the form values")
	}

	press(t, model, tea.KeyMsg{Type: tea.KeyCtrlC})
	if !model.quitting {
		t.Error("ctrl+c should quit from anywhere")
	}
}
