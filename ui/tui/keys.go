package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"courierdash/internal/poller"
	"courierdash/ui/tui/components"
	"courierdash/ui/tui/state"
)

func (m *MainModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	// Modal states take every key.
	if m.state.Confirm != nil {
		return m, m.handleConfirmKey(key)
	}
	if t := m.activeTable(); t != nil && t.Filtering() {
		return m, m.handleFilterKey(t, msg)
	}
	if f := m.activeForm(); f != nil && f.Active() {
		return m, m.handleFormKey(f, msg)
	}

	switch key {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "r":
		return m, m.apply(m.ctl.Refresh())
	case "+", "=":
		return m, m.setInterval(poller.Next(m.ctl.Interval))
	case "-", "_":
		return m, m.setInterval(poller.Prev(m.ctl.Interval))
	}

	switch m.state.CurrentPage {
	case state.PageMenu:
		return m, m.handleMenuKey(key)
	case state.PageTopics, state.PageSubscriptions:
		return m, m.handleTableKey(msg)
	case state.PageConsole:
		switch key {
		case "up", "k":
			if m.consoleScrollY > 0 {
				m.consoleScrollY--
			}
			return m, nil
		case "down", "j":
			m.consoleScrollY++
			return m, nil
		}
	case state.PagePull:
		if key == "a" && len(m.pulled) > 0 {
			return m, ackCmd(m.broker, m.pulledFrom, messageIDs(m.pulled))
		}
	}

	if f := m.activeForm(); f != nil && (key == "enter" || key == "tab") {
		return m, f.Focus(0)
	}
	if isBack(key) {
		m.back()
	}
	return m, nil
}

func isBack(key string) bool {
	return key == "esc" || key == "b" || key == "backspace"
}

func (m *MainModel) handleMenuKey(key string) tea.Cmd {
	switch key {
	case "up", "k":
		if m.menuCursor > 0 {
			m.menuCursor--
		}
	case "down", "j":
		if m.menuCursor < len(state.MenuPages)-1 {
			m.menuCursor++
		}
	case "enter":
		return m.navigateTo(m.menuCursor)
	}
	return nil
}

func (m *MainModel) navigateTo(cursor int) tea.Cmd {
	if cursor < 0 || cursor >= len(state.MenuPages) {
		return nil
	}
	m.state.CurrentPage = state.MenuPages[cursor]
	if f := m.activeForm(); f != nil {
		return f.Focus(0)
	}
	return nil
}

func (m *MainModel) back() {
	if f := m.activeForm(); f != nil {
		f.Blur()
	}
	m.state.CurrentPage = state.PageMenu
	m.consoleScrollY = 0
	if m.state.TopicScope != "" {
		m.state.TopicScope = ""
		m.rebuild()
	}
}

func (m *MainModel) activeTable() *components.DataTable {
	switch m.state.CurrentPage {
	case state.PageTopics:
		return m.topics
	case state.PageSubscriptions:
		return m.subs
	}
	return nil
}

func (m *MainModel) activeForm() *components.Form {
	return m.forms[m.state.CurrentPage]
}

func (m *MainModel) handleTableKey(msg tea.KeyMsg) tea.Cmd {
	t := m.activeTable()
	key := msg.String()
	switch key {
	case "/":
		return t.StartFilter()
	case "s":
		t.CycleSort()
	case "S":
		t.FlipSort()
	case "d":
		if row, ok := t.Selected(); ok {
			kind := "subscription"
			if m.state.CurrentPage == state.PageTopics {
				kind = "topic"
			}
			m.state.Confirm = &state.PendingDelete{Kind: kind, Name: row.Key}
		}
	case "enter":
		if row, ok := t.Selected(); ok && m.state.CurrentPage == state.PageTopics {
			m.state.TopicScope = row.Key
			m.state.CurrentPage = state.PageSubscriptions
			m.rebuild()
		}
	default:
		if isBack(key) {
			if m.state.TopicScope != "" {
				m.state.TopicScope = ""
				m.state.CurrentPage = state.PageTopics
				m.rebuild()
				return nil
			}
			m.back()
			return nil
		}
		return t.Update(msg)
	}
	return nil
}

func (m *MainModel) handleFilterKey(t *components.DataTable, msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		t.ClearFilter()
		return nil
	case "enter":
		t.StopFilter()
		return nil
	}
	return t.UpdateFilter(msg)
}

func (m *MainModel) handleConfirmKey(key string) tea.Cmd {
	pending := m.state.Confirm
	switch strings.ToLower(key) {
	case "y":
		m.state.Confirm = nil
		return deleteCmd(m.broker, pending.Kind, pending.Name)
	case "n", "esc":
		m.state.Confirm = nil
	}
	return nil
}

func (m *MainModel) handleFormKey(f *components.Form, msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		f.Blur()
		return nil
	case "tab", "down":
		return f.Next()
	case "shift+tab", "up":
		return f.Prev()
	case " ":
		if f.OnToggle() {
			f.Toggle()
			return nil
		}
	case "enter":
		if !f.OnLast() {
			return f.Next()
		}
		cmd, err := m.submit(m.state.CurrentPage, f)
		if err != nil {
			return m.notify(err.Error(), state.NoticeError)
		}
		f.Blur()
		return cmd
	}
	return f.Update(msg)
}
