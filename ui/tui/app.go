package tui

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
	"github.com/sirupsen/logrus"

	"courierdash/internal/courier"
	"courierdash/internal/engine"
	"courierdash/internal/metrics"
	"courierdash/internal/output"
	"courierdash/internal/poller"
	"courierdash/ui/tui/components"
	"courierdash/ui/tui/state"
	"courierdash/ui/tui/views"
)

const noticeTTL = 5 * time.Second

// LogSource supplies the Console Log page. *logging.RingHook satisfies it.
type LogSource interface {
	Lines() []string
}

// Config carries what the TUI needs besides the broker.
type Config struct {
	Interval        time.Duration
	Health          engine.Config
	HistoryCapacity int
	PullMax         int
	Logger          logrus.FieldLogger
	Logs            LogSource
	Reporter        metrics.Reporter
}

// MainModel is the Bubble Tea Model acting as the Controller
type MainModel struct {
	broker Broker
	config Config
	log    logrus.FieldLogger
	now    func() time.Time

	ctl  poller.Controller
	gens metrics.Generations

	state      state.AppState
	spinner    spinner.Model
	rateChart  *components.RateChart
	topics     *components.DataTable
	subs       *components.DataTable
	forms      map[state.Page]*components.Form
	pulled     []courier.Message
	pulledFrom string
	noticeSeq  int

	menuCursor     int
	animCursor     float64
	velocity       float64 // Physics velocity
	spring         harmonica.Spring
	consoleScrollY int
	mouseX         int
	mouseY         int
	quitting       bool
	width          int
	height         int
}

func InitialModel(broker Broker, cfg Config) MainModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	if cfg.HistoryCapacity <= 0 {
		cfg.HistoryCapacity = 60
	}
	if cfg.PullMax <= 0 {
		cfg.PullMax = 10
	}
	log := cfg.Logger
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}

	// Initialize physics spring for smooth cursor animation
	// Increased frequency (12.0) for faster response and damping (0.9) to prevent overshoot
	spring := harmonica.NewSpring(harmonica.FPS(60), 12.0, 0.9)

	m := MainModel{
		broker:    broker,
		config:    cfg,
		log:       log,
		now:       time.Now,
		ctl:       poller.NewController(cfg.Interval),
		gens:      metrics.NewGenerations(),
		spinner:   s,
		rateChart: components.NewRateChart(30, 10, cfg.HistoryCapacity),
		topics:    components.NewDataTable(),
		subs:      components.NewDataTable(),
		forms:     newForms(cfg.PullMax),
		spring:    spring,
		state: state.AppState{
			Snapshot:    metrics.Empty(),
			CurrentPage: state.PageMenu,
			Interval:    cfg.Interval,
		},
	}
	m.rebuild()
	return m
}

func (m *MainModel) Init() tea.Cmd {
	zone.NewGlobal()
	return tea.Batch(
		m.spinner.Tick,
		animateCmd(),
		m.apply(m.ctl.Start()),
	)
}

// apply turns controller actions into commands. Ticks carry the generation
// they were scheduled under so the controller can drop stale ones.
func (m *MainModel) apply(actions []poller.Action) tea.Cmd {
	var cmds []tea.Cmd
	for _, a := range actions {
		switch a.Kind {
		case poller.ActionFetch:
			cmds = append(cmds, fetchMetricsCmd(m.broker, m.gens, m.config.Health, metrics.WithReporter(m.config.Reporter)))
		case poller.ActionSchedule:
			cmds = append(cmds, tickCmd(a.After, a.Gen))
		case poller.ActionClearUpdating:
			cmds = append(cmds, clearUpdatingCmd(a.After, a.Gen))
		}
	}
	m.state.Updating = m.ctl.Updating
	m.state.Interval = m.ctl.Interval
	return tea.Batch(cmds...)
}

func (m *MainModel) setInterval(d time.Duration) tea.Cmd {
	m.log.WithField("interval", poller.Label(d)).Info("poll interval changed")
	return m.apply(m.ctl.SetInterval(d))
}

func (m *MainModel) notify(text string, level state.NoticeLevel) tea.Cmd {
	m.noticeSeq++
	m.state.Notice = &state.Notice{ID: m.noticeSeq, Text: text, Level: level}
	return noticeExpiryCmd(noticeTTL, m.noticeSeq)
}

func (m *MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case AnimateMsg:
		return m.handleAnimateMsg(msg)

	case tea.WindowSizeMsg:
		return m.handleWindowSizeMsg(msg)

	case TickMsg:
		return m, m.apply(m.ctl.Tick(msg.Gen))

	case clearUpdatingMsg:
		m.ctl.ClearUpdating(msg.gen)
		m.state.Updating = m.ctl.Updating
		return m, nil

	case MetricsLoadedMsg:
		return m.handleMetricsLoadedMsg(msg)

	case actionDoneMsg:
		return m.handleActionDone(msg)

	case noticeExpiredMsg:
		if m.state.Notice != nil && m.state.Notice.ID == msg.id {
			m.state.Notice = nil
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		return m.handleMouseMsg(msg)
	}

	return m, nil
}

func (m *MainModel) handleAnimateMsg(msg AnimateMsg) (tea.Model, tea.Cmd) {
	var v float64 = m.velocity
	m.animCursor, v = m.spring.Update(m.animCursor, float64(m.menuCursor), v)
	m.velocity = v
	return m, animateCmd()
}

func (m *MainModel) handleWindowSizeMsg(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	resize := func(c components.Component, w, h int) {
		if w > 10 {
			c.SetSize(w, h)
		}
	}
	resize(m.rateChart, msg.Width/2-6, 10)
	resize(m.topics, msg.Width-4, msg.Height-10)
	resize(m.subs, msg.Width-4, msg.Height-10)
	for _, f := range m.forms {
		resize(f, msg.Width-8, 0)
	}
	return m, nil
}

func (m *MainModel) handleMetricsLoadedMsg(msg MetricsLoadedMsg) (tea.Model, tea.Cmd) {
	cmd := m.apply(m.ctl.Completed())
	m.gens = msg.Gens

	if msg.Err != nil {
		cause := msg.Err
		if inner := errors.Unwrap(cause); inner != nil {
			cause = inner
		}
		m.state.Err = msg.Err
		m.state.Snapshot = metrics.Empty()
		m.state.Results = nil
		m.rebuild()
		m.log.WithError(msg.Err).Warn("poll failed")
		return m, tea.Batch(cmd, m.notify(fmt.Sprintf("Unable to fetch metrics! (%v)", cause), state.NoticeError))
	}

	p := msg.Payload
	m.state.Err = nil
	m.state.Snapshot = p.Snapshot
	m.state.Results = p.Results
	m.state.LastUpdate = p.At
	m.rateChart.Push(float64(p.Snapshot.MessagesInterval))
	m.rebuild()

	m.log.WithFields(logrus.Fields{
		"topics":        p.Snapshot.NumTopics,
		"subscriptions": p.Snapshot.NumSubscriptions,
		"messages":      p.Snapshot.MessagesInterval,
		"pending":       p.Snapshot.Pending,
		"severity":      p.Summary.Severity,
	}).Info("metrics updated")
	return m, cmd
}

// rebuild derives the dashboard and table contents from the snapshot.
func (m *MainModel) rebuild() {
	now := m.now()
	m.state.Dashboard = output.BuildDashboard(m.state.Snapshot, m.state.Results, now)
	m.topics.SetSource(m.state.Dashboard.Topics)

	if scope := m.state.TopicScope; scope != "" {
		m.subs.SetSource(output.BuildSubscriptionTable(m.state.Snapshot.Topic2Subscriptions[scope], now))
	} else {
		m.subs.SetSource(m.state.Dashboard.Subscriptions)
	}
}

func (m *MainModel) handleActionDone(msg actionDoneMsg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	if msg.pulled != nil {
		m.pulled = msg.pulled
		m.pulledFrom = msg.pullSub
	}
	if msg.acked {
		m.pulled = nil
	}

	if msg.err != nil {
		m.log.WithError(msg.err).Warn("broker request failed")
		cmds = append(cmds, m.notify(msg.err.Error(), state.NoticeError))
	} else {
		m.log.Info(msg.text)
		cmds = append(cmds, m.notify(msg.text, state.NoticeSuccess))
		if f, ok := m.forms[msg.page]; ok && msg.page != state.PagePull {
			f.Reset()
		}
	}

	if msg.refresh {
		cmds = append(cmds, m.apply(m.ctl.Refresh()))
	}
	return m, tea.Batch(cmds...)
}

func (m *MainModel) handleMouseMsg(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	m.mouseX = msg.X
	m.mouseY = msg.Y

	if msg.Action == tea.MouseActionRelease && m.state.CurrentPage == state.PageMenu {
		for i := range state.MenuPages {
			if zone.Get(fmt.Sprintf("menu_%d", i)).InBounds(msg) {
				m.menuCursor = i
				return m, m.navigateTo(i)
			}
		}
	}
	return m, nil
}

func (m *MainModel) View() string {
	if m.quitting {
		return "Bye!\n"
	}

	props := views.ViewProps{
		Width:       m.width,
		Height:      m.height,
		SpinnerView: m.spinner.View(),
		Uptime:      output.Uptime(m.state.Snapshot.Uptime(m.now())),
	}

	switch m.state.CurrentPage {
	case state.PageMenu:
		return views.RenderMenu(m.state, m.width, m.height, m.menuCursor, m.animCursor, m.mouseX, m.mouseY)
	case state.PageStats:
		props.ChartView = m.rateChart.View()
		return views.RenderStats(m.state, props)
	case state.PageTopics, state.PageSubscriptions:
		t := m.activeTable()
		props.Table = t.View()
		props.Filter = t.FilterView()
		props.Count = t.Count()
		return views.RenderTable(m.state, props)
	case state.PageConsole:
		if m.config.Logs != nil {
			props.Console = m.config.Logs.Lines()
		}
		props.ScrollY = m.consoleScrollY
		return views.RenderConsole(m.state, props)
	default:
		f := m.activeForm()
		if f == nil {
			return ""
		}
		props.Form = f.View()
		if m.state.CurrentPage == state.PagePull {
			props.Pulled = m.pulled
			props.Pretty = f.Bool(pullPretty)
		}
		return views.RenderForm(m.state, props)
	}
}

// Start runs the TUI until the user quits.
func Start(broker Broker, cfg Config) error {
	m := InitialModel(broker, cfg)
	p := tea.NewProgram(
		&m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err := p.Run()
	return err
}
