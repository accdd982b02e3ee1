package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"courierdash/internal/courier"
	"courierdash/internal/engine"
	"courierdash/internal/metrics"
	"courierdash/internal/output"
	"courierdash/ui/tui/state"
)

// Broker is the part of *courier.Client the TUI uses.
type Broker interface {
	Metrics(ctx context.Context) ([]byte, error)
	CreateTopic(ctx context.Context, name string, cfg courier.TopicConfig) (*courier.Topic, error)
	DeleteTopic(ctx context.Context, name string) error
	CreateSubscription(ctx context.Context, name string, cfg courier.SubscriptionConfig) (*courier.Subscription, error)
	DeleteSubscription(ctx context.Context, name string) error
	Publish(ctx context.Context, topic string, data ...string) ([]string, error)
	Pull(ctx context.Context, subscription string, maxMessages uint) ([]courier.Message, error)
	Ack(ctx context.Context, subscription string, ids ...string) ([]string, error)
}

// Messages
type TickMsg struct{ Gen uint64 }
type AnimateMsg time.Time
type clearUpdatingMsg struct{ gen uint64 }
type noticeExpiredMsg struct{ id int }

type MetricsLoadedMsg struct {
	Payload *output.Payload
	Gens    metrics.Generations
	Err     error
}

// actionDoneMsg reports the outcome of a broker call made from a page.
type actionDoneMsg struct {
	page    state.Page
	text    string
	err     error
	refresh bool
	pulled  []courier.Message
	pullSub string
	acked   bool
}

// Commands
func tickCmd(after time.Duration, gen uint64) tea.Cmd {
	return tea.Tick(after, func(time.Time) tea.Msg {
		return TickMsg{Gen: gen}
	})
}

func clearUpdatingCmd(after time.Duration, gen uint64) tea.Cmd {
	return tea.Tick(after, func(time.Time) tea.Msg {
		return clearUpdatingMsg{gen: gen}
	})
}

func animateCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*16, func(t time.Time) tea.Msg {
		return AnimateMsg(t)
	})
}

func noticeExpiryCmd(after time.Duration, id int) tea.Cmd {
	return tea.Tick(after, func(time.Time) tea.Msg {
		return noticeExpiredMsg{id: id}
	})
}

func fetchMetricsCmd(b Broker, gens metrics.Generations, cfg engine.Config, opts ...metrics.Option) tea.Cmd {
	return func() tea.Msg {
		payload, next, err := output.RunPipeline(context.Background(), b, gens, cfg, opts...)
		return MetricsLoadedMsg{Payload: payload, Gens: next, Err: err}
	}
}

func deleteCmd(b Broker, kind, name string) tea.Cmd {
	return func() tea.Msg {
		var err error
		if kind == "topic" {
			err = b.DeleteTopic(context.Background(), name)
		} else {
			err = b.DeleteSubscription(context.Background(), name)
		}
		if courier.IsNotFound(err) {
			err = fmt.Errorf("%s %q not found", kind, name)
		}
		return actionDoneMsg{text: fmt.Sprintf("Deleted %s %q", kind, name), err: err, refresh: true}
	}
}

func createTopicCmd(b Broker, name string, cfg courier.TopicConfig) tea.Cmd {
	return func() tea.Msg {
		_, err := b.CreateTopic(context.Background(), name, cfg)
		if courier.IsConflict(err) {
			err = fmt.Errorf("topic %q already exists", name)
		}
		return actionDoneMsg{page: state.PageNewTopic, text: fmt.Sprintf("Created topic %q", name), err: err, refresh: true}
	}
}

func createSubscriptionCmd(b Broker, name string, cfg courier.SubscriptionConfig) tea.Cmd {
	return func() tea.Msg {
		_, err := b.CreateSubscription(context.Background(), name, cfg)
		switch {
		case courier.IsConflict(err):
			err = fmt.Errorf("subscription %q already exists", name)
		case courier.IsNotFound(err):
			err = fmt.Errorf("topic %q not found", cfg.Topic)
		}
		return actionDoneMsg{page: state.PageNewSubscription, text: fmt.Sprintf("Created subscription %q", name), err: err, refresh: true}
	}
}

func publishCmd(b Broker, topic, data string) tea.Cmd {
	return func() tea.Msg {
		ids, err := b.Publish(context.Background(), topic, data)
		if courier.IsNotFound(err) {
			err = fmt.Errorf("topic %q not found", topic)
		}
		text := ""
		if len(ids) > 0 {
			text = fmt.Sprintf("Published message %s", ids[0])
		}
		return actionDoneMsg{page: state.PagePublish, text: text, err: err, refresh: true}
	}
}

func pullCmd(b Broker, sub string, maxMessages uint, ack bool) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		msgs, err := b.Pull(ctx, sub, maxMessages)
		if err != nil {
			if courier.IsNotFound(err) {
				err = fmt.Errorf("subscription %q not found", sub)
			}
			return actionDoneMsg{page: state.PagePull, err: err}
		}
		if msgs == nil {
			msgs = []courier.Message{}
		}
		done := actionDoneMsg{
			page:    state.PagePull,
			text:    fmt.Sprintf("Pulled %d message(s)", len(msgs)),
			refresh: true,
			pulled:  msgs,
			pullSub: sub,
		}
		if ack && len(msgs) > 0 {
			acked, err := b.Ack(ctx, sub, messageIDs(msgs)...)
			if err != nil {
				done.err = fmt.Errorf("pulled %d but ack failed: %w", len(msgs), err)
				return done
			}
			done.text = fmt.Sprintf("Pulled and acked %d message(s)", len(acked))
		}
		return done
	}
}

func ackCmd(b Broker, sub string, ids []string) tea.Cmd {
	return func() tea.Msg {
		acked, err := b.Ack(context.Background(), sub, ids...)
		return actionDoneMsg{page: state.PagePull, text: fmt.Sprintf("Acked %d message(s)", len(acked)), err: err, refresh: true, acked: err == nil}
	}
}

func messageIDs(msgs []courier.Message) []string {
	ids := make([]string, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}
	return ids
}
