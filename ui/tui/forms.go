package tui

import (
	"errors"
	"fmt"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"

	"courierdash/internal/courier"
	"courierdash/ui/tui/components"
	"courierdash/ui/tui/state"
)

// Field positions per form.
const (
	topicName = iota
	topicMessageTTL
	topicTTL
)

const (
	subName = iota
	subTopic
	subAckDeadline
	subTTL
	subHistorical
)

const (
	publishTopic = iota
	publishData
)

const (
	pullSubscription = iota
	pullMax
	pullAck
	pullPretty
)

func newForms(pullMaxDefault int) map[state.Page]*components.Form {
	pull := components.NewForm(
		components.TextField("Subscription", "name"),
		components.TextField("Max messages", "10"),
		components.ToggleField("Ack immediately", false),
		components.ToggleField("Pretty-print JSON", true),
	)
	pull.SetValue(pullMax, strconv.Itoa(pullMaxDefault))

	return map[state.Page]*components.Form{
		state.PageNewTopic: components.NewForm(
			components.TextField("Name", "orders"),
			components.TextField("Message TTL (s)", "broker default"),
			components.TextField("TTL (s)", "broker default, 0 for never"),
		),
		state.PageNewSubscription: components.NewForm(
			components.TextField("Name", "billing"),
			components.TextField("Topic", "orders"),
			components.TextField("Ack deadline (s)", "broker default"),
			components.TextField("TTL (s)", "broker default, 0 for never"),
			components.ToggleField("Historical", false),
		),
		state.PagePublish: components.NewForm(
			components.TextField("Topic", "orders"),
			components.TextField("Data", `{"id": 1}`),
		),
		state.PagePull: pull,
	}
}

// optionalSeconds parses an optional whole number of seconds. Empty means
// the broker default.
func optionalSeconds(label, v string) (*int64, error) {
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("%s must be a whole number of seconds", label)
	}
	return &n, nil
}

// submit validates the form on page and returns the broker call to make.
func (m *MainModel) submit(page state.Page, f *components.Form) (tea.Cmd, error) {
	switch page {
	case state.PageNewTopic:
		name := f.Value(topicName)
		if name == "" {
			return nil, errors.New("topic name is required")
		}
		msgTTL, err := optionalSeconds("message TTL", f.Value(topicMessageTTL))
		if err != nil {
			return nil, err
		}
		ttl, err := optionalSeconds("TTL", f.Value(topicTTL))
		if err != nil {
			return nil, err
		}
		return createTopicCmd(m.broker, name, courier.TopicConfig{MessageTTL: msgTTL, TTL: ttl}), nil

	case state.PageNewSubscription:
		name, topic := f.Value(subName), f.Value(subTopic)
		if name == "" || topic == "" {
			return nil, errors.New("subscription name and topic are required")
		}
		deadline, err := optionalSeconds("ack deadline", f.Value(subAckDeadline))
		if err != nil {
			return nil, err
		}
		ttl, err := optionalSeconds("TTL", f.Value(subTTL))
		if err != nil {
			return nil, err
		}
		return createSubscriptionCmd(m.broker, name, courier.SubscriptionConfig{
			Topic:       topic,
			AckDeadline: deadline,
			TTL:         ttl,
			Historical:  courier.Bool(f.Bool(subHistorical)),
		}), nil

	case state.PagePublish:
		topic := f.Value(publishTopic)
		if topic == "" {
			return nil, errors.New("topic is required")
		}
		return publishCmd(m.broker, topic, f.Value(publishData)), nil

	case state.PagePull:
		sub := f.Value(pullSubscription)
		if sub == "" {
			return nil, errors.New("subscription is required")
		}
		n, err := strconv.ParseUint(f.Value(pullMax), 10, 32)
		if err != nil || n == 0 {
			return nil, errors.New("max messages must be a positive number")
		}
		return pullCmd(m.broker, sub, uint(n), f.Bool(pullAck)), nil
	}
	return nil, nil
}
