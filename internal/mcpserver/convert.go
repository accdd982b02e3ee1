package mcpserver

import (
	"time"

	"courierdash/internal/courier"
	"courierdash/internal/database/relational"
)

// Tool results carry timestamps as RFC 3339 strings.

func stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

type TopicInfo struct {
	Name       string `json:"name"`
	MessageTTL int64  `json:"message_ttl"`
	TTL        int64  `json:"ttl"`
	Created    string `json:"created"`
	Updated    string `json:"updated"`
}

func topicInfo(t courier.Topic, _ int) TopicInfo {
	return TopicInfo{Name: t.Name, MessageTTL: t.MessageTTL, TTL: t.TTL, Created: stamp(t.Created), Updated: stamp(t.Updated)}
}

type SubscriptionInfo struct {
	Name        string `json:"name"`
	Topic       string `json:"topic"`
	AckDeadline int64  `json:"ack_deadline"`
	TTL         int64  `json:"ttl"`
	Created     string `json:"created"`
	Updated     string `json:"updated"`
}

func subscriptionInfo(s courier.Subscription, _ int) SubscriptionInfo {
	return SubscriptionInfo{Name: s.Name, Topic: s.Topic, AckDeadline: s.AckDeadline, TTL: s.TTL, Created: stamp(s.Created), Updated: stamp(s.Updated)}
}

type MessageInfo struct {
	ID    string `json:"id"`
	Time  string `json:"time"`
	Tries uint32 `json:"tries"`
	Data  string `json:"data"`
}

func messageInfo(m courier.Message, _ int) MessageInfo {
	return MessageInfo{ID: m.ID, Time: stamp(m.Time), Tries: m.Tries, Data: m.Data}
}

type SnapshotRow struct {
	CollectedAt         string  `json:"collected_at"`
	Topics              int     `json:"topics"`
	Subscriptions       int     `json:"subscriptions"`
	Messages            int64   `json:"messages"`
	MessagesInterval    int64   `json:"messages_interval"`
	Pending             int64   `json:"pending"`
	PulledInterval      int64   `json:"pulled_interval"`
	AckedInterval       int64   `json:"acked_interval"`
	PercentageProcessed float64 `json:"percentage_processed"`
	MemoryRSSBytes      int64   `json:"memory_rss_bytes"`
	Severity            string  `json:"severity,omitempty"`
	Explanation         string  `json:"explanation,omitempty"`
}

func snapshotRow(s relational.SnapshotSummary, _ int) SnapshotRow {
	return SnapshotRow{
		CollectedAt:         stamp(s.CollectedAt),
		Topics:              s.NumTopics,
		Subscriptions:       s.NumSubscriptions,
		Messages:            s.Messages,
		MessagesInterval:    s.MessagesInterval,
		Pending:             s.Pending,
		PulledInterval:      s.PulledInterval,
		AckedInterval:       s.AckedInterval,
		PercentageProcessed: s.PercentageProcessed,
		MemoryRSSBytes:      s.MemoryRSSBytes,
		Severity:            s.Severity,
		Explanation:         s.Explanation,
	}
}

type TopicSampleRow struct {
	CollectedAt         string  `json:"collected_at"`
	Messages            int64   `json:"messages"`
	MessagesInterval    int64   `json:"messages_interval"`
	ExpiredInterval     int64   `json:"expired_interval"`
	PercentageProcessed float64 `json:"percentage_processed"`
}

func topicSampleRow(s relational.TopicSample, _ int) TopicSampleRow {
	return TopicSampleRow{
		CollectedAt:         stamp(s.CollectedAt),
		Messages:            s.Messages,
		MessagesInterval:    s.MessagesInterval,
		ExpiredInterval:     s.ExpiredInterval,
		PercentageProcessed: s.PercentageProcessed,
	}
}

type SubscriptionSampleRow struct {
	CollectedAt         string  `json:"collected_at"`
	Topic               string  `json:"topic"`
	Pending             int64   `json:"pending"`
	PulledInterval      int64   `json:"pulled_interval"`
	AckedInterval       int64   `json:"acked_interval"`
	PercentageProcessed float64 `json:"percentage_processed"`
	Orphaned            bool    `json:"orphaned"`
}

func subscriptionSampleRow(s relational.SubscriptionSample, _ int) SubscriptionSampleRow {
	return SubscriptionSampleRow{
		CollectedAt:         stamp(s.CollectedAt),
		Topic:               s.Topic,
		Pending:             s.Pending,
		PulledInterval:      s.PulledInterval,
		AckedInterval:       s.AckedInterval,
		PercentageProcessed: s.PercentageProcessed,
		Orphaned:            s.Orphaned,
	}
}
