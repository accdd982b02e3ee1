package relational

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	defaultLimit = 10
	maxLimit     = 500
)

// ErrNoSnapshots is returned by LatestSnapshot on an empty store.
var ErrNoSnapshots = errors.New("no snapshots found")

// SnapshotSummary is one stored poll of the broker-wide figures.
type SnapshotSummary struct {
	SnapshotID          int64     `json:"snapshot_id"`
	CollectedAt         time.Time `json:"collected_at"`
	NumTopics           int       `json:"num_topics"`
	NumSubscriptions    int       `json:"num_subscriptions"`
	Messages            int64     `json:"messages"`
	MessagesInterval    int64     `json:"messages_interval"`
	Pending             int64     `json:"pending"`
	PulledInterval      int64     `json:"pulled_interval"`
	AckedInterval       int64     `json:"acked_interval"`
	PercentageProcessed float64   `json:"percentage_processed"`
	MemoryRSSBytes      int64     `json:"memory_rss_bytes"`
	Severity            string    `json:"severity"`
	Explanation         string    `json:"explanation"`
}

// TopicSample is one stored poll of a single topic.
type TopicSample struct {
	SnapshotID          int64     `json:"snapshot_id"`
	Topic               string    `json:"topic"`
	CollectedAt         time.Time `json:"collected_at"`
	Messages            int64     `json:"messages"`
	MessagesAllTime     int64     `json:"messages_all_time"`
	MessagesInterval    int64     `json:"messages_interval"`
	ExpiredInterval     int64     `json:"expired_interval"`
	PercentageProcessed float64   `json:"percentage_processed"`
}

// SubscriptionSample is one stored poll of a single subscription.
type SubscriptionSample struct {
	SnapshotID          int64     `json:"snapshot_id"`
	Subscription        string    `json:"subscription"`
	Topic               string    `json:"topic"`
	CollectedAt         time.Time `json:"collected_at"`
	Pending             int64     `json:"pending"`
	PulledInterval      int64     `json:"pulled_interval"`
	AckedInterval       int64     `json:"acked_interval"`
	PercentageProcessed float64   `json:"percentage_processed"`
	Orphaned            bool      `json:"orphaned"`
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	return min(limit, maxLimit)
}

// QuerySnapshots returns the newest snapshots first.
func (r *Repo) QuerySnapshots(ctx context.Context, limit int) ([]SnapshotSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			snapshot_id,
			collected_at,
			COALESCE(num_topics, 0),
			COALESCE(num_subscriptions, 0),
			COALESCE(messages, 0),
			COALESCE(messages_interval, 0),
			COALESCE(pending, 0),
			COALESCE(pulled_interval, 0),
			COALESCE(acked_interval, 0),
			COALESCE(percentage_processed, 0),
			COALESCE(memory_rss_bytes, 0),
			severity,
			explanation
		FROM snapshots
		ORDER BY collected_at DESC, snapshot_id DESC
		LIMIT ?
	`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query snapshots failed: %w", err)
	}
	defer rows.Close()

	snapshots := []SnapshotSummary{}
	for rows.Next() {
		var s SnapshotSummary
		var severity, explanation sql.NullString
		err := rows.Scan(
			&s.SnapshotID,
			&s.CollectedAt,
			&s.NumTopics,
			&s.NumSubscriptions,
			&s.Messages,
			&s.MessagesInterval,
			&s.Pending,
			&s.PulledInterval,
			&s.AckedInterval,
			&s.PercentageProcessed,
			&s.MemoryRSSBytes,
			&severity,
			&explanation,
		)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot failed: %w", err)
		}
		s.Severity = severity.String
		s.Explanation = explanation.String
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return snapshots, nil
}

// LatestSnapshot returns the most recent snapshot.
func (r *Repo) LatestSnapshot(ctx context.Context) (*SnapshotSummary, error) {
	snapshots, err := r.QuerySnapshots(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, ErrNoSnapshots
	}
	return &snapshots[0], nil
}

// TopicHistory returns the newest samples of one topic first.
func (r *Repo) TopicHistory(ctx context.Context, topic string, limit int) ([]TopicSample, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			snapshot_id,
			topic,
			collected_at,
			COALESCE(messages, 0),
			COALESCE(messages_all_time, 0),
			COALESCE(messages_interval, 0),
			COALESCE(expired_interval, 0),
			COALESCE(percentage_processed, 0)
		FROM topic_samples
		WHERE topic = ?
		ORDER BY collected_at DESC, snapshot_id DESC
		LIMIT ?
	`, topic, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query topic history failed: %w", err)
	}
	defer rows.Close()

	samples := []TopicSample{}
	for rows.Next() {
		var s TopicSample
		if err := rows.Scan(&s.SnapshotID, &s.Topic, &s.CollectedAt, &s.Messages, &s.MessagesAllTime, &s.MessagesInterval, &s.ExpiredInterval, &s.PercentageProcessed); err != nil {
			return nil, fmt.Errorf("scan topic sample failed: %w", err)
		}
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return samples, nil
}

// SubscriptionHistory returns the newest samples of one subscription first.
func (r *Repo) SubscriptionHistory(ctx context.Context, subscription string, limit int) ([]SubscriptionSample, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			snapshot_id,
			subscription,
			topic,
			collected_at,
			COALESCE(pending, 0),
			COALESCE(pulled_interval, 0),
			COALESCE(acked_interval, 0),
			COALESCE(percentage_processed, 0),
			COALESCE(orphaned, false)
		FROM subscription_samples
		WHERE subscription = ?
		ORDER BY collected_at DESC, snapshot_id DESC
		LIMIT ?
	`, subscription, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query subscription history failed: %w", err)
	}
	defer rows.Close()

	samples := []SubscriptionSample{}
	for rows.Next() {
		var s SubscriptionSample
		if err := rows.Scan(&s.SnapshotID, &s.Subscription, &s.Topic, &s.CollectedAt, &s.Pending, &s.PulledInterval, &s.AckedInterval, &s.PercentageProcessed, &s.Orphaned); err != nil {
			return nil, fmt.Errorf("scan subscription sample failed: %w", err)
		}
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return samples, nil
}
