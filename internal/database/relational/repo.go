package relational

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"courierdash/internal/engine"
	"courierdash/internal/metrics"
)

// SchemaSQL is append-only: one snapshots row per poll, and one sample row
// per topic and per subscription keyed by that snapshot.
const SchemaSQL = `
CREATE TABLE IF NOT EXISTS snapshots (
  snapshot_id              BIGINT PRIMARY KEY,
  collected_at             TIMESTAMP NOT NULL,
  start_time               TIMESTAMP,

  num_topics               INTEGER,
  num_subscriptions        INTEGER,
  topics_all_time          BIGINT,
  topics_interval          BIGINT,
  subscriptions_all_time   BIGINT,
  subscriptions_interval   BIGINT,

  messages                 BIGINT,
  messages_all_time        BIGINT,
  messages_interval        BIGINT,
  expired_all_time         BIGINT,
  expired_interval         BIGINT,

  pending                  BIGINT,
  pulled_all_time          BIGINT,
  pulled_interval          BIGINT,
  pulled_retries_all_time  BIGINT,
  pulled_retries_interval  BIGINT,
  acks_all_time            BIGINT,
  acks_interval            BIGINT,
  acked_all_time           BIGINT,
  acked_interval           BIGINT,

  percentage_processed     DOUBLE,
  memory_rss_bytes         BIGINT,
  memory_rss_interval      BIGINT,

  severity                 VARCHAR,
  explanation              VARCHAR,

  created_at               TIMESTAMP NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS topic_samples (
  snapshot_id           BIGINT NOT NULL,
  topic                 VARCHAR NOT NULL,
  collected_at          TIMESTAMP NOT NULL,
  messages              BIGINT,
  messages_all_time     BIGINT,
  messages_interval     BIGINT,
  expired_all_time      BIGINT,
  expired_interval      BIGINT,
  percentage_processed  DOUBLE,
  PRIMARY KEY(snapshot_id, topic)
);

CREATE TABLE IF NOT EXISTS subscription_samples (
  snapshot_id              BIGINT NOT NULL,
  subscription             VARCHAR NOT NULL,
  topic                    VARCHAR NOT NULL,
  collected_at             TIMESTAMP NOT NULL,
  pending                  BIGINT,
  pulled_all_time          BIGINT,
  pulled_interval          BIGINT,
  pulled_retries_interval  BIGINT,
  acked_all_time           BIGINT,
  acked_interval           BIGINT,
  percentage_processed     DOUBLE,
  orphaned                 BOOLEAN,
  PRIMARY KEY(snapshot_id, subscription)
);
`

type Repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Close() error {
	return r.db.Close()
}

func (r *Repo) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, SchemaSQL)
	return err
}

var lastID atomic.Int64

// NewID returns a time-based id that is strictly increasing within the
// process.
func NewID() int64 {
	for {
		now := time.Now().UnixNano()
		prev := lastID.Load()
		if now <= prev {
			now = prev + 1
		}
		if lastID.CompareAndSwap(prev, now) {
			return now
		}
	}
}

// InsertResult identifies a stored snapshot.
type InsertResult struct {
	SnapshotID    int64
	Topics        int
	Subscriptions int
}

// InsertSnapshot stores s and all of its topic and subscription samples in
// one transaction. summary may be the zero value when no checks were run.
func (r *Repo) InsertSnapshot(ctx context.Context, at time.Time, s metrics.StateSnapshot, summary engine.Summary) (InsertResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return InsertResult{}, err
	}
	defer func() { _ = tx.Rollback() }()

	snapshotID := NewID()
	at = at.UTC()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots(
		  snapshot_id, collected_at, start_time,
		  num_topics, num_subscriptions, topics_all_time, topics_interval, subscriptions_all_time, subscriptions_interval,
		  messages, messages_all_time, messages_interval, expired_all_time, expired_interval,
		  pending, pulled_all_time, pulled_interval, pulled_retries_all_time, pulled_retries_interval,
		  acks_all_time, acks_interval, acked_all_time, acked_interval,
		  percentage_processed, memory_rss_bytes, memory_rss_interval,
		  severity, explanation
		) VALUES (
		  ?,?,?,
		  ?,?,?,?,?,?,
		  ?,?,?,?,?,
		  ?,?,?,?,?,
		  ?,?,?,?,
		  ?,?,?,
		  ?,?
		)`,
		snapshotID, at, s.StartTime.UTC(),
		s.NumTopics, s.NumSubscriptions, s.TopicsAllTime, s.TopicsInterval, s.SubscriptionsAllTime, s.SubscriptionsInterval,
		s.Messages, s.MessagesAllTime, s.MessagesInterval, s.ExpiredAllTime, s.ExpiredInterval,
		s.Pending, s.PulledAllTime, s.PulledInterval, s.PulledRetriesAllTime, s.PulledRetriesInterval,
		s.AcksAllTime, s.AcksInterval, s.AckedAllTime, s.AckedInterval,
		nullFloat(s.PercentageProcessed), s.MemoryResidentSetSize, s.MemoryResidentSetSizeInterval,
		nullStr(summary.Severity), nullStr(strings.Join(summary.Explanations, "; ")),
	)
	if err != nil {
		return InsertResult{}, fmt.Errorf("insert snapshot: %w", err)
	}

	if err := insertSamplesTx(ctx, tx, snapshotID, at, s); err != nil {
		return InsertResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return InsertResult{}, err
	}
	return InsertResult{SnapshotID: snapshotID, Topics: len(s.Topics), Subscriptions: len(s.Subscriptions)}, nil
}

func insertSamplesTx(ctx context.Context, tx *sql.Tx, snapshotID int64, at time.Time, s metrics.StateSnapshot) error {
	if len(s.Topics) > 0 {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO topic_samples(snapshot_id, topic, collected_at, messages, messages_all_time, messages_interval, expired_all_time, expired_interval, percentage_processed) VALUES(?,?,?,?,?,?,?,?,?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, t := range s.SortedTopics() {
			if _, err := stmt.ExecContext(ctx, snapshotID, t.Name, at, t.Messages, t.MessagesAllTime, t.MessagesInterval, t.ExpiredAllTime, t.ExpiredInterval, nullFloat(t.PercentageProcessed)); err != nil {
				return fmt.Errorf("insert topic sample %q: %w", t.Name, err)
			}
		}
	}

	if len(s.Subscriptions) > 0 {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO subscription_samples(snapshot_id, subscription, topic, collected_at, pending, pulled_all_time, pulled_interval, pulled_retries_interval, acked_all_time, acked_interval, percentage_processed, orphaned) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, sub := range s.SortedSubscriptions() {
			if _, err := stmt.ExecContext(ctx, snapshotID, sub.Name, sub.Topic, at, sub.Pending, sub.PulledAllTime, sub.PulledInterval, sub.PulledRetriesInterval, sub.AckedAllTime, sub.AckedInterval, nullFloat(sub.PercentageProcessed), sub.Orphaned); err != nil {
				return fmt.Errorf("insert subscription sample %q: %w", sub.Name, err)
			}
		}
	}
	return nil
}

// Prune deletes all but the newest keep snapshots and their samples.
func (r *Repo) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		return 0, errors.New("keep must not be negative")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var cutoff sql.NullInt64
	err = tx.QueryRowContext(ctx, `
		SELECT snapshot_id FROM snapshots
		ORDER BY snapshot_id DESC
		LIMIT 1 OFFSET ?
	`, keep).Scan(&cutoff)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	for _, table := range []string{"topic_samples", "subscription_samples"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE snapshot_id <= ?`, cutoff.Int64); err != nil {
			return 0, fmt.Errorf("prune %s: %w", table, err)
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE snapshot_id <= ?`, cutoff.Int64)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, tx.Commit()
}

func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
