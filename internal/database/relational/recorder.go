package relational

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"courierdash/internal/engine"
	"courierdash/internal/metrics"
)

// Recorder stores every observed snapshot together with its health summary.
// It is meant to be registered as a poller sink.
type Recorder struct {
	repo   *Repo
	health engine.Config
	keep   int
	log    logrus.FieldLogger
}

// NewRecorder returns a recorder writing to repo. keep bounds the number of
// stored snapshots; 0 keeps everything.
func NewRecorder(repo *Repo, health engine.Config, keep int, log logrus.FieldLogger) *Recorder {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Recorder{repo: repo, health: health, keep: keep, log: log}
}

// Observe writes one snapshot. Empty snapshots are skipped.
func (r *Recorder) Observe(ctx context.Context, at time.Time, snap metrics.StateSnapshot) error {
	if snap.IsEmpty() {
		return nil
	}
	summary := engine.Summarize(engine.Evaluate(snap, r.health))
	res, err := r.repo.InsertSnapshot(ctx, at, snap, summary)
	if err != nil {
		return err
	}
	r.log.WithFields(logrus.Fields{
		"snapshot_id":   res.SnapshotID,
		"topics":        res.Topics,
		"subscriptions": res.Subscriptions,
		"severity":      summary.Severity,
	}).Debug("snapshot stored")

	if r.keep > 0 {
		if n, err := r.repo.Prune(ctx, r.keep); err != nil {
			r.log.WithError(err).Warn("prune history")
		} else if n > 0 {
			r.log.WithField("deleted", n).Debug("history pruned")
		}
	}
	return nil
}

// Failed is a no-op: gaps in the history mark the outage.
func (r *Recorder) Failed(error) {}
