package graph

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"courierdash/internal/metrics"
)

// Mirror feeds every observed snapshot into a GraphClient.
type Mirror struct {
	client GraphClient
	log    logrus.FieldLogger
}

func NewMirror(client GraphClient, log logrus.FieldLogger) *Mirror {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Mirror{client: client, log: log}
}

// Observe ingests snap. Empty snapshots are skipped so a broker restart does
// not wipe the graph before the first real poll.
func (m *Mirror) Observe(ctx context.Context, at time.Time, snap metrics.StateSnapshot) error {
	if snap.IsEmpty() {
		return nil
	}
	if err := m.client.IngestSnapshot(ctx, at, snap); err != nil {
		return err
	}
	m.log.WithFields(logrus.Fields{
		"topics":        snap.NumTopics,
		"subscriptions": snap.NumSubscriptions,
	}).Debug("topology mirrored")
	return nil
}

func (m *Mirror) Failed(error) {}
