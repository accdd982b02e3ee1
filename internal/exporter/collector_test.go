package exporter

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courierdash/internal/metrics"
)

const doc = `{
	"topics_all_time": 1,
	"subscriptions_all_time": 2,
	"memory_resident_set_size": 4096,
	"start_time": "2024-05-10T11:00:00Z",
	"topics": {"orders": {"messages": 8, "messages_all_time": 8}},
	"subscriptions": {
		"billing": {"topic": "orders", "message_index": 8, "pending": 2, "pulled_all_time": 6, "acked_all_time": 4},
		"lost": {"topic": "gone"}
	}
}`

func observed(t *testing.T) *Collector {
	t.Helper()
	c := New()
	snap := metrics.Reconcile([]byte(doc), metrics.Empty())
	require.NoError(t, c.Observe(context.Background(), time.Unix(1715338800, 0), snap))
	return c
}

func TestCollector_Observe(t *testing.T) {
	c := observed(t)

	expected := `
# HELP courier_up Whether the last metrics fetch succeeded.
# TYPE courier_up gauge
courier_up 1
# HELP courier_topic_messages Messages currently held by the topic.
# TYPE courier_topic_messages gauge
courier_topic_messages{topic="orders"} 8
# HELP courier_subscription_pending Messages pulled but not yet acked.
# TYPE courier_subscription_pending gauge
courier_subscription_pending{subscription="billing",topic="orders"} 2
courier_subscription_pending{subscription="lost",topic="gone"} 0
# HELP courier_subscription_orphaned 1 when the subscription's topic no longer exists.
# TYPE courier_subscription_orphaned gauge
courier_subscription_orphaned{subscription="billing",topic="orders"} 0
courier_subscription_orphaned{subscription="lost",topic="gone"} 1
# HELP courier_memory_resident_set_size_bytes Broker resident set size.
# TYPE courier_memory_resident_set_size_bytes gauge
courier_memory_resident_set_size_bytes 4096
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"courier_up",
		"courier_topic_messages",
		"courier_subscription_pending",
		"courier_subscription_orphaned",
		"courier_memory_resident_set_size_bytes",
	)
	assert.NoError(t, err)

	// up, last poll, 12 globals, 3 per topic, 6 per subscription.
	assert.Equal(t, 2+12+3+12, testutil.CollectAndCount(c))
}

func TestCollector_Failed(t *testing.T) {
	c := observed(t)
	c.Failed(errors.New("connection refused"))

	assert.Equal(t, 1, testutil.CollectAndCount(c))
	assert.Equal(t, 0.0, testutil.ToFloat64(c))
}

func TestCollector_Lint(t *testing.T) {
	problems, err := testutil.CollectAndLint(observed(t))
	require.NoError(t, err)
	assert.Empty(t, problems)
}

func TestNewMux(t *testing.T) {
	reg, err := Registry(observed(t))
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)
	srv := httptest.NewServer(NewMux("/metrics", reg, log))
	defer srv.Close()

	res, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(res.Body)
	res.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(body), `courier_topic_messages{topic="orders"} 8`)
	assert.Contains(t, string(body), "go_goroutines")

	res, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}
