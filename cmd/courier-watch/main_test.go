package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courierdash/internal/config"
	"courierdash/internal/database/relational"
)

const metricsDoc = `{
	"topics_all_time": 1,
	"subscriptions_all_time": 1,
	"start_time": "2024-05-10T11:00:00Z",
	"topics": {"orders": {"messages": 3, "messages_all_time": 3}},
	"subscriptions": {"billing": {"topic": "orders", "message_index": 3, "pending": 1}}
}`

func newBroker(t *testing.T) string {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v0/heartbeat", func(w http.ResponseWriter, _ *http.Request) {})
	mux.HandleFunc("GET /api/v0/metrics", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(metricsDoc))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv.URL
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func scrape(url string) string {
	resp, err := http.Get(url)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return string(b)
}

func TestRun_ExportsAndRecords(t *testing.T) {
	store := filepath.Join(t.TempDir(), "history.duckdb")
	cfg := config.Default().
		WithBrokerURL(newBroker(t)).
		WithInterval(10 * time.Millisecond).
		WithStorePath(store)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	base := "http://" + ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, quietLogger(), ln) }()

	require.Eventually(t, func() bool {
		return strings.Contains(scrape(base+"/metrics"), "courier_topics 1")
	}, 5*time.Second, 20*time.Millisecond)

	body := scrape(base + "/metrics")
	assert.Contains(t, body, "courier_up 1")
	assert.Contains(t, body, `courier_subscription_pending{subscription="billing",topic="orders"} 1`)
	assert.Equal(t, "ok\n", scrape(base+"/healthz"))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}

	db, err := relational.NewFileDB(store, relational.WithReadOnly())
	require.NoError(t, err)
	defer db.Close()
	snaps, err := relational.NewRepo(db.DB()).QuerySnapshots(context.Background(), 10)
	require.NoError(t, err)
	assert.NotEmpty(t, snaps)
}

func TestPollOnce(t *testing.T) {
	store := filepath.Join(t.TempDir(), "history.duckdb")
	cfg := config.Default().WithBrokerURL(newBroker(t)).WithStorePath(store)

	require.NoError(t, pollOnce(context.Background(), cfg, quietLogger()))

	db, err := relational.NewFileDB(store, relational.WithReadOnly())
	require.NoError(t, err)
	defer db.Close()
	snaps, err := relational.NewRepo(db.DB()).QuerySnapshots(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, 1, snaps[0].NumTopics)
}

func TestPollOnce_BrokerDown(t *testing.T) {
	cfg := config.Default().WithBrokerURL("http://127.0.0.1:1")
	cfg.Broker.ReadyTimeout = 50 * time.Millisecond

	err := pollOnce(context.Background(), cfg, quietLogger())
	assert.ErrorContains(t, err, "broker not ready")
}
