package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"courierdash/internal/courier"
	"courierdash/internal/database/graph"
	"courierdash/internal/database/relational"
	"courierdash/internal/engine"
	"courierdash/internal/metrics"
)

// MockBroker implements Broker for testing
type MockBroker struct {
	Bodies     []string // returned by successive Metrics calls
	MetricsErr error
	Topics     []courier.Topic
	Messages   []courier.Message
	Err        error

	calls     int
	published []string
	acked     []string
	created   courier.SubscriptionConfig
}

func (m *MockBroker) Metrics(context.Context) ([]byte, error) {
	if m.MetricsErr != nil {
		return nil, m.MetricsErr
	}
	body := m.Bodies[min(m.calls, len(m.Bodies)-1)]
	m.calls++
	return []byte(body), nil
}

func (m *MockBroker) ListTopics(context.Context) ([]courier.Topic, error) {
	return m.Topics, m.Err
}

func (m *MockBroker) ListSubscriptions(context.Context) ([]courier.Subscription, error) {
	return nil, m.Err
}

func (m *MockBroker) CreateTopic(_ context.Context, name string, cfg courier.TopicConfig) (*courier.Topic, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	t := courier.Topic{Name: name}
	if cfg.MessageTTL != nil {
		t.MessageTTL = *cfg.MessageTTL
	}
	return &t, nil
}

func (m *MockBroker) DeleteTopic(context.Context, string) error {
	return m.Err
}

func (m *MockBroker) CreateSubscription(_ context.Context, name string, cfg courier.SubscriptionConfig) (*courier.Subscription, error) {
	m.created = cfg
	if m.Err != nil {
		return nil, m.Err
	}
	return &courier.Subscription{Name: name, Topic: cfg.Topic}, nil
}

func (m *MockBroker) DeleteSubscription(context.Context, string) error {
	return m.Err
}

func (m *MockBroker) Publish(_ context.Context, _ string, data ...string) ([]string, error) {
	m.published = append(m.published, data...)
	ids := make([]string, len(data))
	for i := range data {
		ids[i] = "id-" + data[i]
	}
	return ids, m.Err
}

func (m *MockBroker) Pull(context.Context, string, uint) ([]courier.Message, error) {
	return m.Messages, m.Err
}

func (m *MockBroker) Ack(_ context.Context, _ string, ids ...string) ([]string, error) {
	m.acked = append(m.acked, ids...)
	return ids, m.Err
}

// MockGraphClient implements graph.GraphClient for testing
type MockGraphClient struct {
	CypherResult []map[string]any
	CypherErr    error
	Queries      []string
	Closed       bool
}

func (m *MockGraphClient) IngestSnapshot(context.Context, time.Time, metrics.StateSnapshot) error {
	return nil
}

func (m *MockGraphClient) Reset(context.Context) error {
	return nil
}

func (m *MockGraphClient) ExecuteCypher(_ context.Context, query string) ([]map[string]any, error) {
	m.Queries = append(m.Queries, query)
	if m.CypherErr != nil {
		return nil, m.CypherErr
	}
	return m.CypherResult, nil
}

func (m *MockGraphClient) Close(context.Context) error {
	m.Closed = true
	return nil
}

// MockHistory implements HistoryStore for testing
type MockHistory struct {
	Limit int
}

func (m *MockHistory) QuerySnapshots(_ context.Context, limit int) ([]relational.SnapshotSummary, error) {
	m.Limit = limit
	return []relational.SnapshotSummary{{SnapshotID: 1, Severity: engine.StatusWarning, CollectedAt: time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)}}, nil
}

func (m *MockHistory) TopicHistory(_ context.Context, topic string, limit int) ([]relational.TopicSample, error) {
	m.Limit = limit
	return []relational.TopicSample{{Topic: topic, Messages: 3}}, nil
}

func (m *MockHistory) SubscriptionHistory(_ context.Context, sub string, limit int) ([]relational.SubscriptionSample, error) {
	m.Limit = limit
	return nil, errors.New("boom")
}

const metricsDoc = `{
	"start_time": "2024-05-10T11:00:00Z",
	"memory_resident_set_size": 2048,
	"topics": {"orders": {"messages": %d, "messages_all_time": %d}},
	"subscriptions": {
		"billing": {"topic": "orders", "message_index": %d},
		"lost": {"topic": "gone"}
	}
}`

func doc(n int) string {
	return fmt.Sprintf(metricsDoc, n, n, n)
}

func newTestServer(b *MockBroker, opts ...Option) *Server {
	s := NewServer(Config{ServerVersion: "test", Health: engine.DefaultConfig()}, b, opts...)
	s.now = func() time.Time { return time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestHandleGetMetrics_IntervalsSincePreviousCall(t *testing.T) {
	b := &MockBroker{Bodies: []string{doc(2), doc(5)}}
	s := newTestServer(b)
	ctx := context.Background()

	_, first, err := s.handleGetMetrics(ctx, nil, NoArgs{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if first.MessagesInterval != 2 {
		t.Errorf("Expected first interval 2, got %d", first.MessagesInterval)
	}

	_, second, err := s.handleGetMetrics(ctx, nil, NoArgs{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if second.MessagesInterval != 3 {
		t.Errorf("Expected second interval 3, got %d", second.MessagesInterval)
	}
	if second.Uptime != "0d 1h 0m" {
		t.Errorf("Expected uptime '0d 1h 0m', got %q", second.Uptime)
	}
	if second.MemoryRSS != "2.0 kB" {
		t.Errorf("Expected memory '2.0 kB', got %q", second.MemoryRSS)
	}
	if second.Severity != engine.StatusWarning || len(second.Problems) == 0 {
		t.Errorf("Expected the orphan to raise a warning, got %q %v", second.Severity, second.Problems)
	}
	if len(second.SubscriptionDetails) != 2 || second.SubscriptionDetails[0].Position != "5 / 5" {
		t.Errorf("Unexpected subscription details %+v", second.SubscriptionDetails)
	}
	if !second.SubscriptionDetails[1].Orphaned {
		t.Error("Expected 'lost' to be orphaned")
	}
}

func TestHandleGetMetrics_FailureResetsBaseline(t *testing.T) {
	b := &MockBroker{Bodies: []string{doc(4)}}
	s := newTestServer(b)
	ctx := context.Background()

	if _, _, err := s.handleGetMetrics(ctx, nil, NoArgs{}); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	b.MetricsErr = &courier.StatusError{Code: http.StatusServiceUnavailable, URL: "http://broker/api/v0/metrics"}
	_, _, err := s.handleGetMetrics(ctx, nil, NoArgs{})
	if err == nil || !strings.Contains(err.Error(), "503 server error") {
		t.Fatalf("Expected the status error to surface, got: %v", err)
	}

	b.MetricsErr = nil
	_, res, err := s.handleGetMetrics(ctx, nil, NoArgs{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if res.MessagesInterval != 4 {
		t.Errorf("Expected the interval to restart from zero, got %d", res.MessagesInterval)
	}
}

func TestHandleCreateTopic(t *testing.T) {
	b := &MockBroker{}
	s := newTestServer(b)
	ttl := int64(60)

	_, res, err := s.handleCreateTopic(context.Background(), nil, CreateTopicArgs{Name: "orders", MessageTTL: &ttl})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if res.Topic.Name != "orders" || res.Topic.MessageTTL != 60 {
		t.Errorf("Unexpected topic %+v", res.Topic)
	}

	if _, _, err := s.handleCreateTopic(context.Background(), nil, CreateTopicArgs{}); err == nil {
		t.Error("Expected error for a missing name")
	}

	b.Err = &courier.StatusError{Code: http.StatusConflict}
	_, _, err = s.handleCreateTopic(context.Background(), nil, CreateTopicArgs{Name: "orders"})
	if err == nil || err.Error() != `topic "orders" already exists` {
		t.Errorf("Expected a conflict message, got: %v", err)
	}
}

func TestHandleCreateSubscription(t *testing.T) {
	b := &MockBroker{}
	s := newTestServer(b)
	historical := true

	_, res, err := s.handleCreateSubscription(context.Background(), nil, CreateSubscriptionArgs{Name: "billing", Topic: "orders", Historical: &historical})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if res.Subscription.Topic != "orders" || b.created.Historical == nil || !*b.created.Historical {
		t.Errorf("Unexpected subscription %+v / config %+v", res.Subscription, b.created)
	}

	b.Err = &courier.StatusError{Code: http.StatusNotFound}
	_, _, err = s.handleCreateSubscription(context.Background(), nil, CreateSubscriptionArgs{Name: "billing", Topic: "nope"})
	if err == nil || err.Error() != `topic "nope" not found` {
		t.Errorf("Expected a not found message, got: %v", err)
	}
}

func TestHandleDelete_NotFound(t *testing.T) {
	b := &MockBroker{Err: &courier.StatusError{Code: http.StatusNotFound}}
	s := newTestServer(b)

	if _, _, err := s.handleDeleteTopic(context.Background(), nil, NameArgs{Name: "x"}); err == nil || err.Error() != `topic "x" not found` {
		t.Errorf("Unexpected error: %v", err)
	}
	if _, _, err := s.handleDeleteSubscription(context.Background(), nil, NameArgs{Name: "y"}); err == nil || err.Error() != `subscription "y" not found` {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestHandlePublish(t *testing.T) {
	b := &MockBroker{}
	s := newTestServer(b)

	_, res, err := s.handlePublish(context.Background(), nil, PublishArgs{Topic: "orders", Messages: []string{"a", "b"}})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !slices.Equal(res.MessageIDs, []string{"id-a", "id-b"}) {
		t.Errorf("Unexpected ids %v", res.MessageIDs)
	}

	if _, _, err := s.handlePublish(context.Background(), nil, PublishArgs{Topic: "orders"}); err == nil {
		t.Error("Expected error for an empty publish")
	}
}

func TestHandlePull(t *testing.T) {
	b := &MockBroker{Messages: []courier.Message{{ID: "m1", Data: "x", Tries: 1}, {ID: "m2", Data: "y"}}}
	s := newTestServer(b)

	_, res, err := s.handlePull(context.Background(), nil, PullArgs{Subscription: "billing"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(res.Messages) != 2 || res.Messages[0].Time != "" || len(res.Acked) != 0 {
		t.Errorf("Unexpected pull result %+v", res)
	}
	if len(b.acked) != 0 {
		t.Error("Expected no ack without the ack flag")
	}

	_, res, err = s.handlePull(context.Background(), nil, PullArgs{Subscription: "billing", Ack: true})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !slices.Equal(res.Acked, []string{"m1", "m2"}) {
		t.Errorf("Expected both messages acked, got %v", res.Acked)
	}
}

func TestHandleAck(t *testing.T) {
	b := &MockBroker{}
	s := newTestServer(b)

	if _, _, err := s.handleAck(context.Background(), nil, AckArgs{Subscription: "billing"}); err == nil {
		t.Error("Expected error without ids")
	}

	b.Err = courier.ErrInvalidMessageID
	_, _, err := s.handleAck(context.Background(), nil, AckArgs{Subscription: "billing", MessageIDs: []string{"nope"}})
	if !errors.Is(err, courier.ErrInvalidMessageID) {
		t.Errorf("Expected ErrInvalidMessageID, got: %v", err)
	}
}

func TestHandleGetHistory(t *testing.T) {
	h := &MockHistory{}
	s := newTestServer(&MockBroker{}, WithHistory(h))
	ctx := context.Background()

	_, res, err := s.handleGetHistory(ctx, nil, HistoryArgs{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(res.Snapshots) != 1 || res.Snapshots[0].CollectedAt != "2024-05-10T12:00:00Z" || h.Limit != 10 {
		t.Errorf("Unexpected snapshots %+v (limit %d)", res.Snapshots, h.Limit)
	}

	_, res, err = s.handleGetHistory(ctx, nil, HistoryArgs{Topic: "orders", Limit: 500})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(res.Topics) != 1 || h.Limit != 100 {
		t.Errorf("Unexpected topic history %+v (limit %d)", res.Topics, h.Limit)
	}

	if _, _, err := s.handleGetHistory(ctx, nil, HistoryArgs{Subscription: "billing"}); err == nil {
		t.Error("Expected the store error to surface")
	}
	if _, _, err := s.handleGetHistory(ctx, nil, HistoryArgs{Topic: "a", Subscription: "b"}); err == nil {
		t.Error("Expected error when both filters are given")
	}
}

func TestHandleQueryGraph(t *testing.T) {
	g := &MockGraphClient{CypherResult: []map[string]any{{"name": "orders"}}}
	s := newTestServer(&MockBroker{}, WithGraph(g))

	_, res, err := s.handleQueryGraph(context.Background(), nil, QueryGraphArgs{Cypher: "MATCH (t:Topic) RETURN t.name AS name"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(res.Rows) != 1 {
		t.Errorf("Expected 1 row, got %d", len(res.Rows))
	}

	_, _, err = s.handleQueryGraph(context.Background(), nil, QueryGraphArgs{Cypher: "MATCH (n) DETACH DELETE n"})
	if !errors.Is(err, graph.ErrWriteQuery) {
		t.Errorf("Expected ErrWriteQuery, got: %v", err)
	}
	if len(g.Queries) != 1 {
		t.Errorf("Expected the write query to be rejected before reaching the graph, got %v", g.Queries)
	}

	g.CypherErr = errors.New("cypher syntax error")
	if _, _, err := s.handleQueryGraph(context.Background(), nil, QueryGraphArgs{Cypher: "MATCH"}); err == nil {
		t.Error("Expected error for invalid cypher")
	}

	if err := s.Close(context.Background()); err != nil || !g.Closed {
		t.Errorf("Expected Close to close the graph client, err=%v", err)
	}
}

func toolNames(t *testing.T, s *Server) []string {
	t.Helper()
	ctx := context.Background()
	serverT, clientT := mcp.NewInMemoryTransports()
	if _, err := s.Connect(ctx, serverT); err != nil {
		t.Fatalf("server connect: %v", err)
	}
	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer session.Close()

	var names []string
	for tool, err := range session.Tools(ctx, nil) {
		if err != nil {
			t.Fatalf("list tools: %v", err)
		}
		names = append(names, tool.Name)
	}
	slices.Sort(names)
	return names
}

func TestRegisterTools(t *testing.T) {
	base := []string{
		"ack", "create_subscription", "create_topic", "delete_subscription", "delete_topic",
		"get_metrics", "list_subscriptions", "list_topics", "publish", "pull",
	}

	got := toolNames(t, newTestServer(&MockBroker{}))
	if !slices.Equal(got, base) {
		t.Errorf("Expected %v, got %v", base, got)
	}

	got = toolNames(t, newTestServer(&MockBroker{}, WithHistory(&MockHistory{}), WithGraph(&MockGraphClient{})))
	want := append(slices.Clone(base), "get_history", "query_graph")
	slices.Sort(want)
	if !slices.Equal(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestCallTool_OverTransport(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(&MockBroker{Topics: []courier.Topic{{Name: "orders", Created: time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)}}})

	serverT, clientT := mcp.NewInMemoryTransports()
	if _, err := s.Connect(ctx, serverT); err != nil {
		t.Fatalf("server connect: %v", err)
	}
	session, err := mcp.NewClient(&mcp.Implementation{Name: "test-client"}, nil).Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer session.Close()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "list_topics", Arguments: map[string]any{}})
	if err != nil {
		t.Fatalf("call tool: %v", err)
	}
	if res.IsError || len(res.Content) == 0 {
		t.Fatalf("Unexpected result %+v", res)
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok || !strings.Contains(text.Text, `"created":"2024-05-10T00:00:00Z"`) {
		t.Errorf("Unexpected content %+v", res.Content[0])
	}
}
