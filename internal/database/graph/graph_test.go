package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courierdash/internal/database/relational"
	"courierdash/internal/engine"
	"courierdash/internal/metrics"
)

const doc = `{
	"topics": {
		"orders": {"messages": 4, "messages_all_time": 4},
		"audit": {"messages": 0}
	},
	"subscriptions": {
		"billing": {"topic": "orders", "message_index": 4},
		"shipping": {"topic": "orders", "message_index": 2, "pending": 1},
		"lost": {"topic": "gone"}
	}
}`

func snapshot() metrics.StateSnapshot {
	return metrics.Reconcile([]byte(doc), metrics.Empty())
}

func TestIngestStatements(t *testing.T) {
	at := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	stmts := ingestStatements(at, snapshot())

	require.Len(t, stmts, 3)
	assert.Equal(t, []string{"merge topics", "merge subscriptions", "prune"}, []string{stmts[0].name, stmts[1].name, stmts[2].name})
	assert.Equal(t, "2024-05-10T12:00:00Z", stmts[0].params["seen_at"])

	prune := stmts[2].params
	if diff := cmp.Diff([]string{"audit", "orders"}, prune["topics"]); diff != "" {
		t.Errorf("topics mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"billing", "lost", "shipping"}, prune["subscriptions"]); diff != "" {
		t.Errorf("subscriptions mismatch (-want +got):\n%s", diff)
	}
}

func TestTopicRows(t *testing.T) {
	rows := topicRows(snapshot())
	require.Len(t, rows, 2)

	orders := rows[1]
	assert.Equal(t, "orders", orders["name"])
	props := orders["props"].(map[string]any)
	assert.Equal(t, int64(4), props["messages"])
	assert.Equal(t, int64(2), props["subscriptions"])
}

func TestSubscriptionRows(t *testing.T) {
	rows := subscriptionRows(snapshot())
	require.Len(t, rows, 3)

	lost := rows[1]
	assert.Equal(t, "lost", lost["name"])
	assert.Equal(t, "gone", lost["topic"])
	assert.Equal(t, true, lost["props"].(map[string]any)["orphaned"])

	shipping := rows[2]["props"].(map[string]any)
	assert.Equal(t, int64(1), shipping["pending"])
	assert.Equal(t, false, shipping["orphaned"])
}

func TestIsReadOnly(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"MATCH (t:Topic) RETURN t.name", true},
		{"MATCH (s:Subscription)-[:SUBSCRIBES_TO]->(t) RETURN s, t", true},
		{"MATCH (t:Topic) WHERE t.created_at > 0 RETURN t", true},
		{"MATCH (n) DETACH DELETE n", false},
		{"create (n:Topic {name: 'x'})", false},
		{"MATCH (t:Topic) SET t.name = 'y'", false},
		{"MERGE (t:Topic {name: 'z'})", false},
		{"LOAD  CSV FROM 'file:///x' AS row RETURN row", false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, IsReadOnly(tt.query))
		})
	}
}

func TestConvertNeo4jValue(t *testing.T) {
	in := map[string]any{"list": []any{int64(1), "a"}, "n": nil}
	assert.Equal(t, in, convertNeo4jValue(in))

	at := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-05-10T12:00:00Z", convertNeo4jValue(at))
}

func TestConvertNeo4jValue_Path(t *testing.T) {
	p := neo4j.Path{
		Nodes: []neo4j.Node{
			{ElementId: "s", Labels: []string{"Subscription"}, Props: map[string]any{"name": "billing"}},
			{ElementId: "t", Labels: []string{"Topic"}, Props: map[string]any{"name": "orders"}},
		},
		Relationships: []neo4j.Relationship{
			{Type: "SUBSCRIBES_TO", StartElementId: "s", EndElementId: "t", Props: map[string]any{}},
		},
	}

	want := map[string]any{
		"nodes": []any{
			map[string]any{"labels": []string{"Subscription"}, "properties": map[string]any{"name": "billing"}, "id": "s"},
			map[string]any{"labels": []string{"Topic"}, "properties": map[string]any{"name": "orders"}, "id": "t"},
		},
		"relationships": []any{
			map[string]any{"type": "SUBSCRIBES_TO", "properties": map[string]any{}, "startNode": "s", "endNode": "t"},
		},
	}
	if diff := cmp.Diff(want, convertNeo4jValue(p)); diff != "" {
		t.Errorf("convertNeo4jValue(path) mismatch (-want +got):\n%s", diff)
	}
}

type mockGraphClient struct {
	ingested []metrics.StateSnapshot
	err      error
}

func (m *mockGraphClient) Close(context.Context) error { return nil }
func (m *mockGraphClient) Reset(context.Context) error { return nil }
func (m *mockGraphClient) ExecuteCypher(context.Context, string) ([]map[string]any, error) {
	return nil, nil
}

func (m *mockGraphClient) IngestSnapshot(_ context.Context, _ time.Time, snap metrics.StateSnapshot) error {
	m.ingested = append(m.ingested, snap)
	return m.err
}

func TestMirror(t *testing.T) {
	client := &mockGraphClient{}
	m := NewMirror(client, nil)

	require.NoError(t, m.Observe(context.Background(), time.Now(), metrics.Empty()))
	assert.Empty(t, client.ingested, "empty snapshots are skipped")

	require.NoError(t, m.Observe(context.Background(), time.Now(), snapshot()))
	assert.Len(t, client.ingested, 1)

	client.err = errors.New("unavailable")
	assert.ErrorIs(t, m.Observe(context.Background(), time.Now(), snapshot()), client.err)
	m.Failed(client.err)
}

func TestRelationalGraphWrapper(t *testing.T) {
	ctx := context.Background()
	db, err := relational.NewInMemoryDB()
	require.NoError(t, err)
	defer db.Close()

	repo := relational.NewRepo(db.DB())
	require.NoError(t, repo.Migrate(ctx))
	_, err = repo.InsertSnapshot(ctx, time.Now(), snapshot(), engine.Summary{})
	require.NoError(t, err)

	w := NewRelationalGraphWrapper(db)
	edges, err := w.Edges(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Edge{
		{FromID: "subscription:billing", ToID: "topic:orders"},
		{FromID: "subscription:shipping", ToID: "topic:orders"},
	}, edges)

	subs, err := w.GetNeighbors(ctx, "topic:orders")
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "subscription", subs[0].Label)
	assert.Equal(t, "billing", subs[0].Properties["name"])

	topics, err := w.GetNeighbors(ctx, "subscription:shipping")
	require.NoError(t, err)
	assert.Equal(t, []Node{{ID: "topic:orders", Label: "topic", Properties: map[string]any{"name": "orders"}}}, topics)

	none, err := w.GetNeighbors(ctx, "subscription:lost")
	require.NoError(t, err)
	assert.Empty(t, none)
}
