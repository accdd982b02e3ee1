package graph

import (
	"context"
	"fmt"
	"strings"

	"courierdash/internal/database/relational"
)

// Node is a topic or subscription in the stored topology.
type Node struct {
	ID         string         `json:"id"`
	Label      string         `json:"label"`
	Properties map[string]any `json:"properties"`
}

// Edge is a SUBSCRIBES_TO relationship from a subscription to its topic.
type Edge struct {
	FromID string `json:"from"`
	ToID   string `json:"to"`
}

// RelationalGraphWrapper answers topology questions from the DuckDB history
// when no Neo4j server is configured. It reads the latest stored snapshot.
type RelationalGraphWrapper struct {
	relational *relational.DuckDBClient
}

func NewRelationalGraphWrapper(rel *relational.DuckDBClient) *RelationalGraphWrapper {
	return &RelationalGraphWrapper{relational: rel}
}

const latestEdgesQuery = `
	SELECT subscription, topic, orphaned
	FROM subscription_samples
	WHERE snapshot_id = (SELECT max(snapshot_id) FROM snapshots)
	ORDER BY subscription
`

// Edges returns the subscription to topic edges of the latest snapshot.
// Orphaned subscriptions have no edge.
func (w *RelationalGraphWrapper) Edges(ctx context.Context) ([]Edge, error) {
	rows, err := w.relational.DB().QueryContext(ctx, latestEdgesQuery)
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	defer rows.Close()

	edges := []Edge{}
	for rows.Next() {
		var sub, topic string
		var orphaned bool
		if err := rows.Scan(&sub, &topic, &orphaned); err != nil {
			return nil, err
		}
		if orphaned {
			continue
		}
		edges = append(edges, Edge{FromID: "subscription:" + sub, ToID: "topic:" + topic})
	}
	return edges, rows.Err()
}

// GetNeighbors returns the nodes adjacent to nodeID, which is either
// "topic:<name>" or "subscription:<name>".
func (w *RelationalGraphWrapper) GetNeighbors(ctx context.Context, nodeID string) ([]Node, error) {
	edges, err := w.Edges(ctx)
	if err != nil {
		return nil, err
	}
	neighbors := []Node{}
	for _, e := range edges {
		switch nodeID {
		case e.FromID:
			neighbors = append(neighbors, nodeFor(e.ToID))
		case e.ToID:
			neighbors = append(neighbors, nodeFor(e.FromID))
		}
	}
	return neighbors, nil
}

func nodeFor(id string) Node {
	for _, label := range []string{"topic", "subscription"} {
		if name, ok := strings.CutPrefix(id, label+":"); ok {
			return Node{ID: id, Label: label, Properties: map[string]any{"name": name}}
		}
	}
	return Node{ID: id, Properties: map[string]any{}}
}
