// Package graph mirrors the broker topology into Neo4j: topics,
// subscriptions and the SUBSCRIBES_TO edges between them.
package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"courierdash/internal/metrics"
)

// GraphClient is the part of the Neo4j client the rest of the console uses.
type GraphClient interface {
	Close(ctx context.Context) error
	Reset(ctx context.Context) error
	IngestSnapshot(ctx context.Context, at time.Time, snap metrics.StateSnapshot) error
	ExecuteCypher(ctx context.Context, query string) ([]map[string]any, error)
}

type Neo4jClient struct {
	driver neo4j.DriverWithContext
	dbName string
}

var _ GraphClient = (*Neo4jClient)(nil)

// NewNeo4jClient connects and verifies connectivity. An empty dbName uses the
// server default database.
func NewNeo4jClient(uri, username, password, dbName string) (*Neo4jClient, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j: %w", err)
	}

	return &Neo4jClient{driver: driver, dbName: dbName}, nil
}

func (c *Neo4jClient) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

// Reset deletes every Topic and Subscription node.
func (c *Neo4jClient) Reset(ctx context.Context) error {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.dbName})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, "MATCH (n) WHERE n:Topic OR n:Subscription DETACH DELETE n", nil)
	})
	return err
}

// IngestSnapshot makes the graph match snap in one write transaction.
func (c *Neo4jClient) IngestSnapshot(ctx context.Context, at time.Time, snap metrics.StateSnapshot) error {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.dbName})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, st := range ingestStatements(at, snap) {
			if _, err := tx.Run(ctx, st.query, st.params); err != nil {
				return nil, fmt.Errorf("%s: %w", st.name, err)
			}
		}
		return nil, nil
	})
	return err
}

type statement struct {
	name   string
	query  string
	params map[string]any
}

const (
	mergeTopicsQuery = `
		UNWIND $rows AS row
		MERGE (t:Topic {name: row.name})
		SET t += row.props, t.seen_at = $seen_at
	`
	mergeSubscriptionsQuery = `
		UNWIND $rows AS row
		MERGE (s:Subscription {name: row.name})
		SET s += row.props, s.seen_at = $seen_at
		WITH s, row
		OPTIONAL MATCH (s)-[old:SUBSCRIBES_TO]->(prev:Topic)
		WHERE prev.name <> row.topic
		DELETE old
		WITH s, row
		WHERE NOT row.props.orphaned
		MATCH (t:Topic {name: row.topic})
		MERGE (s)-[:SUBSCRIBES_TO]->(t)
	`
	pruneQuery = `
		MATCH (n)
		WHERE (n:Topic AND NOT n.name IN $topics) OR (n:Subscription AND NOT n.name IN $subscriptions)
		DETACH DELETE n
	`
)

// ingestStatements returns the ordered writes for one snapshot: topics,
// then subscriptions and their edges, then removal of anything the broker no
// longer reports.
func ingestStatements(at time.Time, snap metrics.StateSnapshot) []statement {
	seen := at.UTC().Format(time.RFC3339)
	topics := topicRows(snap)
	subs := subscriptionRows(snap)

	topicNames := make([]string, 0, len(topics))
	for _, r := range topics {
		topicNames = append(topicNames, r["name"].(string))
	}
	subNames := make([]string, 0, len(subs))
	for _, r := range subs {
		subNames = append(subNames, r["name"].(string))
	}

	return []statement{
		{"merge topics", mergeTopicsQuery, map[string]any{"rows": topics, "seen_at": seen}},
		{"merge subscriptions", mergeSubscriptionsQuery, map[string]any{"rows": subs, "seen_at": seen}},
		{"prune", pruneQuery, map[string]any{"topics": topicNames, "subscriptions": subNames}},
	}
}

func topicRows(snap metrics.StateSnapshot) []map[string]any {
	rows := make([]map[string]any, 0, len(snap.Topics))
	for _, t := range snap.SortedTopics() {
		rows = append(rows, map[string]any{
			"name": t.Name,
			"props": map[string]any{
				"messages":             t.Messages,
				"messages_all_time":    t.MessagesAllTime,
				"expired_all_time":     t.ExpiredAllTime,
				"message_ttl":          t.MessageTTL,
				"ttl":                  t.TTL,
				"percentage_processed": t.PercentageProcessed,
				"subscriptions":        int64(len(snap.Topic2Subscriptions[t.Name])),
			},
		})
	}
	return rows
}

func subscriptionRows(snap metrics.StateSnapshot) []map[string]any {
	rows := make([]map[string]any, 0, len(snap.Subscriptions))
	for _, s := range snap.SortedSubscriptions() {
		rows = append(rows, map[string]any{
			"name":  s.Name,
			"topic": s.Topic,
			"props": map[string]any{
				"topic":                   s.Topic,
				"pending":                 s.Pending,
				"pulled_all_time":         s.PulledAllTime,
				"pulled_retries_all_time": s.PulledRetriesAllTime,
				"acked_all_time":          s.AckedAllTime,
				"ack_deadline":            s.AckDeadline,
				"ttl":                     s.TTL,
				"percentage_processed":    s.PercentageProcessed,
				"orphaned":                s.Orphaned,
			},
		})
	}
	return rows
}
