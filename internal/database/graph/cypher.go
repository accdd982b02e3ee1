package graph

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// ErrWriteQuery is returned by ExecuteCypher for queries that would modify
// the graph.
var ErrWriteQuery = errors.New("only read queries are allowed")

var writeClause = regexp.MustCompile(`(?i)\b(CREATE|MERGE|DELETE|DETACH|SET|REMOVE|DROP|LOAD\s+CSV)\b`)

// IsReadOnly reports whether query contains no write clause. It is a coarse
// keyword check; the read transaction is the real guard.
func IsReadOnly(query string) bool {
	return !writeClause.MatchString(query)
}

// ExecuteCypher runs a read query and returns one map per record.
func (c *Neo4jClient) ExecuteCypher(ctx context.Context, query string) ([]map[string]any, error) {
	if !IsReadOnly(query) {
		return nil, ErrWriteQuery
	}

	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: c.dbName,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, nil)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}

		results := make([]map[string]any, 0, len(records))
		for _, record := range records {
			row := make(map[string]any, len(record.Keys))
			for i, key := range record.Keys {
				row[key] = convertNeo4jValue(record.Values[i])
			}
			results = append(results, row)
		}
		return results, nil
	})
	if err != nil {
		return nil, fmt.Errorf("cypher execution failed: %w", err)
	}
	return result.([]map[string]any), nil
}

// convertNeo4jValue turns driver types into plain maps and slices so the
// result can be JSON encoded.
func convertNeo4jValue(val any) any {
	switch v := val.(type) {
	case neo4j.Node:
		return nodeMap(v)
	case neo4j.Relationship:
		return relationshipMap(v)
	case neo4j.Path:
		nodes := make([]any, len(v.Nodes))
		for i, n := range v.Nodes {
			nodes[i] = nodeMap(n)
		}
		rels := make([]any, len(v.Relationships))
		for i, r := range v.Relationships {
			rels[i] = relationshipMap(r)
		}
		return map[string]any{"nodes": nodes, "relationships": rels}
	case neo4j.LocalDateTime:
		return v.Time().Format(time.RFC3339)
	case time.Time:
		return v.Format(time.RFC3339)
	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			result[i] = convertNeo4jValue(item)
		}
		return result
	case map[string]any:
		result := make(map[string]any, len(v))
		for k, item := range v {
			result[k] = convertNeo4jValue(item)
		}
		return result
	default:
		return v
	}
}

func nodeMap(n neo4j.Node) map[string]any {
	return map[string]any{
		"labels":     n.Labels,
		"properties": convertNeo4jValue(n.Props),
		"id":         n.ElementId,
	}
}

func relationshipMap(r neo4j.Relationship) map[string]any {
	return map[string]any{
		"type":       r.Type,
		"properties": convertNeo4jValue(r.Props),
		"startNode":  r.StartElementId,
		"endNode":    r.EndElementId,
	}
}
