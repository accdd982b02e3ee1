// Package mcpserver exposes broker inspection and administration as MCP
// tools over stdio.
package mcpserver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"courierdash/internal/courier"
	"courierdash/internal/database/graph"
	"courierdash/internal/database/relational"
	"courierdash/internal/engine"
	"courierdash/internal/metrics"
	"courierdash/internal/output"
)

// Broker is the part of the courier client the tools use.
type Broker interface {
	Metrics(ctx context.Context) ([]byte, error)
	ListTopics(ctx context.Context) ([]courier.Topic, error)
	ListSubscriptions(ctx context.Context) ([]courier.Subscription, error)
	CreateTopic(ctx context.Context, name string, cfg courier.TopicConfig) (*courier.Topic, error)
	DeleteTopic(ctx context.Context, name string) error
	CreateSubscription(ctx context.Context, name string, cfg courier.SubscriptionConfig) (*courier.Subscription, error)
	DeleteSubscription(ctx context.Context, name string) error
	Publish(ctx context.Context, topic string, data ...string) ([]string, error)
	Pull(ctx context.Context, subscription string, maxMessages uint) ([]courier.Message, error)
	Ack(ctx context.Context, subscription string, ids ...string) ([]string, error)
}

// HistoryStore is the read side of the DuckDB history.
type HistoryStore interface {
	QuerySnapshots(ctx context.Context, limit int) ([]relational.SnapshotSummary, error)
	TopicHistory(ctx context.Context, topic string, limit int) ([]relational.TopicSample, error)
	SubscriptionHistory(ctx context.Context, subscription string, limit int) ([]relational.SubscriptionSample, error)
}

// Topology lists subscription to topic edges without a graph server.
type Topology interface {
	Edges(ctx context.Context) ([]graph.Edge, error)
}

// Config holds configuration for the MCP server.
type Config struct {
	ServerName    string
	ServerVersion string
	Health        engine.Config
}

// Option adds an optional backend to the server.
type Option func(*Server)

// WithHistory enables the get_history tool.
func WithHistory(h HistoryStore) Option {
	return func(s *Server) { s.history = h }
}

// WithGraph enables the query_graph tool.
func WithGraph(g graph.GraphClient) Option {
	return func(s *Server) { s.graph = g }
}

// WithTopology enables the get_topology tool.
func WithTopology(t Topology) Option {
	return func(s *Server) { s.topology = t }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// Server wraps the MCP server with broker tools. It keeps its own pair of
// generations, so intervals reported by get_metrics span the time since the
// previous get_metrics call.
type Server struct {
	mcpServer *mcp.Server
	broker    Broker
	history   HistoryStore
	graph     graph.GraphClient
	topology  Topology
	health    engine.Config
	log       logrus.FieldLogger
	now       func() time.Time

	mu   sync.Mutex
	gens metrics.Generations
}

// NewServer creates the server and registers its tools. Tools backed by an
// optional store are only registered when that store is given.
func NewServer(cfg Config, broker Broker, opts ...Option) *Server {
	if cfg.ServerName == "" {
		cfg.ServerName = "courierdash"
	}
	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{Name: cfg.ServerName, Version: cfg.ServerVersion}, nil),
		broker:    broker,
		health:    cfg.Health,
		log:       logrus.StandardLogger(),
		now:       time.Now,
		gens:      metrics.NewGenerations(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_metrics",
		Description: "Poll the broker and return the reconciled state: global totals, per-topic and per-subscription figures, what changed since the previous call, and health findings such as backlogs, stalled or orphaned subscriptions.",
	}, s.handleGetMetrics)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_topics",
		Description: "List every topic with its message TTL, TTL and timestamps.",
	}, s.handleListTopics)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_subscriptions",
		Description: "List every subscription with its topic, ack deadline, TTL and timestamps.",
	}, s.handleListSubscriptions)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "create_topic",
		Description: "Create a topic. TTLs are in seconds; omitted values use the broker defaults.",
	}, s.handleCreateTopic)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "delete_topic",
		Description: "Delete a topic. Its subscriptions are kept and become orphaned.",
	}, s.handleDeleteTopic)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "create_subscription",
		Description: "Create a subscription on a topic. Historical subscriptions start from the oldest retained message.",
	}, s.handleCreateSubscription)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "delete_subscription",
		Description: "Delete a subscription.",
	}, s.handleDeleteSubscription)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "publish",
		Description: "Publish one message per element of messages to a topic and return the new message ids.",
	}, s.handlePublish)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "pull",
		Description: "Pull messages from a subscription. Pulled messages must be acked before their ack deadline or they are redelivered; set ack to acknowledge them immediately.",
	}, s.handlePull)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "ack",
		Description: "Acknowledge pulled messages by id.",
	}, s.handleAck)

	if s.history != nil {
		mcp.AddTool(s.mcpServer, &mcp.Tool{
			Name:        "get_history",
			Description: "Query stored polls from DuckDB, newest first. Give a topic or a subscription for its samples, or neither for broker-wide snapshots with their health severity.",
		}, s.handleGetHistory)
	}

	if s.graph != nil {
		mcp.AddTool(s.mcpServer, &mcp.Tool{
			Name:        "query_graph",
			Description: "Run a read-only Cypher query on the topology graph. Nodes: Topic, Subscription. Relationship: (Subscription)-[:SUBSCRIBES_TO]->(Topic).",
		}, s.handleQueryGraph)
	}

	if s.topology != nil {
		mcp.AddTool(s.mcpServer, &mcp.Tool{
			Name:        "get_topology",
			Description: "List subscription to topic edges as of the latest stored poll.",
		}, s.handleGetTopology)
	}
}

// Start serves MCP on stdio until ctx is done or the client disconnects.
func (s *Server) Start(ctx context.Context) error {
	s.log.Info("starting MCP server on stdio")
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// Connect serves one session on t, for in-process clients.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcpServer.Connect(ctx, t, nil)
}

// Close releases the graph client, if any.
func (s *Server) Close(ctx context.Context) error {
	if s.graph != nil {
		return s.graph.Close(ctx)
	}
	return nil
}

// poll runs one pipeline pass against the server's own generations.
func (s *Server) poll(ctx context.Context) (*output.Payload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, gens, err := output.RunPipeline(ctx, s.broker, s.gens, s.health)
	s.gens = gens
	if err != nil {
		return nil, fmt.Errorf("unable to fetch metrics: %w", err)
	}
	return payload, nil
}
