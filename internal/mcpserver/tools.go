package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"courierdash/internal/courier"
	"courierdash/internal/database/graph"
	"courierdash/internal/metrics"
	"courierdash/internal/output"
)

const (
	defaultPullMax = 10
	maxPullMax     = 1000
	defaultLimit   = 10
	maxLimit       = 100
)

type NoArgs struct{}

// MetricsResult is the get_metrics output.
type MetricsResult struct {
	CollectedAt         string                `json:"collected_at"`
	Uptime              string                `json:"uptime" jsonschema:"broker uptime as Xd Xh Xm"`
	Topics              int                   `json:"topics"`
	Subscriptions       int                   `json:"subscriptions"`
	Messages            int64                 `json:"messages" jsonschema:"messages currently held across topics"`
	MessagesInterval    int64                 `json:"messages_interval" jsonschema:"messages published since the previous call"`
	Pending             int64                 `json:"pending" jsonschema:"messages pulled but not yet acked"`
	PulledInterval      int64                 `json:"pulled_interval"`
	AckedInterval       int64                 `json:"acked_interval"`
	PercentageProcessed float64               `json:"percentage_processed" jsonschema:"fraction of all subscription messages processed, 0 to 1"`
	MemoryRSS           string                `json:"memory_rss"`
	Severity            string                `json:"severity" jsonschema:"OK, WARN or CRIT"`
	Problems            []string              `json:"problems,omitempty"`
	TopicDetails        []TopicSummary        `json:"topic_details"`
	SubscriptionDetails []SubscriptionSummary `json:"subscription_details"`
}

type TopicSummary struct {
	Name                string  `json:"name"`
	Messages            int64   `json:"messages"`
	MessagesInterval    int64   `json:"messages_interval"`
	Subscriptions       int     `json:"subscriptions"`
	PercentageProcessed float64 `json:"percentage_processed"`
}

type SubscriptionSummary struct {
	Name                string  `json:"name"`
	Topic               string  `json:"topic"`
	Pending             int64   `json:"pending"`
	Position            string  `json:"position" jsonschema:"normalized message index / topic messages"`
	PulledInterval      int64   `json:"pulled_interval"`
	AckedInterval       int64   `json:"acked_interval"`
	RetriesInterval     int64   `json:"retries_interval"`
	PercentageProcessed float64 `json:"percentage_processed"`
	Orphaned            bool    `json:"orphaned"`
}

func (s *Server) handleGetMetrics(ctx context.Context, _ *mcp.CallToolRequest, _ NoArgs) (*mcp.CallToolResult, MetricsResult, error) {
	payload, err := s.poll(ctx)
	if err != nil {
		return nil, MetricsResult{}, err
	}
	return nil, buildMetricsResult(payload, s.now()), nil
}

func buildMetricsResult(p *output.Payload, now time.Time) MetricsResult {
	snap := p.Snapshot
	res := MetricsResult{
		CollectedAt:         stamp(p.At),
		Uptime:              output.Uptime(snap.Uptime(now)),
		Topics:              snap.NumTopics,
		Subscriptions:       snap.NumSubscriptions,
		Messages:            snap.Messages,
		MessagesInterval:    snap.MessagesInterval,
		Pending:             snap.Pending,
		PulledInterval:      snap.PulledInterval,
		AckedInterval:       snap.AckedInterval,
		PercentageProcessed: snap.PercentageProcessed,
		MemoryRSS:           output.Size(snap.MemoryResidentSetSize),
		Severity:            p.Summary.Severity,
		Problems:            p.Summary.Explanations,
		TopicDetails:        make([]TopicSummary, 0, snap.NumTopics),
		SubscriptionDetails: make([]SubscriptionSummary, 0, snap.NumSubscriptions),
	}
	for _, t := range snap.SortedTopics() {
		res.TopicDetails = append(res.TopicDetails, TopicSummary{
			Name:                t.Name,
			Messages:            t.Messages,
			MessagesInterval:    t.MessagesInterval,
			Subscriptions:       len(snap.Topic2Subscriptions[t.Name]),
			PercentageProcessed: t.PercentageProcessed,
		})
	}
	for _, sub := range snap.SortedSubscriptions() {
		res.SubscriptionDetails = append(res.SubscriptionDetails, subscriptionSummary(sub))
	}
	return res
}

func subscriptionSummary(sub metrics.SubscriptionSnapshot) SubscriptionSummary {
	return SubscriptionSummary{
		Name:                sub.Name,
		Topic:               sub.Topic,
		Pending:             sub.Pending,
		Position:            fmt.Sprintf("%d / %d", sub.NormalizedMessageIndex, sub.TopicMessages),
		PulledInterval:      sub.PulledInterval,
		AckedInterval:       sub.AckedInterval,
		RetriesInterval:     sub.PulledRetriesInterval,
		PercentageProcessed: sub.PercentageProcessed,
		Orphaned:            sub.Orphaned,
	}
}

type TopicsResult struct {
	Topics []TopicInfo `json:"topics"`
}

func (s *Server) handleListTopics(ctx context.Context, _ *mcp.CallToolRequest, _ NoArgs) (*mcp.CallToolResult, TopicsResult, error) {
	topics, err := s.broker.ListTopics(ctx)
	if err != nil {
		return nil, TopicsResult{}, fmt.Errorf("list topics: %w", err)
	}
	return nil, TopicsResult{Topics: lo.Map(topics, topicInfo)}, nil
}

type SubscriptionsResult struct {
	Subscriptions []SubscriptionInfo `json:"subscriptions"`
}

func (s *Server) handleListSubscriptions(ctx context.Context, _ *mcp.CallToolRequest, _ NoArgs) (*mcp.CallToolResult, SubscriptionsResult, error) {
	subs, err := s.broker.ListSubscriptions(ctx)
	if err != nil {
		return nil, SubscriptionsResult{}, fmt.Errorf("list subscriptions: %w", err)
	}
	return nil, SubscriptionsResult{Subscriptions: lo.Map(subs, subscriptionInfo)}, nil
}

type CreateTopicArgs struct {
	Name       string `json:"name" jsonschema:"topic name"`
	MessageTTL *int64 `json:"message_ttl,omitempty" jsonschema:"seconds a message is retained"`
	TTL        *int64 `json:"ttl,omitempty" jsonschema:"seconds the topic lives without updates, 0 for never"`
}

type TopicResult struct {
	Topic TopicInfo `json:"topic"`
}

func (s *Server) handleCreateTopic(ctx context.Context, _ *mcp.CallToolRequest, args CreateTopicArgs) (*mcp.CallToolResult, TopicResult, error) {
	if args.Name == "" {
		return nil, TopicResult{}, errors.New("name is required")
	}
	topic, err := s.broker.CreateTopic(ctx, args.Name, courier.TopicConfig{MessageTTL: args.MessageTTL, TTL: args.TTL})
	if err != nil {
		if courier.IsConflict(err) {
			return nil, TopicResult{}, fmt.Errorf("topic %q already exists", args.Name)
		}
		return nil, TopicResult{}, fmt.Errorf("create topic: %w", err)
	}
	s.log.WithField("topic", args.Name).Info("topic created")
	return nil, TopicResult{Topic: topicInfo(*topic, 0)}, nil
}

type NameArgs struct {
	Name string `json:"name"`
}

type DeletedResult struct {
	Deleted string `json:"deleted"`
}

func (s *Server) handleDeleteTopic(ctx context.Context, _ *mcp.CallToolRequest, args NameArgs) (*mcp.CallToolResult, DeletedResult, error) {
	if err := s.broker.DeleteTopic(ctx, args.Name); err != nil {
		if courier.IsNotFound(err) {
			return nil, DeletedResult{}, fmt.Errorf("topic %q not found", args.Name)
		}
		return nil, DeletedResult{}, fmt.Errorf("delete topic: %w", err)
	}
	s.log.WithField("topic", args.Name).Info("topic deleted")
	return nil, DeletedResult{Deleted: args.Name}, nil
}

type CreateSubscriptionArgs struct {
	Name        string `json:"name" jsonschema:"subscription name"`
	Topic       string `json:"topic" jsonschema:"topic to subscribe to"`
	AckDeadline *int64 `json:"ack_deadline,omitempty" jsonschema:"seconds before an unacked message is redelivered"`
	TTL         *int64 `json:"ttl,omitempty" jsonschema:"seconds the subscription lives without pulls, 0 for never"`
	Historical  *bool  `json:"historical,omitempty" jsonschema:"start from the oldest retained message"`
}

type SubscriptionResult struct {
	Subscription SubscriptionInfo `json:"subscription"`
}

func (s *Server) handleCreateSubscription(ctx context.Context, _ *mcp.CallToolRequest, args CreateSubscriptionArgs) (*mcp.CallToolResult, SubscriptionResult, error) {
	if args.Name == "" || args.Topic == "" {
		return nil, SubscriptionResult{}, errors.New("name and topic are required")
	}
	sub, err := s.broker.CreateSubscription(ctx, args.Name, courier.SubscriptionConfig{
		Topic:       args.Topic,
		AckDeadline: args.AckDeadline,
		TTL:         args.TTL,
		Historical:  args.Historical,
	})
	if err != nil {
		switch {
		case courier.IsConflict(err):
			return nil, SubscriptionResult{}, fmt.Errorf("subscription %q already exists", args.Name)
		case courier.IsNotFound(err):
			return nil, SubscriptionResult{}, fmt.Errorf("topic %q not found", args.Topic)
		}
		return nil, SubscriptionResult{}, fmt.Errorf("create subscription: %w", err)
	}
	s.log.WithFields(logrus.Fields{"subscription": args.Name, "topic": args.Topic}).Info("subscription created")
	return nil, SubscriptionResult{Subscription: subscriptionInfo(*sub, 0)}, nil
}

func (s *Server) handleDeleteSubscription(ctx context.Context, _ *mcp.CallToolRequest, args NameArgs) (*mcp.CallToolResult, DeletedResult, error) {
	if err := s.broker.DeleteSubscription(ctx, args.Name); err != nil {
		if courier.IsNotFound(err) {
			return nil, DeletedResult{}, fmt.Errorf("subscription %q not found", args.Name)
		}
		return nil, DeletedResult{}, fmt.Errorf("delete subscription: %w", err)
	}
	s.log.WithField("subscription", args.Name).Info("subscription deleted")
	return nil, DeletedResult{Deleted: args.Name}, nil
}

type PublishArgs struct {
	Topic    string   `json:"topic"`
	Messages []string `json:"messages" jsonschema:"message payloads, one message each"`
}

type MessageIDsResult struct {
	MessageIDs []string `json:"message_ids"`
}

func (s *Server) handlePublish(ctx context.Context, _ *mcp.CallToolRequest, args PublishArgs) (*mcp.CallToolResult, MessageIDsResult, error) {
	if len(args.Messages) == 0 {
		return nil, MessageIDsResult{}, errors.New("at least one message is required")
	}
	ids, err := s.broker.Publish(ctx, args.Topic, args.Messages...)
	if err != nil {
		return nil, MessageIDsResult{}, fmt.Errorf("publish: %w", err)
	}
	return nil, MessageIDsResult{MessageIDs: nonNil(ids)}, nil
}

type PullArgs struct {
	Subscription string `json:"subscription"`
	MaxMessages  uint   `json:"max_messages,omitempty" jsonschema:"at most this many messages, default 10"`
	Ack          bool   `json:"ack,omitempty" jsonschema:"acknowledge the pulled messages immediately"`
}

type PullResult struct {
	Messages []MessageInfo `json:"messages"`
	Acked    []string      `json:"acked,omitempty"`
}

func (s *Server) handlePull(ctx context.Context, _ *mcp.CallToolRequest, args PullArgs) (*mcp.CallToolResult, PullResult, error) {
	maxMessages := args.MaxMessages
	if maxMessages == 0 {
		maxMessages = defaultPullMax
	}
	maxMessages = min(maxMessages, maxPullMax)

	msgs, err := s.broker.Pull(ctx, args.Subscription, maxMessages)
	if err != nil {
		return nil, PullResult{}, fmt.Errorf("pull: %w", err)
	}
	res := PullResult{Messages: lo.Map(msgs, messageInfo)}
	if args.Ack && len(msgs) > 0 {
		ids := make([]string, 0, len(msgs))
		for _, m := range msgs {
			ids = append(ids, m.ID)
		}
		acked, err := s.broker.Ack(ctx, args.Subscription, ids...)
		if err != nil {
			return nil, PullResult{}, fmt.Errorf("ack pulled messages: %w", err)
		}
		res.Acked = acked
	}
	return nil, res, nil
}

type AckArgs struct {
	Subscription string   `json:"subscription"`
	MessageIDs   []string `json:"message_ids"`
}

func (s *Server) handleAck(ctx context.Context, _ *mcp.CallToolRequest, args AckArgs) (*mcp.CallToolResult, MessageIDsResult, error) {
	if len(args.MessageIDs) == 0 {
		return nil, MessageIDsResult{}, errors.New("at least one message id is required")
	}
	acked, err := s.broker.Ack(ctx, args.Subscription, args.MessageIDs...)
	if err != nil {
		return nil, MessageIDsResult{}, fmt.Errorf("ack: %w", err)
	}
	return nil, MessageIDsResult{MessageIDs: nonNil(acked)}, nil
}

type HistoryArgs struct {
	Topic        string `json:"topic,omitempty" jsonschema:"return this topic's samples"`
	Subscription string `json:"subscription,omitempty" jsonschema:"return this subscription's samples"`
	Limit        int    `json:"limit,omitempty" jsonschema:"number of rows, default 10, at most 100"`
}

type HistoryResult struct {
	Snapshots     []SnapshotRow           `json:"snapshots,omitempty"`
	Topics        []TopicSampleRow        `json:"topics,omitempty"`
	Subscriptions []SubscriptionSampleRow `json:"subscriptions,omitempty"`
}

func historyLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	return min(limit, maxLimit)
}

func (s *Server) handleGetHistory(ctx context.Context, _ *mcp.CallToolRequest, args HistoryArgs) (*mcp.CallToolResult, HistoryResult, error) {
	limit := historyLimit(args.Limit)
	var res HistoryResult
	switch {
	case args.Topic != "" && args.Subscription != "":
		return nil, HistoryResult{}, errors.New("give a topic or a subscription, not both")
	case args.Topic != "":
		samples, err := s.history.TopicHistory(ctx, args.Topic, limit)
		if err != nil {
			return nil, HistoryResult{}, fmt.Errorf("failed to query topic history: %w", err)
		}
		res.Topics = lo.Map(samples, topicSampleRow)
	case args.Subscription != "":
		samples, err := s.history.SubscriptionHistory(ctx, args.Subscription, limit)
		if err != nil {
			return nil, HistoryResult{}, fmt.Errorf("failed to query subscription history: %w", err)
		}
		res.Subscriptions = lo.Map(samples, subscriptionSampleRow)
	default:
		snaps, err := s.history.QuerySnapshots(ctx, limit)
		if err != nil {
			return nil, HistoryResult{}, fmt.Errorf("failed to query snapshots: %w", err)
		}
		res.Snapshots = lo.Map(snaps, snapshotRow)
	}
	return nil, res, nil
}

type QueryGraphArgs struct {
	Cypher string `json:"cypher" jsonschema:"read-only Cypher query"`
}

type QueryGraphResult struct {
	Rows []map[string]any `json:"rows"`
}

func (s *Server) handleQueryGraph(ctx context.Context, _ *mcp.CallToolRequest, args QueryGraphArgs) (*mcp.CallToolResult, QueryGraphResult, error) {
	if !graph.IsReadOnly(args.Cypher) {
		return nil, QueryGraphResult{}, graph.ErrWriteQuery
	}
	rows, err := s.graph.ExecuteCypher(ctx, args.Cypher)
	if err != nil {
		return nil, QueryGraphResult{}, fmt.Errorf("cypher query failed: %w", err)
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	return nil, QueryGraphResult{Rows: rows}, nil
}

type TopologyResult struct {
	Edges []graph.Edge `json:"edges"`
}

func (s *Server) handleGetTopology(ctx context.Context, _ *mcp.CallToolRequest, _ NoArgs) (*mcp.CallToolResult, TopologyResult, error) {
	edges, err := s.topology.Edges(ctx)
	if err != nil {
		return nil, TopologyResult{}, fmt.Errorf("topology: %w", err)
	}
	return nil, TopologyResult{Edges: edges}, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
