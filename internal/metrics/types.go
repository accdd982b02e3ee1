// Package metrics turns the broker's raw metrics document into a fully derived
// state snapshot.
package metrics

import (
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Epoch is the fallback for timestamps that are missing or malformed.
var Epoch = time.Unix(0, 0).UTC()

// TopicSnapshot is one topic as reported by the broker plus its derived figures.
type TopicSnapshot struct {
	Name            string
	MessageTTL      int64
	TTL             int64
	Messages        int64
	MessagesAllTime int64
	ExpiredAllTime  int64
	Created         time.Time
	Updated         time.Time

	MessagesInterval    int64
	ExpiredInterval     int64
	PercentageProcessed float64
}

// SubscriptionSnapshot is one subscription as reported by the broker plus its
// derived figures. Orphaned subscriptions reference a topic that is not in the
// same document.
type SubscriptionSnapshot struct {
	Name                 string
	Topic                string
	AckDeadline          int64
	TTL                  int64
	Pending              int64
	PulledAllTime        int64
	PulledRetriesAllTime int64
	AcksAllTime          int64
	AckedAllTime         int64
	MessageIndex         int64
	Created              time.Time
	Updated              time.Time

	TopicMessages          int64
	NormalizedMessageIndex int64
	PulledInterval         int64
	PulledRetriesInterval  int64
	AckedInterval          int64
	AcksInterval           int64
	PercentageProcessed    float64
	Orphaned               bool
}

// StateSnapshot is the result of one reconciliation. It is never mutated after
// Reconcile returns it.
type StateSnapshot struct {
	Topics              map[string]TopicSnapshot
	Subscriptions       map[string]SubscriptionSnapshot
	Topic2Subscriptions map[string][]SubscriptionSnapshot

	StartTime                     time.Time
	MemoryResidentSetSize         int64
	MemoryResidentSetSizeInterval int64

	NumTopics        int
	NumSubscriptions int

	TopicsAllTime         int64
	TopicsInterval        int64
	SubscriptionsAllTime  int64
	SubscriptionsInterval int64

	Messages         int64
	MessagesAllTime  int64
	MessagesInterval int64
	ExpiredAllTime   int64
	ExpiredInterval  int64

	Pending               int64
	PulledAllTime         int64
	PulledInterval        int64
	PulledRetriesAllTime  int64
	PulledRetriesInterval int64
	AcksAllTime           int64
	AcksInterval          int64
	AckedAllTime          int64
	AckedInterval         int64

	PercentageProcessed float64
}

// Empty returns the snapshot used before the first poll and after a failed one.
func Empty() StateSnapshot {
	return StateSnapshot{
		Topics:              map[string]TopicSnapshot{},
		Subscriptions:       map[string]SubscriptionSnapshot{},
		Topic2Subscriptions: map[string][]SubscriptionSnapshot{},
		StartTime:           Epoch,
	}
}

// IsEmpty reports whether the snapshot carries no broker data at all.
func (s StateSnapshot) IsEmpty() bool {
	return len(s.Topics) == 0 && len(s.Subscriptions) == 0 && s.StartTime.Equal(Epoch) &&
		s.TopicsAllTime == 0 && s.SubscriptionsAllTime == 0
}

// SortedTopics returns the topics ordered by name.
func (s StateSnapshot) SortedTopics() []TopicSnapshot {
	topics := lo.Values(s.Topics)
	slices.SortFunc(topics, func(a, b TopicSnapshot) int { return strings.Compare(a.Name, b.Name) })
	return topics
}

// SortedSubscriptions returns the subscriptions ordered by name.
func (s StateSnapshot) SortedSubscriptions() []SubscriptionSnapshot {
	subs := lo.Values(s.Subscriptions)
	slices.SortFunc(subs, func(a, b SubscriptionSnapshot) int { return strings.Compare(a.Name, b.Name) })
	return subs
}

// Uptime is the broker uptime relative to now. Zero when the start time is unknown.
func (s StateSnapshot) Uptime(now time.Time) time.Duration {
	if s.StartTime.IsZero() || s.StartTime.Equal(Epoch) || now.Before(s.StartTime) {
		return 0
	}
	return now.Sub(s.StartTime)
}

// Generations is the current and previous snapshot pair. Only one-step deltas
// are ever needed, so no longer history is kept.
type Generations struct {
	Current  StateSnapshot
	Previous StateSnapshot
}

// NewGenerations returns a pair of empty snapshots.
func NewGenerations() Generations {
	return Generations{Current: Empty(), Previous: Empty()}
}

// Advance makes next the current snapshot and demotes the old current one.
func (g Generations) Advance(next StateSnapshot) Generations {
	return Generations{Current: next, Previous: g.Current}
}

// Reset drops both generations, so the next reconciliation starts from a zero baseline.
func (g Generations) Reset() Generations {
	return NewGenerations()
}
