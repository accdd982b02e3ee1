package courier

import "time"

// Topic is the broker's view of a topic.
type Topic struct {
	Name       string    `json:"name"`
	MessageTTL int64     `json:"message_ttl"`
	TTL        int64     `json:"ttl"`
	Created    time.Time `json:"created"`
	Updated    time.Time `json:"updated"`
}

// TopicConfig is the body of a topic create request. Nil fields fall back to
// the broker defaults.
type TopicConfig struct {
	MessageTTL *int64 `json:"message_ttl,omitempty"`
	TTL        *int64 `json:"ttl,omitempty"`
}

// Subscription is the broker's view of a subscription.
type Subscription struct {
	Name        string    `json:"name"`
	Topic       string    `json:"topic"`
	AckDeadline int64     `json:"ack_deadline"`
	TTL         int64     `json:"ttl"`
	Created     time.Time `json:"created"`
	Updated     time.Time `json:"updated"`
}

// SubscriptionConfig is the body of a subscription create request.
type SubscriptionConfig struct {
	Topic       string `json:"topic"`
	AckDeadline *int64 `json:"ack_deadline,omitempty"`
	TTL         *int64 `json:"ttl,omitempty"`
	Historical  *bool  `json:"historical,omitempty"`
}

// Message is a message handed out by a pull.
type Message struct {
	ID    string    `json:"id"`
	Time  time.Time `json:"time"`
	Tries uint32    `json:"tries"`
	Data  string    `json:"data"`
}

type rawMessage struct {
	Data string `json:"data"`
}

type rawMessageList struct {
	RawMessages []rawMessage `json:"raw_messages"`
}

type messageIDList struct {
	MessageIDs []string `json:"message_ids"`
}

type messageList struct {
	Messages []Message `json:"messages"`
}

type pullConfig struct {
	MaxMessages uint `json:"max_messages"`
}

type topicList struct {
	Topics []Topic `json:"topics"`
}

type subscriptionList struct {
	Subscriptions []Subscription `json:"subscriptions"`
}

// Int64 returns a pointer to v, for the optional config fields.
func Int64(v int64) *int64 { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }
