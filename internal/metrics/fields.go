package metrics

import (
	"time"

	"github.com/tidwall/gjson"
)

// FieldIssue describes a field that was present but had the wrong type. The
// field is left at its zero value.
type FieldIssue struct {
	Path string
	Want string
	Got  string
}

// Reporter receives field issues. It must not retain or mutate the snapshot.
type Reporter func(FieldIssue)

// Option configures a reconciliation.
type Option func(*options)

type options struct {
	reporter Reporter
}

// WithReporter routes skipped fields to r.
func WithReporter(r Reporter) Option {
	return func(o *options) {
		o.reporter = r
	}
}

type fieldReader struct {
	report Reporter
}

func join(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

func (r fieldReader) issue(path, want string, got gjson.Result) {
	if r.report == nil {
		return
	}
	r.report(FieldIssue{Path: path, Want: want, Got: got.Type.String()})
}

func (r fieldReader) int(obj gjson.Result, parent, key string) int64 {
	v := obj.Get(key)
	if !v.Exists() {
		return 0
	}
	if v.Type != gjson.Number {
		r.issue(join(parent, key), "number", v)
		return 0
	}
	return v.Int()
}

func (r fieldReader) string(obj gjson.Result, parent, key string) string {
	v := obj.Get(key)
	if !v.Exists() {
		return ""
	}
	if v.Type != gjson.String {
		r.issue(join(parent, key), "string", v)
		return ""
	}
	return v.Str
}

func (r fieldReader) time(obj gjson.Result, parent, key string) time.Time {
	v := obj.Get(key)
	if !v.Exists() {
		return Epoch
	}
	if v.Type != gjson.String {
		r.issue(join(parent, key), "timestamp", v)
		return Epoch
	}
	t, err := time.Parse(time.RFC3339, v.Str)
	if err != nil {
		r.issue(join(parent, key), "timestamp", v)
		return Epoch
	}
	return t.UTC()
}

// object returns the named child when it is a JSON object and an empty result otherwise.
func (r fieldReader) object(obj gjson.Result, parent, key string) gjson.Result {
	v := obj.Get(key)
	if !v.Exists() {
		return gjson.Result{}
	}
	if !v.IsObject() {
		r.issue(join(parent, key), "object", v)
		return gjson.Result{}
	}
	return v
}

func (r fieldReader) topic(name string, blob gjson.Result) TopicSnapshot {
	path := join("topics", name)
	t := TopicSnapshot{Name: name, Created: Epoch, Updated: Epoch}
	if !blob.IsObject() {
		r.issue(path, "object", blob)
		return t
	}
	t.Messages = r.int(blob, path, "messages")
	t.MessagesAllTime = r.int(blob, path, "messages_all_time")
	t.ExpiredAllTime = r.int(blob, path, "expired_all_time")
	t.MessageTTL = r.int(blob, path, "message_ttl")
	t.TTL = r.int(blob, path, "ttl")
	t.Created = r.time(blob, path, "created")
	t.Updated = r.time(blob, path, "updated")
	return t
}

func (r fieldReader) subscription(name string, blob gjson.Result) SubscriptionSnapshot {
	path := join("subscriptions", name)
	s := SubscriptionSnapshot{Name: name, Created: Epoch, Updated: Epoch}
	if !blob.IsObject() {
		r.issue(path, "object", blob)
		return s
	}
	s.Topic = r.string(blob, path, "topic")
	s.Pending = r.int(blob, path, "pending")
	s.PulledAllTime = r.int(blob, path, "pulled_all_time")
	s.PulledRetriesAllTime = r.int(blob, path, "pulled_retries_all_time")
	s.AcksAllTime = r.int(blob, path, "acks_all_time")
	s.AckedAllTime = r.int(blob, path, "acked_all_time")
	s.MessageIndex = r.int(blob, path, "message_index")
	s.AckDeadline = r.int(blob, path, "ack_deadline")
	s.TTL = r.int(blob, path, "ttl")
	s.Created = r.time(blob, path, "created")
	s.Updated = r.time(blob, path, "updated")
	return s
}
