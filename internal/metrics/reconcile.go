package metrics

import (
	"sort"

	"github.com/tidwall/gjson"
)

// Reconcile derives a new snapshot from a raw metrics document and the
// previously reconciled snapshot. It never fails: malformed input yields a
// well-formed, mostly zeroed snapshot. previous is not modified.
//
// Interval fields are plain differences against previous. A broker restart
// resets its all-time counters, which makes the next intervals negative; they
// are reported as such.
func Reconcile(raw []byte, previous StateSnapshot, opts ...Option) StateSnapshot {
	o := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	r := fieldReader{report: o.reporter}

	var doc gjson.Result
	if gjson.ValidBytes(raw) {
		doc = gjson.ParseBytes(raw)
	} else if len(raw) > 0 {
		r.issue("", "object", gjson.Result{})
	}
	return reconcile(r, doc, previous)
}

// ReconcileValue is Reconcile for a document that has already been parsed.
func ReconcileValue(doc gjson.Result, previous StateSnapshot, opts ...Option) StateSnapshot {
	o := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return reconcile(fieldReader{report: o.reporter}, doc, previous)
}

func reconcile(r fieldReader, doc gjson.Result, previous StateSnapshot) StateSnapshot {
	s := Empty()
	if doc.Exists() && !doc.IsObject() {
		r.issue("", "object", doc)
		doc = gjson.Result{}
	}

	s.TopicsAllTime = r.int(doc, "", "topics_all_time")
	s.SubscriptionsAllTime = r.int(doc, "", "subscriptions_all_time")
	s.MemoryResidentSetSize = r.int(doc, "", "memory_resident_set_size")
	s.StartTime = r.time(doc, "", "start_time")

	r.object(doc, "", "topics").ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		s.Topics[name] = r.topic(name, value)
		s.Topic2Subscriptions[name] = []SubscriptionSnapshot{}
		return true
	})

	blobs := map[string]gjson.Result{}
	r.object(doc, "", "subscriptions").ForEach(func(key, value gjson.Result) bool {
		blobs[key.String()] = value
		return true
	})
	names := make([]string, 0, len(blobs))
	for name := range blobs {
		names = append(names, name)
	}
	sort.Strings(names)

	var totalUnprocessed, totalSubscriptionMessages int64
	processedSlots := map[string]int64{}

	for _, name := range names {
		sub := r.subscription(name, blobs[name])
		prev := previous.Subscriptions[name]
		sub.PulledInterval = sub.PulledAllTime - prev.PulledAllTime
		sub.PulledRetriesInterval = sub.PulledRetriesAllTime - prev.PulledRetriesAllTime
		sub.AckedInterval = sub.AckedAllTime - prev.AckedAllTime
		sub.AcksInterval = sub.AcksAllTime - prev.AcksAllTime

		topic, ok := s.Topics[sub.Topic]
		if !ok {
			sub.Orphaned = true
			s.Subscriptions[name] = sub
			continue
		}

		sub.TopicMessages = topic.Messages
		sub.NormalizedMessageIndex = topic.Messages - (topic.MessagesAllTime - sub.MessageIndex)
		unprocessed := topic.MessagesAllTime - sub.MessageIndex + sub.Pending
		sub.PercentageProcessed = 1
		if topic.Messages > 0 {
			sub.PercentageProcessed = clamp01(1 - float64(unprocessed)/float64(topic.Messages))
		}

		s.Subscriptions[name] = sub
		s.Topic2Subscriptions[sub.Topic] = append(s.Topic2Subscriptions[sub.Topic], sub)

		processedSlots[sub.Topic] += sub.NormalizedMessageIndex - sub.Pending
		totalUnprocessed += unprocessed
		totalSubscriptionMessages += topic.Messages

		s.Pending += sub.Pending
		s.PulledAllTime += sub.PulledAllTime
		s.PulledRetriesAllTime += sub.PulledRetriesAllTime
		s.AcksAllTime += sub.AcksAllTime
		s.AckedAllTime += sub.AckedAllTime
	}

	for name, topic := range s.Topics {
		prev := previous.Topics[name]
		topic.MessagesInterval = topic.MessagesAllTime - prev.MessagesAllTime
		topic.ExpiredInterval = topic.ExpiredAllTime - prev.ExpiredAllTime

		slots := topic.Messages * int64(len(s.Topic2Subscriptions[name]))
		topic.PercentageProcessed = 1
		if slots > 0 {
			topic.PercentageProcessed = clamp01(float64(processedSlots[name]) / float64(slots))
		}
		s.Topics[name] = topic

		s.Messages += topic.Messages
		s.MessagesAllTime += topic.MessagesAllTime
		s.ExpiredAllTime += topic.ExpiredAllTime
	}

	s.NumTopics = len(s.Topics)
	s.NumSubscriptions = len(s.Subscriptions)

	s.TopicsInterval = s.TopicsAllTime - previous.TopicsAllTime
	s.SubscriptionsInterval = s.SubscriptionsAllTime - previous.SubscriptionsAllTime
	s.MessagesInterval = s.MessagesAllTime - previous.MessagesAllTime
	s.ExpiredInterval = s.ExpiredAllTime - previous.ExpiredAllTime
	s.PulledInterval = s.PulledAllTime - previous.PulledAllTime
	s.PulledRetriesInterval = s.PulledRetriesAllTime - previous.PulledRetriesAllTime
	s.AcksInterval = s.AcksAllTime - previous.AcksAllTime
	s.AckedInterval = s.AckedAllTime - previous.AckedAllTime
	s.MemoryResidentSetSizeInterval = s.MemoryResidentSetSize - previous.MemoryResidentSetSize

	s.PercentageProcessed = 1
	if totalSubscriptionMessages > 0 {
		s.PercentageProcessed = clamp01(1 - float64(totalUnprocessed)/float64(totalSubscriptionMessages))
	}

	return s
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
