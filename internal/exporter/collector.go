// Package exporter re-exports the latest reconciled snapshot as Prometheus
// gauges.
package exporter

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"courierdash/internal/metrics"
)

const namespace = "courier"

// Collector implements prometheus.Collector over the most recent snapshot and
// poller.Sink to receive it.
type Collector struct {
	mu       sync.RWMutex
	snap     metrics.StateSnapshot
	up       bool
	lastPoll time.Time

	upDesc          *prometheus.Desc
	lastPollDesc    *prometheus.Desc
	global          []globalGauge
	topicMessages   *prometheus.Desc
	topicProcessed  *prometheus.Desc
	topicInterval   *prometheus.Desc
	subPending      *prometheus.Desc
	subProcessed    *prometheus.Desc
	subOrphaned     *prometheus.Desc
	subPulledDelta  *prometheus.Desc
	subAckedDelta   *prometheus.Desc
	subRetriesDelta *prometheus.Desc
}

type globalGauge struct {
	desc  *prometheus.Desc
	value func(metrics.StateSnapshot) float64
}

var _ prometheus.Collector = (*Collector)(nil)

func gauge(name, help string, labels ...string) *prometheus.Desc {
	return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, labels, nil)
}

func New() *Collector {
	c := &Collector{
		snap:            metrics.Empty(),
		upDesc:          gauge("up", "Whether the last metrics fetch succeeded."),
		lastPollDesc:    gauge("last_poll_timestamp_seconds", "Unix time of the last successful fetch."),
		topicMessages:   gauge("topic_messages", "Messages currently held by the topic.", "topic"),
		topicProcessed:  gauge("topic_processed_ratio", "Fraction of topic messages processed by its subscriptions.", "topic"),
		topicInterval:   gauge("topic_messages_interval", "Messages published to the topic since the previous poll.", "topic"),
		subPending:      gauge("subscription_pending", "Messages pulled but not yet acked.", "subscription", "topic"),
		subProcessed:    gauge("subscription_processed_ratio", "Fraction of the topic processed by the subscription.", "subscription", "topic"),
		subOrphaned:     gauge("subscription_orphaned", "1 when the subscription's topic no longer exists.", "subscription", "topic"),
		subPulledDelta:  gauge("subscription_pulled_interval", "Messages pulled since the previous poll.", "subscription", "topic"),
		subAckedDelta:   gauge("subscription_acked_interval", "Messages acked since the previous poll.", "subscription", "topic"),
		subRetriesDelta: gauge("subscription_pulled_retries_interval", "Redeliveries since the previous poll.", "subscription", "topic"),
	}

	c.global = []globalGauge{
		{gauge("topics", "Number of topics."), func(s metrics.StateSnapshot) float64 { return float64(s.NumTopics) }},
		{gauge("subscriptions", "Number of subscriptions."), func(s metrics.StateSnapshot) float64 { return float64(s.NumSubscriptions) }},
		{gauge("messages", "Messages currently held across topics."), func(s metrics.StateSnapshot) float64 { return float64(s.Messages) }},
		{gauge("messages_all_time", "Messages ever published."), func(s metrics.StateSnapshot) float64 { return float64(s.MessagesAllTime) }},
		{gauge("expired_all_time", "Messages ever expired."), func(s metrics.StateSnapshot) float64 { return float64(s.ExpiredAllTime) }},
		{gauge("pending", "Messages pulled but not yet acked."), func(s metrics.StateSnapshot) float64 { return float64(s.Pending) }},
		{gauge("pulled_all_time", "Messages ever pulled."), func(s metrics.StateSnapshot) float64 { return float64(s.PulledAllTime) }},
		{gauge("pulled_retries_all_time", "Messages ever redelivered."), func(s metrics.StateSnapshot) float64 { return float64(s.PulledRetriesAllTime) }},
		{gauge("acked_all_time", "Messages ever acked."), func(s metrics.StateSnapshot) float64 { return float64(s.AckedAllTime) }},
		{gauge("processed_ratio", "Fraction of all subscription messages processed."), func(s metrics.StateSnapshot) float64 { return s.PercentageProcessed }},
		{gauge("memory_resident_set_size_bytes", "Broker resident set size."), func(s metrics.StateSnapshot) float64 { return float64(s.MemoryResidentSetSize) }},
		{gauge("start_time_seconds", "Unix time the broker started."), func(s metrics.StateSnapshot) float64 { return float64(s.StartTime.Unix()) }},
	}
	return c
}

// Observe stores snap as the exported state.
func (c *Collector) Observe(_ context.Context, at time.Time, snap metrics.StateSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = snap
	c.up = true
	c.lastPoll = at
	return nil
}

// Failed marks the broker down and clears the exported state.
func (c *Collector) Failed(error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = metrics.Empty()
	c.up = false
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.upDesc
	ch <- c.lastPollDesc
	for _, g := range c.global {
		ch <- g.desc
	}
	for _, d := range []*prometheus.Desc{
		c.topicMessages, c.topicProcessed, c.topicInterval,
		c.subPending, c.subProcessed, c.subOrphaned, c.subPulledDelta, c.subAckedDelta, c.subRetriesDelta,
	} {
		ch <- d
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	up := 0.0
	if c.up {
		up = 1
	}
	ch <- prometheus.MustNewConstMetric(c.upDesc, prometheus.GaugeValue, up)
	if !c.up {
		return
	}
	ch <- prometheus.MustNewConstMetric(c.lastPollDesc, prometheus.GaugeValue, float64(c.lastPoll.Unix()))

	for _, g := range c.global {
		ch <- prometheus.MustNewConstMetric(g.desc, prometheus.GaugeValue, g.value(c.snap))
	}

	for _, t := range c.snap.SortedTopics() {
		ch <- prometheus.MustNewConstMetric(c.topicMessages, prometheus.GaugeValue, float64(t.Messages), t.Name)
		ch <- prometheus.MustNewConstMetric(c.topicProcessed, prometheus.GaugeValue, t.PercentageProcessed, t.Name)
		ch <- prometheus.MustNewConstMetric(c.topicInterval, prometheus.GaugeValue, float64(t.MessagesInterval), t.Name)
	}

	for _, s := range c.snap.SortedSubscriptions() {
		orphaned := 0.0
		if s.Orphaned {
			orphaned = 1
		}
		ch <- prometheus.MustNewConstMetric(c.subPending, prometheus.GaugeValue, float64(s.Pending), s.Name, s.Topic)
		ch <- prometheus.MustNewConstMetric(c.subProcessed, prometheus.GaugeValue, s.PercentageProcessed, s.Name, s.Topic)
		ch <- prometheus.MustNewConstMetric(c.subOrphaned, prometheus.GaugeValue, orphaned, s.Name, s.Topic)
		ch <- prometheus.MustNewConstMetric(c.subPulledDelta, prometheus.GaugeValue, float64(s.PulledInterval), s.Name, s.Topic)
		ch <- prometheus.MustNewConstMetric(c.subAckedDelta, prometheus.GaugeValue, float64(s.AckedInterval), s.Name, s.Topic)
		ch <- prometheus.MustNewConstMetric(c.subRetriesDelta, prometheus.GaugeValue, float64(s.PulledRetriesInterval), s.Name, s.Topic)
	}
}
