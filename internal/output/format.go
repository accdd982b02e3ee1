package output

import (
	"fmt"
	"strings"
	"time"

	"courierdash/internal/engine"
	"courierdash/internal/metrics"
)

// Section constants to avoid hardcoded strings
const (
	SectionSubscriptions = "subscriptions"
	SectionBroker        = "broker"
)

// UI/view-model types (no printing here)
type Item struct {
	Key    string
	Label  string
	Value  float64
	Unit   string
	Status string
	Note   string
}

type Section struct {
	ID    string // subscriptions/broker
	Title string
	Items []Item
}

// StatRow is one line of the stats grid. Empty cells have no figure for
// that period.
type StatRow struct {
	Label string
	Cells []string
}

type StatsTable struct {
	Columns []string
	Rows    []StatRow
}

type DashboardView struct {
	Stats         StatsTable
	Topics        Table
	Subscriptions Table
	Sections      []Section
	Summary       engine.Summary
	Uptime        string
	Empty         bool
}

var statColumns = []string{
	"Topics", "Subscriptions", "Messages", "Expired", "Pending",
	"Pulled", "Retries", "Acks", "Acked", "Processed", "Memory RSS",
}

// BuildStats lays out the Current, Interval and All Time rows.
func BuildStats(s metrics.StateSnapshot) StatsTable {
	return StatsTable{
		Columns: statColumns,
		Rows: []StatRow{
			{Label: "Current", Cells: []string{
				Int(int64(s.NumTopics)), Int(int64(s.NumSubscriptions)), Int(s.Messages), "", Int(s.Pending),
				"", "", "", "", Percentage(s.PercentageProcessed, 0), Size(s.MemoryResidentSetSize),
			}},
			{Label: "Interval", Cells: []string{
				Int(s.TopicsInterval), Int(s.SubscriptionsInterval), Int(s.MessagesInterval), Int(s.ExpiredInterval), "",
				Int(s.PulledInterval), Int(s.PulledRetriesInterval), Int(s.AcksInterval), Int(s.AckedInterval), "",
				Size(s.MemoryResidentSetSizeInterval),
			}},
			{Label: "All Time", Cells: []string{
				Int(s.TopicsAllTime), Int(s.SubscriptionsAllTime), Int(s.MessagesAllTime), Int(s.ExpiredAllTime), "",
				Int(s.PulledAllTime), Int(s.PulledRetriesAllTime), Int(s.AcksAllTime), Int(s.AckedAllTime), "", "",
			}},
		},
	}
}

var topicColumns = []string{
	"Name", "Messages", "Subs", "Processed", "Msgs Δ", "Expired Δ", "Msg TTL", "TTL", "Expires", "Age",
}

// BuildTopicTable lists every topic, ordered by name.
func BuildTopicTable(s metrics.StateSnapshot, now time.Time) Table {
	t := Table{Columns: topicColumns}
	for _, topic := range s.SortedTopics() {
		subs := len(s.Topic2Subscriptions[topic.Name])
		age := now.Sub(topic.Created).Seconds()
		t.Rows = append(t.Rows, Row{
			Key: topic.Name,
			Cells: []string{
				topic.Name,
				fmt.Sprint(topic.Messages),
				fmt.Sprint(subs),
				Percentage(topic.PercentageProcessed, 1),
				fmt.Sprint(topic.MessagesInterval),
				fmt.Sprint(topic.ExpiredInterval),
				fmt.Sprint(topic.MessageTTL),
				fmt.Sprint(topic.TTL),
				Expires(topic.TTL, topic.Updated, now),
				Age(topic.Created, now),
			},
			Sort: []float64{
				text(),
				float64(topic.Messages),
				float64(subs),
				topic.PercentageProcessed,
				float64(topic.MessagesInterval),
				float64(topic.ExpiredInterval),
				float64(topic.MessageTTL),
				float64(topic.TTL),
				expiresKey(topic.TTL, topic.Updated, now),
				age,
			},
		})
	}
	return t
}

var subscriptionColumns = []string{
	"Name", "Topic", "Pending", "Position", "Processed", "Pulled Δ", "Retries Δ", "Acked Δ", "Ack Deadline", "Expires", "Age",
}

// BuildSubscriptionTable lists subs in the order given. Orphans are marked
// in the Topic column.
func BuildSubscriptionTable(subs []metrics.SubscriptionSnapshot, now time.Time) Table {
	t := Table{Columns: subscriptionColumns}
	for _, sub := range subs {
		topic := sub.Topic
		if sub.Orphaned {
			topic += " (orphaned)"
		}
		t.Rows = append(t.Rows, Row{
			Key: sub.Name,
			Cells: []string{
				sub.Name,
				topic,
				fmt.Sprint(sub.Pending),
				fmt.Sprintf("%d / %d", sub.NormalizedMessageIndex, sub.TopicMessages),
				Percentage(sub.PercentageProcessed, 1),
				fmt.Sprint(sub.PulledInterval),
				fmt.Sprint(sub.PulledRetriesInterval),
				fmt.Sprint(sub.AckedInterval),
				fmt.Sprint(sub.AckDeadline),
				Expires(sub.TTL, sub.Updated, now),
				Age(sub.Created, now),
			},
			Sort: []float64{
				text(),
				text(),
				float64(sub.Pending),
				float64(sub.NormalizedMessageIndex),
				sub.PercentageProcessed,
				float64(sub.PulledInterval),
				float64(sub.PulledRetriesInterval),
				float64(sub.AckedInterval),
				float64(sub.AckDeadline),
				expiresKey(sub.TTL, sub.Updated, now),
				now.Sub(sub.Created).Seconds(),
			},
		})
	}
	return t
}

// expiresKey sorts "never" after every finite expiry.
func expiresKey(ttl int64, updated, now time.Time) float64 {
	if ttl == 0 {
		return 1e18
	}
	return float64(ttl) - now.Sub(updated).Seconds()
}

// BuildDashboard converts a snapshot and its check results into UI-ready
// tables and sections.
func BuildDashboard(s metrics.StateSnapshot, results []engine.CheckResult, now time.Time) DashboardView {
	sec := map[string]*Section{
		SectionSubscriptions: {ID: SectionSubscriptions, Title: "Subscriptions"},
		SectionBroker:        {ID: SectionBroker, Title: "Broker"},
	}

	for _, r := range results {
		name := strings.ToLower(r.Name)
		it := Item{
			Key:    strings.ReplaceAll(name, " ", "_"),
			Label:  r.Name,
			Value:  r.Value,
			Status: r.Status,
		}

		switch {
		case strings.HasPrefix(name, "backlog"), name == "processed":
			it.Unit = "%"
			it.Note = Percentage(r.Value, 1)
		case strings.HasPrefix(name, "memory"):
			it.Unit = "B"
			it.Note = Size(int64(r.Value))
		case strings.HasPrefix(name, "orphaned"):
			it.Note = map[bool]string{true: "yes", false: "no"}[r.Value > 0]
		default:
			it.Note = Int(int64(r.Value))
		}

		if name == "processed" || strings.HasPrefix(name, "memory") {
			sec[SectionBroker].Items = append(sec[SectionBroker].Items, it)
		} else {
			sec[SectionSubscriptions].Items = append(sec[SectionSubscriptions].Items, it)
		}
	}

	return DashboardView{
		Stats:         BuildStats(s),
		Topics:        BuildTopicTable(s, now),
		Subscriptions: BuildSubscriptionTable(s.SortedSubscriptions(), now),
		Sections: []Section{
			*sec[SectionBroker],
			*sec[SectionSubscriptions],
		},
		Summary: engine.Summarize(results),
		Uptime:  Uptime(s.Uptime(now)),
		Empty:   s.IsEmpty(),
	}
}

func (v DashboardView) SectionByID(id string) *Section {
	for i := range v.Sections {
		if v.Sections[i].ID == id {
			return &v.Sections[i]
		}
	}
	return nil
}

func (s Section) ItemByKey(key string) *Item {
	for i := range s.Items {
		if s.Items[i].Key == key {
			return &s.Items[i]
		}
	}
	return nil
}
