package state

import (
	"time"

	"courierdash/internal/engine"
	"courierdash/internal/metrics"
	"courierdash/internal/output"
)

type Page int

const (
	PageMenu Page = iota
	PageStats
	PageTopics
	PageSubscriptions
	PagePublish
	PagePull
	PageNewTopic
	PageNewSubscription
	PageConsole
)

// MenuPages lists the pages reachable from the menu, in menu order.
var MenuPages = []Page{
	PageStats,
	PageTopics,
	PageSubscriptions,
	PagePublish,
	PagePull,
	PageNewTopic,
	PageNewSubscription,
	PageConsole,
}

func (p Page) Title() string {
	switch p {
	case PageStats:
		return "Stats"
	case PageTopics:
		return "Topics"
	case PageSubscriptions:
		return "Subscriptions"
	case PagePublish:
		return "Publish"
	case PagePull:
		return "Pull & Ack"
	case PageNewTopic:
		return "New Topic"
	case PageNewSubscription:
		return "New Subscription"
	case PageConsole:
		return "Console Log"
	default:
		return "Menu"
	}
}

type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeSuccess
	NoticeError
)

// Notice is the banner shown under the header until it expires.
type Notice struct {
	ID    int
	Text  string
	Level NoticeLevel
}

// PendingDelete is a delete waiting for y/n.
type PendingDelete struct {
	Kind string // "topic" or "subscription"
	Name string
}

// AppState holds the current snapshot of the broker
type AppState struct {
	Snapshot    metrics.StateSnapshot
	Results     []engine.CheckResult
	Dashboard   output.DashboardView
	LastUpdate  time.Time
	Err         error
	CurrentPage Page

	Interval time.Duration
	Updating bool

	Notice  *Notice
	Confirm *PendingDelete

	// TopicScope limits the Subscriptions page to one topic.
	TopicScope string
}
