package model

import "time"

// EventType names a reporter notification.
type EventType string

// Reporter notifications, in the order a cycle emits them.
const (
	EventStart                EventType = "start"
	EventMessage              EventType = "message"
	EventExampleGroupStarted  EventType = "example_group_started"
	EventExampleGroupFinished EventType = "example_group_finished"
	EventExampleStarted       EventType = "example_started"
	EventExamplePassed        EventType = "example_passed"
	EventExampleFailed        EventType = "example_failed"
	EventExamplePending       EventType = "example_pending"
	EventStop                 EventType = "stop"
	EventStartDump            EventType = "start_dump"
	EventDumpPending          EventType = "dump_pending"
	EventDumpFailures         EventType = "dump_failures"
	EventDumpSummary          EventType = "dump_summary"
	EventSeed                 EventType = "seed"
	EventClose                EventType = "close"
)

// GroupInfo describes an example group in notifications.
type GroupInfo struct {
	Description  string
	ExampleCount int // examples in the group and its descendants
}

// ExampleInfo describes an example in notifications.
type ExampleInfo struct {
	Group         string
	Description   string
	Err           error  // set for failures
	PendingReason string // set for pending examples
}

// FullDescription joins the group and example descriptions.
func (e ExampleInfo) FullDescription() string {
	if e.Group == "" {
		return e.Description
	}

	return e.Group + " " + e.Description
}

// Summary is the payload of dump_summary.
type Summary struct {
	Duration     time.Duration
	ExampleCount int
	FailureCount int
	PendingCount int
}

// Event is one reporter notification. Only the payload matching Type is set.
type Event struct {
	Type     EventType
	Count    int // start: expected example count
	Message  string
	Group    *GroupInfo
	Example  *ExampleInfo
	Pending  []ExampleInfo // dump_pending
	Failures []ExampleInfo // dump_failures
	Summary  *Summary
	Seed     uint64
}

// Observer receives reporter notifications.
type Observer interface {
	Notify(event Event) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(event Event) error

// Notify implements Observer.
func (f ObserverFunc) Notify(event Event) error {
	return f(event)
}
