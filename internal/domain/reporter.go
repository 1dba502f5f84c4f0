package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	m "twister.dev/pkg/twister/internal/model"
)

// ErrReporterBusy is returned when a report cycle starts on a reporter that
// has not been reset since its previous cycle.
var ErrReporterBusy = errors.New("reporter cycle already in progress")

// Reporter aggregates example counts for one report cycle and fans every
// lifecycle event out to its observers in registration order. One cycle
// runs at a time; Reset or Prepare readies the reporter for the next.
type Reporter struct {
	observers []m.Observer
	now       func() time.Time

	state    m.ReporterState
	terse    bool
	start    time.Time
	started  bool
	duration time.Duration

	exampleCount int
	failureCount int
	pendingCount int
	pending      []m.ExampleInfo
	failures     []m.ExampleInfo

	observerFailures int
}

// ReporterOption configures a Reporter.
type ReporterOption func(*Reporter)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) ReporterOption {
	return func(r *Reporter) {
		r.now = now
	}
}

// WithObservers registers observers in order.
func WithObservers(observers ...m.Observer) ReporterOption {
	return func(r *Reporter) {
		r.observers = append(r.observers, observers...)
	}
}

// NewReporter returns an idle reporter in normal mode.
func NewReporter(opts ...ReporterOption) *Reporter {
	r := &Reporter{now: time.Now}

	for _, opt := range opts {
		opt(r)
	}

	r.Prepare()

	return r
}

// AddObserver registers an observer after the existing ones.
func (r *Reporter) AddObserver(observer m.Observer) {
	r.observers = append(r.observers, observer)
}

// Prepare zeroes the counters and selects normal mode.
func (r *Reporter) Prepare() {
	r.Reset()
	r.terse = false
}

// PrepareTerse zeroes the counters and selects terse mode, which suppresses
// per-example and per-group notifications but keeps counting.
func (r *Reporter) PrepareTerse() {
	r.Reset()
	r.terse = true
}

// Reset zeroes the counters and timestamps, keeping the current mode.
func (r *Reporter) Reset() {
	r.state = m.StateIdle
	r.exampleCount, r.failureCount, r.pendingCount = 0, 0, 0
	r.pending, r.failures = nil, nil
	r.start, r.started, r.duration = time.Time{}, false, 0
}

// Terse reports whether terse mode is on.
func (r *Reporter) Terse() bool { return r.terse }

// State returns the lifecycle state.
func (r *Reporter) State() m.ReporterState { return r.state }

// ObserverFailures counts observer notifications that failed since creation.
func (r *Reporter) ObserverFailures() int { return r.observerFailures }

// Result returns the counts of the current or last cycle.
func (r *Reporter) Result() m.RunResult {
	return m.RunResult{
		ExampleCount: r.exampleCount,
		FailureCount: r.failureCount,
		PendingCount: r.pendingCount,
		Duration:     r.duration,
	}
}

// Report runs one cycle: start, body, then finish. Finish always runs, also
// when body fails or panics, so observers always get close exactly once.
// The seed is announced when non-nil.
func (r *Reporter) Report(ctx context.Context, expected int, seed *uint64, body func(ctx context.Context, r *Reporter) error) error {
	if err := r.Start(expected); err != nil {
		return err
	}

	bodyErr := r.runBody(ctx, body)

	r.Finish(seed)

	return bodyErr
}

func (r *Reporter) runBody(ctx context.Context, body func(ctx context.Context, r *Reporter) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("report body panicked", "panic", p, "stack", string(debug.Stack()))
			err = fmt.Errorf("report body panicked: %v", p)
		}
	}()

	return body(ctx, r)
}

// Start opens a cycle and announces the expected example count.
func (r *Reporter) Start(expected int) error {
	if r.state != m.StateIdle {
		return fmt.Errorf("%w: state %s", ErrReporterBusy, r.state)
	}

	r.start = r.now()
	r.started = true
	r.state = m.StateStarted
	r.notify(m.Event{Type: m.EventStart, Count: expected})

	return nil
}

// Message forwards free text to observers.
func (r *Reporter) Message(text string) {
	if r.terse {
		return
	}

	r.notify(m.Event{Type: m.EventMessage, Message: text})
}

// ExampleGroupStarted announces a group that has examples to run.
func (r *Reporter) ExampleGroupStarted(group m.GroupInfo) {
	if r.terse || group.ExampleCount == 0 {
		return
	}

	r.notify(m.Event{Type: m.EventExampleGroupStarted, Group: &group})
}

// ExampleGroupFinished closes a group announced by ExampleGroupStarted.
func (r *Reporter) ExampleGroupFinished(group m.GroupInfo) {
	if r.terse || group.ExampleCount == 0 {
		return
	}

	r.notify(m.Event{Type: m.EventExampleGroupFinished, Group: &group})
}

// ExampleStarted counts an example.
func (r *Reporter) ExampleStarted(example m.ExampleInfo) {
	r.exampleCount++

	if !r.terse {
		r.notify(m.Event{Type: m.EventExampleStarted, Example: &example})
	}
}

// ExamplePassed records a passing example.
func (r *Reporter) ExamplePassed(example m.ExampleInfo) {
	if !r.terse {
		r.notify(m.Event{Type: m.EventExamplePassed, Example: &example})
	}
}

// ExampleFailed records a failing example.
func (r *Reporter) ExampleFailed(example m.ExampleInfo) {
	r.failureCount++
	r.failures = append(r.failures, example)

	if !r.terse {
		r.notify(m.Event{Type: m.EventExampleFailed, Example: &example})
	}
}

// ExamplePending records a pending example.
func (r *Reporter) ExamplePending(example m.ExampleInfo) {
	r.pendingCount++
	r.pending = append(r.pending, example)

	if !r.terse {
		r.notify(m.Event{Type: m.EventExamplePending, Example: &example})
	}
}

// Finish stops the clock and delivers the dump sequence, ending with close.
// Close is delivered even if an earlier step fails.
func (r *Reporter) Finish(seed *uint64) {
	defer r.close()

	r.stop()

	r.state = m.StateDumped
	r.notify(m.Event{Type: m.EventStartDump})

	if !r.terse {
		r.notify(m.Event{Type: m.EventDumpPending, Pending: r.pending})
		r.notify(m.Event{Type: m.EventDumpFailures, Failures: r.failures})
	}

	r.notify(m.Event{Type: m.EventDumpSummary, Summary: &m.Summary{
		Duration:     r.duration,
		ExampleCount: r.exampleCount,
		FailureCount: r.failureCount,
		PendingCount: r.pendingCount,
	}})

	if seed != nil {
		r.notify(m.Event{Type: m.EventSeed, Seed: *seed})
	}
}

// Abort ends the cycle early; it is the same sequence as Finish.
func (r *Reporter) Abort(seed *uint64) {
	r.Finish(seed)
}

func (r *Reporter) stop() {
	if r.started {
		r.duration = r.now().Sub(r.start)
		if r.duration < 0 {
			r.duration = 0
		}
	}

	r.state = m.StateStopped
	r.notify(m.Event{Type: m.EventStop})
}

func (r *Reporter) close() {
	r.notify(m.Event{Type: m.EventClose})
	r.state = m.StateClosed
}

// notify delivers event to every observer independently: a failing or
// panicking observer is logged and skipped.
func (r *Reporter) notify(event m.Event) {
	for i, observer := range r.observers {
		if err := safeNotify(observer, event); err != nil {
			r.observerFailures++
			slog.Warn("observer failed", "observer", i, "event", event.Type, "error", err)
		}
	}
}

func safeNotify(observer m.Observer, event m.Event) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("observer panicked: %v", p)
		}
	}()

	return observer.Notify(event)
}
