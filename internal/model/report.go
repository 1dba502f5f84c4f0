package model

import "time"

// RunResult is the outcome of one suite execution.
type RunResult struct {
	ExampleCount int
	FailureCount int
	PendingCount int
	Duration     time.Duration
	ExitCode     int
}

// Passed reports whether every group passed.
func (r RunResult) Passed() bool {
	return r.ExitCode == 0
}

// ReporterState is the lifecycle state of a report cycle.
type ReporterState int

const (
	// StateIdle is the state before start and after a reset.
	StateIdle ReporterState = iota
	// StateStarted is entered by start.
	StateStarted
	// StateStopped is entered once the duration is computed.
	StateStopped
	// StateDumped is entered by start_dump.
	StateDumped
	// StateClosed is terminal for a cycle.
	StateClosed
)

func (s ReporterState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarted:
		return "started"
	case StateStopped:
		return "stopped"
	case StateDumped:
		return "dumped"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// TestStatus represents whether the suite detected a twist.
type TestStatus int

const (
	// Killed indicates the twist was detected by the suite.
	Killed TestStatus = iota
	// Survived indicates the twist was not detected.
	Survived
)

func (t TestStatus) String() string {
	switch t {
	case Killed:
		return "killed"
	case Survived:
		return "survived"
	default:
		return "unknown"
	}
}

// TwistOutcome records one mutated rerun.
type TwistOutcome struct {
	Point  Point
	Result RunResult
	Status TestStatus
}

// StatusFor classifies a twisted run against the baseline. The twist is
// killed when the suite fails more examples than the baseline did, or when
// the baseline passed and the twisted run did not.
func StatusFor(baseline, twisted RunResult) TestStatus {
	if twisted.FailureCount > baseline.FailureCount {
		return Killed
	}

	if baseline.Passed() && !twisted.Passed() {
		return Killed
	}

	return Survived
}
