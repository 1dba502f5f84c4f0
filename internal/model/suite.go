package model

import "context"

// HookPhase says whether a suite hook runs before or after.
type HookPhase string

// HookScope is what a suite hook wraps.
type HookScope string

const (
	// HookBefore runs ahead of the scope.
	HookBefore HookPhase = "before"
	// HookAfter runs once the scope is done, even after a failure.
	HookAfter HookPhase = "after"

	// ScopeSuite wraps a whole suite run.
	ScopeSuite HookScope = "suite"
)

// ExampleReporter is the part of the reporter that example groups drive.
type ExampleReporter interface {
	Message(text string)
	ExampleGroupStarted(group GroupInfo)
	ExampleGroupFinished(group GroupInfo)
	ExampleStarted(example ExampleInfo)
	ExamplePassed(example ExampleInfo)
	ExampleFailed(example ExampleInfo)
	ExamplePending(example ExampleInfo)
}

// ExampleGroup is a runnable top-level group. Run reports whether every
// example in the group passed.
type ExampleGroup interface {
	Description() string
	Run(ctx context.Context, reporter ExampleReporter) bool
}

// World is the suite-definition collaborator consumed by a suite run.
type World interface {
	ExampleCount() int
	Groups() []ExampleGroup
	AnnounceFilters(reporter ExampleReporter)
	RunHook(ctx context.Context, phase HookPhase, scope HookScope) error
}
