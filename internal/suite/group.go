package suite

import (
	"context"
	"errors"
	"fmt"
	"strings"

	m "twister.dev/pkg/twister/internal/model"
)

// Body is the code of one example.
type Body func(ctx context.Context, env Env) error

// PendingError marks an example as pending from inside its body.
type PendingError struct {
	Reason string
}

func (e *PendingError) Error() string {
	return "pending: " + e.Reason
}

// Pending returns an error that turns the running example pending.
func Pending(reason string) error {
	return &PendingError{Reason: reason}
}

// Example is a single named check.
type Example struct {
	Description string
	Body        Body
	// PendingReason, when set, skips the body.
	PendingReason string
}

// Group is a described set of examples and nested groups.
type Group struct {
	description string
	parent      *Group
	examples    []*Example
	children    []*Group
}

// Description returns the group's own description.
func (g *Group) Description() string {
	return g.description
}

// FullDescription joins the descriptions from the top-level group down.
func (g *Group) FullDescription() string {
	if g.parent == nil {
		return g.description
	}

	return strings.TrimSpace(g.parent.FullDescription() + " " + g.description)
}

// It adds an example.
func (g *Group) It(description string, body Body) *Example {
	ex := &Example{Description: description, Body: body}
	g.examples = append(g.examples, ex)

	return ex
}

// Skip adds an example that is pending with reason.
func (g *Group) Skip(description, reason string) *Example {
	ex := &Example{Description: description, PendingReason: reason}
	g.examples = append(g.examples, ex)

	return ex
}

// Describe adds a nested group.
func (g *Group) Describe(description string, build func(child *Group)) *Group {
	child := &Group{description: description, parent: g}
	if build != nil {
		build(child)
	}

	g.children = append(g.children, child)

	return child
}

func (g *Group) fullName(ex *Example) string {
	return g.FullDescription() + " " + ex.Description
}

func (g *Group) count(filter string) int {
	count := 0

	for _, ex := range g.examples {
		if matches(filter, g.fullName(ex)) {
			count++
		}
	}

	for _, child := range g.children {
		count += child.count(filter)
	}

	return count
}

// runner binds a group to the world it runs in.
type runner struct {
	group *Group
	world *World
}

func (r *runner) Description() string {
	return r.group.description
}

func (r *runner) Run(ctx context.Context, reporter m.ExampleReporter) bool {
	return r.world.runGroup(ctx, r.group, reporter)
}

func (w *World) runGroup(ctx context.Context, g *Group, reporter m.ExampleReporter) bool {
	info := m.GroupInfo{Description: g.FullDescription(), ExampleCount: g.count(w.opts.Filter)}

	reporter.ExampleGroupStarted(info)
	defer reporter.ExampleGroupFinished(info)

	passed := true

	for _, ex := range g.examples {
		if !matches(w.opts.Filter, g.fullName(ex)) {
			continue
		}

		if !w.runExample(ctx, g, ex, reporter) {
			passed = false
		}
	}

	for _, child := range g.children {
		if !w.runGroup(ctx, child, reporter) {
			passed = false
		}
	}

	return passed
}

func (w *World) runExample(ctx context.Context, g *Group, ex *Example, reporter m.ExampleReporter) bool {
	info := m.ExampleInfo{Group: g.FullDescription(), Description: ex.Description}

	reporter.ExampleStarted(info)

	if ex.PendingReason != "" {
		info.PendingReason = ex.PendingReason
		reporter.ExamplePending(info)

		return true
	}

	err := w.call(ctx, ex)

	var pending *PendingError

	switch {
	case err == nil:
		reporter.ExamplePassed(info)
		return true
	case errors.As(err, &pending):
		info.PendingReason = pending.Reason
		reporter.ExamplePending(info)

		return true
	default:
		info.Err = err
		reporter.ExampleFailed(info)

		return false
	}
}

func (w *World) call(ctx context.Context, ex *Example) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("example panicked: %v", p)
		}
	}()

	if ex.Body == nil {
		return Pending("not yet implemented")
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return ex.Body(ctx, w.env)
}
