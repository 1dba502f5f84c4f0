// Package suite holds example groups and the world that orders, filters and
// runs them against a reporter.
package suite

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	m "twister.dev/pkg/twister/internal/model"
)

// Env is what example bodies run against: the loaded code units.
type Env interface {
	Call(ctx context.Context, name string, args ...any) (any, error)
	Value(name string) (any, error)
}

// Hook runs around the whole suite.
type Hook func(ctx context.Context) error

// Options control which examples run and in which order.
type Options struct {
	Order m.Order
	Seed  uint64
	// Filter keeps only examples whose full description contains it.
	Filter string
}

// World owns the top-level groups and suite hooks.
type World struct {
	env    Env
	opts   Options
	groups []*Group
	before []Hook
	after  []Hook
}

// NewWorld returns an empty world.
func NewWorld(env Env, opts Options) *World {
	if opts.Order == "" {
		opts.Order = m.OrderDefined
	}

	return &World{env: env, opts: opts}
}

// Options returns the options the world was built with.
func (w *World) Options() Options {
	return w.opts
}

// Describe adds a top-level group and lets build fill it.
func (w *World) Describe(description string, build func(g *Group)) *Group {
	g := &Group{description: description}
	if build != nil {
		build(g)
	}

	w.groups = append(w.groups, g)

	return g
}

// BeforeSuite registers a hook run before any group.
func (w *World) BeforeSuite(h Hook) {
	w.before = append(w.before, h)
}

// AfterSuite registers a hook run after every group, in reverse order.
func (w *World) AfterSuite(h Hook) {
	w.after = append(w.after, h)
}

// ExampleCount counts the examples that pass the filter.
func (w *World) ExampleCount() int {
	count := 0
	for _, g := range w.groups {
		count += g.count(w.opts.Filter)
	}

	return count
}

// Groups returns the top-level groups in run order. Random order is a
// deterministic shuffle of the definition order seeded by Options.Seed.
func (w *World) Groups() []m.ExampleGroup {
	ordered := make([]*Group, len(w.groups))
	copy(ordered, w.groups)

	if w.opts.Order == m.OrderRandom {
		shuffle(ordered, w.opts.Seed)
	}

	groups := make([]m.ExampleGroup, len(ordered))
	for i, g := range ordered {
		groups[i] = &runner{group: g, world: w}
	}

	return groups
}

// AnnounceFilters tells the reporter what the filter is doing.
func (w *World) AnnounceFilters(r m.ExampleReporter) {
	if w.opts.Filter == "" {
		return
	}

	if w.ExampleCount() == 0 {
		r.Message(fmt.Sprintf("No examples matched %q", w.opts.Filter))
		return
	}

	r.Message(fmt.Sprintf("Run options: include %q", w.opts.Filter))
}

// RunHook runs every hook of the given phase. Before hooks stop at the
// first error; after hooks all run and their errors are joined.
func (w *World) RunHook(ctx context.Context, phase m.HookPhase, scope m.HookScope) error {
	if scope != m.ScopeSuite {
		return fmt.Errorf("unsupported hook scope %q", scope)
	}

	switch phase {
	case m.HookBefore:
		for _, h := range w.before {
			if err := h(ctx); err != nil {
				return err
			}
		}

		return nil
	case m.HookAfter:
		var errs []error

		for i := len(w.after) - 1; i >= 0; i-- {
			if err := w.after[i](ctx); err != nil {
				errs = append(errs, err)
			}
		}

		return errors.Join(errs...)
	default:
		return fmt.Errorf("unsupported hook phase %q", phase)
	}
}

func shuffle(groups []*Group, seed uint64) {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	rng.Shuffle(len(groups), func(i, j int) {
		groups[i], groups[j] = groups[j], groups[i]
	})
}

func matches(filter, description string) bool {
	return filter == "" || strings.Contains(description, filter)
}
