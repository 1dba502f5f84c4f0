package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"twister.dev/pkg/twister/internal/adapter"
	m "twister.dev/pkg/twister/internal/model"
)

// ErrNotPrepared is returned by Twist when Prepare has not completed.
var ErrNotPrepared = errors.New("twister not prepared")

// Twister discovers the mutation points of a set of code units and reloads
// those units with chosen points twisted.
type Twister interface {
	// Possible reports whether the runtime can be instrumented.
	Possible() bool
	// Prepare loads units once with recording instrumentation and returns
	// the catalog of mutation points in discovery order.
	Prepare(ctx context.Context, targets []m.Path) ([]m.Point, error)
	// Load defines the units of paths without instrumentation, skipping
	// units this twister already loaded, and returns the units it loaded.
	Load(ctx context.Context, paths []m.Path) ([]m.Path, error)
	// Twist purges the definitions Prepare recorded and reloads the units
	// with exactly points active. An empty set reloads untwisted code.
	Twist(ctx context.Context, points []m.Point) error
	// Teardown removes the instrumentation hook.
	Teardown()
	// Units returns the expanded code units of the last Prepare.
	Units() []m.Path
	SetOutput(out io.Writer)
}

type twister struct {
	loader  adapter.UnitLoader
	fs      adapter.SourceFSAdapter
	session *Session
	hygiene *Hygiene
	units   []m.Path
	loaded  map[m.Path]struct{}
	ready   bool
}

// NewTwister builds a Twister over loader.
func NewTwister(loader adapter.UnitLoader, fs adapter.SourceFSAdapter) Twister {
	return &twister{
		loader:  loader,
		fs:      fs,
		session: NewSession(nil),
		hygiene: NewHygiene(loader),
		loaded:  make(map[m.Path]struct{}),
	}
}

func (t *twister) Possible() bool {
	if err := t.loader.Probe(); err != nil {
		slog.Info("instrumentation unavailable", "error", err)
		return false
	}

	return true
}

func (t *twister) SetOutput(out io.Writer) {
	t.session.SetOutput(out)
}

func (t *twister) Units() []m.Path {
	units := make([]m.Path, len(t.units))
	copy(units, t.units)

	return units
}

func (t *twister) Teardown() {
	t.loader.Uninstall()
	t.session.Deactivate()
}
