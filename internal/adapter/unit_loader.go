package adapter

import (
	"context"
	"fmt"
	"go/ast"
	"go/token"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"twister.dev/pkg/twister/internal/interp"
	m "twister.dev/pkg/twister/internal/model"
)

// UnitLoadError reports which code unit failed to load.
type UnitLoadError struct {
	Unit m.Path
	Err  error
}

func (e *UnitLoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Unit, e.Err)
}

func (e *UnitLoadError) Unwrap() error {
	return e.Err
}

// UnitLoader loads code units into a runtime whose namespace the domain can
// inspect and purge, and where a single instrumentation hook can be installed.
type UnitLoader interface {
	// Probe reports whether hooks can be installed at all.
	Probe() error
	Install(hook m.HookFunc) error
	Uninstall()

	// Load reads, parses and defines units in order. Sources are read and
	// parsed concurrently; definitions happen sequentially.
	Load(ctx context.Context, units []m.Path) error

	// Definitions returns the names currently defined.
	Definitions() []string
	// Undefine removes name. It is a no-op for unknown names.
	Undefine(name string) bool
}

// LocalUnitLoader backs UnitLoader with the in-process interpreter.
type LocalUnitLoader struct {
	machine *interp.Machine
	files   GoFileAdapter
	fs      SourceFSAdapter
}

// NewLocalUnitLoader wires a loader around machine.
func NewLocalUnitLoader(machine *interp.Machine, files GoFileAdapter, fs SourceFSAdapter) *LocalUnitLoader {
	return &LocalUnitLoader{machine: machine, files: files, fs: fs}
}

// Probe delegates to the machine.
func (l *LocalUnitLoader) Probe() error {
	return l.machine.Probe()
}

// Install sets the hook consulted by subsequent loads.
func (l *LocalUnitLoader) Install(hook m.HookFunc) error {
	return l.machine.Install(hook)
}

// Uninstall removes the hook.
func (l *LocalUnitLoader) Uninstall() {
	l.machine.Uninstall()
}

// Definitions lists the namespace in definition order.
func (l *LocalUnitLoader) Definitions() []string {
	return l.machine.Namespace().Names()
}

// Undefine removes one name from the namespace.
func (l *LocalUnitLoader) Undefine(name string) bool {
	return l.machine.Namespace().Remove(name)
}

type parsedUnit struct {
	fset *token.FileSet
	file *ast.File
}

// Load parses every unit before defining any of them, so a syntax error
// anywhere leaves the namespace untouched.
func (l *LocalUnitLoader) Load(ctx context.Context, units []m.Path) error {
	parsed := make([]parsedUnit, len(units))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, unit := range units {
		g.Go(func() error {
			content, err := l.fs.ReadFile(gctx, unit)
			if err != nil {
				return &UnitLoadError{Unit: unit, Err: err}
			}

			fset := token.NewFileSet()

			file, err := l.files.Parse(gctx, fset, string(unit), content)
			if err != nil {
				return &UnitLoadError{Unit: unit, Err: err}
			}

			parsed[i] = parsedUnit{fset: fset, file: file}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for i, unit := range units {
		if err := l.checkCollisions(unit, parsed[i].file); err != nil {
			return err
		}

		if err := l.machine.Load(ctx, unit, parsed[i].fset, parsed[i].file); err != nil {
			return &UnitLoadError{Unit: unit, Err: err}
		}
	}

	slog.Debug("loaded units", "count", len(units), "definitions", l.machine.Namespace().Len())

	return nil
}

// checkCollisions rejects a unit that redefines a name another unit owns
// before any of its declarations are evaluated.
func (l *LocalUnitLoader) checkCollisions(unit m.Path, file *ast.File) error {
	for _, name := range l.files.DeclaredNames(file) {
		def, ok := l.machine.Namespace().Lookup(name)
		if !ok || def.Unit == unit {
			continue
		}

		return &UnitLoadError{
			Unit: unit,
			Err:  fmt.Errorf("%w: %s already defined by %s", interp.ErrRedeclared, name, def.Unit),
		}
	}

	return nil
}
