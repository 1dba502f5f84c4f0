package interp

import (
	"context"
	"fmt"
	"go/ast"
	"go/token"
	"log/slog"
	"sync"

	m "twister.dev/pkg/twister/internal/model"
)

// DefaultStepLimit bounds loop iterations per top-level call so a twisted
// loop condition cannot spin forever.
const DefaultStepLimit = 1_000_000

type builtin func(args []any) (any, error)

var builtins = map[string]builtin{
	"len": func(args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("len expects 1 argument, got %d", len(args))
		}

		return length(args[0])
	},
}

func init() {
	for _, kind := range []string{"int", "int64", "float64", "string", "bool", "rune"} {
		builtins[kind] = func(args []any) (any, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("conversion to %s expects 1 argument, got %d", kind, len(args))
			}

			return convert(kind, args[0])
		}
	}
}

// Machine owns the global namespace and the single instrumentation hook.
type Machine struct {
	mu             sync.Mutex
	ns             *Namespace
	hook           m.HookFunc
	installed      bool
	instrumentable bool
	stepLimit      int
}

// Option configures a Machine.
type Option func(*Machine)

// WithInstrumentation toggles support for installing hooks. A machine
// without it behaves like a runtime that cannot be twisted.
func WithInstrumentation(enabled bool) Option {
	return func(mc *Machine) {
		mc.instrumentable = enabled
	}
}

// WithStepLimit sets the loop iteration budget per call; 0 disables it.
func WithStepLimit(limit int) Option {
	return func(mc *Machine) {
		mc.stepLimit = limit
	}
}

// NewMachine returns a machine with an empty namespace.
func NewMachine(opts ...Option) *Machine {
	mc := &Machine{
		ns:             NewNamespace(),
		instrumentable: true,
		stepLimit:      DefaultStepLimit,
	}

	for _, opt := range opts {
		opt(mc)
	}

	return mc
}

// Namespace returns the global namespace.
func (mc *Machine) Namespace() *Namespace {
	return mc.ns
}

// Install replaces the current hook. A nil hook is a valid no-op hook.
func (mc *Machine) Install(hook m.HookFunc) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if !mc.instrumentable {
		return ErrInstrumentationUnavailable
	}

	mc.hook = hook
	mc.installed = true

	return nil
}

// Uninstall removes the current hook.
func (mc *Machine) Uninstall() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.hook = nil
	mc.installed = false
}

// Installed reports whether a hook is installed.
func (mc *Machine) Installed() bool {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	return mc.installed
}

// Probe checks the capability by installing and removing a no-op hook.
func (mc *Machine) Probe() error {
	if err := mc.Install(nil); err != nil {
		return err
	}

	mc.Uninstall()

	return nil
}

func (mc *Machine) currentHook() m.HookFunc {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	return mc.hook
}

// Load compiles every top-level declaration of file and defines it in the
// namespace under unit. Constants and variables are evaluated immediately.
func (mc *Machine) Load(ctx context.Context, unit m.Path, fset *token.FileSet, file *ast.File) error {
	c := &compiler{machine: mc, unit: unit, fset: fset, hook: mc.currentHook()}
	run := &runState{ctx: ctx, limit: mc.stepLimit}
	root := newFrame(nil, run)

	for _, decl := range file.Decls {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := mc.loadDecl(c, root, decl); err != nil {
			return err
		}
	}

	slog.Debug("loaded unit", "unit", unit, "definitions", len(mc.ns.Owned(unit)))

	return nil
}

func (mc *Machine) loadDecl(c *compiler, root *frame, decl ast.Decl) error {
	switch d := decl.(type) {
	case *ast.FuncDecl:
		if d.Name.Name == "init" || d.Name.Name == "main" {
			return c.errorf(d.Pos(), "%w: func %s", ErrUnsupported, d.Name.Name)
		}

		fn, err := c.funcDecl(d)
		if err != nil {
			return err
		}

		return mc.define(c, d.Pos(), Definition{Name: fn.Name, Unit: c.unit, Kind: m.DefinitionFunc, Value: fn})
	case *ast.GenDecl:
		return mc.loadGenDecl(c, root, d)
	default:
		return c.unsupported(decl)
	}
}

func (mc *Machine) loadGenDecl(c *compiler, root *frame, d *ast.GenDecl) error {
	switch d.Tok {
	case token.IMPORT:
		return c.errorf(d.Pos(), "%w: imports", ErrUnsupported)
	case token.TYPE:
		for _, spec := range d.Specs {
			ts := spec.(*ast.TypeSpec)

			underlying := typeName(ts.Type)
			if zeroValue(underlying) == nil {
				if def, ok := mc.ns.Lookup(underlying); ok && def.Kind == m.DefinitionType {
					underlying = def.Value.(TypeValue).Underlying
				} else {
					return c.errorf(ts.Pos(), "%w: type %s", ErrUnsupported, ts.Name.Name)
				}
			}

			value := TypeValue{Name: ts.Name.Name, Underlying: underlying}
			if err := mc.define(c, ts.Pos(), Definition{Name: ts.Name.Name, Unit: c.unit, Kind: m.DefinitionType, Value: value}); err != nil {
				return err
			}
		}

		return nil
	case token.CONST, token.VAR:
		kind := m.DefinitionVar
		if d.Tok == token.CONST {
			kind = m.DefinitionConst
		}

		for _, spec := range d.Specs {
			vs := spec.(*ast.ValueSpec)

			values, err := c.specValues(vs, d.Tok)
			if err != nil {
				return err
			}

			for i, name := range vs.Names {
				v, err := values[i](root)
				if err != nil {
					return err
				}

				if name.Name == "_" {
					continue
				}

				if err := mc.define(c, name.Pos(), Definition{Name: name.Name, Unit: c.unit, Kind: kind, Value: v}); err != nil {
					return err
				}
			}
		}

		return nil
	default:
		return c.unsupported(d)
	}
}

func (mc *Machine) define(c *compiler, pos token.Pos, def Definition) error {
	if err := mc.ns.Define(def); err != nil {
		return &CompileError{Pos: c.position(pos), Err: err}
	}

	return nil
}

// Call invokes the function or type conversion bound to name.
func (mc *Machine) Call(ctx context.Context, name string, args ...any) (any, error) {
	def, ok := mc.ns.Lookup(name)

	var target any

	switch {
	case ok:
		target = def.Value
	case builtins[name] != nil:
		target = builtins[name]
	default:
		return nil, fmt.Errorf("%s: %w", name, ErrUndefined)
	}

	normalized := make([]any, len(args))
	for i, a := range args {
		normalized[i] = Normalize(a)
	}

	return mc.apply(&runState{ctx: ctx, limit: mc.stepLimit}, target, normalized)
}

// Value returns the value bound to name.
func (mc *Machine) Value(name string) (any, error) {
	def, ok := mc.ns.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrUndefined)
	}

	return def.Value, nil
}

func (mc *Machine) apply(run *runState, target any, args []any) (any, error) {
	switch fn := target.(type) {
	case *Function:
		return mc.invoke(run, fn, args)
	case TypeValue:
		if len(args) != 1 {
			return nil, fmt.Errorf("conversion to %s expects 1 argument, got %d", fn.Name, len(args))
		}

		return convert(fn.Underlying, args[0])
	case builtin:
		return fn(args)
	default:
		return nil, fmt.Errorf("cannot call non-function %s", Format(target))
	}
}

func (mc *Machine) invoke(run *runState, fn *Function, args []any) (any, error) {
	if len(args) != len(fn.Params) {
		return nil, fmt.Errorf("%s expects %d arguments, got %d", fn.Name, len(fn.Params), len(args))
	}

	if err := run.ctx.Err(); err != nil {
		return nil, err
	}

	run.depth++
	defer func() { run.depth-- }()

	if run.depth > maxCallDepth {
		return nil, fmt.Errorf("%s: call depth exceeds %d", fn.Name, maxCallDepth)
	}

	f := newFrame(nil, run)
	for i, p := range fn.Params {
		f.vars[p] = args[i]
	}

	_, v, err := fn.body(f)

	return v, err
}
