package interp

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	"strconv"

	m "twister.dev/pkg/twister/internal/model"
)

// Function is a compiled function declaration.
type Function struct {
	Name   string
	Unit   m.Path
	Params []string
	body   execFn
}

type flow int

const (
	flowNormal flow = iota
	flowReturn
	flowBreak
	flowContinue
)

type evalFn func(f *frame) (any, error)

type execFn func(f *frame) (flow, any, error)

// runState is shared by every frame of one top-level call.
type runState struct {
	ctx   context.Context
	steps int
	limit int
	depth int
}

func (r *runState) step() error {
	r.steps++
	if r.limit > 0 && r.steps > r.limit {
		return ErrStepLimit
	}

	if r.steps%1024 == 0 {
		return r.ctx.Err()
	}

	return nil
}

// frame is a lexical scope.
type frame struct {
	vars   map[string]any
	parent *frame
	run    *runState
}

func newFrame(parent *frame, run *runState) *frame {
	return &frame{vars: make(map[string]any), parent: parent, run: run}
}

func (f *frame) lookup(name string) (any, bool) {
	for cur := f; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}

	return nil, false
}

func (f *frame) assign(name string, v any) bool {
	for cur := f; cur != nil; cur = cur.parent {
		if _, ok := cur.vars[name]; ok {
			cur.vars[name] = v
			return true
		}
	}

	return false
}

const maxCallDepth = 512

// compiler turns one unit's AST into closures, firing the hook at every
// conditional and literal site. The hook's answers are baked into the
// closures, so a loaded unit keeps its twist until it is reloaded.
type compiler struct {
	machine *Machine
	unit    m.Path
	fset    *token.FileSet
	hook    m.HookFunc
}

func (c *compiler) position(pos token.Pos) token.Position {
	return c.fset.Position(pos)
}

func (c *compiler) location(pos token.Pos) m.Location {
	p := c.position(pos)

	return m.Location{Unit: c.unit, Line: p.Line, Column: p.Column}
}

func (c *compiler) errorf(pos token.Pos, format string, args ...any) error {
	return &CompileError{Pos: c.position(pos), Err: fmt.Errorf(format, args...)}
}

func (c *compiler) unsupported(node ast.Node) error {
	return &CompileError{Pos: c.position(node.Pos()), Err: fmt.Errorf("%w: %T", ErrUnsupported, node)}
}

func (c *compiler) runtimeError(pos token.Pos, err error) error {
	var rerr *RuntimeError
	if errors.As(err, &rerr) {
		return err
	}

	if errors.Is(err, ErrStepLimit) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	return &RuntimeError{Pos: c.position(pos), Err: err}
}

// literal decodes a basic literal and offers it to the hook.
func (c *compiler) literal(lit *ast.BasicLit) (evalFn, error) {
	value, err := decodeLiteral(lit)
	if err != nil {
		return nil, c.errorf(lit.Pos(), "%v", err)
	}

	if c.hook != nil {
		value = c.hook(m.HookEvent{Kind: m.KindLiteral, Location: c.location(lit.Pos()), Value: value})
	}

	return func(*frame) (any, error) { return value, nil }, nil
}

// condition compiles a branch condition located at the keyword pos. A true
// answer from the hook reverses the sense of the test.
func (c *compiler) condition(pos token.Pos, cond ast.Expr) (evalFn, error) {
	invert := false

	if c.hook != nil {
		if reverse, ok := c.hook(m.HookEvent{Kind: m.KindConditional, Location: c.location(pos), Value: false}).(bool); ok {
			invert = reverse
		}
	}

	test, err := c.expr(cond)
	if err != nil {
		return nil, err
	}

	return func(f *frame) (any, error) {
		v, err := test(f)
		if err != nil {
			return nil, err
		}

		b, ok := v.(bool)
		if !ok {
			return nil, c.runtimeError(cond.Pos(), fmt.Errorf("non-boolean condition %s", Format(v)))
		}

		return b != invert, nil
	}, nil
}

func decodeLiteral(lit *ast.BasicLit) (any, error) {
	switch lit.Kind {
	case token.INT:
		return strconv.ParseInt(lit.Value, 0, 64)
	case token.FLOAT:
		return strconv.ParseFloat(lit.Value, 64)
	case token.STRING:
		return strconv.Unquote(lit.Value)
	case token.CHAR:
		s, err := strconv.Unquote(lit.Value)
		if err != nil {
			return nil, err
		}

		return []rune(s)[0], nil
	default:
		return nil, fmt.Errorf("%w: %s literal", ErrUnsupported, lit.Kind)
	}
}

//nolint:cyclop // one case per supported expression node
func (c *compiler) expr(e ast.Expr) (evalFn, error) {
	switch x := e.(type) {
	case *ast.BasicLit:
		return c.literal(x)
	case *ast.Ident:
		return c.ident(x), nil
	case *ast.ParenExpr:
		return c.expr(x.X)
	case *ast.UnaryExpr:
		return c.unaryExpr(x)
	case *ast.BinaryExpr:
		return c.binaryExpr(x)
	case *ast.CallExpr:
		return c.call(x)
	default:
		return nil, c.unsupported(e)
	}
}

func (c *compiler) ident(id *ast.Ident) evalFn {
	switch id.Name {
	case "true":
		return func(*frame) (any, error) { return true, nil }
	case "false":
		return func(*frame) (any, error) { return false, nil }
	case "nil":
		return func(*frame) (any, error) { return nil, nil }
	}

	name := id.Name

	return func(f *frame) (any, error) {
		if v, ok := f.lookup(name); ok {
			return v, nil
		}

		def, ok := c.machine.ns.Lookup(name)
		if !ok {
			return nil, c.runtimeError(id.Pos(), fmt.Errorf("%s: %w", name, ErrUndefined))
		}

		return def.Value, nil
	}
}

func (c *compiler) unaryExpr(x *ast.UnaryExpr) (evalFn, error) {
	operand, err := c.expr(x.X)
	if err != nil {
		return nil, err
	}

	op := x.Op

	return func(f *frame) (any, error) {
		v, err := operand(f)
		if err != nil {
			return nil, err
		}

		out, err := unary(op, v)
		if err != nil {
			return nil, c.runtimeError(x.Pos(), err)
		}

		return out, nil
	}, nil
}

func (c *compiler) binaryExpr(x *ast.BinaryExpr) (evalFn, error) {
	left, err := c.expr(x.X)
	if err != nil {
		return nil, err
	}

	right, err := c.expr(x.Y)
	if err != nil {
		return nil, err
	}

	op := x.Op

	if op == token.LAND || op == token.LOR {
		return c.logical(x, left, right), nil
	}

	return func(f *frame) (any, error) {
		a, err := left(f)
		if err != nil {
			return nil, err
		}

		b, err := right(f)
		if err != nil {
			return nil, err
		}

		out, err := binary(op, a, b)
		if err != nil {
			return nil, c.runtimeError(x.OpPos, err)
		}

		return out, nil
	}, nil
}

func (c *compiler) logical(x *ast.BinaryExpr, left, right evalFn) evalFn {
	and := x.Op == token.LAND

	return func(f *frame) (any, error) {
		a, err := left(f)
		if err != nil {
			return nil, err
		}

		ab, ok := a.(bool)
		if !ok {
			return nil, c.runtimeError(x.OpPos, fmt.Errorf("operator %s not defined on %s", x.Op, Format(a)))
		}

		if and != ab {
			return ab, nil
		}

		b, err := right(f)
		if err != nil {
			return nil, err
		}

		bb, ok := b.(bool)
		if !ok {
			return nil, c.runtimeError(x.OpPos, fmt.Errorf("operator %s not defined on %s", x.Op, Format(b)))
		}

		return bb, nil
	}
}

func (c *compiler) call(x *ast.CallExpr) (evalFn, error) {
	callee, ok := x.Fun.(*ast.Ident)
	if !ok {
		return nil, c.unsupported(x.Fun)
	}

	if x.Ellipsis.IsValid() {
		return nil, c.unsupported(x)
	}

	args := make([]evalFn, 0, len(x.Args))

	for _, a := range x.Args {
		fn, err := c.expr(a)
		if err != nil {
			return nil, err
		}

		args = append(args, fn)
	}

	name := callee.Name

	return func(f *frame) (any, error) {
		values := make([]any, 0, len(args))

		for _, a := range args {
			v, err := a(f)
			if err != nil {
				return nil, err
			}

			values = append(values, v)
		}

		target, err := c.resolveCallee(f, name)
		if err != nil {
			return nil, c.runtimeError(x.Pos(), err)
		}

		out, err := c.machine.apply(f.run, target, values)
		if err != nil {
			return nil, c.runtimeError(x.Pos(), err)
		}

		return out, nil
	}, nil
}

func (c *compiler) resolveCallee(f *frame, name string) (any, error) {
	if v, ok := f.lookup(name); ok {
		return v, nil
	}

	if def, ok := c.machine.ns.Lookup(name); ok {
		return def.Value, nil
	}

	if b, ok := builtins[name]; ok {
		return b, nil
	}

	return nil, fmt.Errorf("%s: %w", name, ErrUndefined)
}

//nolint:cyclop // one case per supported statement node
func (c *compiler) stmt(s ast.Stmt) (execFn, error) {
	switch x := s.(type) {
	case *ast.BlockStmt:
		return c.block(x.List, true)
	case *ast.ExprStmt:
		return c.exprStmt(x)
	case *ast.ReturnStmt:
		return c.returnStmt(x)
	case *ast.AssignStmt:
		return c.assign(x)
	case *ast.IncDecStmt:
		return c.incDec(x)
	case *ast.IfStmt:
		return c.ifStmt(x)
	case *ast.ForStmt:
		return c.forStmt(x)
	case *ast.BranchStmt:
		return c.branch(x)
	case *ast.DeclStmt:
		return c.declStmt(x)
	case *ast.EmptyStmt:
		return func(*frame) (flow, any, error) { return flowNormal, nil, nil }, nil
	default:
		return nil, c.unsupported(s)
	}
}

func (c *compiler) block(list []ast.Stmt, scoped bool) (execFn, error) {
	stmts := make([]execFn, 0, len(list))

	for _, s := range list {
		fn, err := c.stmt(s)
		if err != nil {
			return nil, err
		}

		stmts = append(stmts, fn)
	}

	return func(f *frame) (flow, any, error) {
		scope := f
		if scoped {
			scope = newFrame(f, f.run)
		}

		for _, s := range stmts {
			fl, v, err := s(scope)
			if err != nil || fl != flowNormal {
				return fl, v, err
			}
		}

		return flowNormal, nil, nil
	}, nil
}

func (c *compiler) exprStmt(x *ast.ExprStmt) (execFn, error) {
	fn, err := c.expr(x.X)
	if err != nil {
		return nil, err
	}

	return func(f *frame) (flow, any, error) {
		_, err := fn(f)
		return flowNormal, nil, err
	}, nil
}

func (c *compiler) returnStmt(x *ast.ReturnStmt) (execFn, error) {
	switch len(x.Results) {
	case 0:
		return func(*frame) (flow, any, error) { return flowReturn, nil, nil }, nil
	case 1:
		fn, err := c.expr(x.Results[0])
		if err != nil {
			return nil, err
		}

		return func(f *frame) (flow, any, error) {
			v, err := fn(f)
			return flowReturn, v, err
		}, nil
	default:
		return nil, c.errorf(x.Pos(), "%w: multiple return values", ErrUnsupported)
	}
}

var assignOps = map[token.Token]token.Token{
	token.ADD_ASSIGN: token.ADD,
	token.SUB_ASSIGN: token.SUB,
	token.MUL_ASSIGN: token.MUL,
	token.QUO_ASSIGN: token.QUO,
	token.REM_ASSIGN: token.REM,
}

func (c *compiler) assign(x *ast.AssignStmt) (execFn, error) {
	if len(x.Lhs) != len(x.Rhs) {
		return nil, c.errorf(x.Pos(), "%w: assignment count mismatch", ErrUnsupported)
	}

	names := make([]string, 0, len(x.Lhs))
	readers := make([]evalFn, 0, len(x.Lhs))

	for _, l := range x.Lhs {
		id, ok := l.(*ast.Ident)
		if !ok {
			return nil, c.unsupported(l)
		}

		names = append(names, id.Name)
		readers = append(readers, c.ident(id))
	}

	values := make([]evalFn, 0, len(x.Rhs))

	for _, r := range x.Rhs {
		fn, err := c.expr(r)
		if err != nil {
			return nil, err
		}

		values = append(values, fn)
	}

	tok := x.Tok
	op, isOpAssign := assignOps[tok]

	if tok != token.DEFINE && tok != token.ASSIGN && !isOpAssign {
		return nil, c.errorf(x.Pos(), "%w: assignment %s", ErrUnsupported, tok)
	}

	return func(f *frame) (flow, any, error) {
		results := make([]any, len(values))

		for i, v := range values {
			out, err := v(f)
			if err != nil {
				return flowNormal, nil, err
			}

			results[i] = out
		}

		for i, name := range names {
			if name == "_" {
				continue
			}

			value := results[i]

			if isOpAssign {
				current, err := readers[i](f)
				if err != nil {
					return flowNormal, nil, err
				}

				value, err = binary(op, current, value)
				if err != nil {
					return flowNormal, nil, c.runtimeError(x.TokPos, err)
				}
			}

			if tok == token.DEFINE {
				f.vars[name] = value
				continue
			}

			if err := c.store(f, name, value); err != nil {
				return flowNormal, nil, c.runtimeError(x.Pos(), err)
			}
		}

		return flowNormal, nil, nil
	}, nil
}

func (c *compiler) store(f *frame, name string, value any) error {
	if f.assign(name, value) {
		return nil
	}

	return c.machine.ns.Assign(name, value)
}

func (c *compiler) incDec(x *ast.IncDecStmt) (execFn, error) {
	id, ok := x.X.(*ast.Ident)
	if !ok {
		return nil, c.unsupported(x.X)
	}

	op := token.ADD
	if x.Tok == token.DEC {
		op = token.SUB
	}

	read := c.ident(id)

	return func(f *frame) (flow, any, error) {
		current, err := read(f)
		if err != nil {
			return flowNormal, nil, err
		}

		next, err := binary(op, current, int64(1))
		if err != nil {
			return flowNormal, nil, c.runtimeError(x.Pos(), err)
		}

		if err := c.store(f, id.Name, next); err != nil {
			return flowNormal, nil, c.runtimeError(x.Pos(), err)
		}

		return flowNormal, nil, nil
	}, nil
}

func (c *compiler) optionalStmt(s ast.Stmt) (execFn, error) {
	if s == nil {
		return func(*frame) (flow, any, error) { return flowNormal, nil, nil }, nil
	}

	return c.stmt(s)
}

func (c *compiler) ifStmt(x *ast.IfStmt) (execFn, error) {
	init, err := c.optionalStmt(x.Init)
	if err != nil {
		return nil, err
	}

	cond, err := c.condition(x.If, x.Cond)
	if err != nil {
		return nil, err
	}

	then, err := c.block(x.Body.List, true)
	if err != nil {
		return nil, err
	}

	otherwise, err := c.optionalStmt(x.Else)
	if err != nil {
		return nil, err
	}

	return func(f *frame) (flow, any, error) {
		scope := newFrame(f, f.run)

		if fl, v, err := init(scope); err != nil || fl != flowNormal {
			return fl, v, err
		}

		ok, err := cond(scope)
		if err != nil {
			return flowNormal, nil, err
		}

		if ok.(bool) {
			return then(scope)
		}

		return otherwise(scope)
	}, nil
}

func (c *compiler) forStmt(x *ast.ForStmt) (execFn, error) {
	init, err := c.optionalStmt(x.Init)
	if err != nil {
		return nil, err
	}

	var cond evalFn

	if x.Cond != nil {
		cond, err = c.condition(x.For, x.Cond)
		if err != nil {
			return nil, err
		}
	}

	post, err := c.optionalStmt(x.Post)
	if err != nil {
		return nil, err
	}

	body, err := c.block(x.Body.List, true)
	if err != nil {
		return nil, err
	}

	return func(f *frame) (flow, any, error) {
		scope := newFrame(f, f.run)

		if fl, v, err := init(scope); err != nil || fl != flowNormal {
			return fl, v, err
		}

		for {
			if err := f.run.step(); err != nil {
				return flowNormal, nil, c.runtimeError(x.For, err)
			}

			if cond != nil {
				ok, err := cond(scope)
				if err != nil {
					return flowNormal, nil, err
				}

				if !ok.(bool) {
					return flowNormal, nil, nil
				}
			}

			fl, v, err := body(scope)
			if err != nil {
				return flowNormal, nil, err
			}

			switch fl {
			case flowReturn:
				return fl, v, nil
			case flowBreak:
				return flowNormal, nil, nil
			case flowNormal, flowContinue:
			}

			if _, _, err := post(scope); err != nil {
				return flowNormal, nil, err
			}
		}
	}, nil
}

func (c *compiler) branch(x *ast.BranchStmt) (execFn, error) {
	if x.Label != nil {
		return nil, c.unsupported(x)
	}

	switch x.Tok {
	case token.BREAK:
		return func(*frame) (flow, any, error) { return flowBreak, nil, nil }, nil
	case token.CONTINUE:
		return func(*frame) (flow, any, error) { return flowContinue, nil, nil }, nil
	default:
		return nil, c.unsupported(x)
	}
}

// declStmt handles local var and const declarations.
func (c *compiler) declStmt(x *ast.DeclStmt) (execFn, error) {
	gd, ok := x.Decl.(*ast.GenDecl)
	if !ok || (gd.Tok != token.VAR && gd.Tok != token.CONST) {
		return nil, c.unsupported(x)
	}

	type binding struct {
		name  string
		value evalFn
	}

	var bindings []binding

	for _, spec := range gd.Specs {
		vs := spec.(*ast.ValueSpec)

		values, err := c.specValues(vs, gd.Tok)
		if err != nil {
			return nil, err
		}

		for i, name := range vs.Names {
			bindings = append(bindings, binding{name: name.Name, value: values[i]})
		}
	}

	return func(f *frame) (flow, any, error) {
		for _, b := range bindings {
			v, err := b.value(f)
			if err != nil {
				return flowNormal, nil, err
			}

			f.vars[b.name] = v
		}

		return flowNormal, nil, nil
	}, nil
}

// specValues compiles the initializers of a value spec, substituting zero
// values for variables declared without one.
func (c *compiler) specValues(vs *ast.ValueSpec, tok token.Token) ([]evalFn, error) {
	if len(vs.Values) == 0 {
		if tok == token.CONST {
			return nil, c.errorf(vs.Pos(), "%w: constant without value", ErrUnsupported)
		}

		zero := zeroValue(typeName(vs.Type))
		fns := make([]evalFn, len(vs.Names))

		for i := range fns {
			fns[i] = func(*frame) (any, error) { return zero, nil }
		}

		return fns, nil
	}

	if len(vs.Values) != len(vs.Names) {
		return nil, c.errorf(vs.Pos(), "%w: value count mismatch", ErrUnsupported)
	}

	fns := make([]evalFn, 0, len(vs.Values))

	for _, v := range vs.Values {
		fn, err := c.expr(v)
		if err != nil {
			return nil, err
		}

		if kind := typeName(vs.Type); kind != "" {
			fn = convertTo(kind, fn)
		}

		fns = append(fns, fn)
	}

	return fns, nil
}

func convertTo(kind string, fn evalFn) evalFn {
	return func(f *frame) (any, error) {
		v, err := fn(f)
		if err != nil {
			return nil, err
		}

		if zeroValue(kind) == nil {
			return v, nil
		}

		return convert(kind, v)
	}
}

func typeName(expr ast.Expr) string {
	if id, ok := expr.(*ast.Ident); ok {
		return id.Name
	}

	return ""
}

func (c *compiler) funcDecl(fd *ast.FuncDecl) (*Function, error) {
	if fd.Recv != nil {
		return nil, c.errorf(fd.Pos(), "%w: method %s", ErrUnsupported, fd.Name.Name)
	}

	if fd.Body == nil {
		return nil, c.errorf(fd.Pos(), "%w: function %s without body", ErrUnsupported, fd.Name.Name)
	}

	var params []string

	for _, field := range fd.Type.Params.List {
		for _, name := range field.Names {
			params = append(params, name.Name)
		}
	}

	body, err := c.block(fd.Body.List, false)
	if err != nil {
		return nil, err
	}

	return &Function{Name: fd.Name.Name, Unit: c.unit, Params: params, body: body}, nil
}
