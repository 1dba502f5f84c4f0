package interp

import (
	"context"
	"errors"
	"go/parser"
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	m "twister.dev/pkg/twister/internal/model"
)

const calcSource = `package calc

const Five = 5

const Greeting = "hello"

type Celsius float64

var hits int

func Max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func Sum(n int) int {
	total := 0
	for i := 1; i <= n; i++ {
		total += i
	}
	return total
}

func Clamp(x int) int {
	if x > 100 {
		return 100
	} else if x < 0 {
		return 0
	}
	return x
}

func Hit() int {
	hits++
	return hits
}

func Initial(s string) rune {
	if len(s) == 0 {
		return '?'
	}
	return 'x'
}
`

func loadSource(t *testing.T, mc *Machine, unit m.Path, src string) error {
	t.Helper()

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, string(unit), src, 0)
	require.NoError(t, err)

	return mc.Load(context.Background(), unit, fset, file)
}

func TestMachine_LoadAndCall(t *testing.T) {
	mc := NewMachine()
	require.NoError(t, loadSource(t, mc, "calc.go", calcSource))

	ctx := context.Background()

	tests := []struct {
		name string
		fn   string
		args []any
		want any
	}{
		{"max picks first", "Max", []any{3, 2}, int64(3)},
		{"max picks second", "Max", []any{2, 9}, int64(9)},
		{"sum", "Sum", []any{4}, int64(10)},
		{"clamp high", "Clamp", []any{500}, int64(100)},
		{"clamp low", "Clamp", []any{-3}, int64(0)},
		{"clamp mid", "Clamp", []any{42}, int64(42)},
		{"rune", "Initial", []any{""}, '?'},
		{"type conversion", "Celsius", []any{3}, float64(3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := mc.Call(ctx, tt.fn, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	five, err := mc.Value("Five")
	require.NoError(t, err)
	assert.Equal(t, int64(5), five)

	first, err := mc.Call(ctx, "Hit")
	require.NoError(t, err)
	second, err := mc.Call(ctx, "Hit")
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)
}

func TestMachine_HookSeesEverySite(t *testing.T) {
	mc := NewMachine()

	var events []m.HookEvent

	require.NoError(t, mc.Install(func(ev m.HookEvent) any {
		events = append(events, ev)
		return ev.Value
	}))
	require.NoError(t, loadSource(t, mc, "calc.go", calcSource))

	kinds := map[m.PointKind]int{}
	for _, ev := range events {
		kinds[ev.Kind]++
		assert.Equal(t, m.Path("calc.go"), ev.Location.Unit)
		assert.Positive(t, ev.Location.Line)
	}

	// if a > b, for i <= n, if x > 100, if x < 0, if len(s) == 0
	assert.Equal(t, 5, kinds[m.KindConditional])
	// 5, "hello", 0, 1, 100, 100, 0, 0, 0, '?', 'x'
	assert.Equal(t, 11, kinds[m.KindLiteral])
	assert.Equal(t, m.Location{Unit: "calc.go", Line: 3, Column: 14}, events[0].Location)
}

func TestMachine_ConditionalHookInvertsBranch(t *testing.T) {
	mc := NewMachine()

	require.NoError(t, mc.Install(func(ev m.HookEvent) any {
		if ev.Kind == m.KindConditional && ev.Location.Line == 12 {
			return true
		}

		return ev.Value
	}))
	require.NoError(t, loadSource(t, mc, "calc.go", calcSource))

	got, err := mc.Call(context.Background(), "Max", 3, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got)

	got, err = mc.Call(context.Background(), "Clamp", 500)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got, "other conditionals keep their sense")
}

func TestMachine_LiteralHookReplacesValue(t *testing.T) {
	mc := NewMachine()

	require.NoError(t, mc.Install(func(ev m.HookEvent) any {
		if ev.Kind == m.KindLiteral && ev.Value == int64(5) {
			return int64(11)
		}

		return ev.Value
	}))
	require.NoError(t, loadSource(t, mc, "calc.go", calcSource))

	five, err := mc.Value("Five")
	require.NoError(t, err)
	assert.Equal(t, int64(11), five)
}

func TestMachine_Redeclaration(t *testing.T) {
	mc := NewMachine()
	require.NoError(t, loadSource(t, mc, "calc.go", calcSource))

	err := loadSource(t, mc, "calc.go", calcSource)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRedeclared))

	var cerr *CompileError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, 3, cerr.Pos.Line)
}

func TestMachine_ReloadAfterRemove(t *testing.T) {
	mc := NewMachine()
	require.NoError(t, loadSource(t, mc, "calc.go", calcSource))

	for _, name := range mc.Namespace().Owned("calc.go") {
		assert.True(t, mc.Namespace().Remove(name))
	}

	assert.Zero(t, mc.Namespace().Len())
	require.NoError(t, loadSource(t, mc, "calc.go", calcSource))
}

func TestMachine_ProbeAndInstrumentation(t *testing.T) {
	t.Run("instrumentable machine probes cleanly", func(t *testing.T) {
		mc := NewMachine()
		require.NoError(t, mc.Probe())
		assert.False(t, mc.Installed())
	})

	t.Run("machine without instrumentation refuses hooks", func(t *testing.T) {
		mc := NewMachine(WithInstrumentation(false))
		assert.ErrorIs(t, mc.Probe(), ErrInstrumentationUnavailable)
		assert.ErrorIs(t, mc.Install(func(ev m.HookEvent) any { return ev.Value }), ErrInstrumentationUnavailable)
	})
}

func TestMachine_RuntimeErrors(t *testing.T) {
	src := `package p

func Div(a, b int) int {
	return a / b
}

func Spin() int {
	for {
	}
	return 0
}

func Missing() int {
	return nowhere(1)
}
`
	mc := NewMachine(WithStepLimit(1000))
	require.NoError(t, loadSource(t, mc, "p.go", src))

	ctx := context.Background()

	_, err := mc.Call(ctx, "Div", 1, 0)
	var rerr *RuntimeError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, 4, rerr.Pos.Line)

	_, err = mc.Call(ctx, "Spin")
	assert.ErrorIs(t, err, ErrStepLimit)

	_, err = mc.Call(ctx, "Missing")
	assert.ErrorIs(t, err, ErrUndefined)

	_, err = mc.Call(ctx, "Div", 1)
	assert.Error(t, err)
}

func TestMachine_UnsupportedConstructs(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"import", "package p\n\nimport \"fmt\"\n"},
		{"method", "package p\n\ntype T int\n\nfunc (t T) M() int { return 1 }\n"},
		{"switch", "package p\n\nfunc F(x int) int {\n\tswitch x {\n\t}\n\treturn 0\n}\n"},
		{"selector", "package p\n\nfunc F(x int) int {\n\treturn x.y\n}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := loadSource(t, NewMachine(), "p.go", tt.src)
			assert.ErrorIs(t, err, ErrUnsupported)
		})
	}
}
