package domain

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twister.dev/pkg/twister/internal/adapter"
	"twister.dev/pkg/twister/internal/interp"
	m "twister.dev/pkg/twister/internal/model"
)

const calcUnit = `package calc

const Limit = 10

func Max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func Greeting() string {
	return "hi"
}
`

const calcSpec = `describe: calc
examples:
  - it: picks the first when larger
    call: Max
    args: [7, 2]
    expect: 7
  - it: picks the second when larger
    call: Max
    args: [2, 7]
    expect: 7
  - it: exposes the limit
    value: Limit
    expect: 10
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// calcProject lays out the calc unit and its spec file and returns their
// paths.
func calcProject(t *testing.T) (m.Path, m.Path) {
	t.Helper()

	dir := t.TempDir()
	unit := filepath.Join(dir, "calc", "calc.go")
	spec := filepath.Join(dir, "spec", "calc_spec.yaml")
	writeFile(t, unit, calcUnit)
	writeFile(t, spec, calcSpec)

	return m.Path(unit), m.Path(spec)
}

func newCalcTwister(opts ...interp.Option) (Twister, *interp.Machine) {
	machine := interp.NewMachine(opts...)
	fs := adapter.NewLocalSourceFSAdapter()
	loader := adapter.NewLocalUnitLoader(machine, adapter.NewLocalGoFileAdapter(), fs)

	return NewTwister(loader, fs), machine
}

func call(t *testing.T, machine *interp.Machine, name string, args ...any) any {
	t.Helper()

	got, err := machine.Call(context.Background(), name, args...)
	require.NoError(t, err)

	return got
}

func value(t *testing.T, machine *interp.Machine, name string) any {
	t.Helper()

	got, err := machine.Value(name)
	require.NoError(t, err)

	return got
}

func TestTwister_PrepareCatalogsPoints(t *testing.T) {
	unit, _ := calcProject(t)
	tw, machine := newCalcTwister()
	ctx := context.Background()

	require.True(t, tw.Possible())

	points, err := tw.Prepare(ctx, []m.Path{m.Path(filepath.Dir(string(unit)))})
	require.NoError(t, err)

	assert.Equal(t, []m.Point{
		{Kind: m.KindLiteral, Location: m.Location{Unit: unit, Line: 3, Column: 15}, Original: int64(10), LiteralType: m.LiteralInteger},
		{Kind: m.KindConditional, Location: m.Location{Unit: unit, Line: 6, Column: 2}},
		{Kind: m.KindLiteral, Location: m.Location{Unit: unit, Line: 13, Column: 9}, Original: "hi", LiteralType: m.LiteralText},
	}, points)
	assert.Equal(t, []m.Path{unit}, tw.Units())
	assert.False(t, machine.Installed(), "the recording hook is removed after the load")

	// recording leaves behaviour untouched
	assert.Equal(t, int64(7), call(t, machine, "Max", 2, 7))
	assert.Equal(t, int64(10), value(t, machine, "Limit"))
	assert.Equal(t, "hi", call(t, machine, "Greeting"))
}

func TestTwister_TwistReloadsWithActivePoints(t *testing.T) {
	unit, _ := calcProject(t)
	tw, machine := newCalcTwister()
	ctx := context.Background()

	var out bytes.Buffer
	tw.SetOutput(&out)

	points, err := tw.Prepare(ctx, []m.Path{unit})
	require.NoError(t, err)
	require.Len(t, points, 3)

	t.Run("literal", func(t *testing.T) {
		require.NoError(t, tw.Twist(ctx, points[:1]))
		assert.Equal(t, int64(21), value(t, machine, "Limit"))
		assert.Equal(t, int64(7), call(t, machine, "Max", 2, 7))
		assert.Contains(t, out.String(), "Twisting 10 to 21 at ")
	})

	t.Run("conditional", func(t *testing.T) {
		require.NoError(t, tw.Twist(ctx, points[1:2]))
		assert.Equal(t, int64(10), value(t, machine, "Limit"), "previous twist is gone")
		assert.Equal(t, int64(2), call(t, machine, "Max", 2, 7))
		assert.Contains(t, out.String(), "by reversing the sense of the conditional")
	})

	t.Run("text", func(t *testing.T) {
		require.NoError(t, tw.Twist(ctx, points[2:]))
		assert.Equal(t, "TWISTED: hi", call(t, machine, "Greeting"))
	})

	t.Run("empty set restores the original", func(t *testing.T) {
		require.NoError(t, tw.Twist(ctx, nil))
		assert.Equal(t, int64(10), value(t, machine, "Limit"))
		assert.Equal(t, int64(7), call(t, machine, "Max", 2, 7))
		assert.Equal(t, "hi", call(t, machine, "Greeting"))
	})

	t.Run("twisting twice gives the same result", func(t *testing.T) {
		require.NoError(t, tw.Twist(ctx, points[1:2]))
		first := call(t, machine, "Max", 7, 2)
		require.NoError(t, tw.Twist(ctx, points[1:2]))
		assert.Equal(t, first, call(t, machine, "Max", 7, 2))
	})

	tw.Teardown()
	assert.False(t, machine.Installed())
}

func TestTwister_TwistRecordsReloadedDefinitions(t *testing.T) {
	unit, _ := calcProject(t)
	tw, machine := newCalcTwister()
	ctx := context.Background()

	_, err := tw.Prepare(ctx, []m.Path{unit})
	require.NoError(t, err)

	writeFile(t, string(unit), calcUnit+"\nfunc Extra() int {\n\treturn 1\n}\n")

	require.NoError(t, tw.Twist(ctx, nil))
	assert.Equal(t, int64(1), call(t, machine, "Extra"))

	// Extra only exists since the last reload; it must still be purged.
	require.NoError(t, tw.Twist(ctx, nil))
	assert.Equal(t, int64(1), call(t, machine, "Extra"))

	tw.Teardown()
}

func TestTwister_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("twist before prepare", func(t *testing.T) {
		tw, _ := newCalcTwister()
		assert.ErrorIs(t, tw.Twist(ctx, nil), ErrNotPrepared)
	})

	t.Run("instrumentation unavailable", func(t *testing.T) {
		unit, _ := calcProject(t)
		tw, _ := newCalcTwister(interp.WithInstrumentation(false))

		assert.False(t, tw.Possible())

		_, err := tw.Prepare(ctx, []m.Path{unit})
		assert.ErrorIs(t, err, interp.ErrInstrumentationUnavailable)
	})

	t.Run("unit load failure", func(t *testing.T) {
		dir := t.TempDir()
		broken := filepath.Join(dir, "broken.go")
		writeFile(t, broken, "package calc\n func")

		tw, _ := newCalcTwister()
		_, err := tw.Prepare(ctx, []m.Path{m.Path(broken)})

		var loadErr *adapter.UnitLoadError
		require.ErrorAs(t, err, &loadErr)
		assert.Equal(t, m.Path(broken), loadErr.Unit)
		assert.ErrorIs(t, tw.Twist(ctx, nil), ErrNotPrepared)
	})

	t.Run("missing target", func(t *testing.T) {
		tw, _ := newCalcTwister()
		_, err := tw.Prepare(ctx, []m.Path{m.Path(filepath.Join(t.TempDir(), "nope"))})
		assert.Error(t, err)
	})
}

func TestTwister_LoadSkipsLoadedUnits(t *testing.T) {
	unit, _ := calcProject(t)
	ctx := context.Background()

	tw, machine := newCalcTwister(interp.WithInstrumentation(false))

	loaded, err := tw.Load(ctx, []m.Path{unit})
	require.NoError(t, err)
	assert.Equal(t, []m.Path{unit}, loaded)
	assert.Equal(t, int64(10), value(t, machine, "Limit"))

	loaded, err = tw.Load(ctx, []m.Path{m.Path(filepath.Dir(string(unit)))})
	require.NoError(t, err)
	assert.Empty(t, loaded, "loading a unit twice is a no-op")
}
