package controller

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "twister.dev/pkg/twister/internal/model"
)

func newTestSimpleUI() (*SimpleUI, *bytes.Buffer) {
	var out bytes.Buffer

	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	return NewSimpleUI(cmd), &out
}

func literal(unit m.Path, line, col int, value any) m.Point {
	return m.Point{
		Kind:        m.KindLiteral,
		Location:    m.Location{Unit: unit, Line: line, Column: col},
		Original:    value,
		LiteralType: m.LiteralTypeOf(value),
	}
}

func conditional(unit m.Path, line, col int) m.Point {
	return m.Point{Kind: m.KindConditional, Location: m.Location{Unit: unit, Line: line, Column: col}}
}

func TestSimpleUI_DisplayCatalog(t *testing.T) {
	ui, out := newTestSimpleUI()

	points := []m.Point{
		literal("calc.go", 3, 14, int64(5)),
		conditional("calc.go", 12, 2),
		literal("text.go", 1, 1, "hi"),
	}

	require.NoError(t, ui.DisplayCatalog(context.Background(), points))

	got := out.String()
	assert.Contains(t, got, "calc.go")
	assert.Contains(t, got, "text.go")
	assert.Contains(t, strings.ToUpper(got), "TOTAL UNITS 2")
	assert.Less(t, strings.Index(got, "calc.go"), strings.Index(got, "text.go"))
}

func TestSimpleUI_DisplayTwistOutcome(t *testing.T) {
	ctx := context.Background()

	t.Run("survivor shows a diff", func(t *testing.T) {
		ui, out := newTestSimpleUI()

		point := literal("calc.go", 3, 14, int64(5))
		ui.DisplayTwistStarted(ctx, point, 0, 2)
		ui.DisplayTwistOutcome(ctx, m.TwistOutcome{Point: point, Status: m.Survived}, "const Five = 5")

		got := out.String()
		assert.Contains(t, got, "Twist 1/2: integer literal 5 at calc.go:3:14")
		assert.Contains(t, got, "calc.go:3:14 -> survived")
		assert.Contains(t, got, "-const Five = 5\n")
		assert.Contains(t, got, "+const Five = 11\n")
	})

	t.Run("killed twist prints no diff", func(t *testing.T) {
		ui, out := newTestSimpleUI()

		point := conditional("calc.go", 12, 2)
		ui.DisplayTwistOutcome(ctx, m.TwistOutcome{Point: point, Status: m.Killed}, "\tif a > b {")

		assert.Equal(t, "calc.go:12:2 -> killed\n", out.String())
	})
}

func TestSimpleUI_DisplayTwistSummary(t *testing.T) {
	ui, out := newTestSimpleUI()

	outcomes := []m.TwistOutcome{
		{Point: literal("calc.go", 3, 14, int64(5)), Status: m.Killed},
		{Point: conditional("calc.go", 12, 2), Status: m.Survived},
	}

	ui.DisplayTwistSummary(context.Background(), outcomes, 0.5)

	got := out.String()
	assert.Contains(t, strings.ToUpper(got), "TOTAL TWISTS 2")
	assert.Contains(t, got, "Mutation score: 50.00%")
}

func TestSimpleUI_CancelledContext(t *testing.T) {
	ui, out := newTestSimpleUI()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, ui.DisplayCatalog(ctx, nil))
	ui.DisplayTwistSummary(ctx, nil, 1)
	assert.Empty(t, out.String())
}
