package controller

import (
	"bytes"
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "twister.dev/pkg/twister/internal/model"
)

func update(t *testing.T, model runModel, msgs ...tea.Msg) runModel {
	t.Helper()

	for _, msg := range msgs {
		next, _ := model.Update(msg)

		var ok bool
		model, ok = next.(runModel)
		require.True(t, ok)
	}

	return model
}

func TestRunModel_TracksSuiteEvents(t *testing.T) {
	model := update(t, newRunModel(),
		eventMsg{event: m.Event{Type: m.EventStart, Count: 4}},
		eventMsg{event: m.Event{Type: m.EventMessage, Message: "filtering"}},
		eventMsg{event: m.Event{Type: m.EventExampleStarted}},
		eventMsg{event: m.Event{Type: m.EventExampleStarted}},
		eventMsg{event: m.Event{Type: m.EventExampleFailed}},
		eventMsg{event: m.Event{Type: m.EventExampleStarted}},
		eventMsg{event: m.Event{Type: m.EventExamplePending}},
	)

	view := model.View()
	assert.Contains(t, view, "filtering")
	assert.Contains(t, view, "examples 3/4  failures 1  pending 1")
	assert.Contains(t, view, "baseline")
}

func TestRunModel_TracksTwists(t *testing.T) {
	point := conditional("calc.go", 12, 2)
	diff := twistDiff(point, "\tif a > b {")
	require.NotEmpty(t, diff)

	model := update(t, newRunModel(),
		twistStartedMsg{point: point, index: 0, total: 2},
		twistOutcomeMsg{outcome: m.TwistOutcome{Point: point, Status: m.Survived}, diff: diff},
		twistStartedMsg{point: literal("calc.go", 3, 14, int64(5)), index: 1, total: 2},
		twistOutcomeMsg{outcome: m.TwistOutcome{Status: m.Killed}},
		summaryMsg{score: 0.5},
	)

	view := model.View()
	assert.Contains(t, view, "twist 2/2 at calc.go:3:14")
	assert.Contains(t, view, "killed 1")
	assert.Contains(t, view, "survived 1")
	assert.Contains(t, view, "+\tif !(a > b) {")
	assert.Contains(t, view, "Mutation score:")
	assert.Contains(t, view, "50.00%")

	next, cmd := model.Update(finishMsg{})
	assert.NotNil(t, cmd)
	assert.NotContains(t, next.View(), "twist 2/2")
}

func TestTUI_StaticModes(t *testing.T) {
	var out bytes.Buffer

	ui := NewTUI(&out)
	ctx := context.Background()

	require.NoError(t, ui.Start(ctx, WithViewMode()))
	ui.DisplayTwistSummary(ctx, []m.TwistOutcome{{Point: conditional("calc.go", 12, 2), Status: m.Killed}}, 1)
	ui.Close(ctx)
	ui.Wait(ctx)

	assert.Contains(t, strings.ToUpper(out.String()), "TOTAL TWISTS 1")
	assert.Contains(t, out.String(), "100.00%")

	out.Reset()
	require.NoError(t, ui.DisplayCatalog(ctx, []m.Point{conditional("calc.go", 12, 2)}))
	assert.Contains(t, out.String(), "Twist catalog")
}

func TestIsTTY(t *testing.T) {
	assert.False(t, IsTTY(&bytes.Buffer{}))
}
