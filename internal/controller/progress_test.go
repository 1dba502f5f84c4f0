package controller

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "twister.dev/pkg/twister/internal/model"
)

func TestProgressFormatter(t *testing.T) {
	var out bytes.Buffer

	p := NewProgressFormatter(&out)

	failed := m.ExampleInfo{Group: "calc", Description: "adds", Err: errors.New("expected 3, got 4")}
	pending := m.ExampleInfo{Group: "calc", Description: "divides", PendingReason: "later"}

	events := []m.Event{
		{Type: m.EventStart, Count: 3},
		{Type: m.EventMessage, Message: `Run options: include "calc"`},
		{Type: m.EventExamplePassed, Example: &m.ExampleInfo{Description: "max"}},
		{Type: m.EventExampleFailed, Example: &failed},
		{Type: m.EventExamplePending, Example: &pending},
		{Type: m.EventStop},
		{Type: m.EventStartDump},
		{Type: m.EventDumpPending, Pending: []m.ExampleInfo{pending}},
		{Type: m.EventDumpFailures, Failures: []m.ExampleInfo{failed}},
		{Type: m.EventDumpSummary, Summary: &m.Summary{Duration: 1500 * time.Millisecond, ExampleCount: 3, FailureCount: 1, PendingCount: 1}},
		{Type: m.EventSeed, Seed: 1234},
		{Type: m.EventClose},
	}

	for _, ev := range events {
		require.NoError(t, p.Notify(ev))
	}

	got := out.String()
	assert.Contains(t, got, "Run options: include \"calc\"\n.F*\n\n")
	assert.Contains(t, got, "Pending:\n  calc divides\n    later\n")
	assert.Contains(t, got, "1) calc adds\n     expected 3, got 4\n")
	assert.Contains(t, got, "Finished in 1.50000 seconds\n3 examples, 1 failure, 1 pending\n")
	assert.Contains(t, got, "Randomized with seed 1234\n")
}

func TestProgressFormatter_QuietCycle(t *testing.T) {
	var out bytes.Buffer

	p := NewProgressFormatter(&out)

	require.NoError(t, p.Notify(m.Event{Type: m.EventStart}))
	require.NoError(t, p.Notify(m.Event{Type: m.EventStartDump}))
	require.NoError(t, p.Notify(m.Event{Type: m.EventDumpSummary, Summary: &m.Summary{ExampleCount: 1}}))

	assert.Equal(t, "Finished in 0.00000 seconds\n1 example, 0 failures\n", out.String())
}
