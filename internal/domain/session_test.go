package domain

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "twister.dev/pkg/twister/internal/model"
)

func loc(line, column int) m.Location {
	return m.Location{Unit: "calc.go", Line: line, Column: column}
}

func TestSession_RecordsPointsOnce(t *testing.T) {
	s := NewSession(nil)
	hook := s.Hook()

	assert.Equal(t, false, hook(m.HookEvent{Kind: m.KindConditional, Location: loc(6, 2), Value: false}))
	assert.Equal(t, int64(10), hook(m.HookEvent{Kind: m.KindLiteral, Location: loc(3, 15), Value: int64(10)}))
	assert.Equal(t, false, hook(m.HookEvent{Kind: m.KindConditional, Location: loc(6, 2), Value: false}))
	assert.Equal(t, "hi", hook(m.HookEvent{Kind: m.KindLiteral, Location: loc(9, 8), Value: "hi"}))
	assert.Equal(t, 'x', hook(m.HookEvent{Kind: m.KindLiteral, Location: loc(10, 9), Value: 'x'}))

	assert.True(t, s.Recording())
	assert.Equal(t, []m.Point{
		{Kind: m.KindConditional, Location: loc(6, 2)},
		{Kind: m.KindLiteral, Location: loc(3, 15), Original: int64(10), LiteralType: m.LiteralInteger},
		{Kind: m.KindLiteral, Location: loc(9, 8), Original: "hi", LiteralType: m.LiteralText},
		{Kind: m.KindLiteral, Location: loc(10, 9), Original: 'x', LiteralType: m.LiteralInteger},
	}, s.Points())

	s.Reset()
	assert.Empty(t, s.Points())
}

func TestSession_TwistsOnlyActivePoints(t *testing.T) {
	var out bytes.Buffer

	s := NewSession(&out)
	hook := s.Hook()

	s.Activate([]m.Point{
		{Kind: m.KindConditional, Location: loc(6, 2)},
		{Kind: m.KindLiteral, Location: loc(3, 15)},
		{Kind: m.KindLiteral, Location: loc(4, 9)},
		{Kind: m.KindLiteral, Location: loc(9, 8)},
		{Kind: m.KindLiteral, Location: loc(10, 9)},
	})
	require.False(t, s.Recording())

	tests := []struct {
		name  string
		event m.HookEvent
		want  any
	}{
		{"active conditional reverses", m.HookEvent{Kind: m.KindConditional, Location: loc(6, 2), Value: false}, true},
		{"inactive conditional keeps its sense", m.HookEvent{Kind: m.KindConditional, Location: loc(7, 2), Value: false}, false},
		{"integer", m.HookEvent{Kind: m.KindLiteral, Location: loc(3, 15), Value: int64(5)}, int64(11)},
		{"float", m.HookEvent{Kind: m.KindLiteral, Location: loc(4, 9), Value: 1.5}, 4.0},
		{"text", m.HookEvent{Kind: m.KindLiteral, Location: loc(9, 8), Value: "hi"}, "TWISTED: hi"},
		{"rune", m.HookEvent{Kind: m.KindLiteral, Location: loc(10, 9), Value: 'x'}, 'ñ'},
		{"inactive literal", m.HookEvent{Kind: m.KindLiteral, Location: loc(12, 1), Value: int64(5)}, int64(5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hook(tt.event))
		})
	}

	assert.Empty(t, s.Points(), "enforcing mode does not record")

	text := out.String()
	assert.Contains(t, text, "Twisting calc.go:6:2 by reversing the sense of the conditional\n")
	assert.Contains(t, text, "Twisting 5 to 11 at calc.go:3:15\n")
	assert.Contains(t, text, "Twisting 1.5 to 4.0 at calc.go:4:9\n")
	assert.Contains(t, text, "Twisting \"hi\" to \"TWISTED: hi\" at calc.go:9:8\n")
	assert.Contains(t, text, "Twisting 'x' to 'ñ' at calc.go:10:9\n")
	assert.NotContains(t, text, "calc.go:7:2")
}

func TestSession_Diagnostics(t *testing.T) {
	var out bytes.Buffer

	s := NewSession(nil)
	s.SetOutput(&out)
	s.Activate([]m.Point{{Kind: m.KindLiteral, Location: loc(5, 10)}})
	hook := s.Hook()

	assert.Equal(t, true, hook(m.HookEvent{Kind: m.KindLiteral, Location: loc(5, 10), Value: true}))
	assert.Equal(t, "payload", hook(m.HookEvent{Kind: m.KindUnknown, Location: loc(8, 1), Value: "payload"}))

	assert.Equal(t,
		"Can't twist a bool literal at calc.go:5:10\n"+
			"Twister: ignoring unknown event unknown at calc.go:8:1\n",
		out.String())
}

func TestSession_DeactivateReturnsToRecording(t *testing.T) {
	s := NewSession(nil)
	s.Activate(nil)
	assert.False(t, s.Recording(), "an empty active set still enforces")

	s.Deactivate()
	assert.True(t, s.Recording())
}
