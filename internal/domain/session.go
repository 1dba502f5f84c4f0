package domain

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"twister.dev/pkg/twister/internal/domain/twists"
	m "twister.dev/pkg/twister/internal/model"
)

// Session holds the state of one twisting run: the catalog of mutation
// points discovered during preparation and the set of points active for the
// current twisted reload. A nil active set means the session is recording.
type Session struct {
	mu     sync.Mutex
	points []m.Point
	seen   map[m.Location]struct{}
	active m.ActiveSet
	out    io.Writer
}

// NewSession returns a recording session that writes diagnostics to out.
func NewSession(out io.Writer) *Session {
	if out == nil {
		out = io.Discard
	}

	return &Session{seen: make(map[m.Location]struct{}), out: out}
}

// SetOutput redirects diagnostics.
func (s *Session) SetOutput(out io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if out == nil {
		out = io.Discard
	}

	s.out = out
}

// Reset forgets the catalog and returns to recording.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.points = nil
	s.seen = make(map[m.Location]struct{})
	s.active = nil
}

// Activate switches to enforcing mode with exactly points active.
func (s *Session) Activate(points []m.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = m.NewActiveSet(points...)
}

// Deactivate returns to recording without touching the catalog.
func (s *Session) Deactivate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = nil
}

// Recording reports whether no active set is in force.
func (s *Session) Recording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.active == nil
}

// Points returns a copy of the catalog in discovery order.
func (s *Session) Points() []m.Point {
	s.mu.Lock()
	defer s.mu.Unlock()

	points := make([]m.Point, len(s.points))
	copy(points, s.points)

	return points
}

// Hook returns the instrumentation hook bound to this session.
func (s *Session) Hook() m.HookFunc {
	return s.handle
}

func (s *Session) handle(ev m.HookEvent) any {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Kind {
	case m.KindConditional:
		return s.conditional(ev)
	case m.KindLiteral:
		return s.literal(ev)
	default:
		fmt.Fprintf(s.out, "Twister: ignoring unknown event %s at %s\n", ev.Kind, ev.Location)
		slog.Warn("unknown hook event", "kind", ev.Kind, "location", ev.Location)

		return ev.Value
	}
}

func (s *Session) conditional(ev m.HookEvent) any {
	if s.active == nil {
		s.record(m.Point{Kind: m.KindConditional, Location: ev.Location})
		return false
	}

	if !s.active.Contains(ev.Location) {
		return false
	}

	fmt.Fprintf(s.out, "Twisting %s by reversing the sense of the conditional\n", ev.Location)
	slog.Debug("twisting conditional", "location", ev.Location)

	// true asks the evaluator to reverse the branch
	return true
}

func (s *Session) literal(ev m.HookEvent) any {
	if s.active == nil {
		s.record(m.Point{
			Kind:        m.KindLiteral,
			Location:    ev.Location,
			Original:    ev.Value,
			LiteralType: m.LiteralTypeOf(ev.Value),
		})

		return ev.Value
	}

	if !s.active.Contains(ev.Location) {
		return ev.Value
	}

	twisted, ok := twists.Literal(ev.Value)
	if !ok {
		fmt.Fprintf(s.out, "Can't twist a %T literal at %s\n", ev.Value, ev.Location)
		slog.Warn("untwistable literal", "location", ev.Location, "type", fmt.Sprintf("%T", ev.Value))

		return ev.Value
	}

	fmt.Fprintf(s.out, "Twisting %s to %s at %s\n", twists.FormatValue(ev.Value), twists.FormatValue(twisted), ev.Location)
	slog.Debug("twisting literal", "location", ev.Location, "from", ev.Value, "to", twisted)

	return twisted
}

func (s *Session) record(point m.Point) {
	if _, ok := s.seen[point.Location]; ok {
		return
	}

	s.seen[point.Location] = struct{}{}
	s.points = append(s.points, point)
}
