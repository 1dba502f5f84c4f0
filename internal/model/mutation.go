// Package model defines the data structures shared by the twist engine.
package model

import (
	"fmt"
	"sort"
)

// PointKind is the category of a mutation point.
type PointKind int

const (
	// KindUnknown marks hook events the engine does not understand.
	KindUnknown PointKind = iota
	// KindConditional is a branch decision (if/for condition).
	KindConditional
	// KindLiteral is a literal value in the source.
	KindLiteral
)

func (k PointKind) String() string {
	switch k {
	case KindConditional:
		return "conditional"
	case KindLiteral:
		return "literal"
	case KindUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// LiteralType is the semantic type of a literal payload.
type LiteralType int

const (
	// LiteralOther covers values without a defined twist (e.g. booleans).
	LiteralOther LiteralType = iota
	// LiteralInteger is an integer literal.
	LiteralInteger
	// LiteralFloat is a floating point literal.
	LiteralFloat
	// LiteralText is a string literal.
	LiteralText
)

func (t LiteralType) String() string {
	switch t {
	case LiteralInteger:
		return "integer"
	case LiteralFloat:
		return "float"
	case LiteralText:
		return "text"
	case LiteralOther:
		return "other"
	default:
		return "other"
	}
}

// LiteralTypeOf classifies a runtime value.
func LiteralTypeOf(value any) LiteralType {
	switch value.(type) {
	case int64, int, int32:
		return LiteralInteger
	case float64:
		return LiteralFloat
	case string:
		return LiteralText
	default:
		return LiteralOther
	}
}

// Location identifies a decision site. It is the identity key of a Point and
// stays stable between the discovery pass and every replay.
type Location struct {
	Unit   Path
	Line   int
	Column int
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.Unit, l.Line, l.Column)
}

// Point is a single discoverable mutation site.
type Point struct {
	Kind        PointKind
	Location    Location
	Original    any         // literal value, nil for conditionals
	LiteralType LiteralType // meaningful for literals only
}

// ID returns a short stable identifier for display.
func (p Point) ID() string {
	return fmt.Sprintf("%s@%s", p.Kind, p.Location)
}

// HookEvent is what the substrate reports each time it meets a conditional
// or a literal while loading a unit.
//
// For conditionals Value is the natural sense (false); returning true from
// the hook reverses the branch. For literals Value is the decoded literal and
// the hook's return value replaces it.
type HookEvent struct {
	Kind     PointKind
	Location Location
	Value    any
}

// HookFunc is the single process-wide instrumentation callback.
type HookFunc func(event HookEvent) any

// ActiveSet is the set of locations twisted during a replay.
type ActiveSet map[Location]struct{}

// NewActiveSet builds an active set from points.
func NewActiveSet(points ...Point) ActiveSet {
	set := make(ActiveSet, len(points))
	for _, p := range points {
		set[p.Location] = struct{}{}
	}

	return set
}

// Contains reports whether loc is active. A nil set contains nothing.
func (s ActiveSet) Contains(loc Location) bool {
	_, ok := s[loc]
	return ok
}

// Locations returns the active locations in a deterministic order.
func (s ActiveSet) Locations() []Location {
	locs := make([]Location, 0, len(s))
	for loc := range s {
		locs = append(locs, loc)
	}

	sort.Slice(locs, func(i, j int) bool {
		if locs[i].Unit != locs[j].Unit {
			return locs[i].Unit < locs[j].Unit
		}

		if locs[i].Line != locs[j].Line {
			return locs[i].Line < locs[j].Line
		}

		return locs[i].Column < locs[j].Column
	})

	return locs
}
