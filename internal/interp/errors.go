// Package interp is the execution substrate for twist targets. It compiles a
// subset of Go into closures and reports every conditional and literal it
// meets to the installed instrumentation hook, so a site can be twisted by
// reloading the unit with a different hook.
package interp

import (
	"errors"
	"fmt"
	"go/token"
)

var (
	// ErrRedeclared is returned when a definition name already exists.
	ErrRedeclared = errors.New("redeclared")
	// ErrUndefined is returned when a name cannot be resolved.
	ErrUndefined = errors.New("undefined")
	// ErrInstrumentationUnavailable is returned by Install on machines built
	// without instrumentation support.
	ErrInstrumentationUnavailable = errors.New("instrumentation unavailable")
	// ErrUnsupported is returned for Go constructs outside the subset.
	ErrUnsupported = errors.New("unsupported construct")
	// ErrStepLimit is returned when a call runs longer than the step budget.
	ErrStepLimit = errors.New("step limit exceeded")
)

// RuntimeError is raised while evaluating compiled code.
type RuntimeError struct {
	Pos token.Position
	Err error
}

func (e *RuntimeError) Error() string {
	if !e.Pos.IsValid() {
		return e.Err.Error()
	}

	return fmt.Sprintf("%s: %v", e.Pos, e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// CompileError is raised while loading a unit.
type CompileError struct {
	Pos token.Position
	Err error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Pos, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}
