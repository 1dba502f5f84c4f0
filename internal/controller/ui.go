// Package controller provides the output side of the twister CLI: suite
// progress, twist catalogs and twist outcomes.
package controller

import (
	"context"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	m "twister.dev/pkg/twister/internal/model"
)

// StartMode defines the mode of operation for the UI.
type StartMode int

// Available StartMode values.
const (
	ModeRun StartMode = iota
	ModeList
	ModeView
)

// StartOption is a functional option for Start method.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	mode StartMode
}

// WithRunMode prepares the UI for a suite run.
func WithRunMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeRun
	}
}

// WithListMode prepares the UI for printing a twist catalog.
func WithListMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeList
	}
}

// WithViewMode prepares the UI for printing saved outcomes.
func WithViewMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeView
	}
}

func newStartConfig(options []StartOption) StartConfig {
	cfg := StartConfig{}
	for _, opt := range options {
		opt(&cfg)
	}

	return cfg
}

// UI defines what the workflow shows the user. Implementations can use
// plain text or an interactive terminal program.
type UI interface {
	Start(ctx context.Context, options ...StartOption) error
	Close(ctx context.Context)
	Wait(ctx context.Context)
	// Observer returns the reporter observer that renders suite progress.
	Observer() m.Observer
	DisplayCatalog(ctx context.Context, points []m.Point) error
	DisplayTwistStarted(ctx context.Context, point m.Point, index, total int)
	DisplayTwistOutcome(ctx context.Context, outcome m.TwistOutcome, sourceLine string)
	DisplayTwistSummary(ctx context.Context, outcomes []m.TwistOutcome, score float64)
}

// NewUI picks the interactive UI for terminals and plain text otherwise.
func NewUI(cmd *cobra.Command, tty bool) UI {
	if tty {
		return NewTUI(cmd.OutOrStdout())
	}

	return NewSimpleUI(cmd)
}

// IsTTY reports whether w is an interactive terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
