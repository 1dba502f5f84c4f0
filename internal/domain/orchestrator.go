package domain

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/google/uuid"

	m "twister.dev/pkg/twister/internal/model"
)

// WorldLoader builds the suite world. It runs after the twist targets are
// first loaded so spec files can reference their definitions.
type WorldLoader func(ctx context.Context) (m.World, error)

// OutcomeSink receives the progress of a twisting run.
type OutcomeSink interface {
	TwistStarted(ctx context.Context, point m.Point, index, total int)
	TwistFinished(ctx context.Context, outcome m.TwistOutcome)
}

// RunConfig carries the run options of an orchestrator.
type RunConfig struct {
	// Requires are code units loaded untwisted before the spec files.
	Requires        []m.Path
	TwistTargets    []m.Path
	FailureExitCode int
	Randomize       bool
	Seed            uint64
	TerseTwists     bool
	// OutStream, when set, receives twist progress and diagnostics instead
	// of the stream passed to Run.
	OutStream       io.Writer
}

// Orchestrator is the command-line entry: it runs the suite once, or in
// twisted mode once as a baseline and once per mutation point.
type Orchestrator interface {
	Run(ctx context.Context, errStream, outStream io.Writer) (int, error)
	Baseline() m.RunResult
	Outcomes() []m.TwistOutcome
	// Twisted reports whether the last Run used twisted mode.
	Twisted() bool
}

type orchestrator struct {
	cfg       RunConfig
	reporter  *Reporter
	twister   Twister
	loadWorld WorldLoader
	sinks     []OutcomeSink

	errStream io.Writer
	outStream io.Writer

	baseline m.RunResult
	outcomes []m.TwistOutcome
	twist    bool
}

// NewOrchestrator wires the collaborators of a run. twister may be nil when
// no twisting is ever wanted.
func NewOrchestrator(cfg RunConfig, reporter *Reporter, twister Twister, loadWorld WorldLoader, sinks ...OutcomeSink) Orchestrator {
	return &orchestrator{
		cfg:       cfg,
		reporter:  reporter,
		twister:   twister,
		loadWorld: loadWorld,
		sinks:     sinks,
		outStream: cfg.OutStream,
	}
}

func (o *orchestrator) Baseline() m.RunResult { return o.baseline }

func (o *orchestrator) Twisted() bool { return o.twist }

func (o *orchestrator) Outcomes() []m.TwistOutcome {
	outcomes := make([]m.TwistOutcome, len(o.outcomes))
	copy(outcomes, o.outcomes)

	return outcomes
}

// Run binds the error stream, and the output stream unless one is already
// bound, then picks the mode. Twisted mode needs configured targets and an
// instrumentable runtime; otherwise the suite runs once.
func (o *orchestrator) Run(ctx context.Context, errStream, outStream io.Writer) (int, error) {
	o.errStream = orStd(errStream, os.Stderr)
	if o.outStream == nil {
		o.outStream = orStd(outStream, os.Stdout)
	}

	o.outcomes = nil
	o.twist = o.twisted()

	runID := uuid.NewString()
	log := slog.With("run", runID)

	var (
		code int
		err  error
	)

	if o.twist {
		log.Info("starting twisted run", "targets", len(o.cfg.TwistTargets))
		code, err = o.runTwisted(ctx, log)
	} else {
		if len(o.cfg.TwistTargets) > 0 {
			log.Debug("instrumentation unavailable, running untwisted", "targets", len(o.cfg.TwistTargets))
		}

		log.Info("starting run")
		code, err = o.runPlain(ctx)
	}

	if err != nil {
		log.Error("run failed", "error", err)
		fmt.Fprintf(o.errStream, "twister: %v\n", err)

		return o.cfg.FailureExitCode, err
	}

	log.Info("run finished", "exit_code", code, "examples", o.baseline.ExampleCount, "failures", o.baseline.FailureCount)

	return code, nil
}

func (o *orchestrator) twisted() bool {
	return len(o.cfg.TwistTargets) > 0 && o.twister != nil && o.twister.Possible()
}

// runPlain loads the required units and the twist targets untwisted, then
// runs the suite once.
func (o *orchestrator) runPlain(ctx context.Context) (int, error) {
	if units := append(slices.Clone(o.cfg.Requires), o.cfg.TwistTargets...); len(units) > 0 && o.twister != nil {
		if _, err := o.twister.Load(ctx, units); err != nil {
			return 0, err
		}
	}

	world, err := o.loadWorld(ctx)
	if err != nil {
		return 0, fmt.Errorf("load spec files: %w", err)
	}

	o.reporter.Prepare()

	result, err := o.runOnce(ctx, world)
	o.baseline = result

	return result.ExitCode, err
}

func (o *orchestrator) runTwisted(ctx context.Context, log *slog.Logger) (int, error) {
	o.twister.SetOutput(o.outStream)
	defer o.twister.Teardown()

	fmt.Fprintln(o.outStream, "Preparing to twist your code...")

	points, err := o.twister.Prepare(ctx, o.cfg.TwistTargets)
	if err != nil {
		return 0, err
	}

	// required units that are also targets were loaded by Prepare
	if len(o.cfg.Requires) > 0 {
		if _, err := o.twister.Load(ctx, o.cfg.Requires); err != nil {
			return 0, err
		}
	}

	world, err := o.loadWorld(ctx)
	if err != nil {
		return 0, fmt.Errorf("load spec files: %w", err)
	}

	o.reporter.Prepare()

	baseline, err := o.runOnce(ctx, world)
	if err != nil {
		return 0, fmt.Errorf("baseline run: %w", err)
	}

	o.baseline = baseline

	fmt.Fprintf(o.outStream, "Found %d twistable points in %d units\n", len(points), len(o.twister.Units()))

	if o.cfg.TerseTwists {
		o.reporter.PrepareTerse()
	}

	for i, point := range points {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		for _, sink := range o.sinks {
			sink.TwistStarted(ctx, point, i, len(points))
		}

		if err := o.twister.Twist(ctx, []m.Point{point}); err != nil {
			return 0, fmt.Errorf("twist %s: %w", point.Location, err)
		}

		o.reporter.Reset()

		result, err := o.runOnce(ctx, world)
		if err != nil {
			return 0, fmt.Errorf("twisted run %s: %w", point.Location, err)
		}

		outcome := m.TwistOutcome{Point: point, Result: result, Status: m.StatusFor(baseline, result)}
		o.outcomes = append(o.outcomes, outcome)

		log.Debug("twist finished", "location", point.Location, "status", outcome.Status)

		for _, sink := range o.sinks {
			sink.TwistFinished(ctx, outcome)
		}
	}

	return baseline.ExitCode, nil
}

func orStd(w, fallback io.Writer) io.Writer {
	if w == nil {
		return fallback
	}

	return w
}
