package domain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"

	"twister.dev/pkg/twister/internal/adapter"
	"twister.dev/pkg/twister/internal/controller"
	"twister.dev/pkg/twister/internal/interp"
	m "twister.dev/pkg/twister/internal/model"
	"twister.dev/pkg/twister/internal/suite"
	"twister.dev/pkg/twister/pkg"
)

// RunArgs contains the arguments of a suite run.
type RunArgs struct {
	SpecPaths       []m.Path
	Requires        []m.Path
	TwistTargets    []m.Path
	Order           m.Order
	Seed            uint64
	Filter          string
	FailureExitCode int
	TerseTwists     bool
	Instrumentation bool
	Reports         m.Path
	ErrStream       io.Writer
	OutStream       io.Writer
}

// ListArgs contains the arguments for listing mutation points.
type ListArgs struct {
	TwistTargets    []m.Path
	Instrumentation bool
}

// ViewArgs contains the arguments for showing saved outcomes.
type ViewArgs struct {
	Reports m.Path
}

// Workflow is what the CLI commands drive.
type Workflow interface {
	Run(ctx context.Context, args RunArgs) (int, error)
	List(ctx context.Context, args ListArgs) error
	View(ctx context.Context, args ViewArgs) error
}

type workflow struct {
	adapter.SourceFSAdapter
	adapter.GoFileAdapter
	adapter.SpecFileAdapter
	adapter.ReportStore
	ui controller.UI
}

// NewWorkflow creates a Workflow with the provided dependencies.
func NewWorkflow(
	fsAdapter adapter.SourceFSAdapter,
	goFileAdapter adapter.GoFileAdapter,
	specAdapter adapter.SpecFileAdapter,
	reportStore adapter.ReportStore,
	ui controller.UI,
) Workflow {
	return &workflow{
		SourceFSAdapter: fsAdapter,
		GoFileAdapter:   goFileAdapter,
		SpecFileAdapter: specAdapter,
		ReportStore:     reportStore,
		ui:              ui,
	}
}

// newTwister builds a fresh runtime for one command so no definitions leak
// between commands.
func (w *workflow) newTwister(instrumentation bool) (Twister, *interp.Machine) {
	machine := interp.NewMachine(interp.WithInstrumentation(instrumentation))
	loader := adapter.NewLocalUnitLoader(machine, w.GoFileAdapter, w.SourceFSAdapter)

	return NewTwister(loader, w.SourceFSAdapter), machine
}

func (w *workflow) Run(ctx context.Context, args RunArgs) (int, error) {
	twister, machine := w.newTwister(args.Instrumentation)

	if args.Order == m.OrderRandom && args.Seed == 0 {
		args.Seed = rand.Uint64()
	}

	opts := suite.Options{Order: args.Order, Seed: args.Seed, Filter: args.Filter}
	loadWorld := func(ctx context.Context) (m.World, error) {
		world, err := w.LoadWorld(ctx, args.SpecPaths, machine, opts)
		if err != nil {
			return nil, err
		}

		return world, nil
	}

	sinks := []OutcomeSink{&uiSink{ui: w.ui, fs: w.SourceFSAdapter}}

	if len(args.TwistTargets) > 0 {
		journal, err := w.CreateOutcomes(args.Reports)
		if err != nil {
			return args.FailureExitCode, err
		}

		defer func() {
			if err := journal.Close(); err != nil {
				slog.Warn("close journal", "error", err)
			}
		}()

		sinks = append(sinks, &journalSink{journal: journal})
	}

	if err := w.ui.Start(ctx, controller.WithRunMode()); err != nil {
		return args.FailureExitCode, fmt.Errorf("start ui: %w", err)
	}

	defer func() {
		w.ui.Close(ctx)
		w.ui.Wait(ctx)
	}()

	reporter := NewReporter(WithObservers(w.ui.Observer()))
	orchestrator := NewOrchestrator(RunConfig{
		Requires:        args.Requires,
		TwistTargets:    args.TwistTargets,
		FailureExitCode: args.FailureExitCode,
		Randomize:       args.Order == m.OrderRandom,
		Seed:            args.Seed,
		TerseTwists:     args.TerseTwists,
	}, reporter, twister, loadWorld, sinks...)

	code, err := orchestrator.Run(ctx, args.ErrStream, args.OutStream)
	if err != nil {
		return code, err
	}

	if orchestrator.Twisted() {
		outcomes := orchestrator.Outcomes()
		w.ui.DisplayTwistSummary(ctx, outcomes, MutationScore(outcomes))
	}

	return code, nil
}

func (w *workflow) List(ctx context.Context, args ListArgs) error {
	if len(args.TwistTargets) == 0 {
		return errors.New("no twist targets given")
	}

	twister, _ := w.newTwister(args.Instrumentation)
	if !twister.Possible() {
		return fmt.Errorf("list twist points: %w", interp.ErrInstrumentationUnavailable)
	}

	defer twister.Teardown()

	points, err := twister.Prepare(ctx, args.TwistTargets)
	if err != nil {
		return fmt.Errorf("prepare twist targets: %w", err)
	}

	if err := w.ui.Start(ctx, controller.WithListMode()); err != nil {
		return fmt.Errorf("start ui: %w", err)
	}

	defer func() {
		w.ui.Close(ctx)
		w.ui.Wait(ctx)
	}()

	return w.ui.DisplayCatalog(ctx, points)
}

func (w *workflow) View(ctx context.Context, args ViewArgs) error {
	outcomes, err := w.LoadOutcomes(args.Reports)
	if err != nil {
		return err
	}

	if err := w.ui.Start(ctx, controller.WithViewMode()); err != nil {
		return fmt.Errorf("start ui: %w", err)
	}

	defer func() {
		w.ui.Close(ctx)
		w.ui.Wait(ctx)
	}()

	sink := &uiSink{ui: w.ui, fs: w.SourceFSAdapter}
	for _, outcome := range outcomes {
		if outcome.Status == m.Survived {
			sink.TwistFinished(ctx, outcome)
		}
	}

	w.ui.DisplayTwistSummary(ctx, outcomes, MutationScore(outcomes))

	return nil
}

// uiSink shows twist progress on the UI, with the original source line of
// survivors so the UI can render a diff.
type uiSink struct {
	ui controller.UI
	fs adapter.SourceFSAdapter
}

func (s *uiSink) TwistStarted(ctx context.Context, point m.Point, index, total int) {
	s.ui.DisplayTwistStarted(ctx, point, index, total)
}

func (s *uiSink) TwistFinished(ctx context.Context, outcome m.TwistOutcome) {
	var line string

	if outcome.Status == m.Survived {
		loc := outcome.Point.Location

		var err error
		if line, err = s.fs.ReadLine(ctx, loc.Unit, loc.Line); err != nil {
			slog.Debug("read survivor line", "location", loc, "error", err)
		}
	}

	s.ui.DisplayTwistOutcome(ctx, outcome, line)
}

// journalSink appends every outcome to the reports journal.
type journalSink struct {
	journal pkg.Journal[m.TwistOutcome]
}

func (s *journalSink) TwistStarted(context.Context, m.Point, int, int) {}

func (s *journalSink) TwistFinished(_ context.Context, outcome m.TwistOutcome) {
	if err := s.journal.Append(outcome); err != nil {
		slog.Error("journal twist outcome", "location", outcome.Point.Location, "error", err)
	}
}
