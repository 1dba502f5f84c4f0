package controller

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	m "twister.dev/pkg/twister/internal/model"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	killedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	survivedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	faintStyle    = lipgloss.NewStyle().Faint(true)
)

// maxSurvivorLines caps the diff lines kept on screen.
const maxSurvivorLines = 40

// TUI implements UI with a Bubble Tea program that follows the run live.
type TUI struct {
	output io.Writer

	mu      sync.Mutex
	program *tea.Program
	done    chan struct{}
}

// NewTUI creates a new TUI.
func NewTUI(output io.Writer) *TUI {
	return &TUI{output: output}
}

// Start launches the live program in run mode. List and view modes print
// static output and need no program.
func (t *TUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if newStartConfig(options).mode != ModeRun {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	program := tea.NewProgram(newRunModel(), tea.WithOutput(t.output), tea.WithInput(nil), tea.WithContext(ctx))
	done := make(chan struct{})

	go func() {
		defer close(done)

		if _, err := program.Run(); err != nil {
			slog.Debug("tui program stopped", "error", err)
		}
	}()

	t.program, t.done = program, done

	return nil
}

// Close asks the program to render its final frame and exit.
func (t *TUI) Close(_ context.Context) {
	if p := t.current(); p != nil {
		p.Send(finishMsg{})
	}
}

// Wait blocks until the program has exited.
func (t *TUI) Wait(ctx context.Context) {
	t.mu.Lock()
	done := t.done
	t.mu.Unlock()

	if done == nil {
		return
	}

	select {
	case <-done:
	case <-ctx.Done():
	}
}

// Observer forwards reporter events to the program.
func (t *TUI) Observer() m.Observer {
	return m.ObserverFunc(func(event m.Event) error {
		t.send(eventMsg{event: event})
		return nil
	})
}

// DisplayCatalog prints the catalog table.
func (t *TUI) DisplayCatalog(ctx context.Context, points []m.Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	printTo(t.output, "%s\n%s", titleStyle.Render("Twist catalog"), renderCatalogTable(points))

	return nil
}

// DisplayTwistStarted moves the progress bar.
func (t *TUI) DisplayTwistStarted(_ context.Context, point m.Point, index, total int) {
	t.send(twistStartedMsg{point: point, index: index, total: total})
}

// DisplayTwistOutcome records an outcome, keeping diffs of survivors.
func (t *TUI) DisplayTwistOutcome(_ context.Context, outcome m.TwistOutcome, sourceLine string) {
	msg := twistOutcomeMsg{outcome: outcome}
	if outcome.Status == m.Survived {
		msg.diff = twistDiff(outcome.Point, sourceLine)
	}

	t.send(msg)
}

// DisplayTwistSummary shows the score, live when a program runs and as a
// static table otherwise.
func (t *TUI) DisplayTwistSummary(ctx context.Context, outcomes []m.TwistOutcome, score float64) {
	if ctx.Err() != nil {
		return
	}

	if t.current() != nil {
		t.send(summaryMsg{score: score})
		return
	}

	if len(outcomes) > 0 {
		printTo(t.output, "%s\n", renderOutcomeTable(outcomes))
	}

	printTo(t.output, "Mutation score: %s\n", scoreStyle(score).Render(fmt.Sprintf("%.2f%%", score*100)))
}

func (t *TUI) current() *tea.Program {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.program
}

func (t *TUI) send(msg tea.Msg) {
	if p := t.current(); p != nil {
		p.Send(msg)
	}
}

func scoreStyle(score float64) lipgloss.Style {
	if score >= 1 {
		return killedStyle
	}

	return survivedStyle
}

type (
	eventMsg        struct{ event m.Event }
	twistStartedMsg struct {
		point        m.Point
		index, total int
	}
	twistOutcomeMsg struct {
		outcome m.TwistOutcome
		diff    string
	}
	summaryMsg struct{ score float64 }
	finishMsg  struct{}
)

// runModel is the Bubble Tea model of a live run.
type runModel struct {
	spinner  spinner.Model
	progress progress.Model

	expected, examples, failures, pending int
	messages                              []string

	phase            string
	twists           int
	killed, survived int
	survivors        []string
	score            float64
	scored, quitting bool
}

func newRunModel() runModel {
	return runModel{
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		phase:    "baseline",
	}
}

func (rm runModel) Init() tea.Cmd {
	return rm.spinner.Tick
}

func (rm runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		rm.applyEvent(msg.event)
		return rm, nil
	case twistStartedMsg:
		rm.phase = fmt.Sprintf("twist %d/%d at %s", msg.index+1, msg.total, msg.point.Location)
		rm.twists = msg.total

		return rm, nil
	case twistOutcomeMsg:
		rm.applyOutcome(msg)
		return rm, nil
	case summaryMsg:
		rm.score, rm.scored = msg.score, true
		return rm, nil
	case finishMsg:
		rm.quitting = true
		return rm, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			rm.quitting = true
			return rm, tea.Quit
		}

		return rm, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		rm.spinner, cmd = rm.spinner.Update(msg)

		return rm, cmd
	}

	return rm, nil
}

func (rm *runModel) applyEvent(event m.Event) {
	switch event.Type {
	case m.EventStart:
		rm.expected = event.Count
		rm.examples, rm.failures, rm.pending = 0, 0, 0
	case m.EventMessage:
		rm.messages = append(rm.messages, event.Message)
	case m.EventExampleStarted:
		rm.examples++
	case m.EventExampleFailed:
		rm.failures++
	case m.EventExamplePending:
		rm.pending++
	case m.EventDumpSummary:
		if event.Summary != nil {
			rm.examples = event.Summary.ExampleCount
			rm.failures = event.Summary.FailureCount
			rm.pending = event.Summary.PendingCount
		}
	}
}

func (rm *runModel) applyOutcome(msg twistOutcomeMsg) {
	switch msg.outcome.Status {
	case m.Killed:
		rm.killed++
	case m.Survived:
		rm.survived++

		if msg.diff != "" && len(rm.survivors) < maxSurvivorLines {
			rm.survivors = append(rm.survivors, strings.Split(strings.TrimRight(msg.diff, "\n"), "\n")...)
		}
	}
}

func (rm runModel) done() int {
	return rm.killed + rm.survived
}

func (rm runModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("twister"))
	b.WriteString("\n\n")

	for _, msg := range rm.messages {
		b.WriteString(faintStyle.Render(msg))
		b.WriteString("\n")
	}

	if !rm.quitting {
		fmt.Fprintf(&b, "%s %s\n", rm.spinner.View(), rm.phase)
	}

	fmt.Fprintf(&b, "examples %d/%d  failures %d  pending %d\n", rm.examples, rm.expected, rm.failures, rm.pending)

	if rm.twists > 0 {
		percent := float64(rm.done()) / float64(rm.twists)
		fmt.Fprintf(&b, "\n%s %d/%d\n", rm.progress.ViewAs(percent), rm.done(), rm.twists)
		fmt.Fprintf(&b, "%s  %s\n", killedStyle.Render(fmt.Sprintf("killed %d", rm.killed)), survivedStyle.Render(fmt.Sprintf("survived %d", rm.survived)))
	}

	if len(rm.survivors) > 0 {
		b.WriteString("\n")
		b.WriteString(strings.Join(rm.survivors, "\n"))
		b.WriteString("\n")
	}

	if rm.scored {
		fmt.Fprintf(&b, "\nMutation score: %s\n", scoreStyle(rm.score).Render(fmt.Sprintf("%.2f%%", rm.score*100)))
	}

	return b.String()
}
