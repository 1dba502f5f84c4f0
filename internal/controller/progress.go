package controller

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	m "twister.dev/pkg/twister/internal/model"
)

// ProgressFormatter prints one character per example and a summary at the
// end of each report cycle.
type ProgressFormatter struct {
	out     io.Writer
	pass    lipgloss.Style
	fail    lipgloss.Style
	pending lipgloss.Style
	dots    int
}

// NewProgressFormatter writes progress to out. Colors follow the terminal
// capabilities of out.
func NewProgressFormatter(out io.Writer) *ProgressFormatter {
	r := lipgloss.NewRenderer(out)

	return &ProgressFormatter{
		out:     out,
		pass:    r.NewStyle().Foreground(lipgloss.Color("2")),
		fail:    r.NewStyle().Foreground(lipgloss.Color("1")),
		pending: r.NewStyle().Foreground(lipgloss.Color("3")),
	}
}

// Notify implements model.Observer.
func (p *ProgressFormatter) Notify(event m.Event) error {
	switch event.Type {
	case m.EventStart:
		p.dots = 0
	case m.EventMessage:
		return p.printf("%s\n", event.Message)
	case m.EventExamplePassed:
		return p.dot(p.pass.Render("."))
	case m.EventExampleFailed:
		return p.dot(p.fail.Render("F"))
	case m.EventExamplePending:
		return p.dot(p.pending.Render("*"))
	case m.EventStartDump:
		if p.dots > 0 {
			return p.printf("\n\n")
		}
	case m.EventDumpPending:
		return p.dumpPending(event.Pending)
	case m.EventDumpFailures:
		return p.dumpFailures(event.Failures)
	case m.EventDumpSummary:
		return p.dumpSummary(event.Summary)
	case m.EventSeed:
		return p.printf("\nRandomized with seed %d\n", event.Seed)
	}

	return nil
}

func (p *ProgressFormatter) dot(s string) error {
	p.dots++
	return p.printf("%s", s)
}

func (p *ProgressFormatter) dumpPending(pending []m.ExampleInfo) error {
	if len(pending) == 0 {
		return nil
	}

	var b strings.Builder

	b.WriteString("Pending:\n")

	for _, ex := range pending {
		fmt.Fprintf(&b, "  %s\n    %s\n", p.pending.Render(ex.FullDescription()), ex.PendingReason)
	}

	b.WriteString("\n")

	return p.printf("%s", b.String())
}

func (p *ProgressFormatter) dumpFailures(failures []m.ExampleInfo) error {
	if len(failures) == 0 {
		return nil
	}

	var b strings.Builder

	b.WriteString("Failures:\n\n")

	for i, ex := range failures {
		fmt.Fprintf(&b, "  %d) %s\n", i+1, ex.FullDescription())

		if ex.Err != nil {
			fmt.Fprintf(&b, "     %s\n", p.fail.Render(ex.Err.Error()))
		}

		b.WriteString("\n")
	}

	return p.printf("%s", b.String())
}

func (p *ProgressFormatter) dumpSummary(summary *m.Summary) error {
	if summary == nil {
		return nil
	}

	line := fmt.Sprintf("%s, %s", plural(summary.ExampleCount, "example"), plural(summary.FailureCount, "failure"))
	if summary.PendingCount > 0 {
		line += fmt.Sprintf(", %d pending", summary.PendingCount)
	}

	style := p.pass

	switch {
	case summary.FailureCount > 0:
		style = p.fail
	case summary.PendingCount > 0:
		style = p.pending
	}

	return p.printf("Finished in %.5f seconds\n%s\n", summary.Duration.Seconds(), style.Render(line))
}

func (p *ProgressFormatter) printf(format string, args ...any) error {
	_, err := fmt.Fprintf(p.out, format, args...)
	return err
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}

	return fmt.Sprintf("%d %ss", n, word)
}
