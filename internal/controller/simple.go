package controller

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"

	"twister.dev/pkg/twister/internal/domain/twists"
	m "twister.dev/pkg/twister/internal/model"
)

// SimpleUI implements UI with plain text on the command's output.
type SimpleUI struct {
	cmd      *cobra.Command
	progress *ProgressFormatter
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd, progress: NewProgressFormatter(cmd.OutOrStdout())}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context, _ ...StartOption) error {
	return ctx.Err()
}

// Close finalizes the UI.
func (s *SimpleUI) Close(_ context.Context) {}

// Wait returns at once; SimpleUI never blocks.
func (s *SimpleUI) Wait(_ context.Context) {}

// Observer returns the progress formatter.
func (s *SimpleUI) Observer() m.Observer {
	return s.progress
}

// DisplayCatalog prints the mutation points per unit.
func (s *SimpleUI) DisplayCatalog(ctx context.Context, points []m.Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("\n%s", renderCatalogTable(points))

	return nil
}

// DisplayTwistStarted announces the next twisted run.
func (s *SimpleUI) DisplayTwistStarted(ctx context.Context, point m.Point, index, total int) {
	if ctx.Err() != nil {
		return
	}

	s.printf("\nTwist %d/%d: %s\n", index+1, total, describePoint(point))
}

// DisplayTwistOutcome prints the status of a twist, with a diff when the
// suite did not notice it.
func (s *SimpleUI) DisplayTwistOutcome(ctx context.Context, outcome m.TwistOutcome, sourceLine string) {
	if ctx.Err() != nil {
		return
	}

	s.printf("%s -> %s\n", outcome.Point.Location, outcome.Status)

	if outcome.Status == m.Survived {
		if diff := twistDiff(outcome.Point, sourceLine); diff != "" {
			s.printf("%s", diff)
		}
	}
}

// DisplayTwistSummary prints per-unit counts and the mutation score.
func (s *SimpleUI) DisplayTwistSummary(ctx context.Context, outcomes []m.TwistOutcome, score float64) {
	if ctx.Err() != nil {
		return
	}

	if len(outcomes) > 0 {
		s.printf("\n%s", renderOutcomeTable(outcomes))
	}

	s.printf("Mutation score: %.2f%%\n", score*100)
}

func (s *SimpleUI) printf(format string, args ...any) {
	printTo(s.cmd.OutOrStdout(), format, args...)
}

func printTo(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

func describePoint(point m.Point) string {
	switch point.Kind {
	case m.KindLiteral:
		return fmt.Sprintf("%s literal %s at %s", point.LiteralType, twists.FormatValue(point.Original), point.Location)
	case m.KindConditional:
		return fmt.Sprintf("conditional at %s", point.Location)
	default:
		return point.ID()
	}
}

type unitStat struct {
	unit         string
	conditionals int
	literals     int
	killed       int
	survived     int
}

func statsByUnit(points []m.Point, outcomes []m.TwistOutcome) []unitStat {
	index := make(map[string]*unitStat)

	get := func(unit m.Path) *unitStat {
		stat, ok := index[string(unit)]
		if !ok {
			stat = &unitStat{unit: string(unit)}
			index[string(unit)] = stat
		}

		return stat
	}

	count := func(point m.Point) *unitStat {
		stat := get(point.Location.Unit)

		switch point.Kind {
		case m.KindConditional:
			stat.conditionals++
		case m.KindLiteral:
			stat.literals++
		}

		return stat
	}

	for _, point := range points {
		count(point)
	}

	for _, outcome := range outcomes {
		stat := count(outcome.Point)

		switch outcome.Status {
		case m.Killed:
			stat.killed++
		case m.Survived:
			stat.survived++
		}
	}

	stats := make([]unitStat, 0, len(index))
	for _, stat := range index {
		stats = append(stats, *stat)
	}

	sort.Slice(stats, func(i, j int) bool {
		return stats[i].unit < stats[j].unit
	})

	return stats
}

func renderCatalogTable(points []m.Point) string {
	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Unit", "Conditionals", "Literals"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_CENTER})

	stats := statsByUnit(points, nil)

	conditionals, literals := 0, 0

	for _, stat := range stats {
		table.Append([]string{stat.unit, fmt.Sprintf("%d", stat.conditionals), fmt.Sprintf("%d", stat.literals)})
		conditionals += stat.conditionals
		literals += stat.literals
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Units %d", len(stats)),
		fmt.Sprintf("%d", conditionals),
		fmt.Sprintf("%d", literals),
	})

	table.Render()

	return buf.String()
}

func renderOutcomeTable(outcomes []m.TwistOutcome) string {
	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Unit", "Killed", "Survived"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_CENTER})

	killed, survived := 0, 0

	for _, stat := range statsByUnit(nil, outcomes) {
		table.Append([]string{stat.unit, fmt.Sprintf("%d", stat.killed), fmt.Sprintf("%d", stat.survived)})
		killed += stat.killed
		survived += stat.survived
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Twists %d", len(outcomes)),
		fmt.Sprintf("%d", killed),
		fmt.Sprintf("%d", survived),
	})

	table.Render()

	return buf.String()
}

// twistDiff renders the twisted source line as a unified diff against the
// original. It returns "" when the line cannot be rewritten.
func twistDiff(point m.Point, sourceLine string) string {
	if sourceLine == "" {
		return ""
	}

	twisted, ok := twists.RenderLine(point, sourceLine)
	if !ok {
		return ""
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        []string{sourceLine + "\n"},
		B:        []string{twisted + "\n"},
		FromFile: string(point.Location.Unit),
		ToFile:   string(point.Location.Unit) + " (twisted)",
		Context:  0,
	})
	if err != nil {
		return ""
	}

	return diff
}
