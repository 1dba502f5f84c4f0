package adapter

import (
	"fmt"
	"path/filepath"

	m "twister.dev/pkg/twister/internal/model"
	"twister.dev/pkg/twister/pkg"
)

// JournalFileName is the name of the outcome journal in a reports directory.
const JournalFileName = "twists.gob"

// ReportStore persists twist outcomes in a reports directory.
type ReportStore interface {
	// CreateOutcomes starts a fresh journal, replacing any earlier one.
	CreateOutcomes(reports m.Path) (pkg.Journal[m.TwistOutcome], error)
	// LoadOutcomes reads every outcome of the journal in reports.
	LoadOutcomes(reports m.Path) ([]m.TwistOutcome, error)
}

// LocalReportStore keeps the journal on the local disk.
type LocalReportStore struct {
	fs SourceFSAdapter
}

// NewReportStore constructs a LocalReportStore.
func NewReportStore(fs SourceFSAdapter) *LocalReportStore {
	return &LocalReportStore{fs: fs}
}

// CreateOutcomes creates reports if needed and truncates its journal.
func (s *LocalReportStore) CreateOutcomes(reports m.Path) (pkg.Journal[m.TwistOutcome], error) {
	if err := s.fs.MkdirAll(reports); err != nil {
		return nil, fmt.Errorf("create reports directory: %w", err)
	}

	journal, err := pkg.CreateJournal[m.TwistOutcome](journalPath(reports))
	if err != nil {
		return nil, fmt.Errorf("create reports: %w", err)
	}

	return journal, nil
}

// LoadOutcomes decodes the journal in reports.
func (s *LocalReportStore) LoadOutcomes(reports m.Path) ([]m.TwistOutcome, error) {
	journal, err := pkg.OpenJournal[m.TwistOutcome](journalPath(reports))
	if err != nil {
		return nil, fmt.Errorf("open reports: %w", err)
	}

	defer func() {
		_ = journal.Close()
	}()

	outcomes := make([]m.TwistOutcome, 0, journal.Len())

	err = journal.Range(func(_ uint64, outcome m.TwistOutcome) error {
		outcomes = append(outcomes, outcome)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read reports: %w", err)
	}

	return outcomes, nil
}

func journalPath(reports m.Path) string {
	return filepath.Join(string(reports), JournalFileName)
}
