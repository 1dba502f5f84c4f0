package domain

import (
	"context"
	"fmt"
	"log/slog"

	m "twister.dev/pkg/twister/internal/model"
)

func (t *twister) Prepare(ctx context.Context, targets []m.Path) ([]m.Point, error) {
	t.ready = false

	units, err := t.fs.ExpandUnits(ctx, targets)
	if err != nil {
		return nil, fmt.Errorf("expand twist targets: %w", err)
	}

	// definitions of an earlier Prepare or Twist would collide with the reload
	t.hygiene.PurgeRecorded()
	t.units = units
	t.session.Reset()

	if err := t.loader.Install(t.session.Hook()); err != nil {
		return nil, fmt.Errorf("install hook: %w", err)
	}

	defer t.loader.Uninstall()

	before := t.hygiene.Snapshot()

	if err := t.loader.Load(ctx, units); err != nil {
		// Keep whatever the failed load defined purgeable.
		t.hygiene.Record(before)
		return nil, fmt.Errorf("load twist targets: %w", err)
	}

	recorded := t.hygiene.Record(before)
	points := t.session.Points()
	t.markLoaded(units)
	t.ready = true

	slog.Info("prepared twist targets", "units", len(units), "definitions", recorded, "points", len(points))

	return points, nil
}

func (t *twister) Load(ctx context.Context, paths []m.Path) ([]m.Path, error) {
	units, err := t.fs.ExpandUnits(ctx, paths)
	if err != nil {
		return nil, fmt.Errorf("expand required paths: %w", err)
	}

	var pending []m.Path

	for _, unit := range units {
		if _, ok := t.loaded[unit]; !ok {
			pending = append(pending, unit)
		}
	}

	if len(pending) == 0 {
		return nil, nil
	}

	if err := t.loader.Load(ctx, pending); err != nil {
		return nil, fmt.Errorf("load required units: %w", err)
	}

	t.markLoaded(pending)

	slog.Info("loaded required units", "units", len(pending))

	return pending, nil
}

func (t *twister) markLoaded(units []m.Path) {
	for _, unit := range units {
		t.loaded[unit] = struct{}{}
	}
}
