package domain

import (
	"context"
	"fmt"
	"log/slog"

	m "twister.dev/pkg/twister/internal/model"
)

func (t *twister) Twist(ctx context.Context, points []m.Point) error {
	if !t.ready {
		return ErrNotPrepared
	}

	purged := t.hygiene.PurgeRecorded()
	t.session.Activate(points)

	if err := t.loader.Install(t.session.Hook()); err != nil {
		return fmt.Errorf("install hook: %w", err)
	}

	before := t.hygiene.Snapshot()

	if err := t.loader.Load(ctx, t.units); err != nil {
		t.hygiene.Record(before)
		return fmt.Errorf("reload twist targets: %w", err)
	}

	recorded := t.hygiene.Record(before)

	slog.Debug("reloaded twisted units", "purged", purged, "defined", len(recorded), "active", len(points))

	return nil
}
