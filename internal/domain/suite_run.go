package domain

import (
	"context"
	"errors"
	"fmt"

	m "twister.dev/pkg/twister/internal/model"
)

// runOnce runs every top-level group of world inside one report cycle. The
// after-suite hook runs even when the before-suite hook fails. The exit code
// is 0 when every group passed and the configured failure code otherwise.
func (o *orchestrator) runOnce(ctx context.Context, world m.World) (m.RunResult, error) {
	world.AnnounceFilters(o.reporter)

	var seed *uint64
	if o.cfg.Randomize {
		s := o.cfg.Seed
		seed = &s
	}

	allPassed := true

	err := o.reporter.Report(ctx, world.ExampleCount(), seed, func(ctx context.Context, r *Reporter) (err error) {
		defer func() {
			if hookErr := world.RunHook(ctx, m.HookAfter, m.ScopeSuite); hookErr != nil {
				err = errors.Join(err, fmt.Errorf("after suite: %w", hookErr))
			}
		}()

		if err := world.RunHook(ctx, m.HookBefore, m.ScopeSuite); err != nil {
			return fmt.Errorf("before suite: %w", err)
		}

		for _, group := range world.Groups() {
			if !group.Run(ctx, r) {
				allPassed = false
			}
		}

		return nil
	})

	result := o.reporter.Result()
	if !allPassed || err != nil {
		result.ExitCode = o.cfg.FailureExitCode
	}

	return result, err
}
