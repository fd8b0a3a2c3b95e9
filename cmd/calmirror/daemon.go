package main

import (
	"context"

	"github.com/adhocore/gronx/pkg/tasker"
	"github.com/sourcegraph/conc/pool"

	"calmirror/internal/config"
)

// daemonCmd runs sync on a cron schedule until the context is cancelled.
// The gateway and profiles are rebuilt on every tick so calendar renames
// and config edits are picked up without a restart.
func daemonCmd(ctx context.Context, e *env) error {
	expr := e.k.String(config.DaemonCron)
	e.log.Info().Str("cron", expr).Msg("starting daemon")

	taskr := tasker.New(tasker.Option{})
	taskr.Task(expr, func(tickCtx context.Context) (int, error) {
		if err := syncCmd(tickCtx, e); err != nil {
			e.log.Error().Err(err).Msg("scheduled sync failed")
		}
		return 0, nil
	})

	workers := pool.New().WithContext(ctx)
	workers.Go(func(context.Context) error {
		taskr.Run()
		return nil
	})
	workers.Go(func(ctx context.Context) error {
		<-ctx.Done()
		taskr.Stop()
		return nil
	})
	return workers.Wait()
}
