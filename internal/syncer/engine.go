package syncer

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"calmirror/internal"
)

// Engine drives one reconciliation run: reconciler, then aggregator, then
// sweeper, for each profile in turn. Profiles never run concurrently; the
// store's whole-table writes have no isolation.
type Engine struct {
	gw    internal.EventGateway
	store internal.Store
	log   zerolog.Logger

	reconciler *Reconciler
	aggregator *Aggregator
	sweeper    *Sweeper
}

func NewEngine(events internal.EventGateway, tasks internal.TaskGateway, store internal.Store, log zerolog.Logger) *Engine {
	return &Engine{
		gw:         events,
		store:      store,
		log:        log,
		reconciler: NewReconciler(events, store, log),
		aggregator: NewAggregator(events, tasks, store, log),
		sweeper:    NewSweeper(events, tasks, store, log),
	}
}

func (e *Engine) Run(ctx context.Context, profiles []internal.Profile) error {
	log := e.log.With().Str("run_id", uuid.NewString()).Logger()

	var partial bool
	step := func(plog zerolog.Logger, name string, run func() error) error {
		err := run()
		switch {
		case err == nil:
			return nil
		case errors.Is(err, ErrPartial):
			plog.Warn().Str("step", name).Msg("finished with item errors")
			partial = true
			return nil
		default:
			return err
		}
	}

	for _, p := range profiles {
		if err := ctx.Err(); err != nil {
			return err
		}
		plog := log.With().Str("profile", p.Name).Logger()
		plog.Info().Msg("run started")

		if err := step(plog, "reconcile", func() error { return e.reconciler.Run(ctx, p) }); err != nil {
			return err
		}
		if err := step(plog, "aggregate", func() error { return e.aggregator.Run(ctx, p) }); err != nil {
			return err
		}
		if err := step(plog, "sweep", func() error { return e.sweeper.Run(ctx, p) }); err != nil {
			return err
		}
		plog.Info().Msg("run finished")
	}
	if partial {
		return ErrPartial
	}
	return nil
}

// Reset wipes the profile's mirrored state: every destination event from
// today onward is deleted and all mapping tables are emptied, forcing the
// next run to start from a clean full pass.
func (e *Engine) Reset(ctx context.Context, p internal.Profile) error {
	log := e.log.With().Str("profile", p.Name).Logger()
	today := internal.DayOf(e.reconciler.now(), p.Location)

	it, err := e.gw.Events(ctx, p.DestinationCalendarID, today)
	if err != nil {
		return err
	}
	var ids []string
	for it.Next() {
		ids = append(ids, it.Event().ID)
	}
	if err := it.Err(); err != nil {
		return err
	}

	for _, id := range ids {
		if _, err := e.gw.Delete(ctx, p.DestinationCalendarID, id); err != nil {
			return err
		}
	}
	log.Info().Int("events", len(ids)).Msg("cleared destination calendar")

	tables := []string{
		internal.TableEvents,
		internal.TableTokens,
		internal.TableDays,
		internal.TableTasks,
		internal.TableWatermarks,
	}
	for _, table := range tables {
		if err := e.store.Put(ctx, p.Name, table, map[string]string{}); err != nil {
			return err
		}
	}
	return nil
}
