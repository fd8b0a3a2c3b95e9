package syncer

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"calmirror/internal"
)

const defaultSweepConcurrency = 4

// Sweeper bounds mapping growth by dropping entries whose referenced item
// lies in the past. Lookups fan out over a bounded pool; all store writes
// stay on the calling goroutine.
type Sweeper struct {
	events internal.EventGateway
	tasks  internal.TaskGateway
	store  internal.Store
	log    zerolog.Logger
	now    func() time.Time

	// Concurrency caps parallel remote lookups. Zero means the default.
	Concurrency int
}

func NewSweeper(events internal.EventGateway, tasks internal.TaskGateway, store internal.Store, log zerolog.Logger) *Sweeper {
	return &Sweeper{
		events: events,
		tasks:  tasks,
		store:  store,
		log:    log.With().Str("component", "sweeper").Logger(),
		now:    time.Now,
	}
}

type pruneResult struct {
	key  string
	drop bool
	err  error
}

func (s *Sweeper) Run(ctx context.Context, p internal.Profile) error {
	log := s.log.With().Str("profile", p.Name).Logger()

	if err := s.pruneEvents(ctx, log, p); err != nil {
		return err
	}
	if p.TaskListID == "" {
		return nil
	}
	if err := s.pruneDays(ctx, log, p); err != nil {
		return err
	}
	return s.pruneTasks(ctx, log, p)
}

func (s *Sweeper) concurrency() int {
	if s.Concurrency > 0 {
		return s.Concurrency
	}
	return defaultSweepConcurrency
}

// pruneEvents drops 1:1 mapping entries whose mirror has ended before
// today, and dangling entries whose mirror is gone. A failed lookup keeps
// the entry for the next run.
func (s *Sweeper) pruneEvents(ctx context.Context, log zerolog.Logger, p internal.Profile) error {
	mapping, err := s.store.Get(ctx, p.Name, internal.TableEvents)
	if err != nil {
		return err
	}
	if len(mapping) == 0 {
		return nil
	}
	today := internal.DayOf(s.now(), p.Location)

	workers := pool.NewWithResults[pruneResult]().WithMaxGoroutines(s.concurrency())
	for srcID, mirrorID := range mapping {
		srcID, mirrorID := srcID, mirrorID
		workers.Go(func() pruneResult {
			ev, err := s.events.Event(ctx, p.DestinationCalendarID, mirrorID)
			if errors.Is(err, internal.ErrNotFound) {
				// Dangling reference: the mirror is already gone.
				return pruneResult{key: srcID, drop: true}
			}
			if err != nil {
				return pruneResult{key: srcID, err: err}
			}
			past := internal.DayOf(ev.EndsAt, p.Location).Before(today)
			return pruneResult{key: srcID, drop: past}
		})
	}

	var dropped int
	for _, res := range workers.Wait() {
		if res.err != nil {
			log.Warn().Err(res.err).Str("source_event", res.key).Msg("prune lookup failed, keeping entry")
			continue
		}
		if res.drop {
			delete(mapping, res.key)
			dropped++
		}
	}
	if dropped == 0 {
		return nil
	}
	log.Info().Int("dropped", dropped).Msg("pruned event mappings")
	return s.store.Put(ctx, p.Name, internal.TableEvents, mapping)
}

func (s *Sweeper) pruneDays(ctx context.Context, log zerolog.Logger, p internal.Profile) error {
	days, err := s.store.Get(ctx, p.Name, internal.TableDays)
	if err != nil {
		return err
	}
	today := internal.DayOf(s.now(), p.Location)

	var dropped int
	for key := range days {
		day, perr := internal.ParseDay(key, p.Location)
		if perr != nil {
			log.Warn().Str("day", key).Msg("dropping malformed day key")
			delete(days, key)
			dropped++
			continue
		}
		if day.Before(today) {
			delete(days, key)
			dropped++
		}
	}
	if dropped == 0 {
		return nil
	}
	log.Info().Int("dropped", dropped).Msg("pruned day mappings")
	return s.store.Put(ctx, p.Name, internal.TableDays, days)
}

// pruneTasks drops task mapping entries whose task is gone, deleted, or no
// longer due today-or-later.
func (s *Sweeper) pruneTasks(ctx context.Context, log zerolog.Logger, p internal.Profile) error {
	taskmap, err := s.store.Get(ctx, p.Name, internal.TableTasks)
	if err != nil {
		return err
	}
	if len(taskmap) == 0 {
		return nil
	}
	today := internal.DayOf(s.now(), p.Location)

	workers := pool.NewWithResults[pruneResult]().WithMaxGoroutines(s.concurrency())
	for taskID := range taskmap {
		taskID := taskID
		workers.Go(func() pruneResult {
			t, err := s.tasks.Task(ctx, p.TaskListID, taskID)
			if errors.Is(err, internal.ErrNotFound) {
				return pruneResult{key: taskID, drop: true}
			}
			if err != nil {
				return pruneResult{key: taskID, err: err}
			}
			stale := t.Deleted || t.DueAt.IsZero() || t.DueDay(p.Location).Before(today)
			return pruneResult{key: taskID, drop: stale}
		})
	}

	var dropped int
	for _, res := range workers.Wait() {
		if res.err != nil {
			log.Warn().Err(res.err).Str("task", res.key).Msg("prune lookup failed, keeping entry")
			continue
		}
		if res.drop {
			delete(taskmap, res.key)
			dropped++
		}
	}
	if dropped == 0 {
		return nil
	}
	log.Info().Int("dropped", dropped).Msg("pruned task mappings")
	return s.store.Put(ctx, p.Name, internal.TableTasks, taskmap)
}
