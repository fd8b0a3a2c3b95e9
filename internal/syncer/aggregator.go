package syncer

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"calmirror/internal"
)

// Aggregator maintains exactly one TODO event per due day on the
// destination calendar, one status line per live task. The first pass
// enumerates everything; later passes only look at tasks updated since the
// stored watermark.
type Aggregator struct {
	events internal.EventGateway
	tasks  internal.TaskGateway
	store  internal.Store
	log    zerolog.Logger
	now    func() time.Time
}

func NewAggregator(events internal.EventGateway, tasks internal.TaskGateway, store internal.Store, log zerolog.Logger) *Aggregator {
	return &Aggregator{
		events: events,
		tasks:  tasks,
		store:  store,
		log:    log.With().Str("component", "aggregator").Logger(),
		now:    time.Now,
	}
}

func (a *Aggregator) Run(ctx context.Context, p internal.Profile) error {
	if p.TaskListID == "" {
		return nil
	}

	days, err := a.store.Get(ctx, p.Name, internal.TableDays)
	if err != nil {
		return err
	}
	// An empty day table means uninitialized, not "no tasks": seed it with
	// a full pass.
	if len(days) == 0 {
		return a.initialPass(ctx, p)
	}
	return a.incrementalPass(ctx, p, days)
}

func (a *Aggregator) eligible(t *internal.Task, today internal.Date, p internal.Profile) bool {
	if t.Deleted || t.DueAt.IsZero() {
		return false
	}
	return !t.DueDay(p.Location).Before(today)
}

func (a *Aggregator) initialPass(ctx context.Context, p internal.Profile) error {
	log := a.log.With().Str("profile", p.Name).Logger()
	today := internal.DayOf(a.now(), p.Location)

	it, err := a.tasks.Tasks(ctx, p.TaskListID, time.Time{})
	if err != nil {
		return err
	}

	buckets := map[string][]*internal.Task{}
	for it.Next() {
		t := it.Task()
		if !a.eligible(t, today, p) {
			continue
		}
		key := t.DueDay(p.Location).Key()
		buckets[key] = append(buckets[key], t)
	}
	if err := it.Err(); err != nil {
		log.Error().Err(err).Msg("listing tasks failed")
		return ErrPartial
	}

	taskmap, err := a.store.Get(ctx, p.Name, internal.TableTasks)
	if err != nil {
		return err
	}
	days := map[string]string{}

	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var failed bool
	for _, key := range keys {
		day, derr := internal.ParseDay(key, p.Location)
		if derr != nil {
			return derr
		}

		lines := make([]string, 0, len(buckets[key]))
		for _, t := range buckets[key] {
			lines = append(lines, statusLine(t))
		}

		id, ierr := a.events.Insert(ctx, p.DestinationCalendarID, todoEvent(day, lines))
		if ierr != nil {
			log.Error().Err(ierr).Str("day", key).Str("op", "insert").Msg("todo mutation failed")
			failed = true
			continue
		}
		days[key] = id
		if err := a.store.Put(ctx, p.Name, internal.TableDays, days); err != nil {
			return err
		}
		for _, t := range buckets[key] {
			taskmap[t.ID] = id
		}
		if err := a.store.Put(ctx, p.Name, internal.TableTasks, taskmap); err != nil {
			return err
		}
		log.Info().Str("day", key).Int("tasks", len(buckets[key])).Msg("created todo event")
	}

	if failed {
		return ErrPartial
	}
	return a.advanceWatermark(ctx, p)
}

func (a *Aggregator) incrementalPass(ctx context.Context, p internal.Profile, days map[string]string) error {
	log := a.log.With().Str("profile", p.Name).Logger()
	today := internal.DayOf(a.now(), p.Location)

	watermarks, err := a.store.Get(ctx, p.Name, internal.TableWatermarks)
	if err != nil {
		return err
	}
	var since time.Time
	if s, ok := watermarks[p.TaskListID]; ok {
		since, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return err
		}
	}

	it, err := a.tasks.Tasks(ctx, p.TaskListID, since)
	if err != nil {
		return err
	}

	taskmap, err := a.store.Get(ctx, p.Name, internal.TableTasks)
	if err != nil {
		return err
	}

	var failed bool
	for it.Next() {
		itemFailed, err := a.applyTask(ctx, log, p, days, taskmap, it.Task(), today)
		if err != nil {
			return err
		}
		if itemFailed {
			failed = true
		}
	}
	if err := it.Err(); err != nil {
		log.Error().Err(err).Msg("listing tasks failed")
		return ErrPartial
	}

	if failed {
		// Leave the watermark where it is so failed items are retried.
		return ErrPartial
	}
	return a.advanceWatermark(ctx, p)
}

// applyTask reconciles a single updated task with the TODO event of its due
// day, keeping the invariant that a live task has exactly one status line
// anywhere and a dead one has none.
func (a *Aggregator) applyTask(ctx context.Context, log zerolog.Logger, p internal.Profile, days, taskmap map[string]string, t *internal.Task, today internal.Date) (failed bool, err error) {
	eligible := a.eligible(t, today, p)
	var dayKey string
	if !t.DueAt.IsZero() {
		dayKey = t.DueDay(p.Location).Key()
	}

	// Detach the task from an event that no longer carries it: the task
	// was deleted, fell out of the window, or moved to another day.
	if prevID, ok := taskmap[t.ID]; ok && (!eligible || days[dayKey] != prevID) {
		itemFailed, err := a.removeLine(ctx, log, p, days, prevID, t.Title)
		if err != nil || itemFailed {
			return itemFailed, err
		}
		delete(taskmap, t.ID)
		if err := a.store.Put(ctx, p.Name, internal.TableTasks, taskmap); err != nil {
			return false, err
		}
	}
	if !eligible {
		return false, nil
	}

	eventID, dayMapped := days[dayKey]
	if !dayMapped {
		return a.createDay(ctx, log, p, days, taskmap, t, dayKey)
	}

	ev, gerr := a.events.Event(ctx, p.DestinationCalendarID, eventID)
	if errors.Is(gerr, internal.ErrNotFound) {
		// Dangling day mapping (deleted remotely, or crash between the
		// remote delete and the mapping write): repair by re-creating.
		delete(days, dayKey)
		if err := a.store.Put(ctx, p.Name, internal.TableDays, days); err != nil {
			return false, err
		}
		return a.createDay(ctx, log, p, days, taskmap, t, dayKey)
	}
	if gerr != nil {
		log.Error().Err(gerr).Str("task", t.ID).Str("op", "get").Msg("todo mutation failed")
		return true, nil
	}

	lines := splitLines(ev.Description)
	lines = removeTaskLine(lines, t.Title)
	lines = append(lines, statusLine(t))

	patch := &internal.Event{
		Summary:     ev.Summary,
		Description: joinLines(lines),
		StartsAt:    ev.StartsAt,
		EndsAt:      ev.EndsAt,
		Status:      internal.EventConfirmed,
	}
	if perr := a.events.Patch(ctx, p.DestinationCalendarID, eventID, patch); perr != nil {
		log.Error().Err(perr).Str("task", t.ID).Str("op", "patch").Msg("todo mutation failed")
		return true, nil
	}

	taskmap[t.ID] = eventID
	return false, a.store.Put(ctx, p.Name, internal.TableTasks, taskmap)
}

func (a *Aggregator) createDay(ctx context.Context, log zerolog.Logger, p internal.Profile, days, taskmap map[string]string, t *internal.Task, dayKey string) (failed bool, err error) {
	day, err := internal.ParseDay(dayKey, p.Location)
	if err != nil {
		return false, err
	}

	id, ierr := a.events.Insert(ctx, p.DestinationCalendarID, todoEvent(day, []string{statusLine(t)}))
	if ierr != nil {
		log.Error().Err(ierr).Str("task", t.ID).Str("op", "insert").Msg("todo mutation failed")
		return true, nil
	}
	days[dayKey] = id
	if err := a.store.Put(ctx, p.Name, internal.TableDays, days); err != nil {
		return false, err
	}
	taskmap[t.ID] = id
	return false, a.store.Put(ctx, p.Name, internal.TableTasks, taskmap)
}

// removeLine strips the task's line from the event it used to live on. An
// event left with no lines is deleted together with its day entry.
func (a *Aggregator) removeLine(ctx context.Context, log zerolog.Logger, p internal.Profile, days map[string]string, eventID, title string) (failed bool, err error) {
	ev, gerr := a.events.Event(ctx, p.DestinationCalendarID, eventID)
	if errors.Is(gerr, internal.ErrNotFound) {
		// Already gone remotely; just clean up any day entry pointing at it.
		return false, a.dropDayFor(ctx, p, days, eventID)
	}
	if gerr != nil {
		log.Error().Err(gerr).Str("event", eventID).Str("op", "get").Msg("todo mutation failed")
		return true, nil
	}

	lines := removeTaskLine(splitLines(ev.Description), title)
	if len(lines) == 0 {
		if _, derr := a.events.Delete(ctx, p.DestinationCalendarID, eventID); derr != nil {
			log.Error().Err(derr).Str("event", eventID).Str("op", "delete").Msg("todo mutation failed")
			return true, nil
		}
		return false, a.dropDayFor(ctx, p, days, eventID)
	}

	patch := &internal.Event{
		Summary:     ev.Summary,
		Description: joinLines(lines),
		StartsAt:    ev.StartsAt,
		EndsAt:      ev.EndsAt,
		Status:      internal.EventConfirmed,
	}
	if perr := a.events.Patch(ctx, p.DestinationCalendarID, eventID, patch); perr != nil {
		log.Error().Err(perr).Str("event", eventID).Str("op", "patch").Msg("todo mutation failed")
		return true, nil
	}
	return false, nil
}

func (a *Aggregator) dropDayFor(ctx context.Context, p internal.Profile, days map[string]string, eventID string) error {
	for key, id := range days {
		if id == eventID {
			delete(days, key)
			return a.store.Put(ctx, p.Name, internal.TableDays, days)
		}
	}
	return nil
}

func (a *Aggregator) advanceWatermark(ctx context.Context, p internal.Profile) error {
	watermarks, err := a.store.Get(ctx, p.Name, internal.TableWatermarks)
	if err != nil {
		return err
	}
	watermarks[p.TaskListID] = a.now().UTC().Format(time.RFC3339)
	return a.store.Put(ctx, p.Name, internal.TableWatermarks, watermarks)
}
