// Package syncer holds the reconciliation engine: the event reconciler,
// the task aggregator and the pruning sweeper, driven once per run per
// profile by the engine.
package syncer

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"calmirror/internal"
)

// ErrPartial means some items could not be processed; every one of them has
// been logged with enough context to replay it. The run itself carried on.
var ErrPartial = errors.New("syncer: completed with errors, check the logs")

// Reconciler keeps the destination's 1:1 event mirrors in step with the
// source calendars, fetching incrementally through sync tokens where
// possible.
type Reconciler struct {
	gw    internal.EventGateway
	store internal.Store
	log   zerolog.Logger
	now   func() time.Time
}

func NewReconciler(gw internal.EventGateway, store internal.Store, log zerolog.Logger) *Reconciler {
	return &Reconciler{
		gw:    gw,
		store: store,
		log:   log.With().Str("component", "reconciler").Logger(),
		now:   time.Now,
	}
}

func (r *Reconciler) Run(ctx context.Context, p internal.Profile) error {
	tokens, err := r.store.Get(ctx, p.Name, internal.TableTokens)
	if err != nil {
		return err
	}

	var partial bool
	for _, calID := range p.SourceCalendarIDs {
		if err := ctx.Err(); err != nil {
			return err
		}

		log := r.log.With().Str("profile", p.Name).Str("calendar", calID).Logger()
		err := r.syncCalendar(ctx, log, p, calID, tokens)
		if errors.Is(err, internal.ErrTokenExpired) {
			log.Warn().Msg("sync token expired, running full resync")
			err = r.resync(ctx, log, p, calID, tokens)
		}
		switch {
		case err == nil:
		case errors.Is(err, ErrPartial):
			partial = true
		default:
			return err
		}
	}
	if partial {
		return ErrPartial
	}
	return nil
}

func (r *Reconciler) syncCalendar(ctx context.Context, log zerolog.Logger, p internal.Profile, calID string, tokens map[string]string) error {
	today := internal.DayOf(r.now(), p.Location)
	token := tokens[calID]
	full := token == ""

	var (
		it  internal.EventIterator
		err error
	)
	if full {
		it, err = r.gw.Events(ctx, calID, today)
	} else {
		it, err = r.gw.Changes(ctx, calID, token)
	}
	if err != nil {
		return err
	}

	mapping, err := r.store.Get(ctx, p.Name, internal.TableEvents)
	if err != nil {
		return err
	}

	var itemErrs bool
	for it.Next() {
		failed, err := r.apply(ctx, log, p, mapping, it.Event(), full, today)
		if err != nil {
			return err
		}
		if failed {
			itemErrs = true
		}
	}
	if err := it.Err(); err != nil {
		if errors.Is(err, internal.ErrTokenExpired) {
			return err
		}
		log.Error().Err(err).Msg("listing events failed")
		return ErrPartial
	}

	if tok := it.SyncToken(); tok != "" && tok != token {
		tokens[calID] = tok
		if err := r.store.Put(ctx, p.Name, internal.TableTokens, tokens); err != nil {
			return err
		}
	}
	if itemErrs {
		return ErrPartial
	}
	return nil
}

// apply handles one fetched source event. A remote mutation failure marks
// the item failed and the run moves on; only persistence failures are
// returned, those abort the run.
func (r *Reconciler) apply(ctx context.Context, log zerolog.Logger, p internal.Profile, mapping map[string]string, ev *internal.Event, full bool, today internal.Date) (failed bool, err error) {
	mirrorID, mapped := mapping[ev.ID]

	switch {
	case ev.Status == internal.EventCancelled:
		if !mapped {
			return false, nil
		}
		// Upstream deletion: drop the mirror, then the mapping entry.
		// AlreadyAbsent counts as deleted.
		if _, derr := r.gw.Delete(ctx, p.DestinationCalendarID, mirrorID); derr != nil {
			log.Error().Err(derr).Str("source_event", ev.ID).Str("op", "delete").Msg("mirror mutation failed")
			return true, nil
		}
		delete(mapping, ev.ID)
		return false, r.store.Put(ctx, p.Name, internal.TableEvents, mapping)

	case !mapped:
		if p.Blocked(ev.Summary) {
			return false, nil
		}
		if full && internal.DayOf(ev.EndsAt, p.Location).Before(today) {
			// Full enumerations never mirror past events.
			return false, nil
		}
		id, ierr := r.gw.Insert(ctx, p.DestinationCalendarID, ev.Mirror())
		if ierr != nil {
			log.Error().Err(ierr).Str("source_event", ev.ID).Str("op", "insert").Msg("mirror mutation failed")
			return true, nil
		}
		mapping[ev.ID] = id
		return false, r.store.Put(ctx, p.Name, internal.TableEvents, mapping)

	default:
		if p.Blocked(ev.Summary) {
			// A title blocklisted after its event was mirrored: treat
			// like an upstream deletion.
			if _, derr := r.gw.Delete(ctx, p.DestinationCalendarID, mirrorID); derr != nil {
				log.Error().Err(derr).Str("source_event", ev.ID).Str("op", "delete").Msg("mirror mutation failed")
				return true, nil
			}
			delete(mapping, ev.ID)
			return false, r.store.Put(ctx, p.Name, internal.TableEvents, mapping)
		}
		// The delta already implies a change, patch unconditionally.
		if perr := r.gw.Patch(ctx, p.DestinationCalendarID, mirrorID, ev.Mirror()); perr != nil {
			log.Error().Err(perr).Str("source_event", ev.ID).Str("op", "patch").Msg("mirror mutation failed")
			return true, nil
		}
		return false, nil
	}
}

// resync recovers from an expired sync token. The token gap makes existing
// mirrors ambiguous, so every mirror referenced by the fresh enumeration is
// dropped and recreated, and only then is a new token trusted.
func (r *Reconciler) resync(ctx context.Context, log zerolog.Logger, p internal.Profile, calID string, tokens map[string]string) error {
	delete(tokens, calID)
	if err := r.store.Put(ctx, p.Name, internal.TableTokens, tokens); err != nil {
		return err
	}

	today := internal.DayOf(r.now(), p.Location)
	it, err := r.gw.Events(ctx, calID, today)
	if err != nil {
		return err
	}

	var fresh []*internal.Event
	for it.Next() {
		ev := it.Event()
		if ev.Status == internal.EventCancelled || p.Blocked(ev.Summary) {
			continue
		}
		if internal.DayOf(ev.EndsAt, p.Location).Before(today) {
			continue
		}
		fresh = append(fresh, ev)
	}
	if err := it.Err(); err != nil {
		return err
	}

	mapping, err := r.store.Get(ctx, p.Name, internal.TableEvents)
	if err != nil {
		return err
	}

	var failed bool
	for _, ev := range fresh {
		mirrorID, ok := mapping[ev.ID]
		if !ok {
			continue
		}
		if _, derr := r.gw.Delete(ctx, p.DestinationCalendarID, mirrorID); derr != nil {
			log.Error().Err(derr).Str("source_event", ev.ID).Str("op", "delete").Msg("resync mutation failed")
			failed = true
			continue
		}
		delete(mapping, ev.ID)
		if err := r.store.Put(ctx, p.Name, internal.TableEvents, mapping); err != nil {
			return err
		}
	}
	for _, ev := range fresh {
		if _, ok := mapping[ev.ID]; ok {
			// delete failed above, leave it for the next run
			continue
		}
		id, ierr := r.gw.Insert(ctx, p.DestinationCalendarID, ev.Mirror())
		if ierr != nil {
			log.Error().Err(ierr).Str("source_event", ev.ID).Str("op", "insert").Msg("resync mutation failed")
			failed = true
			continue
		}
		mapping[ev.ID] = id
		if err := r.store.Put(ctx, p.Name, internal.TableEvents, mapping); err != nil {
			return err
		}
	}

	if tok := it.SyncToken(); tok != "" {
		tokens[calID] = tok
		if err := r.store.Put(ctx, p.Name, internal.TableTokens, tokens); err != nil {
			return err
		}
	}
	if failed {
		return ErrPartial
	}
	log.Info().Int("events", len(fresh)).Msg("full resync complete")
	return nil
}
