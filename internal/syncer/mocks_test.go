package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"calmirror/internal"
)

// fakeGateway is a scripted in-memory stand-in for the remote calendar and
// task services. Source calendars and task lists are fixtures; the
// destination calendar is live state mutated through Insert/Patch/Delete.
type fakeGateway struct {
	mu sync.Mutex

	// source fixtures
	sourceEvents map[string][]*internal.Event // calendarID -> full enumeration
	changes      map[string][]*internal.Event // calendarID -> incremental delta
	syncTokens   map[string]string            // calendarID -> token issued by enumerations
	expired      map[string]bool              // calendarID -> reject the next Changes call
	taskFixtures []*internal.Task

	// destination state
	dest   map[string]*internal.Event
	nextID int

	// mutation counters and fault injection
	inserts, patches, deletes int
	failInsertSummary         string
	failPatch                 bool
	failEventLookup           map[string]bool
	failTaskLookup            map[string]bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		sourceEvents:    map[string][]*internal.Event{},
		changes:         map[string][]*internal.Event{},
		syncTokens:      map[string]string{},
		expired:         map[string]bool{},
		dest:            map[string]*internal.Event{},
		failEventLookup: map[string]bool{},
		failTaskLookup:  map[string]bool{},
	}
}

func (g *fakeGateway) mutations() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inserts + g.patches + g.deletes
}

func (g *fakeGateway) Calendars(context.Context) (map[string]string, error) {
	return map[string]string{}, nil
}

func (g *fakeGateway) Events(_ context.Context, calendarID string, _ internal.Date) (internal.EventIterator, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return &sliceEventIterator{events: g.sourceEvents[calendarID], token: g.syncTokens[calendarID]}, nil
}

func (g *fakeGateway) Changes(_ context.Context, calendarID, _ string) (internal.EventIterator, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.expired[calendarID] {
		g.expired[calendarID] = false
		return &sliceEventIterator{failWith: internal.ErrTokenExpired}, nil
	}
	return &sliceEventIterator{events: g.changes[calendarID], token: g.syncTokens[calendarID]}, nil
}

func (g *fakeGateway) Event(_ context.Context, _ string, id string) (*internal.Event, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failEventLookup[id] {
		return nil, errors.New("lookup exploded")
	}
	ev, ok := g.dest[id]
	if !ok {
		return nil, internal.ErrNotFound
	}
	cp := *ev
	return &cp, nil
}

func (g *fakeGateway) Insert(_ context.Context, _ string, ev *internal.Event) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failInsertSummary != "" && ev.Summary == g.failInsertSummary {
		return "", errors.New("insert rejected")
	}
	g.nextID++
	id := fmt.Sprintf("m%d", g.nextID)
	cp := *ev
	cp.ID = id
	g.dest[id] = &cp
	g.inserts++
	return id, nil
}

func (g *fakeGateway) Patch(_ context.Context, _ string, id string, ev *internal.Event) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failPatch {
		return errors.New("patch rejected")
	}
	if _, ok := g.dest[id]; !ok {
		return errors.New("patch of missing event")
	}
	cp := *ev
	cp.ID = id
	g.dest[id] = &cp
	g.patches++
	return nil
}

func (g *fakeGateway) Delete(_ context.Context, _ string, id string) (internal.DeleteOutcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.dest[id]; !ok {
		return internal.AlreadyAbsent, nil
	}
	delete(g.dest, id)
	g.deletes++
	return internal.Deleted, nil
}

func (g *fakeGateway) Tasks(_ context.Context, _ string, updatedSince time.Time) (internal.TaskIterator, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []*internal.Task
	for _, t := range g.taskFixtures {
		if updatedSince.IsZero() || t.UpdatedAt.After(updatedSince) {
			out = append(out, t)
		}
	}
	return &sliceTaskIterator{tasks: out}, nil
}

func (g *fakeGateway) Task(_ context.Context, _ string, id string) (*internal.Task, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failTaskLookup[id] {
		return nil, errors.New("lookup exploded")
	}
	for _, t := range g.taskFixtures {
		if t.ID == id {
			cp := *t
			return &cp, nil
		}
	}
	return nil, internal.ErrNotFound
}

type sliceEventIterator struct {
	events   []*internal.Event
	i        int
	token    string
	failWith error
	failed   bool
}

func (it *sliceEventIterator) Next() bool {
	if it.failWith != nil {
		it.failed = true
		return false
	}
	if it.i >= len(it.events) {
		return false
	}
	it.i++
	return true
}

func (it *sliceEventIterator) Event() *internal.Event {
	return it.events[it.i-1]
}

func (it *sliceEventIterator) SyncToken() string {
	if it.failed {
		return ""
	}
	return it.token
}

func (it *sliceEventIterator) Err() error {
	if it.failed {
		return it.failWith
	}
	return nil
}

type sliceTaskIterator struct {
	tasks []*internal.Task
	i     int
}

func (it *sliceTaskIterator) Next() bool {
	if it.i >= len(it.tasks) {
		return false
	}
	it.i++
	return true
}

func (it *sliceTaskIterator) Task() *internal.Task {
	return it.tasks[it.i-1]
}

func (it *sliceTaskIterator) Err() error {
	return nil
}
