package internal

import (
	"context"
	"errors"
	"time"
)

// ErrTokenExpired is reported by an event iterator when the remote side
// rejects the supplied sync token as stale. Every token for the affected
// calendar must be treated as stale and a full enumeration performed before
// any token is trusted again.
var ErrTokenExpired = errors.New("gateway: sync token expired")

// ErrNotFound is returned by Event and Task lookups when the item no longer
// exists remotely.
var ErrNotFound = errors.New("gateway: item not found")

// DeleteOutcome makes idempotent-delete semantics explicit: deleting an item
// that is already gone is AlreadyAbsent, not an error.
type DeleteOutcome int

const (
	Deleted DeleteOutcome = iota
	AlreadyAbsent
)

// EventGateway is the remote calendar service. Transient failures such as
// rate limits are retried inside the gateway and never surfaced.
type EventGateway interface {
	// Calendars resolves the account's calendar list to a map of
	// lower-cased calendar name to opaque calendar id.
	Calendars(context.Context) (map[string]string, error)

	// Events enumerates all events of the calendar with an end on or after
	// from. The iterator's SyncToken is valid for Changes calls that start
	// after this enumeration completes.
	Events(_ context.Context, calendarID string, from Date) (EventIterator, error)

	// Changes enumerates events changed since the enumeration that produced
	// syncToken. Cancelled events are included as deletion signals.
	Changes(_ context.Context, calendarID, syncToken string) (EventIterator, error)

	Event(_ context.Context, calendarID, id string) (*Event, error)
	Insert(_ context.Context, calendarID string, _ *Event) (string, error)
	Patch(_ context.Context, calendarID, id string, _ *Event) error
	Delete(_ context.Context, calendarID, id string) (DeleteOutcome, error)
}

// TaskGateway is the remote task service. A zero updatedSince means a full
// enumeration; otherwise only tasks updated since that instant are returned.
type TaskGateway interface {
	Tasks(_ context.Context, listID string, updatedSince time.Time) (TaskIterator, error)
	Task(_ context.Context, listID, id string) (*Task, error)
}

type EventIterator interface {
	Next() bool
	Event() *Event
	// SyncToken is the token issued by the completed enumeration. Empty
	// until the final page has been consumed.
	SyncToken() string
	Err() error
}

type TaskIterator interface {
	Next() bool
	Task() *Task
	Err() error
}
