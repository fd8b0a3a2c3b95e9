package internal

import "time"

// Event is a calendar event as seen through the gateway. Source events are
// read-only from the engine's perspective; mirror events are owned by the
// engine and never edited by hand on the destination side.
type Event struct {
	ID          string
	CalendarID  string
	Summary     string
	Description string
	StartsAt    time.Time
	EndsAt      time.Time
	Status      EventStatus
}

// Mirror returns the event as it should exist on the destination calendar:
// same summary, times and description, no identity.
func (e Event) Mirror() *Event {
	return &Event{
		Summary:     e.Summary,
		Description: e.Description,
		StartsAt:    e.StartsAt,
		EndsAt:      e.EndsAt,
		Status:      EventConfirmed,
	}
}

type EventStatus string

func (s EventStatus) String() string {
	return string(s)
}

var (
	EventConfirmed EventStatus = "confirmed"
	EventTentative EventStatus = "tentative"
	EventCancelled EventStatus = "cancelled"
)
