package google

import (
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/tasks/v1"

	"calmirror/internal"
)

func newEvent(calendarID string, event *calendar.Event) *internal.Event {
	if event.Status == internal.EventCancelled.String() {
		// Cancelled events arrive as tombstones carrying only an id.
		return &internal.Event{
			ID:         event.Id,
			CalendarID: calendarID,
			Status:     internal.EventCancelled,
		}
	}

	return &internal.Event{
		ID:          event.Id,
		CalendarID:  calendarID,
		Summary:     event.Summary,
		Description: event.Description,
		StartsAt:    parseEventTime(event.Start),
		EndsAt:      parseEventTime(event.End),
		Status:      internal.EventStatus(event.Status),
	}
}

// parseEventTime handles both timed events (DateTime) and all-day events
// (Date, midnight UTC).
func parseEventTime(t *calendar.EventDateTime) time.Time {
	if t == nil {
		return time.Time{}
	}
	if t.DateTime != "" {
		parsed, _ := time.Parse(time.RFC3339, t.DateTime)
		return parsed
	}
	parsed, _ := time.Parse(internal.DateFormat, t.Date)
	return parsed
}

func newGoogleEvent(event *internal.Event) *calendar.Event {
	return &calendar.Event{
		Summary:     event.Summary,
		Description: event.Description,
		Start: &calendar.EventDateTime{
			DateTime: event.StartsAt.Format(time.RFC3339),
		},
		End: &calendar.EventDateTime{
			DateTime: event.EndsAt.Format(time.RFC3339),
		},
		Reminders: &calendar.EventReminders{
			UseDefault: true,
		},
	}
}

func newTask(listID string, task *tasks.Task) *internal.Task {
	dueAt, _ := time.Parse(time.RFC3339, task.Due)
	updatedAt, _ := time.Parse(time.RFC3339, task.Updated)
	return &internal.Task{
		ID:        task.Id,
		ListID:    listID,
		Title:     task.Title,
		Notes:     task.Notes,
		DueAt:     dueAt,
		UpdatedAt: updatedAt,
		Status:    internal.TaskStatus(task.Status),
		Deleted:   task.Deleted,
	}
}
