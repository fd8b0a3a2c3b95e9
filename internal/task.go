package internal

import "time"

// Task is an entry from the remote task list. Tasks are aggregated into one
// TODO event per due day on the destination calendar.
type Task struct {
	ID        string
	ListID    string
	Title     string
	Notes     string
	DueAt     time.Time
	UpdatedAt time.Time
	Status    TaskStatus
	Deleted   bool
}

func (t Task) Completed() bool {
	return t.Status == TaskCompleted
}

// DueDay returns the task's due date as a civil day in loc. The remote
// service reports due dates as date-only instants at UTC midnight, so the
// UTC calendar date is the meaningful part, not the local wall time.
func (t Task) DueDay(loc *time.Location) Date {
	d := t.DueAt.UTC()
	return NewDate(d.Year(), d.Month(), d.Day(), loc)
}

type TaskStatus string

func (s TaskStatus) String() string {
	return string(s)
}

var (
	TaskNeedsAction TaskStatus = "needsAction"
	TaskCompleted   TaskStatus = "completed"
)
