package internal

import "context"

// Mapping tables kept per profile. Each table is a flat string-to-string
// map replaced wholesale on write.
const (
	// TableEvents maps source event id to mirror event id.
	TableEvents = "events"
	// TableTokens maps source calendar id to its sync token.
	TableTokens = "tokens"
	// TableDays maps a day key (internal.Date().Key) to the TODO event id.
	TableDays = "days"
	// TableTasks maps task id to the TODO event id carrying its line.
	TableTasks = "tasks"
	// TableWatermarks maps task list id to the RFC3339 instant of the last
	// successful task pass.
	TableWatermarks = "watermarks"
)

// Store persists the mapping tables. Get returns an empty map, not an
// error, when nothing has been written yet. Put replaces the whole table.
// There is no isolation between concurrent writers; runs for the same
// profile must be serialized externally.
type Store interface {
	Get(ctx context.Context, profile, table string) (map[string]string, error)
	Put(ctx context.Context, profile, table string, m map[string]string) error
	DeleteKey(ctx context.Context, profile, table, key string) error
}
