package store_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calmirror/internal/store"
)

func newSQLite(t *testing.T) *store.SQLite {
	t.Helper()
	db, err := sql.Open(store.DriverName, filepath.Join(t.TempDir(), "mappings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return store.NewSQLite(db)
}

func TestSQLiteGetAbsentIsEmpty(t *testing.T) {
	s := newSQLite(t)

	m, err := s.Get(context.Background(), "journey", "events")
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestSQLitePutReplacesWholeTable(t *testing.T) {
	ctx := context.Background()
	s := newSQLite(t)

	require.NoError(t, s.Put(ctx, "journey", "events", map[string]string{"a": "1", "b": "2"}))
	require.NoError(t, s.Put(ctx, "journey", "events", map[string]string{"b": "20"}))

	m, err := s.Get(ctx, "journey", "events")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"b": "20"}, m)
}

func TestSQLiteTablesAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := newSQLite(t)

	require.NoError(t, s.Put(ctx, "journey", "events", map[string]string{"a": "1"}))
	require.NoError(t, s.Put(ctx, "journey", "tokens", map[string]string{"cal": "tok"}))
	require.NoError(t, s.Put(ctx, "mollee", "events", map[string]string{"x": "9"}))

	m, err := s.Get(ctx, "journey", "events")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1"}, m)
}

func TestSQLiteDeleteKey(t *testing.T) {
	ctx := context.Background()
	s := newSQLite(t)

	require.NoError(t, s.Put(ctx, "journey", "tasks", map[string]string{"t1": "e1", "t2": "e1"}))
	require.NoError(t, s.DeleteKey(ctx, "journey", "tasks", "t1"))
	require.NoError(t, s.DeleteKey(ctx, "journey", "tasks", "missing"))

	m, err := s.Get(ctx, "journey", "tasks")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"t2": "e1"}, m)
}
