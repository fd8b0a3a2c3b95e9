package store_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calmirror/internal/store"
)

func TestFileGetAbsentIsEmpty(t *testing.T) {
	s := store.NewFile(t.TempDir())

	m, err := s.Get(context.Background(), "journey", "events")
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestFilePutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := store.NewFile(t.TempDir())

	err := s.Put(ctx, "journey", "events", map[string]string{"src1": "dst1", "src2": "dst2"})
	require.NoError(t, err)

	m, err := s.Get(ctx, "journey", "events")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"src1": "dst1", "src2": "dst2"}, m)
}

func TestFilePutReplacesWholeTable(t *testing.T) {
	ctx := context.Background()
	s := store.NewFile(t.TempDir())

	require.NoError(t, s.Put(ctx, "journey", "events", map[string]string{"a": "1", "b": "2"}))
	require.NoError(t, s.Put(ctx, "journey", "events", map[string]string{"c": "3"}))

	m, err := s.Get(ctx, "journey", "events")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"c": "3"}, m)
}

func TestFileProfilesAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := store.NewFile(t.TempDir())

	require.NoError(t, s.Put(ctx, "journey", "events", map[string]string{"a": "1"}))

	m, err := s.Get(ctx, "mollee", "events")
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestFileDeleteKey(t *testing.T) {
	ctx := context.Background()
	s := store.NewFile(t.TempDir())

	require.NoError(t, s.Put(ctx, "journey", "tokens", map[string]string{"cal1": "tok1", "cal2": "tok2"}))
	require.NoError(t, s.DeleteKey(ctx, "journey", "tokens", "cal1"))
	// Deleting a key that is not there is a no-op.
	require.NoError(t, s.DeleteKey(ctx, "journey", "tokens", "nope"))

	m, err := s.Get(ctx, "journey", "tokens")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"cal2": "tok2"}, m)
}

func TestFileLeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := store.NewFile(dir)

	require.NoError(t, s.Put(ctx, "journey", "events", map[string]string{"a": "1"}))

	entries, err := os.ReadDir(filepath.Join(dir, "journey"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "events.json", entries[0].Name())
}
