package syncer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calmirror/internal"
)

func TestStatusLine(t *testing.T) {
	assert.Equal(t, "❌ Essay", statusLine(task("t1", "Essay", dueOn(10), internal.TaskNeedsAction)))
	assert.Equal(t, "✅ Essay", statusLine(task("t1", "Essay", dueOn(10), internal.TaskCompleted)))
}

func TestLineTitle(t *testing.T) {
	assert.Equal(t, "Essay", lineTitle("❌ Essay"))
	assert.Equal(t, "Essay", lineTitle("✅ Essay"))
	assert.Equal(t, "Essay", lineTitle("Essay"))
	assert.Equal(t, "Buy ✅ stickers", lineTitle("❌ Buy ✅ stickers"))
}

func TestRemoveTaskLine(t *testing.T) {
	lines := []string{"❌ Essay", "✅ Laundry", "❌ Groceries"}

	got := removeTaskLine(lines, "Laundry")
	assert.Equal(t, []string{"❌ Essay", "❌ Groceries"}, got)

	// No match leaves the slice alone.
	assert.Equal(t, lines, removeTaskLine(lines, "Dishes"))
}

func TestSplitLinesDropsBlanks(t *testing.T) {
	assert.Equal(t, []string{"❌ Essay", "✅ Laundry"}, splitLines("❌ Essay\n\n✅ Laundry\n"))
	assert.Nil(t, splitLines(""))
}

func TestTodoEventWindow(t *testing.T) {
	p := testProfile(t)
	day, err := internal.ParseDay("2025-01-10", p.Location)
	require.NoError(t, err)

	ev := todoEvent(day, []string{"❌ Essay"})
	assert.Equal(t, "TODO", ev.Summary)
	assert.Equal(t, "❌ Essay", ev.Description)
	assert.Equal(t, day.At(6, 0), ev.StartsAt)
	assert.Equal(t, day.At(6, 30), ev.EndsAt)
}

func TestAcquireLock(t *testing.T) {
	path := t.TempDir() + "/run.lock"

	release, err := AcquireLock(path)
	require.NoError(t, err)

	_, err = AcquireLock(path)
	assert.ErrorContains(t, err, "another run is in progress")

	release()
	release2, err := AcquireLock(path)
	require.NoError(t, err)
	release2()
}
