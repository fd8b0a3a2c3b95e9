package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "calmirror.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFlagsDefaults(t *testing.T) {
	k, err := Load(Flags(), nil)
	require.NoError(t, err)

	assert.Equal(t, "info", k.String(LogLevel))
	assert.Equal(t, "file", k.String(StoreBackend))
	assert.Equal(t, ".calmirror", k.String(StateDir))
}

func TestLoadFlagsOverride(t *testing.T) {
	k, err := Load(Flags(), []string{"--store.backend", "sqlite", "--store.sqlite", "state.db", "--profile", "journey"})
	require.NoError(t, err)

	assert.Equal(t, "sqlite", k.String(StoreBackend))
	assert.Equal(t, "state.db", k.String(StoreSQLite))
	assert.Equal(t, "journey", k.String(ProfileName))
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
timezone: America/Phoenix
profiles:
  - name: journey
    sources: [Work, Family]
    destination: Journey
    tasklist: "@default"
    skip_titles:
      - Anniversary
  - name: mollee
    sources: [Family]
    destination: Mollee
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	require.Len(t, cfg.Profiles, 2)
	assert.Equal(t, "America/Phoenix", cfg.Timezone)
	assert.Equal(t, []string{"Work", "Family"}, cfg.Profiles[0].Sources)
	assert.Equal(t, []string{"Anniversary"}, cfg.Profiles[0].SkipTitles)
	assert.Empty(t, cfg.Profiles[1].TaskList)
}

func TestLoadFileRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", "profiles: []\n"},
		{"no name", "profiles:\n  - sources: [Work]\n    destination: Journey\n"},
		{"no sources", "profiles:\n  - name: journey\n    destination: Journey\n"},
		{"no destination", "profiles:\n  - name: journey\n    sources: [Work]\n"},
		{"duplicate", "profiles:\n  - name: journey\n    sources: [Work]\n    destination: Journey\n  - name: journey\n    sources: [Work]\n    destination: Journey\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestResolve(t *testing.T) {
	cfg := &File{
		Profiles: []ProfileSpec{{
			Name:        "journey",
			Sources:     []string{"Work"},
			Destination: "Journey",
			TaskList:    "@default",
			SkipTitles:  []string{"Anniversary"},
		}},
	}
	calendars := map[string]string{
		"work":    "work-id",
		"journey": "journey-id",
	}

	profiles, err := cfg.Resolve(calendars)
	require.NoError(t, err)

	require.Len(t, profiles, 1)
	p := profiles[0]
	assert.Equal(t, []string{"work-id"}, p.SourceCalendarIDs)
	assert.Equal(t, "journey-id", p.DestinationCalendarID)
	assert.Equal(t, "@default", p.TaskListID)
	assert.Equal(t, "America/Phoenix", p.Location.String())
	assert.True(t, p.Blocked("anniversary"))
}

func TestResolveUnknownCalendar(t *testing.T) {
	cfg := &File{
		Profiles: []ProfileSpec{{
			Name:        "journey",
			Sources:     []string{"Nope"},
			Destination: "Journey",
		}},
	}

	_, err := cfg.Resolve(map[string]string{"journey": "journey-id"})
	assert.ErrorContains(t, err, `"Nope"`)
}
