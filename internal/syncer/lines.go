package syncer

import (
	"strings"

	"calmirror/internal"
)

// TODO aggregate events: one per due day, summary "TODO", a fixed morning
// window, and one status line per task in the description.
const (
	todoSummary = "TODO"

	doneGlyph = "✅"
	openGlyph = "❌"

	todoStartHour = 6
	todoEndHour   = 6
	todoStartMin  = 0
	todoEndMin    = 30
)

func statusLine(t *internal.Task) string {
	if t.Completed() {
		return doneGlyph + " " + t.Title
	}
	return openGlyph + " " + t.Title
}

// lineTitle strips the status glyph prefix, leaving the task title a line
// refers to.
func lineTitle(line string) string {
	for _, glyph := range []string{doneGlyph, openGlyph} {
		if strings.HasPrefix(line, glyph) {
			return strings.TrimSpace(strings.TrimPrefix(line, glyph))
		}
	}
	return strings.TrimSpace(line)
}

func splitLines(description string) []string {
	var lines []string
	for _, line := range strings.Split(description, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// removeTaskLine drops the line referring to title, if any. At most one
// line per task exists, so the first match wins.
func removeTaskLine(lines []string, title string) []string {
	for i, line := range lines {
		if lineTitle(line) == title {
			return append(lines[:i:i], lines[i+1:]...)
		}
	}
	return lines
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}

func todoEvent(day internal.Date, lines []string) *internal.Event {
	return &internal.Event{
		Summary:     todoSummary,
		Description: joinLines(lines),
		StartsAt:    day.At(todoStartHour, todoStartMin),
		EndsAt:      day.At(todoEndHour, todoEndMin),
		Status:      internal.EventConfirmed,
	}
}
