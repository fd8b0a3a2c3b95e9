package internal

import (
	"strings"
	"time"
)

// Profile is one mirroring unit: a set of source calendars feeding a single
// destination calendar, with calendar names already resolved to ids.
// Profiles are processed one at a time.
type Profile struct {
	Name                  string
	SourceCalendarIDs     []string
	DestinationCalendarID string
	// TaskListID is empty when the profile does not aggregate tasks.
	TaskListID string
	// TitleBlocklist holds event summaries that are never mirrored.
	TitleBlocklist []string
	// Location is the destination timezone used for all day bucketing.
	Location *time.Location
}

func (p Profile) Blocked(summary string) bool {
	for _, t := range p.TitleBlocklist {
		if strings.EqualFold(t, summary) {
			return true
		}
	}
	return false
}
