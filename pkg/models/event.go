package models

import (
	"sort"
	"time"
)

const (
	// MaxReminderSlots bounds the number of original reminder offsets kept per event.
	// Orphan cleanup enumerates exactly this many Original kinds.
	MaxReminderSlots = 10

	// DefaultReminderOffset is injected when the source reports no reminders.
	DefaultReminderOffset = 1
)

// CalendarEvent is an immutable snapshot of one event (or one occurrence of a recurring event)
type CalendarEvent struct {
	ID              string    // Stable ID (iCal UID, or UID@start for recurring instances)
	Title           string    // Event title/summary
	StartTime       time.Time // Event start time
	EndTime         time.Time // Event end time
	ReminderOffsets []int     // Minutes before start, see Normalize
	CalendarID      string    // ID of the iCal source this event came from
	CalendarName    string    // Display name of the iCal source
	Status          string    // Event status (CONFIRMED, CANCELLED, NEEDS-ACTION)
}

// CalendarInfo describes one configured calendar as seen by the diagnostic enumeration
type CalendarInfo struct {
	ID         string
	Name       string
	URL        string // redacted
	EventCount int
	Reachable  bool
	Error      string
}

// Normalize returns a copy of the event whose ReminderOffsets are non-negative, unique,
// sorted descending (earliest alarm first) and capped at MaxReminderSlots.
// An event without usable offsets gets DefaultReminderOffset.
func (e CalendarEvent) Normalize() CalendarEvent {
	seen := make(map[int]bool, len(e.ReminderOffsets))
	offsets := make([]int, 0, len(e.ReminderOffsets))
	for _, m := range e.ReminderOffsets {
		if m < 0 || seen[m] {
			continue
		}
		seen[m] = true
		offsets = append(offsets, m)
	}

	sort.Sort(sort.Reverse(sort.IntSlice(offsets)))

	if len(offsets) > MaxReminderSlots {
		offsets = offsets[:MaxReminderSlots]
	}
	if len(offsets) == 0 {
		offsets = []int{DefaultReminderOffset}
	}

	e.ReminderOffsets = offsets
	return e
}

// HasOffset reports whether minutes is one of the event's reminder offsets
func (e CalendarEvent) HasOffset(minutes int) bool {
	for _, m := range e.ReminderOffsets {
		if m == minutes {
			return true
		}
	}
	return false
}

// EventIDs returns the IDs of events in order
func EventIDs(events []CalendarEvent) []string {
	ids := make([]string, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	return ids
}
