package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// KindType tags which role an alarm registration plays for its event
type KindType uint8

const (
	KindOriginal KindType = iota + 1 // One per calendar-set reminder offset
	KindFinal                        // The app-injected final reminder
	KindSnooze                       // A user-requested snooze
)

// AlarmKind distinguishes the registrations belonging to one event.
// It is comparable and used as part of AlarmKey.
type AlarmKind struct {
	Type  KindType
	Index int // Only meaningful for KindOriginal
}

var (
	// FinalReminder is the kind of the app-injected final reminder
	FinalReminder = AlarmKind{Type: KindFinal}
	// Snooze is the kind of a snoozed re-alert
	Snooze = AlarmKind{Type: KindSnooze}
)

// Original returns the kind for the n-th original reminder offset
func Original(n int) AlarmKind {
	return AlarmKind{Type: KindOriginal, Index: n}
}

// PossibleKinds enumerates every kind that may ever have been registered for an event
func PossibleKinds() []AlarmKind {
	kinds := make([]AlarmKind, 0, MaxReminderSlots+2)
	for i := 0; i < MaxReminderSlots; i++ {
		kinds = append(kinds, Original(i))
	}
	return append(kinds, FinalReminder, Snooze)
}

func (k AlarmKind) String() string {
	switch k.Type {
	case KindOriginal:
		return fmt.Sprintf("original[%d]", k.Index)
	case KindFinal:
		return "final"
	case KindSnooze:
		return "snooze"
	default:
		return "unknown"
	}
}

// Label is the human readable description shown next to a pending alarm
func (k AlarmKind) Label() string {
	switch k.Type {
	case KindFinal:
		return "Final reminder"
	case KindSnooze:
		return "Snoozed"
	default:
		return "Reminder"
	}
}

// ParseAlarmKind is the inverse of AlarmKind.String
func ParseAlarmKind(s string) (AlarmKind, error) {
	switch s {
	case "final":
		return FinalReminder, nil
	case "snooze":
		return Snooze, nil
	}
	if strings.HasPrefix(s, "original[") && strings.HasSuffix(s, "]") {
		n, err := strconv.Atoi(s[len("original[") : len(s)-1])
		if err == nil && n >= 0 {
			return Original(n), nil
		}
	}
	return AlarmKind{}, fmt.Errorf("invalid alarm kind %q", s)
}

// AlarmKey is the deterministic identifier of a timer registration.
// Two keys are equal exactly when event ID and kind are equal.
type AlarmKey struct {
	EventID string
	Kind    AlarmKind
}

func (k AlarmKey) String() string {
	return k.EventID + "/" + k.Kind.String()
}

// RequiredAlarm is an alarm an event needs, derived from its offsets and the final-reminder setting
type RequiredAlarm struct {
	Key           AlarmKey
	FireTime      time.Time
	OffsetMinutes int
}

// AlarmPayload travels with a timer registration and is handed back on delivery
type AlarmPayload struct {
	Title        string
	StartTime    time.Time
	CalendarName string
}

// PendingAlarm is an alarm that fired and has not been acknowledged yet
type PendingAlarm struct {
	EventID      string
	Title        string
	StartTime    time.Time
	Kind         AlarmKind
	CalendarName string
	EnqueuedAt   time.Time
	DeliveryID   string // Unique per delivery (UUID), for logs and UI rows
}

// Key returns the queue key of the pending alarm
func (p PendingAlarm) Key() AlarmKey {
	return AlarmKey{EventID: p.EventID, Kind: p.Kind}
}

