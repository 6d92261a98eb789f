package store

import (
	"fyne.io/fyne/v2"
)

const (
	prefFinalReminderOffset = "final_reminder_offset_minutes"
	prefSnoozeTime          = "snooze_time"
	prefHoldTimeSeconds     = "hold_time_seconds"

	DefaultFinalReminderOffset = 1
	DefaultSnoozeMinutes       = 5
	DefaultHoldTimeSeconds     = 2
)

// Settings are the user-tunable reminder preferences, stored in fyne Preferences
type Settings struct {
	prefs fyne.Preferences
}

// NewSettings creates a Settings instance
func NewSettings(app fyne.App) *Settings {
	return &Settings{prefs: app.Preferences()}
}

// FinalReminderOffsetMinutes is how long before start the final reminder fires
func (s *Settings) FinalReminderOffsetMinutes() int {
	v := s.prefs.IntWithFallback(prefFinalReminderOffset, DefaultFinalReminderOffset)
	if v < 0 {
		return DefaultFinalReminderOffset
	}
	return v
}

func (s *Settings) SetFinalReminderOffsetMinutes(minutes int) {
	s.prefs.SetInt(prefFinalReminderOffset, minutes)
}

// SnoozeMinutes is the snooze length offered on the reminder window
func (s *Settings) SnoozeMinutes() int {
	v := s.prefs.IntWithFallback(prefSnoozeTime, DefaultSnoozeMinutes)
	if v <= 0 {
		return DefaultSnoozeMinutes
	}
	return v
}

func (s *Settings) SetSnoozeMinutes(minutes int) {
	s.prefs.SetInt(prefSnoozeTime, minutes)
}

// HoldTimeSeconds is how long the snooze and dismiss buttons must be held
func (s *Settings) HoldTimeSeconds() int {
	v := s.prefs.IntWithFallback(prefHoldTimeSeconds, DefaultHoldTimeSeconds)
	if v < 0 {
		return DefaultHoldTimeSeconds
	}
	return v
}

func (s *Settings) SetHoldTimeSeconds(seconds int) {
	s.prefs.SetInt(prefHoldTimeSeconds, seconds)
}
