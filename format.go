package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/borgmon/remindkeeper/pkg/models"
	"github.com/borgmon/remindkeeper/pkg/timer"
)

// reminderSummary renders required alarms as "15m, 5m, final 1m"
func reminderSummary(alarms []models.RequiredAlarm) string {
	parts := make([]string, 0, len(alarms))
	for _, a := range alarms {
		if a.Key.Kind == models.FinalReminder {
			parts = append(parts, fmt.Sprintf("final %dm", a.OffsetMinutes))
			continue
		}
		parts = append(parts, fmt.Sprintf("%dm", a.OffsetMinutes))
	}
	return strings.Join(parts, ", ")
}

// upcomingToday keeps registrations firing after now and before the end of today
func upcomingToday(regs []timer.Registration, now time.Time, limit int) []timer.Registration {
	endOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).Add(24 * time.Hour)

	var out []timer.Registration
	for _, r := range regs {
		if !r.FireTime.After(now) || !r.FireTime.Before(endOfDay) {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

func trayLine(r timer.Registration) string {
	line := fmt.Sprintf("  %s - %s", r.FireTime.Local().Format("3:04 PM"), truncate(r.Payload.Title, 35))
	if r.Key.Kind == models.Snooze {
		line += " (snoozed)"
	}
	return line
}

// truncate shortens s to maxLen runes, adding "..." if needed
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
