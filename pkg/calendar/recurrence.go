package calendar

import (
	"log/slog"
	"time"

	"github.com/teambition/rrule-go"
)

// maxOccurrencesPerEvent caps expansion of unbounded rules
const maxOccurrencesPerEvent = 1000

// expandEvents turns base events and their RECURRENCE-ID overrides into concrete
// instances overlapping [from, to). Recurring instances get the ID UID@start (UTC),
// where start is the original occurrence time so a moved instance keeps its ID.
func expandEvents(parsed []parsedEvent, from, to time.Time, logger *slog.Logger) []parsedEvent {
	overrides := make(map[string][]parsedEvent)
	var bases []parsedEvent
	for _, ev := range parsed {
		if ev.isOverride() && ev.UID != "" {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
			continue
		}
		bases = append(bases, ev)
	}

	used := make(map[string]bool)
	var out []parsedEvent
	for _, ev := range bases {
		if ev.RRule == "" || ev.StartTime.IsZero() {
			out = append(out, ev)
			continue
		}
		out = append(out, expandRecurringEvent(ev, overrides[ev.UID], from, to, used, logger)...)
	}

	// Overrides whose original slot fell outside the window may have moved into it
	for uid, list := range overrides {
		for _, ov := range list {
			id := instanceID(uid, ov.RecurrenceID)
			if used[id] {
				continue
			}
			ov.ID = id
			out = append(out, ov)
		}
	}

	return out
}

func expandRecurringEvent(ev parsedEvent, overrides []parsedEvent, from, to time.Time, used map[string]bool, logger *slog.Logger) []parsedEvent {
	r, err := rrule.StrToRRule(ev.RRule)
	if err != nil {
		logger.Warn("[RECURRING] failed to parse RRULE", "title", ev.Title, "uid", ev.UID, "rrule", ev.RRule, "error", err)
		return nil
	}
	r.DTStart(ev.StartTime)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.StartTime.Location()))
	}

	duration := ev.EndTime.Sub(ev.StartTime)
	if duration < 0 {
		duration = 0
	}

	// Occurrences that already started but have not ended still overlap the window
	starts := set.Between(from.Add(-duration).In(ev.StartTime.Location()), to.In(ev.StartTime.Location()), true)
	if len(starts) > maxOccurrencesPerEvent {
		logger.Warn("[RECURRING] occurrence cap reached", "title", ev.Title, "uid", ev.UID, "cap", maxOccurrencesPerEvent)
		starts = starts[:maxOccurrencesPerEvent]
	}

	instances := make([]parsedEvent, 0, len(starts))
	for _, start := range starts {
		id := instanceID(ev.UID, start)

		instance := ev
		instance.RRule = ""
		instance.ExDates = nil
		instance.StartTime = start
		instance.EndTime = start.Add(duration)

		if ov, ok := findOverride(overrides, start); ok {
			instance = ov
			used[id] = true
		}
		instance.ID = id
		instances = append(instances, instance)
	}

	logger.Debug("[RECURRING] expanded", "title", ev.Title, "rrule", ev.RRule, "instances", len(instances))
	return instances
}

func findOverride(overrides []parsedEvent, start time.Time) (parsedEvent, bool) {
	for _, ov := range overrides {
		if ov.RecurrenceID.Equal(start) {
			return ov, true
		}
	}
	return parsedEvent{}, false
}

func instanceID(uid string, start time.Time) string {
	return uid + "@" + start.UTC().Format(time.RFC3339)
}
