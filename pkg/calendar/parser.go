package calendar

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/borgmon/remindkeeper/pkg/models"
	"github.com/emersion/go-ical"
)

var cancelledTitle = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// parsedEvent is a VEVENT before recurrence expansion
type parsedEvent struct {
	models.CalendarEvent

	UID          string
	RRule        string
	ExDates      []time.Time
	RecurrenceID time.Time // set on overrides of a single occurrence
	AllDay       bool
}

func (p parsedEvent) isOverride() bool {
	return !p.RecurrenceID.IsZero()
}

func parseEvent(comp *ical.Component) parsedEvent {
	normalizeComponentTimezones(comp)
	loc := getTimezoneFromComponent(comp)

	event := parsedEvent{}

	if uidProp := comp.Props.Get(ical.PropUID); uidProp != nil {
		event.UID = uidProp.Value
		event.ID = uidProp.Value
	}

	if summaryProp := comp.Props.Get(ical.PropSummary); summaryProp != nil {
		event.Title = summaryProp.Value
	}

	if startProp := comp.Props.Get(ical.PropDateTimeStart); startProp != nil {
		if t, err := parseDateTimeProperty(startProp, loc); err == nil {
			event.StartTime = t
		}
		event.AllDay = isDateValue(startProp)
	}

	if endProp := comp.Props.Get(ical.PropDateTimeEnd); endProp != nil {
		if t, err := parseDateTimeProperty(endProp, loc); err == nil {
			event.EndTime = t
		}
	} else if durProp := comp.Props.Get(ical.PropDuration); durProp != nil && !event.StartTime.IsZero() {
		if d, err := durProp.Duration(); err == nil {
			event.EndTime = event.StartTime.Add(d)
		}
	} else if event.AllDay && !event.StartTime.IsZero() {
		event.EndTime = event.StartTime.AddDate(0, 0, 1)
	}

	if statusProp := comp.Props.Get(ical.PropStatus); statusProp != nil {
		event.Status = strings.ToUpper(statusProp.Value)
	}

	// Some servers only rename cancelled meetings instead of setting STATUS
	if event.Status != "CANCELLED" && isCancelledTitle(event.Title) {
		event.Status = "CANCELLED"
	}

	if rruleProp := comp.Props.Get(ical.PropRecurrenceRule); rruleProp != nil {
		event.RRule = rruleProp.Value
	}

	for _, exProp := range comp.Props.Values(ical.PropExceptionDates) {
		event.ExDates = append(event.ExDates, parseDateTimeList(&exProp, loc)...)
	}

	if ridProp := comp.Props.Get(ical.PropRecurrenceID); ridProp != nil {
		if t, err := parseDateTimeProperty(ridProp, loc); err == nil {
			event.RecurrenceID = t
		}
	}

	event.ReminderOffsets = parseAlarmOffsets(comp, event.StartTime, event.EndTime)

	return event
}

// parseAlarmOffsets converts the VALARM triggers of comp into minutes before start.
// Triggers after the start produce negative offsets, which normalization drops.
func parseAlarmOffsets(comp *ical.Component, start, end time.Time) []int {
	var offsets []int
	for _, child := range comp.Children {
		if child.Name != ical.CompAlarm {
			continue
		}
		trigger := child.Props.Get(ical.PropTrigger)
		if trigger == nil {
			continue
		}

		var fire time.Time
		if strings.EqualFold(trigger.Params.Get(ical.ParamValue), "DATE-TIME") {
			t, err := trigger.DateTime(time.UTC)
			if err != nil {
				continue
			}
			fire = t
		} else {
			d, err := trigger.Duration()
			if err != nil {
				continue
			}
			anchor := start
			if strings.EqualFold(trigger.Params.Get(ical.ParamRelated), "END") && !end.IsZero() {
				anchor = end
			}
			fire = anchor.Add(d)
		}
		if start.IsZero() {
			continue
		}
		offsets = append(offsets, int(math.Round(start.Sub(fire).Minutes())))
	}
	return offsets
}

func parseDateTimeProperty(prop *ical.Prop, loc *time.Location) (time.Time, error) {
	if t, err := prop.DateTime(loc); err == nil {
		return t, nil
	}

	value := prop.Value
	formats := []string{
		"20060102T150405",     // Basic format: YYYYMMDDTHHMMSS
		"20060102T150405Z",    // UTC format
		"20060102",            // DATE value
		time.RFC3339,          // Standard RFC3339
		"2006-01-02T15:04:05", // ISO 8601 without timezone
	}

	for _, format := range formats {
		if t, err := time.ParseInLocation(format, value, loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse datetime value: %s", value)
}

// parseDateTimeList parses a comma separated EXDATE/RDATE value
func parseDateTimeList(prop *ical.Prop, loc *time.Location) []time.Time {
	var out []time.Time
	for _, v := range strings.Split(prop.Value, ",") {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		single := ical.Prop{Name: prop.Name, Params: prop.Params, Value: v}
		if t, err := parseDateTimeProperty(&single, loc); err == nil {
			out = append(out, t)
		}
	}
	return out
}

func isDateValue(prop *ical.Prop) bool {
	return strings.EqualFold(prop.Params.Get(ical.ParamValue), "DATE") || len(prop.Value) == len("20060102")
}

func isCancelledTitle(title string) bool {
	clean := cancelledTitle.ReplaceAllString(strings.ToLower(title), "")
	return strings.HasPrefix(clean, "canceled") || strings.HasPrefix(clean, "cancelled")
}
