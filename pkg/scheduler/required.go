package scheduler

import (
	"time"

	"github.com/borgmon/remindkeeper/pkg/models"
)

// RequiredAlarms derives the alarms an event needs from its normalized offsets
// and the final reminder offset. Original[n] follows the n-th offset. The final
// reminder is added only when no original offset already equals it.
func RequiredAlarms(ev models.CalendarEvent, finalOffset int) []models.RequiredAlarm {
	alarms := make([]models.RequiredAlarm, 0, len(ev.ReminderOffsets)+1)
	for i, off := range ev.ReminderOffsets {
		alarms = append(alarms, models.RequiredAlarm{
			Key:           models.AlarmKey{EventID: ev.ID, Kind: models.Original(i)},
			FireTime:      ev.StartTime.Add(-time.Duration(off) * time.Minute),
			OffsetMinutes: off,
		})
	}

	if finalOffset >= 0 && !ev.HasOffset(finalOffset) {
		alarms = append(alarms, models.RequiredAlarm{
			Key:           models.AlarmKey{EventID: ev.ID, Kind: models.FinalReminder},
			FireTime:      ev.StartTime.Add(-time.Duration(finalOffset) * time.Minute),
			OffsetMinutes: finalOffset,
		})
	}
	return alarms
}

func payloadFor(ev models.CalendarEvent) models.AlarmPayload {
	return models.AlarmPayload{
		Title:        ev.Title,
		StartTime:    ev.StartTime,
		CalendarName: ev.CalendarName,
	}
}
