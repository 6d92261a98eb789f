package scheduler

import (
	"context"
	"time"

	"github.com/borgmon/remindkeeper/pkg/models"
)

// EventCache is the event snapshot the engine schedules from
type EventCache interface {
	GetEvents(ctx context.Context) ([]models.CalendarEvent, error)
	Invalidate()
}

// Settings provides the user-configurable final reminder offset
type Settings interface {
	FinalReminderOffsetMinutes() int
}

// Registry persists the event IDs scheduled by the previous pass
type Registry interface {
	Load(ctx context.Context) ([]string, error)
	Save(ctx context.Context, ids []string) error
}

// Ledger optionally records the exact alarm keys registered per event, so
// cleanup is not limited to the bounded kind enumeration
type Ledger interface {
	Record(ctx context.Context, key models.AlarmKey, fireTime time.Time) error
	Remove(ctx context.Context, key models.AlarmKey) error
	Keys(ctx context.Context, eventID string) ([]models.AlarmKey, error)
	ForgetEvent(ctx context.Context, eventID string) error
}

// StaticSettings is a fixed Settings value
type StaticSettings int

func (s StaticSettings) FinalReminderOffsetMinutes() int {
	return int(s)
}
