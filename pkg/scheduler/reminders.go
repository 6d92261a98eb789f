package scheduler

import (
	"context"

	"github.com/borgmon/remindkeeper/pkg/models"
	"github.com/borgmon/remindkeeper/pkg/timer"
)

// PendingLister is implemented by facilities that can list their registrations
type PendingLister interface {
	Pending() []timer.Registration
}

// Reminders is the entry point used by the tray, the CLI and boot recovery
type Reminders struct {
	engine   *Engine
	cache    EventCache
	facility timer.Facility
}

func NewReminders(engine *Engine, cache EventCache, facility timer.Facility) *Reminders {
	return &Reminders{engine: engine, cache: cache, facility: facility}
}

// ScheduleAllReminders runs a full scheduling pass
func (r *Reminders) ScheduleAllReminders(ctx context.Context) (models.SchedulingReport, error) {
	return r.engine.ScheduleAll(ctx)
}

// ScheduleReminder registers the missing alarms of one event
func (r *Reminders) ScheduleReminder(ctx context.Context, ev models.CalendarEvent) (models.SchedulingReport, error) {
	return r.engine.ScheduleForEvent(ctx, ev)
}

// CancelReminder cancels every alarm of eventID
func (r *Reminders) CancelReminder(ctx context.Context, eventID string) (int, error) {
	return r.engine.CancelEvent(ctx, eventID)
}

// IsAlarmScheduled reports whether any alarm is registered for eventID
func (r *Reminders) IsAlarmScheduled(eventID string) bool {
	for _, kind := range models.PossibleKinds() {
		if r.facility.Exists(models.AlarmKey{EventID: eventID, Kind: kind}) {
			return true
		}
	}
	return false
}

func (r *Reminders) InvalidateCache() {
	r.cache.Invalidate()
}

// Upcoming returns up to limit registrations ordered by fire time.
// It returns nil when the facility cannot list registrations.
func (r *Reminders) Upcoming(limit int) []timer.Registration {
	lister, ok := r.facility.(PendingLister)
	if !ok {
		return nil
	}
	pending := lister.Pending()
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending
}
