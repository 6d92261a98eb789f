package surface

import (
	"log/slog"

	"github.com/borgmon/remindkeeper/pkg/clock"
	"github.com/borgmon/remindkeeper/pkg/logging"
	"github.com/borgmon/remindkeeper/pkg/models"
	"github.com/borgmon/remindkeeper/pkg/timer"
	"github.com/google/uuid"
)

// Enqueuer accepts fired alarms and reports whether a surface took them
type Enqueuer interface {
	Enqueue(alarm models.PendingAlarm) bool
}

// Opener launches the surface
type Opener interface {
	Open()
}

// Dispatcher is the alarm delivery handler. It does no scheduling work.
type Dispatcher struct {
	queue   Enqueuer
	surface Opener
	clock   clock.Clock
	logger  *slog.Logger
}

func NewDispatcher(queue Enqueuer, surface Opener, clk clock.Clock, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		queue:   queue,
		surface: surface,
		clock:   clock.Or(clk),
		logger:  logging.Or(logger),
	}
}

// Deliver enqueues the fired registration and opens the surface when none is showing.
// It has the signature of timer.Handler.
func (d *Dispatcher) Deliver(r timer.Registration) {
	alarm := models.PendingAlarm{
		EventID:      r.Key.EventID,
		Title:        r.Payload.Title,
		StartTime:    r.Payload.StartTime,
		Kind:         r.Key.Kind,
		CalendarName: r.Payload.CalendarName,
		EnqueuedAt:   d.clock.Now(),
		DeliveryID:   uuid.NewString(),
	}
	d.logger.Info("alarm delivered",
		"key", r.Key.String(),
		"delivery_id", alarm.DeliveryID,
		"title", alarm.Title,
		"late_by", alarm.EnqueuedAt.Sub(r.FireTime),
	)

	if !d.queue.Enqueue(alarm) {
		d.surface.Open()
	}
}
