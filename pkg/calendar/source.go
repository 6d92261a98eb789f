// Package calendar reads events from iCal subscriptions and caches the
// normalized result for the scheduler.
package calendar

import (
	"context"
	"time"

	"github.com/borgmon/remindkeeper/pkg/models"
)

// Source returns the events of every configured calendar
type Source interface {
	// Events returns events overlapping [from, to). Errors wrapping
	// models.ErrPermissionDenied mean access was refused.
	Events(ctx context.Context, from, to time.Time) ([]models.CalendarEvent, error)
	// Calendars describes the configured calendars for diagnostics
	Calendars(ctx context.Context) ([]models.CalendarInfo, error)
}
