package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/borgmon/remindkeeper/pkg/logging"
	"github.com/borgmon/remindkeeper/pkg/models"
	"github.com/borgmon/remindkeeper/pkg/timer"
)

// Reconciler cancels the alarms of events that disappeared since the previous pass
type Reconciler struct {
	registry Registry
	facility timer.Facility
	ledger   Ledger
	logger   *slog.Logger
}

// NewReconciler creates a Reconciler. ledger may be nil.
func NewReconciler(registry Registry, facility timer.Facility, ledger Ledger, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		registry: registry,
		facility: facility,
		ledger:   ledger,
		logger:   logging.Or(logger),
	}
}

// Reconcile cancels every possible alarm of events that were in the registry
// but are not in current, then stores the current IDs. It returns the number
// of registrations cancelled. Cleanup failures are returned joined but do not
// stop the remaining cleanup or the registry update.
func (r *Reconciler) Reconcile(ctx context.Context, current []models.CalendarEvent) (int, error) {
	logger := logging.FromContextOr(ctx, r.logger)

	previous, err := r.registry.Load(ctx)
	if err != nil {
		// Without the previous set nothing can be diffed. Keep it for the next pass.
		return 0, fmt.Errorf("load scheduled event registry: %w", err)
	}

	currentIDs := make(map[string]bool, len(current))
	ids := make([]string, 0, len(current))
	for _, ev := range current {
		if currentIDs[ev.ID] {
			continue
		}
		currentIDs[ev.ID] = true
		ids = append(ids, ev.ID)
	}

	var errs []error
	cleaned := 0
	for _, id := range previous {
		if currentIDs[id] {
			continue
		}
		n, err := cancelEventAlarms(ctx, r.facility, r.ledger, id)
		cleaned += n
		if err != nil {
			logger.Warn("orphan cleanup failed", "event_id", id, "error", err, "error_kind", models.ErrorKind(err))
			errs = append(errs, err)
		}
		logger.Debug("event vanished", "event_id", id, "cancelled", n)
	}

	if err := r.registry.Save(ctx, ids); err != nil {
		errs = append(errs, fmt.Errorf("save scheduled event registry: %w", err))
	}

	if cleaned > 0 {
		logger.Info("orphaned alarms cancelled", "count", cleaned)
	}
	return cleaned, errors.Join(errs...)
}

// cancelEventAlarms cancels every kind in the bounded enumeration plus any
// key recorded in the ledger. Missing registrations are no-ops.
func cancelEventAlarms(ctx context.Context, facility timer.Facility, ledger Ledger, eventID string) (int, error) {
	keys := make([]models.AlarmKey, 0, models.MaxReminderSlots+2)
	seen := make(map[models.AlarmKey]bool)
	for _, kind := range models.PossibleKinds() {
		k := models.AlarmKey{EventID: eventID, Kind: kind}
		seen[k] = true
		keys = append(keys, k)
	}

	var errs []error
	if ledger != nil {
		recorded, err := ledger.Keys(ctx, eventID)
		if err != nil {
			errs = append(errs, err)
		}
		for _, k := range recorded {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}

	cancelled := 0
	for _, k := range keys {
		removed, err := facility.Cancel(k)
		if err != nil {
			errs = append(errs, fmt.Errorf("cancel %s: %w", k, err))
			continue
		}
		if removed {
			cancelled++
		}
	}

	if ledger != nil && len(errs) == 0 {
		if err := ledger.ForgetEvent(ctx, eventID); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return cancelled, &models.CleanupError{EventID: eventID, Err: errors.Join(errs...)}
	}
	return cancelled, nil
}
