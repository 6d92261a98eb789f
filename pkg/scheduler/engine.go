package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/borgmon/remindkeeper/pkg/clock"
	"github.com/borgmon/remindkeeper/pkg/logging"
	"github.com/borgmon/remindkeeper/pkg/models"
	"github.com/borgmon/remindkeeper/pkg/timer"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultGrace       = 5 * time.Second
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 500 * time.Millisecond
	DefaultParallelism = 4
)

// Options tunes an Engine. Zero values use the defaults.
type Options struct {
	// Grace is how far in the future an alarm must be to get registered
	Grace       time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
	// Parallelism bounds concurrent registration sequences
	Parallelism int
	Ledger      Ledger
	Clock       clock.Clock
	Logger      *slog.Logger
}

// Engine drives idempotent, verified registration of required alarms
type Engine struct {
	events     EventCache
	facility   timer.Facility
	settings   Settings
	reconciler *Reconciler
	ledger     Ledger
	clock      clock.Clock
	logger     *slog.Logger

	grace       time.Duration
	maxAttempts int
	retryDelay  time.Duration
	parallelism int

	runMu sync.Mutex
}

// NewEngine creates an Engine. reconciler may be nil, which disables orphan cleanup.
func NewEngine(events EventCache, facility timer.Facility, settings Settings, reconciler *Reconciler, opts Options) *Engine {
	if opts.Grace <= 0 {
		opts.Grace = DefaultGrace
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = DefaultParallelism
	}
	return &Engine{
		events:      events,
		facility:    facility,
		settings:    settings,
		reconciler:  reconciler,
		ledger:      opts.Ledger,
		clock:       clock.Or(opts.Clock),
		logger:      logging.Or(opts.Logger),
		grace:       opts.Grace,
		maxAttempts: opts.MaxAttempts,
		retryDelay:  opts.RetryDelay,
		parallelism: opts.Parallelism,
	}
}

// ScheduleAll runs one full pass: fresh events, orphan cleanup, then
// registration of every missing alarm. Passes never overlap.
//
// A permission error aborts the pass and sets report.PermissionDenied. Any other
// event source error aborts before reconciling. Per-alarm failures are only
// reported in report.Failures.
func (e *Engine) ScheduleAll(ctx context.Context) (models.SchedulingReport, error) {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	logger := e.logger.With("run_id", uuid.NewString())
	ctx = logging.ContextWithLogger(ctx, logger)
	started := e.clock.Now()

	var report models.SchedulingReport

	e.events.Invalidate()
	events, err := e.events.GetEvents(ctx)
	if err != nil {
		if errors.Is(err, models.ErrPermissionDenied) {
			report.PermissionDenied = true
			logger.Warn("calendar access denied, scheduling aborted", "error", err, "error_kind", models.ErrorKind(err))
		} else {
			logger.Error("failed to read events, scheduling skipped", "error", err, "error_kind", models.ErrorKind(err))
		}
		return report, fmt.Errorf("get events: %w", err)
	}

	if e.reconciler != nil {
		cleaned, err := e.reconciler.Reconcile(ctx, events)
		report.CleanedOrphans = cleaned
		if err != nil {
			logger.Warn("orphan cleanup incomplete", "error", err, "error_kind", models.ErrorKind(err))
		}
	}

	scheduled, err := e.scheduleEvents(ctx, events)
	report.Merge(scheduled)

	logger.Info("scheduling pass finished",
		"events", len(events),
		"scheduled", report.Scheduled,
		"already_scheduled", report.AlreadyScheduled,
		"cleaned_orphans", report.CleanedOrphans,
		"pruned", report.Pruned,
		"skipped", report.Skipped,
		"failures", len(report.Failures),
		"permission_denied", report.PermissionDenied,
		"elapsed", e.clock.Now().Sub(started),
	)
	return report, err
}

// ScheduleForEvent registers the missing alarms of a single event
func (e *Engine) ScheduleForEvent(ctx context.Context, ev models.CalendarEvent) (models.SchedulingReport, error) {
	return e.scheduleEvents(ctx, []models.CalendarEvent{ev})
}

// IsFullyScheduled reports whether every future required alarm of ev is
// registered with its current fire time. It never registers anything.
func (e *Engine) IsFullyScheduled(ev models.CalendarEvent) bool {
	ev = ev.Normalize()
	cutoff := e.clock.Now().Add(e.grace)
	for _, req := range RequiredAlarms(ev, e.settings.FinalReminderOffsetMinutes()) {
		if !req.FireTime.After(cutoff) {
			continue
		}
		if !e.satisfied(req) {
			return false
		}
	}
	return true
}

// ScheduleSnooze registers the snooze alarm for the event of alarm at the given time,
// replacing an earlier snooze of the same event
func (e *Engine) ScheduleSnooze(ctx context.Context, alarm models.PendingAlarm, at time.Time) error {
	if !at.After(e.clock.Now()) {
		return fmt.Errorf("snooze time %s is not in the future", at.Format(time.RFC3339))
	}
	req := models.RequiredAlarm{
		Key:      models.AlarmKey{EventID: alarm.EventID, Kind: models.Snooze},
		FireTime: at,
	}
	payload := models.AlarmPayload{Title: alarm.Title, StartTime: alarm.StartTime, CalendarName: alarm.CalendarName}

	logger := logging.FromContextOr(ctx, e.logger)
	if _, err := e.register(ctx, req, payload); err != nil {
		logger.Warn("snooze registration failed", "key", req.Key.String(), "error", err, "error_kind", models.ErrorKind(err))
		return err
	}
	e.record(ctx, req)
	logger.Info("snooze scheduled", "key", req.Key.String(), "fire_time", at)
	return nil
}

// CancelEvent cancels every alarm that may exist for eventID and returns how many were removed
func (e *Engine) CancelEvent(ctx context.Context, eventID string) (int, error) {
	return cancelEventAlarms(ctx, e.facility, e.ledger, eventID)
}

type plannedAlarm struct {
	req     models.RequiredAlarm
	payload models.AlarmPayload
}

func (e *Engine) scheduleEvents(ctx context.Context, events []models.CalendarEvent) (models.SchedulingReport, error) {
	logger := logging.FromContextOr(ctx, e.logger)
	finalOffset := e.settings.FinalReminderOffsetMinutes()
	cutoff := e.clock.Now().Add(e.grace)

	var report models.SchedulingReport
	var plan []plannedAlarm

	for _, ev := range events {
		ev = ev.Normalize()
		required := RequiredAlarms(ev, finalOffset)
		report.Pruned += e.prune(ctx, ev.ID, required, cutoff)

		fully := e.IsFullyScheduled(ev)
		for _, req := range required {
			if !req.FireTime.After(cutoff) {
				report.Skipped++
				continue
			}
			if fully || e.satisfied(req) {
				report.AlreadyScheduled++
				continue
			}
			plan = append(plan, plannedAlarm{req: req, payload: payloadFor(ev)})
		}
	}

	if len(plan) == 0 {
		return report, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)

	for _, p := range plan {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			attempts, err := e.register(gctx, p.req, p.payload)
			if err == nil {
				e.record(ctx, p.req)
				mu.Lock()
				report.Scheduled++
				mu.Unlock()
				return nil
			}

			if errors.Is(err, models.ErrPermissionDenied) {
				return err
			}
			var regErr *models.RegistrationError
			if errors.As(err, &regErr) {
				logger.Warn("alarm registration failed",
					"key", p.req.Key.String(),
					"fire_time", p.req.FireTime,
					"attempts", regErr.Attempts,
					"error", regErr.Err,
					"error_kind", models.ErrorKind(regErr.Err),
				)
				mu.Lock()
				report.Failures = append(report.Failures, models.AlarmFailure{
					Key:      p.req.Key,
					FireTime: p.req.FireTime,
					Attempts: attempts,
					Err:      regErr,
				})
				mu.Unlock()
				return nil
			}
			// Cancelled while waiting between attempts
			return err
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, models.ErrPermissionDenied) {
			report.PermissionDenied = true
			logger.Warn("timer access denied, scheduling aborted", "error", err, "error_kind", models.ErrorKind(err))
		}
		return report, err
	}
	return report, nil
}

// satisfied reports whether req is registered with its current fire time.
// A registration with another fire time belongs to an older event snapshot.
func (e *Engine) satisfied(req models.RequiredAlarm) bool {
	r, ok := e.facility.Lookup(req.Key)
	return ok && r.FireTime.Equal(req.FireTime)
}

// register performs up to maxAttempts register-then-verify attempts with a
// cancellable fixed delay between them
func (e *Engine) register(ctx context.Context, req models.RequiredAlarm, payload models.AlarmPayload) (int, error) {
	logger := logging.FromContextOr(ctx, e.logger)

	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}

		lastErr = e.attempt(req, payload)
		if lastErr == nil {
			if attempt > 1 {
				logger.Debug("alarm registered after retry", "key", req.Key.String(), "attempt", attempt)
			}
			return attempt, nil
		}
		if errors.Is(lastErr, models.ErrPermissionDenied) {
			return attempt, lastErr
		}

		logger.Debug("alarm registration attempt failed",
			"key", req.Key.String(), "attempt", attempt, "error", lastErr, "error_kind", models.ErrorKind(lastErr))

		if attempt < e.maxAttempts {
			if err := e.wait(ctx); err != nil {
				return attempt, err
			}
		}
	}

	return e.maxAttempts, &models.RegistrationError{Key: req.Key, Attempts: e.maxAttempts, Err: lastErr}
}

func (e *Engine) attempt(req models.RequiredAlarm, payload models.AlarmPayload) error {
	err := e.facility.Register(timer.Registration{
		Key:        req.Key,
		FireTime:   req.FireTime,
		Exact:      true,
		WakeIfIdle: true,
		Payload:    payload,
	})
	if err != nil {
		return err
	}

	// The facility may drop a registration without reporting it
	r, ok := e.facility.Lookup(req.Key)
	if !ok || !r.FireTime.Equal(req.FireTime) {
		return models.ErrVerificationFailed
	}
	return nil
}

func (e *Engine) wait(ctx context.Context) error {
	t := time.NewTimer(e.retryDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// prune cancels registrations of ev that no pass would create any more: original
// slots beyond the current offsets, a final reminder that now coincides with an
// original offset, and stale registrations of alarms that are already due.
// Snooze registrations are left alone.
func (e *Engine) prune(ctx context.Context, eventID string, required []models.RequiredAlarm, cutoff time.Time) int {
	logger := logging.FromContextOr(ctx, e.logger)

	wanted := make(map[models.AlarmKey]models.RequiredAlarm, len(required))
	for _, req := range required {
		wanted[req.Key] = req
	}

	candidates := models.PossibleKinds()
	if e.ledger != nil {
		if keys, err := e.ledger.Keys(ctx, eventID); err == nil {
			for _, k := range keys {
				candidates = append(candidates, k.Kind)
			}
		}
	}

	pruned := 0
	seen := make(map[models.AlarmKind]bool, len(candidates))
	for _, kind := range candidates {
		if kind == models.Snooze || seen[kind] {
			continue
		}
		seen[kind] = true

		key := models.AlarmKey{EventID: eventID, Kind: kind}
		r, ok := e.facility.Lookup(key)
		if !ok {
			continue
		}
		req, isWanted := wanted[key]
		if isWanted && (req.FireTime.After(cutoff) || r.FireTime.Equal(req.FireTime)) {
			continue
		}

		removed, err := e.facility.Cancel(key)
		if err != nil {
			logger.Warn("failed to cancel unneeded alarm", "key", key.String(), "error", err)
			continue
		}
		if removed {
			pruned++
			e.forget(ctx, key)
			logger.Debug("cancelled unneeded alarm", "key", key.String(), "fire_time", r.FireTime)
		}
	}
	return pruned
}

func (e *Engine) record(ctx context.Context, req models.RequiredAlarm) {
	if e.ledger == nil {
		return
	}
	if err := e.ledger.Record(ctx, req.Key, req.FireTime); err != nil {
		logging.FromContextOr(ctx, e.logger).Warn("failed to record alarm key", "key", req.Key.String(), "error", err)
	}
}

func (e *Engine) forget(ctx context.Context, key models.AlarmKey) {
	if e.ledger == nil {
		return
	}
	if err := e.ledger.Remove(ctx, key); err != nil {
		logging.FromContextOr(ctx, e.logger).Warn("failed to remove alarm key", "key", key.String(), "error", err)
	}
}
