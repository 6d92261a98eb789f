package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/borgmon/remindkeeper/pkg/clock"
	"github.com/borgmon/remindkeeper/pkg/logging"
	"github.com/borgmon/remindkeeper/pkg/models"
)

const DefaultRescheduleInterval = 5 * time.Minute

// Runner runs one scheduling pass
type Runner interface {
	ScheduleAll(ctx context.Context) (models.SchedulingReport, error)
}

// Background re-runs the scheduling pass on a chain of one-shot timers.
// Each run arms the next one when it finishes, so runs never pile up.
type Background struct {
	runner   Runner
	cache    EventCache
	clock    clock.Clock
	interval time.Duration
	logger   *slog.Logger

	// OnReport, when set, receives the outcome of every run
	OnReport func(models.SchedulingReport, error)

	mu      sync.Mutex
	ctx     context.Context
	timer   clock.Timer
	gen     uint64
	running bool
}

// NewBackground creates a stopped Background. A zero interval uses DefaultRescheduleInterval.
func NewBackground(runner Runner, cache EventCache, clk clock.Clock, interval time.Duration, logger *slog.Logger) *Background {
	if interval <= 0 {
		interval = DefaultRescheduleInterval
	}
	return &Background{
		runner:   runner,
		cache:    cache,
		clock:    clock.Or(clk),
		interval: interval,
		logger:   logging.Or(logger),
	}
}

// Start arms the first delayed run. It is a no-op when already started.
func (b *Background) Start(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return
	}
	b.running = true
	b.ctx = ctx
	b.armLocked()
}

// Boot runs one pass synchronously and then starts the chain. Used at process
// start, when every previously registered timer is gone.
func (b *Background) Boot(ctx context.Context) (models.SchedulingReport, error) {
	report, err := b.RunOnce(ctx)
	b.Start(ctx)
	return report, err
}

// Stop disarms the pending run. A run already in progress finishes but does not re-arm.
func (b *Background) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.running = false
	b.gen++
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

// Running reports whether the chain is armed
func (b *Background) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// RunOnce invalidates the event cache and runs a scheduling pass
func (b *Background) RunOnce(ctx context.Context) (models.SchedulingReport, error) {
	b.cache.Invalidate()
	report, err := b.runner.ScheduleAll(ctx)
	if err != nil {
		b.logger.Warn("background scheduling pass failed", "error", err, "error_kind", models.ErrorKind(err),
			"permission_denied", report.PermissionDenied)
	}
	if b.OnReport != nil {
		b.OnReport(report, err)
	}
	return report, err
}

// Trigger starts a manual pass in the background without touching the timer chain
func (b *Background) Trigger() {
	b.mu.Lock()
	ctx := b.ctx
	b.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	go b.RunOnce(ctx)
}

func (b *Background) armLocked() {
	gen := b.gen
	b.timer = b.clock.AfterFunc(b.interval, func() { b.fire(gen) })
}

func (b *Background) fire(gen uint64) {
	b.mu.Lock()
	if !b.running || gen != b.gen {
		b.mu.Unlock()
		return
	}
	ctx := b.ctx
	b.mu.Unlock()

	if ctx.Err() != nil {
		b.Stop()
		return
	}

	b.RunOnce(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running && gen == b.gen {
		b.armLocked()
	}
}
