package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/borgmon/remindkeeper/pkg/clock"
	"github.com/borgmon/remindkeeper/pkg/models"
)

type countingRunner struct {
	mu    sync.Mutex
	runs  int
	err   error
	onRun func()
}

func (r *countingRunner) ScheduleAll(ctx context.Context) (models.SchedulingReport, error) {
	r.mu.Lock()
	r.runs++
	onRun := r.onRun
	err := r.err
	r.mu.Unlock()
	if onRun != nil {
		onRun()
	}
	return models.SchedulingReport{Scheduled: 1}, err
}

func (r *countingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs
}

func TestBackgroundChainsRuns(t *testing.T) {
	clk := clock.NewFake(time.Time{})
	runner := &countingRunner{}
	cache := &fakeCache{}
	bg := NewBackground(runner, cache, clk, 5*time.Minute, nil)

	bg.Start(context.Background())
	bg.Start(context.Background())
	if clk.Pending() != 1 {
		t.Fatalf("Start must arm exactly one timer, got %d", clk.Pending())
	}

	clk.Advance(4 * time.Minute)
	if runner.count() != 0 {
		t.Fatal("run fired early")
	}
	clk.Advance(time.Minute)
	if runner.count() != 1 {
		t.Fatalf("expected 1 run, got %d", runner.count())
	}
	if clk.Pending() != 1 {
		t.Fatalf("run must re-arm the chain, pending=%d", clk.Pending())
	}

	clk.Advance(10 * time.Minute)
	if runner.count() != 3 {
		t.Fatalf("expected 3 runs, got %d", runner.count())
	}
	if cache.invalidations != 3 {
		t.Fatalf("each run must invalidate the cache, got %d", cache.invalidations)
	}
}

func TestBackgroundStop(t *testing.T) {
	clk := clock.NewFake(time.Time{})
	runner := &countingRunner{}
	bg := NewBackground(runner, &fakeCache{}, clk, time.Minute, nil)

	bg.Start(context.Background())
	bg.Stop()
	if bg.Running() {
		t.Fatal("expected stopped")
	}
	clk.Advance(time.Hour)
	if runner.count() != 0 {
		t.Fatalf("stopped chain ran %d times", runner.count())
	}
	if clk.Pending() != 0 {
		t.Fatalf("stop left %d timers armed", clk.Pending())
	}
}

func TestBackgroundStopDuringRunDoesNotRearm(t *testing.T) {
	clk := clock.NewFake(time.Time{})
	runner := &countingRunner{}
	bg := NewBackground(runner, &fakeCache{}, clk, time.Minute, nil)
	runner.onRun = bg.Stop

	bg.Start(context.Background())
	clk.Advance(time.Minute)
	if runner.count() != 1 {
		t.Fatalf("expected the in-flight run to finish, got %d", runner.count())
	}
	if clk.Pending() != 0 {
		t.Fatal("a run stopped mid-flight must not re-arm")
	}
}

func TestBackgroundStopsWhenContextDone(t *testing.T) {
	clk := clock.NewFake(time.Time{})
	runner := &countingRunner{}
	bg := NewBackground(runner, &fakeCache{}, clk, time.Minute, nil)

	ctx, cancel := context.WithCancel(context.Background())
	bg.Start(ctx)
	cancel()
	clk.Advance(time.Minute)

	if runner.count() != 0 || bg.Running() {
		t.Fatalf("cancelled context must end the chain (runs=%d running=%v)", runner.count(), bg.Running())
	}
}

func TestBackgroundBootRunsImmediately(t *testing.T) {
	clk := clock.NewFake(time.Time{})
	runner := &countingRunner{err: models.ErrPermissionDenied}
	bg := NewBackground(runner, &fakeCache{}, clk, 0, nil)

	var reports []error
	bg.OnReport = func(_ models.SchedulingReport, err error) { reports = append(reports, err) }

	report, err := bg.Boot(context.Background())
	if !errors.Is(err, models.ErrPermissionDenied) || report.Scheduled != 1 {
		t.Fatalf("Boot must return the first pass outcome, got %+v, %v", report, err)
	}
	if runner.count() != 1 || !bg.Running() {
		t.Fatalf("expected one run and an armed chain")
	}

	clk.Advance(DefaultRescheduleInterval)
	if runner.count() != 2 {
		t.Fatalf("failed runs must not break the chain, got %d runs", runner.count())
	}
	if len(reports) != 2 {
		t.Fatalf("OnReport called %d times", len(reports))
	}
}

func TestBackgroundTrigger(t *testing.T) {
	runner := &countingRunner{}
	done := make(chan struct{}, 1)
	runner.onRun = func() { done <- struct{}{} }
	bg := NewBackground(runner, &fakeCache{}, clock.NewFake(time.Time{}), time.Minute, nil)

	bg.Trigger()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("manual trigger did not run")
	}
}
