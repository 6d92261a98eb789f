package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/borgmon/remindkeeper/pkg/models"
	"github.com/borgmon/remindkeeper/pkg/timer"
)

func TestRemindersFacade(t *testing.T) {
	h := newHarness(t, 1, nil)
	facility := timer.NewManager(timer.Options{Now: h.clk.Now})
	engine := NewEngine(h.cache, facility, StaticSettings(1), nil, Options{Clock: h.clk, RetryDelay: time.Millisecond})
	r := NewReminders(engine, h.cache, facility)

	if r.IsAlarmScheduled("a") {
		t.Fatal("nothing scheduled yet")
	}
	if _, err := r.ScheduleReminder(context.Background(), event("a", 2*time.Hour, 30)); err != nil {
		t.Fatal(err)
	}
	if _, err := r.ScheduleReminder(context.Background(), event("b", time.Hour, 1)); err != nil {
		t.Fatal(err)
	}
	if !r.IsAlarmScheduled("a") {
		t.Fatal("expected a to be scheduled")
	}

	upcoming := r.Upcoming(2)
	if len(upcoming) != 2 {
		t.Fatalf("expected 2 upcoming, got %d", len(upcoming))
	}
	// b original[0] at 0:59 comes before a original[0] at 1:30
	if upcoming[0].Key.EventID != "b" || upcoming[1].Key != (models.AlarmKey{EventID: "a", Kind: models.Original(0)}) {
		t.Fatalf("unexpected order %v, %v", upcoming[0].Key, upcoming[1].Key)
	}

	n, err := r.CancelReminder(context.Background(), "a")
	if err != nil || n != 2 {
		t.Fatalf("cancel: %d, %v", n, err)
	}
	if r.IsAlarmScheduled("a") {
		t.Fatal("a still scheduled")
	}

	r.InvalidateCache()
	if h.cache.invalidations != 1 {
		t.Fatalf("invalidations = %d", h.cache.invalidations)
	}
}
