package surface

import (
	"testing"
	"time"

	"github.com/borgmon/remindkeeper/pkg/clock"
	"github.com/borgmon/remindkeeper/pkg/models"
	"github.com/borgmon/remindkeeper/pkg/timer"
)

type fakeEnqueuer struct {
	alarms  []models.PendingAlarm
	hasView bool
}

func (q *fakeEnqueuer) Enqueue(a models.PendingAlarm) bool {
	q.alarms = append(q.alarms, a)
	return q.hasView
}

type countingOpener int

func (o *countingOpener) Open() { *o++ }

func TestDeliverBuildsPendingAlarm(t *testing.T) {
	clk := clock.NewFake(time.Time{})
	q := &fakeEnqueuer{}
	var opener countingOpener
	d := NewDispatcher(q, &opener, clk, nil)

	start := clk.Now().Add(time.Minute)
	d.Deliver(timer.Registration{
		Key:      models.AlarmKey{EventID: "ev", Kind: models.Original(1)},
		FireTime: clk.Now(),
		Payload:  models.AlarmPayload{Title: "Review", StartTime: start, CalendarName: "Team"},
	})

	if len(q.alarms) != 1 {
		t.Fatalf("expected one enqueue, got %d", len(q.alarms))
	}
	a := q.alarms[0]
	if a.EventID != "ev" || a.Kind != models.Original(1) || a.Title != "Review" || !a.StartTime.Equal(start) || a.CalendarName != "Team" {
		t.Fatalf("unexpected alarm %+v", a)
	}
	if !a.EnqueuedAt.Equal(clk.Now()) || a.DeliveryID == "" {
		t.Fatalf("missing delivery metadata %+v", a)
	}
	if opener != 1 {
		t.Fatalf("surface must be launched when nothing was notified, opens=%d", opener)
	}

	q.hasView = true
	d.Deliver(timer.Registration{Key: models.AlarmKey{EventID: "other", Kind: models.Snooze}})
	if opener != 1 {
		t.Fatal("surface must not be relaunched when the open one was notified")
	}
	if q.alarms[0].DeliveryID == q.alarms[1].DeliveryID {
		t.Fatal("delivery IDs must be unique")
	}
}
