package store

import (
	"sync"
	"testing"
	"time"

	"github.com/borgmon/remindkeeper/pkg/models"
)

func pending(id string, kind models.AlarmKind) models.PendingAlarm {
	return models.PendingAlarm{
		EventID:    id,
		Title:      "Event " + id,
		StartTime:  time.Date(2025, time.April, 1, 10, 0, 0, 0, time.UTC),
		Kind:       kind,
		EnqueuedAt: time.Date(2025, time.April, 1, 9, 59, 0, 0, time.UTC),
	}
}

type snapshots struct {
	mu   sync.Mutex
	list []Snapshot
}

func (s *snapshots) record(snap Snapshot) {
	s.mu.Lock()
	s.list = append(s.list, snap)
	s.mu.Unlock()
}

func (s *snapshots) last() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list[len(s.list)-1]
}

func TestEnqueueWithoutSurfaceReportsNotNotified(t *testing.T) {
	q := NewAlarmQueue(nil)
	if q.Enqueue(pending("a", models.FinalReminder)) {
		t.Fatal("expected no surface to be notified")
	}
	if q.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", q.Len())
	}
}

func TestEnqueueUpsertsByKey(t *testing.T) {
	q := NewAlarmQueue(nil)
	q.Enqueue(pending("a", models.Original(0)))
	q.Enqueue(pending("b", models.Original(0)))

	updated := pending("a", models.Original(0))
	updated.Title = "Renamed"
	q.Enqueue(updated)

	all := q.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(all))
	}
	if all[0].EventID != "a" || all[0].Title != "Renamed" {
		t.Fatalf("upsert should replace in place: %+v", all[0])
	}
}

func TestSameEventDifferentKindsAreDistinct(t *testing.T) {
	q := NewAlarmQueue(nil)
	q.Enqueue(pending("a", models.Original(0)))
	q.Enqueue(pending("a", models.FinalReminder))
	q.Enqueue(pending("a", models.Snooze))

	if q.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", q.Len())
	}
	if !q.Dequeue(models.AlarmKey{EventID: "a", Kind: models.FinalReminder}) {
		t.Fatal("expected final entry to be removed")
	}
	if _, ok := q.Get(models.AlarmKey{EventID: "a", Kind: models.Snooze}); !ok {
		t.Fatal("snooze entry should remain")
	}
}

func TestRegisterSurfaceCallbackReturnsCurrentContent(t *testing.T) {
	q := NewAlarmQueue(nil)
	q.Enqueue(pending("a", models.FinalReminder))
	q.Enqueue(pending("b", models.FinalReminder))

	rec := &snapshots{}
	snap := q.RegisterSurfaceCallback(rec.record)
	if len(snap.Alarms) != 2 || snap.Alarms[0].EventID != "a" {
		t.Fatalf("unexpected initial snapshot: %+v", snap)
	}
	if !q.IsSurfaceActive() {
		t.Fatal("expected active surface")
	}

	if !q.Enqueue(pending("c", models.FinalReminder)) {
		t.Fatal("expected registered surface to be notified")
	}
	last := rec.last()
	if last.Seq <= snap.Seq || len(last.Alarms) != 3 {
		t.Fatalf("unexpected published snapshot: %+v", last)
	}
}

func TestDequeuePublishesAndReportsPresence(t *testing.T) {
	q := NewAlarmQueue(nil)
	rec := &snapshots{}
	q.RegisterSurfaceCallback(rec.record)
	q.Enqueue(pending("a", models.FinalReminder))

	key := models.AlarmKey{EventID: "a", Kind: models.FinalReminder}
	if !q.Dequeue(key) {
		t.Fatal("expected dequeue to find entry")
	}
	if q.Dequeue(key) {
		t.Fatal("second dequeue should report absence")
	}
	if got := rec.last(); len(got.Alarms) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", got)
	}
	rec.mu.Lock()
	n := len(rec.list)
	rec.mu.Unlock()
	if n != 2 {
		t.Fatalf("expected 2 publications, got %d", n)
	}
}

func TestCallbackRunsOutsideLock(t *testing.T) {
	q := NewAlarmQueue(nil)
	var seen int
	q.RegisterSurfaceCallback(func(Snapshot) {
		// Re-entering the queue from the callback must not deadlock
		seen = q.Len()
	})
	q.Enqueue(pending("a", models.FinalReminder))
	if seen != 1 {
		t.Fatalf("callback saw %d entries", seen)
	}
}

func TestReleaseSurfaceIfEmpty(t *testing.T) {
	q := NewAlarmQueue(nil)
	q.RegisterSurfaceCallback(func(Snapshot) {})
	q.Enqueue(pending("a", models.FinalReminder))

	if q.ReleaseSurfaceIfEmpty() {
		t.Fatal("must not release while entries remain")
	}
	if !q.IsSurfaceActive() {
		t.Fatal("surface should still be active")
	}

	q.Dequeue(models.AlarmKey{EventID: "a", Kind: models.FinalReminder})
	if !q.ReleaseSurfaceIfEmpty() {
		t.Fatal("expected release on empty queue")
	}
	if q.IsSurfaceActive() {
		t.Fatal("surface should be inactive after release")
	}
	if q.Enqueue(pending("b", models.FinalReminder)) {
		t.Fatal("enqueue after release must ask the caller to launch a surface")
	}
}

func TestUnregisterSurfaceCallback(t *testing.T) {
	q := NewAlarmQueue(nil)
	called := false
	q.RegisterSurfaceCallback(func(Snapshot) { called = true })
	q.UnregisterSurfaceCallback()

	if q.Enqueue(pending("a", models.FinalReminder)) || called {
		t.Fatal("unregistered callback must not be notified")
	}
}

func TestSequenceIncreasesAcrossMutations(t *testing.T) {
	q := NewAlarmQueue(nil)
	rec := &snapshots{}
	q.RegisterSurfaceCallback(rec.record)

	q.Enqueue(pending("a", models.FinalReminder))
	q.Enqueue(pending("b", models.FinalReminder))
	q.Dequeue(models.AlarmKey{EventID: "a", Kind: models.FinalReminder})

	rec.mu.Lock()
	defer rec.mu.Unlock()
	for i := 1; i < len(rec.list); i++ {
		if rec.list[i].Seq <= rec.list[i-1].Seq {
			t.Fatalf("sequence not increasing: %d then %d", rec.list[i-1].Seq, rec.list[i].Seq)
		}
	}
}
