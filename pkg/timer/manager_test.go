package timer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/borgmon/remindkeeper/pkg/models"
)

type recorder struct {
	mu    sync.Mutex
	fired []Registration
	ch    chan Registration
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan Registration, 16)}
}

func (r *recorder) handle(reg Registration) {
	r.mu.Lock()
	r.fired = append(r.fired, reg)
	r.mu.Unlock()
	r.ch <- reg
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fired)
}

func TestManagerRegisterLookupCancel(t *testing.T) {
	m := NewManager(Options{})
	fire := time.Now().Add(time.Hour)
	reg := Registration{Key: key("evt"), FireTime: fire, Exact: true, WakeIfIdle: true}

	if err := m.Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	got, ok := m.Lookup(reg.Key)
	if !ok || !got.FireTime.Equal(fire) {
		t.Fatalf("lookup returned %v, %v", got, ok)
	}
	if !m.Exists(reg.Key) {
		t.Fatal("expected key to exist")
	}

	removed, err := m.Cancel(reg.Key)
	if err != nil || !removed {
		t.Fatalf("cancel returned %v, %v", removed, err)
	}
	removed, _ = m.Cancel(reg.Key)
	if removed {
		t.Fatal("second cancel should report nothing removed")
	}
	if m.Exists(reg.Key) {
		t.Fatal("expected key to be gone")
	}
}

func TestManagerRegisterReplacesSameKey(t *testing.T) {
	m := NewManager(Options{})
	k := key("evt")
	first := time.Now().Add(time.Hour)
	second := first.Add(time.Minute)

	_ = m.Register(Registration{Key: k, FireTime: first})
	_ = m.Register(Registration{Key: k, FireTime: second})

	if m.Len() != 1 {
		t.Fatalf("expected one registration, got %d", m.Len())
	}
	got, _ := m.Lookup(k)
	if !got.FireTime.Equal(second) {
		t.Fatalf("expected replaced fire time %v, got %v", second, got.FireTime)
	}
}

func TestManagerDropsSilentlyAtCapacity(t *testing.T) {
	m := NewManager(Options{MaxRegistrations: 2})
	fire := time.Now().Add(time.Hour)

	for _, id := range []string{"a", "b", "c"} {
		if err := m.Register(Registration{Key: key(id), FireTime: fire}); err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
	}
	if m.Exists(key("c")) {
		t.Fatal("registration beyond capacity should be dropped")
	}
	// Replacing an existing key is still allowed at capacity
	if err := m.Register(Registration{Key: key("a"), FireTime: fire.Add(time.Minute)}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if got, _ := m.Lookup(key("a")); !got.FireTime.Equal(fire.Add(time.Minute)) {
		t.Fatalf("replace at capacity did not apply")
	}
}

func TestManagerFiresInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := newRecorder()
	m := NewManager(Options{})
	m.Start(ctx, rec.handle)

	now := time.Now()
	_ = m.Register(Registration{Key: key("late"), FireTime: now.Add(120 * time.Millisecond)})
	_ = m.Register(Registration{Key: key("early"), FireTime: now.Add(40 * time.Millisecond)})

	for _, want := range []string{"early", "late"} {
		select {
		case got := <-rec.ch:
			if got.Key.EventID != want {
				t.Fatalf("expected %s, got %s", want, got.Key.EventID)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s", want)
		}
	}
	if m.Len() != 0 {
		t.Fatalf("fired registrations should be removed, %d left", m.Len())
	}
}

func TestManagerCancelBeforeFire(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := newRecorder()
	m := NewManager(Options{})
	m.Start(ctx, rec.handle)

	k := key("cancelled")
	_ = m.Register(Registration{Key: k, FireTime: time.Now().Add(150 * time.Millisecond)})
	_, _ = m.Cancel(k)

	time.Sleep(400 * time.Millisecond)
	if rec.count() != 0 {
		t.Fatalf("cancelled registration fired")
	}
}

func TestManagerPastFireTimeFiresImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := newRecorder()
	m := NewManager(Options{})
	m.Start(ctx, rec.handle)

	payload := models.AlarmPayload{Title: "Standup"}
	_ = m.Register(Registration{Key: key("past"), FireTime: time.Now().Add(-time.Minute), Payload: payload})

	select {
	case got := <-rec.ch:
		if got.Payload.Title != "Standup" {
			t.Fatalf("payload not delivered: %+v", got.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("past registration did not fire")
	}
}

func TestManagerPendingSorted(t *testing.T) {
	m := NewManager(Options{})
	now := time.Now()
	_ = m.Register(Registration{Key: key("b"), FireTime: now.Add(2 * time.Hour)})
	_ = m.Register(Registration{Key: key("a"), FireTime: now.Add(time.Hour)})

	pending := m.Pending()
	if len(pending) != 2 || pending[0].Key.EventID != "a" || pending[1].Key.EventID != "b" {
		t.Fatalf("unexpected pending order: %+v", pending)
	}
}
