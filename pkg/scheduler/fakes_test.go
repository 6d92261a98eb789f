package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/borgmon/remindkeeper/pkg/models"
	"github.com/borgmon/remindkeeper/pkg/timer"
)

type fakeFacility struct {
	mu            sync.Mutex
	regs          map[models.AlarmKey]timer.Registration
	registerCalls map[models.AlarmKey]int
	total         int

	// drop silently discards a registration when it returns true
	drop func(key models.AlarmKey, call int) bool
	// fail returns an error for a registration call
	fail func(key models.AlarmKey, call int) error
}

func newFakeFacility() *fakeFacility {
	return &fakeFacility{
		regs:          make(map[models.AlarmKey]timer.Registration),
		registerCalls: make(map[models.AlarmKey]int),
	}
}

func (f *fakeFacility) Register(r timer.Registration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.total++
	f.registerCalls[r.Key]++
	call := f.registerCalls[r.Key]
	if f.fail != nil {
		if err := f.fail(r.Key, call); err != nil {
			return err
		}
	}
	if f.drop != nil && f.drop(r.Key, call) {
		return nil
	}
	f.regs[r.Key] = r
	return nil
}

func (f *fakeFacility) Cancel(key models.AlarmKey) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.regs[key]
	delete(f.regs, key)
	return ok, nil
}

func (f *fakeFacility) Exists(key models.AlarmKey) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.regs[key]
	return ok
}

func (f *fakeFacility) Lookup(key models.AlarmKey) (timer.Registration, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.regs[key]
	return r, ok
}

func (f *fakeFacility) put(r timer.Registration) {
	f.mu.Lock()
	f.regs[r.Key] = r
	f.mu.Unlock()
}

func (f *fakeFacility) calls(key models.AlarmKey) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.registerCalls[key]
}

func (f *fakeFacility) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.total
}

func (f *fakeFacility) keysFor(eventID string) []models.AlarmKey {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []models.AlarmKey
	for k := range f.regs {
		if k.EventID == eventID {
			keys = append(keys, k)
		}
	}
	return keys
}

type fakeCache struct {
	mu            sync.Mutex
	events        []models.CalendarEvent
	err           error
	invalidations int
}

func (c *fakeCache) GetEvents(ctx context.Context) ([]models.CalendarEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	out := make([]models.CalendarEvent, 0, len(c.events))
	for _, ev := range c.events {
		out = append(out, ev.Normalize())
	}
	return out, nil
}

func (c *fakeCache) Invalidate() {
	c.mu.Lock()
	c.invalidations++
	c.mu.Unlock()
}

func (c *fakeCache) set(events ...models.CalendarEvent) {
	c.mu.Lock()
	c.events = events
	c.mu.Unlock()
}

type memRegistry struct {
	mu      sync.Mutex
	ids     []string
	saves   int
	loadErr error
}

func (r *memRegistry) Load(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	return append([]string(nil), r.ids...), nil
}

func (r *memRegistry) Save(ctx context.Context, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append([]string(nil), ids...)
	r.saves++
	return nil
}

type memLedger struct {
	mu   sync.Mutex
	keys map[models.AlarmKey]time.Time
}

func newMemLedger() *memLedger {
	return &memLedger{keys: make(map[models.AlarmKey]time.Time)}
}

func (l *memLedger) Record(ctx context.Context, key models.AlarmKey, fireTime time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys[key] = fireTime
	return nil
}

func (l *memLedger) Remove(ctx context.Context, key models.AlarmKey) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.keys, key)
	return nil
}

func (l *memLedger) Keys(ctx context.Context, eventID string) ([]models.AlarmKey, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.AlarmKey
	for k := range l.keys {
		if k.EventID == eventID {
			out = append(out, k)
		}
	}
	return out, nil
}

func (l *memLedger) ForgetEvent(ctx context.Context, eventID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for k := range l.keys {
		if k.EventID == eventID {
			delete(l.keys, k)
		}
	}
	return nil
}
