package timer

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/borgmon/remindkeeper/pkg/logging"
	"github.com/borgmon/remindkeeper/pkg/models"
)

const maxSleepCap = 60 * time.Second

// DefaultMaxRegistrations mirrors the per-app alarm limit mobile hosts enforce
const DefaultMaxRegistrations = 500

// Options configures a Manager
type Options struct {
	// MaxRegistrations bounds the number of armed alarms. New keys beyond it are dropped silently.
	MaxRegistrations int
	Logger           *slog.Logger
	Now              func() time.Time
}

// Manager is the heap-backed Facility
type Manager struct {
	mu      sync.Mutex
	entries map[models.AlarmKey]Registration
	h       alarmHeap
	wake    chan struct{}

	max    int
	now    func() time.Time
	logger *slog.Logger
}

var _ Facility = (*Manager)(nil)

// NewManager creates a Manager. Nothing fires until Start is called.
func NewManager(opts Options) *Manager {
	if opts.MaxRegistrations <= 0 {
		opts.MaxRegistrations = DefaultMaxRegistrations
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		entries: make(map[models.AlarmKey]Registration),
		wake:    make(chan struct{}, 1),
		max:     opts.MaxRegistrations,
		now:     opts.Now,
		logger:  logging.Or(opts.Logger),
	}
}

// Register arms r, replacing any registration with the same key
func (m *Manager) Register(r Registration) error {
	m.mu.Lock()
	if _, ok := m.entries[r.Key]; ok {
		heapRemoveByKey(&m.h, r.Key)
	} else if len(m.entries) >= m.max {
		m.mu.Unlock()
		m.logger.Debug("timer capacity reached, registration dropped", "key", r.Key.String(), "max", m.max)
		return nil
	}
	m.entries[r.Key] = r
	heapPush(&m.h, r)
	m.mu.Unlock()

	m.signal()
	return nil
}

func (m *Manager) Cancel(key models.AlarmKey) (bool, error) {
	m.mu.Lock()
	_, ok := m.entries[key]
	if ok {
		delete(m.entries, key)
		heapRemoveByKey(&m.h, key)
	}
	m.mu.Unlock()

	if ok {
		m.signal()
	}
	return ok, nil
}

func (m *Manager) Exists(key models.AlarmKey) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[key]
	return ok
}

func (m *Manager) Lookup(key models.AlarmKey) (Registration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.entries[key]
	return r, ok
}

// Len returns the number of armed registrations
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Pending returns the armed registrations ordered by fire time
func (m *Manager) Pending() []Registration {
	m.mu.Lock()
	out := make([]Registration, 0, len(m.entries))
	for _, r := range m.entries {
		out = append(out, r)
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].FireTime.Equal(out[j].FireTime) {
			return out[i].Key.String() < out[j].Key.String()
		}
		return out[i].FireTime.Before(out[j].FireTime)
	})
	return out
}

// Start runs the firing loop until ctx is cancelled. Due registrations are
// removed before handler is called, on the loop goroutine.
func (m *Manager) Start(ctx context.Context, handler Handler) {
	go m.run(ctx, handler)
}

func (m *Manager) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Manager) run(ctx context.Context, handler Handler) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	resetTimer := func() <-chan time.Time {
		if timer != nil {
			timer.Stop()
		}
		m.mu.Lock()
		empty := m.h.Len() == 0
		var next time.Time
		if !empty {
			next = m.h[0].FireTime
		}
		m.mu.Unlock()

		if empty {
			return nil
		}
		dur := next.Sub(m.now())
		if dur > maxSleepCap {
			dur = maxSleepCap
		}
		if dur < 0 {
			dur = 0
		}
		timer = time.NewTimer(dur)
		return timer.C
	}

	timerCh := resetTimer()

	for {
		select {
		case <-ctx.Done():
			return

		case <-m.wake:
			timerCh = resetTimer()

		case <-timerCh:
			for _, r := range m.popDue() {
				m.logger.Debug("alarm fired", "key", r.Key.String(), "fire_time", r.FireTime)
				if handler != nil {
					handler(r)
				}
			}
			timerCh = resetTimer()
		}
	}
}

func (m *Manager) popDue() []Registration {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	var due []Registration
	for m.h.Len() > 0 && !m.h[0].FireTime.After(now) {
		r := heapPop(&m.h)
		delete(m.entries, r.Key)
		due = append(due, r)
	}
	return due
}
