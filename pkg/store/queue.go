package store

import (
	"log/slog"
	"sync"

	"github.com/borgmon/remindkeeper/pkg/logging"
	"github.com/borgmon/remindkeeper/pkg/models"
)

// Snapshot is the full queue content after a mutation. Seq grows with every
// mutation so a subscriber can drop snapshots that arrive out of order.
type Snapshot struct {
	Seq    uint64
	Alarms []models.PendingAlarm
}

// SurfaceCallback receives snapshots while a reminder surface is registered
type SurfaceCallback func(Snapshot)

// AlarmQueue holds fired alarms until the user acknowledges them.
// Entries are unique per (event ID, kind) and kept in insertion order.
// Every mutation publishes a snapshot to the registered surface callback
// after the queue lock is released.
type AlarmQueue struct {
	mu       sync.Mutex
	order    []models.AlarmKey
	alarms   map[models.AlarmKey]models.PendingAlarm
	seq      uint64
	callback SurfaceCallback

	logger *slog.Logger
}

// NewAlarmQueue creates an empty queue
func NewAlarmQueue(logger *slog.Logger) *AlarmQueue {
	return &AlarmQueue{
		alarms: make(map[models.AlarmKey]models.PendingAlarm),
		logger: logging.Or(logger),
	}
}

// Enqueue inserts alarm, or replaces the entry with the same key in place.
// It reports whether a registered surface was notified; when it returns
// false the caller has to launch a surface.
func (q *AlarmQueue) Enqueue(alarm models.PendingAlarm) bool {
	key := alarm.Key()

	q.mu.Lock()
	if _, exists := q.alarms[key]; !exists {
		q.order = append(q.order, key)
	}
	q.alarms[key] = alarm
	q.assertUniqueLocked(key)
	snap, cb := q.publishLocked()
	q.mu.Unlock()

	q.logger.Debug("alarm enqueued", "key", key.String(), "delivery_id", alarm.DeliveryID, "surface", cb != nil)

	if cb == nil {
		return false
	}
	cb(snap)
	return true
}

// Dequeue removes the entry with key and reports whether it was present
func (q *AlarmQueue) Dequeue(key models.AlarmKey) bool {
	q.mu.Lock()
	if _, exists := q.alarms[key]; !exists {
		q.mu.Unlock()
		return false
	}
	delete(q.alarms, key)
	for i, k := range q.order {
		if k == key {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
	snap, cb := q.publishLocked()
	q.mu.Unlock()

	if cb != nil {
		cb(snap)
	}
	return true
}

// All returns the entries in insertion order
func (q *AlarmQueue) All() []models.PendingAlarm {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.listLocked()
}

// Get returns the entry with key
func (q *AlarmQueue) Get(key models.AlarmKey) (models.PendingAlarm, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	a, ok := q.alarms[key]
	return a, ok
}

func (q *AlarmQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order)
}

// RegisterSurfaceCallback installs cb, replacing any previous one, and
// returns the current content in the same critical section.
func (q *AlarmQueue) RegisterSurfaceCallback(cb SurfaceCallback) Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.callback = cb
	return Snapshot{Seq: q.seq, Alarms: q.listLocked()}
}

// UnregisterSurfaceCallback removes the callback
func (q *AlarmQueue) UnregisterSurfaceCallback() {
	q.mu.Lock()
	q.callback = nil
	q.mu.Unlock()
}

// ReleaseSurfaceIfEmpty removes the callback only if the queue is empty.
// Checking and unregistering happen atomically, so an Enqueue racing with the
// surface closing either lands in the open surface or launches a new one.
func (q *AlarmQueue) ReleaseSurfaceIfEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.order) > 0 {
		return false
	}
	q.callback = nil
	return true
}

// IsSurfaceActive reports whether a surface callback is registered
func (q *AlarmQueue) IsSurfaceActive() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.callback != nil
}

func (q *AlarmQueue) publishLocked() (Snapshot, SurfaceCallback) {
	q.seq++
	if q.callback == nil {
		return Snapshot{}, nil
	}
	return Snapshot{Seq: q.seq, Alarms: q.listLocked()}, q.callback
}

func (q *AlarmQueue) listLocked() []models.PendingAlarm {
	out := make([]models.PendingAlarm, 0, len(q.order))
	for _, k := range q.order {
		out = append(out, q.alarms[k])
	}
	return out
}

// assertUniqueLocked logs if key is indexed more than once
func (q *AlarmQueue) assertUniqueLocked(key models.AlarmKey) {
	n := 0
	for _, k := range q.order {
		if k == key {
			n++
		}
	}
	if n > 1 || len(q.order) != len(q.alarms) {
		q.logger.Error("pending alarm queue is inconsistent",
			"key", key.String(),
			"occurrences", n,
			"error", models.ErrQueueKeyCollision,
			"error_kind", models.ErrorKind(models.ErrQueueKeyCollision),
		)
	}
}
