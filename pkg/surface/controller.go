// Package surface owns the lifetime of the reminder surface: which pending
// alarms it shows, what the user did with each of them and when it closes.
package surface

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/borgmon/remindkeeper/pkg/clock"
	"github.com/borgmon/remindkeeper/pkg/logging"
	"github.com/borgmon/remindkeeper/pkg/models"
	"github.com/borgmon/remindkeeper/pkg/store"
	"github.com/google/uuid"
)

// DefaultAutoDismiss is how long a surface stays up without user action
const DefaultAutoDismiss = 2 * time.Minute

// EntryState is the lifecycle state of one entry on the surface
type EntryState int

const (
	StateDisplayed EntryState = iota + 1
	StateDismissed
	StateSnoozed
	StateAutoDismissed
)

func (s EntryState) String() string {
	switch s {
	case StateDisplayed:
		return "displayed"
	case StateDismissed:
		return "dismissed"
	case StateSnoozed:
		return "snoozed"
	case StateAutoDismissed:
		return "auto_dismissed"
	default:
		return "unknown"
	}
}

// View presents the surface. Its methods are called with the controller lock
// held and must not call back into the Controller synchronously.
type View interface {
	Open(alarms []models.PendingAlarm, deadline time.Time)
	Update(alarms []models.PendingAlarm)
	Close()
}

// Queue is the part of the pending alarm queue the controller drives
type Queue interface {
	RegisterSurfaceCallback(cb store.SurfaceCallback) store.Snapshot
	UnregisterSurfaceCallback()
	ReleaseSurfaceIfEmpty() bool
	Dequeue(key models.AlarmKey) bool
}

// Snoozer registers the re-alert of a snoozed entry
type Snoozer interface {
	ScheduleSnooze(ctx context.Context, alarm models.PendingAlarm, at time.Time) error
}

type Options struct {
	AutoDismiss time.Duration
	Clock       clock.Clock
	Logger      *slog.Logger
}

// Controller coalesces fired alarms into a single surface. Lock order is
// controller then queue; queue mutations are never made under the controller lock.
type Controller struct {
	queue   Queue
	snoozer Snoozer
	view    View
	clock   clock.Clock
	logger  *slog.Logger
	timeout time.Duration

	mu       sync.Mutex
	open     bool
	gen      uint64
	session  string
	deadline time.Time
	timer    clock.Timer
	lastSeq  uint64
	order    []models.AlarmKey
	alarms   map[models.AlarmKey]models.PendingAlarm
	states   map[models.AlarmKey]EntryState
}

func NewController(queue Queue, snoozer Snoozer, view View, opts Options) *Controller {
	if opts.AutoDismiss <= 0 {
		opts.AutoDismiss = DefaultAutoDismiss
	}
	return &Controller{
		queue:   queue,
		snoozer: snoozer,
		view:    view,
		clock:   clock.Or(opts.Clock),
		logger:  logging.Or(opts.Logger),
		timeout: opts.AutoDismiss,
	}
}

// Open shows the surface with every queued entry. It is a no-op while a surface is open.
func (c *Controller) Open() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open {
		return
	}

	c.open = true
	c.gen++
	gen := c.gen
	c.session = uuid.NewString()
	c.lastSeq = 0
	c.order = nil
	c.alarms = make(map[models.AlarmKey]models.PendingAlarm)
	c.states = make(map[models.AlarmKey]EntryState)

	snap := c.queue.RegisterSurfaceCallback(func(s store.Snapshot) { c.onSnapshot(gen, s) })
	c.applyLocked(snap)
	c.armLocked(gen)

	c.logger.Info("reminder surface opened", "session", c.session, "entries", len(c.order), "deadline", c.deadline)
	c.view.Open(c.visibleLocked(), c.deadline)

	// Everything was handled between the delivery and this call
	if len(c.order) == 0 && c.queue.ReleaseSurfaceIfEmpty() {
		c.finishLocked("empty")
	}
}

// Dismiss removes a displayed entry without scheduling anything
func (c *Controller) Dismiss(key models.AlarmKey) error {
	if err := c.transition(key, StateDismissed); err != nil {
		return err
	}
	c.logger.Info("reminder dismissed", "key", key.String())
	c.queue.Dequeue(key)
	return nil
}

// Snooze registers a snooze alarm minutes from now and removes the entry.
// When the registration fails the entry stays displayed and the error is returned.
func (c *Controller) Snooze(ctx context.Context, key models.AlarmKey, minutes int) error {
	if minutes <= 0 {
		return fmt.Errorf("snooze minutes must be positive, got %d", minutes)
	}
	if err := c.transition(key, StateSnoozed); err != nil {
		return err
	}

	c.mu.Lock()
	alarm := c.alarms[key]
	gen := c.gen
	c.mu.Unlock()

	at := c.clock.Now().Add(time.Duration(minutes) * time.Minute)
	if err := c.snoozer.ScheduleSnooze(ctx, alarm, at); err != nil {
		c.mu.Lock()
		if c.open && c.gen == gen && c.states[key] == StateSnoozed {
			c.states[key] = StateDisplayed
			c.view.Update(c.visibleLocked())
		}
		c.mu.Unlock()
		c.logger.Warn("snooze failed, reminder kept", "key", key.String(), "error", err, "error_kind", models.ErrorKind(err))
		return err
	}

	c.logger.Info("reminder snoozed", "key", key.String(), "until", at)
	c.queue.Dequeue(key)
	return nil
}

// Resume re-checks the auto-dismiss deadline, for when the surface comes back
// to the foreground after its timer may have been held up
func (c *Controller) Resume() {
	c.mu.Lock()
	expired := c.open && c.timer != nil && !c.clock.Now().Before(c.deadline)
	gen := c.gen
	c.mu.Unlock()

	if expired {
		c.autoDismiss(gen)
	}
}

// Close tears the surface down without touching the queue
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return
	}
	c.queue.UnregisterSurfaceCallback()
	c.finishLocked("closed")
}

func (c *Controller) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Deadline returns the auto-dismiss deadline of the open surface
func (c *Controller) Deadline() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deadline, c.open
}

// EntryState returns the state of key on the open surface
func (c *Controller) EntryState(key models.AlarmKey) (EntryState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.states[key]
	return s, ok
}

// Entries returns the displayed entries in queue order
func (c *Controller) Entries() []models.PendingAlarm {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visibleLocked()
}

func (c *Controller) transition(key models.AlarmKey, to EntryState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return models.ErrNoSurface
	}
	if c.states[key] != StateDisplayed {
		return fmt.Errorf("%s: %w", key, models.ErrNotDisplayed)
	}
	c.states[key] = to
	c.view.Update(c.visibleLocked())
	return nil
}

func (c *Controller) onSnapshot(gen uint64, snap store.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open || gen != c.gen || snap.Seq <= c.lastSeq {
		return
	}
	c.applyLocked(snap)

	if len(snap.Alarms) == 0 {
		if c.queue.ReleaseSurfaceIfEmpty() {
			c.finishLocked("empty")
		}
		return
	}

	// The sweep already ran; entries that arrived afterwards get a new deadline
	if c.timer == nil && len(c.visibleLocked()) > 0 {
		c.armLocked(gen)
	}
	c.view.Update(c.visibleLocked())
}

// applyLocked adopts the queue content. New entries start Displayed, entries
// with a pending transition keep it, and entries no longer queued are dropped.
func (c *Controller) applyLocked(snap store.Snapshot) {
	c.lastSeq = snap.Seq
	states := make(map[models.AlarmKey]EntryState, len(snap.Alarms))
	alarms := make(map[models.AlarmKey]models.PendingAlarm, len(snap.Alarms))
	order := make([]models.AlarmKey, 0, len(snap.Alarms))
	for _, a := range snap.Alarms {
		key := a.Key()
		st, ok := c.states[key]
		if !ok {
			st = StateDisplayed
		}
		states[key] = st
		alarms[key] = a
		order = append(order, key)
	}
	c.states = states
	c.alarms = alarms
	c.order = order
}

func (c *Controller) visibleLocked() []models.PendingAlarm {
	out := make([]models.PendingAlarm, 0, len(c.order))
	for _, k := range c.order {
		if c.states[k] == StateDisplayed {
			out = append(out, c.alarms[k])
		}
	}
	return out
}

func (c *Controller) armLocked(gen uint64) {
	c.deadline = c.clock.Now().Add(c.timeout)
	c.timer = c.clock.AfterFunc(c.timeout, func() { c.autoDismiss(gen) })
}

func (c *Controller) autoDismiss(gen uint64) {
	c.mu.Lock()
	if !c.open || gen != c.gen {
		c.mu.Unlock()
		return
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	var keys []models.AlarmKey
	for _, k := range c.order {
		if c.states[k] == StateDisplayed {
			c.states[k] = StateAutoDismissed
			keys = append(keys, k)
		}
	}
	session := c.session
	c.mu.Unlock()

	c.logger.Info("reminders auto-dismissed", "session", session, "count", len(keys))
	for _, k := range keys {
		c.queue.Dequeue(k)
	}
}

func (c *Controller) finishLocked(reason string) {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.open = false
	c.order = nil
	c.alarms = nil
	c.states = nil
	c.view.Close()
	c.logger.Info("reminder surface closed", "session", c.session, "reason", reason)
}
