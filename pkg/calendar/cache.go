package calendar

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/borgmon/remindkeeper/pkg/clock"
	"github.com/borgmon/remindkeeper/pkg/logging"
	"github.com/borgmon/remindkeeper/pkg/models"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultEventTTL    = 30 * time.Second
	DefaultCalendarTTL = 5 * time.Minute
	DefaultLookahead   = 30 * 24 * time.Hour
)

// CacheOptions configures a Cache. Zero values use the defaults.
type CacheOptions struct {
	EventTTL    time.Duration
	CalendarTTL time.Duration
	Lookahead   time.Duration
	Clock       clock.Clock
	Logger      *slog.Logger
}

// Cache is a short-lived snapshot of normalized upcoming events.
//
// A snapshot younger than EventTTL is returned as is. Concurrent misses share
// one source query. Invalidate bumps a generation counter, and a query that
// started before the bump does not store its result.
type Cache struct {
	source Source
	opts   CacheOptions
	group  singleflight.Group

	mu         sync.Mutex
	events     []models.CalendarEvent
	fetchedAt  time.Time
	valid      bool
	generation uint64

	calendars   []models.CalendarInfo
	calendarsAt time.Time
}

// NewCache wraps source
func NewCache(source Source, opts CacheOptions) *Cache {
	if opts.EventTTL <= 0 {
		opts.EventTTL = DefaultEventTTL
	}
	if opts.CalendarTTL <= 0 {
		opts.CalendarTTL = DefaultCalendarTTL
	}
	if opts.Lookahead <= 0 {
		opts.Lookahead = DefaultLookahead
	}
	opts.Clock = clock.Or(opts.Clock)
	opts.Logger = logging.Or(opts.Logger)
	return &Cache{source: source, opts: opts}
}

// GetEvents returns normalized events starting within the lookahead window
func (c *Cache) GetEvents(ctx context.Context) ([]models.CalendarEvent, error) {
	now := c.opts.Clock.Now()

	c.mu.Lock()
	if c.valid && now.Sub(c.fetchedAt) < c.opts.EventTTL {
		events := cloneEvents(c.events)
		c.mu.Unlock()
		return events, nil
	}
	gen := c.generation
	c.mu.Unlock()

	v, err, shared := c.group.Do("events:"+strconv.FormatUint(gen, 10), func() (any, error) {
		return c.load(ctx, gen)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logging.FromContextOr(ctx, c.opts.Logger).Debug("event query shared with concurrent caller")
	}
	return cloneEvents(v.([]models.CalendarEvent)), nil
}

func (c *Cache) load(ctx context.Context, gen uint64) ([]models.CalendarEvent, error) {
	now := c.opts.Clock.Now()
	raw, err := c.source.Events(ctx, now, now.Add(c.opts.Lookahead))
	if err != nil {
		return nil, err
	}

	events := make([]models.CalendarEvent, 0, len(raw))
	for _, ev := range raw {
		events = append(events, ev.Normalize())
	}

	c.mu.Lock()
	if c.generation == gen {
		c.events = events
		c.fetchedAt = now
		c.valid = true
	}
	c.mu.Unlock()

	logging.FromContextOr(ctx, c.opts.Logger).Debug("event cache refreshed", "events", len(events), "stored", c.isGeneration(gen))
	return events, nil
}

// Invalidate drops the snapshot. The next GetEvents queries the source.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.generation++
	c.valid = false
	c.events = nil
	c.mu.Unlock()
}

// Calendars returns the calendar enumeration, cached independently of events
func (c *Cache) Calendars(ctx context.Context) ([]models.CalendarInfo, error) {
	now := c.opts.Clock.Now()

	c.mu.Lock()
	if c.calendars != nil && now.Sub(c.calendarsAt) < c.opts.CalendarTTL {
		out := append([]models.CalendarInfo(nil), c.calendars...)
		c.mu.Unlock()
		return out, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do("calendars", func() (any, error) {
		infos, err := c.source.Calendars(ctx)
		if err != nil {
			return nil, err
		}
		if infos == nil {
			infos = []models.CalendarInfo{}
		}
		c.mu.Lock()
		c.calendars = infos
		c.calendarsAt = now
		c.mu.Unlock()
		return infos, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]models.CalendarInfo(nil), v.([]models.CalendarInfo)...), nil
}

func (c *Cache) isGeneration(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation == gen
}

func cloneEvents(events []models.CalendarEvent) []models.CalendarEvent {
	out := make([]models.CalendarEvent, len(events))
	copy(out, events)
	return out
}
