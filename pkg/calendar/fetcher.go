package calendar

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/borgmon/remindkeeper/pkg/logging"
	"github.com/borgmon/remindkeeper/pkg/models"
	"github.com/emersion/go-ical"
	"github.com/spf13/afero"
)

const fetchTimeout = 30 * time.Second

// ICalSource reads events from the configured iCal subscriptions.
// http(s) and webcal URLs are fetched, file:// URLs are read from Fs.
type ICalSource struct {
	Sources          []models.ICalSource
	Client           *http.Client
	Fs               afero.Fs
	SkipAllDay       bool
	NotifyUnaccepted bool
	// Lookahead is the window used to count events for Calendars
	Lookahead time.Duration
	Logger    *slog.Logger
	Now       func() time.Time
}

var _ Source = (*ICalSource)(nil)

// NewICalSource builds a source from the config
func NewICalSource(cfg *models.Config, fs afero.Fs, logger *slog.Logger) *ICalSource {
	return &ICalSource{
		Sources:          cfg.ValidSources(),
		Client:           &http.Client{Timeout: fetchTimeout},
		Fs:               fs,
		SkipAllDay:       cfg.SkipAllDay,
		NotifyUnaccepted: cfg.NotifyUnaccepted,
		Lookahead:        cfg.Lookahead(),
		Logger:           logger,
	}
}

// Events fetches every source. A failing source fails the whole call so the
// caller never mistakes an unreachable calendar for an empty one.
func (s *ICalSource) Events(ctx context.Context, from, to time.Time) ([]models.CalendarEvent, error) {
	var all []models.CalendarEvent
	for _, src := range s.Sources {
		events, err := s.FetchEvents(ctx, src, from, to)
		if err != nil {
			return nil, fmt.Errorf("calendar %q: %w", src.Name, err)
		}
		all = append(all, events...)
	}
	return all, nil
}

// Calendars reports reachability and upcoming event counts per source.
// Per-source failures are recorded in the result, not returned.
func (s *ICalSource) Calendars(ctx context.Context) ([]models.CalendarInfo, error) {
	now := s.now()
	lookahead := s.Lookahead
	if lookahead <= 0 {
		lookahead = models.DefaultConfig().Lookahead()
	}

	infos := make([]models.CalendarInfo, 0, len(s.Sources))
	for _, src := range s.Sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info := models.CalendarInfo{ID: src.ID, Name: src.Name, URL: redactURL(src.URL)}
		events, err := s.FetchEvents(ctx, src, now, now.Add(lookahead))
		if err != nil {
			info.Error = err.Error()
		} else {
			info.Reachable = true
			info.EventCount = len(events)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// FetchEvents fetches, parses, expands and filters one source
func (s *ICalSource) FetchEvents(ctx context.Context, src models.ICalSource, from, to time.Time) ([]models.CalendarEvent, error) {
	body, err := s.fetch(ctx, src.URL)
	if err != nil {
		return nil, err
	}
	return s.parse(body, src, from, to)
}

func (s *ICalSource) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid calendar URL: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "file":
		if s.Fs == nil {
			return nil, fmt.Errorf("file calendars are not supported")
		}
		return afero.ReadFile(s.Fs, u.Path)
	case "webcal":
		u.Scheme = "https"
	case "http", "https":
	default:
		return nil, fmt.Errorf("unsupported calendar URL scheme %q", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: HTTP %d", models.ErrPermissionDenied, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("unexpected HTTP status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

func (s *ICalSource) parse(body []byte, src models.ICalSource, from, to time.Time) ([]models.CalendarEvent, error) {
	if err := validateICalFormat(body); err != nil {
		return nil, err
	}

	logger := logging.Or(s.Logger).With("source", src.Name)
	stats := &filterStats{}

	var parsed []parsedEvent
	decoder := ical.NewDecoder(bytes.NewReader(body))
	for {
		cal, err := decoder.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode calendar: %w", err)
		}

		for _, comp := range cal.Children {
			stats.totalComponents++
			if comp.Name != ical.CompEvent {
				continue
			}
			stats.totalEvents++
			parsed = append(parsed, parseEvent(comp))
		}
	}

	// Fallback: deterministic ID from start time and title when there is no UID
	withoutUID := 0
	for i := range parsed {
		if parsed[i].UID == "" {
			parsed[i].ID = src.ID + "-" + parsed[i].StartTime.Format(time.RFC3339) + "-" + parsed[i].Title
			withoutUID++
		}
	}
	if withoutUID > 0 {
		logger.Debug("generated fallback IDs for events without UID", "count", withoutUID)
	}

	opts := filterOptions{skipAllDay: s.SkipAllDay, notifyUnaccepted: s.NotifyUnaccepted}
	seenIDs := make(map[string]bool)
	seenKeys := make(map[string]bool)

	var events []models.CalendarEvent
	for _, ev := range expandEvents(parsed, from, to, logger) {
		if !shouldIncludeEvent(ev, from, to, opts, stats, logger) {
			continue
		}
		if isDuplicate(ev, seenIDs, seenKeys, stats, logger) {
			continue
		}
		out := ev.CalendarEvent
		out.CalendarID = src.ID
		out.CalendarName = src.Name
		events = append(events, out)
	}

	stats.log(logger, src.Name, len(events))
	return events, nil
}

func validateICalFormat(body []byte) error {
	trimmed := strings.TrimSpace(string(body))
	upper := strings.ToUpper(trimmed)
	if strings.HasPrefix(upper, "<!DOCTYPE") || strings.HasPrefix(upper, "<HTML") {
		return fmt.Errorf("received HTML instead of iCalendar data - check if URL requires authentication")
	}

	if !strings.HasPrefix(upper, "BEGIN:VCALENDAR") {
		preview := trimmed
		if len(preview) > 100 {
			preview = preview[:100]
		}
		return fmt.Errorf("invalid iCalendar format - expected BEGIN:VCALENDAR, got: %s", preview)
	}

	return nil
}

func isDuplicate(event parsedEvent, seenIDs, seenKeys map[string]bool, stats *filterStats, logger *slog.Logger) bool {
	if seenIDs[event.ID] {
		stats.filteredDuplicates++
		logger.Debug("[FILTERED] duplicate ID", "title", event.Title, "id", event.ID)
		return true
	}

	key := event.Title + "|" + event.StartTime.Format(time.RFC3339)
	if seenKeys[key] {
		stats.filteredDuplicates++
		logger.Debug("[FILTERED] duplicate title and time", "title", event.Title, "start", event.StartTime.Format(logTimeFormat))
		return true
	}

	seenIDs[event.ID] = true
	seenKeys[key] = true
	return false
}

// redactURL keeps scheme and host; subscription paths usually embed a secret token
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "<redacted>"
	}
	return u.Scheme + "://" + u.Host + "/…"
}

func (s *ICalSource) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
