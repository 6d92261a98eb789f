package calendar

import (
	"log/slog"
	"time"
)

const logTimeFormat = "2006-01-02 15:04"

type filterOptions struct {
	skipAllDay       bool
	notifyUnaccepted bool
}

func shouldIncludeEvent(event parsedEvent, from, to time.Time, opts filterOptions, stats *filterStats, logger *slog.Logger) bool {
	if event.StartTime.IsZero() || event.EndTime.IsZero() {
		stats.filteredMissingTime++
		logger.Debug("[FILTERED] missing time", "title", event.Title, "start", event.StartTime, "end", event.EndTime)
		return false
	}

	if event.Status == "CANCELLED" {
		stats.filteredCancelled++
		logger.Debug("[FILTERED] cancelled", "title", event.Title, "start", event.StartTime.Format(logTimeFormat))
		return false
	}

	if !opts.notifyUnaccepted && event.Status == "NEEDS-ACTION" {
		stats.filteredUnaccepted++
		logger.Debug("[FILTERED] not accepted", "title", event.Title, "start", event.StartTime.Format(logTimeFormat))
		return false
	}

	if opts.skipAllDay && isAllDayEvent(event) {
		stats.filteredAllDay++
		logger.Debug("[FILTERED] all-day", "title", event.Title,
			"start", event.StartTime.Format(logTimeFormat), "duration", event.EndTime.Sub(event.StartTime))
		return false
	}

	if event.StartTime.Before(to) && event.EndTime.After(from) {
		return true
	}

	stats.filteredOutsideWindow++
	return false
}

func isAllDayEvent(event parsedEvent) bool {
	if event.AllDay {
		return true
	}
	startDate := event.StartTime.Format("2006-01-02")
	endDate := event.EndTime.Format("2006-01-02")
	return startDate != endDate && event.EndTime.Sub(event.StartTime) >= 24*time.Hour
}

type filterStats struct {
	totalComponents       int
	totalEvents           int
	filteredMissingTime   int
	filteredCancelled     int
	filteredUnaccepted    int
	filteredAllDay        int
	filteredOutsideWindow int
	filteredDuplicates    int
}

func (s *filterStats) filtered() int {
	return s.filteredMissingTime + s.filteredCancelled + s.filteredUnaccepted +
		s.filteredAllDay + s.filteredOutsideWindow + s.filteredDuplicates
}

func (s *filterStats) log(logger *slog.Logger, source string, included int) {
	logger.Debug("[SUMMARY] calendar parsed",
		"source", source,
		"components", s.totalComponents,
		"events", s.totalEvents,
		"included", included,
		"filtered", s.filtered(),
		"cancelled", s.filteredCancelled,
		"unaccepted", s.filteredUnaccepted,
		"all_day", s.filteredAllDay,
		"outside_window", s.filteredOutsideWindow,
		"missing_time", s.filteredMissingTime,
		"duplicates", s.filteredDuplicates,
	)
}
