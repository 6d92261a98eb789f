package models

import (
	"strings"
	"time"
)

// Registry backends
const (
	RegistrySQLite      = "sqlite"
	RegistryPreferences = "preferences"
)

// Config holds the daemon configuration loaded from the YAML config file
type Config struct {
	AutoStart             bool         `yaml:"auto_start"`
	ICalSources           []ICalSource `yaml:"ical_sources"`
	LookaheadDays         int          `yaml:"lookahead_days"`
	EventCacheSeconds     int          `yaml:"event_cache_seconds"`
	CalendarCacheMinutes  int          `yaml:"calendar_cache_minutes"`
	RescheduleMinutes     int          `yaml:"reschedule_minutes"`
	AutoDismissMinutes    int          `yaml:"auto_dismiss_minutes"`
	MaxTimerRegistrations int          `yaml:"max_timer_registrations"`
	Registry              string       `yaml:"registry"`   // sqlite or preferences
	StateDB               string       `yaml:"state_db"`   // SQLite file for the sqlite registry
	SoundFile             string       `yaml:"sound_file"` // optional WAV played while reminders are shown
	SkipAllDay            bool         `yaml:"skip_all_day"`
	NotifyUnaccepted      bool         `yaml:"notify_unaccepted"`
	LogLevel              string       `yaml:"log_level"`
	SchedulingParallelism int          `yaml:"scheduling_parallelism"`
}

// ICalSource represents a named iCal calendar source
type ICalSource struct {
	ID   string `yaml:"id"`   // Unique identifier
	Name string `yaml:"name"` // Display name, used as the event's calendar name
	URL  string `yaml:"url"`  // iCal URL
}

// DefaultConfig returns the configuration used when no file exists yet
func DefaultConfig() *Config {
	return &Config{
		AutoStart:             true,
		ICalSources:           []ICalSource{},
		LookaheadDays:         30,
		EventCacheSeconds:     30,
		CalendarCacheMinutes:  5,
		RescheduleMinutes:     5,
		AutoDismissMinutes:    2,
		MaxTimerRegistrations: 500,
		Registry:              RegistrySQLite,
		NotifyUnaccepted:      true,
		LogLevel:              "info",
		SchedulingParallelism: 4,
	}
}

// Normalize fills in missing or invalid values with defaults
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.ICalSources == nil {
		c.ICalSources = []ICalSource{}
	}
	if c.LookaheadDays <= 0 {
		c.LookaheadDays = def.LookaheadDays
	}
	if c.EventCacheSeconds <= 0 {
		c.EventCacheSeconds = def.EventCacheSeconds
	}
	if c.CalendarCacheMinutes <= 0 {
		c.CalendarCacheMinutes = def.CalendarCacheMinutes
	}
	if c.RescheduleMinutes <= 0 {
		c.RescheduleMinutes = def.RescheduleMinutes
	}
	if c.AutoDismissMinutes <= 0 {
		c.AutoDismissMinutes = def.AutoDismissMinutes
	}
	if c.MaxTimerRegistrations <= 0 {
		c.MaxTimerRegistrations = def.MaxTimerRegistrations
	}
	switch strings.ToLower(strings.TrimSpace(c.Registry)) {
	case RegistryPreferences:
		c.Registry = RegistryPreferences
	default:
		c.Registry = RegistrySQLite
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.SchedulingParallelism <= 0 {
		c.SchedulingParallelism = def.SchedulingParallelism
	}
}

// NeedsConfiguration returns true if the config has no calendar to read from
func (c *Config) NeedsConfiguration() bool {
	return len(c.ValidSources()) == 0
}

// ValidSources returns the sources that have both a name and a URL
func (c *Config) ValidSources() []ICalSource {
	valid := make([]ICalSource, 0, len(c.ICalSources))
	for _, s := range c.ICalSources {
		if s.Validate() {
			valid = append(valid, s)
		}
	}
	return valid
}

func (c *Config) Lookahead() time.Duration {
	return time.Duration(c.LookaheadDays) * 24 * time.Hour
}

func (c *Config) EventCacheTTL() time.Duration {
	return time.Duration(c.EventCacheSeconds) * time.Second
}

func (c *Config) CalendarCacheTTL() time.Duration {
	return time.Duration(c.CalendarCacheMinutes) * time.Minute
}

func (c *Config) RescheduleInterval() time.Duration {
	return time.Duration(c.RescheduleMinutes) * time.Minute
}

func (c *Config) AutoDismissAfter() time.Duration {
	return time.Duration(c.AutoDismissMinutes) * time.Minute
}

// Validate checks if the iCal source has required fields
func (s *ICalSource) Validate() bool {
	return s.Name != "" && s.URL != ""
}
