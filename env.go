package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/afero"

	"github.com/borgmon/remindkeeper/pkg/calendar"
	"github.com/borgmon/remindkeeper/pkg/logging"
	"github.com/borgmon/remindkeeper/pkg/models"
	"github.com/borgmon/remindkeeper/pkg/store"
)

// env is what every command needs: the config, a logger and the event cache
type env struct {
	fs     afero.Fs
	store  *store.ConfigStore
	config *models.Config
	logger *slog.Logger
	source *calendar.ICalSource
	cache  *calendar.Cache
}

func loadEnv() (*env, error) {
	path := configPath
	if path == "" {
		def, err := store.DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = def
	}

	fs := afero.NewOsFs()
	cs := store.NewConfigStore(fs, path)
	cfg, err := cs.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	logger := logging.New(os.Stderr, level)
	slog.SetDefault(logger)

	source := calendar.NewICalSource(cfg, fs, logger)
	cache := calendar.NewCache(source, calendar.CacheOptions{
		EventTTL:    cfg.EventCacheTTL(),
		CalendarTTL: cfg.CalendarCacheTTL(),
		Lookahead:   cfg.Lookahead(),
		Logger:      logger,
	})

	return &env{
		fs:     fs,
		store:  cs,
		config: cfg,
		logger: logger,
		source: source,
		cache:  cache,
	}, nil
}

func (e *env) statePath() string {
	if e.config.StateDB != "" {
		return e.config.StateDB
	}
	return store.DefaultStatePath(e.store.Path())
}
