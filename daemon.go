package main

import (
	"context"
	"fmt"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"github.com/urfave/cli"

	"github.com/borgmon/remindkeeper/pkg/audio"
	"github.com/borgmon/remindkeeper/pkg/models"
	"github.com/borgmon/remindkeeper/pkg/platform"
	"github.com/borgmon/remindkeeper/pkg/scheduler"
	"github.com/borgmon/remindkeeper/pkg/store"
	"github.com/borgmon/remindkeeper/pkg/surface"
	"github.com/borgmon/remindkeeper/pkg/timer"
	"github.com/borgmon/remindkeeper/pkg/ui"
)

const appID = "io.github.borgmon.remindkeeper"

// RemindKeeper is the running daemon
type RemindKeeper struct {
	*env
	app        fyne.App
	ctx        context.Context
	cancel     context.CancelFunc
	timers     *timer.Manager
	reminders  *scheduler.Reminders
	background *scheduler.Background
	controller *surface.Controller
	player     *audio.Player
	closers    []func() error

	mu         sync.Mutex
	lastReport models.SchedulingReport
	lastErr    error
}

func runDaemon(c *cli.Context) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}

	rk := &RemindKeeper{env: e, app: app.NewWithID(appID)}
	rk.ctx, rk.cancel = context.WithCancel(context.Background())
	defer rk.cancel()

	if err := rk.initialize(); err != nil {
		rk.shutdown()
		return err
	}
	rk.run()
	rk.shutdown()
	return nil
}

func (rk *RemindKeeper) initialize() error {
	cfg := rk.config
	logger := rk.logger

	if as, err := platform.NewAutostart(logger, "run"); err != nil {
		logger.Warn("autostart unavailable", "error", err)
	} else if err := as.Sync(cfg.AutoStart); err != nil {
		logger.Warn("failed to sync autostart", "error", err)
	}

	settings := store.NewSettings(rk.app)

	var registry scheduler.Registry
	var ledger scheduler.Ledger
	switch cfg.Registry {
	case models.RegistryPreferences:
		registry = store.NewPrefsRegistry(rk.app)
	default:
		db, err := store.OpenSQLiteRegistry(rk.ctx, rk.statePath())
		if err != nil {
			return fmt.Errorf("open state db: %w", err)
		}
		rk.closers = append(rk.closers, db.Close)
		registry, ledger = db, db
	}

	rk.timers = timer.NewManager(timer.Options{
		MaxRegistrations: cfg.MaxTimerRegistrations,
		Logger:           logger,
	})

	reconciler := scheduler.NewReconciler(registry, rk.timers, ledger, logger)
	engine := scheduler.NewEngine(rk.cache, rk.timers, settings, reconciler, scheduler.Options{
		Parallelism: cfg.SchedulingParallelism,
		Ledger:      ledger,
		Logger:      logger,
	})
	rk.reminders = scheduler.NewReminders(engine, rk.cache, rk.timers)

	clip, err := audio.LoadClip(rk.fs, cfg.SoundFile)
	if err != nil {
		logger.Warn("sound file unusable, using the built-in chime", "error", err)
		clip = audio.Beep()
	}
	rk.player = audio.NewPlayer(clip, logger)

	queue := store.NewAlarmQueue(logger)
	window := ui.NewReminderWindow(rk.app, settings, rk.player, logger)
	rk.controller = surface.NewController(queue, engine, window, surface.Options{
		AutoDismiss: cfg.AutoDismissAfter(),
		Logger:      logger,
	})
	window.Bind(rk.controller)
	dispatcher := surface.NewDispatcher(queue, rk.controller, nil, logger)

	rk.background = scheduler.NewBackground(engine, rk.cache, nil, cfg.RescheduleInterval(), logger)
	rk.background.OnReport = rk.onReport

	rk.timers.Start(rk.ctx, dispatcher.Deliver)
	rk.setupSystemTray()

	if cfg.NeedsConfiguration() {
		logger.Warn("no calendars configured", "config", rk.store.Path())
	}
	return nil
}

func (rk *RemindKeeper) run() {
	rk.app.Lifecycle().SetOnStarted(func() {
		platform.HideFromDock()
		// Every timer is gone after a restart, so the first pass runs right away
		go rk.background.Boot(rk.ctx)
	})
	rk.app.Run()
}

func (rk *RemindKeeper) onReport(report models.SchedulingReport, err error) {
	rk.mu.Lock()
	rk.lastReport = report
	rk.lastErr = err
	rk.mu.Unlock()

	fyne.Do(rk.updateSystemTrayMenu)
}

func (rk *RemindKeeper) status() (models.SchedulingReport, error) {
	rk.mu.Lock()
	defer rk.mu.Unlock()
	return rk.lastReport, rk.lastErr
}

func (rk *RemindKeeper) quit() {
	rk.background.Stop()
	rk.cancel()
	rk.app.Quit()
}

func (rk *RemindKeeper) shutdown() {
	if rk.background != nil {
		rk.background.Stop()
	}
	if rk.controller != nil {
		rk.controller.Close()
	}
	rk.player.Stop()
	rk.cancel()
	for _, closeFn := range rk.closers {
		if err := closeFn(); err != nil {
			rk.logger.Warn("shutdown", "error", err)
		}
	}
}
