package platform

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/emersion/go-autostart"

	"github.com/borgmon/remindkeeper/pkg/logging"
)

// Autostart registers the daemon to start at login. Starting at login is
// how reminders come back after a reboot, since every timer is gone by then.
type Autostart struct {
	app    *autostart.App
	logger *slog.Logger
}

// NewAutostart describes the current executable started with args
func NewAutostart(logger *slog.Logger, args ...string) (*Autostart, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate executable: %w", err)
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return nil, fmt.Errorf("resolve executable: %w", err)
	}

	return &Autostart{
		app: &autostart.App{
			Name:        "remindkeeper",
			DisplayName: "RemindKeeper",
			Exec:        append([]string{execPath}, args...),
		},
		logger: logging.Or(logger),
	}, nil
}

// Sync enables or disables the login entry to match enable
func (a *Autostart) Sync(enable bool) error {
	switch {
	case enable && !a.app.IsEnabled():
		if err := a.app.Enable(); err != nil {
			return fmt.Errorf("enable autostart: %w", err)
		}
		a.logger.Info("autostart enabled", "exec", a.app.Exec)
	case !enable && a.app.IsEnabled():
		if err := a.app.Disable(); err != nil {
			return fmt.Errorf("disable autostart: %w", err)
		}
		a.logger.Info("autostart disabled")
	}
	return nil
}

func (a *Autostart) Enabled() bool {
	return a.app.IsEnabled()
}
