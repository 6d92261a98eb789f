package main

import (
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"

	"github.com/borgmon/remindkeeper/pkg/models"
)

func (rk *RemindKeeper) setupSystemTray() {
	rk.updateSystemTrayMenu()
}

func (rk *RemindKeeper) updateSystemTrayMenu() {
	desk, ok := rk.app.(desktop.App)
	if !ok {
		return
	}

	var items []*fyne.MenuItem
	disabled := func(label string) *fyne.MenuItem {
		item := fyne.NewMenuItem(label, nil)
		item.Disabled = true
		return item
	}

	if warning := rk.statusLine(); warning != "" {
		items = append(items, disabled(warning), fyne.NewMenuItemSeparator())
	}

	upcoming := upcomingToday(rk.reminders.Upcoming(0), time.Now(), 5)
	if len(upcoming) > 0 {
		items = append(items, disabled("Upcoming Today:"))
		for _, r := range upcoming {
			items = append(items, disabled(trayLine(r)))
		}
		items = append(items, fyne.NewMenuItemSeparator())
	}

	items = append(items,
		fyne.NewMenuItem("Sync Now", func() {
			rk.background.Trigger()
		}),
		fyne.NewMenuItem("Open Config File", rk.openConfig),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", rk.quit),
	)

	desk.SetSystemTrayMenu(fyne.NewMenu("RemindKeeper", items...))
	desk.SetSystemTrayIcon(theme.HistoryIcon())
}

// statusLine describes the last scheduling pass when it needs attention
func (rk *RemindKeeper) statusLine() string {
	if rk.config.NeedsConfiguration() {
		return "No calendars configured"
	}
	report, err := rk.status()
	switch {
	case report.PermissionDenied:
		return "Calendar or alarm access denied"
	case err != nil:
		return "Last sync failed: " + models.ErrorKind(err)
	case len(report.Failures) > 0:
		return fmt.Sprintf("%d reminders could not be armed", len(report.Failures))
	}
	return ""
}

func (rk *RemindKeeper) openConfig() {
	path, err := filepath.Abs(rk.store.Path())
	if err != nil {
		rk.logger.Warn("resolve config path", "error", err)
		return
	}
	if err := rk.app.OpenURL(&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}); err != nil {
		rk.logger.Warn("open config file", "error", err)
	}
}
