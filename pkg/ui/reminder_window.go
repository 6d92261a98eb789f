// Package ui holds the fyne presentation of the reminder surface.
package ui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/borgmon/remindkeeper/pkg/logging"
	"github.com/borgmon/remindkeeper/pkg/models"
	"github.com/borgmon/remindkeeper/pkg/platform"
	"github.com/borgmon/remindkeeper/pkg/ui/components"
)

// Actions are the user transitions the window can request
type Actions interface {
	Dismiss(key models.AlarmKey) error
	Snooze(ctx context.Context, key models.AlarmKey, minutes int) error
	Resume()
}

// Settings provides the user preferences shown on the window
type Settings interface {
	SnoozeMinutes() int
	HoldTimeSeconds() int
}

// Sound is looped while the window is open
type Sound interface {
	Start() error
	Stop()
}

// ReminderWindow shows every displayed reminder in one window. It never
// calls Actions on the caller's goroutine.
type ReminderWindow struct {
	app      fyne.App
	settings Settings
	sound    Sound
	logger   *slog.Logger

	mu       sync.Mutex
	actions  Actions
	window   fyne.Window
	alarms   []models.PendingAlarm
	deadline time.Time
	stopMon  chan struct{}
}

func NewReminderWindow(app fyne.App, settings Settings, sound Sound, logger *slog.Logger) *ReminderWindow {
	return &ReminderWindow{
		app:      app,
		settings: settings,
		sound:    sound,
		logger:   logging.Or(logger),
	}
}

// Bind connects the window to the controller driving it
func (w *ReminderWindow) Bind(actions Actions) {
	w.mu.Lock()
	w.actions = actions
	w.mu.Unlock()
}

func (w *ReminderWindow) Open(alarms []models.PendingAlarm, deadline time.Time) {
	w.mu.Lock()
	w.alarms = alarms
	w.deadline = deadline
	stop := make(chan struct{})
	w.stopMon = stop
	w.mu.Unlock()

	if w.sound != nil {
		go func() {
			if err := w.sound.Start(); err != nil {
				w.logger.Warn("alarm sound unavailable", "error", err)
			}
		}()
	}

	fyne.Do(func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.window == nil {
			w.window = w.app.NewWindow("Reminders")
			w.window.SetOnClosed(w.onClosedByUser)
		}
		w.renderLocked()
		w.window.Show()
		w.window.RequestFocus()
	})
	go w.monitorFocus(stop)
}

func (w *ReminderWindow) Update(alarms []models.PendingAlarm) {
	w.mu.Lock()
	w.alarms = alarms
	w.mu.Unlock()

	fyne.Do(func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.window != nil {
			w.renderLocked()
		}
	})
}

func (w *ReminderWindow) Close() {
	w.mu.Lock()
	if w.stopMon != nil {
		close(w.stopMon)
		w.stopMon = nil
	}
	w.alarms = nil
	w.mu.Unlock()

	if w.sound != nil {
		go w.sound.Stop()
	}

	fyne.Do(func() {
		w.mu.Lock()
		win := w.window
		w.window = nil
		w.mu.Unlock()
		if win != nil {
			win.SetOnClosed(nil)
			win.Close()
		}
	})
}

// onClosedByUser treats closing the window as dismissing everything on it
func (w *ReminderWindow) onClosedByUser() {
	w.mu.Lock()
	alarms := w.alarms
	actions := w.actions
	w.window = nil
	w.mu.Unlock()

	if actions == nil {
		return
	}
	go func() {
		for _, a := range alarms {
			if err := actions.Dismiss(a.Key()); err != nil {
				w.logger.Debug("dismiss on close", "key", a.Key().String(), "error", err)
			}
		}
	}()
}

func (w *ReminderWindow) renderLocked() {
	hold := time.Duration(w.settings.HoldTimeSeconds()) * time.Second
	snooze := w.settings.SnoozeMinutes()

	header := canvas.NewText(headline(len(w.alarms)), nil)
	header.TextSize = 24
	header.TextStyle = fyne.TextStyle{Bold: true}
	header.Alignment = fyne.TextAlignCenter

	rows := container.NewVBox()
	for _, a := range w.alarms {
		rows.Add(w.row(a, snooze, hold))
		rows.Add(widget.NewSeparator())
	}

	footer := widget.NewLabel(fmt.Sprintf("Unanswered reminders close at %s", w.deadline.Local().Format("3:04 PM")))
	footer.Alignment = fyne.TextAlignCenter

	w.window.SetContent(container.NewPadded(container.NewBorder(
		container.NewPadded(header), footer, nil, nil,
		container.NewVScroll(rows),
	)))
	w.window.Resize(fyne.NewSize(560, float32(140+110*len(w.alarms))))
}

func (w *ReminderWindow) row(a models.PendingAlarm, snoozeMinutes int, hold time.Duration) fyne.CanvasObject {
	key := a.Key()

	title := widget.NewLabelWithStyle(a.Title, fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	title.Wrapping = fyne.TextWrapWord
	detail := widget.NewLabel(describe(a))

	dismiss := components.NewHoldButton(holdLabel("Dismiss", hold), hold, func() {
		w.act(func(actions Actions) error { return actions.Dismiss(key) })
	})
	buttons := container.NewHBox()
	if snoozeMinutes > 0 {
		buttons.Add(components.NewHoldButton(holdLabel(fmt.Sprintf("Snooze %dm", snoozeMinutes), hold), hold, func() {
			w.act(func(actions Actions) error { return actions.Snooze(context.Background(), key, snoozeMinutes) })
		}))
	}
	buttons.Add(dismiss)

	return container.NewVBox(title, detail, buttons)
}

func (w *ReminderWindow) act(f func(Actions) error) {
	w.mu.Lock()
	actions := w.actions
	w.mu.Unlock()
	if actions == nil {
		return
	}
	go func() {
		if err := f(actions); err != nil {
			w.logger.Warn("reminder action failed", "error", err, "error_kind", models.ErrorKind(err))
		}
	}()
}

// monitorFocus keeps the window in front and re-checks the deadline whenever
// the app regains focus
func (w *ReminderWindow) monitorFocus(stop chan struct{}) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	wasActive := true
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			active := platform.IsAppActive()
			if active && !wasActive {
				w.mu.Lock()
				actions := w.actions
				w.mu.Unlock()
				if actions != nil {
					actions.Resume()
				}
			}
			if !active {
				platform.ActivateApp()
				fyne.Do(func() {
					w.mu.Lock()
					defer w.mu.Unlock()
					if w.window != nil {
						w.window.Show()
					}
				})
			}
			wasActive = active
		}
	}
}

func headline(n int) string {
	if n == 1 {
		return "1 reminder"
	}
	return fmt.Sprintf("%d reminders", n)
}

func holdLabel(text string, hold time.Duration) string {
	if hold <= 0 {
		return text
	}
	return fmt.Sprintf("%s (hold %ds)", text, int(hold/time.Second))
}

// describe renders the secondary line of a reminder row
func describe(a models.PendingAlarm) string {
	parts := []string{a.Kind.Label()}
	if !a.StartTime.IsZero() {
		parts = append(parts, "starts "+a.StartTime.Local().Format("Mon 3:04 PM"))
	}
	if a.CalendarName != "" {
		parts = append(parts, a.CalendarName)
	}
	return strings.Join(parts, " · ")
}
