package store

import (
	"context"

	"fyne.io/fyne/v2"
)

const prefScheduledEventIDs = "previously_scheduled_event_ids"

// PrefsRegistry keeps the set of event IDs scheduled in the last run in fyne Preferences
type PrefsRegistry struct {
	prefs fyne.Preferences
}

func NewPrefsRegistry(app fyne.App) *PrefsRegistry {
	return &PrefsRegistry{prefs: app.Preferences()}
}

func (r *PrefsRegistry) Load(ctx context.Context) ([]string, error) {
	return append([]string(nil), r.prefs.StringList(prefScheduledEventIDs)...), nil
}

func (r *PrefsRegistry) Save(ctx context.Context, ids []string) error {
	r.prefs.SetStringList(prefScheduledEventIDs, append([]string(nil), ids...))
	return nil
}
