package timer

import (
	"time"

	"github.com/borgmon/remindkeeper/pkg/models"
)

// Registration is one armed alarm
type Registration struct {
	Key      models.AlarmKey
	FireTime time.Time
	// Exact asks the facility not to batch or defer the alarm
	Exact bool
	// WakeIfIdle asks the facility to fire even if the host is idle
	WakeIfIdle bool
	Payload    models.AlarmPayload
}

// Facility is the registration API the scheduling engine drives.
// Register replaces any registration with the same key.
type Facility interface {
	Register(r Registration) error
	// Cancel removes the registration with key. It reports whether one existed.
	Cancel(key models.AlarmKey) (bool, error)
	Exists(key models.AlarmKey) bool
	// Lookup returns the registration for key without creating one
	Lookup(key models.AlarmKey) (Registration, bool)
}

// Handler receives registrations when they fire
type Handler func(Registration)
