package models

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrPermissionDenied is returned when calendar or timer access is refused.
	// It aborts a scheduling run and is not retried automatically.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrVerificationFailed means a registration was accepted but the lookup could not find it
	ErrVerificationFailed = errors.New("alarm registration not found after register")
	// ErrQueueKeyCollision means the pending queue holds two entries for one key
	ErrQueueKeyCollision = errors.New("pending alarm queue key collision")
	// ErrNoSurface is returned for surface actions while no surface is open
	ErrNoSurface = errors.New("no reminder surface is open")
	// ErrNotDisplayed is returned when acting on an entry that is not displayed
	ErrNotDisplayed = errors.New("reminder entry is not displayed")
)

// RegistrationError is the final outcome of a registration that exhausted its attempts.
// Err is ErrVerificationFailed or the last transient error returned by the facility.
type RegistrationError struct {
	Key      AlarmKey
	Attempts int
	Err      error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("register %s: gave up after %d attempts: %v", e.Key, e.Attempts, e.Err)
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}

// CleanupError wraps a failure while cancelling the alarms of a vanished event
type CleanupError struct {
	EventID string
	Err     error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("orphan cleanup for %s: %v", e.EventID, e.Err)
}

func (e *CleanupError) Unwrap() error {
	return e.Err
}

// ErrorKind maps errors to a stable logging label
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrVerificationFailed):
		return "verification_failed"
	case errors.Is(err, ErrQueueKeyCollision):
		return "queue_key_collision"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}

	var cErr *CleanupError
	if errors.As(err, &cErr) {
		return "orphan_cleanup"
	}
	var rErr *RegistrationError
	if errors.As(err, &rErr) {
		return "transient"
	}

	return "unexpected"
}
