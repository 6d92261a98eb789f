package models

import "time"

// AlarmFailure records an alarm that could not be registered after all attempts
type AlarmFailure struct {
	Key      AlarmKey
	FireTime time.Time
	Attempts int
	Err      error
}

// SchedulingReport summarizes one scheduling pass
type SchedulingReport struct {
	Scheduled        int // New registrations verified in this pass
	AlreadyScheduled int // Required alarms that were already registered
	CleanedOrphans   int // Registrations cancelled for vanished events
	Skipped          int // Required alarms too close to now (or in the past)
	Pruned           int // Registrations cancelled because their kind is no longer required
	Failures         []AlarmFailure

	// PermissionDenied is set when the run was aborted by a permission-class error.
	// The caller has to ask the user for access; nothing retries it automatically.
	PermissionDenied bool
}

// Merge adds the counts and failures of other into r
func (r *SchedulingReport) Merge(other SchedulingReport) {
	r.Scheduled += other.Scheduled
	r.AlreadyScheduled += other.AlreadyScheduled
	r.CleanedOrphans += other.CleanedOrphans
	r.Skipped += other.Skipped
	r.Pruned += other.Pruned
	r.Failures = append(r.Failures, other.Failures...)
	r.PermissionDenied = r.PermissionDenied || other.PermissionDenied
}

// OK reports whether the pass finished without permission or per-alarm failures
func (r SchedulingReport) OK() bool {
	return !r.PermissionDenied && len(r.Failures) == 0
}
