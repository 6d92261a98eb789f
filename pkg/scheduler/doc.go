// Package scheduler keeps the timer facility consistent with the calendar.
//
// The Engine turns events into required alarms and registers the missing
// ones, verifying each registration with a non-creating lookup and retrying
// silent rejections. The Reconciler cancels alarms of events that vanished
// since the previous pass. Background re-runs both on a self-rearming timer.
package scheduler
