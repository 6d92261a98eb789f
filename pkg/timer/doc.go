// Package timer is the in-process alarm facility. Registrations are keyed by
// models.AlarmKey and held in a min-heap sorted by fire time. A single
// goroutine sleeps until the earliest fire time, capped at one minute so wall
// clock steps and host sleep are picked up, and hands due registrations to the
// delivery handler.
//
// The facility may refuse a registration without reporting an error (the
// manager does this once MaxRegistrations is reached). Callers verify with
// Lookup after Register.
package timer
