// Package watch implements the auxiliary watchers: a
// filesystem watcher, a /proc descendant walker, and a /proc/<pid>/net
// diff, each observational-only and exposing a non-blocking drain the
// supervisor loop polls in fixed order (fs, then proc, then net).
package watch

import "winewarden/internal/types"

// Event is one observation surfaced by an auxiliary watcher, paired with
// the watcher's own label so the supervisor can attribute it in logs.
type Event struct {
	Source  string
	Attempt types.AccessAttempt
}

// Drainer is the narrow capability every auxiliary watcher exposes: a
// non-blocking read of whatever events have queued since the last call.
// Each watcher may be backed by its own OS thread (fsnotify's case), but
// Drain itself never blocks.
type Drainer interface {
	Drain() []Event
	Close() error
}
