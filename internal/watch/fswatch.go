package watch

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"winewarden/internal/types"
)

// FSWatcher backs the "fs" auxiliary source with fsnotify, the only real
// inotify wrapper in the pack. Its own goroutine drains fsnotify's channel
// into an internal queue; Drain is the non-blocking read of that queue.
type FSWatcher struct {
	watcher *fsnotify.Watcher

	mu     sync.Mutex
	queue  []Event
	closed chan struct{}
}

// NewFSWatcher watches each of roots (non-recursively; callers add
// subdirectories as they're discovered) for create/write/remove events.
func NewFSWatcher(roots []string) (*FSWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, root := range roots {
		// Best-effort: a root that doesn't exist yet is simply not watched.
		_ = w.Add(root)
	}

	fw := &FSWatcher{watcher: w, closed: make(chan struct{})}
	go fw.pump()
	return fw, nil
}

func (fw *FSWatcher) pump() {
	for {
		select {
		case ev, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.mu.Lock()
			fw.queue = append(fw.queue, Event{
				Source: "fs",
				Attempt: types.AccessAttempt{
					Timestamp: time.Now(),
					Kind:      kindForOp(ev.Op),
					Target:    types.AccessTarget{Kind: types.TargetPath, Path: ev.Name},
				},
			})
			fw.mu.Unlock()
		case _, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
		case <-fw.closed:
			return
		}
	}
}

func kindForOp(op fsnotify.Op) types.AccessKind {
	if op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
		return types.AccessWrite
	}
	return types.AccessRead
}

// AddPath starts watching an additional path discovered at runtime (e.g. a
// freshly bind-mounted virtual directory).
func (fw *FSWatcher) AddPath(path string) error {
	return fw.watcher.Add(path)
}

// Drain returns and clears whatever events have queued since the last call.
func (fw *FSWatcher) Drain() []Event {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	out := fw.queue
	fw.queue = nil
	return out
}

// Close stops the watcher and its pump goroutine.
func (fw *FSWatcher) Close() error {
	close(fw.closed)
	return fw.watcher.Close()
}
