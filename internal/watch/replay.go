package watch

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"winewarden/internal/types"
)

// EventSource produces a finite sequence of access attempts until
// exhausted. The supervisor drains one after the child has exited so a
// recorded event log can be folded into the same decision pipeline live
// events go through.
type EventSource interface {
	// NextEvent returns the next attempt, or ok=false once the source is
	// exhausted.
	NextEvent() (attempt types.AccessAttempt, ok bool, err error)
	Close() error
}

// NoopSource is the EventSource used when no replay log was given.
type NoopSource struct{}

func (NoopSource) NextEvent() (types.AccessAttempt, bool, error) {
	return types.AccessAttempt{}, false, nil
}

func (NoopSource) Close() error { return nil }

// JSONLSource replays access attempts from a JSON-lines file, one
// attempt object per line. Blank lines are skipped; a malformed line is
// an error so a truncated log is noticed rather than silently dropped.
type JSONLSource struct {
	f       *os.File
	scanner *bufio.Scanner
}

// OpenJSONL opens the replay log at path.
func OpenJSONL(path string) (*JSONLSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open event log %s: %w", path, err)
	}
	return &JSONLSource{f: f, scanner: bufio.NewScanner(f)}, nil
}

func (s *JSONLSource) NextEvent() (types.AccessAttempt, bool, error) {
	for s.scanner.Scan() {
		line := s.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var attempt types.AccessAttempt
		if err := json.Unmarshal(line, &attempt); err != nil {
			return types.AccessAttempt{}, false, fmt.Errorf("parse event log line: %w", err)
		}
		return attempt, true, nil
	}
	return types.AccessAttempt{}, false, s.scanner.Err()
}

func (s *JSONLSource) Close() error { return s.f.Close() }
