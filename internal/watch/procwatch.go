package watch

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"winewarden/internal/types"
)

// ProcWatcher walks /proc on each Drain call to discover new descendants of
// a root pid, surfacing one synthetic AccessAttempt{Kind: Execute} per
// newly observed pid. It is observational only — it does not itself decide
// whether a spawn is allowed; that belongs to the policy engine's process
// rules, driven by whatever calls Drain.
type ProcWatcher struct {
	root string
	seen map[int]bool
}

// NewProcWatcher returns a watcher scoped to descendants of rootPID.
func NewProcWatcher(rootPID int) *ProcWatcher {
	return &ProcWatcher{root: strconv.Itoa(rootPID), seen: map[int]bool{rootPID: true}}
}

// Drain rescans /proc and returns one event per pid newly observed as a
// descendant of the root pid since the last call.
func (pw *ProcWatcher) Drain() []Event {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil
	}

	descendants := pw.descendantSet(entries)

	var out []Event
	for pid := range descendants {
		if pw.seen[pid] {
			continue
		}
		pw.seen[pid] = true
		name := processName(pid)
		out = append(out, Event{
			Source: "proc",
			Attempt: types.AccessAttempt{
				Timestamp: time.Now(),
				Kind:      types.AccessExecute,
				Target:    types.AccessTarget{Kind: types.TargetPath, Path: name},
			},
		})
	}
	return out
}

func (pw *ProcWatcher) descendantSet(entries []os.DirEntry) map[int]bool {
	parent := make(map[int]int)
	for _, e := range entries {
		pid, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		ppid := readPPID(pid)
		if ppid > 0 {
			parent[pid] = ppid
		}
	}

	rootPID, _ := strconv.Atoi(pw.root)
	descendants := map[int]bool{}
	for pid := range parent {
		p := pid
		for i := 0; i < 64; i++ {
			pp, ok := parent[p]
			if !ok {
				break
			}
			if pp == rootPID {
				descendants[pid] = true
				break
			}
			p = pp
		}
	}
	return descendants
}

func readPPID(pid int) int {
	data, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "stat"))
	if err != nil {
		return 0
	}
	// Format: "pid (comm) state ppid ..." — comm may contain spaces/parens,
	// so split on the last ')' before reading the fixed fields after it.
	s := string(data)
	idx := strings.LastIndex(s, ")")
	if idx < 0 || idx+2 >= len(s) {
		return 0
	}
	fields := strings.Fields(s[idx+2:])
	if len(fields) < 2 {
		return 0
	}
	ppid, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0
	}
	return ppid
}

func processName(pid int) string {
	data, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "comm"))
	if err != nil {
		return strconv.Itoa(pid)
	}
	return strings.TrimSpace(string(data))
}

// Close is a no-op: ProcWatcher owns no resources beyond the seen-set.
func (pw *ProcWatcher) Close() error { return nil }
