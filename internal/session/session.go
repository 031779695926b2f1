// Package session owns the per-run state: a Session is created when
// `run` is invoked and destroyed once
// the child has exited and all trailing events have drained, owning every
// tracker and producing a SessionReport handed to the reporting
// collaborator.
package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"winewarden/internal/pathmap"
	"winewarden/internal/types"
)

// Session aggregates the state a single run owns: identity, trackers, the
// path mapper and copy-on-write tracker, and the growing event stream that
// becomes a SessionReport at finalize time.
type Session struct {
	ID             string
	Metadata       types.SessionMetadata
	Profile        *types.BehaviorProfile
	ProcessTracker *types.ProcessTracker
	PathMapper     *pathmap.PathMapper
	CopyOnWrite    *pathmap.CopyOnWrite
	events         []types.SessionEvent
	stats          types.SessionStats
}

// New creates a session with a fresh uuid v4 identity
// startedAt is supplied by the caller, since this package never calls
// time.Now() itself.
func New(executable string, args []string, tier types.TrustTier, startedAt time.Time, mapper *pathmap.PathMapper) *Session {
	return &Session{
		ID: uuid.NewString(),
		Metadata: types.SessionMetadata{
			Executable: executable,
			Args:       args,
			StartedAt:  startedAt,
			TrustTier:  tier,
		},
		Profile:        &types.BehaviorProfile{},
		ProcessTracker: types.NewProcessTracker(),
		PathMapper:     mapper,
		CopyOnWrite:    pathmap.NewCopyOnWrite(),
	}
}

// End stamps Metadata.EndedAt, called once the child has exited and all
// trailing events have drained.
func (s *Session) End(endedAt time.Time) {
	s.Metadata.EndedAt = &endedAt
}

// RecordEvent appends a decided attempt to the session's event stream and
// updates the aggregate stats bucket it belongs to.
func (s *Session) RecordEvent(attempt types.AccessAttempt, decision types.PolicyDecision) {
	s.events = append(s.events, types.SessionEvent{Attempt: attempt, Decision: decision})
	s.stats.Total++
	switch decision.Action {
	case types.ActionAllow:
		s.stats.Allowed++
	case types.ActionDeny:
		s.stats.Denied++
	case types.ActionRedirect:
		s.stats.Redirected++
	case types.ActionVirtualize:
		s.stats.Virtualized++
	}
	if decision.SystemicRisk {
		s.stats.SystemicRisk++
	}
}

// Finalize produces the terminal SessionReport, stamping trust with the
// given score. Metadata.EndedAt is whatever End stamped; Finalize does not
// read the clock.
func (s *Session) Finalize(trustSignal types.TrustScore) types.SessionReport {
	return types.SessionReport{
		SessionID:   s.ID,
		Metadata:    s.Metadata,
		TrustSignal: trustSignal,
		Events:      s.events,
		Stats:       s.stats,
		Processes: types.ProcessSummary{
			ChildCount: s.ProcessTracker.ChildCount,
			Allowed:    s.ProcessTracker.Allowed,
			Denied:     s.ProcessTracker.Denied,
		},
	}
}

// SaveReport persists report to <dir>/<session_uuid>.json atomically,
// one JSON file per session.
func SaveReport(dir string, report types.SessionReport) error {
	path := filepath.Join(dir, report.SessionID+".json")
	return atomicWriteJSON(path, report)
}

func atomicWriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".session-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}

	success = true
	return nil
}
