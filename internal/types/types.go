// Package types holds the core data model shared by every winewarden
// package: access attempts, policy decisions, trust tiers, sacred zones,
// and the monotonic bookkeeping types the policy engine and trust scorer
// read and write.
package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// AccessKind classifies an AccessAttempt.
type AccessKind int

const (
	AccessRead AccessKind = iota
	AccessWrite
	AccessExecute
	AccessNetwork
	AccessDevice
	AccessSystemSocket
)

func (k AccessKind) String() string {
	switch k {
	case AccessRead:
		return "Read"
	case AccessWrite:
		return "Write"
	case AccessExecute:
		return "Execute"
	case AccessNetwork:
		return "Network"
	case AccessDevice:
		return "Device"
	case AccessSystemSocket:
		return "SystemSocket"
	default:
		return "Unknown"
	}
}

// MarshalJSON emits the kind's name so reports and replay logs stay
// readable and stable across any reordering of the constants.
func (k AccessKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *AccessKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "Read":
		*k = AccessRead
	case "Write":
		*k = AccessWrite
	case "Execute":
		*k = AccessExecute
	case "Network":
		*k = AccessNetwork
	case "Device":
		*k = AccessDevice
	case "SystemSocket":
		*k = AccessSystemSocket
	default:
		return fmt.Errorf("unknown access kind %q", s)
	}
	return nil
}

// TargetKind discriminates the AccessTarget union.
type TargetKind int

const (
	TargetPath TargetKind = iota
	TargetNetwork
	TargetDevice
	TargetSocket
)

func (t TargetKind) String() string {
	switch t {
	case TargetPath:
		return "Path"
	case TargetNetwork:
		return "Network"
	case TargetDevice:
		return "Device"
	case TargetSocket:
		return "Socket"
	default:
		return "Unknown"
	}
}

func (t TargetKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TargetKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "Path":
		*t = TargetPath
	case "Network":
		*t = TargetNetwork
	case "Device":
		*t = TargetDevice
	case "Socket":
		*t = TargetSocket
	default:
		return fmt.Errorf("unknown target kind %q", s)
	}
	return nil
}

// AccessTarget is the tagged-union target of an AccessAttempt. Exactly one
// of Path/Network/Name is meaningful, selected by Kind.
type AccessTarget struct {
	Kind    TargetKind    `json:"kind"`
	Path    string        `json:"path,omitempty"`
	Network NetworkTarget `json:"network,omitzero"`
	Name    string        `json:"name,omitempty"` // device or socket name
}

// NetworkTarget is the decoded destination of a connect/bind call.
type NetworkTarget struct {
	Host     string `json:"host"`
	Port     uint16 `json:"port"`
	Protocol string `json:"protocol,omitempty"`
}

// AccessAttempt is an immutable record of one intercepted syscall decision
// point
type AccessAttempt struct {
	Timestamp time.Time    `json:"timestamp"`
	Kind      AccessKind   `json:"kind"`
	Target    AccessTarget `json:"target"`
	Note      string       `json:"note,omitempty"`
}

// DecisionAction is the verdict the policy engine renders for an attempt.
type DecisionAction int

const (
	ActionAllow DecisionAction = iota
	ActionDeny
	ActionRedirect
	ActionVirtualize
)

func (a DecisionAction) String() string {
	switch a {
	case ActionAllow:
		return "Allow"
	case ActionDeny:
		return "Deny"
	case ActionRedirect:
		return "Redirect"
	case ActionVirtualize:
		return "Virtualize"
	default:
		return "Unknown"
	}
}

func (a DecisionAction) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *DecisionAction) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "Allow":
		*a = ActionAllow
	case "Deny":
		*a = ActionDeny
	case "Redirect":
		*a = ActionRedirect
	case "Virtualize":
		*a = ActionVirtualize
	default:
		return fmt.Errorf("unknown decision action %q", s)
	}
	return nil
}

// PolicyDecision is the immutable result of evaluating one AccessAttempt.
type PolicyDecision struct {
	Action       DecisionAction `json:"action"`
	Path         string         `json:"path,omitempty"` // redirect/virtualize destination, when Action names one
	Reason       string         `json:"reason,omitempty"`
	ZoneLabel    string         `json:"zone_label,omitempty"`
	SystemicRisk bool           `json:"systemic_risk"`
}

// TrustTier is ordered Red < Yellow < Green; Red is strictest.
type TrustTier int

const (
	TrustRed TrustTier = iota
	TrustYellow
	TrustGreen
)

func (t TrustTier) String() string {
	switch t {
	case TrustRed:
		return "red"
	case TrustYellow:
		return "yellow"
	case TrustGreen:
		return "green"
	default:
		return "unknown"
	}
}

// MarshalJSON emits the tier's lowercase name, the form the trust store
// and configuration use.
func (t TrustTier) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TrustTier) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	tier, ok := ParseTrustTier(s)
	if !ok {
		return fmt.Errorf("unknown trust tier %q", s)
	}
	*t = tier
	return nil
}

// ParseTrustTier parses a CLI/config tier name, case-insensitively.
func ParseTrustTier(s string) (TrustTier, bool) {
	switch strings.ToLower(s) {
	case "red":
		return TrustRed, true
	case "yellow":
		return TrustYellow, true
	case "green":
		return TrustGreen, true
	default:
		return TrustRed, false
	}
}

// ZoneAction is a SacredZone's configured behavior; mirrors DecisionAction
// but is expressed independently since a zone's Redirect/Virtualize carries
// a configured destination, not a runtime one.
type ZoneAction int

const (
	ZoneAllow ZoneAction = iota
	ZoneDeny
	ZoneRedirect
	ZoneVirtualize
)

// SacredZone matches a candidate path by path-prefix and names the action
// to take when it matches.
type SacredZone struct {
	Label      string
	Path       string
	Action     ZoneAction
	RedirectTo string
}

// Matches reports whether candidate has zone's Path as a path-prefix.
func (z SacredZone) Matches(candidate string) bool {
	return hasPathPrefix(candidate, z.Path)
}

func hasPathPrefix(candidate, prefix string) bool {
	if prefix == "" {
		return false
	}
	if candidate == prefix {
		return true
	}
	if len(candidate) <= len(prefix) {
		return false
	}
	if candidate[:len(prefix)] != prefix {
		return false
	}
	return prefix[len(prefix)-1] == '/' || candidate[len(prefix)] == '/'
}

// BehaviorProfile is the monotonic counter set the policy engine updates
// on every evaluation; counters only grow within a session.
type BehaviorProfile struct {
	SensitivePathAttempts int      `json:"sensitive_path_attempts"`
	UniqueDestinations    int      `json:"unique_destinations"`
	DNSQueryCount         int      `json:"dns_query_count"`
	ChildProcessCount     int      `json:"child_process_count"`
	FileModifications     int      `json:"file_modifications"`
	DeniedAttempts        int      `json:"denied_attempts"`
	SuspiciousPatterns    []string `json:"suspicious_patterns,omitempty"`
}

// RecordSensitivePath increments the sensitive-path counter.
func (p *BehaviorProfile) RecordSensitivePath() {
	p.SensitivePathAttempts++
}

// RecordOutboundConnection increments the destination counter and flags a
// "many connections" pattern once the session crosses ten.
func (p *BehaviorProfile) RecordOutboundConnection() {
	p.UniqueDestinations++
	if p.UniqueDestinations == 11 {
		p.SuspiciousPatterns = append(p.SuspiciousPatterns, "many connections")
	}
}

// RecordFileModification increments the file-modification counter.
func (p *BehaviorProfile) RecordFileModification() {
	p.FileModifications++
}

// RecordDenied increments the denied counter and appends reason to the
// suspicious-pattern list.
func (p *BehaviorProfile) RecordDenied(reason string) {
	p.DeniedAttempts++
	if reason != "" {
		p.SuspiciousPatterns = append(p.SuspiciousPatterns, reason)
	}
}

// ProcessTracker is the monotonic per-session count of spawned child
// processes, with allow/deny history for the process policy.
type ProcessTracker struct {
	ChildCount int
	PerName    map[string]int
	Allowed    []string
	Denied     []string
}

// NewProcessTracker returns a zeroed tracker ready to use.
func NewProcessTracker() *ProcessTracker {
	return &ProcessTracker{PerName: make(map[string]int)}
}

// RecordAllowed increments counters for an allowed spawn of name.
func (t *ProcessTracker) RecordAllowed(name string) {
	t.ChildCount++
	t.PerName[name]++
	t.Allowed = append(t.Allowed, name)
}

// RecordDenied appends name to the denied history without incrementing
// ChildCount (a denied spawn never ran).
func (t *ProcessTracker) RecordDenied(name string) {
	t.Denied = append(t.Denied, name)
}

// TrustScore is the derived, never-persisted output of the trust scorer.
type TrustScore struct {
	Score           int       `json:"score"`
	RecommendedTier TrustTier `json:"recommended_tier"`
	Assessment      string    `json:"assessment"`
	Notes           []string  `json:"notes,omitempty"`
}

// IsSuspicious reports whether the score is below the suspicion floor.
func (s TrustScore) IsSuspicious() bool {
	return s.Score < 50
}

// SessionStats tallies decisions over the lifetime of a session.
type SessionStats struct {
	Total        int `json:"total"`
	Denied       int `json:"denied"`
	Redirected   int `json:"redirected"`
	Virtualized  int `json:"virtualized"`
	Allowed      int `json:"allowed"`
	SystemicRisk int `json:"systemic_risks"`
}

// SessionMetadata is the static identity of a session, fixed at creation
// (ended at is set once, when the session ends).
type SessionMetadata struct {
	Executable string     `json:"executable"`
	Args       []string   `json:"args,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
	TrustTier  TrustTier  `json:"trust_tier"`
}

// SessionEvent pairs an observed attempt with the decision it received, for
// the serialized event stream in a SessionReport.
type SessionEvent struct {
	Attempt  AccessAttempt  `json:"attempt"`
	Decision PolicyDecision `json:"decision"`
}

// ProcessSummary is the spawn-rule outcome carried in a report: how many
// children ran and which names were allowed or denied.
type ProcessSummary struct {
	ChildCount int      `json:"child_count"`
	Allowed    []string `json:"allowed,omitempty"`
	Denied     []string `json:"denied,omitempty"`
}

// SessionReport is the terminal, serializable artifact of one session.
type SessionReport struct {
	SessionID   string          `json:"session_id"`
	Metadata    SessionMetadata `json:"metadata"`
	TrustSignal TrustScore      `json:"trust_signal"`
	Events      []SessionEvent  `json:"events"`
	Stats       SessionStats    `json:"stats"`
	Processes   ProcessSummary  `json:"processes"`
}

// SeccompNotif mirrors the kernel's seccomp_notif record.
type SeccompNotif struct {
	ID    uint64
	Pid   uint32
	Flags uint32
	Data  SeccompNotifData
}

// SeccompNotifData mirrors seccomp_data plus the instruction pointer the
// kernel attaches to a user-notification record.
type SeccompNotifData struct {
	Nr   int32
	Arch uint32
	IP   uint64
	Args [6]uint64
}

// SeccompNotifResp mirrors the kernel's seccomp_notif_resp record.
type SeccompNotifResp struct {
	ID    uint64
	Val   int64
	Error int32
	Flags uint32
}
