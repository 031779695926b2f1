package supervisor

import (
	"log/slog"
	"time"
	"unicode/utf8"

	"golang.org/x/sys/unix"

	"winewarden/errors"
	"winewarden/internal/pathmap"
	"winewarden/internal/policy"
	"winewarden/internal/types"
	"winewarden/linux"
)

// syscallClass is which argument layout a watched syscall's path lives in.
type syscallClass int

const (
	classNetwork syscallClass = iota
	classFSArg0               // path is argv[0]: open, stat, lstat, access, mkdir
	classFSArg1               // path is argv[1], dirfd is argv[0]: openat, newfstatat, faccessat, faccessat2, mkdirat
	classUnknown
)

var networkSyscalls = map[string]bool{"connect": true, "bind": true}
var fsArg0Syscalls = map[string]bool{"open": true, "stat": true, "lstat": true, "access": true, "mkdir": true}
var fsArg1Syscalls = map[string]bool{"openat": true, "newfstatat": true, "faccessat": true, "faccessat2": true, "mkdirat": true}

// writeKindSyscalls get AccessWrite; every other watched syscall defaults
// to AccessRead. open/openat keep the Read kind even when their flags ask
// for writing — the flags only feed the copy-on-write resolution.
var writeKindSyscalls = map[string]bool{"mkdir": true, "mkdirat": true}

// flagArgSyscalls maps open-family syscalls to the argument index their
// flags word lives in, for deriving the copy-on-write is-write bit.
var flagArgSyscalls = map[string]int{"open": 1, "openat": 2}

// watchedSyscalls names every syscall the installed filter notifies on,
// mirroring the BPF watchlist in package linux so the handler can map a
// notification's Data.Nr back to a name.
var watchedSyscalls = []string{
	"connect", "bind",
	"open", "openat", "openat2",
	"stat", "lstat", "newfstatat",
	"access", "faccessat", "faccessat2",
	"mkdir", "mkdirat",
}

func nameForNr(nr int32) (string, bool) {
	for _, name := range watchedSyscalls {
		if n, ok := linux.SyscallNumber(name); ok && int32(n) == nr {
			return name, true
		}
	}
	return "", false
}

func classify(name string) syscallClass {
	switch {
	case networkSyscalls[name]:
		return classNetwork
	case fsArg0Syscalls[name]:
		return classFSArg0
	case fsArg1Syscalls[name]:
		return classFSArg1
	default:
		return classUnknown
	}
}

// Handler is the per-notification pipeline: decode the syscall, classify
// the target, evaluate against the policy engine, and produce the kernel
// response.
type Handler struct {
	Policy *policy.Engine
	Mapper *pathmap.PathMapper
	COW    *pathmap.CopyOnWrite
	Record func(types.AccessAttempt, types.PolicyDecision)
	Logger *slog.Logger
}

// NewHandler returns a Handler wired to the given policy engine and path
// mapper/copy-on-write tracker.
func NewHandler(eng *policy.Engine, mapper *pathmap.PathMapper, cow *pathmap.CopyOnWrite, record func(types.AccessAttempt, types.PolicyDecision), logger *slog.Logger) *Handler {
	return &Handler{Policy: eng, Mapper: mapper, COW: cow, Record: record, Logger: logger}
}

// Handle runs the full per-notification sequence: decode, evaluate,
// record, and build the response record. pid is the filtered child's pid
// (needed to read its memory).
func (h *Handler) Handle(pid int, notif *types.SeccompNotif) types.SeccompNotifResp {
	attempt, isWrite, noInspect := h.decode(pid, notif.Data)

	var decision types.PolicyDecision
	switch {
	case noInspect:
		decision = types.PolicyDecision{Action: types.ActionAllow, Reason: "unsupported dirfd argument, allowed without inspection"}
	case attempt.Note != "":
		// Unknown syscall, non-UTF8 path, unsupported address family, or a
		// failed memory read: no usable target was decoded, so allow with
		// the note rather than leave the child blocked on malformed input.
		decision = types.PolicyDecision{Action: types.ActionAllow, Reason: attempt.Note}
	case attempt.Target.Kind == types.TargetNetwork:
		decision = h.Policy.EvaluateNetwork(attempt.Target.Network)
	case attempt.Target.Kind == types.TargetPath:
		decision = h.Policy.EvaluatePath(attempt.Target.Path, isWrite)
	default:
		decision = types.PolicyDecision{Action: types.ActionAllow}
	}

	if decision.Action == types.ActionRedirect || decision.Action == types.ActionVirtualize {
		h.handleRedirect(attempt.Target.Path, decision, isWrite)
	}

	if h.Record != nil {
		h.Record(attempt, decision)
	}
	if h.Logger != nil {
		h.Logger.Debug("notification decided",
			"kind", attempt.Kind.String(),
			"action", decision.Action.String(),
			"reason", decision.Reason)
	}

	return h.respond(notif.ID, decision)
}

// handleRedirect consults the path mapper for a Redirect/Virtualize
// decision and, for Virtualize, ensures the destination exists via the
// copy-on-write tracker. The syscall argument itself is never rewritten;
// the redirection takes effect through the bind mounts the bootstrap
// installed over the mapped sources.
func (h *Handler) handleRedirect(originalPath string, decision types.PolicyDecision, isWrite bool) {
	if h.Mapper == nil || h.COW == nil || originalPath == "" {
		return
	}
	virtualPath, ok := h.Mapper.Map(originalPath)
	if !ok {
		return
	}
	if decision.Action == types.ActionVirtualize {
		if _, err := h.COW.Resolve(originalPath, virtualPath, isWrite); err != nil && h.Logger != nil {
			h.Logger.Warn("materialize virtualized path failed", "path", originalPath, "err", err)
		}
	}
}

func (h *Handler) respond(id uint64, decision types.PolicyDecision) types.SeccompNotifResp {
	switch decision.Action {
	case types.ActionDeny:
		return types.SeccompNotifResp{ID: id, Error: -int32(unix.EPERM), Val: 0}
	default: // Allow, Redirect, Virtualize all continue the real syscall.
		return types.SeccompNotifResp{ID: id, Error: 0, Val: 0, Flags: unix.SECCOMP_USER_NOTIF_FLAG_CONTINUE}
	}
}

// decode classifies the syscall, reads whatever argument memory is
// needed, and builds an AccessAttempt. The second return is the
// copy-on-write is-write flag (derived from open/openat's flags word, or
// fixed for mkdir/mkdirat); the third reports the "arg1 dirfd not
// AT_FDCWD" no-inspection case.
func (h *Handler) decode(pid int, data types.SeccompNotifData) (types.AccessAttempt, bool, bool) {
	attempt := types.AccessAttempt{Timestamp: time.Now()}

	name, known := nameForNr(data.Nr)
	if !known {
		attempt.Note = "unknown syscall number"
		return attempt, false, false
	}

	switch classify(name) {
	case classNetwork:
		return h.decodeNetwork(pid, data, name, attempt)
	case classFSArg0:
		return h.decodeFS(pid, data, data.Args[0], name, attempt)
	case classFSArg1:
		dirfd := int32(data.Args[0])
		if dirfd != unix.AT_FDCWD {
			return attempt, false, true
		}
		return h.decodeFS(pid, data, data.Args[1], name, attempt)
	default:
		attempt.Note = "unrecognized syscall class"
		return attempt, false, false
	}
}

func (h *Handler) decodeNetwork(pid int, data types.SeccompNotifData, name string, attempt types.AccessAttempt) (types.AccessAttempt, bool, bool) {
	attempt.Kind = types.AccessNetwork
	addrLen := int(data.Args[2])
	if addrLen <= 0 || addrLen > 128 {
		attempt.Note = "invalid addrlen"
		return attempt, false, false
	}

	raw, err := ReadRemoteAddr(pid, data.Args[1], addrLen)
	if err != nil {
		attempt.Note = errNote(err, "partial read of sockaddr")
		return attempt, false, false
	}

	target, ok, err := ParseSockaddr(raw)
	if err != nil {
		attempt.Note = errNote(err, "sockaddr parse error")
		return attempt, false, false
	}
	if !ok {
		attempt.Note = "unsupported address family, allowed without inspection"
		return attempt, false, false
	}

	target.Protocol = name
	attempt.Target = types.AccessTarget{Kind: types.TargetNetwork, Network: target}
	return attempt, false, false
}

func (h *Handler) decodeFS(pid int, data types.SeccompNotifData, pathPtr uint64, name string, attempt types.AccessAttempt) (types.AccessAttempt, bool, bool) {
	if writeKindSyscalls[name] {
		attempt.Kind = types.AccessWrite
	} else {
		attempt.Kind = types.AccessRead
	}

	path, err := ReadRemoteCString(pid, pathPtr)
	if err != nil {
		attempt.Note = errNote(err, "failed to read path argument")
		return attempt, false, false
	}
	if !utf8.ValidString(path) {
		attempt.Note = "path argument is not valid UTF-8, allowed without inspection"
		return attempt, false, false
	}

	attempt.Target = types.AccessTarget{Kind: types.TargetPath, Path: path}

	isWrite := attempt.Kind == types.AccessWrite
	if arg, ok := flagArgSyscalls[name]; ok {
		isWrite = pathmap.IsWriteOperation(int(data.Args[arg]))
	}
	return attempt, isWrite, false
}

func errNote(err error, fallback string) string {
	if kind, ok := errors.GetKind(err); ok {
		return kind.String() + ": " + fallback
	}
	return fallback
}
