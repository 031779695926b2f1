// Package errors provides predefined sentinel errors for common failure cases.
package errors

// Session lifecycle errors.
var (
	// ErrSessionNotFound indicates the session does not exist.
	ErrSessionNotFound = &SandboxError{
		Kind:   ErrNotFound,
		Detail: "session not found",
	}

	// ErrNoDescriptor indicates the descriptor handoff never arrived.
	ErrNoDescriptor = &SandboxError{
		Kind:   ErrTransport,
		Detail: "no descriptor received",
	}

	// ErrChildExited indicates the child exited before completing bootstrap.
	ErrChildExited = &SandboxError{
		Kind:   ErrSetup,
		Detail: "child exited before completing bootstrap",
	}
)

// Configuration and validation errors.
var (
	// ErrInvalidExecutable indicates the target executable path is invalid.
	ErrInvalidExecutable = &SandboxError{
		Kind:   ErrInvalidConfig,
		Detail: "invalid executable path",
	}

	// ErrMissingPrefixRoot indicates the prefix root does not exist.
	ErrMissingPrefixRoot = &SandboxError{
		Kind:   ErrInvalidConfig,
		Detail: "prefix root not found",
	}

	// ErrInvalidTrustTier indicates an unknown trust tier string.
	ErrInvalidTrustTier = &SandboxError{
		Kind:   ErrInvalidConfig,
		Detail: "invalid trust tier",
	}
)

// Security-related errors.
var (
	// ErrSeccompFilter indicates a seccomp filter error.
	ErrSeccompFilter = &SandboxError{
		Kind:   ErrSeccomp,
		Detail: "failed to apply seccomp filter",
	}

	// ErrLandlockRuleset indicates a landlock ruleset error.
	ErrLandlockRuleset = &SandboxError{
		Kind:   ErrSetup,
		Detail: "failed to apply landlock ruleset",
	}
)

// Namespace errors.
var (
	// ErrNamespaceSetup indicates a mount-namespace setup error.
	ErrNamespaceSetup = &SandboxError{
		Kind:   ErrNamespace,
		Detail: "failed to setup mount namespace",
	}

	// ErrBindMount indicates a bind-mount error.
	ErrBindMount = &SandboxError{
		Kind:   ErrNamespace,
		Detail: "failed to bind mount",
	}
)

// Supervisor errors.
var (
	// ErrNotifyRecv indicates a SECCOMP_IOCTL_NOTIF_RECV failure.
	ErrNotifyRecv = &SandboxError{
		Kind:   ErrKernelNotify,
		Detail: "failed to receive seccomp notification",
	}

	// ErrNotifySend indicates a SECCOMP_IOCTL_NOTIF_SEND failure.
	ErrNotifySend = &SandboxError{
		Kind:   ErrKernelNotify,
		Detail: "failed to send seccomp notification response",
	}

	// ErrPartialRead indicates a short read of child memory during address parsing.
	ErrPartialRead = &SandboxError{
		Kind:   ErrMemoryRead,
		Detail: "partial read of child memory",
	}

	// ErrNonUTF8Path indicates a path argument was not valid UTF-8.
	ErrNonUTF8Path = &SandboxError{
		Kind:   ErrPolicyInput,
		Detail: "path argument is not valid UTF-8",
	}

	// ErrUnsupportedFamily indicates an address family the handler does not decode.
	ErrUnsupportedFamily = &SandboxError{
		Kind:   ErrPolicyInput,
		Detail: "unsupported socket address family",
	}

	// ErrUnknownSyscall indicates a syscall number outside the watchlist.
	ErrUnknownSyscall = &SandboxError{
		Kind:   ErrPolicyInput,
		Detail: "unknown syscall number",
	}
)

// Persistence errors.
var (
	// ErrReportWrite indicates a report-file write failure.
	ErrReportWrite = &SandboxError{
		Kind:   ErrPersistence,
		Detail: "failed to write session report",
	}

	// ErrTrustStoreIO indicates a trust-database read/write failure.
	ErrTrustStoreIO = &SandboxError{
		Kind:   ErrPersistence,
		Detail: "failed to access trust store",
	}

	// ErrSnapshotWrite indicates a prefix-snapshot write failure.
	ErrSnapshotWrite = &SandboxError{
		Kind:   ErrPersistence,
		Detail: "failed to write prefix snapshot",
	}
)
