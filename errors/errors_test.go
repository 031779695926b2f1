package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKind_String(t *testing.T) {
	tests := []struct {
		kind     ErrorKind
		expected string
	}{
		{ErrNotFound, "not found"},
		{ErrAlreadyExists, "already exists"},
		{ErrInvalidState, "invalid state"},
		{ErrInvalidConfig, "invalid config"},
		{ErrPermission, "permission denied"},
		{ErrNamespace, "namespace error"},
		{ErrSeccomp, "seccomp error"},
		{ErrInternal, "internal error"},
		{ErrSetup, "setup error"},
		{ErrTransport, "transport error"},
		{ErrKernelNotify, "kernel notify error"},
		{ErrMemoryRead, "memory read error"},
		{ErrPolicyInput, "policy input error"},
		{ErrPersistence, "persistence error"},
		{ErrorKind(999), "unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.expected {
				t.Errorf("ErrorKind.String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestSandboxError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *SandboxError
		expected string
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: "<nil>",
		},
		{
			name: "full error",
			err: &SandboxError{
				Op:      "bootstrap",
				Session: "abcd-1234",
				Kind:    ErrSetup,
				Detail:  "landlock ruleset failed",
				Err:     fmt.Errorf("EPERM"),
			},
			expected: "session abcd-1234: bootstrap: landlock ruleset failed: EPERM",
		},
		{
			name: "without session",
			err: &SandboxError{
				Op:     "notify-recv",
				Kind:   ErrKernelNotify,
				Detail: "ioctl failed",
			},
			expected: "notify-recv: ioctl failed",
		},
		{
			name: "kind only",
			err: &SandboxError{
				Kind: ErrPermission,
			},
			expected: "permission denied",
		},
		{
			name: "with underlying error",
			err: &SandboxError{
				Op:   "mount",
				Kind: ErrNamespace,
				Err:  fmt.Errorf("device busy"),
			},
			expected: "mount: namespace error: device busy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("SandboxError.Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestSandboxError_Unwrap(t *testing.T) {
	underlying := fmt.Errorf("underlying error")
	err := &SandboxError{
		Op:   "test",
		Kind: ErrInternal,
		Err:  underlying,
	}

	if got := err.Unwrap(); got != underlying {
		t.Errorf("Unwrap() = %v, want %v", got, underlying)
	}

	var nilErr *SandboxError
	if got := nilErr.Unwrap(); got != nil {
		t.Errorf("nil.Unwrap() = %v, want nil", got)
	}
}

func TestSandboxError_Is(t *testing.T) {
	err1 := &SandboxError{Kind: ErrNotFound, Op: "test1"}
	err2 := &SandboxError{Kind: ErrNotFound, Op: "test2"}
	err3 := &SandboxError{Kind: ErrPermission, Op: "test3"}

	if !err1.Is(err2) {
		t.Error("err1.Is(err2) should be true (same kind)")
	}

	if err1.Is(err3) {
		t.Error("err1.Is(err3) should be false (different kind)")
	}

	if err1.Is(fmt.Errorf("some error")) {
		t.Error("err1.Is(fmt.Errorf(...)) should be false")
	}

	var nilErr *SandboxError
	if !nilErr.Is(nil) {
		t.Error("nil.Is(nil) should be true")
	}
}

func TestNew(t *testing.T) {
	err := New(ErrInvalidConfig, "validate", "executable path is empty")

	if err.Kind != ErrInvalidConfig {
		t.Errorf("Kind = %v, want %v", err.Kind, ErrInvalidConfig)
	}
	if err.Op != "validate" {
		t.Errorf("Op = %q, want %q", err.Op, "validate")
	}
	if err.Detail != "executable path is empty" {
		t.Errorf("Detail = %q, want %q", err.Detail, "executable path is empty")
	}
}

func TestWrap(t *testing.T) {
	underlying := fmt.Errorf("permission denied")
	err := Wrap(underlying, ErrPermission, "open file")

	if err.Err != underlying {
		t.Error("Wrapped error should preserve underlying error")
	}
	if err.Kind != ErrPermission {
		t.Errorf("Kind = %v, want %v", err.Kind, ErrPermission)
	}
	if err.Op != "open file" {
		t.Errorf("Op = %q, want %q", err.Op, "open file")
	}
}

func TestWrapWithSession(t *testing.T) {
	underlying := fmt.Errorf("not found")
	err := WrapWithSession(underlying, ErrNotFound, "load", "my-session")

	if err.Session != "my-session" {
		t.Errorf("Session = %q, want %q", err.Session, "my-session")
	}
}

func TestWrapWithDetail(t *testing.T) {
	underlying := fmt.Errorf("syscall failed")
	err := WrapWithDetail(underlying, ErrSeccomp, "filter", "invalid architecture")

	if err.Detail != "invalid architecture" {
		t.Errorf("Detail = %q, want %q", err.Detail, "invalid architecture")
	}
}

func TestIsKind(t *testing.T) {
	err := &SandboxError{Kind: ErrNotFound}
	wrapped := fmt.Errorf("wrapped: %w", err)

	if !IsKind(err, ErrNotFound) {
		t.Error("IsKind(err, ErrNotFound) should be true")
	}
	if !IsKind(wrapped, ErrNotFound) {
		t.Error("IsKind(wrapped, ErrNotFound) should be true")
	}
	if IsKind(err, ErrPermission) {
		t.Error("IsKind(err, ErrPermission) should be false")
	}
	if IsKind(fmt.Errorf("plain error"), ErrNotFound) {
		t.Error("IsKind(plain error, ErrNotFound) should be false")
	}
}

func TestGetKind(t *testing.T) {
	err := &SandboxError{Kind: ErrMemoryRead}
	wrapped := fmt.Errorf("wrapped: %w", err)

	kind, ok := GetKind(err)
	if !ok || kind != ErrMemoryRead {
		t.Errorf("GetKind(err) = (%v, %v), want (%v, true)", kind, ok, ErrMemoryRead)
	}

	kind, ok = GetKind(wrapped)
	if !ok || kind != ErrMemoryRead {
		t.Errorf("GetKind(wrapped) = (%v, %v), want (%v, true)", kind, ok, ErrMemoryRead)
	}

	_, ok = GetKind(fmt.Errorf("plain error"))
	if ok {
		t.Error("GetKind(plain error) should return false")
	}
}

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  *SandboxError
		kind ErrorKind
	}{
		{"ErrSessionNotFound", ErrSessionNotFound, ErrNotFound},
		{"ErrNoDescriptor", ErrNoDescriptor, ErrTransport},
		{"ErrChildExited", ErrChildExited, ErrSetup},
		{"ErrInvalidExecutable", ErrInvalidExecutable, ErrInvalidConfig},
		{"ErrSeccompFilter", ErrSeccompFilter, ErrSeccomp},
		{"ErrLandlockRuleset", ErrLandlockRuleset, ErrSetup},
		{"ErrNamespaceSetup", ErrNamespaceSetup, ErrNamespace},
		{"ErrNotifyRecv", ErrNotifyRecv, ErrKernelNotify},
		{"ErrPartialRead", ErrPartialRead, ErrMemoryRead},
		{"ErrNonUTF8Path", ErrNonUTF8Path, ErrPolicyInput},
		{"ErrReportWrite", ErrReportWrite, ErrPersistence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Kind != tt.kind {
				t.Errorf("%s.Kind = %v, want %v", tt.name, tt.err.Kind, tt.kind)
			}
			wrapped := Wrap(fmt.Errorf("underlying"), tt.kind, "test")
			if !errors.Is(wrapped, tt.err) {
				t.Errorf("errors.Is(wrapped, %s) should be true", tt.name)
			}
		})
	}
}

func TestErrorChain(t *testing.T) {
	underlying := fmt.Errorf("file not found")
	err1 := Wrap(underlying, ErrNotFound, "load session")
	err2 := fmt.Errorf("session operation failed: %w", err1)

	if !errors.Is(err2, ErrSessionNotFound) {
		t.Error("errors.Is should find ErrSessionNotFound in chain")
	}

	var serr *SandboxError
	if !errors.As(err2, &serr) {
		t.Error("errors.As should find SandboxError in chain")
	}
	if serr.Op != "load session" {
		t.Errorf("serr.Op = %q, want %q", serr.Op, "load session")
	}

	if errors.Unwrap(err1) != underlying {
		t.Error("Unwrap should return underlying error")
	}
}
