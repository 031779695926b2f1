package supervisor

import (
	"os"
	"testing"
	"unsafe"

	"golang.org/x/sys/unix"

	"winewarden/internal/policy"
	"winewarden/internal/types"
	"winewarden/linux"
)

func TestClassify(t *testing.T) {
	cases := map[string]syscallClass{
		"connect":    classNetwork,
		"bind":       classNetwork,
		"open":       classFSArg0,
		"stat":       classFSArg0,
		"mkdir":      classFSArg0,
		"openat":     classFSArg1,
		"faccessat2": classFSArg1,
		"mkdirat":    classFSArg1,
		"execve":     classUnknown,
	}
	for name, want := range cases {
		if got := classify(name); got != want {
			t.Errorf("classify(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestNameForNr_RoundTrips(t *testing.T) {
	for _, name := range watchedSyscalls {
		nr, ok := linux.SyscallNumber(name)
		if !ok {
			t.Fatalf("no syscall number for %q", name)
		}
		got, ok := nameForNr(int32(nr))
		if !ok {
			t.Errorf("nameForNr(%d) for %q found nothing", nr, name)
			continue
		}
		if got != name {
			t.Errorf("nameForNr(%d) = %q, want %q", nr, got, name)
		}
	}
}

func TestNameForNr_UnknownNumber(t *testing.T) {
	if _, ok := nameForNr(-1); ok {
		t.Error("expected no match for an unused syscall number")
	}
}

func TestErrNote_FallsBackWithoutKind(t *testing.T) {
	note := errNote(errPlain("boom"), "fallback text")
	if note != "fallback text" {
		t.Errorf("errNote = %q, want fallback text", note)
	}
}

type errPlain string

func (e errPlain) Error() string { return string(e) }

// A notification the handler cannot inspect must still produce exactly
// one response echoing the notification id, or the child stays blocked.
func TestHandle_UnknownSyscallEchoesID(t *testing.T) {
	eng := policy.New(nil, "/tmp/prefix", types.TrustYellow, policy.NetworkConfig{}, policy.ProcessConfig{MaxChildProcesses: 10})

	var recorded []types.AccessAttempt
	h := NewHandler(eng, nil, nil, func(a types.AccessAttempt, _ types.PolicyDecision) {
		recorded = append(recorded, a)
	}, nil)

	notif := &types.SeccompNotif{ID: 42, Pid: 1234}
	notif.Data.Nr = -1

	resp := h.Handle(0, notif)
	if resp.ID != 42 {
		t.Errorf("response id = %d, want 42", resp.ID)
	}
	if resp.Flags&unix.SECCOMP_USER_NOTIF_FLAG_CONTINUE == 0 {
		t.Error("uninspectable notification should continue the real syscall")
	}
	if len(recorded) != 1 {
		t.Fatalf("recorded %d attempts, want 1", len(recorded))
	}
	if recorded[0].Note == "" {
		t.Error("expected a note explaining why the call was not inspected")
	}
}

func TestRespond_DenyCarriesEPERM(t *testing.T) {
	h := &Handler{}
	resp := h.respond(7, types.PolicyDecision{Action: types.ActionDeny})
	if resp.ID != 7 {
		t.Errorf("response id = %d, want 7", resp.ID)
	}
	if resp.Error != -int32(unix.EPERM) {
		t.Errorf("response error = %d, want %d", resp.Error, -int32(unix.EPERM))
	}
	if resp.Flags != 0 {
		t.Error("deny must not carry the continue flag")
	}
}

// Full round-trip for a connect notification, using this process's own
// memory as the "child" address space: exactly one response with the
// notification's id, and a decoded network attempt.
func TestHandle_ConnectRoundTrip(t *testing.T) {
	// sockaddr_in for 93.184.216.34:443, padded to the 16-byte struct size.
	addr := [16]byte{0x02, 0x00, 0x01, 0xBB, 0x5D, 0xB8, 0xD8, 0x22}

	connectNr, ok := linux.SyscallNumber("connect")
	if !ok {
		t.Fatal("no syscall number for connect")
	}

	eng := policy.New(nil, "/tmp/prefix", types.TrustYellow, policy.NetworkConfig{}, policy.ProcessConfig{MaxChildProcesses: 10})
	var recorded []types.AccessAttempt
	h := NewHandler(eng, nil, nil, func(a types.AccessAttempt, _ types.PolicyDecision) {
		recorded = append(recorded, a)
	}, nil)

	notif := &types.SeccompNotif{ID: 7, Pid: uint32(os.Getpid())}
	notif.Data.Nr = int32(connectNr)
	notif.Data.Args[0] = 3
	notif.Data.Args[1] = uint64(uintptr(unsafe.Pointer(&addr)))
	notif.Data.Args[2] = uint64(len(addr))

	resp := h.Handle(os.Getpid(), notif)
	if resp.ID != 7 {
		t.Errorf("response id = %d, want 7", resp.ID)
	}
	if resp.Flags&unix.SECCOMP_USER_NOTIF_FLAG_CONTINUE == 0 {
		t.Error("allowed connect should carry the continue flag")
	}

	if len(recorded) != 1 {
		t.Fatalf("recorded %d attempts, want 1", len(recorded))
	}
	got := recorded[0]
	if got.Kind != types.AccessNetwork {
		t.Errorf("Kind = %v, want Network", got.Kind)
	}
	if got.Target.Network.Host != "93.184.216.34" {
		t.Errorf("Host = %q, want 93.184.216.34", got.Target.Network.Host)
	}
	if got.Target.Network.Port != 443 {
		t.Errorf("Port = %d, want 443", got.Target.Network.Port)
	}
	if got.Target.Network.Protocol != "connect" {
		t.Errorf("Protocol = %q, want connect", got.Target.Network.Protocol)
	}
}
