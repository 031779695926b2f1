package utils

import (
	"net"
	"os"
	"syscall"
	"testing"

	"github.com/creack/pty"
)

func TestValidateSocketPath_Empty(t *testing.T) {
	if err := ValidateSocketPath(""); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestValidateSocketPath_NonExistentIsOK(t *testing.T) {
	if err := ValidateSocketPath("/tmp/winewarden-test-nonexistent.sock"); err != nil {
		t.Errorf("expected nil for not-yet-created socket path, got %v", err)
	}
}

func TestValidateSocketPath_RejectsRegularFile(t *testing.T) {
	f, err := os.CreateTemp("", "winewarden-notasocket-*")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer os.Remove(f.Name())
	f.Close()

	if err := ValidateSocketPath(f.Name()); err == nil {
		t.Error("expected error for path that is a regular file, not a socket")
	}
}

func TestSendFDOverPair_RecvFD_RoundTrip(t *testing.T) {
	a, b, err := socketpairUnix(t)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	defer a.Close()
	defer b.Close()

	sent, err := os.Open("/dev/null")
	if err != nil {
		t.Fatalf("open /dev/null: %v", err)
	}
	defer sent.Close()

	errCh := make(chan error, 1)
	go func() { errCh <- SendFDOverPair(a, sent) }()

	received, err := RecvFD(b)
	if err != nil {
		t.Fatalf("RecvFD: %v", err)
	}
	defer received.Close()

	if err := <-errCh; err != nil {
		t.Fatalf("SendFDOverPair: %v", err)
	}

	if received.Name() == "" {
		t.Error("expected a named file back")
	}
}

func socketpairUnix(t *testing.T) (*net.UnixConn, *net.UnixConn, error) {
	t.Helper()
	fds, err := syscall.Socketpair(syscall.AF_UNIX, syscall.SOCK_STREAM, 0)
	if err != nil {
		return nil, nil, err
	}
	f1 := os.NewFile(uintptr(fds[0]), "sp0")
	f2 := os.NewFile(uintptr(fds[1]), "sp1")
	c1, err := net.FileConn(f1)
	if err != nil {
		return nil, nil, err
	}
	c2, err := net.FileConn(f2)
	if err != nil {
		return nil, nil, err
	}
	return c1.(*net.UnixConn), c2.(*net.UnixConn), nil
}

// Handing off a PTY master is the same shape as handing off the seccomp
// notify descriptor: an fd whose receiver must end up with a working,
// independently-owned handle.
func TestSendFDOverPair_PTYMasterStaysUsable(t *testing.T) {
	a, b, err := socketpairUnix(t)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	defer a.Close()
	defer b.Close()

	master, slave, err := pty.Open()
	if err != nil {
		t.Skipf("no pty available: %v", err)
	}
	defer slave.Close()

	if err := SendFDOverPair(a, master); err != nil {
		t.Fatalf("SendFDOverPair: %v", err)
	}
	master.Close()

	received, err := RecvFD(b)
	if err != nil {
		t.Fatalf("RecvFD: %v", err)
	}
	defer received.Close()

	if _, err := slave.Write([]byte("ping\n")); err != nil {
		t.Fatalf("write slave: %v", err)
	}
	buf := make([]byte, 64)
	n, err := received.Read(buf)
	if err != nil {
		t.Fatalf("read received master: %v", err)
	}
	if n == 0 {
		t.Error("expected bytes through the handed-off descriptor")
	}
}
