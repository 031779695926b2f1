// Package utils provides descriptor-handoff and terminal helpers for
// winewarden's bootstrap and monitor dashboard.
package utils

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"syscall"

	"golang.org/x/term"
)

// ValidateSocketPath checks that a socket path is safe to dial or bind.
func ValidateSocketPath(path string) error {
	if path == "" {
		return fmt.Errorf("socket path cannot be empty")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("invalid socket path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("cannot stat socket path: %w", err)
	}

	if info.Mode()&os.ModeSocket == 0 {
		return fmt.Errorf("path %q exists but is not a socket", path)
	}

	return nil
}

// SendFDOverPair sends a single open file descriptor across an
// already-connected unix socketpair using an SCM_RIGHTS ancillary
// message with a one-byte placeholder payload. This is how the bootstrap
// child hands the seccomp notify descriptor to the parent: the pair
// needs no filesystem path visible to the sandboxed child.
func SendFDOverPair(conn *net.UnixConn, fd *os.File) error {
	file, err := conn.File()
	if err != nil {
		return fmt.Errorf("get file: %w", err)
	}
	defer file.Close()

	rights := syscall.UnixRights(int(fd.Fd()))
	if err := syscall.Sendmsg(int(file.Fd()), []byte{0}, rights, nil, 0); err != nil {
		return fmt.Errorf("sendmsg: %w", err)
	}

	return nil
}

// RecvFD receives a single descriptor previously sent with
// SendFDOverPair, reading it out of the SCM_RIGHTS ancillary data attached
// to a one-byte placeholder message.
func RecvFD(conn *net.UnixConn) (*os.File, error) {
	file, err := conn.File()
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	defer file.Close()

	buf := make([]byte, 1)
	oob := make([]byte, syscall.CmsgSpace(4))
	_, oobn, _, _, err := syscall.Recvmsg(int(file.Fd()), buf, oob, 0)
	if err != nil {
		return nil, fmt.Errorf("recvmsg: %w", err)
	}

	cmsgs, err := syscall.ParseSocketControlMessage(oob[:oobn])
	if err != nil {
		return nil, fmt.Errorf("parse control message: %w", err)
	}
	if len(cmsgs) == 0 {
		return nil, fmt.Errorf("no descriptor received")
	}

	fds, err := syscall.ParseUnixRights(&cmsgs[0])
	if err != nil {
		return nil, fmt.Errorf("parse rights: %w", err)
	}
	if len(fds) == 0 {
		return nil, fmt.Errorf("no descriptor received")
	}

	return os.NewFile(uintptr(fds[0]), "received-fd"), nil
}

// SetRawMode puts the monitor dashboard's controlling terminal into raw mode
// and returns the previous state for RestoreMode.
func SetRawMode(f *os.File) (*term.State, error) {
	return term.MakeRaw(int(f.Fd()))
}

// RestoreMode restores a terminal state captured by SetRawMode.
func RestoreMode(f *os.File, state *term.State) error {
	return term.Restore(int(f.Fd()), state)
}

// GetWinsize returns the terminal window size for the monitor dashboard's
// layout calculations.
func GetWinsize(f *os.File) (width, height int, err error) {
	return term.GetSize(int(f.Fd()))
}
