// Package bootstrap implements the child pre-exec sequence and
// descriptor-handoff transport: the parent re-execs itself as a hidden
// subcommand over a pre-established socketpair, and that subcommand
// unshares the mount namespace, applies the bind mounts and landlock
// ruleset, installs the seccomp notify filter, hands the notify
// descriptor back to the parent, and execs the target.
package bootstrap

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"syscall"

	"winewarden/internal/pathmap"
	"winewarden/internal/types"
	"winewarden/linux"
	"winewarden/utils"
)

// envParams carries the JSON-encoded Params to the re-exec'd subprocess.
const envParams = "_WINEWARDEN_BOOTSTRAP_PARAMS"

// Subcommand is the hidden cobra subcommand name the parent re-execs
// itself with.
const Subcommand = "__bootstrap-child"

// Inherited descriptor slots: exec.Cmd.ExtraFiles starts at fd 3 since
// 0-2 are stdio. Slot 3 is the child's half of the handoff socketpair,
// slot 4 the write end of the setup sync pipe.
const (
	socketFD   = 3
	syncPipeFD = 4
)

// Params is the JSON-serializable configuration the parent hands the
// re-exec'd bootstrap subcommand.
type Params struct {
	Executable string          `json:"executable"`
	Args       []string        `json:"args"`
	Env        []string        `json:"env"`
	PrefixRoot string          `json:"prefix_root"`
	Tier       types.TrustTier `json:"tier"`
	Rules      [][2]string     `json:"rules"` // [source, dest] pairs, longest-source-first order
}

// RulesFromMapper converts a pathmap.PathMapper's ordered rules into the
// wire form bootstrap.Params carries.
func RulesFromMapper(m *pathmap.PathMapper) [][2]string {
	rules := m.Rules()
	out := make([][2]string, len(rules))
	for i, r := range rules {
		out[i] = [2]string{r.Source, r.Dest}
	}
	return out
}

// Handle is what the parent retains after starting the bootstrap child:
// the running command and the read end of the setup sync pipe.
type Handle struct {
	Cmd  *exec.Cmd
	sync *utils.SyncPipe
}

// StartChild kicks off the supervised child: creates the datagram
// socketpair and the setup sync pipe, re-execs this binary as Subcommand
// with params passed through the environment and the child's halves
// inherited at fds 3 and 4, and returns the running command plus the
// parent's socket half wrapped as a *net.UnixConn for ReceiveNotifyFD.
func StartChild(params Params) (*Handle, *net.UnixConn, error) {
	fds, err := syscall.Socketpair(syscall.AF_UNIX, syscall.SOCK_DGRAM, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("socketpair: %w", err)
	}
	parentFile := os.NewFile(uintptr(fds[0]), "bootstrap-parent")
	childFile := os.NewFile(uintptr(fds[1]), "bootstrap-child")

	sync, err := utils.NewSyncPipe()
	if err != nil {
		parentFile.Close()
		childFile.Close()
		return nil, nil, err
	}

	self, err := os.Executable()
	if err != nil {
		parentFile.Close()
		childFile.Close()
		sync.Close()
		return nil, nil, fmt.Errorf("get executable: %w", err)
	}

	encoded, err := json.Marshal(params)
	if err != nil {
		parentFile.Close()
		childFile.Close()
		sync.Close()
		return nil, nil, fmt.Errorf("marshal bootstrap params: %w", err)
	}

	cmd := exec.Command(self, Subcommand)
	cmd.Env = append(os.Environ(), envParams+"="+string(encoded))
	cmd.ExtraFiles = []*os.File{childFile, sync.ChildFile()}
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		parentFile.Close()
		childFile.Close()
		sync.Close()
		return nil, nil, fmt.Errorf("start bootstrap child: %w", err)
	}
	childFile.Close() // parent's copy of the child's half is no longer needed
	sync.CloseChild()

	conn, err := net.FileConn(parentFile)
	parentFile.Close()
	if err != nil {
		sync.CloseParent()
		return nil, nil, fmt.Errorf("wrap parent socket: %w", err)
	}
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		conn.Close()
		sync.CloseParent()
		return nil, nil, fmt.Errorf("parent socket is not a unix connection")
	}

	return &Handle{Cmd: cmd, sync: sync}, unixConn, nil
}

// WaitSetup blocks until the child's pre-exec sequence has finished:
// either the sync pipe closes on exec (success) or the child wrote a
// setup error message before dying.
func (h *Handle) WaitSetup() error {
	defer h.sync.CloseParent()
	err := h.sync.WaitWithError()
	if err == io.EOF {
		return nil
	}
	return err
}

// RunChildBootstrap runs inside the re-exec'd Subcommand process: the
// ordered, fail-fast pre-exec sequence. Any failure before exec is
// written to the sync pipe so the parent can report it, and causes a
// non-nil return; the caller exits non-zero without ever invoking the
// target. On success this function never returns: the final step
// replaces the process image.
func RunChildBootstrap() error {
	syncFile := os.NewFile(syncPipeFD, "bootstrap-sync")
	// Re-arm close-on-exec (cleared when the fd was inherited) so a
	// successful exec closes the pipe and unblocks the parent.
	syscall.CloseOnExec(syncPipeFD)
	err := runChildBootstrap()
	if err != nil && syncFile != nil {
		syncFile.Write([]byte(err.Error()))
	}
	if syncFile != nil {
		syncFile.Close()
	}
	return err
}

func runChildBootstrap() error {
	raw := os.Getenv(envParams)
	if raw == "" {
		return fmt.Errorf("missing %s", envParams)
	}
	var params Params
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		return fmt.Errorf("decode bootstrap params: %w", err)
	}

	sockFile := os.NewFile(socketFD, "bootstrap-socket")
	if sockFile == nil {
		return fmt.Errorf("missing socketpair fd %d", socketFD)
	}

	// Step 1: unshare mount namespace, make "/" private.
	if err := linux.UnshareMountNamespace(); err != nil {
		return fmt.Errorf("unshare mount namespace: %w", err)
	}

	// Step 2: bind mounts from the Path Mapper, longest-source-first so a
	// nested rule's dest exists before an outer rule would otherwise mask
	// it (order as handed down by the parent's sorted PathMapper).
	if err := linux.BindMountRules(params.Rules); err != nil {
		return err
	}

	// Step 3: install the landlock ruleset for the tier and prefix root.
	rules := linux.BuildRules(linux.Tier(params.Tier), params.PrefixRoot)
	if err := linux.ApplyRuleset(rules, func(path string, err error) {
		fmt.Fprintf(os.Stderr, "winewarden: landlock rule for %s not applied: %v\n", path, err)
	}); err != nil {
		return fmt.Errorf("apply landlock ruleset: %w", err)
	}

	// Step 4: install the seccomp notify filter.
	notifyFD, err := linux.InstallNotifyFilter()
	if err != nil {
		return fmt.Errorf("install seccomp filter: %w", err)
	}

	// Step 5: hand the notify descriptor to the parent over the
	// pre-established socketpair, then close our copy.
	notifyFile := os.NewFile(uintptr(notifyFD), "seccomp-notify")
	conn, err := net.FileConn(sockFile)
	if err != nil {
		notifyFile.Close()
		return fmt.Errorf("wrap bootstrap socket: %w", err)
	}
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		notifyFile.Close()
		return fmt.Errorf("bootstrap socket is not a unix connection")
	}
	if err := utils.SendFDOverPair(unixConn, notifyFile); err != nil {
		notifyFile.Close()
		return fmt.Errorf("send notify descriptor: %w", err)
	}
	notifyFile.Close()
	conn.Close()

	// Step 6: exec the target. On success this never returns; the sync
	// pipe's write end closes with the process image, which is the
	// parent's success signal.
	env := params.Env
	if len(env) == 0 {
		env = os.Environ()
	}
	argv := append([]string{params.Executable}, params.Args...)
	if err := syscall.Exec(params.Executable, argv, env); err != nil {
		return fmt.Errorf("exec %s: %w", params.Executable, err)
	}
	return nil
}

// ReceiveNotifyFD blocks until the bootstrap child sends its notify
// descriptor over conn; it fails with "no descriptor received" if the
// control message is absent.
func ReceiveNotifyFD(conn *net.UnixConn) (*os.File, error) {
	return utils.RecvFD(conn)
}
