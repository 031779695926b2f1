// Package wwpaths centralizes resolution of winewarden's runtime file
// locations: the daemon's Unix socket and pid file, and the default
// config/data directories.
package wwpaths

import (
	"os"
	"path/filepath"
)

const (
	envSocket  = "WINEWARDEN_SOCKET"
	envPID     = "WINEWARDEN_PID"
	envRuntime = "XDG_RUNTIME_DIR"
)

// runtimeDir returns $XDG_RUNTIME_DIR/winewarden, falling back to
// /tmp/winewarden when XDG_RUNTIME_DIR is unset
func runtimeDir() string {
	if dir := os.Getenv(envRuntime); dir != "" {
		return filepath.Join(dir, "winewarden")
	}
	return filepath.Join("/tmp", "winewarden")
}

// SocketPath returns the daemon's Unix socket path: WINEWARDEN_SOCKET if
// set, else $XDG_RUNTIME_DIR/winewarden/winewarden.sock, falling back to
// /tmp.
func SocketPath() string {
	if p := os.Getenv(envSocket); p != "" {
		return p
	}
	return filepath.Join(runtimeDir(), "winewarden.sock")
}

// PIDPath returns the daemon's pid file path: WINEWARDEN_PID if set, else
// $XDG_RUNTIME_DIR/winewarden/winewarden.pid, falling back to /tmp.
func PIDPath() string {
	if p := os.Getenv(envPID); p != "" {
		return p
	}
	return filepath.Join(runtimeDir(), "winewarden.pid")
}

// ConfigPath returns the default config file path:
// ${XDG_CONFIG_HOME:-~/.config}/winewarden/config.jsonc.
func ConfigPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "winewarden", "config.jsonc")
}

// DataDir returns the default data directory used for virtual path
// mapping destinations and session reports:
// ${XDG_DATA_HOME:-~/.local/share}/winewarden.
func DataDir() string {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "winewarden")
}

// ReportsDir returns the directory session reports are written to.
func ReportsDir() string {
	return filepath.Join(DataDir(), "reports")
}

// TrustStorePath returns the default trust database path.
func TrustStorePath() string {
	return filepath.Join(DataDir(), "trust.json")
}

// SnapshotsDir returns the directory prefix snapshots are written to.
func SnapshotsDir() string {
	return filepath.Join(DataDir(), "snapshots")
}

// EnsureRuntimeDir creates the runtime directory (for the socket/pid
// files) if it does not already exist.
func EnsureRuntimeDir() error {
	return os.MkdirAll(runtimeDir(), 0o755)
}
