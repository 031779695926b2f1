package wwpaths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSocketPath_EnvOverride(t *testing.T) {
	t.Setenv("WINEWARDEN_SOCKET", "/custom/sock")
	if got := SocketPath(); got != "/custom/sock" {
		t.Errorf("SocketPath() = %q, want /custom/sock", got)
	}
}

func TestSocketPath_Default(t *testing.T) {
	os.Unsetenv("WINEWARDEN_SOCKET")
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	want := filepath.Join("/run/user/1000", "winewarden", "winewarden.sock")
	if got := SocketPath(); got != want {
		t.Errorf("SocketPath() = %q, want %q", got, want)
	}
}

func TestSocketPath_FallsBackToTmp(t *testing.T) {
	os.Unsetenv("WINEWARDEN_SOCKET")
	os.Unsetenv("XDG_RUNTIME_DIR")
	want := filepath.Join("/tmp", "winewarden", "winewarden.sock")
	if got := SocketPath(); got != want {
		t.Errorf("SocketPath() = %q, want %q", got, want)
	}
}

func TestPIDPath_EnvOverride(t *testing.T) {
	t.Setenv("WINEWARDEN_PID", "/custom/pid")
	if got := PIDPath(); got != "/custom/pid" {
		t.Errorf("PIDPath() = %q, want /custom/pid", got)
	}
}

func TestConfigPath_UsesXDGConfigHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/home/u/.config")
	want := filepath.Join("/home/u/.config", "winewarden", "config.jsonc")
	if got := ConfigPath(); got != want {
		t.Errorf("ConfigPath() = %q, want %q", got, want)
	}
}
