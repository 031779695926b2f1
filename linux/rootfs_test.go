package linux

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"
)

func TestBindVirtualOverSource_CreatesDestAndSourcePlaceholder(t *testing.T) {
	if os.Geteuid() != 0 {
		t.Skip("bind mount requires root or CAP_SYS_ADMIN")
	}

	tmp, err := os.MkdirTemp("", "bindmount-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	defer os.RemoveAll(tmp)

	source := filepath.Join(tmp, "home", "user", "AppData")
	dest := filepath.Join(tmp, "virtual", "appdata")

	if err := BindVirtualOverSource(source, dest); err != nil {
		t.Fatalf("BindVirtualOverSource: %v", err)
	}
	defer syscall.Unmount(source, syscall.MNT_DETACH)

	if _, err := os.Stat(dest); err != nil {
		t.Errorf("dest %s should exist: %v", dest, err)
	}
	if info, err := os.Stat(source); err != nil || !info.IsDir() {
		t.Errorf("source %s should be a directory after mount: %v", source, err)
	}
}

func TestBindVirtualOverSource_RejectsFileSource(t *testing.T) {
	tmp, err := os.MkdirTemp("", "bindmount-file-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	defer os.RemoveAll(tmp)

	source := filepath.Join(tmp, "afile")
	if err := os.WriteFile(source, []byte("data"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	dest := filepath.Join(tmp, "virtual")

	if err := BindVirtualOverSource(source, dest); err == nil {
		t.Error("expected error for file source, got nil")
	}
}

func TestBindMountRules_StopsOnFirstError(t *testing.T) {
	tmp, err := os.MkdirTemp("", "bindmount-rules-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	defer os.RemoveAll(tmp)

	badFile := filepath.Join(tmp, "badsource")
	if err := os.WriteFile(badFile, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	rules := [][2]string{
		{badFile, filepath.Join(tmp, "dest1")},
		{filepath.Join(tmp, "nevertouched"), filepath.Join(tmp, "dest2")},
	}

	if err := BindMountRules(rules); err == nil {
		t.Error("expected error from first bad rule")
	}
	if _, err := os.Stat(filepath.Join(tmp, "nevertouched")); err == nil {
		t.Error("second rule should not have run after the first failed")
	}
}
