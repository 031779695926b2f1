package linux

import (
	"fmt"
	"os"
	"syscall"
)

// Mount propagation and bind flags used by the bind-mount step.
const (
	MS_PRIVATE = syscall.MS_PRIVATE
	MS_REC     = syscall.MS_REC
	MS_BIND    = syscall.MS_BIND
)

// BindVirtualOverSource applies a single
// (source, dest) Path Mapper rule: ensure dest exists (with parents),
// create source as an empty directory placeholder if it is missing,
// then recursively bind-mount dest over source so the process sees the
// virtual tree whenever it references source. File sources are not
// handled in this release.
func BindVirtualOverSource(source, dest string) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("create dest %s: %w", dest, err)
	}

	info, err := os.Stat(source)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(source, 0o755); err != nil {
			return fmt.Errorf("create source placeholder %s: %w", source, err)
		}
	} else if err != nil {
		return fmt.Errorf("stat source %s: %w", source, err)
	} else if !info.IsDir() {
		return fmt.Errorf("source %s is not a directory (file sources unsupported)", source)
	}

	if err := syscall.Mount(dest, source, "", MS_BIND|MS_REC, ""); err != nil {
		return fmt.Errorf("bind mount %s over %s: %w", dest, source, err)
	}
	return nil
}

// BindMountRules applies every Path Mapper rule in order, failing fast
// on the first error.
func BindMountRules(rules [][2]string) error {
	for _, rule := range rules {
		source, dest := rule[0], rule[1]
		if err := BindVirtualOverSource(source, dest); err != nil {
			return err
		}
	}
	return nil
}
