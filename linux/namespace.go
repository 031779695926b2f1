// Package linux provides Linux-specific sandbox primitives: mount
// namespace setup, bind mounts, seccomp filtering, and Landlock rulesets.
package linux

import (
	"fmt"
	"syscall"
)

// CLONE_NEWNS is the mount-namespace clone/unshare flag.
const CLONE_NEWNS = syscall.CLONE_NEWNS

// UnshareMountNamespace is the first bootstrap step: unshare the mount
// namespace to get a private view of the mount table, then recursively
// remount "/" as private so the bind mounts installed in step 2 never
// propagate back to the host's mount table.
func UnshareMountNamespace() error {
	if err := syscall.Unshare(CLONE_NEWNS); err != nil {
		return fmt.Errorf("unshare mount namespace: %w", err)
	}
	if err := syscall.Mount("", "/", "", syscall.MS_PRIVATE|syscall.MS_REC, ""); err != nil {
		return fmt.Errorf("remount / private: %w", err)
	}
	return nil
}
