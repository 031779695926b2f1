package linux

import (
	"os"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Landlock filesystem access rights (ABI v1).
const (
	LANDLOCK_ACCESS_FS_EXECUTE     = 1 << 0
	LANDLOCK_ACCESS_FS_WRITE_FILE  = 1 << 1
	LANDLOCK_ACCESS_FS_READ_FILE   = 1 << 2
	LANDLOCK_ACCESS_FS_READ_DIR    = 1 << 3
	LANDLOCK_ACCESS_FS_REMOVE_DIR  = 1 << 4
	LANDLOCK_ACCESS_FS_REMOVE_FILE = 1 << 5
	LANDLOCK_ACCESS_FS_MAKE_CHAR   = 1 << 6
	LANDLOCK_ACCESS_FS_MAKE_DIR    = 1 << 7
	LANDLOCK_ACCESS_FS_MAKE_REG    = 1 << 8
	LANDLOCK_ACCESS_FS_MAKE_SOCK   = 1 << 9
	LANDLOCK_ACCESS_FS_MAKE_FIFO   = 1 << 10
	LANDLOCK_ACCESS_FS_MAKE_BLOCK  = 1 << 11
	LANDLOCK_ACCESS_FS_MAKE_SYM    = 1 << 12

	LANDLOCK_RULE_PATH_BENEATH = 1

	landlockABIv1 = handledAccessFSv1
)

// handledAccessFSv1 is every ABI v1 filesystem right; the ruleset handles
// all of them so that anything not explicitly allowed is denied.
const handledAccessFSv1 = LANDLOCK_ACCESS_FS_EXECUTE |
	LANDLOCK_ACCESS_FS_WRITE_FILE |
	LANDLOCK_ACCESS_FS_READ_FILE |
	LANDLOCK_ACCESS_FS_READ_DIR |
	LANDLOCK_ACCESS_FS_REMOVE_DIR |
	LANDLOCK_ACCESS_FS_REMOVE_FILE |
	LANDLOCK_ACCESS_FS_MAKE_CHAR |
	LANDLOCK_ACCESS_FS_MAKE_DIR |
	LANDLOCK_ACCESS_FS_MAKE_REG |
	LANDLOCK_ACCESS_FS_MAKE_SOCK |
	LANDLOCK_ACCESS_FS_MAKE_FIFO |
	LANDLOCK_ACCESS_FS_MAKE_BLOCK |
	LANDLOCK_ACCESS_FS_MAKE_SYM

// landlockRulesetAttr mirrors struct landlock_ruleset_attr (ABI v1: no
// handled_access_net field, added in v4).
type landlockRulesetAttr struct {
	handledAccessFS uint64
}

// landlockPathBeneathAttr mirrors struct landlock_path_beneath_attr.
type landlockPathBeneathAttr struct {
	allowedAccess uint64
	parentFd      int32
	_             [4]byte
}

// PathRule is one filesystem allowance: a path and the access rights
// granted beneath it.
type PathRule struct {
	Path   string
	Access uint64
}

// ReadOnlyDirAccess grants execute + read-file + read-dir for system
// directories.
const ReadOnlyDirAccess = LANDLOCK_ACCESS_FS_EXECUTE |
	LANDLOCK_ACCESS_FS_READ_FILE |
	LANDLOCK_ACCESS_FS_READ_DIR

// ReadWriteDirAccess grants every ABI v1 right, used for runtime
// directories and the prefix root.
const ReadWriteDirAccess = handledAccessFSv1

// ReadWriteFileAccess grants read+write on a single file (used for the
// narrow device allowances); directory-only rights are
// omitted since these paths are device nodes, not directories.
const ReadWriteFileAccess = LANDLOCK_ACCESS_FS_WRITE_FILE | LANDLOCK_ACCESS_FS_READ_FILE

// ApplyRuleset creates a landlock ruleset handling every ABI v1 access
// right, adds one path-beneath rule per entry in rules (skipping paths
// that do not exist, and logging-and-tolerating individual add-rule
// failures), then commits it with landlock_restrict_self
// after PR_SET_NO_NEW_PRIVS. A ruleset-create failure (no kernel support)
// is fatal; per-rule failures are not.
//
// onRuleError, if non-nil, is called with the path and error for any
// rule that failed to add; the caller is expected to log it.
func ApplyRuleset(rules []PathRule, onRuleError func(path string, err error)) error {
	attr := landlockRulesetAttr{handledAccessFS: landlockABIv1}
	rulesetFd, _, errno := syscall.Syscall(unix.SYS_LANDLOCK_CREATE_RULESET,
		uintptr(unsafe.Pointer(&attr)),
		unsafe.Sizeof(attr),
		0)
	if errno != 0 {
		return errno
	}
	defer syscall.Close(int(rulesetFd))

	for _, rule := range rules {
		if _, err := os.Stat(rule.Path); err != nil {
			continue
		}
		if err := addPathRule(int(rulesetFd), rule); err != nil {
			if onRuleError != nil {
				onRuleError(rule.Path, err)
			}
		}
	}

	if _, _, errno := syscall.Syscall(syscall.SYS_PRCTL, PR_SET_NO_NEW_PRIVS, 1, 0); errno != 0 {
		return errno
	}

	if _, _, errno := syscall.Syscall(unix.SYS_LANDLOCK_RESTRICT_SELF,
		uintptr(rulesetFd), 0, 0); errno != 0 {
		return errno
	}

	return nil
}

func addPathRule(rulesetFd int, rule PathRule) error {
	fd, err := syscall.Open(rule.Path, unix.O_PATH|syscall.O_CLOEXEC, 0)
	if err != nil {
		return err
	}
	defer syscall.Close(fd)

	attr := landlockPathBeneathAttr{
		allowedAccess: rule.Access,
		parentFd:      int32(fd),
	}
	_, _, errno := syscall.Syscall6(unix.SYS_LANDLOCK_ADD_RULE,
		uintptr(rulesetFd),
		LANDLOCK_RULE_PATH_BENEATH,
		uintptr(unsafe.Pointer(&attr)),
		0, 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

// DefaultDeviceAllowances is the narrow device allowlist:
// read+write on each named device file if present.
var DefaultDeviceAllowances = []string{
	"/dev/null", "/dev/zero", "/dev/urandom",
	"/dev/full", "/dev/ptmx", "/dev/tty",
}

// ReadOnlySystemDirs are read-only allowances for system directories
// that exist.
var ReadOnlySystemDirs = []string{
	"/usr", "/lib", "/lib64", "/bin", "/sbin", "/etc", "/opt",
}

// RuntimeDirs are read-write allowances for runtime directories that
// exist; the prefix root is appended by the caller.
var RuntimeDirs = []string{
	"/tmp", "/run", "/var/run", "/dev/shm",
}

// Tier names the trust levels that modulate the ruleset. Kept as an
// integer matching types.TrustTier's ordering so package linux stays
// free of internal imports.
type Tier int

const (
	TierRed Tier = iota
	TierYellow
	TierGreen
)

// BuildRules assembles the full rule set for a tier and prefix root:
// read-only system dirs, read-write runtime dirs + prefix root, narrow
// device allowances, and /dev/dri read-only if present. Tier modulation
// is additive-only: Red is this baseline, and Yellow/Green currently add
// nothing on top of it.
func BuildRules(tier Tier, prefixRoot string) []PathRule {
	var rules []PathRule

	for _, dir := range ReadOnlySystemDirs {
		rules = append(rules, PathRule{Path: dir, Access: ReadOnlyDirAccess})
	}
	for _, dir := range RuntimeDirs {
		rules = append(rules, PathRule{Path: dir, Access: ReadWriteDirAccess})
	}
	if prefixRoot != "" {
		rules = append(rules, PathRule{Path: prefixRoot, Access: ReadWriteDirAccess})
	}
	for _, dev := range DefaultDeviceAllowances {
		rules = append(rules, PathRule{Path: dev, Access: ReadWriteFileAccess})
	}
	rules = append(rules, PathRule{Path: "/dev/dri", Access: ReadOnlyDirAccess})

	return rules
}
