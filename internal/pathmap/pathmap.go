// Package pathmap maps original host paths to their virtual counterparts:
// a sorted prefix-replacement table plus lazy first-write materialization
// into the virtual locations.
package pathmap

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Rule is one configured (source, dest) prefix mapping.
type Rule struct {
	Source string
	Dest   string
}

// PathMapper holds Rules sorted by source length descending so the
// longest matching source prefix wins.
type PathMapper struct {
	rules []Rule
}

// New builds a PathMapper from the given rules, sorting them so the
// longest source prefix is checked first.
func New(rules []Rule) *PathMapper {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Source) > len(sorted[j].Source)
	})
	return &PathMapper{rules: sorted}
}

// DefaultRules returns the default mapping set: HOME, /tmp, and /root
// mapped under dataDir/virtual, used when no redirects are configured.
// ${VAR} and leading ~/ are expanded from the environment by ExpandEnv
// before rules reach here.
func DefaultRules(dataDir string) []Rule {
	var rules []Rule
	if home := os.Getenv("HOME"); home != "" {
		rules = append(rules, Rule{Source: home, Dest: filepath.Join(dataDir, "virtual", "home")})
	}
	rules = append(rules, Rule{Source: "/tmp", Dest: filepath.Join(dataDir, "virtual", "tmp")})
	rules = append(rules, Rule{Source: "/root", Dest: filepath.Join(dataDir, "virtual", "root")})
	return rules
}

// ExpandEnv expands "${VAR}" references and a leading "~/" in s using the
// process environment, as WINEWARDEN_REDIRECT_MAP entries expect.
func ExpandEnv(s string) string {
	if strings.HasPrefix(s, "~/") {
		if home := os.Getenv("HOME"); home != "" {
			s = filepath.Join(home, s[2:])
		}
	}
	return os.Expand(s, os.Getenv)
}

// Map returns dest.join(original with source stripped) for the first
// (longest) matching source prefix, or ("", false) if no rule matches.
func (m *PathMapper) Map(original string) (string, bool) {
	for _, r := range m.rules {
		if rel, ok := stripPrefix(original, r.Source); ok {
			return filepath.Join(r.Dest, rel), true
		}
	}
	return "", false
}

// Rules returns a copy of the mapper's sorted rule list, used by the
// bootstrap sequence to drive BindMountRules in source/dest order.
func (m *PathMapper) Rules() []Rule {
	out := make([]Rule, len(m.rules))
	copy(out, m.rules)
	return out
}

func stripPrefix(path, prefix string) (string, bool) {
	if prefix == "" {
		return "", false
	}
	if path == prefix {
		return "", true
	}
	if !strings.HasPrefix(path, prefix) {
		return "", false
	}
	rest := path[len(prefix):]
	if prefix[len(prefix)-1] == '/' {
		return strings.TrimPrefix(rest, "/"), true
	}
	if rest[0] != '/' {
		return "", false
	}
	return strings.TrimPrefix(rest, "/"), true
}

// IsWriteOperation reports whether flags carries any of O_WRONLY, O_RDWR,
// O_CREAT, O_TRUNC.
func IsWriteOperation(flags int) bool {
	const (
		oWRONLY = 0x1
		oRDWR   = 0x2
		oCREAT  = 0x40
		oTRUNC  = 0x200
	)
	return flags&oWRONLY != 0 || flags&oRDWR != 0 || flags&oCREAT != 0 || flags&oTRUNC != 0
}

// CopyOnWrite tracks original -> materialized virtual-path mappings,
// stable for the session once recorded.
type CopyOnWrite struct {
	materialized map[string]string
}

// NewCopyOnWrite returns an empty tracker.
func NewCopyOnWrite() *CopyOnWrite {
	return &CopyOnWrite{materialized: make(map[string]string)}
}

// Resolve returns the effective virtual path for original: idempotent
// once materialized, a read never copies, and a write materializes
// original into virtualPath on first observation.
func (c *CopyOnWrite) Resolve(original, virtualPath string, isWrite bool) (string, error) {
	if existing, ok := c.materialized[original]; ok {
		return existing, nil
	}
	if !isWrite {
		return virtualPath, nil
	}

	info, err := os.Stat(original)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(virtualPath), 0o755); err != nil {
			return "", fmt.Errorf("materialize parents for %s: %w", virtualPath, err)
		}
		c.materialized[original] = virtualPath
		return virtualPath, nil
	}
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", original, err)
	}

	if info.IsDir() {
		if err := os.MkdirAll(virtualPath, info.Mode().Perm()); err != nil {
			return "", fmt.Errorf("materialize dir %s: %w", virtualPath, err)
		}
	} else {
		if err := copyFile(original, virtualPath, info.Mode().Perm()); err != nil {
			return "", fmt.Errorf("materialize file %s: %w", virtualPath, err)
		}
	}
	c.materialized[original] = virtualPath
	return virtualPath, nil
}

// Materialized returns the recorded materialization for original, if any.
func (c *CopyOnWrite) Materialized(original string) (string, bool) {
	v, ok := c.materialized[original]
	return v, ok
}

func copyFile(src, dst string, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
