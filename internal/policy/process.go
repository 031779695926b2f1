package policy

import "winewarden/internal/types"

// ProcessConfig is the configured process-spawn rule set.
type ProcessConfig struct {
	AllowedPatterns   []string
	BlockedPatterns   []string
	MaxChildProcesses int
	ShellAllowed      bool
	ScriptAllowed     bool
}

var knownShells = map[string]bool{
	"bash": true, "sh": true, "cmd.exe": true, "cmd": true,
	"powershell.exe": true, "powershell": true, "zsh": true,
}

var knownScriptExtensions = []string{".bat", ".cmd", ".ps1", ".vbs", ".sh"}

// EvaluateProcessSpawn applies the spawn rules in a fixed order: child
// cap, blocked patterns, shells, script extensions, then the allowlist.
// name is matched case-insensitively against configured patterns.
func EvaluateProcessSpawn(cfg ProcessConfig, tracker *types.ProcessTracker, name string) types.PolicyDecision {
	if tracker.ChildCount >= cfg.MaxChildProcesses {
		return deny(tracker, name, "max child processes reached")
	}

	if matchesAny(cfg.BlockedPatterns, name) {
		return deny(tracker, name, "matches blocked pattern")
	}

	lower := toLower(name)
	if knownShells[lower] && !cfg.ShellAllowed {
		return deny(tracker, name, "shell execution disabled")
	}

	if hasKnownScriptExtension(lower) && !cfg.ScriptAllowed {
		return deny(tracker, name, "script execution disabled")
	}

	if len(cfg.AllowedPatterns) > 0 && !matchesAny(cfg.AllowedPatterns, name) {
		return deny(tracker, name, "does not match any allowed pattern")
	}

	tracker.RecordAllowed(name)
	return types.PolicyDecision{Action: types.ActionAllow}
}

func deny(tracker *types.ProcessTracker, name, reason string) types.PolicyDecision {
	tracker.RecordDenied(name)
	return types.PolicyDecision{Action: types.ActionDeny, Reason: reason}
}

func hasKnownScriptExtension(lowerName string) bool {
	for _, ext := range knownScriptExtensions {
		if hasSuffix(lowerName, ext) {
			return true
		}
	}
	return false
}

func matchesAny(patterns []string, name string) bool {
	lower := toLower(name)
	for _, p := range patterns {
		if matchPattern(toLower(p), lower) {
			return true
		}
	}
	return false
}

// matchPattern is a restricted glob: "*" means any run of characters,
// anchored at the start unless the pattern begins with "*" and at the end
// unless it ends with "*". Kept hand-rolled rather than routed through
// doublestar because process names are flat strings, not paths, and "/"
// or "." must carry no special meaning here.
func matchPattern(pattern, name string) bool {
	if pattern == "*" {
		return true
	}
	leadingStar := len(pattern) > 0 && pattern[0] == '*'
	trailingStar := len(pattern) > 0 && pattern[len(pattern)-1] == '*'
	core := pattern
	if leadingStar {
		core = core[1:]
	}
	if trailingStar && len(core) > 0 {
		core = core[:len(core)-1]
	}

	switch {
	case leadingStar && trailingStar:
		return contains(name, core)
	case leadingStar:
		return hasSuffix(name, core)
	case trailingStar:
		return hasPrefix(name, core)
	default:
		return name == core
	}
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

func contains(s, substr string) bool {
	if substr == "" {
		return true
	}
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
