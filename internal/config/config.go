// Package config loads and persists winewarden's JSONC configuration
// file: a default trust tier, sacred zones, process rules,
// network policy, and redirect-map overrides. Of these, the trust tier
// (plus the pirate-safe flag and poll interval) can be overridden per-run
// by CLI flags.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"

	"winewarden/internal/pathmap"
	"winewarden/internal/policy"
	"winewarden/internal/types"
)

// Zone is the on-disk shape of a sacred zone.
type Zone struct {
	Label      string `json:"label"`
	Path       string `json:"path"`
	Action     string `json:"action"` // allow | deny | redirect | virtualize
	RedirectTo string `json:"redirect_to,omitempty"`
}

// Redirect is one on-disk path-mapper rule.
type Redirect struct {
	Source string `json:"source"`
	Dest   string `json:"dest"`
}

// Process is the on-disk shape of the process-spawn rules.
type Process struct {
	Allowed           []string `json:"allowed,omitempty"`
	Blocked           []string `json:"blocked,omitempty"`
	MaxChildProcesses int      `json:"max_child_processes"`
	ShellAllowed      bool     `json:"shell_allowed"`
	ScriptAllowed     bool     `json:"script_allowed"`
}

// Network is the on-disk shape of the network policy.
type Network struct {
	BlockMaliciousOnRed bool `json:"block_malicious_on_red"`
}

// Config is the full persisted configuration, written by `init` and read
// by `run`/`config --print`.
type Config struct {
	Trust      string     `json:"trust"`
	Zones      []Zone     `json:"zones,omitempty"`
	Redirects  []Redirect `json:"redirects,omitempty"`
	Process    Process    `json:"process"`
	Network    Network    `json:"network"`
	PollMS     int        `json:"poll_ms"`
	PirateSafe bool       `json:"pirate_safe"`
}

// Default returns the default configuration written by `init`: Red tier,
// no extra zones, conservative process rules, network blocking enabled.
// PollMS zero means the supervisor loop picks its own poll timeout.
func Default() Config {
	return Config{
		Trust: "red",
		Process: Process{
			MaxChildProcesses: 10,
			ShellAllowed:      false,
			ScriptAllowed:     false,
		},
		Network: Network{BlockMaliciousOnRed: true},
	}
}

// Load reads and strips comments from the JSONC file at path, returning
// Default() if the file does not exist.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	stripped := jsonc.ToJSON(data)
	if err := json.Unmarshal(stripped, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg as pretty-printed JSON (a valid JSONC subset) to path,
// creating parent directories as needed. force controls whether an
// existing file is overwritten.
func Save(path string, cfg Config, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Tier resolves the configured trust tier, defaulting to Red on an
// unparseable value.
func (c Config) Tier() types.TrustTier {
	tier, ok := types.ParseTrustTier(c.Trust)
	if !ok {
		return types.TrustRed
	}
	return tier
}

// SacredZones converts the on-disk Zones into types.SacredZone, skipping
// any entry with an unrecognized action.
func (c Config) SacredZones() []types.SacredZone {
	out := make([]types.SacredZone, 0, len(c.Zones))
	for _, z := range c.Zones {
		action, ok := parseZoneAction(z.Action)
		if !ok {
			continue
		}
		out = append(out, types.SacredZone{
			Label:      z.Label,
			Path:       z.Path,
			Action:     action,
			RedirectTo: z.RedirectTo,
		})
	}
	return out
}

func parseZoneAction(s string) (types.ZoneAction, bool) {
	switch strings.ToLower(s) {
	case "allow":
		return types.ZoneAllow, true
	case "deny":
		return types.ZoneDeny, true
	case "redirect":
		return types.ZoneRedirect, true
	case "virtualize":
		return types.ZoneVirtualize, true
	default:
		return types.ZoneAllow, false
	}
}

// ProcessConfig converts the on-disk Process config into
// policy.ProcessConfig.
func (c Config) ProcessConfig() policy.ProcessConfig {
	return policy.ProcessConfig{
		AllowedPatterns:   c.Process.Allowed,
		BlockedPatterns:   c.Process.Blocked,
		MaxChildProcesses: c.Process.MaxChildProcesses,
		ShellAllowed:      c.Process.ShellAllowed,
		ScriptAllowed:     c.Process.ScriptAllowed,
	}
}

// NetworkConfig converts the on-disk Network config into
// policy.NetworkConfig.
func (c Config) NetworkConfig() policy.NetworkConfig {
	return policy.NetworkConfig{BlockMaliciousOnRed: c.Network.BlockMaliciousOnRed}
}

// PathMapperRules builds pathmap.Rules from the configured Redirects, with
// ${VAR}/~/ expansion, falling back to
// pathmap.DefaultRules(dataDir) when no redirects are configured.
func (c Config) PathMapperRules(dataDir string) []pathmap.Rule {
	if len(c.Redirects) == 0 {
		return pathmap.DefaultRules(dataDir)
	}
	rules := make([]pathmap.Rule, 0, len(c.Redirects))
	for _, r := range c.Redirects {
		rules = append(rules, pathmap.Rule{
			Source: pathmap.ExpandEnv(r.Source),
			Dest:   pathmap.ExpandEnv(r.Dest),
		})
	}
	return rules
}

// ParseRedirectMapEnv parses WINEWARDEN_REDIRECT_MAP's comma-separated
// "source:dest" entries, expanding ${VAR} and leading ~/
// in both halves.
func ParseRedirectMapEnv(val string) []pathmap.Rule {
	if val == "" {
		return nil
	}
	var rules []pathmap.Rule
	for _, entry := range strings.Split(val, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 2)
		if len(parts) != 2 {
			continue
		}
		rules = append(rules, pathmap.Rule{
			Source: pathmap.ExpandEnv(parts[0]),
			Dest:   pathmap.ExpandEnv(parts[1]),
		})
	}
	return rules
}
