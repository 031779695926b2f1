package config

import (
	"os"
	"path/filepath"
	"testing"

	"winewarden/internal/types"
)

func TestLoad_MissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.jsonc"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Trust != "red" {
		t.Errorf("Trust = %q, want red", cfg.Trust)
	}
}

func TestSaveAndLoad_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.jsonc")

	cfg := Default()
	cfg.Trust = "yellow"
	cfg.Zones = []Zone{{Label: "sys", Path: "/etc/shadow", Action: "deny"}}

	if err := Save(path, cfg, false); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Trust != "yellow" {
		t.Errorf("Trust = %q, want yellow", loaded.Trust)
	}
	if len(loaded.Zones) != 1 || loaded.Zones[0].Label != "sys" {
		t.Errorf("Zones = %+v", loaded.Zones)
	}
}

func TestSave_RefusesOverwriteWithoutForce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.jsonc")
	if err := Save(path, Default(), false); err != nil {
		t.Fatal(err)
	}
	if err := Save(path, Default(), false); err == nil {
		t.Error("expected error overwriting without force")
	}
	if err := Save(path, Default(), true); err != nil {
		t.Errorf("force overwrite should succeed: %v", err)
	}
}

func TestLoad_StripsComments(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.jsonc")
	body := []byte(`{
		// default tier
		"trust": "green",
		"process": {"max_child_processes": 5}
	}`)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Trust != "green" {
		t.Errorf("Trust = %q, want green", cfg.Trust)
	}
	if cfg.Process.MaxChildProcesses != 5 {
		t.Errorf("MaxChildProcesses = %d, want 5", cfg.Process.MaxChildProcesses)
	}
}

func TestTier_DefaultsToRedOnUnparseable(t *testing.T) {
	cfg := Config{Trust: "bogus"}
	if cfg.Tier() != types.TrustRed {
		t.Errorf("Tier() = %v, want Red", cfg.Tier())
	}
}

func TestSacredZones_SkipsUnknownAction(t *testing.T) {
	cfg := Config{Zones: []Zone{
		{Label: "a", Path: "/a", Action: "deny"},
		{Label: "b", Path: "/b", Action: "bogus"},
	}}
	zones := cfg.SacredZones()
	if len(zones) != 1 || zones[0].Label != "a" {
		t.Errorf("SacredZones() = %+v", zones)
	}
}

func TestParseRedirectMapEnv(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	rules := ParseRedirectMapEnv("/tmp:/virt/tmp, ~/Documents:${HOME}/virt-docs")
	if len(rules) != 2 {
		t.Fatalf("got %d rules, want 2", len(rules))
	}
	if rules[0].Source != "/tmp" || rules[0].Dest != "/virt/tmp" {
		t.Errorf("rule 0 = %+v", rules[0])
	}
	if rules[1].Source != "/home/tester/Documents" || rules[1].Dest != "/home/tester/virt-docs" {
		t.Errorf("rule 1 = %+v", rules[1])
	}
}
