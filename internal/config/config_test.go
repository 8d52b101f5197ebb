package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wingedonezero/mkvq/internal/config"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, path, exists, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("exists should be false for a missing file")
	}
	if path == "" {
		t.Fatal("expected resolved path")
	}
	if cfg.Rip.MakemkvBinary != "makemkvcon" {
		t.Fatalf("binary default = %q", cfg.Rip.MakemkvBinary)
	}
	if cfg.Rip.MinLength != 120 {
		t.Fatalf("min_length default = %d", cfg.Rip.MinLength)
	}
	if !cfg.Rip.HumanLog || !cfg.Rip.ShowPercent || !cfg.Rip.ReprobeBeforeRip {
		t.Fatalf("boolean defaults wrong: %+v", cfg.Rip)
	}
	if cfg.Rip.KeepMessageFile || cfg.Rip.EnableDebugFile {
		t.Fatalf("boolean defaults wrong: %+v", cfg.Rip)
	}
	if !filepath.IsAbs(cfg.Rip.OutputRoot) {
		t.Fatalf("output root not expanded: %q", cfg.Rip.OutputRoot)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[rip]
output_root = "` + dir + `/out"
makemkv_binary = "/opt/makemkv/bin/makemkvcon"
min_length = 30
extra_args = "  --noscan  "

[scan]
max_depth = 5

[logging]
format = "json"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("resolved = %q exists = %v", resolved, exists)
	}
	if cfg.Rip.MinLength != 30 || cfg.Scan.MaxDepth != 5 {
		t.Fatalf("values not applied: %+v", cfg)
	}
	if cfg.Rip.ExtraArgs != "--noscan" {
		t.Fatalf("extra args not trimmed: %q", cfg.Rip.ExtraArgs)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("format = %q", cfg.Logging.Format)
	}
	// Defaults still present for unset keys.
	if cfg.Probe.InfoTimeout != 180 {
		t.Fatalf("info timeout default = %d", cfg.Probe.InfoTimeout)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"bad naming mode": "[rip]\nnaming_mode = \"whatever\"\n",
		"negative length": "[rip]\nmin_length = -1\n",
		"bad log format":  "[logging]\nformat = \"xml\"\n",
		"negative depth":  "[scan]\nmax_depth = -2\n",
	}
	for name, content := range cases {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, _, _, err := config.Load(path); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "output_root") {
		t.Fatal("sample config missing expected keys")
	}
	// The sample must itself load cleanly.
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
}
