package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigInitWritesSampleAndNamesRealKeys(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init: %v", err)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("sample not written: %v", err)
	}
	for _, key := range []string{"output_root", "makemkv_binary", "min_length"} {
		if !strings.Contains(string(data), key) {
			t.Errorf("sample missing key %q", key)
		}
	}

	// The hint must name keys that actually exist in the sample.
	if !strings.Contains(out.String(), "rip.makemkv_binary") {
		t.Errorf("init hint does not name the makemkv_binary key: %q", out.String())
	}

	cmd = newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err == nil {
		t.Error("expected error when the file already exists")
	}
}
