// Package config loads and validates the immutable runtime configuration.
// Workers receive a loaded Config value at construction; nothing mutates it
// afterwards.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Rip contains how makemkvcon is invoked for ripping.
type Rip struct {
	OutputRoot    string `toml:"output_root"`
	MakemkvBinary string `toml:"makemkv_binary"`
	MinLength     int    `toml:"min_length"`
	ProfilePath   string `toml:"profile_path"`
	// ExtraArgs is shell-tokenized and appended to the command verbatim.
	ExtraArgs  string `toml:"extra_args"`
	NamingMode string `toml:"naming_mode"`

	HumanLog         bool `toml:"human_log"`
	EnableDebugFile  bool `toml:"enable_debug_file"`
	ShowPercent      bool `toml:"show_percent"`
	ReprobeBeforeRip bool `toml:"reprobe_before_rip"`
	KeepMessageFile  bool `toml:"keep_message_file"`
}

// Scan contains disc discovery settings.
type Scan struct {
	MaxDepth int `toml:"max_depth"`
	// WatchDir, when set, is monitored by the watch command for new drops.
	WatchDir     string `toml:"watch_dir"`
	SettleMillis int    `toml:"settle_millis"`
}

// Probe contains info-mode settings.
type Probe struct {
	InfoTimeout int `toml:"info_timeout"`
}

// Logging contains log output settings.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	Dir    string `toml:"dir"`
}

// Config encapsulates all configuration values.
type Config struct {
	Rip     Rip     `toml:"rip"`
	Scan    Scan    `toml:"scan"`
	Probe   Probe   `toml:"probe"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/mkvq/config.toml")
}

// Load locates, parses, and validates a configuration file. Path fields in
// the returned config are expanded and absolute. The boolean reports whether
// a file existed at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("mkvq.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	var err error
	if c.Rip.OutputRoot, err = expandPath(c.Rip.OutputRoot); err != nil {
		return err
	}
	if c.Rip.ProfilePath, err = expandPath(strings.TrimSpace(c.Rip.ProfilePath)); err != nil {
		return err
	}
	if c.Scan.WatchDir, err = expandPath(strings.TrimSpace(c.Scan.WatchDir)); err != nil {
		return err
	}
	if c.Logging.Dir, err = expandPath(strings.TrimSpace(c.Logging.Dir)); err != nil {
		return err
	}
	c.Rip.MakemkvBinary = strings.TrimSpace(c.Rip.MakemkvBinary)
	c.Rip.ExtraArgs = strings.TrimSpace(c.Rip.ExtraArgs)
	c.Rip.NamingMode = strings.TrimSpace(c.Rip.NamingMode)
	return nil
}

// EnsureDirectories creates the directories a queue run writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Rip.OutputRoot}
	if c.Logging.Dir != "" {
		dirs = append(dirs, c.Logging.Dir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// CreateSample writes a sample configuration file to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
