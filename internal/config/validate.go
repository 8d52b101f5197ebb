package config

import (
	"errors"
	"fmt"
	"strings"
)

var namingModes = map[string]struct{}{
	"disc_or_folder": {},
	"folder_only":    {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRip(); err != nil {
		return err
	}
	if err := c.validateScan(); err != nil {
		return err
	}
	if err := c.validateProbe(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateRip() error {
	if strings.TrimSpace(c.Rip.OutputRoot) == "" {
		return errors.New("rip.output_root must be set")
	}
	if c.Rip.MakemkvBinary == "" {
		return errors.New("rip.makemkv_binary must be set")
	}
	if c.Rip.MinLength < 0 {
		return errors.New("rip.min_length must not be negative")
	}
	if _, ok := namingModes[c.Rip.NamingMode]; !ok {
		return fmt.Errorf("rip.naming_mode must be one of disc_or_folder, folder_only (got %q)", c.Rip.NamingMode)
	}
	return nil
}

func (c *Config) validateScan() error {
	if c.Scan.MaxDepth < 0 {
		return errors.New("scan.max_depth must not be negative")
	}
	if c.Scan.SettleMillis < 0 {
		return errors.New("scan.settle_millis must not be negative")
	}
	return nil
}

func (c *Config) validateProbe() error {
	if c.Probe.InfoTimeout < 0 {
		return errors.New("probe.info_timeout must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	return nil
}
