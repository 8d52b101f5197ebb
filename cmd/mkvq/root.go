package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"

	"github.com/wingedonezero/mkvq/internal/config"
	"github.com/wingedonezero/mkvq/internal/logging"
)

// commandContext lazily loads configuration and logging so commands that do
// not need them (config init, help) never touch the filesystem.
type commandContext struct {
	configFlag *string

	once       sync.Once
	cfg        *config.Config
	configPath string
	logger     *slog.Logger
	loadErr    error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (ctx *commandContext) ensureConfig() (*config.Config, error) {
	ctx.once.Do(func() {
		cfg, path, _, err := config.Load(*ctx.configFlag)
		if err != nil {
			ctx.loadErr = err
			return
		}
		logger, err := newLogger(cfg)
		if err != nil {
			ctx.loadErr = fmt.Errorf("initialize logging: %w", err)
			return
		}
		ctx.cfg, ctx.configPath, ctx.logger = cfg, path, logger
	})
	return ctx.cfg, ctx.loadErr
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	paths := []string{"stderr"}
	if cfg.Logging.Dir != "" {
		paths = append(paths, filepath.Join(cfg.Logging.Dir, "mkvq.log"))
	}
	return logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Paths:  paths,
	})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func newRootCommand() *cobra.Command {
	var configFlag string

	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "mkvq",
		Short:         "Queue and rip optical disc images to MKV with makemkvcon",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newScanCommand(ctx))
	rootCmd.AddCommand(newProbeCommand(ctx))
	rootCmd.AddCommand(newRipCommand(ctx))
	rootCmd.AddCommand(newWatchCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
