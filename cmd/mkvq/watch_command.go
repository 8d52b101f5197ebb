package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wingedonezero/mkvq/internal/watch"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the configured drop directory and rip whatever lands in it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Scan.WatchDir == "" {
				return errors.New("scan.watch_dir is not configured")
			}
			if err := os.MkdirAll(cfg.Scan.WatchDir, 0o755); err != nil {
				return fmt.Errorf("create watch directory: %w", err)
			}

			runCtx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			// Settled drops queue here; rips run one at a time on this
			// goroutine so the watcher never blocks on a long rip.
			drops := make(chan string, 16)
			settle := time.Duration(cfg.Scan.SettleMillis) * time.Millisecond
			watcher := watch.New(cfg.Scan.WatchDir, settle, ctx.logger, func(path string) {
				select {
				case drops <- path:
				default:
					fmt.Fprintf(cmd.ErrOrStderr(), "drop backlog full, ignoring %s\n", path)
				}
			})

			watchErr := make(chan error, 1)
			go func() { watchErr <- watcher.Run(runCtx) }()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Watching %s (Ctrl-C to stop)\n", cfg.Scan.WatchDir)
			for {
				select {
				case err := <-watchErr:
					return err
				case <-runCtx.Done():
					return nil
				case path := <-drops:
					if err := ripDrop(cmd, ctx, path); err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "rip %s: %v\n", path, err)
					}
				}
			}
		},
	}
	return cmd
}

func ripDrop(cmd *cobra.Command, ctx *commandContext, path string) error {
	unlock, err := acquireRipLock(ctx.cfg)
	if err != nil {
		return err
	}
	defer unlock()
	return runRipPipeline(cmd, ctx, path, nil, "", false)
}
