package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wingedonezero/mkvq/internal/discfs"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var maxDepth int

	cmd := &cobra.Command{
		Use:   "scan <path>",
		Short: "List rip sources under a path without probing them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			depth := cfg.Scan.MaxDepth
			if cmd.Flags().Changed("max-depth") {
				depth = maxDepth
			}

			discs := discfs.Scan(args[0], depth)
			out := cmd.OutOrStdout()
			if len(discs) == 0 {
				fmt.Fprintln(out, "No disc images or disc folders found.")
				return nil
			}

			rows := make([][]string, 0, len(discs))
			for i, disc := range discs {
				kind := "folder"
				if discfs.IsImage(disc.Path) {
					kind = "image"
				}
				rows = append(rows, []string{
					fmt.Sprintf("%d", i+1),
					disc.DisplayName,
					kind,
					disc.Path,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Name", "Type", "Path"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "Override the configured scan depth")
	return cmd
}
