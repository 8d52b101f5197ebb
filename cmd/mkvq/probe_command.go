package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wingedonezero/mkvq/internal/discfs"
	"github.com/wingedonezero/mkvq/internal/makemkv"
	"github.com/wingedonezero/mkvq/internal/probe"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe <path>",
		Short: "Read disc metadata for every source under a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			discs := discfs.Scan(args[0], cfg.Scan.MaxDepth)
			out := cmd.OutOrStdout()
			if len(discs) == 0 {
				fmt.Fprintln(out, "No disc images or disc folders found.")
				return nil
			}

			client, err := makemkv.NewClient(cfg.Rip.MakemkvBinary, cfg.Probe.InfoTimeout)
			if err != nil {
				return err
			}
			coordinator := probe.NewCoordinator(client, ctx.logger)

			runCtx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			go coordinator.Run(runCtx)

			for row, disc := range discs {
				coordinator.Enqueue(probe.Request{Row: row, SourceSpec: discfs.SourceSpec(disc.Path)})
			}

			for received := 0; received < len(discs); received++ {
				result, ok := <-coordinator.Results()
				if !ok {
					break
				}
				disc := discs[result.Row]
				fmt.Fprintf(out, "\n%s\n", disc.Path)
				if result.Err != "" {
					fmt.Fprintf(out, "  probe failed: %s\n", result.Err)
					continue
				}
				printInfo(cmd, result.Info)
			}
			return nil
		},
	}
	return cmd
}

func printInfo(cmd *cobra.Command, info makemkv.Info) {
	out := cmd.OutOrStdout()
	if info.Label != "" {
		fmt.Fprintf(out, "  Label: %s\n", info.Label)
	}
	fmt.Fprintf(out, "  Titles: %d\n", info.TitleCount)

	ids := make([]int, 0, len(info.Titles))
	for id := range info.Titles {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		title := info.Titles[id]
		rows = append(rows, []string{
			fmt.Sprintf("%d", id),
			title.Name,
			title.Duration,
			title.Size,
			strconv.Itoa(title.Chapters),
			summarizeStreams(title.Streams),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Title", "Name", "Duration", "Size", "Chapters", "Streams"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignLeft},
	))
}

// summarizeStreams compresses a title's track list into one cell, e.g.
// "HEVC 3840x2160; TrueHD 7.1 English; PGS English".
func summarizeStreams(streams []makemkv.StreamInfo) string {
	parts := make([]string, 0, len(streams))
	for _, stream := range streams {
		var bits []string
		if stream.Codec != "" {
			bits = append(bits, stream.Codec)
		}
		switch stream.Kind {
		case "Video":
			if stream.Resolution != "" {
				bits = append(bits, stream.Resolution)
			}
		case "Audio":
			if stream.Layout != "" {
				bits = append(bits, stream.Layout)
			}
		}
		// Lang already holds a display name from the info parser.
		if stream.Lang != "" {
			bits = append(bits, stream.Lang)
		}
		if len(bits) > 0 {
			parts = append(parts, strings.Join(bits, " "))
		}
	}
	return strings.Join(parts, "; ")
}
