package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/wingedonezero/mkvq/internal/config"
	"github.com/wingedonezero/mkvq/internal/discfs"
	"github.com/wingedonezero/mkvq/internal/makemkv"
	"github.com/wingedonezero/mkvq/internal/probe"
	"github.com/wingedonezero/mkvq/internal/queue"
	"github.com/wingedonezero/mkvq/internal/ripper"
)

func newRipCommand(ctx *commandContext) *cobra.Command {
	var titlesFlag string
	var groupFlag string
	var skipProbe bool

	cmd := &cobra.Command{
		Use:   "rip <path>",
		Short: "Queue every source under a path and rip it to MKV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			selection, err := parseTitleSelection(titlesFlag)
			if err != nil {
				return err
			}

			unlock, err := acquireRipLock(cfg)
			if err != nil {
				return err
			}
			defer unlock()

			return runRipPipeline(cmd, ctx, args[0], selection, groupFlag, skipProbe)
		},
	}

	cmd.Flags().StringVar(&titlesFlag, "titles", "", "Comma-separated title IDs to rip from every disc (default: all)")
	cmd.Flags().StringVar(&groupFlag, "group", "", "Group output directories under this name")
	cmd.Flags().BoolVar(&skipProbe, "skip-probe", false, "Skip the metadata probe pass before ripping")
	return cmd
}

// acquireRipLock takes the single-instance lock under the output root so two
// rip runs never write into the same tree.
func acquireRipLock(cfg *config.Config) (func(), error) {
	if err := os.MkdirAll(cfg.Rip.OutputRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create output root: %w", err)
	}
	lock := flock.New(filepath.Join(cfg.Rip.OutputRoot, ".mkvq.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire rip lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another mkvq rip is already writing to %s", cfg.Rip.OutputRoot)
	}
	return func() { _ = lock.Unlock() }, nil
}

func parseTitleSelection(flag string) (map[int]struct{}, error) {
	flag = strings.TrimSpace(flag)
	if flag == "" {
		return nil, nil
	}
	if strings.EqualFold(flag, "none") {
		return map[int]struct{}{}, nil
	}
	selection := make(map[int]struct{})
	for _, part := range strings.Split(flag, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil || id < 0 {
			return nil, fmt.Errorf("invalid title id %q in --titles", part)
		}
		selection[id] = struct{}{}
	}
	return selection, nil
}

func runRipPipeline(cmd *cobra.Command, ctx *commandContext, path string, selection map[int]struct{}, group string, skipProbe bool) error {
	cfg := ctx.cfg
	out := cmd.OutOrStdout()

	discs := discfs.Scan(path, cfg.Scan.MaxDepth)
	if len(discs) == 0 {
		fmt.Fprintln(out, "No disc images or disc folders found.")
		return nil
	}

	store := queue.NewStore()
	for _, disc := range discs {
		job := queue.NewJobFromDisc(disc, group)
		if selection != nil {
			job.SelectedTitles = cloneSelection(selection)
		}
		store.Add(job)
	}
	fmt.Fprintf(out, "Queued %d job(s) from %s\n", store.Len(), path)

	client, err := makemkv.NewClient(cfg.Rip.MakemkvBinary, cfg.Probe.InfoTimeout)
	if err != nil {
		return err
	}

	if !skipProbe {
		probeQueue(cmd, ctx, client, store)
	}

	// Ctrl-C requests a cooperative stop; the active title is terminated
	// and the rest of the queue stays untouched.
	runCtx, cancelSignals := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancelSignals()

	orch := ripper.New(cfg, ctx.logger, ripper.WithInfoClient(client))
	go func() {
		<-runCtx.Done()
		orch.Stop()
	}()

	jobsCh := make(chan []queue.Job, 1)
	go func() { jobsCh <- orch.Run(context.Background(), store.Snapshot()) }()

	renderUpdates(out, store.Len(), orch.Updates())
	jobs := <-jobsCh

	fmt.Fprintln(out, renderTable(
		[]string{"#", "Name", "Status", "Output"},
		summarizeJobs(jobs),
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
	))
	for _, job := range jobs {
		if job.Status == queue.StatusFailed {
			return fmt.Errorf("%d of %d job(s) failed", countStatus(jobs, queue.StatusFailed), len(jobs))
		}
	}
	return nil
}

func cloneSelection(selection map[int]struct{}) map[int]struct{} {
	out := make(map[int]struct{}, len(selection))
	for id := range selection {
		out[id] = struct{}{}
	}
	return out
}

// probeQueue runs the probe pass over every queued job and folds the results
// back into the store. Probe failures leave the job rippable with whatever
// metadata it already has.
func probeQueue(cmd *cobra.Command, ctx *commandContext, client probe.InfoClient, store *queue.Store) {
	out := cmd.OutOrStdout()
	coordinator := probe.NewCoordinator(client, ctx.logger)

	probeCtx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go coordinator.Run(probeCtx)

	total := store.Len()
	for row := 0; row < total; row++ {
		job, err := store.Get(row)
		if err != nil {
			continue
		}
		_ = store.Update(row, func(j *queue.Job) { j.Status = queue.StatusProbing })
		coordinator.Enqueue(probe.Request{Row: row, SourceSpec: job.SourceSpec})
	}

	for received := 0; received < total; received++ {
		result, ok := <-coordinator.Results()
		if !ok {
			break
		}
		_ = store.Update(result.Row, func(j *queue.Job) {
			j.Status = queue.StatusQueued
			if result.Err == "" {
				j.ApplyProbe(result.Info)
			}
		})
		if result.Err != "" {
			fmt.Fprintf(out, "probe: job %d: %s\n", result.Row+1, result.Err)
		}
	}
}

// renderUpdates consumes the orchestrator signal stream until it closes. On
// a TTY the current status is redrawn in place; otherwise every line and
// status change is printed plainly so logs stay greppable.
func renderUpdates(out io.Writer, total int, updates <-chan ripper.Update) {
	tty := false
	if f, ok := out.(*os.File); ok {
		tty = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	percent := 0
	for update := range updates {
		switch update.Kind {
		case ripper.UpdateProgress:
			percent = update.Percent
			if tty {
				fmt.Fprintf(out, "\r\033[K[job %d/%d] %3d%%", update.Row+1, total, percent)
			}
		case ripper.UpdateStatus:
			if tty {
				fmt.Fprintf(out, "\r\033[K[job %d/%d] %3d%% %s", update.Row+1, total, percent, update.Text)
			} else {
				fmt.Fprintf(out, "[job %d/%d] %s\n", update.Row+1, total, update.Text)
			}
		case ripper.UpdateLine:
			if tty {
				fmt.Fprintf(out, "\r\033[K%s\n", update.Text)
			} else {
				fmt.Fprintln(out, update.Text)
			}
		case ripper.UpdateJobDone:
			if tty {
				fmt.Fprint(out, "\n")
			}
			percent = 0
		}
	}
}

func summarizeJobs(jobs []queue.Job) [][]string {
	rows := make([][]string, 0, len(jobs))
	for i, job := range jobs {
		name := job.LabelHint
		if name == "" {
			name = job.ChildName
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			name,
			string(job.Status),
			job.OutDir,
		})
	}
	return rows
}

func countStatus(jobs []queue.Job, status queue.Status) int {
	n := 0
	for _, job := range jobs {
		if job.Status == status {
			n++
		}
	}
	return n
}
