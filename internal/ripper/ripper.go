// Package ripper drives makemkvcon rip subprocesses for a queue of jobs:
// one job at a time, one subprocess at a time, with live progress, ETA, and
// log signals and a cooperative stop flag.
package ripper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/shlex"
	"github.com/google/uuid"

	"github.com/wingedonezero/mkvq/internal/config"
	"github.com/wingedonezero/mkvq/internal/logging"
	"github.com/wingedonezero/mkvq/internal/makemkv"
	"github.com/wingedonezero/mkvq/internal/probe"
	"github.com/wingedonezero/mkvq/internal/queue"
)

const defaultPollInterval = 200 * time.Millisecond

// Orchestrator executes a snapshot of queued jobs sequentially. Construct
// one per queue run; Updates is closed when the run finishes.
type Orchestrator struct {
	cfg      *config.Config
	logger   *slog.Logger
	launcher Launcher
	prober   probe.InfoClient

	updates      chan Update
	stopFlag     atomic.Bool
	pollInterval time.Duration
	now          func() time.Time
	sampler      *logging.ProgressSampler
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithLauncher injects a custom subprocess launcher (primarily for tests).
func WithLauncher(launcher Launcher) Option {
	return func(o *Orchestrator) {
		if launcher != nil {
			o.launcher = launcher
		}
	}
}

// WithInfoClient injects the client used for pre-rip re-probing. A nil
// client disables re-probing regardless of configuration.
func WithInfoClient(client probe.InfoClient) Option {
	return func(o *Orchestrator) { o.prober = client }
}

// WithPollInterval overrides the stop-flag/message-file poll cadence.
func WithPollInterval(interval time.Duration) Option {
	return func(o *Orchestrator) {
		if interval > 0 {
			o.pollInterval = interval
		}
	}
}

// WithClock overrides the time source for ETA estimation.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// New constructs an orchestrator for one queue run.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:          cfg,
		logger:       logging.WithComponent(logger, "ripper"),
		launcher:     NewExecLauncher(),
		updates:      make(chan Update, 64),
		pollInterval: defaultPollInterval,
		now:          time.Now,
		sampler:      logging.NewProgressSampler(5),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Updates returns the ordered signal channel. Consume it until it closes;
// UpdateJobDone is always the last signal for a job.
func (o *Orchestrator) Updates() <-chan Update { return o.updates }

// Stop requests cooperative cancellation. The active subprocess is
// terminated at the next poll tick and remaining queued jobs do not start.
func (o *Orchestrator) Stop() { o.stopFlag.Store(true) }

func (o *Orchestrator) stopped(ctx context.Context) bool {
	return o.stopFlag.Load() || ctx.Err() != nil
}

// Run executes the job snapshot sequentially and returns it with terminal
// statuses and run artifacts filled in. A single job's failure never stops
// the queue; a stop request halts everything after the current job.
func (o *Orchestrator) Run(ctx context.Context, jobs []queue.Job) []queue.Job {
	defer close(o.updates)

	for row := range jobs {
		job := &jobs[row]
		if o.stopped(ctx) {
			job.Status = queue.StatusStopped
			o.status(row, "Stopped")
			o.jobDone(row, false)
			break
		}

		o.status(row, "Starting…")
		o.progress(row, 0)
		job.Status = queue.StatusRunning
		o.sampler.Reset()

		ok, stopRequested := o.runJob(ctx, row, job)
		switch {
		case stopRequested:
			job.Status = queue.StatusStopped
			o.progress(row, 0)
			o.status(row, "Stopped")
			o.jobDone(row, false)
			o.logger.Info("queue halted by stop request", logging.Int("row", row))
			return jobs
		case ok:
			job.Status = queue.StatusDone
			o.progress(row, 100)
			o.status(row, "Done")
			o.jobDone(row, true)
			o.logger.Info("job completed",
				logging.Int("row", row),
				logging.String("source", job.SourceSpec),
				logging.String("out_dir", job.OutDir),
			)
		default:
			job.Status = queue.StatusFailed
			o.progress(row, 0)
			o.status(row, "Failed")
			o.jobDone(row, false)
			o.logger.Warn("job failed",
				logging.Int("row", row),
				logging.String("source", job.SourceSpec),
			)
		}
	}
	return jobs
}

// runJob performs one job end to end. It returns ok=true on success
// (including the trivial empty-selection skip) and stopRequested=true when a
// stop was observed mid-job.
func (o *Orchestrator) runJob(ctx context.Context, row int, job *queue.Job) (ok, stopRequested bool) {
	if o.cfg.Rip.ReprobeBeforeRip && o.prober != nil {
		o.reprobe(ctx, row, job)
	}

	if err := os.MkdirAll(o.cfg.Rip.OutputRoot, 0o755); err != nil {
		o.line(row, "ERROR: create output root: "+err.Error())
		return false, false
	}
	destDir := resolveOutputDir(o.cfg.Rip, job)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		o.line(row, "ERROR: create output directory: "+err.Error())
		return false, false
	}
	logPath := logFileName(destDir, job)
	job.OutDir, job.LogPath = destDir, logPath

	titles, allTitles, explicitNone := job.SelectedList()
	if explicitNone {
		o.line(row, "No titles selected - skipping job")
		return true, false
	}
	titleSpecs := make([]string, 0, len(titles))
	for _, id := range titles {
		titleSpecs = append(titleSpecs, strconv.Itoa(id))
	}
	if allTitles && len(titleSpecs) == 0 {
		o.line(row, "All titles selected but no title info - using 'all'")
		titleSpecs = []string{"all"}
	}

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		o.line(row, "ERROR: open log file: "+err.Error())
		return false, false
	}
	defer logFile.Close()

	plan := newSlicePlan(titles, job.Titles)
	if len(plan.weights) == 0 {
		plan = slicePlan{weights: []float64{1}}
	}

	o.line(row, fmt.Sprintf("Processing %d title(s)", len(titleSpecs)))

	runID := uuid.NewString()[:8]
	overallOK := true
	for idx, titleSpec := range titleSpecs {
		if o.stopped(ctx) {
			return false, true
		}
		run := &titleRun{
			row:       row,
			job:       job,
			destDir:   destDir,
			logFile:   logFile,
			titleSpec: titleSpec,
			index:     idx,
			total:     len(titleSpecs),
			plan:      plan,
			runID:     runID,
		}
		titleOK, titleStopped := o.runTitle(ctx, run)
		if titleStopped {
			return false, true
		}
		if !titleOK {
			overallOK = false
		}
		if idx == 0 {
			job.Cmdline = run.cmdline
		}
	}
	if len(titleSpecs) > 1 && job.Cmdline != "" {
		job.Cmdline += fmt.Sprintf(" # (and %d more titles)", len(titleSpecs)-1)
	}
	return overallOK, false
}

func (o *Orchestrator) reprobe(ctx context.Context, row int, job *queue.Job) {
	o.status(row, "Probing disc…")
	info, _, err := o.prober.Info(ctx, job.SourceSpec)
	if err != nil {
		// Stale metadata is better than no rip: keep whatever the job has.
		o.line(row, "Probe failed: "+probe.ClassifyError(err))
		return
	}
	job.ApplyProbe(info)
	o.line(row, fmt.Sprintf("Probed disc: %d titles found", job.TitlesTotal))
}

// titleRun bundles the state of one per-title subprocess pass.
type titleRun struct {
	row       int
	job       *queue.Job
	destDir   string
	logFile   *os.File
	titleSpec string
	index     int
	total     int
	plan      slicePlan
	runID     string

	cmdline string
	lastPct int
}

func (o *Orchestrator) runTitle(ctx context.Context, run *titleRun) (ok, stopRequested bool) {
	msgPath := filepath.Join(run.destDir, fmt.Sprintf(".mkvq_messages_%s_title_%s.tmp", run.runID, run.titleSpec))
	args := buildRipArgs(o.cfg.Rip, run.job, run.titleSpec, run.destDir, msgPath)
	run.cmdline = renderCmdline(o.cfg.Rip.MakemkvBinary, args)

	o.emitLine(run, fmt.Sprintf("Title %d/%d: $ %s", run.index+1, run.total, run.cmdline))
	fmt.Fprintf(run.logFile, "\n=== Title %s (%d/%d) ===\n", run.titleSpec, run.index+1, run.total)

	// Create the message file up front so tailing starts from a known file.
	if f, err := os.OpenFile(msgPath, os.O_CREATE|os.O_WRONLY, 0o644); err == nil {
		f.Close()
	}
	tail := newMessageTail(msgPath)
	defer o.cleanupMessageFile(run, msgPath)

	proc, err := o.launcher.Start(ctx, o.cfg.Rip.MakemkvBinary, args)
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound) {
			o.emitLine(run, "ERROR: makemkvcon not found. Check configuration.")
		} else {
			o.emitLine(run, "ERROR: "+err.Error())
		}
		return false, false
	}

	o.status(run.row, fmt.Sprintf("Title %d/%d (#%s)", run.index+1, run.total, run.titleSpec))

	eta := newETAEstimator(o.now)
	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	terminated := false
	lines := proc.Lines()
	for lines != nil {
		select {
		case line, open := <-lines:
			if !open {
				lines = nil
				continue
			}
			o.handleStdoutLine(run, eta, line)
		case <-ticker.C:
			o.drainMessages(run, tail)
			if !terminated && o.stopped(ctx) {
				proc.Terminate()
				terminated = true
			}
		}
	}
	o.drainMessages(run, tail)

	waitErr := proc.Wait()
	if terminated {
		o.emitLine(run, fmt.Sprintf("Title %s: Stopped", run.titleSpec))
		return false, true
	}
	if waitErr != nil {
		o.emitLine(run, fmt.Sprintf("Title %s: Failed", run.titleSpec))
		o.logger.Warn("title rip failed",
			logging.Int("row", run.row),
			logging.String("title", run.titleSpec),
			logging.Error(waitErr),
		)
		return false, false
	}
	o.emitLine(run, fmt.Sprintf("Title %s: Completed successfully", run.titleSpec))
	return true, false
}

func (o *Orchestrator) handleStdoutLine(run *titleRun, eta *etaEstimator, line string) {
	if o.cfg.Rip.KeepMessageFile {
		fmt.Fprintf(run.logFile, "RAW: %s\n", line)
	}

	switch event := makemkv.Classify(line).(type) {
	case makemkv.ProgressEvent:
		if !o.cfg.Rip.ShowPercent {
			return
		}
		titlePct := int(100 * event.Current / event.Max)
		// 100% is reserved for a verified-successful exit.
		if titlePct >= 100 {
			titlePct = 99
		}
		// The raw counter can wobble between tool phases; the reported
		// percentage only ever moves forward within a title.
		if titlePct < run.lastPct {
			titlePct = run.lastPct
		}
		run.lastPct = titlePct

		overall := run.plan.Overall(run.index, float64(titlePct))
		// The blend can round up to 100 on the last slice; that value is
		// reserved for a verified-successful job.
		if overall > 99 {
			overall = 99
		}
		o.progress(run.row, overall)

		eta.Observe(event.Current)
		etaText := eta.Estimate(event.Current, event.Max)
		status := fmt.Sprintf("Title %d/%d (#%s) • %d%% • ETA %s", run.index+1, run.total, run.titleSpec, titlePct, etaText)
		o.status(run.row, status)
		if o.sampler.ShouldLog(float64(overall), "Ripping") {
			o.logger.Info("rip progress",
				logging.Int("row", run.row),
				logging.String("title", run.titleSpec),
				logging.Int("percent", overall),
				logging.String("eta", etaText),
			)
		}
	case makemkv.MessageEvent:
		text := event.Raw
		if o.cfg.Rip.HumanLog {
			text = event.Text
		}
		o.emitLine(run, fmt.Sprintf("Title %s: %s", run.titleSpec, text))
	case makemkv.Unrecognized:
		if event.Line == "" || strings.HasPrefix(event.Line, "PRG") {
			return
		}
		o.emitLine(run, fmt.Sprintf("Title %s: %s", run.titleSpec, event.Line))
	}
}

// drainMessages surfaces new side-channel lines. Progress prefixes are
// skipped there: the message file duplicates PRG* events that stdout already
// delivers.
func (o *Orchestrator) drainMessages(run *titleRun, tail *messageTail) {
	lines, err := tail.Drain()
	if err != nil {
		o.logger.Warn("message file read failed", logging.Error(err), logging.Int("row", run.row))
		return
	}
	for _, raw := range lines {
		if raw == "" || strings.HasPrefix(raw, "PRG") {
			continue
		}
		out := raw
		if o.cfg.Rip.HumanLog {
			if event, ok := makemkv.Classify(raw).(makemkv.MessageEvent); ok {
				out = event.Text
			} else {
				continue
			}
		}
		o.emitLine(run, fmt.Sprintf("Title %s: %s", run.titleSpec, out))
	}
}

func (o *Orchestrator) cleanupMessageFile(run *titleRun, msgPath string) {
	if _, err := os.Stat(msgPath); err != nil {
		return
	}
	if !o.cfg.Rip.KeepMessageFile {
		_ = os.Remove(msgPath)
		return
	}
	stem := strings.TrimSuffix(filepath.Base(run.job.LogPath), filepath.Ext(run.job.LogPath))
	keep := filepath.Join(run.destDir, fmt.Sprintf("%s_title_%s.raw.txt", stem, run.titleSpec))
	_ = os.Remove(keep)
	if err := os.Rename(msgPath, keep); err != nil {
		_ = os.Remove(msgPath)
	}
}

// emitLine sends a log line signal and appends it to the job's log file.
func (o *Orchestrator) emitLine(run *titleRun, text string) {
	o.line(run.row, text)
	fmt.Fprintln(run.logFile, text)
}

func (o *Orchestrator) progress(row, percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	o.updates <- Update{Row: row, Kind: UpdateProgress, Percent: percent}
}

func (o *Orchestrator) status(row int, text string) {
	o.updates <- Update{Row: row, Kind: UpdateStatus, Text: text}
}

func (o *Orchestrator) line(row int, text string) {
	o.updates <- Update{Row: row, Kind: UpdateLine, Text: text}
}

func (o *Orchestrator) jobDone(row int, ok bool) {
	o.updates <- Update{Row: row, Kind: UpdateJobDone, OK: ok}
}

func buildRipArgs(cfg config.Rip, job *queue.Job, titleSpec, destDir, msgPath string) []string {
	args := []string{"-r"}
	if cfg.ShowPercent {
		args = append(args, "--progress=-stdout")
	}
	args = append(args, "--messages", msgPath)
	if cfg.EnableDebugFile {
		debugName := fmt.Sprintf("%s_title_%s_debug.log", filepath.Base(destDir), titleSpec)
		args = append(args, "--debug", filepath.Join(destDir, debugName))
	}
	if cfg.ProfilePath != "" {
		args = append(args, "--profile", cfg.ProfilePath)
	}
	if cfg.ExtraArgs != "" {
		if extra, err := shlex.Split(cfg.ExtraArgs); err == nil {
			args = append(args, extra...)
		}
	}
	args = append(args, "mkv", job.SourceSpec, titleSpec, destDir, fmt.Sprintf("--minlength=%d", cfg.MinLength))
	return args
}

func renderCmdline(binary string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	for _, token := range append([]string{binary}, args...) {
		if token == "" || strings.ContainsAny(token, " \t\"'") {
			token = strconv.Quote(token)
		}
		parts = append(parts, token)
	}
	return strings.Join(parts, " ")
}
