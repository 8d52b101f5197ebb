package ripper

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wingedonezero/mkvq/internal/config"
	"github.com/wingedonezero/mkvq/internal/logging"
	"github.com/wingedonezero/mkvq/internal/makemkv"
	"github.com/wingedonezero/mkvq/internal/queue"
)

type scriptedProcess struct {
	lines    chan string
	waitErr  error
	termOnce sync.Once
	termed   chan struct{}
}

func newScriptedProcess() *scriptedProcess {
	return &scriptedProcess{
		lines:  make(chan string, 64),
		termed: make(chan struct{}),
	}
}

func (p *scriptedProcess) Lines() <-chan string { return p.lines }
func (p *scriptedProcess) Wait() error          { return p.waitErr }

func (p *scriptedProcess) Terminate() {
	p.termOnce.Do(func() {
		close(p.termed)
		close(p.lines)
	})
}

func (p *scriptedProcess) terminated() bool {
	select {
	case <-p.termed:
		return true
	default:
		return false
	}
}

// stubLauncher records Start calls and scripts each process's output.
type stubLauncher struct {
	mu       sync.Mutex
	calls    [][]string
	procs    []*scriptedProcess
	startErr error
	// script populates the process for the given call index. A nil script
	// closes the line channel immediately (instant success).
	script func(call int, p *scriptedProcess)
}

func (l *stubLauncher) Start(ctx context.Context, binary string, args []string) (Process, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	call := len(l.calls)
	l.calls = append(l.calls, append([]string{binary}, args...))
	if l.startErr != nil {
		return nil, l.startErr
	}
	p := newScriptedProcess()
	l.procs = append(l.procs, p)
	if l.script != nil {
		l.script(call, p)
	} else {
		close(p.lines)
	}
	return p, nil
}

func (l *stubLauncher) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Rip.OutputRoot = t.TempDir()
	cfg.Rip.ShowPercent = true
	return &cfg
}

func testJob(label string) queue.Job {
	return queue.Job{
		ID:         "test-" + label,
		SourceType: queue.SourceISO,
		SourcePath: "/tmp/" + label + ".iso",
		SourceSpec: "iso:/tmp/" + label + ".iso",
		ChildName:  label,
		Status:     queue.StatusQueued,
	}
}

func collectUpdates(ch <-chan Update) []Update {
	var out []Update
	for u := range ch {
		out = append(out, u)
	}
	return out
}

func findTokens(t *testing.T, call []string, tokens ...string) {
	t.Helper()
	joined := strings.Join(call, " ")
	for _, token := range tokens {
		if !strings.Contains(joined, token) {
			t.Errorf("command %q missing token %q", joined, token)
		}
	}
}

func TestRunEmptySelectionSkipsWithoutSpawning(t *testing.T) {
	cfg := testConfig(t)
	launcher := &stubLauncher{}
	job := testJob("empty")
	job.SelectedTitles = map[int]struct{}{}

	o := New(cfg, logging.NewNop(), WithLauncher(launcher))
	jobs := o.Run(context.Background(), []queue.Job{job})
	updates := collectUpdates(o.Updates())

	if launcher.callCount() != 0 {
		t.Fatalf("expected no subprocess, got %d launches", launcher.callCount())
	}
	if jobs[0].Status != queue.StatusDone {
		t.Fatalf("status = %s, want Done", jobs[0].Status)
	}
	var sawSkip bool
	for _, u := range updates {
		if u.Kind == UpdateLine && strings.Contains(u.Text, "No titles selected") {
			sawSkip = true
		}
	}
	if !sawSkip {
		t.Error("missing skip log line")
	}
	last := updates[len(updates)-1]
	if last.Kind != UpdateJobDone || !last.OK {
		t.Fatalf("last update = %+v, want successful JobDone", last)
	}
}

func TestRunRipsSelectedTitlesInOrder(t *testing.T) {
	cfg := testConfig(t)
	launcher := &stubLauncher{
		script: func(call int, p *scriptedProcess) {
			p.lines <- "MSG:1005,0,1,\"MakeMKV started\",\"%1 started\",\"v1.17\""
			for _, cur := range []int64{16384, 32768, 49152, 65536} {
				p.lines <- fmt.Sprintf("PRGV:%d,0,65536", cur)
			}
			close(p.lines)
		},
	}
	job := testJob("movie")
	job.Titles = map[int]makemkv.TitleInfo{
		0: {Name: "Main", Size: "20.0 GB"},
		2: {Name: "Extra", Size: "5.0 GB"},
	}
	job.TitlesTotal = 2
	job.SelectedTitles = map[int]struct{}{0: {}, 2: {}}

	o := New(cfg, logging.NewNop(), WithLauncher(launcher))
	jobs := o.Run(context.Background(), []queue.Job{job})
	updates := collectUpdates(o.Updates())

	if got := launcher.callCount(); got != 2 {
		t.Fatalf("launch count = %d, want 2", got)
	}
	findTokens(t, launcher.calls[0], "-r", "--progress=-stdout", "--messages", "mkv", "iso:/tmp/movie.iso", " 0 ", "--minlength=")
	findTokens(t, launcher.calls[1], " 2 ")

	if jobs[0].Status != queue.StatusDone {
		t.Fatalf("status = %s, want Done", jobs[0].Status)
	}
	if jobs[0].OutDir == "" || jobs[0].LogPath == "" || jobs[0].Cmdline == "" {
		t.Errorf("run artifacts not recorded: %+v", jobs[0])
	}

	// Progress is monotone and only hits 100 at the very end.
	prev := -1
	var final int
	for _, u := range updates {
		if u.Kind != UpdateProgress {
			continue
		}
		if u.Percent < prev {
			t.Fatalf("progress went backwards: %d after %d", u.Percent, prev)
		}
		prev = u.Percent
		final = u.Percent
	}
	if final != 100 {
		t.Fatalf("final progress = %d, want 100", final)
	}
	for _, u := range updates[:len(updates)-3] {
		if u.Kind == UpdateProgress && u.Percent == 100 {
			t.Fatal("progress reached 100 before the terminal update")
		}
	}

	if _, err := os.Stat(jobs[0].LogPath); err != nil {
		t.Fatalf("log file missing: %v", err)
	}
	data, _ := os.ReadFile(jobs[0].LogPath)
	if !strings.Contains(string(data), "=== Title 0 (1/2) ===") {
		t.Errorf("log file missing title header:\n%s", data)
	}
}

func TestRunFailedTitleMarksJobFailedButQueueContinues(t *testing.T) {
	cfg := testConfig(t)
	launcher := &stubLauncher{
		script: func(call int, p *scriptedProcess) {
			if call == 0 {
				p.waitErr = fmt.Errorf("exit status 1")
			}
			close(p.lines)
		},
	}
	first := testJob("broken")
	second := testJob("fine")

	o := New(cfg, logging.NewNop(), WithLauncher(launcher))
	jobs := o.Run(context.Background(), []queue.Job{first, second})
	collectUpdates(o.Updates())

	if jobs[0].Status != queue.StatusFailed {
		t.Errorf("first status = %s, want Failed", jobs[0].Status)
	}
	if jobs[1].Status != queue.StatusDone {
		t.Errorf("second status = %s, want Done", jobs[1].Status)
	}
}

func TestStopTerminatesProcessAndHaltsQueue(t *testing.T) {
	cfg := testConfig(t)
	started := make(chan struct{})
	launcher := &stubLauncher{
		script: func(call int, p *scriptedProcess) {
			p.lines <- "PRGV:1000,0,65536"
			close(started)
			// Leave the channel open: only Terminate ends this process.
		},
	}
	first := testJob("long")
	second := testJob("never")

	o := New(cfg, logging.NewNop(), WithLauncher(launcher), WithPollInterval(5*time.Millisecond))

	done := make(chan []queue.Job, 1)
	go func() { done <- o.Run(context.Background(), []queue.Job{first, second}) }()
	go func() {
		<-started
		o.Stop()
	}()

	updates := collectUpdates(o.Updates())
	jobs := <-done

	if !launcher.procs[0].terminated() {
		t.Error("process was not terminated")
	}
	if jobs[0].Status != queue.StatusStopped {
		t.Errorf("first status = %s, want Stopped", jobs[0].Status)
	}
	if jobs[1].Status != queue.StatusQueued {
		t.Errorf("second status = %s, want Queued (never started)", jobs[1].Status)
	}
	if launcher.callCount() != 1 {
		t.Errorf("launch count = %d, want 1", launcher.callCount())
	}
	last := updates[len(updates)-1]
	if last.Kind != UpdateJobDone || last.OK {
		t.Fatalf("last update = %+v, want failed JobDone", last)
	}
}

func TestLaunchErrorNotFoundReportsConfigHint(t *testing.T) {
	cfg := testConfig(t)
	launcher := &stubLauncher{
		startErr: &exec.Error{Name: "makemkvcon", Err: exec.ErrNotFound},
	}
	job := testJob("nobin")

	o := New(cfg, logging.NewNop(), WithLauncher(launcher))
	jobs := o.Run(context.Background(), []queue.Job{job})
	updates := collectUpdates(o.Updates())

	if jobs[0].Status != queue.StatusFailed {
		t.Fatalf("status = %s, want Failed", jobs[0].Status)
	}
	var sawHint bool
	for _, u := range updates {
		if u.Kind == UpdateLine && strings.Contains(u.Text, "makemkvcon not found") {
			sawHint = true
		}
	}
	if !sawHint {
		t.Error("missing not-found hint line")
	}
}

func TestRunAllTitlesWithoutMetadataFallsBackToAll(t *testing.T) {
	cfg := testConfig(t)
	launcher := &stubLauncher{}
	job := testJob("blind")

	o := New(cfg, logging.NewNop(), WithLauncher(launcher))
	jobs := o.Run(context.Background(), []queue.Job{job})
	collectUpdates(o.Updates())

	if launcher.callCount() != 1 {
		t.Fatalf("launch count = %d, want 1", launcher.callCount())
	}
	findTokens(t, launcher.calls[0], " all ")
	if jobs[0].Status != queue.StatusDone {
		t.Fatalf("status = %s, want Done", jobs[0].Status)
	}
}

func TestMessageFileCleanup(t *testing.T) {
	cfg := testConfig(t)
	launcher := &stubLauncher{}
	job := testJob("tidy")

	o := New(cfg, logging.NewNop(), WithLauncher(launcher))
	jobs := o.Run(context.Background(), []queue.Job{job})
	collectUpdates(o.Updates())

	entries, err := os.ReadDir(jobs[0].OutDir)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".mkvq_messages_") {
			t.Errorf("leftover message file %s", entry.Name())
		}
	}
}

func TestMessageFileKeptWhenConfigured(t *testing.T) {
	cfg := testConfig(t)
	cfg.Rip.KeepMessageFile = true
	launcher := &stubLauncher{}
	job := testJob("keeper")

	o := New(cfg, logging.NewNop(), WithLauncher(launcher))
	jobs := o.Run(context.Background(), []queue.Job{job})
	collectUpdates(o.Updates())

	matches, err := filepath.Glob(filepath.Join(jobs[0].OutDir, "*_title_all.raw.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("raw message files = %v, want exactly one", matches)
	}
}
