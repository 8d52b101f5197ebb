package ripper

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// terminateGrace is how long a stopped subprocess gets to exit after SIGTERM
// before it is killed outright.
const terminateGrace = 3 * time.Second

// Process is one running rip subprocess. Lines carries the combined
// stdout+stderr stream and is closed at EOF; Wait must be called after Lines
// closes to reap the process.
type Process interface {
	Lines() <-chan string
	Wait() error
	Terminate()
}

// Launcher starts rip subprocesses. The executable seam keeps the
// orchestrator testable without a real makemkvcon.
type Launcher interface {
	Start(ctx context.Context, binary string, args []string) (Process, error)
}

type execLauncher struct{}

// NewExecLauncher returns the production launcher backed by os/exec.
func NewExecLauncher() Launcher {
	return execLauncher{}
}

func (execLauncher) Start(ctx context.Context, binary string, args []string) (Process, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	reader, writer := io.Pipe()
	cmd.Stdout = writer
	cmd.Stderr = writer

	if err := cmd.Start(); err != nil {
		writer.Close()
		reader.Close()
		return nil, err
	}

	proc := &execProcess{
		cmd:   cmd,
		lines: make(chan string, 64),
		done:  make(chan struct{}),
	}

	go func() {
		proc.waitErr = cmd.Wait()
		writer.Close()
		close(proc.done)
	}()

	go func() {
		defer close(proc.lines)
		scanner := bufio.NewScanner(reader)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			proc.lines <- scanner.Text()
		}
	}()

	return proc, nil
}

type execProcess struct {
	cmd     *exec.Cmd
	lines   chan string
	done    chan struct{}
	waitErr error

	terminateOnce sync.Once
}

func (p *execProcess) Lines() <-chan string { return p.lines }

func (p *execProcess) Wait() error {
	<-p.done
	return p.waitErr
}

func (p *execProcess) Terminate() {
	p.terminateOnce.Do(func() {
		if p.cmd.Process == nil {
			return
		}
		_ = p.cmd.Process.Signal(syscall.SIGTERM)
		go func() {
			select {
			case <-p.done:
			case <-time.After(terminateGrace):
				_ = p.cmd.Process.Kill()
			}
		}()
	})
}
