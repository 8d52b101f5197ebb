// Package probe runs makemkvcon info invocations on a dedicated worker so
// probing freshly dropped discs never contends with an in-progress rip.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"

	"github.com/wingedonezero/mkvq/internal/logging"
	"github.com/wingedonezero/mkvq/internal/makemkv"
)

// InfoClient is the read-only makemkvcon surface the coordinator drives.
type InfoClient interface {
	Info(ctx context.Context, sourceSpec string) (makemkv.Info, []byte, error)
}

// Request asks for one probe, keyed by the job's queue row.
type Request struct {
	Row        int
	SourceSpec string
}

// Result delivers parsed metadata or a classified error message. Err is
// empty on success. The coordinator never mutates jobs; the consumer applies
// results to the queue.
type Result struct {
	Row  int
	Info makemkv.Info
	Err  string
}

// Coordinator processes probe requests serially on one background worker.
type Coordinator struct {
	client  InfoClient
	logger  *slog.Logger
	results chan Result

	mu      sync.Mutex
	pending []Request
	wake    chan struct{}
}

// NewCoordinator constructs a coordinator delivering results on an internal
// channel. Consume Results() promptly; delivery preserves request order.
func NewCoordinator(client InfoClient, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		client:  client,
		logger:  logging.WithComponent(logger, "probe"),
		results: make(chan Result, 16),
		wake:    make(chan struct{}, 1),
	}
}

// Results returns the delivery channel. It is closed when Run returns.
func (c *Coordinator) Results() <-chan Result {
	return c.results
}

// Enqueue adds a probe request without blocking the caller.
func (c *Coordinator) Enqueue(req Request) {
	c.mu.Lock()
	c.pending = append(c.pending, req)
	c.mu.Unlock()
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Run processes requests until ctx is cancelled. A failed probe never stops
// the worker; each failure is classified into the result for that row.
func (c *Coordinator) Run(ctx context.Context) {
	defer close(c.results)
	for {
		req, ok := c.next()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-c.wake:
				continue
			}
		}

		result := c.probe(ctx, req)
		select {
		case c.results <- result:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Coordinator) next() (Request, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) == 0 {
		return Request{}, false
	}
	req := c.pending[0]
	c.pending = c.pending[1:]
	return req, true
}

func (c *Coordinator) probe(ctx context.Context, req Request) Result {
	result := Result{Row: req.Row}
	if c.client == nil {
		result.Err = "makemkvcon not configured"
		return result
	}

	info, _, err := c.client.Info(ctx, req.SourceSpec)
	if err != nil {
		result.Err = ClassifyError(err)
		c.logger.Warn("probe failed",
			logging.Int("row", req.Row),
			logging.String("source_spec", req.SourceSpec),
			logging.Error(err),
		)
		return result
	}

	result.Info = info
	c.logger.Info("probe completed",
		logging.Int("row", req.Row),
		logging.String("label", info.Label),
		logging.Int("titles", info.TitleCount),
	)
	return result
}

// ClassifyError maps a probe failure onto an actionable message: a missing
// executable is a configuration problem, a non-zero exit is a disc/tool
// problem reported with its code, anything else is passed through verbatim.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}
	var execErr *exec.Error
	if errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound) {
		return "makemkvcon not found (check configuration)"
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Sprintf("makemkvcon info failed (exit status %d)", exitErr.ExitCode())
	}
	return err.Error()
}
