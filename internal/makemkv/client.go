package makemkv

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// Executor abstracts command execution for testability.
type Executor interface {
	// Run executes the binary and returns its combined stdout+stderr.
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	return cmd.CombinedOutput()
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(executor Executor) Option {
	return func(c *Client) {
		if executor != nil {
			c.exec = executor
		}
	}
}

// Client wraps makemkvcon's read-only info mode.
type Client struct {
	binary      string
	infoTimeout time.Duration
	exec        Executor
}

// NewClient constructs an info client. infoTimeoutSeconds bounds each
// invocation; zero disables the ceiling.
func NewClient(binary string, infoTimeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("makemkvcon binary required")
	}
	client := &Client{
		binary:      binary,
		infoTimeout: time.Duration(infoTimeoutSeconds) * time.Second,
		exec:        commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Binary returns the configured executable path.
func (c *Client) Binary() string { return c.binary }

// Info runs "<binary> -r info <sourceSpec>" and returns the parsed metadata
// alongside the raw captured output. The output is returned even on error so
// callers can log whatever the tool managed to emit.
func (c *Client) Info(ctx context.Context, sourceSpec string) (Info, []byte, error) {
	if strings.TrimSpace(sourceSpec) == "" {
		return Info{}, nil, errors.New("source spec required")
	}
	if c.infoTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.infoTimeout)
		defer cancel()
	}
	output, err := c.exec.Run(ctx, c.binary, []string{"-r", "info", sourceSpec})
	if err != nil {
		return Info{}, output, err
	}
	return ParseInfo(string(output)), output, nil
}
