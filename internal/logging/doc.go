// Package logging configures the process-wide slog logger and provides
// attribute helpers shared across the queue, probe, and rip workers.
package logging
