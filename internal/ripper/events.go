package ripper

// UpdateKind discriminates the orchestrator's outbound signals.
type UpdateKind int

const (
	// UpdateProgress carries the job's overall percentage (0-100).
	UpdateProgress UpdateKind = iota
	// UpdateStatus carries a short status line for the job row.
	UpdateStatus
	// UpdateLine carries one human-readable log line.
	UpdateLine
	// UpdateJobDone is always the last signal for a job; OK reports success.
	UpdateJobDone
)

// Update is one signal from the rip worker. Signals for a job are emitted in
// the order the subprocess produced them, and jobs never interleave because
// the worker runs them sequentially.
type Update struct {
	Row     int
	Kind    UpdateKind
	Percent int
	Text    string
	OK      bool
}
