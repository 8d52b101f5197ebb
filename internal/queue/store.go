package queue

import (
	"fmt"
	"sync"

	"github.com/wingedonezero/mkvq/internal/makemkv"
)

// Store is an ordered, mutex-guarded collection of jobs. Row indices are
// stable across a queue run; the UI-facing side may reorder between runs.
type Store struct {
	mu   sync.Mutex
	jobs []*Job
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{}
}

// Add appends a job and returns its row index.
func (s *Store) Add(job *Job) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
	return len(s.jobs) - 1
}

// Len returns the number of queued jobs.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Get returns the job at row.
func (s *Store) Get(row int) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row < 0 || row >= len(s.jobs) {
		return nil, fmt.Errorf("queue row %d out of range", row)
	}
	return s.jobs[row], nil
}

// Update applies fn to the job at row under the store lock.
func (s *Store) Update(row int, fn func(*Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row < 0 || row >= len(s.jobs) {
		return fmt.Errorf("queue row %d out of range", row)
	}
	fn(s.jobs[row])
	return nil
}

// Snapshot returns value copies of every job in row order. The copies are
// what a queue run operates on: later UI mutation of the live jobs cannot
// race the running worker.
func (s *Store) Snapshot() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make([]Job, len(s.jobs))
	for i, job := range s.jobs {
		snapshot[i] = snapshotJob(job)
	}
	return snapshot
}

func snapshotJob(job *Job) Job {
	copied := *job
	if job.Titles != nil {
		titles := make(map[int]makemkv.TitleInfo, len(job.Titles))
		for id, title := range job.Titles {
			title.Streams = append([]makemkv.StreamInfo(nil), title.Streams...)
			titles[id] = title
		}
		copied.Titles = titles
	}
	if job.SelectedTitles != nil {
		selected := make(map[int]struct{}, len(job.SelectedTitles))
		for id := range job.SelectedTitles {
			selected[id] = struct{}{}
		}
		copied.SelectedTitles = selected
	}
	return copied
}
