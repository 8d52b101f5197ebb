// Package queue holds the in-memory rip queue: job records, their lifecycle
// states, and the selection snapshot handed to the rip worker.
package queue

import (
	"sort"

	"github.com/google/uuid"

	"github.com/wingedonezero/mkvq/internal/discfs"
	"github.com/wingedonezero/mkvq/internal/makemkv"
)

// Status represents the lifecycle of a job. All transitions are
// one-directional; no job is retried automatically.
type Status string

const (
	StatusQueued  Status = "Queued"
	StatusProbing Status = "Probing"
	StatusRunning Status = "Running"
	StatusDone    Status = "Done"
	StatusFailed  Status = "Failed"
	StatusStopped Status = "Stopped"
)

// SourceType distinguishes image files from disc folder structures.
type SourceType string

const (
	SourceISO    SourceType = "iso"
	SourceFolder SourceType = "folder"
)

// Job is one queued rip operation. Created at discovery time with minimal
// fields, enriched asynchronously by probing, mutated by user selection, and
// consumed as a read-only snapshot by the rip worker.
type Job struct {
	ID         string
	SourceType SourceType
	SourcePath string
	// SourceSpec is the tagged locator makemkvcon consumes, e.g.
	// "iso:/path/movie.iso" or "file:/path/BDMV".
	SourceSpec   string
	ChildName    string
	GroupRoot    string
	RelativePath string
	DropRoot     string

	// Probe results.
	LabelHint   string
	TitlesTotal int
	Titles      map[int]makemkv.TitleInfo

	// SelectedTitles is nil for "all titles" and an empty non-nil set for
	// "explicitly none", which the rip worker reports as a successful skip.
	SelectedTitles map[int]struct{}

	Status Status

	// Run artifacts, written once per run.
	OutDir  string
	LogPath string
	Cmdline string
}

// NewJobFromDisc builds a queued job for a discovered disc.
func NewJobFromDisc(disc discfs.Disc, groupRoot string) *Job {
	sourceType := SourceFolder
	if discfs.IsImage(disc.Path) {
		sourceType = SourceISO
	}
	return &Job{
		ID:           uuid.NewString(),
		SourceType:   sourceType,
		SourcePath:   disc.Path,
		SourceSpec:   discfs.SourceSpec(disc.Path),
		ChildName:    disc.DisplayName,
		GroupRoot:    groupRoot,
		RelativePath: disc.RelativePath,
		DropRoot:     disc.DropRoot,
		Status:       StatusQueued,
	}
}

// ApplyProbe records probe metadata on the job. Existing values win for the
// label so a user-visible hint is never downgraded.
func (j *Job) ApplyProbe(info makemkv.Info) {
	if j.LabelHint == "" {
		j.LabelHint = info.Label
	}
	if len(j.Titles) == 0 {
		j.Titles = info.Titles
	}
	if j.TitlesTotal == 0 {
		j.TitlesTotal = info.TitleCount
	}
}

// SelectedList resolves the selection into a sorted concrete title list.
// explicitNone reports the empty-set sentinel; allTitles reports the nil
// sentinel, in which case the list covers every known title (and may be empty
// when no metadata exists yet).
func (j *Job) SelectedList() (titles []int, allTitles, explicitNone bool) {
	if j.SelectedTitles == nil {
		titles = make([]int, 0, len(j.Titles))
		for id := range j.Titles {
			titles = append(titles, id)
		}
		sort.Ints(titles)
		return titles, true, false
	}
	if len(j.SelectedTitles) == 0 {
		return nil, false, true
	}
	titles = make([]int, 0, len(j.SelectedTitles))
	for id := range j.SelectedTitles {
		titles = append(titles, id)
	}
	sort.Ints(titles)
	return titles, false, false
}
