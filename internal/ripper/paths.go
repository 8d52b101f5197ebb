package ripper

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/wingedonezero/mkvq/internal/config"
	"github.com/wingedonezero/mkvq/internal/discfs"
	"github.com/wingedonezero/mkvq/internal/queue"
)

var (
	invalidNameChars = regexp.MustCompile(`[\\/:*?"<>|]+`)
	repeatedSpaces   = regexp.MustCompile(`\s+`)
)

// SafeName strips filesystem-hostile characters from a path segment and
// collapses the whitespace left behind.
func SafeName(name string) string {
	name = invalidNameChars.ReplaceAllString(name, " ")
	name = strings.TrimSpace(repeatedSpaces.ReplaceAllString(name, " "))
	if name == "" {
		return "Unnamed"
	}
	return name
}

// UniqueDir returns base when it does not exist yet, otherwise the first
// numeric-suffix sibling (base_001, base_002, ...) that is free. Existing
// directories are never reused or overwritten.
func UniqueDir(base string) string {
	if _, err := os.Stat(base); err != nil {
		return base
	}
	parent := filepath.Dir(base)
	name := filepath.Base(base)
	for n := 1; ; n++ {
		candidate := filepath.Join(parent, fmt.Sprintf("%s_%03d", name, n))
		if _, err := os.Stat(candidate); err != nil {
			return candidate
		}
	}
}

// resolveOutputDir picks a unique destination directory for a job. Jobs with
// structural metadata mirror the drop's nested layout under the output root;
// anything else falls back to a flat label-or-name directory.
func resolveOutputDir(cfg config.Rip, job *queue.Job) string {
	if job.DropRoot != "" && job.RelativePath != "" && job.RelativePath != "." {
		segments := append([]string{cfg.OutputRoot}, mirroredRelPath(job)...)
		return UniqueDir(filepath.Join(segments...))
	}

	var base string
	if job.GroupRoot != "" {
		return UniqueDir(filepath.Join(cfg.OutputRoot, SafeName(job.GroupRoot), SafeName(job.ChildName)))
	}
	switch cfg.NamingMode {
	case "folder_only":
		base = job.ChildName
	default:
		base = job.LabelHint
		if base == "" {
			base = job.ChildName
		}
	}
	return UniqueDir(filepath.Join(cfg.OutputRoot, SafeName(base)))
}

// mirroredRelPath sanitizes each segment of the job's relative path. Image
// files lose their extension so the directory is named after the disc, not
// the file.
func mirroredRelPath(job *queue.Job) []string {
	segments := strings.Split(filepath.ToSlash(job.RelativePath), "/")
	out := make([]string, 0, len(segments))
	for i, segment := range segments {
		if segment == "" || segment == "." {
			continue
		}
		if i == len(segments)-1 && discfs.IsImage(segment) {
			segment = strings.TrimSuffix(segment, filepath.Ext(segment))
		}
		out = append(out, SafeName(segment))
	}
	if len(out) == 0 {
		out = []string{SafeName(job.ChildName)}
	}
	return out
}

// logFileName names the per-job human-readable log inside destDir.
func logFileName(destDir string, job *queue.Job) string {
	if job.GroupRoot != "" {
		return filepath.Join(destDir, SafeName(job.ChildName)+"_makemkv.log")
	}
	return filepath.Join(destDir, filepath.Base(destDir)+"_makemkv.log")
}
