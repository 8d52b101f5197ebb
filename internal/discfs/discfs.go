// Package discfs locates rippable disc roots beneath a filesystem path:
// raw image files, VIDEO_TS trees, and BDMV trees.
package discfs

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Disc is one discovered rippable unit. Immutable once discovered.
type Disc struct {
	// Path is the resolved disc root: the image file, or the VIDEO_TS/BDMV
	// directory itself.
	Path string
	// DisplayName is the image stem or the containing directory name.
	DisplayName string
	// RelativePath locates the disc relative to the originally scanned root,
	// used to mirror nested directory structure in the output tree.
	RelativePath string
	// DropRoot is the originally scanned path.
	DropRoot string
}

var imageExtensions = map[string]struct{}{
	".iso": {},
	".img": {},
	".bin": {},
	".nrg": {},
}

// IsImage reports whether path has a recognized disc image extension.
func IsImage(path string) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// SourceSpec builds the tagged locator makemkvcon expects for a disc root.
func SourceSpec(path string) string {
	if IsImage(path) {
		return "iso:" + path
	}
	return "file:" + path
}

// Scan returns the disc roots beneath path, up to maxDepth directory levels
// deep. Recursion stops at the first match on each branch; a directory of
// image files is treated as flat and never descended further. OS errors on a
// branch are swallowed and that branch yields no discs.
func Scan(path string, maxDepth int) []Disc {
	root, err := filepath.Abs(path)
	if err != nil {
		return nil
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil
	}

	if !info.IsDir() {
		if !IsImage(root) {
			return nil
		}
		return []Disc{{
			Path:         root,
			DisplayName:  stem(root),
			RelativePath: filepath.Base(root),
			DropRoot:     root,
		}}
	}

	return scanDir(root, root, maxDepth)
}

func scanDir(dir, dropRoot string, depthLeft int) []Disc {
	// A recognized disc structure makes this directory a single disc; it is
	// never also treated as a container of more discs.
	for _, marker := range []string{"VIDEO_TS", "BDMV"} {
		candidate := filepath.Join(dir, marker)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return []Disc{newDisc(candidate, filepath.Base(dir), dir, dropRoot)}
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var discs []Disc
	imagesFound := false
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		full := filepath.Join(dir, entry.Name())
		if IsImage(full) {
			imagesFound = true
			discs = append(discs, newDisc(full, stem(full), full, dropRoot))
		}
	}
	// Image files at this level mark a flat media folder; do not descend.
	if imagesFound {
		return discs
	}

	if depthLeft <= 0 {
		return nil
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		discs = append(discs, scanDir(filepath.Join(dir, entry.Name()), dropRoot, depthLeft-1)...)
	}
	return discs
}

func newDisc(path, displayName, relTarget, dropRoot string) Disc {
	rel, err := filepath.Rel(dropRoot, relTarget)
	if err != nil || rel == "." {
		rel = filepath.Base(relTarget)
	}
	return Disc{
		Path:         path,
		DisplayName:  displayName,
		RelativePath: rel,
		DropRoot:     dropRoot,
	}
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
