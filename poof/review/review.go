// Package review inspects the overlay upper layer after a sandbox exits,
// presents the accumulated changes and applies or discards them.
package review

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/pkg/xattr"

	"github.com/discordforstudywif/poof/shared"
	"github.com/discordforstudywif/poof/shared/logger"
)

// Kind classifies a single upper layer entry.
type Kind int

const (
	// Added is a file that doesn't exist in the target.
	Added Kind = iota

	// Edited is a file that shadows an existing target file.
	Edited

	// Deleted is a whiteout hiding a target entry.
	Deleted

	// AddedDir is a new empty directory.
	AddedDir
)

// Change is one reviewed entry, with Path relative to the target.
type Change struct {
	Path string
	Kind Kind
}

// maxChanges caps the number of collected entries. Larger change sets are
// truncated and reported with a warning.
const maxChanges = 1000

// opaqueXattrs are the markers overlay implementations place on a directory
// that fully replaces its lower counterpart.
var opaqueXattrs = []string{"trusted.overlay.opaque", "user.fuseoverlayfs.opaque"}

// isWhiteout reports whether the entry is an overlay whiteout: a character
// device with device number 0:0.
func isWhiteout(info os.FileInfo) bool {
	if info.Mode()&os.ModeCharDevice == 0 {
		return false
	}

	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return false
	}

	return stat.Rdev == 0
}

// isOpaque reports whether the directory carries an opaque marker.
func isOpaque(path string) bool {
	for _, attr := range opaqueXattrs {
		value, err := xattr.Get(path, attr)
		if err == nil && string(value) == "y" {
			return true
		}
	}

	return false
}

// Scan walks the subtree of upper that shadows target and classifies every
// entry. It returns the collected changes (capped at maxChanges, sorted by
// path) and the total number of entries seen.
func Scan(upper string, target string) ([]Change, int, error) {
	shadow := filepath.Join(upper, target)
	if !shared.PathExists(shadow) {
		return nil, 0, nil
	}

	changes := []Change{}
	total := 0

	err := scanDir(shadow, target, false, &changes, &total)
	if err != nil {
		return nil, 0, err
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })

	return changes, total, nil
}

func scanDir(shadowDir string, targetDir string, forceAdded bool, changes *[]Change, total *int) error {
	entries, err := os.ReadDir(shadowDir)
	if err != nil {
		return fmt.Errorf("Failed to read %q: %w", shadowDir, err)
	}

	for _, entry := range entries {
		shadowPath := filepath.Join(shadowDir, entry.Name())
		targetPath := filepath.Join(targetDir, entry.Name())

		info, err := entry.Info()
		if err != nil {
			logger.Debug("Failed to stat upper entry", logger.Ctx{"path": shadowPath, "err": err})
			continue
		}

		if info.IsDir() {
			// An opaque directory replaces the lower one entirely, so
			// everything below it counts as added.
			opaque := forceAdded || isOpaque(shadowPath)

			empty, err := shared.IsDirEmpty(shadowPath)
			if err != nil {
				return err
			}

			if empty {
				record(changes, total, Change{Path: targetPath, Kind: AddedDir})
				continue
			}

			err = scanDir(shadowPath, targetPath, opaque, changes, total)
			if err != nil {
				return err
			}

			continue
		}

		if isWhiteout(info) {
			record(changes, total, Change{Path: targetPath, Kind: Deleted})
			continue
		}

		kind := Added
		if !forceAdded && shared.PathExists(targetPath) {
			kind = Edited
		}

		record(changes, total, Change{Path: targetPath, Kind: kind})
	}

	return nil
}

func record(changes *[]Change, total *int, change Change) {
	*total++
	if len(*changes) < maxChanges {
		*changes = append(*changes, change)
	}
}

// render writes the change summary. Paths are shown relative to the target;
// added directories get a trailing slash.
func render(w io.Writer, changes []Change, total int, target string, colored bool) {
	symbols := map[Kind]string{Added: "+", Edited: "~", Deleted: "-", AddedDir: "+"}
	colors := map[Kind]string{Added: "\x1b[32m", Edited: "\x1b[33m", Deleted: "\x1b[31m", AddedDir: "\x1b[32m"}

	counts := map[Kind]int{}
	for _, change := range changes {
		rel, err := filepath.Rel(target, change.Path)
		if err != nil {
			rel = change.Path
		}

		if change.Kind == AddedDir {
			rel += "/"
		}

		if colored {
			fmt.Fprintf(w, "  %s%s %s\x1b[0m\n", colors[change.Kind], symbols[change.Kind], rel)
		} else {
			fmt.Fprintf(w, "  %s %s\n", symbols[change.Kind], rel)
		}

		counts[change.Kind]++
	}

	fmt.Fprintf(w, "\n%d added, %d modified, %d deleted\n", counts[Added]+counts[AddedDir], counts[Edited], counts[Deleted])

	if total > len(changes) {
		fmt.Fprintf(w, "Showing the first %d of %d changes\n", len(changes), total)
	}

	if counts[Deleted] > 0 {
		fmt.Fprintf(w, "Deletions are shown for review only and aren't applied to the target\n")
	}
}
