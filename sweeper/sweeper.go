// Package sweeper deletes stale files from a directory tree on a timer. It
// is independent of the rollogr writer: any file matching the configured
// extension and older than the configured age is removed, regardless of what
// produced it. The sweep is best-effort: files vanishing mid-scan,
// unreadable entries, and failed deletions are skipped, never fatal. Losing
// a cleanup cycle is tolerable; crashing the host process is not.
package sweeper

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/agentdiag/rollogr"
	"github.com/agentdiag/rollogr/filer"
)

// Wildcard matches every file regardless of extension.
const Wildcard = "*"

// Target describes one directory tree to sweep. It is plain configuration;
// do not mutate it after handing it to a Sweeper.
type Target struct {
	Path      string        // Root of the tree to sweep.
	Extension string        // File name suffix to match. "*" or empty matches everything.
	MaxAge    time.Duration // Files modified longer ago than this are deleted.
	Interval  time.Duration // How often the Scheduler runs a sweep.
}

// Sweeper runs age-based cleanup passes over one Target.
type Sweeper struct {
	filer.Filer

	Target Target           // What to sweep.
	Notify rollogr.Notifier // Receives sweep events. Optional.
	Now    func() time.Time // Mockable clock. Setting this is very optional.
}

// setDefaults fills in the optional collaborators.
func (s *Sweeper) setDefaults() {
	if s.Filer == nil {
		s.Filer = filer.Default()
	}

	if s.Notify == nil {
		s.Notify = rollogr.Nop()
	}

	if s.Now == nil {
		s.Now = time.Now
	}
}

// Sweep runs one cleanup pass and returns the number of files deleted.
// A missing target path is a successful no-op sweep. Candidates are
// processed one at a time, in enumeration order. Per-candidate failures
// are skipped. The sweep as a whole never fails; problems only show up
// through the Notifier. Cancelling ctx stops the pass between candidates.
func (s *Sweeper) Sweep(ctx context.Context) int {
	s.setDefaults()
	s.Notify.Info(fmt.Sprintf("sweeping %s for files older than %v", s.Target.Path, s.Target.MaxAge))

	deleted := 0

	if _, err := s.Stat(s.Target.Path); err != nil {
		s.Notify.Info(fmt.Sprintf("sweep finished: %s does not exist, 0 files deleted", s.Target.Path))

		return 0
	}

	_ = s.Walk(s.Target.Path, func(path string, info os.FileInfo, err error) error {
		if ctx.Err() != nil {
			return filepath.SkipAll
		}

		if err != nil || info == nil {
			return nil // vanished or unreadable: skip it, keep sweeping.
		}

		if info.IsDir() || !s.match(info.Name()) {
			return nil
		}

		if s.Now().Sub(info.ModTime()) <= s.Target.MaxAge {
			return nil
		}

		if err := s.Remove(path); err != nil {
			return nil // locked or already gone: skip it.
		}

		s.Notify.Deleted(path)
		deleted++

		return nil
	})

	s.Notify.Info(fmt.Sprintf("sweep finished: %d files deleted from %s", deleted, s.Target.Path))

	return deleted
}

// match reports whether a file name passes the extension filter.
func (s *Sweeper) match(name string) bool {
	if s.Target.Extension == "" || s.Target.Extension == Wildcard {
		return true
	}

	return strings.HasSuffix(name, s.Target.Extension)
}
