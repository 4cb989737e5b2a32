package scheduler

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/xerrors"
)

// BuildAlways is the global always-rebuild override described by spec.md
// §4.1 ("Design Notes"): a single process-wide flag, read only inside the
// freshness check. Set it before calling (*Graph).Execute; mutating it
// concurrently with a run is undefined, same as the teacher's conventions
// around package-level configuration.
var BuildAlways bool

// ErrMissingInput is returned (wrapped) when a declared source path does
// not exist on disk.
type ErrMissingInput struct {
	Path string
}

func (e *ErrMissingInput) Error() string {
	return xerrors.Errorf("missing input: %s", e.Path).Error()
}

// aggregate selects min or max when folding mtimes over a directory tree.
type aggregate int

const (
	aggMax aggregate = iota
	aggMin
)

// mtime computes the mtime of path: a file's own mtime, or a directory's
// mtime aggregated (by agg) over its direct children recursively plus the
// directory's own mtime, per spec.md §4.1.
func mtime(path string, agg aggregate) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, &ErrMissingInput{Path: path}
		}
		return time.Time{}, err
	}
	if !info.IsDir() {
		return info.ModTime(), nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return time.Time{}, err
	}

	best := info.ModTime()
	haveBest := true
	for _, entry := range entries {
		childTime, err := mtime(filepath.Join(path, entry.Name()), agg)
		if err != nil {
			return time.Time{}, err
		}
		if !haveBest {
			best = childTime
			haveBest = true
			continue
		}
		best = combine(agg, best, childTime)
	}
	return best, nil
}

func combine(agg aggregate, a, b time.Time) time.Time {
	if agg == aggMax {
		if b.After(a) {
			return b
		}
		return a
	}
	if b.Before(a) {
		return b
	}
	return a
}

// IsOutdated reports whether any target must be rebuilt: true iff
// max(source mtimes) > min(target mtimes), or any target is missing.
// A missing source is a fatal *ErrMissingInput. BuildAlways short-circuits
// to true without touching the filesystem.
func IsOutdated(targets, sources []string) (bool, error) {
	if BuildAlways {
		return true, nil
	}

	var sourceTime time.Time
	for i, source := range sources {
		t, err := mtime(source, aggMax)
		if err != nil {
			return false, err
		}
		if i == 0 || t.After(sourceTime) {
			sourceTime = t
		}
	}

	var targetTime time.Time
	for i, target := range targets {
		t, err := mtime(target, aggMin)
		if err != nil {
			if isMissing(err) {
				return true, nil // missing output: infinitely old
			}
			return false, err
		}
		if i == 0 {
			targetTime = t
		} else if t.Before(targetTime) {
			targetTime = t
		}
	}

	return sourceTime.After(targetTime), nil
}

func isMissing(err error) bool {
	var missing *ErrMissingInput
	return xerrors.As(err, &missing)
}

// OlderThan reports whether path's mtime is older than now-d, or path does
// not exist. It is the generalized staleness predicate behind the original
// project's weekly-redownload check (download.py's has_been_a_week); this
// repo performs no network acquisition itself (spec.md Non-goals), but
// exposes the predicate for a caller-supplied acquisition task to use.
func OlderThan(path string, d time.Duration) bool {
	t, err := mtime(path, aggMax)
	if err != nil {
		return true
	}
	return time.Since(t) > d
}

// TaskSummary records the start and end time of one completed task.
type TaskSummary struct {
	Name  string
	Start time.Time
	End   time.Time
}

// Summary is the result of a full Graph.Execute run: completed tasks
// sorted by start time.
type Summary struct {
	Tasks []TaskSummary
}

func (s *Summary) add(name string, start, end time.Time) {
	s.Tasks = append(s.Tasks, TaskSummary{Name: name, Start: start, End: end})
}

func (s *Summary) sort() {
	sort.Slice(s.Tasks, func(i, j int) bool {
		return s.Tasks[i].Start.Before(s.Tasks[j].Start)
	})
}
