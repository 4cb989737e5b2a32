// Package course implements the Course Assembler: partitioning the global
// link archive by language pair, populating a per-pair sqlite database
// from the Difficulty Engine's output, and shrinking it to a bounded
// example-cap course (spec.md §4.3).
package course

import (
	"bufio"
	"container/list"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/xerrors"
)

// MaxOpenFiles bounds the number of simultaneously open per-pair link
// files during partitioning (spec.md §6 constants).
const MaxOpenFiles = 100

type pairKey struct{ lo, hi string }

func (p pairKey) filename() string { return p.lo + "-" + p.hi + ".csv" }

// canonicalPair orders two language codes so the lower one comes first,
// and reports whether a and b were swapped in that ordering.
func canonicalPair(a, b string) (lo, hi string, swapped bool) {
	if a <= b {
		return a, b, false
	}
	return b, a, true
}

// handle is one pair's open append-mode CSV writer.
type handle struct {
	file   *os.File
	writer *csv.Writer
}

func (h *handle) close() error {
	h.writer.Flush()
	if err := h.writer.Error(); err != nil {
		h.file.Close()
		return err
	}
	return h.file.Close()
}

// handleCache is a FIFO-evicted (not strictly LRU; queue ordering is
// acceptable per spec.md §9) bounded set of open file handles keyed by
// language pair, so partitioning never exceeds the process's open-file
// limit regardless of how many distinct pairs appear in the corpus.
type handleCache struct {
	dir     string
	cap     int
	order   *list.List
	elems   map[pairKey]*list.Element
	handles map[pairKey]*handle
}

func newHandleCache(dir string, capacity int) *handleCache {
	return &handleCache{
		dir:     dir,
		cap:     capacity,
		order:   list.New(),
		elems:   make(map[pairKey]*list.Element),
		handles: make(map[pairKey]*handle),
	}
}

// get returns the open handle for key, opening (in append mode) and
// registering it first if necessary, evicting the oldest-inserted handle
// once the cache is at capacity.
func (c *handleCache) get(key pairKey) (*handle, error) {
	if h, ok := c.handles[key]; ok {
		return h, nil
	}

	if len(c.handles) >= c.cap {
		oldest := c.order.Front()
		oldestKey := oldest.Value.(pairKey)
		if err := c.handles[oldestKey].close(); err != nil {
			return nil, err
		}
		delete(c.handles, oldestKey)
		delete(c.elems, oldestKey)
		c.order.Remove(oldest)
	}

	path := filepath.Join(c.dir, key.filename())
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, xerrors.Errorf("opening %s: %w", path, err)
	}
	h := &handle{file: f, writer: csv.NewWriter(f)}
	c.handles[key] = h
	c.elems[key] = c.order.PushBack(key)
	return h, nil
}

func (c *handleCache) closeAll() error {
	for key, h := range c.handles {
		if err := h.close(); err != nil {
			return err
		}
		delete(c.handles, key)
	}
	return nil
}

// PartitionLinks streams the global sentences TSV (id, language, text) and
// links TSV (source_id, target_id), producing one CSV file per language
// pair under destDir named "{lo}-{hi}.csv" with columns
// (source_id, target_id) where source_id always belongs to lo (spec.md
// §4.3 Phase A, §6 canonical filename rule).
func PartitionLinks(sentencesTSV, linksTSV, destDir string) error {
	langOf, err := loadSentenceLanguages(sentencesTSV)
	if err != nil {
		return err
	}

	tmpDir, err := os.MkdirTemp("", "coursebuild-links")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmpDir)

	cache := newHandleCache(tmpDir, MaxOpenFiles)

	in, err := os.Open(linksTSV)
	if err != nil {
		return xerrors.Errorf("opening %s: %w", linksTSV, err)
	}
	defer in.Close()

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) != 2 {
			return xerrors.Errorf("malformed link row %q in %s", line, linksTSV)
		}
		a, b := cols[0], cols[1]

		langA, okA := langOf[a]
		langB, okB := langOf[b]
		if !okA || !okB {
			continue // link references a sentence ID no longer present
		}

		lo, hi, swapped := canonicalPair(langA, langB)
		source, target := a, b
		if swapped {
			source, target = b, a
		}

		h, err := cache.get(pairKey{lo: lo, hi: hi})
		if err != nil {
			return err
		}
		if err := h.writer.Write([]string{source, target}); err != nil {
			return xerrors.Errorf("writing to %s-%s.csv: %w", lo, hi, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return xerrors.Errorf("reading %s: %w", linksTSV, err)
	}

	if err := cache.closeAll(); err != nil {
		return err
	}

	return publishLinkFiles(tmpDir, destDir)
}

// loadSentenceLanguages reads the global sentences TSV (id, language,
// text; no header) into an in-memory id -> language code map.
func loadSentenceLanguages(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	m := make(map[string]string)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		cols := strings.SplitN(line, "\t", 3)
		if len(cols) != 3 {
			return nil, xerrors.Errorf("malformed sentence row %q in %s", line, path)
		}
		m[cols[0]] = cols[1]
	}
	if err := scanner.Err(); err != nil {
		return nil, xerrors.Errorf("reading %s: %w", path, err)
	}
	return m, nil
}

// publishLinkFiles copies every file in tmpDir to destDir and refreshes
// its mtime, so downstream freshness checks see the partition step as
// having just run (spec.md §4.3 Phase A).
func publishLinkFiles(tmpDir, destDir string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}
	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, entry := range entries {
		src := filepath.Join(tmpDir, entry.Name())
		dest := filepath.Join(destDir, entry.Name())
		if err := copyFile(src, dest); err != nil {
			return err
		}
		if err := os.Chtimes(dest, now, now); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
