package course

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTSV(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

// TestPartitionLinksCanonicalPair exercises S3 (canonical pair): each
// output file is named lo-hi.csv and every row's first column belongs to
// lo, regardless of the order sentence IDs appear in the raw link.
func TestPartitionLinksCanonicalPair(t *testing.T) {
	dir := t.TempDir()
	sentencesTSV := filepath.Join(dir, "sentences.csv")
	linksTSV := filepath.Join(dir, "links.csv")
	destDir := filepath.Join(dir, "links")

	writeTSV(t, sentencesTSV, strings.Join([]string{
		"1\teng\tHello.",
		"2\tspa\tHola.",
		"3\teng\tGoodbye.",
		"4\tspa\tAdios.",
	}, "\n")+"\n")

	// Link (4, 3): the spa sentence 4 comes first in the raw row, but
	// eng < spa canonically, so the published row must read "3,4".
	writeTSV(t, linksTSV, strings.Join([]string{
		"4\t3",
		"1\t2",
	}, "\n")+"\n")

	if err := PartitionLinks(sentencesTSV, linksTSV, destDir); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(destDir, "eng-spa.csv"))
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	if !strings.Contains(got, "3,4") {
		t.Errorf("eng-spa.csv = %q, want a row \"3,4\" (source always in eng)", got)
	}
	if !strings.Contains(got, "1,2") {
		t.Errorf("eng-spa.csv = %q, want a row \"1,2\"", got)
	}
}

// TestPartitionLinksDropsOrphanReferences ensures a link naming a
// sentence ID no longer present in the sentences file is silently
// dropped rather than crashing the partitioner.
func TestPartitionLinksDropsOrphanReferences(t *testing.T) {
	dir := t.TempDir()
	sentencesTSV := filepath.Join(dir, "sentences.csv")
	linksTSV := filepath.Join(dir, "links.csv")
	destDir := filepath.Join(dir, "links")

	writeTSV(t, sentencesTSV, "1\teng\tHello.\n")
	writeTSV(t, linksTSV, "1\t999\n")

	if err := PartitionLinks(sentencesTSV, linksTSV, destDir); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(destDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no output files, got %v", entries)
	}
}

func TestHandleCacheEvictsOldestBeyondCapacity(t *testing.T) {
	dir := t.TempDir()
	cache := newHandleCache(dir, 2)

	h1, err := cache.get(pairKey{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cache.get(pairKey{"c", "d"}); err != nil {
		t.Fatal(err)
	}
	if len(cache.handles) != 2 {
		t.Fatalf("handles = %d, want 2", len(cache.handles))
	}

	// A third distinct pair should evict "a-b", the oldest.
	if _, err := cache.get(pairKey{"e", "f"}); err != nil {
		t.Fatal(err)
	}
	if _, ok := cache.handles[pairKey{"a", "b"}]; ok {
		t.Fatal("expected a-b to be evicted")
	}
	if len(cache.handles) != 2 {
		t.Fatalf("handles = %d, want 2 after eviction", len(cache.handles))
	}

	// Re-requesting "a-b" must reopen the same file it was evicted from.
	h1reopened, err := cache.get(pairKey{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if h1reopened.file.Name() != h1.file.Name() {
		t.Fatalf("reopened handle path = %s, want %s", h1reopened.file.Name(), h1.file.Name())
	}

	if err := cache.closeAll(); err != nil {
		t.Fatal(err)
	}
}
