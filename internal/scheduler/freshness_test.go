package scheduler

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func touch(t *testing.T, path string, when time.Time) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, when, when); err != nil {
		t.Fatal(err)
	}
}

func TestIsOutdatedMissingTargetRebuilds(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "source.txt")
	touch(t, source, time.Now())

	outdated, err := IsOutdated([]string{filepath.Join(dir, "missing.txt")}, []string{source})
	if err != nil {
		t.Fatal(err)
	}
	if !outdated {
		t.Fatal("expected missing target to be outdated")
	}
}

func TestIsOutdatedFreshTargetSkips(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "source.txt")
	target := filepath.Join(dir, "target.txt")
	base := time.Now().Add(-time.Hour)
	touch(t, source, base)
	touch(t, target, base.Add(time.Minute))

	outdated, err := IsOutdated([]string{target}, []string{source})
	if err != nil {
		t.Fatal(err)
	}
	if outdated {
		t.Fatal("expected fresh target to be up to date")
	}
}

func TestIsOutdatedStaleSourceRebuilds(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "source.txt")
	target := filepath.Join(dir, "target.txt")
	base := time.Now().Add(-time.Hour)
	touch(t, target, base)
	touch(t, source, base.Add(time.Minute))

	outdated, err := IsOutdated([]string{target}, []string{source})
	if err != nil {
		t.Fatal(err)
	}
	if !outdated {
		t.Fatal("expected stale source to force rebuild")
	}
}

func TestIsOutdatedMissingSourceIsFatal(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target.txt")
	touch(t, target, time.Now())

	_, err := IsOutdated([]string{target}, []string{filepath.Join(dir, "nope.txt")})
	if err == nil {
		t.Fatal("expected missing input error")
	}
}

func TestIsOutdatedBuildAlways(t *testing.T) {
	BuildAlways = true
	defer func() { BuildAlways = false }()

	dir := t.TempDir()
	source := filepath.Join(dir, "source.txt")
	target := filepath.Join(dir, "target.txt")
	base := time.Now()
	touch(t, source, base.Add(-time.Hour))
	touch(t, target, base)

	outdated, err := IsOutdated([]string{target}, []string{source})
	if err != nil {
		t.Fatal(err)
	}
	if !outdated {
		t.Fatal("expected BuildAlways to force rebuild")
	}
}

func TestMtimeDirectoryAggregation(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "languages")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	base := time.Now().Add(-time.Hour)
	touch(t, filepath.Join(sub, "a.csv"), base)
	touch(t, filepath.Join(sub, "b.csv"), base.Add(30*time.Minute))
	// Creating the files bumped the directory's own mtime, which mtime
	// also aggregates; pin it to the oldest child's time.
	if err := os.Chtimes(sub, base, base); err != nil {
		t.Fatal(err)
	}

	got, err := mtime(sub, aggMax)
	if err != nil {
		t.Fatal(err)
	}
	want := base.Add(30 * time.Minute)
	if !got.Equal(want) {
		t.Fatalf("mtime aggMax = %v, want %v", got, want)
	}

	got, err = mtime(sub, aggMin)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Before(want) && !got.Equal(base) {
		t.Fatalf("mtime aggMin = %v, want %v", got, base)
	}
}
