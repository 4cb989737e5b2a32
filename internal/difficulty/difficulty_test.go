package difficulty

import (
	"database/sql"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	_ "github.com/mattn/go-sqlite3"
)

func writeCSV(t *testing.T, path string, rows [][]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			t.Fatal(err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		t.Fatal(err)
	}
}

func wordsMap(entries map[string]int32) map[string]*WordDifficulty {
	m := make(map[string]*WordDifficulty)
	for surface, fc := range entries {
		m[surface] = &WordDifficulty{FrequencyClass: fc, examples: newLowK(LowCount)}
	}
	return m
}

// TestComputeAcceptsKnownSentence exercises S1: a tiny course with known
// words and a translated sentence should end up in sentences.db.
func TestComputeAcceptsKnownSentence(t *testing.T) {
	dir := t.TempDir()
	sentencesCSV := filepath.Join(dir, "sentences.csv")
	translationsCSV := filepath.Join(dir, "links.csv")
	outDir := filepath.Join(dir, "out")

	writeCSV(t, sentencesCSV, [][]string{
		{"tatoeba_id", "text", "tokens"},
		{"1", "hello world", `["hello","world"]`},
	})
	writeCSV(t, translationsCSV, [][]string{
		{"1", "100"},
	})

	words := wordsMap(map[string]int32{"hello": 1, "world": 2})

	result, err := Compute(words, sentencesCSV, translationsCSV, false, outDir)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Result{Accepted: 1, Skipped: 0}, result); diff != "" {
		t.Fatalf("Compute() result mismatch (-want +got):\n%s", diff)
	}

	db, err := sql.Open("sqlite3", filepath.Join(outDir, "sentences.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	var difficulty int
	if err := db.QueryRow(`SELECT difficulty FROM sentence WHERE tatoeba_id = 1`).Scan(&difficulty); err != nil {
		t.Fatal(err)
	}
	if difficulty != 2 {
		t.Errorf("difficulty = %d, want 2 (max frequency_class of known words)", difficulty)
	}
}

// TestComputeRejectsUntranslatedSentence exercises S2: a sentence with no
// translation edge is skipped with reason "not translated".
func TestComputeRejectsUntranslatedSentence(t *testing.T) {
	dir := t.TempDir()
	sentencesCSV := filepath.Join(dir, "sentences.csv")
	translationsCSV := filepath.Join(dir, "links.csv")
	outDir := filepath.Join(dir, "out")

	writeCSV(t, sentencesCSV, [][]string{
		{"tatoeba_id", "text", "tokens"},
		{"1", "hello world", `["hello","world"]`},
	})
	writeCSV(t, translationsCSV, [][]string{
		{"2", "100"},
	})

	words := wordsMap(map[string]int32{"hello": 1, "world": 2})

	result, err := Compute(words, sentencesCSV, translationsCSV, false, outDir)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Result{Accepted: 0, Skipped: 1}, result); diff != "" {
		t.Fatalf("Compute() result mismatch (-want +got):\n%s", diff)
	}

	rows, err := os.ReadFile(filepath.Join(outDir, "skipped.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if got := string(rows); !strings.Contains(got, string(NotTranslated)) {
		t.Errorf("skipped.csv = %q, want reason %q", got, NotTranslated)
	}
}

// TestComputeRejectsOOVSentence exercises S3: a sentence containing a
// multi-character token absent from the word list is rejected rather than
// silently ignored.
func TestComputeRejectsOOVSentence(t *testing.T) {
	dir := t.TempDir()
	sentencesCSV := filepath.Join(dir, "sentences.csv")
	translationsCSV := filepath.Join(dir, "links.csv")
	outDir := filepath.Join(dir, "out")

	writeCSV(t, sentencesCSV, [][]string{
		{"tatoeba_id", "text", "tokens"},
		{"1", "hello xyzzy", `["hello","xyzzy"]`},
	})
	writeCSV(t, translationsCSV, [][]string{
		{"1", "100"},
	})

	words := wordsMap(map[string]int32{"hello": 1})

	result, err := Compute(words, sentencesCSV, translationsCSV, false, outDir)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Result{Accepted: 0, Skipped: 1}, result); diff != "" {
		t.Fatalf("Compute() result mismatch (-want +got):\n%s", diff)
	}
	rows, err := os.ReadFile(filepath.Join(outDir, "skipped.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if got := string(rows); !strings.Contains(got, string(ContainsOOV)) {
		t.Errorf("skipped.csv = %q, want reason %q", got, ContainsOOV)
	}
}

// TestComputeAcceptsNumericToken exercises S4: a numeric token absent from
// the word list does not trigger OOV rejection.
func TestComputeAcceptsNumericToken(t *testing.T) {
	dir := t.TempDir()
	sentencesCSV := filepath.Join(dir, "sentences.csv")
	translationsCSV := filepath.Join(dir, "links.csv")
	outDir := filepath.Join(dir, "out")

	writeCSV(t, sentencesCSV, [][]string{
		{"tatoeba_id", "text", "tokens"},
		{"1", "room 42", `["room","42"]`},
	})
	writeCSV(t, translationsCSV, [][]string{
		{"1", "100"},
	})

	words := wordsMap(map[string]int32{"room": 3})

	result, err := Compute(words, sentencesCSV, translationsCSV, false, outDir)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Result{Accepted: 1, Skipped: 0}, result); diff != "" {
		t.Fatalf("Compute() result mismatch, numeric token must not trigger OOV (-want +got):\n%s", diff)
	}
}

// TestWordDifficultyFallsBackToFrequencyClass exercises the bounded-K
// example tracker: a word with no accepted examples keeps its initial
// frequency_class guess, and one with more than K examples keeps only the
// K smallest (spec.md §4.2).
func TestWordDifficultyFallsBackToFrequencyClass(t *testing.T) {
	w := &WordDifficulty{FrequencyClass: 7, examples: newLowK(LowCount)}
	if got := w.Difficulty(); got != 7 {
		t.Fatalf("Difficulty() = %d, want 7 (no examples yet)", got)
	}

	w.addExample(5)
	w.addExample(2)
	w.addExample(9)
	w.addExample(1) // fourth example, should evict the largest (9)

	if got := w.Difficulty(); got != 5 {
		t.Fatalf("Difficulty() = %d, want 5 (3rd smallest of 5,2,9,1)", got)
	}
}
