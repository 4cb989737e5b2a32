package tatoeba

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPartitionSentencesByLanguage(t *testing.T) {
	dir := t.TempDir()
	sentencesTSV := filepath.Join(dir, "sentences.csv")
	destDir := filepath.Join(dir, "sentences")

	if err := os.WriteFile(sentencesTSV, []byte(strings.Join([]string{
		"1\teng\tHello.",
		"2\tspa\tHola.",
		"3\teng\tGoodbye.",
	}, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := PartitionSentences(sentencesTSV, destDir); err != nil {
		t.Fatal(err)
	}

	eng, err := os.ReadFile(filepath.Join(destDir, "eng.tsv"))
	if err != nil {
		t.Fatal(err)
	}
	if got := string(eng); got != "1\tHello.\n3\tGoodbye.\n" {
		t.Errorf("eng.tsv = %q", got)
	}

	spa, err := os.ReadFile(filepath.Join(destDir, "spa.tsv"))
	if err != nil {
		t.Fatal(err)
	}
	if got := string(spa); got != "2\tHola.\n" {
		t.Errorf("spa.tsv = %q", got)
	}
}
