package course

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/xerrors"

	"github.com/distr1/coursebuild/internal/migrate"
)

// Open creates a fresh sqlite database at path and applies every
// migration under dir in fsys, returning the open handle.
func Open(path string, fsys fs.FS, dir string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, xerrors.Errorf("opening %s: %w", path, err)
	}
	if err := migrate.Apply(db, fsys, dir); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func decodeTokens(tokensJSON string) ([]string, error) {
	var tokens []string
	if err := json.Unmarshal([]byte(tokensJSON), &tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}

func newTSVScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return scanner
}

// Inputs bundles the filesystem artifacts one Build call needs, so
// callers (the pipeline package) don't have to pass a long untyped
// parameter list.
type Inputs struct {
	L1Code, L2Code string
	// TranslationsCSV is build/links/{lo}-{hi}.csv, its columns always
	// ordered (lo's id, hi's id).
	TranslationsCSV string
	// Reversed is true when L2 is the "hi" side of TranslationsCSV's
	// filename, i.e. L2's id is the CSV's second column. Set this so that
	// the resulting translates(source, target) rows have source = L2's
	// tatoeba_id, matching what populateSentence/Difficulty Engine output
	// expects downstream.
	Reversed       bool
	SentencesDB    string // Difficulty Engine output for L2
	WordsDB        string // Difficulty Engine output for L2
	L1SentencesTSV string // global Tatoeba sentences.csv
	MigrationsFS   fs.FS
	MigrationsDir  string
}

// Build runs Phase B (populate) then Phase C (shrink) for one language
// pair into a fresh database at a temp path, then publishes it atomically
// to dest (spec.md §4.3).
func Build(in Inputs, dest string) error {
	tmpDir, err := os.MkdirTemp("", "coursebuild-course")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmpDir)

	tmpDB := filepath.Join(tmpDir, "course.db")
	db, err := Open(tmpDB, in.MigrationsFS, in.MigrationsDir)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := InsertLanguages(db, in.L1Code, in.L2Code); err != nil {
		return err
	}
	if err := InsertTranslates(db, in.TranslationsCSV, in.Reversed); err != nil {
		return err
	}
	if err := AttachSentences(db, in.SentencesDB); err != nil {
		return err
	}
	if err := AttachWords(db, in.WordsDB); err != nil {
		return err
	}
	if err := InsertTranslations(db, in.L1SentencesTSV, in.L1Code); err != nil {
		return err
	}
	if err := BuildContains(db, MaxExamples); err != nil {
		return err
	}
	if err := Shrink(db); err != nil {
		return err
	}
	if err := db.Close(); err != nil {
		return err
	}

	return publish(tmpDB, dest)
}

// publish atomically moves src to dest via the teacher's
// renameio-based copy/rename idiom (spec.md §9: "prefer a copy-then-rename
// utility rather than a naive rename" for cross-device safety).
func publish(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := renameio.TempFile("", dest)
	if err != nil {
		return err
	}
	defer out.Cleanup()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.CloseAtomicallyReplace()
}
