// Package difficulty implements the two-phase difficulty-propagation
// algorithm described by spec.md §4.2: per-sentence difficulty is the max
// frequency_class of its known words (or rejection, for untranslated or
// OOV sentences); per-word difficulty is the K-th smallest difficulty
// among the sentences it appears in, falling back to its own
// frequency_class when it has no examples.
//
// Grounded on the original project's difficulty.py, adapted from Python's
// sqlite3 module + csv package to Go's database/sql + encoding/csv.
package difficulty

import (
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/renameio"
	_ "github.com/mattn/go-sqlite3"
	"github.com/orcaman/writerseeker"
	"golang.org/x/xerrors"

	"github.com/distr1/coursebuild/internal/model"
)

// LowCount is K, the number of easiest example sentences retained per word
// (spec.md §4.2, §6 constants).
const LowCount = 3

// WordDifficulty tracks a word's initial guess (FrequencyClass) and the K
// easiest example sentences it has appeared in so far.
type WordDifficulty struct {
	FrequencyClass int32
	examples       *lowK
}

// Difficulty returns the word's final difficulty: the largest of its
// retained smallest-K example difficulties, or FrequencyClass if it has no
// examples.
func (w *WordDifficulty) Difficulty() int32 {
	if d, ok := w.examples.Largest(); ok {
		return d
	}
	return w.FrequencyClass
}

func (w *WordDifficulty) addExample(difficulty int32) {
	w.examples.Add(difficulty)
}

// LoadWords reads a language's words.csv (header: surface,frequency,
// frequency_class) into a map keyed by canonicalized surface.
func LoadWords(path string) (map[string]*WordDifficulty, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	if _, err := r.Read(); err != nil { // header
		return nil, xerrors.Errorf("reading header of %s: %w", path, err)
	}

	words := make(map[string]*WordDifficulty)
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, xerrors.Errorf("reading %s: %w", path, err)
		}
		fc, err := strconv.ParseInt(row[2], 10, 32)
		if err != nil {
			return nil, xerrors.Errorf("parsing frequency_class in %s: %w", path, err)
		}
		words[row[0]] = &WordDifficulty{
			FrequencyClass: int32(fc),
			examples:       newLowK(LowCount),
		}
	}
	return words, nil
}

// sourceIDs returns the set of sentence IDs that appear as the L2-side
// column of a translation edges CSV (no header; columns source_id,
// target_id). l2IsSecondColumn selects which column holds the L2 ID.
func sourceIDs(path string, l2IsSecondColumn bool) (map[int64]bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	ids := make(map[int64]bool)
	r := csv.NewReader(f)
	r.FieldsPerRecord = 2
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, xerrors.Errorf("reading %s: %w", path, err)
		}
		col := 0
		if l2IsSecondColumn {
			col = 1
		}
		id, err := strconv.ParseInt(row[col], 10, 64)
		if err != nil {
			return nil, xerrors.Errorf("parsing id in %s: %w", path, err)
		}
		ids[id] = true
	}
	return ids, nil
}

// SkipReason is why a sentence was excluded from sentences.db.
type SkipReason string

const (
	NotTranslated SkipReason = "not translated"
	ContainsOOV   SkipReason = "contains OOV word"
)

// computeSentenceDifficulty returns the sentence's difficulty (the max
// frequency_class of its known tokens), or -1 if the sentence contains an
// out-of-vocabulary token. Known tokens' example lists are updated as a
// side effect, using the difficulty computed for the WHOLE sentence (see
// spec.md §4.2 "Rationale": frequency_class, never the not-yet-final
// difficulty, to avoid order-dependence).
func computeSentenceDifficulty(tokens []string, words map[string]*WordDifficulty) int32 {
	difficulty := int32(-1)
	keys := make([]string, len(tokens))
	for i, tok := range tokens {
		keys[i] = model.Canonicalize(tok)
	}

	for _, key := range keys {
		w, ok := words[key]
		if !ok {
			if model.RuneLen(key) > 1 && !model.IsNumeric(key) {
				return -1
			}
			continue
		}
		if w.FrequencyClass > difficulty {
			difficulty = w.FrequencyClass
		}
	}

	if difficulty < 0 {
		return difficulty
	}

	for _, key := range keys {
		if w, ok := words[key]; ok {
			w.addExample(difficulty)
		}
	}
	return difficulty
}

// Result reports counts for a completed Compute run, useful for logging
// and tests.
type Result struct {
	Accepted int
	Skipped  int
}

// Compute runs the full two-phase difficulty algorithm for one language
// pair's L2 side: it reads sentencesCSV (tatoeba_id,text,tokens_json) and
// the translations CSV, writes sentences.db and words.db (sqlite) and
// skipped.csv into outDir, all published atomically.
func Compute(words map[string]*WordDifficulty, sentencesCSV, translationsCSV string, l2IsSecondColumn bool, outDir string) (Result, error) {
	translated, err := sourceIDs(translationsCSV, l2IsSecondColumn)
	if err != nil {
		return Result{}, err
	}

	tmpDir, err := os.MkdirTemp("", "coursebuild-difficulty")
	if err != nil {
		return Result{}, err
	}
	defer os.RemoveAll(tmpDir)

	sentencesDB := filepath.Join(tmpDir, "sentences.db")
	db, err := sql.Open("sqlite3", sentencesDB)
	if err != nil {
		return Result{}, xerrors.Errorf("opening %s: %w", sentencesDB, err)
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE sentence (
		id INTEGER PRIMARY KEY,
		text TEXT NOT NULL,
		tatoeba_id INTEGER NOT NULL,
		tokens TEXT NOT NULL,
		difficulty INTEGER NOT NULL
	)`); err != nil {
		return Result{}, xerrors.Errorf("creating sentence table: %w", err)
	}

	insert, err := db.Prepare(`INSERT INTO sentence (text, tatoeba_id, tokens, difficulty) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return Result{}, err
	}
	defer insert.Close()

	// skipped.csv is assembled in memory first: most runs skip few
	// sentences relative to the corpus, so buffering avoids a sync write
	// per rejection and lets the whole file land on disk in one shot.
	skippedPath := filepath.Join(tmpDir, "skipped.csv")
	var skippedBuf writerseeker.WriterSeeker
	skippedWriter := csv.NewWriter(&skippedBuf)
	if err := skippedWriter.Write([]string{"tatoeba_id", "text", "reason_for_exclusion"}); err != nil {
		return Result{}, err
	}

	in, err := os.Open(sentencesCSV)
	if err != nil {
		return Result{}, xerrors.Errorf("opening %s: %w", sentencesCSV, err)
	}
	defer in.Close()

	r := csv.NewReader(in)
	if _, err := r.Read(); err != nil { // header
		return Result{}, xerrors.Errorf("reading header of %s: %w", sentencesCSV, err)
	}

	var result Result
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Result{}, xerrors.Errorf("reading %s: %w", sentencesCSV, err)
		}
		tatoebaID, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return Result{}, err
		}
		text := row[1]
		tokensJSON := row[2]

		if !translated[tatoebaID] {
			if err := skippedWriter.Write([]string{row[0], text, string(NotTranslated)}); err != nil {
				return Result{}, err
			}
			result.Skipped++
			continue
		}

		var tokens []string
		if err := json.Unmarshal([]byte(tokensJSON), &tokens); err != nil {
			return Result{}, xerrors.Errorf("decoding tokens for sentence %d: %w", tatoebaID, err)
		}

		difficulty := computeSentenceDifficulty(tokens, words)
		if difficulty < 0 {
			if err := skippedWriter.Write([]string{row[0], text, string(ContainsOOV)}); err != nil {
				return Result{}, err
			}
			result.Skipped++
			continue
		}

		if _, err := insert.Exec(text, tatoebaID, tokensJSON, difficulty); err != nil {
			return Result{}, xerrors.Errorf("inserting sentence %d: %w", tatoebaID, err)
		}
		result.Accepted++
	}

	skippedWriter.Flush()
	if err := skippedWriter.Error(); err != nil {
		return Result{}, err
	}
	skippedReader, err := skippedBuf.Reader()
	if err != nil {
		return Result{}, err
	}
	skippedFile, err := os.Create(skippedPath)
	if err != nil {
		return Result{}, err
	}
	if _, err := io.Copy(skippedFile, skippedReader); err != nil {
		skippedFile.Close()
		return Result{}, err
	}
	if err := skippedFile.Close(); err != nil {
		return Result{}, err
	}
	if err := db.Close(); err != nil {
		return Result{}, err
	}

	wordsDB := filepath.Join(tmpDir, "words.db")
	wdb, err := sql.Open("sqlite3", wordsDB)
	if err != nil {
		return Result{}, err
	}
	if _, err := wdb.Exec(`CREATE TABLE word (
		surface TEXT PRIMARY KEY,
		difficulty INTEGER NOT NULL
	)`); err != nil {
		wdb.Close()
		return Result{}, xerrors.Errorf("creating word table: %w", err)
	}
	winsert, err := wdb.Prepare(`INSERT INTO word (surface, difficulty) VALUES (?, ?)`)
	if err != nil {
		wdb.Close()
		return Result{}, err
	}
	for surface, w := range words {
		if _, err := winsert.Exec(surface, w.Difficulty()); err != nil {
			wdb.Close()
			return Result{}, xerrors.Errorf("inserting word %q: %w", surface, err)
		}
	}
	winsert.Close()
	if err := wdb.Close(); err != nil {
		return Result{}, err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Result{}, err
	}
	if err := publish(sentencesDB, filepath.Join(outDir, "sentences.db")); err != nil {
		return Result{}, err
	}
	if err := publish(wordsDB, filepath.Join(outDir, "words.db")); err != nil {
		return Result{}, err
	}
	if err := publish(skippedPath, filepath.Join(outDir, "skipped.csv")); err != nil {
		return Result{}, err
	}

	return result, nil
}

// publish atomically moves src (inside a temp directory) to dest,
// following the teacher's renameio-based copy/rename idiom so a
// cross-device move never leaves dest half-written.
func publish(src, dest string) error {
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
