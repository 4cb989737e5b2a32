package course

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/xerrors"

	"github.com/distr1/coursebuild/internal/language"
	"github.com/distr1/coursebuild/internal/model"
)

// MaxExamples bounds the number of contains edges any one word may keep
// (spec.md §6 constants).
const MaxExamples = 30

// InsertLanguages inserts the l1/l2 language rows (spec.md §4.3 Phase B.1).
func InsertLanguages(db *sql.DB, l1Code, l2Code string) error {
	l1, err := language.Lookup(l1Code)
	if err != nil {
		return err
	}
	l2, err := language.Lookup(l2Code)
	if err != nil {
		return err
	}
	const query = `INSERT INTO language (id, code, name, bcp47) VALUES (?, ?, ?, ?)`
	if _, err := db.Exec(query, "l1", l1.Code, l1.Name, l1.BCP47); err != nil {
		return xerrors.Errorf("inserting l1 language: %w", err)
	}
	if _, err := db.Exec(query, "l2", l2.Code, l2.Name, l2.BCP47); err != nil {
		return xerrors.Errorf("inserting l2 language: %w", err)
	}
	return nil
}

// translationEdge is one (source, target) row of a per-pair link file,
// prior to any reversal.
type translationEdge struct {
	source, target int64
}

func loadTranslationEdges(path string) ([]translationEdge, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var edges []translationEdge
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
		source, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return nil, err
		}
		target, err := strconv.ParseInt(row[1], 10, 64)
		if err != nil {
			return nil, err
		}
		edges = append(edges, translationEdge{source: source, target: target})
	}
	return edges, nil
}

// InsertTranslates inserts translates(source, target) rows from the
// per-pair CSV at path, swapping columns when reversed (spec.md §4.3
// Phase B.2).
func InsertTranslates(db *sql.DB, path string, reversed bool) error {
	edges, err := loadTranslationEdges(path)
	if err != nil {
		return err
	}
	stmt, err := db.Prepare(`INSERT INTO translates (source, target) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, e := range edges {
		source, target := e.source, e.target
		if reversed {
			source, target = target, source
		}
		if _, err := stmt.Exec(source, target); err != nil {
			return xerrors.Errorf("inserting translates edge: %w", err)
		}
	}
	return nil
}

// AttachSentences attaches the Difficulty Engine's sentences.db and
// copies its rows into the course's sentence table (spec.md §4.3 Phase
// B.3).
func AttachSentences(db *sql.DB, sentencesDBPath string) error {
	if _, err := db.Exec(`ATTACH DATABASE ? AS diffsent`, sentencesDBPath); err != nil {
		return xerrors.Errorf("attaching %s: %w", sentencesDBPath, err)
	}
	defer db.Exec(`DETACH DATABASE diffsent`)

	const query = `
INSERT INTO sentence (tatoeba_id, text, tokens, frequency_class)
SELECT tatoeba_id, text, tokens, difficulty FROM diffsent.sentence
`
	if _, err := db.Exec(query); err != nil {
		return xerrors.Errorf("copying sentences: %w", err)
	}
	return nil
}

// AttachWords attaches the Difficulty Engine's words.db and copies its
// rows into the course's word table (spec.md §4.3 Phase B.4).
func AttachWords(db *sql.DB, wordsDBPath string) error {
	if _, err := db.Exec(`ATTACH DATABASE ? AS diffword`, wordsDBPath); err != nil {
		return xerrors.Errorf("attaching %s: %w", wordsDBPath, err)
	}
	defer db.Exec(`DETACH DATABASE diffword`)

	const query = `
INSERT INTO word (word, frequency_class)
SELECT surface, difficulty FROM diffword.word
`
	if _, err := db.Exec(query); err != nil {
		return xerrors.Errorf("copying words: %w", err)
	}
	return nil
}

// InsertTranslations inserts translation(tatoeba_id, text) rows for every
// L1 sentence whose ID is a target of translates (spec.md §4.3 Phase B.5).
// l1SentencesTSV is the global Tatoeba sentences file (id, language,
// text), filtered here to l1Code.
func InsertTranslations(db *sql.DB, l1SentencesTSV, l1Code string) error {
	rows, err := db.Query(`SELECT target FROM translates`)
	if err != nil {
		return err
	}
	targets := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		targets[id] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	f, err := os.Open(l1SentencesTSV)
	if err != nil {
		return xerrors.Errorf("opening %s: %w", l1SentencesTSV, err)
	}
	defer f.Close()

	stmt, err := db.Prepare(`INSERT INTO translation (tatoeba_id, text) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	scanner := newTSVScanner(f)
	for scanner.Scan() {
		cols := strings.SplitN(scanner.Text(), "\t", 3)
		if len(cols) != 3 {
			continue
		}
		if cols[1] != l1Code {
			continue
		}
		id, err := strconv.ParseInt(cols[0], 10, 64)
		if err != nil {
			return err
		}
		if !targets[id] {
			continue
		}
		if _, err := stmt.Exec(id, cols[2]); err != nil {
			return xerrors.Errorf("inserting translation %d: %w", id, err)
		}
	}
	return scanner.Err()
}

// BuildContains builds the capped contains edges: iterate sentences in
// ascending frequency_class, look up their tokens' word IDs via a batched
// IN (...) query, and emit an edge only while that word's running count is
// below maxExamples (spec.md §4.3 Phase B.6).
func BuildContains(db *sql.DB, maxExamples int) error {
	rows, err := db.Query(`SELECT id, tokens FROM sentence ORDER BY frequency_class ASC, id ASC`)
	if err != nil {
		return err
	}
	type sentenceRow struct {
		id     int64
		tokens string
	}
	var sentences []sentenceRow
	for rows.Next() {
		var s sentenceRow
		if err := rows.Scan(&s.id, &s.tokens); err != nil {
			rows.Close()
			return err
		}
		sentences = append(sentences, s)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	insert, err := db.Prepare(`INSERT INTO contains (sentence, word) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer insert.Close()

	counts := make(map[int64]int)
	for _, s := range sentences {
		tokens, err := decodeTokens(s.tokens)
		if err != nil {
			return xerrors.Errorf("decoding tokens for sentence %d: %w", s.id, err)
		}
		wordIDs, err := queryWordIDs(db, tokens)
		if err != nil {
			return err
		}
		for _, wordID := range wordIDs {
			if counts[wordID] >= maxExamples {
				continue
			}
			if _, err := insert.Exec(s.id, wordID); err != nil {
				return xerrors.Errorf("inserting contains edge (%d, %d): %w", s.id, wordID, err)
			}
			counts[wordID]++
		}
	}
	return nil
}

// queryWordIDs resolves the canonicalized, de-duplicated set of tokens to
// their word IDs via one batched IN (...) query, mirroring the original
// project's query_words helper.
func queryWordIDs(db *sql.DB, tokens []string) ([]int64, error) {
	seen := make(map[string]bool)
	var unique []string
	for _, tok := range tokens {
		key := model.Canonicalize(tok)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, key)
	}
	if len(unique) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(unique))
	args := make([]interface{}, len(unique))
	for i, tok := range unique {
		placeholders[i] = "?"
		args[i] = tok
	}
	query := fmt.Sprintf(`SELECT id FROM word WHERE word IN (%s)`, strings.Join(placeholders, ", "))

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
