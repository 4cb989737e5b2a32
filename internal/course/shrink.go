package course

import (
	"database/sql"

	"golang.org/x/xerrors"
)

// Shrink runs the full Phase C sequence: bump frequency classes, re-cap
// contains, prune orphans transitively, recreate the contains(word)
// index, and VACUUM (spec.md §4.3 Phase C).
func Shrink(db *sql.DB) error {
	if err := bumpFrequencyClass(db); err != nil {
		return xerrors.Errorf("bumping frequency classes: %w", err)
	}
	if err := capContains(db); err != nil {
		return xerrors.Errorf("capping contains: %w", err)
	}
	if err := pruneOrphans(db); err != nil {
		return xerrors.Errorf("pruning orphans: %w", err)
	}
	if _, err := db.Exec(`DROP INDEX IF EXISTS contains_word_idx`); err != nil {
		return err
	}
	if _, err := db.Exec(`CREATE INDEX contains_word_idx ON contains (word)`); err != nil {
		return err
	}
	if _, err := db.Exec(`VACUUM`); err != nil {
		return xerrors.Errorf("vacuuming: %w", err)
	}
	return nil
}

// bumpFrequencyClass raises a word's frequency_class to the minimum
// frequency_class among sentences it appears in, for any word that is never
// a hardest word (ties included) of one of its examples — but only if that
// raises (never lowers) the class (spec.md §4.3 Phase C.1).
func bumpFrequencyClass(db *sql.DB) error {
	const query = `
UPDATE word
SET frequency_class = (
	SELECT MIN(sentence.frequency_class)
	FROM contains
	JOIN sentence ON sentence.id = contains.sentence
	WHERE contains.word = word.id
)
WHERE id NOT IN (
	SELECT contains.word
	FROM contains
	JOIN sentence ON sentence.id = contains.sentence
	WHERE sentence.frequency_class = word.frequency_class
)
AND (
	SELECT MIN(sentence.frequency_class)
	FROM contains
	JOIN sentence ON sentence.id = contains.sentence
	WHERE contains.word = word.id
) > frequency_class
`
	_, err := db.Exec(query)
	return err
}

// capContains rebuilds contains to include only edges where the
// sentence's frequency_class does not exceed the word's, restoring the
// invariant that bumpFrequencyClass may have broken for some edges
// (spec.md §4.3 Phase C.2).
func capContains(db *sql.DB) error {
	// SQLite's DELETE does not expose the row's own joined columns
	// directly, so the predicate is expressed as a correlated subquery.
	const query = `
DELETE FROM contains
WHERE EXISTS (
	SELECT 1 FROM sentence, word
	WHERE sentence.id = contains.sentence
	AND word.id = contains.word
	AND sentence.frequency_class > word.frequency_class
)
`
	_, err := db.Exec(query)
	return err
}

// pruneOrphans deletes, transitively, every row left dangling by a
// shrink: sentences with no contains edge, contains edges to vanished
// sentences, translates edges whose source or target vanished,
// translations no longer targeted, and finally words with no remaining
// contains edge (spec.md §4.3 Phase C.3).
func pruneOrphans(db *sql.DB) error {
	statements := []string{
		`DELETE FROM contains WHERE sentence NOT IN (SELECT id FROM sentence)`,
		`DELETE FROM sentence WHERE id NOT IN (SELECT sentence FROM contains)`,
		`DELETE FROM contains WHERE sentence NOT IN (SELECT id FROM sentence)`,
		`DELETE FROM translates WHERE source NOT IN (SELECT tatoeba_id FROM sentence)`,
		`DELETE FROM translation WHERE tatoeba_id NOT IN (SELECT target FROM translates)`,
		`DELETE FROM translates WHERE target NOT IN (SELECT tatoeba_id FROM translation)`,
		`DELETE FROM sentence WHERE tatoeba_id NOT IN (SELECT source FROM translates)`,
		`DELETE FROM contains WHERE sentence NOT IN (SELECT id FROM sentence)`,
		`DELETE FROM word WHERE id NOT IN (SELECT word FROM contains)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
