package course

import "database/sql"

// QualityCheck reports whether a finished course has words spanning a
// contiguous run of frequency classes starting at 0, with no gaps and no
// empty class, and at least 9 classes (0..8) — grounded on the original
// project's course.py quality_check.
func QualityCheck(db *sql.DB) (bool, error) {
	rows, err := db.Query(`
SELECT frequency_class, COUNT(*)
FROM word
GROUP BY frequency_class
ORDER BY frequency_class ASC
`)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	prev := -1
	for rows.Next() {
		var frequencyClass, count int
		if err := rows.Scan(&frequencyClass, &count); err != nil {
			return false, err
		}
		if count <= 0 || prev+1 != frequencyClass {
			return false, nil
		}
		prev = frequencyClass
	}
	if err := rows.Err(); err != nil {
		return false, err
	}
	return prev >= 8, nil
}
