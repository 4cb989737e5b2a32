// Package migrate applies numbered SQL migration files to a sqlite
// database, checking that each file's declared filename version agrees
// with the `PRAGMA user_version` it embeds, per spec.md §6's migrations
// collaborator contract.
package migrate

import (
	"database/sql"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"

	"golang.org/x/xerrors"
)

// ErrSchema reports a migration file whose filename version disagrees
// with its embedded PRAGMA user_version, or a malformed migration
// filename.
type ErrSchema struct {
	File   string
	Reason string
}

func (e *ErrSchema) Error() string {
	return "schema: " + e.File + ": " + e.Reason
}

var filenamePattern = regexp.MustCompile(`^(\d+)_.*\.sql$`)
var userVersionPattern = regexp.MustCompile(`PRAGMA\s+user_version\s*=\s*(\d+)\s*;`)

type migration struct {
	version int
	name    string
	sql     string
}

// Load reads every *.sql file directly under dir in fsys, validates that
// its filename version matches its embedded PRAGMA user_version, and
// returns them sorted ascending by version.
func Load(fsys fs.FS, dir string) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, xerrors.Errorf("reading migrations dir %s: %w", dir, err)
	}

	var migrations []migration
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := filenamePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		version, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, &ErrSchema{File: entry.Name(), Reason: "filename version not an integer"}
		}

		contents, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, xerrors.Errorf("reading %s: %w", entry.Name(), err)
		}

		uv := userVersionPattern.FindStringSubmatch(string(contents))
		if uv == nil {
			return nil, &ErrSchema{File: entry.Name(), Reason: "missing PRAGMA user_version"}
		}
		embeddedVersion, err := strconv.Atoi(uv[1])
		if err != nil {
			return nil, &ErrSchema{File: entry.Name(), Reason: "embedded user_version not an integer"}
		}
		if embeddedVersion != version {
			return nil, &ErrSchema{
				File:   entry.Name(),
				Reason: xerrors.Errorf("filename version %d disagrees with embedded user_version %d", version, embeddedVersion).Error(),
			}
		}

		migrations = append(migrations, migration{version: version, name: entry.Name(), sql: string(contents)})
	}

	sort.Slice(migrations, func(i, j int) bool { return migrations[i].version < migrations[j].version })
	return migrations, nil
}

// Apply runs every migration in fsys/dir whose version exceeds db's
// current PRAGMA user_version, in ascending order.
func Apply(db *sql.DB, fsys fs.FS, dir string) error {
	migrations, err := Load(fsys, dir)
	if err != nil {
		return err
	}

	var current int
	if err := db.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		return xerrors.Errorf("reading current user_version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if _, err := db.Exec(m.sql); err != nil {
			return xerrors.Errorf("applying %s: %w", m.name, err)
		}
	}
	return nil
}
