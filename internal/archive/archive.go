// Package archive performs the narrow, mechanical half of upstream
// acquisition that the Scheduler's task graph still needs a body for:
// decompressing the two gzip-compressed Tatoeba archives into the plain
// TSV files described by spec.md §6. Everything else about acquisition —
// negotiating HTTP, caching ETags, deciding when a week has passed — is
// out of scope per spec.md §1 and lives outside this package.
package archive

import (
	"io"
	"os"

	"github.com/google/renameio"
	"github.com/klauspost/pgzip"
	"golang.org/x/xerrors"
)

// Decompress reads the gzip-compressed file at src and writes its
// decompressed contents to dest, publishing dest atomically (temp file +
// rename) so a reader never observes a half-written file, matching the
// teacher's renameio.TempFile idiom used throughout internal/build.
func Decompress(src, dest string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return xerrors.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	zr, err := pgzip.NewReader(in)
	if err != nil {
		return xerrors.Errorf("gzip reader for %s: %w", src, err)
	}
	defer zr.Close()

	out, err := renameio.TempFile("", dest)
	if err != nil {
		return xerrors.Errorf("creating temp file for %s: %w", dest, err)
	}
	defer out.Cleanup()

	if _, err := io.Copy(out, zr); err != nil {
		return xerrors.Errorf("decompressing %s: %w", src, err)
	}

	if err := out.CloseAtomicallyReplace(); err != nil {
		return xerrors.Errorf("publishing %s: %w", dest, err)
	}
	return nil
}
