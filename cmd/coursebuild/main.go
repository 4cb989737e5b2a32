// Command coursebuild builds bilingual course databases from a partitioned
// Tatoeba corpus. Its shape — a thin flag-parsing front end delegating
// immediately to an internal package — follows the teacher's
// cmd/distri/distri.go.
package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/mattn/go-isatty"
	"golang.org/x/exp/maps"
	"golang.org/x/xerrors"

	coursebuild "github.com/distr1/coursebuild"
	"github.com/distr1/coursebuild/internal/config"
	"github.com/distr1/coursebuild/internal/course"
	"github.com/distr1/coursebuild/internal/language"
	"github.com/distr1/coursebuild/internal/migrations"
	"github.com/distr1/coursebuild/internal/oninterrupt"
	"github.com/distr1/coursebuild/internal/pipeline"
	"github.com/distr1/coursebuild/internal/scheduler"
	"github.com/distr1/coursebuild/internal/trace"
)

const help = `coursebuild [-flags] l1 l2 [l1 l2 ...]

Build bilingual course databases from the partitioned Tatoeba corpus
rooted at $COURSEBUILD_ROOT (default ./build).

l1 and l2 are ISO 639-3 language codes naming an ordered pair; "_" for
either means "every known language paired with the other one named".

Example:
  % coursebuild eng spa
  % coursebuild _ eng
`

var (
	rebuild   = flag.Bool("B", false, "rebuild every artifact regardless of freshness")
	jobs      = flag.Int("j", runtime.NumCPU(), "number of parallel tasks to run")
	check     = flag.Bool("check", false, "run a quality check on each built course and log the result")
	tracefile = flag.String("tracefile", "", "path to store a chrome trace event file at (load in chrome://tracing)")
)

func allLanguageCodes() []string {
	codes := maps.Keys(language.Registry)
	sort.Strings(codes)
	return codes
}

func expandPairs(args []string) ([][2]string, error) {
	if len(args) == 0 || len(args)%2 != 0 {
		return nil, xerrors.Errorf("expected an even number of language codes, got %d", len(args))
	}

	var pairs [][2]string
	for i := 0; i < len(args); i += 2 {
		l1, l2 := args[i], args[i+1]
		l1Codes := []string{l1}
		if l1 == "_" {
			l1Codes = allLanguageCodes()
		}
		l2Codes := []string{l2}
		if l2 == "_" {
			l2Codes = allLanguageCodes()
		}
		for _, a := range l1Codes {
			for _, b := range l2Codes {
				if a == b {
					continue
				}
				pairs = append(pairs, [2]string{a, b})
			}
		}
	}
	return pairs, nil
}

func funcmain() error {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, help)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *tracefile != "" {
		f, err := os.Create(*tracefile)
		if err != nil {
			return err
		}
		trace.Sink(f)
		coursebuild.RegisterAtExit(f.Close)
	}

	pairs, err := expandPairs(flag.Args())
	if err != nil {
		flag.Usage()
		return err
	}

	scheduler.BuildAlways = *rebuild

	ctx, stop := oninterrupt.WithCancelOnInterrupt(context.Background())
	defer stop()

	logger := log.New(os.Stderr, "", log.LstdFlags)
	cfg := pipeline.Config{
		Root:          config.BuildRoot,
		TokenizerFor:  tokenizerFor,
		MigrationsFS:  migrations.FS,
		MigrationsDir: ".",
		Logger:        logger,
	}

	summary, err := pipeline.Build(ctx, cfg, pairs, *jobs)
	if isatty.IsTerminal(os.Stdout.Fd()) {
		for _, task := range summary.Tasks {
			logger.Printf("%s: %s", task.Name, task.End.Sub(task.Start))
		}
	} else {
		logger.Printf("%d tasks completed", len(summary.Tasks))
	}
	if err != nil {
		return err
	}

	if *check {
		for _, pair := range pairs {
			l1, l2 := pair[0], pair[1]
			path := filepath.Join(config.BuildRoot, "courses", fmt.Sprintf("%s-%s.db", l1, l2))
			ok, err := checkCourse(path, cfg.MigrationsFS, cfg.MigrationsDir)
			if err != nil {
				logger.Printf("quality check %s-%s: %v", l1, l2, err)
				continue
			}
			if !ok {
				logger.Printf("quality check %s-%s: FAILED (frequency classes are not contiguous from 0 through at least 8)", l1, l2)
			} else {
				logger.Printf("quality check %s-%s: ok", l1, l2)
			}
		}
	}

	return coursebuild.RunAtExit()
}

func checkCourse(path string, fsys fs.FS, dir string) (bool, error) {
	db, err := course.Open(path, fsys, dir)
	if err != nil {
		return false, err
	}
	defer db.Close()
	return course.QualityCheck(db)
}

func main() {
	if err := funcmain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
