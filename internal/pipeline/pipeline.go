// Package pipeline wires the Scheduler's task identities together the way
// the original project's task.py wires download_latest/decompress_links/
// decompress_sentences/prepare_sentences/LanguageTokenizerTask/
// TranslationMapperTask/CourseBuilderTask: one DAG per invocation, built
// from the requested language pairs.
package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/exp/maps"

	"github.com/distr1/coursebuild/internal/archive"
	"github.com/distr1/coursebuild/internal/course"
	"github.com/distr1/coursebuild/internal/difficulty"
	"github.com/distr1/coursebuild/internal/language"
	"github.com/distr1/coursebuild/internal/scheduler"
	"github.com/distr1/coursebuild/internal/tatoeba"
)

// Config bundles the filesystem root and external collaborators a Build
// run needs.
type Config struct {
	Root          string // e.g. config.BuildRoot
	TokenizerFor  func(code string) (language.Tokenizer, error)
	MigrationsFS  fs.FS
	MigrationsDir string
	Logger        *log.Logger
}

func (c Config) tatoebaDir() string   { return filepath.Join(c.Root, "tatoeba") }
func (c Config) sentencesDir() string { return filepath.Join(c.Root, "sentences") }
func (c Config) linksDir() string     { return filepath.Join(c.Root, "links") }
func (c Config) languageDir(code string) string {
	return filepath.Join(c.Root, "languages", code)
}
func (c Config) coursePath(l1, l2 string) string {
	return filepath.Join(c.Root, "courses", fmt.Sprintf("%s-%s.db", l1, l2))
}

// canonicalPair orders two language codes so the lexicographically
// smaller one comes first (spec.md §4.3, §6 canonical filename rule).
func canonicalPair(a, b string) (lo, hi string) {
	if a <= b {
		return a, b
	}
	return b, a
}

type decompressLinksID struct{}
type decompressSentencesID struct{}
type prepareSentencesID struct{}
type partitionLinksID struct{}
type tokenizeLanguageID struct{ code string }
type mapTranslationsID struct{ lo, hi string }
type buildCourseID struct{ l1, l2 string }

// Build constructs and executes the full task graph for the requested
// (l1, l2) pairs.
func Build(ctx context.Context, cfg Config, pairs [][2]string, workers int) (scheduler.Summary, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	g := scheduler.NewGraph(logger)

	g.Add(decompressLinksID{}, "decompress links", decompressLinksTask(cfg))
	g.Add(decompressSentencesID{}, "decompress sentences", decompressSentencesTask(cfg))
	g.Add(prepareSentencesID{}, "prepare sentences", prepareSentencesTask(cfg), decompressSentencesID{})
	g.Add(partitionLinksID{}, "partition links", partitionLinksTask(cfg), decompressLinksID{}, decompressSentencesID{})

	languages := make(map[string]bool)
	pairKeys := make(map[[2]string]bool)
	for _, pair := range pairs {
		if pair[0] == pair[1] {
			return scheduler.Summary{}, fmt.Errorf("invalid pair: l1 and l2 are both %q", pair[0])
		}
		languages[pair[0]] = true
		languages[pair[1]] = true
		pairKeys[pair] = true
	}

	codes := maps.Keys(languages)
	sort.Strings(codes)
	for _, code := range codes {
		code := code
		g.Add(tokenizeLanguageID{code: code}, fmt.Sprintf("tokenize %s", code), tokenizeLanguageTask(cfg, code), prepareSentencesID{})
	}

	seenLinkPairs := make(map[[2]string]bool)
	for pair := range pairKeys {
		lo, hi := canonicalPair(pair[0], pair[1])
		key := [2]string{lo, hi}
		if !seenLinkPairs[key] {
			seenLinkPairs[key] = true
			g.Add(mapTranslationsID{lo: lo, hi: hi}, fmt.Sprintf("map translations %s-%s", lo, hi), mapTranslationsTask(cfg, lo, hi), partitionLinksID{})
		}
	}

	for pair := range pairKeys {
		l1, l2 := pair[0], pair[1]
		lo, hi := canonicalPair(l1, l2)
		g.Add(
			buildCourseID{l1: l1, l2: l2},
			fmt.Sprintf("build course %s-%s", l1, l2),
			buildCourseTask(cfg, l1, l2),
			tokenizeLanguageID{code: l1},
			tokenizeLanguageID{code: l2},
			mapTranslationsID{lo: lo, hi: hi},
		)
	}

	return g.Execute(ctx, workers)
}

func decompressLinksTask(cfg Config) scheduler.Func {
	return func(ctx context.Context) error {
		src := filepath.Join(cfg.tatoebaDir(), "links.csv.gz")
		dest := filepath.Join(cfg.tatoebaDir(), "links.csv")
		outdated, err := scheduler.IsOutdated([]string{dest}, []string{src})
		if err != nil || !outdated {
			return err
		}
		return archive.Decompress(src, dest)
	}
}

func decompressSentencesTask(cfg Config) scheduler.Func {
	return func(ctx context.Context) error {
		src := filepath.Join(cfg.tatoebaDir(), "sentences.csv.gz")
		dest := filepath.Join(cfg.tatoebaDir(), "sentences.csv")
		outdated, err := scheduler.IsOutdated([]string{dest}, []string{src})
		if err != nil || !outdated {
			return err
		}
		return archive.Decompress(src, dest)
	}
}

func prepareSentencesTask(cfg Config) scheduler.Func {
	return func(ctx context.Context) error {
		src := filepath.Join(cfg.tatoebaDir(), "sentences.csv")
		dest := cfg.sentencesDir()
		outdated, err := scheduler.IsOutdated([]string{dest}, []string{src})
		if err != nil || !outdated {
			return err
		}
		return tatoeba.PartitionSentences(src, dest)
	}
}

func partitionLinksTask(cfg Config) scheduler.Func {
	return func(ctx context.Context) error {
		sentences := filepath.Join(cfg.tatoebaDir(), "sentences.csv")
		links := filepath.Join(cfg.tatoebaDir(), "links.csv")
		dest := cfg.linksDir()
		outdated, err := scheduler.IsOutdated([]string{dest}, []string{sentences, links})
		if err != nil || !outdated {
			return err
		}
		return course.PartitionLinks(sentences, links, dest)
	}
}

func tokenizeLanguageTask(cfg Config, code string) scheduler.Func {
	return func(ctx context.Context) error {
		lang, err := language.Lookup(code)
		if err != nil {
			return err
		}
		tokenizer, err := cfg.TokenizerFor(code)
		if err != nil {
			return err
		}
		src := filepath.Join(cfg.sentencesDir(), code+".tsv")
		dest := cfg.languageDir(code)
		outdated, err := scheduler.IsOutdated([]string{dest}, []string{src})
		if err != nil || !outdated {
			return err
		}
		return language.ProcessLanguage(tokenizer, lang, src, dest)
	}
}

// mapTranslationsTask is intentionally thin: the actual per-pair link file
// is produced once, for every pair at once, by partitionLinksTask. This
// node exists so the task graph has a stable per-pair identity that
// buildCourseTask can depend on, and so a pair whose link file never
// materialized (e.g. the two languages never co-occur in any link) is
// reported as a missing input rather than silently proceeding.
func mapTranslationsTask(cfg Config, lo, hi string) scheduler.Func {
	return func(ctx context.Context) error {
		path := filepath.Join(cfg.linksDir(), lo+"-"+hi+".csv")
		if _, err := os.Stat(path); err != nil {
			return &scheduler.ErrMissingInput{Path: path}
		}
		return nil
	}
}

func buildCourseTask(cfg Config, l1, l2 string) scheduler.Func {
	return func(ctx context.Context) error {
		lo, hi := canonicalPair(l1, l2)
		reversed := l2 == hi

		l1Dir := cfg.languageDir(l1)
		l2Dir := cfg.languageDir(l2)
		translationsCSV := filepath.Join(cfg.linksDir(), lo+"-"+hi+".csv")
		dest := cfg.coursePath(l1, l2)

		sources := []string{
			filepath.Join(l1Dir, "sentences.csv"),
			filepath.Join(l1Dir, "words.csv"),
			filepath.Join(l2Dir, "sentences.csv"),
			filepath.Join(l2Dir, "words.csv"),
			translationsCSV,
		}
		outdated, err := scheduler.IsOutdated([]string{dest}, sources)
		if err != nil || !outdated {
			return err
		}

		tmpDir, err := os.MkdirTemp("", "coursebuild-difficulty-pair")
		if err != nil {
			return err
		}
		defer os.RemoveAll(tmpDir)

		words, err := difficulty.LoadWords(filepath.Join(l2Dir, "words.csv"))
		if err != nil {
			return err
		}
		if _, err := difficulty.Compute(words, filepath.Join(l2Dir, "sentences.csv"), translationsCSV, reversed, tmpDir); err != nil {
			return err
		}

		return course.Build(course.Inputs{
			L1Code:          l1,
			L2Code:          l2,
			TranslationsCSV: translationsCSV,
			Reversed:        reversed,
			SentencesDB:     filepath.Join(tmpDir, "sentences.db"),
			WordsDB:         filepath.Join(tmpDir, "words.db"),
			L1SentencesTSV:  filepath.Join(cfg.tatoebaDir(), "sentences.csv"),
			MigrationsFS:    cfg.MigrationsFS,
			MigrationsDir:   cfg.MigrationsDir,
		}, dest)
	}
}
