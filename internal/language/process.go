package language

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/xerrors"

	"github.com/distr1/coursebuild/internal/model"
)

// ProcessLanguage reads a partitioned per-language sentences file
// (id, text; no header, produced by tatoeba.PartitionSentences), tokenizes
// every line with tokenizer, and writes outDir/sentences.csv and
// outDir/words.csv. Tokens that fail the language's word classifier are
// logged to outDir/nonwords.txt rather than rejected outright — they may
// still be legitimate punctuation the Difficulty Engine's numeric/length
// heuristic will accept later. Grounded on the original project's
// tokenizer.py (Tokenizer, WordCounter, write_sentences, write_words).
func ProcessLanguage(tokenizer Tokenizer, lang *Language, inputPath, outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	in, err := os.Open(inputPath)
	if err != nil {
		return xerrors.Errorf("opening %s: %w", inputPath, err)
	}
	defer in.Close()

	sentencesFile, err := os.Create(filepath.Join(outDir, "sentences.csv"))
	if err != nil {
		return err
	}
	defer sentencesFile.Close()
	sentencesWriter := csv.NewWriter(sentencesFile)
	if err := sentencesWriter.Write([]string{"tatoeba_id", "text", "tokens"}); err != nil {
		return err
	}

	counts := make(map[string]int64)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		cols := strings.SplitN(line, "\t", 2)
		if len(cols) != 2 {
			return xerrors.Errorf("malformed sentence row %q in %s", line, inputPath)
		}
		id, err := strconv.ParseInt(cols[0], 10, 64)
		if err != nil {
			return err
		}
		text := cols[1]

		tokens, err := tokenizer.Tokenize(text)
		if err != nil {
			return xerrors.Errorf("tokenizing sentence %d: %w", id, err)
		}
		for _, tok := range tokens {
			counts[model.Canonicalize(tok)]++
		}

		tokensJSON, err := json.Marshal(tokens)
		if err != nil {
			return err
		}
		if err := sentencesWriter.Write([]string{strconv.FormatInt(id, 10), text, string(tokensJSON)}); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return xerrors.Errorf("reading %s: %w", inputPath, err)
	}
	sentencesWriter.Flush()
	if err := sentencesWriter.Error(); err != nil {
		return err
	}

	return writeWords(outDir, lang, counts)
}

func writeWords(outDir string, lang *Language, counts map[string]int64) error {
	wordsFile, err := os.Create(filepath.Join(outDir, "words.csv"))
	if err != nil {
		return err
	}
	defer wordsFile.Close()
	wordsWriter := csv.NewWriter(wordsFile)
	if err := wordsWriter.Write([]string{"word", "frequency", "frequency_class"}); err != nil {
		return err
	}

	logFile, err := os.Create(filepath.Join(outDir, "nonwords.txt"))
	if err != nil {
		return err
	}
	defer logFile.Close()

	type wordCount struct {
		word  string
		count int64
	}
	var words []wordCount
	var maxFrequency int64
	for word, count := range counts {
		if !IsWord(lang, word) {
			if _, err := logFile.WriteString(word + "\n"); err != nil {
				return err
			}
			continue
		}
		words = append(words, wordCount{word: word, count: count})
		if count > maxFrequency {
			maxFrequency = count
		}
	}
	sort.Slice(words, func(i, j int) bool {
		if words[i].count != words[j].count {
			return words[i].count > words[j].count
		}
		return words[i].word < words[j].word
	})

	for _, w := range words {
		frequencyClass := model.FrequencyClass(w.count, maxFrequency)
		if err := wordsWriter.Write([]string{
			w.word,
			strconv.FormatInt(w.count, 10),
			strconv.FormatInt(int64(frequencyClass), 10),
		}); err != nil {
			return err
		}
	}
	wordsWriter.Flush()
	return wordsWriter.Error()
}
