// Package language is the external-collaborator contract for per-language
// alphabets and tokenizers (spec.md §6). It is deliberately small: the
// tokenizer itself is out of scope (an external library's job), but the
// registry of supported languages and the alphabet-based word classifier
// are simple enough to carry here, grounded on the original project's
// language.py/alphabet.py.
package language

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// Language describes one supported language: its human name, BCP-47 tag,
// and the character sets used by the word classifier.
type Language struct {
	Code    string
	Name    string
	Native  string
	BCP47   string
	Alphabet map[rune]struct{}
	Symbols  map[rune]struct{}
	// Ranges, when non-empty, restrict words to code points falling in at
	// least one of these inclusive [Lo, Hi] ranges instead of using
	// Alphabet/Symbols. Neither the teacher nor the original project needs
	// this for its five languages, but the contract in spec.md §6 requires
	// it to be expressible.
	Ranges []unicode.RangeTable
}

func charset(s string) map[rune]struct{} {
	m := make(map[rune]struct{}, utf8.RuneCountInString(s))
	for _, r := range s {
		m[r] = struct{}{}
	}
	return m
}

// Registry is the fixed set of languages this build supports, matching the
// five languages carried by the original project (language.py, metadata.py):
// Cuyonon, German, English, Spanish, Tagalog.
var Registry = map[string]*Language{
	"cyo": {
		Code: "cyo", Name: "Cuyonon", Native: "Cuyonon", BCP47: "cyo",
		Alphabet: charset("abdeghiklmnoprstwy'"),
	},
	"deu": {
		Code: "deu", Name: "German", Native: "Deutsch", BCP47: "de",
		Alphabet: charset("abcdefghijklmnopqrstuvwxyzäéöüß"),
		Symbols:  charset("-.'"),
	},
	"eng": {
		Code: "eng", Name: "English", Native: "English", BCP47: "en",
		Alphabet: charset("abcdefghijklmnopqrstuvwxyz"),
		Symbols:  charset("-.'"),
	},
	"spa": {
		Code: "spa", Name: "Spanish", Native: "Español", BCP47: "es",
		Alphabet: charset("abcdefghijklmnñopqrstuvwxyzáéíóúü"),
		Symbols:  charset("-."),
	},
	"tgl": {
		Code: "tgl", Name: "Tagalog", Native: "Tagalog", BCP47: "tl",
		Alphabet: charset("abcdefghijklmnñopqrstuvwxyzáàâéèêëíìîóòôúùû"),
		Symbols:  charset("-.'"),
	},
}

// ErrUnsupportedLanguage is returned by Lookup for an unknown code.
type ErrUnsupportedLanguage string

func (e ErrUnsupportedLanguage) Error() string {
	return fmt.Sprintf("unsupported language: %q", string(e))
}

// Lookup returns the registered Language for code, or
// ErrUnsupportedLanguage.
func Lookup(code string) (*Language, error) {
	lang, ok := Registry[code]
	if !ok {
		return nil, ErrUnsupportedLanguage(code)
	}
	return lang, nil
}

// IsWord is the pure predicate external collaborator described in spec.md
// §6: when Ranges is non-empty, word must consist only of characters
// falling inside at least one range; otherwise the first character must be
// in Alphabet, and every subsequent character in Alphabet ∪ Symbols.
func IsWord(lang *Language, word string) bool {
	word = foldLower(word)
	if word == "" {
		return false
	}
	if len(lang.Ranges) > 0 {
		for _, r := range word {
			if !inAnyRange(r, lang.Ranges) {
				return false
			}
		}
		return true
	}

	runes := []rune(word)
	if !inSet(runes[0], lang.Alphabet) {
		return false
	}
	for _, r := range runes[1:] {
		if !inSet(r, lang.Alphabet) && !inSet(r, lang.Symbols) {
			return false
		}
	}
	return true
}

func inSet(r rune, set map[rune]struct{}) bool {
	if set == nil {
		return false
	}
	_, ok := set[r]
	return ok
}

func inAnyRange(r rune, ranges []unicode.RangeTable) bool {
	for i := range ranges {
		if unicode.Is(&ranges[i], r) {
			return true
		}
	}
	return false
}

func foldLower(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		out = append(out, unicode.ToLower(r))
	}
	return string(out)
}

// Tokenizer is the external tokenizer collaborator's contract: given a
// sentence, return its ordered token strings. Whitespace is preserved as
// its own token when the tokenizer indicates whitespace-after, matching
// the original project's tokenizer.py, which interleaves " " tokens
// between words.
type Tokenizer interface {
	Tokenize(sentence string) ([]string, error)
}
