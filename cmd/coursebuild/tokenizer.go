package main

import (
	"regexp"

	"github.com/distr1/coursebuild/internal/language"
)

// wordOrGap splits a sentence into runs of letters/digits/apostrophes and
// runs of everything else (whitespace and punctuation), interleaved in
// order — matching the token/whitespace interleaving contract documented
// on language.Tokenizer. Real deployments should inject a proper NLP
// tokenizer (spaCy-backed in the original project); this is the minimal
// default wired into the CLI so the binary runs standalone.
var wordOrGap = regexp.MustCompile(`[\pL\pN']+|[^\pL\pN']+`)

type defaultTokenizer struct{}

func (defaultTokenizer) Tokenize(sentence string) ([]string, error) {
	return wordOrGap.FindAllString(sentence, -1), nil
}

func tokenizerFor(code string) (language.Tokenizer, error) {
	if _, err := language.Lookup(code); err != nil {
		return nil, err
	}
	return defaultTokenizer{}, nil
}
