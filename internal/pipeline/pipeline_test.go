package pipeline

import (
	"testing"
)

func TestCanonicalPairOrdersLexicographically(t *testing.T) {
	lo, hi := canonicalPair("spa", "eng")
	if lo != "eng" || hi != "spa" {
		t.Errorf("canonicalPair(spa, eng) = %s, %s, want eng, spa", lo, hi)
	}

	lo, hi = canonicalPair("eng", "spa")
	if lo != "eng" || hi != "spa" {
		t.Errorf("canonicalPair(eng, spa) = %s, %s, want eng, spa", lo, hi)
	}
}

func TestConfigPathsFollowDirectoryConventions(t *testing.T) {
	cfg := Config{Root: "/build"}

	if got, want := cfg.tatoebaDir(), "/build/tatoeba"; got != want {
		t.Errorf("tatoebaDir() = %q, want %q", got, want)
	}
	if got, want := cfg.languageDir("eng"), "/build/languages/eng"; got != want {
		t.Errorf("languageDir(eng) = %q, want %q", got, want)
	}
	if got, want := cfg.linksDir(), "/build/links"; got != want {
		t.Errorf("linksDir() = %q, want %q", got, want)
	}
	if got, want := cfg.coursePath("eng", "spa"), "/build/courses/eng-spa.db"; got != want {
		t.Errorf("coursePath(eng, spa) = %q, want %q", got, want)
	}
}
