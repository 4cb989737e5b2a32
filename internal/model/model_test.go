package model

import "testing"

func TestCanonicalize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"The", "the"},
		{"­cat", "cat"},
		{"cat­", "cat"},
		{"​sat", "sat"},
		{" the", "the"},
		{"café", "café"},
		{"CAFÉ", "café"},
	}
	for _, c := range cases {
		if got := Canonicalize(c.in); got != c.want {
			t.Errorf("Canonicalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFrequencyClass(t *testing.T) {
	// max_frequency = 100
	cases := []struct {
		freq int64
		want int32
	}{
		{100, 0},
		{50, 1},
		{5, 4},
		{3, 5},
	}
	for _, c := range cases {
		if got := FrequencyClass(c.freq, 100); got != c.want {
			t.Errorf("FrequencyClass(%d, 100) = %d, want %d", c.freq, got, c.want)
		}
	}
}

func TestIsNumeric(t *testing.T) {
	cases := map[string]bool{
		"3":     true,
		"3-1":   true,
		"12:30": true,
		"50%":   true,
		"$5":    true,
		"zebra": false,
		"":      false,
		"a1":    false,
	}
	for in, want := range cases {
		if got := IsNumeric(in); got != want {
			t.Errorf("IsNumeric(%q) = %v, want %v", in, got, want)
		}
	}
}
