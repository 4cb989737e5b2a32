package language

import "testing"

func TestIsWord(t *testing.T) {
	eng := Registry["eng"]
	cases := []struct {
		word string
		want bool
	}{
		{"cat", true},
		{"The", true},
		{"don't", true},
		{"zebra3", false},
		{"3", false},
		{"", false},
	}
	for _, c := range cases {
		if got := IsWord(eng, c.word); got != c.want {
			t.Errorf("IsWord(eng, %q) = %v, want %v", c.word, got, c.want)
		}
	}
}

func TestLookupUnsupported(t *testing.T) {
	if _, err := Lookup("xyz"); err == nil {
		t.Fatal("expected error for unsupported language")
	}
}

func TestRegistryComplete(t *testing.T) {
	want := []string{"cyo", "deu", "eng", "spa", "tgl"}
	for _, code := range want {
		if _, err := Lookup(code); err != nil {
			t.Errorf("Lookup(%q) failed: %v", code, err)
		}
	}
}
