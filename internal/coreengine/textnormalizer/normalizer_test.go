package textnormalizer

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "The Cat SAT", "the cat sat"},
		{"strips punctuation", "the cat, sat. on #the (mat)!", "the cat sat on the mat"},
		{"collapses spaces", "the   cat  sat", "the cat sat"},
		{"trims", "  the cat sat  ", "the cat sat"},
		{"tabs and newlines", "the\tcat\nsat", "the cat sat"},
		{"hyphen and underscore", "well-known snake_case", "wellknown snakecase"},
		{"empty", "", ""},
		{"only punctuation", ".,!;:", ""},
		{"keeps apostrophes and question marks", "don't stop? yes", "don't stop? yes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"The quick, brown fox!",
		"  MIXED   Case -- here  ",
		"",
		"already normal",
		"zog pleet brimpf",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}

func TestNormalizeWords(t *testing.T) {
	in := []string{" The", "cat,", "SAT."}
	want := []string{"the", "cat", "sat"}
	got := NormalizeWords(in)
	if len(got) != len(want) {
		t.Fatalf("NormalizeWords returned %d words, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("word %d: got %q, want %q", i, got[i], want[i])
		}
	}
}
