package textnormalizer

import "strings"

// punctuation is the fixed set stripped before any text comparison. It must
// match what the analysis service strips on its side, otherwise target and
// transcribed words stop lining up.
const punctuation = ".,/#!$%^&*;:{}=-_`~()"

// Normalize canonicalizes a text string so that target text and transcribed
// text are comparable: lower-case, strip the fixed punctuation set, collapse
// runs of spaces to a single space, and trim leading/trailing whitespace.
//
// Normalize is idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(punctuation, r) {
			continue
		}
		b.WriteRune(r)
	}
	s = b.String()

	// Collapse whitespace runs. strings.Fields also handles tabs/newlines that
	// sneak in from transcription output.
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeWords returns a copy of words with Normalize applied to each
// element. Empty results (words that were pure punctuation) are kept so the
// slice stays index-aligned with its timestamp list.
func NormalizeWords(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = Normalize(w)
	}
	return out
}
