package scorecalculator

import (
	"math"
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// Word verdict labels as returned by the comparison service.
const (
	LabelCorrect          = "correct"
	LabelError            = "error"
	LabelMispronunciation = "mispronunciation"
)

// WordVerdict is the per-word comparison outcome for one spoken attempt.
type WordVerdict struct {
	TargetWord string `json:"target_word"`
	SpokenWord string `json:"spoken_word"`
	Label      string `json:"label"`
}

// ItemScore is the reduction of a verdict list for a single assessment item.
type ItemScore struct {
	AccuracyPercent int `json:"accuracy_percent"`
	ErrorCount      int `json:"error_count"`
	TotalWords      int `json:"total_words"`
}

// Score reduces an ordered verdict list into an accuracy percentage and an
// error count. A mispronunciation is distinguished visually by the client but
// counts against accuracy: only LabelCorrect earns credit. An empty verdict
// list scores 0.
func Score(verdicts []WordVerdict) ItemScore {
	total := len(verdicts)
	if total == 0 {
		return ItemScore{}
	}

	correct := 0
	for _, v := range verdicts {
		if v.Label == LabelCorrect {
			correct++
		}
	}

	return ItemScore{
		AccuracyPercent: int(math.Round(100 * float64(correct) / float64(total))),
		ErrorCount:      total - correct,
		TotalWords:      total,
	}
}

// LevelAverage returns the arithmetic mean of per-item accuracy percentages,
// rounded to the nearest integer. An empty input averages to 0.
func LevelAverage(accuracies []int) int {
	if len(accuracies) == 0 {
		return 0
	}
	sum := 0
	for _, a := range accuracies {
		sum += a
	}
	return int(math.Round(float64(sum) / float64(len(accuracies))))
}

// NegativeErrors returns the subset of verdicts that did not score as correct.
// These are retained per item as evidence for the final report.
func NegativeErrors(verdicts []WordVerdict) []WordVerdict {
	var errs []WordVerdict
	for _, v := range verdicts {
		if v.Label != LabelCorrect {
			errs = append(errs, v)
		}
	}
	return errs
}

// WordDistance computes the word-level Levenshtein edit distance between a
// target and a spoken text. It is a diagnostic carried alongside the verdict
// scoring, not an input to it.
func WordDistance(targetText, spokenText string) int {
	targetWords := strings.Fields(targetText)
	spokenWords := strings.Fields(spokenText)

	// The levenshtein package operates on rune slices, so each distinct word
	// is encoded as its own rune before measuring.
	symbols := make(map[string]rune, len(targetWords)+len(spokenWords))
	encode := func(words []string) []rune {
		runes := make([]rune, len(words))
		for i, w := range words {
			r, ok := symbols[w]
			if !ok {
				r = rune(len(symbols) + 1)
				symbols[w] = r
			}
			runes[i] = r
		}
		return runes
	}

	return levenshtein.DistanceForStrings(encode(targetWords), encode(spokenWords), levenshtein.DefaultOptionsWithSub)
}
