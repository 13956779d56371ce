package screeningengine

import (
	"context"
	"fmt"
	"log"

	"literacy-screening-platform/backend/internal/analysisservice"
	"literacy-screening-platform/backend/internal/coreengine/scorecalculator"
	"literacy-screening-platform/backend/internal/coreengine/textnormalizer"
)

// Comparator is the boundary to the external word-comparison capability.
// analysisservice.Client satisfies it.
type Comparator interface {
	Compare(ctx context.Context, req analysisservice.CompareRequest) (*analysisservice.CompareResponse, error)
}

// ItemResult is the complete scored outcome for a single assessment item.
// All text fields are normalized. It is produced once per item and folded
// into the level aggregate by the level controller.
type ItemResult struct {
	TargetText      string                          `json:"target_text"`
	TranscribedText string                          `json:"transcribed_text"`
	WordTimestamps  []analysisservice.WordTimestamp `json:"word_timestamps"`
	Verdicts        []scorecalculator.WordVerdict   `json:"word_status"`
	NegativeErrors  []scorecalculator.WordVerdict   `json:"negative_errors,omitempty"`
	AccuracyPercent int                             `json:"accuracy_percent"`
	ErrorCount      int                             `json:"error_count"`
	Distance        int                             `json:"distance"`
}

// Engine runs the normalize → compare → score pipeline for one item. The
// three steps execute strictly in that order; a comparison failure aborts the
// item with no partial result.
type Engine struct {
	comparator Comparator
}

// New creates an Engine backed by the given comparator.
func New(comparator Comparator) *Engine {
	return &Engine{comparator: comparator}
}

// EvaluateItem normalizes the target text and the transcription output,
// obtains word verdicts from the comparator, and reduces them to an
// ItemResult.
func (e *Engine) EvaluateItem(ctx context.Context, targetText string, tr analysisservice.TranscriptionResult) (*ItemResult, error) {
	normTarget := textnormalizer.Normalize(targetText)
	normTranscript := textnormalizer.Normalize(tr.TranscribedText)

	// Timestamps keep their timing but carry normalized word text, so the
	// comparator can align them against the normalized transcript.
	normTimestamps := make([]analysisservice.WordTimestamp, len(tr.WordTimestamps))
	for i, ts := range tr.WordTimestamps {
		normTimestamps[i] = analysisservice.WordTimestamp{
			Word:  textnormalizer.Normalize(ts.Word),
			Start: ts.Start,
			End:   ts.End,
		}
	}

	compareResp, err := e.comparator.Compare(ctx, analysisservice.CompareRequest{
		TargetText:      normTarget,
		TranscribedText: normTranscript,
		WordTimestamps:  normTimestamps,
	})
	if err != nil {
		return nil, fmt.Errorf("evaluate item: %w", err)
	}

	score := scorecalculator.Score(compareResp.WordStatus)
	result := &ItemResult{
		TargetText:      normTarget,
		TranscribedText: normTranscript,
		WordTimestamps:  normTimestamps,
		Verdicts:        compareResp.WordStatus,
		NegativeErrors:  scorecalculator.NegativeErrors(compareResp.WordStatus),
		AccuracyPercent: score.AccuracyPercent,
		ErrorCount:      score.ErrorCount,
		Distance:        scorecalculator.WordDistance(normTarget, normTranscript),
	}

	log.Printf("ScreeningEngine: item scored %d%% (%d errors, distance %d) for target %q",
		result.AccuracyPercent, result.ErrorCount, result.Distance, normTarget)
	return result, nil
}
