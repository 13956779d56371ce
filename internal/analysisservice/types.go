package analysisservice

import (
	"encoding/json"

	"literacy-screening-platform/backend/internal/coreengine/scorecalculator"
)

// WordTimestamp is the approximate word timing reported by the transcription
// capability. Units are seconds. The core passes these through untouched
// apart from normalizing the word text.
type WordTimestamp struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// StoryResponse is the payload of GET /dyslexia/story.
type StoryResponse struct {
	Story string `json:"story"`
}

// TranscriptionResult is the payload of POST /analyze-audio.
type TranscriptionResult struct {
	TargetText      string          `json:"target_text"`
	TranscribedText string          `json:"transcribed_text"`
	WordTimestamps  []WordTimestamp `json:"word_timestamps"`
}

// CompareRequest is the payload sent to POST /dyslexia/compare. All text
// fields must already be normalized; the comparator is never given raw input.
type CompareRequest struct {
	TargetText      string          `json:"target_text"`
	TranscribedText string          `json:"transcribed_text"`
	WordTimestamps  []WordTimestamp `json:"word_timestamps"`
}

// CompareResponse is the word-by-word verdict list returned by the comparator.
// Distance is the comparator's own word-level edit distance, kept as a
// cross-check against the locally computed one.
type CompareResponse struct {
	TargetText      string                        `json:"target_text"`
	TranscribedText string                        `json:"transcribed_text"`
	Distance        int                           `json:"distance"`
	WordStatus      []scorecalculator.WordVerdict `json:"word_status"`
}

// RhymesResponse is the payload of GET /dyslexia/rhymes.
type RhymesResponse struct {
	Rhymes []string `json:"rhymes"`
}

// RANGridResponse is the payload of GET /dyslexia/ran: a color grid for
// display and the space-joined target utterance for scoring.
type RANGridResponse struct {
	Grid       [][]string `json:"grid"`
	TargetText string     `json:"target_text"`
}

// NonsenseResponse is the payload of GET /dyslexia/nonsense. Words is a
// single space-separated string.
type NonsenseResponse struct {
	Words string `json:"words"`
}

// Level evaluation statuses returned by POST /dyslexia/level-evaluate.
const (
	StatusPass   = "PASS"
	StatusRetest = "RETEST"
)

// LevelEvaluateRequest is the payload sent to POST /dyslexia/level-evaluate.
type LevelEvaluateRequest struct {
	UserID          string          `json:"user_id"`
	Level           int             `json:"level"`
	TargetText      string          `json:"target_text"`
	TranscribedText string          `json:"transcribed_text"`
	WordTimestamps  []WordTimestamp `json:"word_timestamps"`
}

// LevelEvaluateResponse is the verdict for one completed level.
type LevelEvaluateResponse struct {
	Status    string `json:"status"`
	NextLevel int    `json:"next_level"`
	Message   string `json:"message,omitempty"`
}

// LevelSubmission is one level's contribution to the full evaluation.
type LevelSubmission struct {
	TargetText      string `json:"target_text"`
	TranscribedText string `json:"transcribed_text"`
	Accuracy        int    `json:"accuracy"`
}

// FullEvaluateRequest is the payload sent to POST /dyslexia/full-evaluate.
type FullEvaluateRequest struct {
	UserID string                  `json:"user_id"`
	Levels map[int]LevelSubmission `json:"levels"`
}

// Report is the structured report returned by the full evaluation. Its shape
// is owned by the analysis service; the core forwards it opaquely.
type Report = json.RawMessage
