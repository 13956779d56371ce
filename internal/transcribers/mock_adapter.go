package transcribers

import (
	"context"
	"fmt"
	"strings"

	"literacy-screening-platform/backend/internal/analysisservice"
)

// MockAdapter is a canned transcriber used in tests and local development
// without a live service. It "transcribes" the target text itself, word
// timestamps included, so every item scores 100%. A MockAdapter named
// "Mock-Error" fails every call instead.
type MockAdapter struct {
	Vendor string
}

func (m *MockAdapter) Name() string {
	if m.Vendor != "" {
		return m.Vendor
	}
	return "Mock"
}

func (m *MockAdapter) Transcribe(_ context.Context, audio []byte, filename, targetText string) (*analysisservice.TranscriptionResult, error) {
	if m.Vendor == "Mock-Error" {
		return nil, fmt.Errorf("%w: simulated transcription failure for %s", analysisservice.ErrTranscriptionService, filename)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: empty audio blob for %s", analysisservice.ErrTranscriptionService, filename)
	}

	words := strings.Fields(targetText)
	timestamps := make([]analysisservice.WordTimestamp, len(words))
	for i, w := range words {
		timestamps[i] = analysisservice.WordTimestamp{
			Word:  w,
			Start: float64(i) * 0.5,
			End:   float64(i)*0.5 + 0.4,
		}
	}
	return &analysisservice.TranscriptionResult{
		TargetText:      targetText,
		TranscribedText: targetText,
		WordTimestamps:  timestamps,
	}, nil
}
