package transcribers

import (
	"context"

	"literacy-screening-platform/backend/internal/analysisservice"
)

// Adapter is the interface to a speech-to-text vendor. The primary adapter is
// the analysis service itself (its /analyze-audio endpoint); direct vendor
// adapters exist for deployments where the analysis service delegates
// transcription to the orchestrator.
//
// The returned TranscriptionResult carries the raw transcript and word-level
// timing; normalization happens later in the pipeline, never inside an
// adapter.
type Adapter interface {
	// Transcribe converts a finalized audio blob into text with word timings.
	// targetText is a recognition hint; adapters that cannot use it ignore it.
	Transcribe(ctx context.Context, audio []byte, filename, targetText string) (*analysisservice.TranscriptionResult, error)

	// Name identifies the adapter in logs and configuration.
	Name() string
}
