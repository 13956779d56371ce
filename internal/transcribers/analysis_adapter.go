package transcribers

import (
	"context"

	"literacy-screening-platform/backend/internal/analysisservice"
)

// AnalysisAdapter transcribes through the analysis service's /analyze-audio
// endpoint. This is the default and the only adapter that also echoes the
// target text back, matching the service contract.
type AnalysisAdapter struct {
	Client *analysisservice.Client
}

// NewAnalysisAdapter wraps an analysis service client as an Adapter.
func NewAnalysisAdapter(client *analysisservice.Client) *AnalysisAdapter {
	return &AnalysisAdapter{Client: client}
}

func (a *AnalysisAdapter) Name() string { return "AnalysisService" }

func (a *AnalysisAdapter) Transcribe(ctx context.Context, audio []byte, filename, targetText string) (*analysisservice.TranscriptionResult, error) {
	return a.Client.AnalyzeAudio(ctx, audio, filename, targetText)
}
