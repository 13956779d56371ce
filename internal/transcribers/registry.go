package transcribers

import (
	"log"

	"literacy-screening-platform/backend/internal/analysisservice"
)

// Registry selects a transcription adapter by configured vendor name. The
// analysis service is always the fallback so a misconfigured vendor name
// never leaves the pipeline without a transcriber.
type Registry struct {
	analysisClient  *analysisservice.Client
	deepgramAPIKey  string
	googleCredsFile string
}

// NewRegistry creates a Registry. analysisClient must be non-nil; vendor
// credentials may be empty, in which case the matching adapters are
// unavailable.
func NewRegistry(analysisClient *analysisservice.Client, deepgramAPIKey, googleCredsFile string) *Registry {
	return &Registry{
		analysisClient:  analysisClient,
		deepgramAPIKey:  deepgramAPIKey,
		googleCredsFile: googleCredsFile,
	}
}

// Get returns the adapter for the given vendor name. Unknown names, and
// vendors whose credentials are missing, fall back to the analysis service.
func (r *Registry) Get(vendor string) Adapter {
	switch vendor {
	case "AnalysisService", "":
		return NewAnalysisAdapter(r.analysisClient)
	case "Deepgram":
		if r.deepgramAPIKey == "" {
			log.Printf("TranscriberRegistry: Deepgram selected but DEEPGRAM_API_KEY is empty, falling back to analysis service")
			return NewAnalysisAdapter(r.analysisClient)
		}
		return NewDeepgramAdapter(r.deepgramAPIKey)
	case "GoogleCloudSpeech":
		return NewGoogleAdapter(r.googleCredsFile)
	case "Mock", "Mock-Error":
		return &MockAdapter{Vendor: vendor}
	default:
		log.Printf("TranscriberRegistry: unknown vendor %q, falling back to analysis service", vendor)
		return NewAnalysisAdapter(r.analysisClient)
	}
}
