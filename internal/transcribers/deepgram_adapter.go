package transcribers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"literacy-screening-platform/backend/internal/analysisservice"
)

const deepgramBaseURL = "https://api.deepgram.com/v1/listen"

// DeepgramAdapter transcribes directly against the Deepgram pre-recorded
// audio API. Deepgram reports per-word start/end offsets, which map onto the
// pipeline's WordTimestamp shape without loss.
type DeepgramAdapter struct {
	APIKey     string
	HTTPClient *http.Client
}

// NewDeepgramAdapter creates a DeepgramAdapter with the given API key.
func NewDeepgramAdapter(apiKey string) *DeepgramAdapter {
	return &DeepgramAdapter{
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (a *DeepgramAdapter) Name() string { return "Deepgram" }

// deepgramResponse covers the fields of the Deepgram response the adapter
// consumes; the real payload is considerably larger.
type deepgramResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
				Words      []struct {
					Word  string  `json:"word"`
					Start float64 `json:"start"`
					End   float64 `json:"end"`
				} `json:"words"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

func (a *DeepgramAdapter) Transcribe(ctx context.Context, audio []byte, filename, targetText string) (*analysisservice.TranscriptionResult, error) {
	if a.APIKey == "" {
		return nil, fmt.Errorf("%w: Deepgram API key is not configured", analysisservice.ErrTranscriptionService)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: empty audio blob", analysisservice.ErrTranscriptionService)
	}

	q := url.Values{}
	q.Set("model", "nova-2")
	q.Set("language", "en")
	q.Set("punctuate", "false")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, deepgramBaseURL+"?"+q.Encode(), bytes.NewReader(audio))
	if err != nil {
		return nil, fmt.Errorf("%w: build Deepgram request: %v", analysisservice.ErrTranscriptionService, err)
	}
	req.Header.Set("Authorization", "Token "+a.APIKey)
	req.Header.Set("Content-Type", contentTypeForAudio(filename))

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: Deepgram request failed: %v", analysisservice.ErrTranscriptionService, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read Deepgram response: %v", analysisservice.ErrTranscriptionService, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: Deepgram returned status %d: %s", analysisservice.ErrTranscriptionService, resp.StatusCode, string(body))
	}

	var dgResp deepgramResponse
	if err := json.Unmarshal(body, &dgResp); err != nil {
		return nil, fmt.Errorf("%w: decode Deepgram response: %v", analysisservice.ErrTranscriptionService, err)
	}
	if len(dgResp.Results.Channels) == 0 || len(dgResp.Results.Channels[0].Alternatives) == 0 {
		return nil, fmt.Errorf("%w: Deepgram returned no transcription alternatives", analysisservice.ErrTranscriptionService)
	}

	alt := dgResp.Results.Channels[0].Alternatives[0]
	timestamps := make([]analysisservice.WordTimestamp, len(alt.Words))
	for i, w := range alt.Words {
		timestamps[i] = analysisservice.WordTimestamp{Word: w.Word, Start: w.Start, End: w.End}
	}

	log.Printf("DeepgramAdapter: transcribed %q (%d words, confidence %.2f)", filename, len(alt.Words), alt.Confidence)
	return &analysisservice.TranscriptionResult{
		TargetText:      targetText,
		TranscribedText: strings.TrimSpace(alt.Transcript),
		WordTimestamps:  timestamps,
	}, nil
}

// contentTypeForAudio infers the MIME type from the file extension, defaulting
// to the webm container browsers produce from MediaRecorder.
func contentTypeForAudio(filename string) string {
	ext := filepath.Ext(filename)
	if ext != "" {
		if ct := mime.TypeByExtension(ext); ct != "" {
			return ct
		}
	}
	switch strings.ToLower(ext) {
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".ogg":
		return "audio/ogg"
	default:
		return "audio/webm"
	}
}
