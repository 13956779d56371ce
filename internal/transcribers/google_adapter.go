package transcribers

import (
	"context"
	"fmt"
	"log"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"

	"literacy-screening-platform/backend/internal/analysisservice"
)

// GoogleAdapter transcribes through Google Cloud Speech-to-Text. Word time
// offsets are requested so the pipeline gets the same timing data the
// analysis service would produce.
type GoogleAdapter struct {
	// CredentialsFile is an optional path to a service account key. When
	// empty, GOOGLE_APPLICATION_CREDENTIALS is used implicitly by the client
	// library.
	CredentialsFile string
}

// NewGoogleAdapter creates a GoogleAdapter.
func NewGoogleAdapter(credentialsFile string) *GoogleAdapter {
	return &GoogleAdapter{CredentialsFile: credentialsFile}
}

func (a *GoogleAdapter) Name() string { return "GoogleCloudSpeech" }

func (a *GoogleAdapter) Transcribe(ctx context.Context, audio []byte, filename, targetText string) (*analysisservice.TranscriptionResult, error) {
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: empty audio blob", analysisservice.ErrTranscriptionService)
	}

	var opts []option.ClientOption
	if a.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(a.CredentialsFile))
	}
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: create Google Speech client: %v", analysisservice.ErrTranscriptionService, err)
	}
	defer client.Close()

	// Browser captures arrive as webm/opus at 48kHz; wav test fixtures as
	// LINEAR16 at 16kHz.
	encoding := speechpb.RecognitionConfig_WEBM_OPUS
	sampleRate := int32(48000)
	if strings.HasSuffix(strings.ToLower(filename), ".wav") {
		encoding = speechpb.RecognitionConfig_LINEAR16
		sampleRate = 16000
	}

	req := &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:              encoding,
			SampleRateHertz:       sampleRate,
			LanguageCode:          "en-US",
			EnableWordTimeOffsets: true,
			SpeechContexts: []*speechpb.SpeechContext{
				{Phrases: strings.Fields(targetText)},
			},
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	}

	resp, err := client.Recognize(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: Google Speech recognition failed: %v", analysisservice.ErrTranscriptionService, err)
	}

	var transcript strings.Builder
	var timestamps []analysisservice.WordTimestamp
	for _, result := range resp.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		alt := result.Alternatives[0]
		if transcript.Len() > 0 {
			transcript.WriteString(" ")
		}
		transcript.WriteString(alt.Transcript)
		for _, w := range alt.Words {
			timestamps = append(timestamps, analysisservice.WordTimestamp{
				Word:  w.Word,
				Start: w.StartTime.AsDuration().Seconds(),
				End:   w.EndTime.AsDuration().Seconds(),
			})
		}
	}

	text := strings.TrimSpace(transcript.String())
	log.Printf("GoogleAdapter: transcribed %q into %d chars, %d timed words", filename, len(text), len(timestamps))
	return &analysisservice.TranscriptionResult{
		TargetText:      targetText,
		TranscribedText: text,
		WordTimestamps:  timestamps,
	}, nil
}
