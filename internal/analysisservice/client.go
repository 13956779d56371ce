package analysisservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Sentinel errors classifying analysis-service failures by capability, so
// callers can apply the per-capability failure policy (fail-open for level
// evaluation, fail-closed for the final report) without string matching.
var (
	ErrContentService       = errors.New("content service failure")
	ErrTranscriptionService = errors.New("transcription service failure")
	ErrComparisonService    = errors.New("comparison service failure")
	ErrEvaluationService    = errors.New("level evaluation service failure")
	ErrReportService        = errors.New("report service failure")
)

// Client calls the external speech analysis service. One Client is shared by
// the whole process; it is safe for concurrent use.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a Client for the given base URL (no trailing slash
// required). The HTTP timeout is generous because audio transcription of a
// full story sentence can take several seconds.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// FetchStory retrieves the reading-level story text.
// GET /dyslexia/story?difficulty=<d>&age=<a>
func (c *Client) FetchStory(ctx context.Context, difficulty string, age int) (*StoryResponse, error) {
	q := url.Values{}
	if difficulty != "" {
		q.Set("difficulty", difficulty)
	}
	if age > 0 {
		q.Set("age", strconv.Itoa(age))
	}
	var resp StoryResponse
	if err := c.getJSON(ctx, "/dyslexia/story", q, &resp); err != nil {
		return nil, fmt.Errorf("%w: fetch story: %v", ErrContentService, err)
	}
	return &resp, nil
}

// FetchRhymes retrieves the rhyme pair strings for the rhyme level.
// GET /dyslexia/rhymes?level=<level>
func (c *Client) FetchRhymes(ctx context.Context, level string) (*RhymesResponse, error) {
	q := url.Values{}
	if level != "" {
		q.Set("level", level)
	}
	var resp RhymesResponse
	if err := c.getJSON(ctx, "/dyslexia/rhymes", q, &resp); err != nil {
		return nil, fmt.Errorf("%w: fetch rhymes: %v", ErrContentService, err)
	}
	return &resp, nil
}

// FetchRANGrid retrieves the rapid-naming color grid and its target text.
// GET /dyslexia/ran
func (c *Client) FetchRANGrid(ctx context.Context) (*RANGridResponse, error) {
	var resp RANGridResponse
	if err := c.getJSON(ctx, "/dyslexia/ran", nil, &resp); err != nil {
		return nil, fmt.Errorf("%w: fetch RAN grid: %v", ErrContentService, err)
	}
	return &resp, nil
}

// FetchNonsenseWords retrieves the nonsense word list.
// GET /dyslexia/nonsense
func (c *Client) FetchNonsenseWords(ctx context.Context) (*NonsenseResponse, error) {
	var resp NonsenseResponse
	if err := c.getJSON(ctx, "/dyslexia/nonsense", nil, &resp); err != nil {
		return nil, fmt.Errorf("%w: fetch nonsense words: %v", ErrContentService, err)
	}
	return &resp, nil
}

// AnalyzeAudio uploads a captured audio blob for transcription.
// POST /analyze-audio, multipart fields: audio_file, target_text.
func (c *Client) AnalyzeAudio(ctx context.Context, audio []byte, filename, targetText string) (*TranscriptionResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("audio_file", filename)
	if err != nil {
		return nil, fmt.Errorf("%w: create multipart file: %v", ErrTranscriptionService, err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, fmt.Errorf("%w: write audio payload: %v", ErrTranscriptionService, err)
	}
	if err := writer.WriteField("target_text", targetText); err != nil {
		return nil, fmt.Errorf("%w: write target_text field: %v", ErrTranscriptionService, err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("%w: finalize multipart body: %v", ErrTranscriptionService, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/analyze-audio", &body)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrTranscriptionService, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var resp TranscriptionResult
	if err := c.do(req, &resp); err != nil {
		return nil, fmt.Errorf("%w: analyze audio: %v", ErrTranscriptionService, err)
	}
	log.Printf("AnalysisClient: transcribed %d bytes of audio into %d chars", len(audio), len(resp.TranscribedText))
	return &resp, nil
}

// Compare submits normalized target and transcribed text for word-by-word
// comparison. POST /dyslexia/compare
func (c *Client) Compare(ctx context.Context, compareReq CompareRequest) (*CompareResponse, error) {
	var resp CompareResponse
	if err := c.postJSON(ctx, "/dyslexia/compare", compareReq, &resp); err != nil {
		return nil, fmt.Errorf("%w: compare text: %v", ErrComparisonService, err)
	}
	return &resp, nil
}

// EvaluateLevel submits a completed level for the backend's PASS/RETEST
// verdict. POST /dyslexia/level-evaluate
func (c *Client) EvaluateLevel(ctx context.Context, evalReq LevelEvaluateRequest) (*LevelEvaluateResponse, error) {
	var resp LevelEvaluateResponse
	if err := c.postJSON(ctx, "/dyslexia/level-evaluate", evalReq, &resp); err != nil {
		return nil, fmt.Errorf("%w: evaluate level %d: %v", ErrEvaluationService, evalReq.Level, err)
	}
	return &resp, nil
}

// EvaluateFull submits all level results for the composite report.
// POST /dyslexia/full-evaluate. The report body is returned opaquely.
func (c *Client) EvaluateFull(ctx context.Context, fullReq FullEvaluateRequest) (Report, error) {
	payload, err := json.Marshal(fullReq)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrReportService, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/dyslexia/full-evaluate", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrReportService, err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: full evaluate: %v", ErrReportService, err)
	}
	defer httpResp.Body.Close()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read report body: %v", ErrReportService, err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: full evaluate returned status %d: %s", ErrReportService, httpResp.StatusCode, truncate(bodyBytes, 200))
	}
	if !json.Valid(bodyBytes) {
		return nil, fmt.Errorf("%w: full evaluate returned invalid JSON", ErrReportService)
	}
	return Report(bodyBytes), nil
}

// getJSON performs a GET against path with optional query values and decodes
// the JSON response into out.
func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out interface{}) error {
	u := c.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

// postJSON performs a POST with a JSON body against path and decodes the JSON
// response into out.
func (c *Client) postJSON(ctx context.Context, path string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(bodyBytes, 200))
	}
	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
