// Package contentsource assembles each level's ordered item sequence from
// the analysis service's content endpoints.
package contentsource

import (
	"context"
	"fmt"
	"strings"

	"literacy-screening-platform/backend/internal/analysisservice"
	"literacy-screening-platform/backend/internal/coreengine/levelcontroller"
)

// Defaults for content requests when the client does not say otherwise.
const (
	defaultDifficulty = "easy"
	defaultAge        = 7

	storySentenceCount = 3
	rhymePairCount     = 3
)

// Fetcher is the subset of the analysis client the provider needs.
type Fetcher interface {
	FetchStory(ctx context.Context, difficulty string, age int) (*analysisservice.StoryResponse, error)
	FetchRhymes(ctx context.Context, level string) (*analysisservice.RhymesResponse, error)
	FetchRANGrid(ctx context.Context) (*analysisservice.RANGridResponse, error)
	FetchNonsenseWords(ctx context.Context) (*analysisservice.NonsenseResponse, error)
}

// LevelItems is one level's ordered target texts, plus the color grid for
// the rapid-naming level so clients can render it.
type LevelItems struct {
	Level     int        `json:"level"`
	LevelName string     `json:"level_name"`
	Items     []string   `json:"items"`
	Grid      [][]string `json:"grid,omitempty"`
}

// Provider builds item sequences per level.
type Provider struct {
	fetcher    Fetcher
	difficulty string
	age        int
}

func NewProvider(fetcher Fetcher) *Provider {
	return &Provider{fetcher: fetcher, difficulty: defaultDifficulty, age: defaultAge}
}

// ItemsForLevel fetches and assembles the ordered item sequence for a level.
func (p *Provider) ItemsForLevel(ctx context.Context, level int) (*LevelItems, error) {
	out := &LevelItems{Level: level, LevelName: levelcontroller.LevelName(level)}

	switch level {
	case levelcontroller.LevelReading:
		story, err := p.fetcher.FetchStory(ctx, p.difficulty, p.age)
		if err != nil {
			return nil, err
		}
		sentences := SplitSentences(story.Story)
		if len(sentences) == 0 {
			return nil, fmt.Errorf("%w: story has no sentences", analysisservice.ErrContentService)
		}
		if len(sentences) > storySentenceCount {
			sentences = sentences[:storySentenceCount]
		}
		out.Items = sentences

	case levelcontroller.LevelRhyme:
		rhymes, err := p.fetcher.FetchRhymes(ctx, p.difficulty)
		if err != nil {
			return nil, err
		}
		pairs := rhymes.Rhymes
		if len(pairs) == 0 {
			return nil, fmt.Errorf("%w: empty rhyme list", analysisservice.ErrContentService)
		}
		if len(pairs) > rhymePairCount {
			pairs = pairs[:rhymePairCount]
		}
		out.Items = pairs

	case levelcontroller.LevelRapidNaming:
		grid, err := p.fetcher.FetchRANGrid(ctx)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(grid.TargetText) == "" {
			return nil, fmt.Errorf("%w: RAN grid has no target text", analysisservice.ErrContentService)
		}
		out.Items = []string{grid.TargetText}
		out.Grid = grid.Grid

	case levelcontroller.LevelNonsenseWords:
		nonsense, err := p.fetcher.FetchNonsenseWords(ctx)
		if err != nil {
			return nil, err
		}
		words := strings.Fields(nonsense.Words)
		if len(words) == 0 {
			return nil, fmt.Errorf("%w: empty nonsense word list", analysisservice.ErrContentService)
		}
		out.Items = words

	default:
		return nil, fmt.Errorf("unknown level %d", level)
	}

	return out, nil
}

// SplitSentences breaks prose on '.', '!' and '?' boundaries, keeping the
// terminator with its sentence.
func SplitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
