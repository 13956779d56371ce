package levelcontroller

import (
	"errors"
	"fmt"
	"strings"

	"literacy-screening-platform/backend/internal/analysisservice"
	"literacy-screening-platform/backend/internal/coreengine/scorecalculator"
	"literacy-screening-platform/backend/internal/coreengine/screeningengine"
)

// The four fixed assessment levels, in progression order. No level may be
// skipped and the order never changes.
const (
	LevelReading       = 1
	LevelRhyme         = 2
	LevelRapidNaming   = 3
	LevelNonsenseWords = 4
)

// LevelName returns the display name for a level number.
func LevelName(level int) string {
	switch level {
	case LevelReading:
		return "Reading"
	case LevelRhyme:
		return "Rhyme"
	case LevelRapidNaming:
		return "RapidNaming"
	case LevelNonsenseWords:
		return "NonsenseWords"
	default:
		return "Unknown"
	}
}

// passThreshold is the level average above which reading and rapid-naming
// proceed without a forced retry. Rhyme and nonsense-word levels submit
// unconditionally once all items are attempted; that asymmetry is existing
// behavior and is kept as-is.
const passThreshold = 40

var (
	ErrNoItems        = errors.New("level has no items")
	ErrNotCompleted   = errors.New("level is not completed")
	ErrNoCurrentItem  = errors.New("no result stored for current item")
	ErrAlreadyDone    = errors.New("level already completed")
	ErrMissingResults = errors.New("level completed with missing item results")
)

// SubmissionPayload is the representative text pair a completed level submits
// to the evaluation gate.
type SubmissionPayload struct {
	TargetText      string                          `json:"target_text"`
	TranscribedText string                          `json:"transcribed_text"`
	WordTimestamps  []analysisservice.WordTimestamp `json:"word_timestamps"`
}

// Controller steps through one level's ordered item sequence, accumulating
// per-item results. It moves strictly forward: items cannot be skipped and
// the child cannot go back. Controller is not safe for concurrent use; the
// session service serializes access per session.
type Controller struct {
	level     int
	items     []string
	current   int
	results   map[int]*screeningengine.ItemResult
	completed bool
}

// New creates a Controller for the given level over its ordered item target
// texts.
func New(level int, items []string) (*Controller, error) {
	if level < LevelReading || level > LevelNonsenseWords {
		return nil, fmt.Errorf("invalid level %d", level)
	}
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	return &Controller{
		level:   level,
		items:   items,
		results: make(map[int]*screeningengine.ItemResult),
	}, nil
}

// Level returns the level number this controller drives.
func (c *Controller) Level() int { return c.level }

// ItemCount returns the number of items in the sequence.
func (c *Controller) ItemCount() int { return len(c.items) }

// CurrentIndex returns the zero-based index of the item being attempted.
func (c *Controller) CurrentIndex() int { return c.current }

// CurrentTarget returns the target text of the current item.
func (c *Controller) CurrentTarget() string { return c.items[c.current] }

// Completed reports whether every item has been attempted and advanced past.
func (c *Controller) Completed() bool { return c.completed }

// OnItemResult stores the scored result for the current item. A re-attempt of
// the same item overwrites the previous result.
func (c *Controller) OnItemResult(result *screeningengine.ItemResult) {
	c.results[c.current] = result
}

// Advance moves to the next item, or marks the level completed when the
// current item is the last one. Advancing a completed level is an error.
func (c *Controller) Advance() error {
	if c.completed {
		return ErrAlreadyDone
	}
	if c.current < len(c.items)-1 {
		c.current++
		return nil
	}
	c.completed = true
	return nil
}

// AverageAccuracy returns the rounded mean accuracy across all stored item
// results, 0 when none are stored.
func (c *Controller) AverageAccuracy() int {
	accuracies := make([]int, 0, len(c.results))
	for i := 0; i < len(c.items); i++ {
		if r, ok := c.results[i]; ok {
			accuracies = append(accuracies, r.AccuracyPercent)
		}
	}
	return scorecalculator.LevelAverage(accuracies)
}

// MeetsPassThreshold reports whether the level average is good enough to
// proceed without a forced retry. Only reading and rapid naming enforce the
// threshold.
func (c *Controller) MeetsPassThreshold() bool {
	switch c.level {
	case LevelReading, LevelRapidNaming:
		return c.AverageAccuracy() > passThreshold
	default:
		return true
	}
}

// Reset discards all progress: results cleared, index back to item 0. Used
// when the evaluation gate orders a RETEST.
func (c *Controller) Reset() {
	c.current = 0
	c.completed = false
	c.results = make(map[int]*screeningengine.ItemResult)
}

// SubmissionPayload selects the representative text pair for a completed
// level:
//
//   - Reading and Rhyme submit the last item's target/transcribed text.
//   - Rapid naming has a single utterance, which is submitted directly.
//   - Nonsense words aggregate at the text level: all item targets and all
//     transcripts concatenated in item order.
func (c *Controller) SubmissionPayload() (*SubmissionPayload, error) {
	if !c.completed {
		return nil, ErrNotCompleted
	}

	if c.level == LevelNonsenseWords {
		targets := make([]string, 0, len(c.items))
		transcripts := make([]string, 0, len(c.items))
		var timestamps []analysisservice.WordTimestamp
		for i := 0; i < len(c.items); i++ {
			r, ok := c.results[i]
			if !ok {
				return nil, fmt.Errorf("%w: item %d", ErrMissingResults, i)
			}
			targets = append(targets, r.TargetText)
			transcripts = append(transcripts, r.TranscribedText)
			timestamps = append(timestamps, r.WordTimestamps...)
		}
		return &SubmissionPayload{
			TargetText:      strings.Join(targets, " "),
			TranscribedText: strings.Join(transcripts, " "),
			WordTimestamps:  timestamps,
		}, nil
	}

	// Reading, rhyme and rapid naming sample a single item: the last one,
	// which for rapid naming is also the only one.
	last := len(c.items) - 1
	r, ok := c.results[last]
	if !ok {
		return nil, fmt.Errorf("%w: item %d", ErrMissingResults, last)
	}
	return &SubmissionPayload{
		TargetText:      r.TargetText,
		TranscribedText: r.TranscribedText,
		WordTimestamps:  r.WordTimestamps,
	}, nil
}
