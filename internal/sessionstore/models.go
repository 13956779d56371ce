// Package sessionstore persists screening sessions: per-level results keyed
// by session id, plus the durable anonymous identity of the device.
package sessionstore

import "time"

// LevelResult is the aggregated outcome of one completed level.
type LevelResult struct {
	TargetText      string    `json:"target_text"`
	TranscribedText string    `json:"transcribed_text"`
	Accuracy        int       `json:"accuracy"`
	CompletedAt     time.Time `json:"completed_at"`
}

// Session accumulates level results over one screening run.
type Session struct {
	SessionID    string              `json:"session_id"`
	LevelResults map[int]LevelResult `json:"level_results"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (s *Session) Clone() *Session {
	out := &Session{
		SessionID:    s.SessionID,
		LevelResults: make(map[int]LevelResult, len(s.LevelResults)),
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
	for level, res := range s.LevelResults {
		out.LevelResults[level] = res
	}
	return out
}
