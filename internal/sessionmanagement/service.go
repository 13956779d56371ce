// Package sessionmanagement orchestrates a screening run: session lifecycle,
// per-item capture submissions, level gating and the final report.
package sessionmanagement

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"literacy-screening-platform/backend/internal/analysisservice"
	"literacy-screening-platform/backend/internal/audiointake"
	"literacy-screening-platform/backend/internal/contentsource"
	"literacy-screening-platform/backend/internal/coreengine/levelcontroller"
	"literacy-screening-platform/backend/internal/coreengine/scorecalculator"
	"literacy-screening-platform/backend/internal/coreengine/screeningengine"
	"literacy-screening-platform/backend/internal/objectstore"
	"literacy-screening-platform/backend/internal/recorder"
	"literacy-screening-platform/backend/internal/sessionstore"
	"literacy-screening-platform/backend/internal/transcribers"
	"literacy-screening-platform/backend/internal/workflowgate"
)

var (
	ErrUnknownSession    = errors.New("unknown screening session")
	ErrLevelIncomplete   = errors.New("level has unattempted items")
	ErrAwaitingGate      = errors.New("level completed, awaiting evaluation")
	ErrScreeningComplete = errors.New("all levels completed")
	ErrScreeningOngoing  = errors.New("screening has levels remaining")
	ErrItemsUnavailable  = errors.New("level items unavailable")
)

// ItemProvider supplies each level's ordered item sequence.
type ItemProvider interface {
	ItemsForLevel(ctx context.Context, level int) (*contentsource.LevelItems, error)
}

// Reporter is the full-evaluation boundary that produces the final report.
type Reporter interface {
	EvaluateFull(ctx context.Context, req analysisservice.FullEvaluateRequest) (analysisservice.Report, error)
}

// Config assembles a Service's collaborators. Archive and Identity are
// optional.
type Config struct {
	Provider    ItemProvider
	Transcriber transcribers.Adapter
	Engine      *screeningengine.Engine
	Gate        *workflowgate.Gate
	Store       sessionstore.Store
	Reporter    Reporter
	Archive     *objectstore.RecordingArchive
	Identity    *sessionstore.Identity
}

// Service runs screening sessions. All mutation of one session is serialized
// on the session's own lock; the service lock only guards the registry.
type Service struct {
	provider    ItemProvider
	transcriber transcribers.Adapter
	engine      *screeningengine.Engine
	gate        *workflowgate.Gate
	store       sessionstore.Store
	reporter    Reporter
	archive     *objectstore.RecordingArchive
	identity    *sessionstore.Identity

	mu       sync.Mutex
	sessions map[string]*runningSession
}

type runningSession struct {
	mu         sync.Mutex
	id         string
	userID     string
	controller *levelcontroller.Controller
	grid       [][]string
	// nextLevel is set when a level advanced but the next controller could
	// not be built yet (content fetch failed). 0 means no pending load.
	nextLevel int
	complete  bool // all four levels saved, report not yet produced
	finished  bool // report delivered
}

func NewService(cfg Config) (*Service, error) {
	if cfg.Provider == nil || cfg.Transcriber == nil || cfg.Engine == nil ||
		cfg.Gate == nil || cfg.Store == nil || cfg.Reporter == nil {
		return nil, errors.New("sessionmanagement: provider, transcriber, engine, gate, store and reporter are all required")
	}
	return &Service{
		provider:    cfg.Provider,
		transcriber: cfg.Transcriber,
		engine:      cfg.Engine,
		gate:        cfg.Gate,
		store:       cfg.Store,
		reporter:    cfg.Reporter,
		archive:     cfg.Archive,
		identity:    cfg.Identity,
		sessions:    make(map[string]*runningSession),
	}, nil
}

// SessionState is a snapshot of where a session stands.
type SessionState struct {
	SessionID   string     `json:"session_id"`
	UserID      string     `json:"user_id"`
	Level       int        `json:"level"`
	LevelName   string     `json:"level_name"`
	ItemIndex   int        `json:"item_index"`
	ItemCount   int        `json:"item_count"`
	TargetText  string     `json:"target_text"`
	Grid        [][]string `json:"grid,omitempty"`
	LevelDone   bool       `json:"level_done"`
	AllComplete bool       `json:"all_complete"`
}

// ItemOutcome is the scored result of one submitted item.
type ItemOutcome struct {
	ItemIndex       int                             `json:"item_index"`
	TargetText      string                          `json:"target_text"`
	TranscribedText string                          `json:"transcribed_text"`
	AccuracyPercent int                             `json:"accuracy_percent"`
	ErrorCount      int                             `json:"error_count"`
	WordStatus      []scorecalculator.WordVerdict   `json:"word_status"`
	WordTimestamps  []analysisservice.WordTimestamp `json:"word_timestamps"`
	LevelCompleted  bool                            `json:"level_completed"`
	NextTarget      string                          `json:"next_target,omitempty"`
}

// LevelOutcome is the gate's verdict for a completed level.
type LevelOutcome struct {
	Level           int        `json:"level"`
	LevelName       string     `json:"level_name"`
	AverageAccuracy int        `json:"average_accuracy"`
	MeetsThreshold  bool       `json:"meets_threshold"`
	Action          string     `json:"action"`
	Message         string     `json:"message,omitempty"`
	NextLevel       int        `json:"next_level,omitempty"`
	NextLevelName   string     `json:"next_level_name,omitempty"`
	NextTarget      string     `json:"next_target,omitempty"`
	Grid            [][]string `json:"grid,omitempty"`
	AllComplete     bool       `json:"all_complete"`
}

// StartSession creates a session positioned at the first reading item.
func (s *Service) StartSession(ctx context.Context) (*SessionState, error) {
	userID := ""
	if s.identity != nil {
		id, err := s.identity.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load device identity: %w", err)
		}
		userID = id
	}
	if userID == "" {
		userID = uuid.NewString()
	}

	items, err := s.provider.ItemsForLevel(ctx, levelcontroller.LevelReading)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrItemsUnavailable, err)
	}
	controller, err := levelcontroller.New(levelcontroller.LevelReading, items.Items)
	if err != nil {
		return nil, err
	}

	rs := &runningSession{
		id:         uuid.NewString(),
		userID:     userID,
		controller: controller,
		grid:       items.Grid,
	}
	s.mu.Lock()
	s.sessions[rs.id] = rs
	s.mu.Unlock()

	log.Printf("Session %s started for user %s (%d reading items).", rs.id, userID, controller.ItemCount())
	return rs.snapshot(), nil
}

// State returns the current snapshot of a session.
func (s *Service) State(sessionID string) (*SessionState, error) {
	rs, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.snapshotLocked(), nil
}

// SubmitItem runs one captured audio blob through the recorder pipeline for
// the session's current item. On success the controller moves to the next
// item; on failure it stays put so the child can re-attempt.
func (s *Service) SubmitItem(ctx context.Context, sessionID, filename string, audio []byte) (*ItemOutcome, error) {
	rs, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.complete || rs.finished {
		return nil, ErrScreeningComplete
	}
	if err := s.ensureControllerLocked(ctx, rs); err != nil {
		return nil, err
	}
	if rs.controller.Completed() {
		return nil, ErrAwaitingGate
	}

	itemIndex := rs.controller.CurrentIndex()
	target := rs.controller.CurrentTarget()

	var archive recorder.ArchiveFunc
	if s.archive != nil {
		level := rs.controller.Level()
		archive = func(ctx context.Context, blob []byte) {
			if _, err := s.archive.PutRecording(ctx, rs.id, level, itemIndex, filename, blob); err != nil {
				log.Printf("Session %s: failed to archive recording for level %d item %d: %v", rs.id, level, itemIndex, err)
			}
		}
	}

	rec, err := recorder.New(recorder.Config{
		Source:      audiointake.NewBufferSource(audio),
		Transcriber: s.transcriber,
		Engine:      s.engine,
		TargetText:  target,
		Filename:    filename,
		Archive:     archive,
	})
	if err != nil {
		return nil, err
	}
	if err := rec.Start(ctx); err != nil {
		return nil, err
	}
	result, err := rec.Stop(ctx)
	if err != nil {
		return nil, err
	}

	rs.controller.OnItemResult(result)
	if err := rs.controller.Advance(); err != nil {
		return nil, err
	}

	outcome := &ItemOutcome{
		ItemIndex:       itemIndex,
		TargetText:      result.TargetText,
		TranscribedText: result.TranscribedText,
		AccuracyPercent: result.AccuracyPercent,
		ErrorCount:      result.ErrorCount,
		WordStatus:      result.Verdicts,
		WordTimestamps:  result.WordTimestamps,
		LevelCompleted:  rs.controller.Completed(),
	}
	if !rs.controller.Completed() {
		outcome.NextTarget = rs.controller.CurrentTarget()
	}
	return outcome, nil
}

// CompleteLevel submits the completed level to the evaluation gate. A RETEST
// verdict resets the level to item 0; otherwise the level result is saved and
// the session moves to the next level (or, after level 4, becomes ready for
// the final report).
func (s *Service) CompleteLevel(ctx context.Context, sessionID string) (*LevelOutcome, error) {
	rs, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.complete || rs.finished {
		return nil, ErrScreeningComplete
	}
	if rs.controller == nil || !rs.controller.Completed() {
		return nil, ErrLevelIncomplete
	}

	payload, err := rs.controller.SubmissionPayload()
	if err != nil {
		return nil, err
	}
	level := rs.controller.Level()
	avg := rs.controller.AverageAccuracy()

	decision := s.gate.Decide(ctx, rs.id, level, analysisservice.LevelEvaluateRequest{
		UserID:          rs.userID,
		Level:           level,
		TargetText:      payload.TargetText,
		TranscribedText: payload.TranscribedText,
		WordTimestamps:  payload.WordTimestamps,
	})

	outcome := &LevelOutcome{
		Level:           level,
		LevelName:       levelcontroller.LevelName(level),
		AverageAccuracy: avg,
		MeetsThreshold:  rs.controller.MeetsPassThreshold(),
		Action:          decision.Action.String(),
		Message:         decision.Message,
	}

	if decision.Action == workflowgate.Retest {
		rs.controller.Reset()
		log.Printf("Session %s: level %d ordered to retest.", rs.id, level)
		return outcome, nil
	}

	result := sessionstore.LevelResult{
		TargetText:      payload.TargetText,
		TranscribedText: payload.TranscribedText,
		Accuracy:        avg,
	}
	if err := s.store.SaveLevelData(ctx, rs.id, level, result); err != nil {
		return nil, fmt.Errorf("failed to save level %d result: %w", level, err)
	}

	if level == levelcontroller.LevelNonsenseWords {
		rs.controller = nil
		rs.complete = true
		outcome.AllComplete = true
		log.Printf("Session %s: all levels complete, ready for report.", rs.id)
		return outcome, nil
	}

	next := level + 1
	rs.controller = nil
	rs.nextLevel = next
	outcome.NextLevel = next
	outcome.NextLevelName = levelcontroller.LevelName(next)

	// Load the next level's items eagerly; a failure here leaves the load
	// pending and the next SubmitItem retries it.
	if err := s.ensureControllerLocked(ctx, rs); err != nil {
		log.Printf("Session %s: level %d items not yet available: %v", rs.id, next, err)
		return outcome, nil
	}
	outcome.NextTarget = rs.controller.CurrentTarget()
	outcome.Grid = rs.grid
	return outcome, nil
}

// FinishSession triggers the full evaluation once all four levels are saved.
// Report failures surface to the caller; no fallback report is synthesized.
func (s *Service) FinishSession(ctx context.Context, sessionID string) (analysisservice.Report, error) {
	rs, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.complete && !rs.finished {
		return nil, ErrScreeningOngoing
	}

	sess, err := s.store.Get(ctx, rs.id)
	if err != nil {
		return nil, fmt.Errorf("failed to load session results: %w", err)
	}
	levels := make(map[int]analysisservice.LevelSubmission, len(sess.LevelResults))
	for level, res := range sess.LevelResults {
		levels[level] = analysisservice.LevelSubmission{
			TargetText:      res.TargetText,
			TranscribedText: res.TranscribedText,
			Accuracy:        res.Accuracy,
		}
	}

	report, err := s.reporter.EvaluateFull(ctx, analysisservice.FullEvaluateRequest{
		UserID: rs.userID,
		Levels: levels,
	})
	if err != nil {
		return nil, err
	}

	rs.finished = true
	s.gate.Forget(rs.id)
	log.Printf("Session %s: report produced.", rs.id)
	return report, nil
}

// ListSessions returns all stored sessions, for the admin surface.
func (s *Service) ListSessions(ctx context.Context) ([]*sessionstore.Session, error) {
	return s.store.List(ctx)
}

func (s *Service) lookup(sessionID string) (*runningSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	return rs, nil
}

// ensureControllerLocked builds the controller for a pending level. Callers
// hold rs.mu.
func (s *Service) ensureControllerLocked(ctx context.Context, rs *runningSession) error {
	if rs.controller != nil {
		return nil
	}
	if rs.nextLevel == 0 {
		return ErrScreeningComplete
	}
	items, err := s.provider.ItemsForLevel(ctx, rs.nextLevel)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrItemsUnavailable, err)
	}
	controller, err := levelcontroller.New(rs.nextLevel, items.Items)
	if err != nil {
		return err
	}
	rs.controller = controller
	rs.grid = items.Grid
	rs.nextLevel = 0
	return nil
}

func (rs *runningSession) snapshot() *SessionState {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.snapshotLocked()
}

func (rs *runningSession) snapshotLocked() *SessionState {
	state := &SessionState{
		SessionID:   rs.id,
		UserID:      rs.userID,
		AllComplete: rs.complete || rs.finished,
	}
	if rs.controller != nil {
		state.Level = rs.controller.Level()
		state.LevelName = levelcontroller.LevelName(state.Level)
		state.ItemIndex = rs.controller.CurrentIndex()
		state.ItemCount = rs.controller.ItemCount()
		state.LevelDone = rs.controller.Completed()
		if !state.LevelDone {
			state.TargetText = rs.controller.CurrentTarget()
		}
		state.Grid = rs.grid
	} else if rs.nextLevel != 0 {
		state.Level = rs.nextLevel
		state.LevelName = levelcontroller.LevelName(rs.nextLevel)
	}
	return state
}
