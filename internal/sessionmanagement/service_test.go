package sessionmanagement

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"literacy-screening-platform/backend/internal/analysisservice"
	"literacy-screening-platform/backend/internal/contentsource"
	"literacy-screening-platform/backend/internal/coreengine/levelcontroller"
	"literacy-screening-platform/backend/internal/coreengine/scorecalculator"
	"literacy-screening-platform/backend/internal/coreengine/screeningengine"
	"literacy-screening-platform/backend/internal/sessionstore"
	"literacy-screening-platform/backend/internal/transcribers"
	"literacy-screening-platform/backend/internal/workflowgate"
)

type stubProvider struct {
	itemsByLevel map[int][]string
	err          error
}

func (p *stubProvider) ItemsForLevel(_ context.Context, level int) (*contentsource.LevelItems, error) {
	if p.err != nil {
		return nil, p.err
	}
	items, ok := p.itemsByLevel[level]
	if !ok {
		return nil, fmt.Errorf("no items for level %d", level)
	}
	return &contentsource.LevelItems{Level: level, Items: items}, nil
}

// echoComparator marks every target word correct.
type echoComparator struct{}

func (echoComparator) Compare(_ context.Context, req analysisservice.CompareRequest) (*analysisservice.CompareResponse, error) {
	var verdicts []scorecalculator.WordVerdict
	for _, w := range strings.Fields(req.TargetText) {
		verdicts = append(verdicts, scorecalculator.WordVerdict{
			TargetWord: w, SpokenWord: w, Label: scorecalculator.LabelCorrect,
		})
	}
	return &analysisservice.CompareResponse{WordStatus: verdicts}, nil
}

type stubGateEvaluator struct {
	statuses []string // consumed in order; empty means always PASS
	err      error
	calls    int
}

func (s *stubGateEvaluator) EvaluateLevel(_ context.Context, req analysisservice.LevelEvaluateRequest) (*analysisservice.LevelEvaluateResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	status := analysisservice.StatusPass
	if len(s.statuses) > 0 {
		status = s.statuses[0]
		s.statuses = s.statuses[1:]
	}
	return &analysisservice.LevelEvaluateResponse{Status: status, NextLevel: req.Level + 1}, nil
}

type stubReporter struct {
	report  analysisservice.Report
	err     error
	lastReq analysisservice.FullEvaluateRequest
}

func (s *stubReporter) EvaluateFull(_ context.Context, req analysisservice.FullEvaluateRequest) (analysisservice.Report, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return s.report, nil
}

func defaultItems() map[int][]string {
	return map[int][]string{
		1: {"the cat sat.", "a dog ran.", "the sun is up."},
		2: {"cat hat", "dog log", "sun fun"},
		3: {"red blue green yellow"},
		4: {"zog", "pleet"},
	}
}

func newTestService(t *testing.T, gateEval *stubGateEvaluator, reporter *stubReporter) *Service {
	t.Helper()
	svc, err := NewService(Config{
		Provider:    &stubProvider{itemsByLevel: defaultItems()},
		Transcriber: &transcribers.MockAdapter{},
		Engine:      screeningengine.New(echoComparator{}),
		Gate:        workflowgate.New(gateEval),
		Store:       sessionstore.NewMemoryStore(),
		Reporter:    reporter,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func submitLevelItems(t *testing.T, svc *Service, sessionID string, count int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < count; i++ {
		outcome, err := svc.SubmitItem(ctx, sessionID, "capture.webm", []byte("audio"))
		if err != nil {
			t.Fatalf("SubmitItem %d: %v", i, err)
		}
		if wantDone := i == count-1; outcome.LevelCompleted != wantDone {
			t.Fatalf("item %d: LevelCompleted = %v, want %v", i, outcome.LevelCompleted, wantDone)
		}
	}
}

func TestFullScreeningRun(t *testing.T) {
	gateEval := &stubGateEvaluator{}
	reporter := &stubReporter{report: analysisservice.Report(`{"risk":"low"}`)}
	svc := newTestService(t, gateEval, reporter)
	ctx := context.Background()

	state, err := svc.StartSession(ctx)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if state.Level != 1 || state.ItemCount != 3 {
		t.Fatalf("initial state = %+v", state)
	}

	itemCounts := map[int]int{1: 3, 2: 3, 3: 1, 4: 2}
	for level := 1; level <= 4; level++ {
		submitLevelItems(t, svc, state.SessionID, itemCounts[level])
		outcome, err := svc.CompleteLevel(ctx, state.SessionID)
		if err != nil {
			t.Fatalf("CompleteLevel %d: %v", level, err)
		}
		if outcome.Action != "Advance" {
			t.Fatalf("level %d action = %s", level, outcome.Action)
		}
		if outcome.AverageAccuracy != 100 {
			t.Errorf("level %d average = %d, want 100", level, outcome.AverageAccuracy)
		}
		if level < 4 {
			if outcome.NextLevel != level+1 {
				t.Errorf("level %d NextLevel = %d", level, outcome.NextLevel)
			}
		} else if !outcome.AllComplete {
			t.Error("level 4 outcome did not mark screening complete")
		}
	}
	if gateEval.calls != 4 {
		t.Errorf("gate evaluator called %d times, want 4 (one per level)", gateEval.calls)
	}

	report, err := svc.FinishSession(ctx, state.SessionID)
	if err != nil {
		t.Fatalf("FinishSession: %v", err)
	}
	if string(report) != `{"risk":"low"}` {
		t.Errorf("report = %s", report)
	}
	if len(reporter.lastReq.Levels) != 4 {
		t.Errorf("full evaluation got %d levels, want 4", len(reporter.lastReq.Levels))
	}
	// Nonsense level aggregates both words.
	if got := reporter.lastReq.Levels[4].TargetText; got != "zog pleet" {
		t.Errorf("level 4 submitted target = %q, want %q", got, "zog pleet")
	}
}

func TestRetestResetsLevel(t *testing.T) {
	gateEval := &stubGateEvaluator{statuses: []string{analysisservice.StatusRetest}}
	svc := newTestService(t, gateEval, &stubReporter{report: analysisservice.Report(`{}`)})
	ctx := context.Background()

	state, err := svc.StartSession(ctx)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	submitLevelItems(t, svc, state.SessionID, 3)

	outcome, err := svc.CompleteLevel(ctx, state.SessionID)
	if err != nil {
		t.Fatalf("CompleteLevel: %v", err)
	}
	if outcome.Action != "Retest" {
		t.Fatalf("action = %s, want Retest", outcome.Action)
	}

	// The level restarts from item 0 with its results discarded.
	snap, err := svc.State(state.SessionID)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if snap.Level != 1 || snap.ItemIndex != 0 || snap.LevelDone {
		t.Fatalf("state after retest = %+v", snap)
	}

	// Re-running the level all the way through now passes.
	submitLevelItems(t, svc, state.SessionID, 3)
	outcome, err = svc.CompleteLevel(ctx, state.SessionID)
	if err != nil {
		t.Fatalf("CompleteLevel after retest: %v", err)
	}
	if outcome.Action != "Advance" || outcome.NextLevel != 2 {
		t.Fatalf("outcome after retest = %+v", outcome)
	}
}

func TestGateFailureIsFailOpen(t *testing.T) {
	gateEval := &stubGateEvaluator{err: errors.New("evaluation down")}
	svc := newTestService(t, gateEval, &stubReporter{report: analysisservice.Report(`{}`)})
	ctx := context.Background()

	state, _ := svc.StartSession(ctx)
	submitLevelItems(t, svc, state.SessionID, 3)

	outcome, err := svc.CompleteLevel(ctx, state.SessionID)
	if err != nil {
		t.Fatalf("CompleteLevel: %v", err)
	}
	if outcome.Action != "Advance" || outcome.NextLevel != 2 {
		t.Fatalf("gate failure must advance: %+v", outcome)
	}
	if gateEval.calls != 1 {
		t.Errorf("gate evaluator called %d times, want exactly 1", gateEval.calls)
	}
}

func TestReportFailureIsFailClosed(t *testing.T) {
	reporter := &stubReporter{err: fmt.Errorf("%w: boom", analysisservice.ErrReportService)}
	svc := newTestService(t, &stubGateEvaluator{}, reporter)
	ctx := context.Background()

	state, _ := svc.StartSession(ctx)
	for _, count := range []int{3, 3, 1, 2} {
		submitLevelItems(t, svc, state.SessionID, count)
		if _, err := svc.CompleteLevel(ctx, state.SessionID); err != nil {
			t.Fatalf("CompleteLevel: %v", err)
		}
	}

	if _, err := svc.FinishSession(ctx, state.SessionID); !errors.Is(err, analysisservice.ErrReportService) {
		t.Fatalf("FinishSession err = %v, want ErrReportService (no synthetic report)", err)
	}

	// The session stays finishable: a later attempt with a healthy service
	// succeeds.
	reporter.err = nil
	reporter.report = analysisservice.Report(`{"risk":"medium"}`)
	report, err := svc.FinishSession(ctx, state.SessionID)
	if err != nil {
		t.Fatalf("retry FinishSession: %v", err)
	}
	if string(report) != `{"risk":"medium"}` {
		t.Errorf("report = %s", report)
	}
}

func TestCompleteLevelRequiresAllItems(t *testing.T) {
	svc := newTestService(t, &stubGateEvaluator{}, &stubReporter{})
	ctx := context.Background()

	state, _ := svc.StartSession(ctx)
	if _, err := svc.CompleteLevel(ctx, state.SessionID); !errors.Is(err, ErrLevelIncomplete) {
		t.Errorf("CompleteLevel with no items: err = %v, want ErrLevelIncomplete", err)
	}

	if _, err := svc.SubmitItem(ctx, state.SessionID, "a.webm", []byte("audio")); err != nil {
		t.Fatalf("SubmitItem: %v", err)
	}
	if _, err := svc.CompleteLevel(ctx, state.SessionID); !errors.Is(err, ErrLevelIncomplete) {
		t.Errorf("CompleteLevel mid-level: err = %v, want ErrLevelIncomplete", err)
	}
}

func TestSubmitAfterLevelCompleteRejected(t *testing.T) {
	svc := newTestService(t, &stubGateEvaluator{}, &stubReporter{})
	ctx := context.Background()

	state, _ := svc.StartSession(ctx)
	submitLevelItems(t, svc, state.SessionID, 3)

	if _, err := svc.SubmitItem(ctx, state.SessionID, "x.webm", []byte("audio")); !errors.Is(err, ErrAwaitingGate) {
		t.Errorf("SubmitItem on completed level: err = %v, want ErrAwaitingGate", err)
	}
}

func TestFinishBeforeCompleteRejected(t *testing.T) {
	svc := newTestService(t, &stubGateEvaluator{}, &stubReporter{})
	ctx := context.Background()

	state, _ := svc.StartSession(ctx)
	if _, err := svc.FinishSession(ctx, state.SessionID); !errors.Is(err, ErrScreeningOngoing) {
		t.Errorf("FinishSession mid-screening: err = %v, want ErrScreeningOngoing", err)
	}
}

func TestUnknownSession(t *testing.T) {
	svc := newTestService(t, &stubGateEvaluator{}, &stubReporter{})
	ctx := context.Background()

	if _, err := svc.SubmitItem(ctx, "nope", "a.webm", []byte("x")); !errors.Is(err, ErrUnknownSession) {
		t.Errorf("SubmitItem: err = %v, want ErrUnknownSession", err)
	}
	if _, err := svc.CompleteLevel(ctx, "nope"); !errors.Is(err, ErrUnknownSession) {
		t.Errorf("CompleteLevel: err = %v, want ErrUnknownSession", err)
	}
	if _, err := svc.FinishSession(ctx, "nope"); !errors.Is(err, ErrUnknownSession) {
		t.Errorf("FinishSession: err = %v, want ErrUnknownSession", err)
	}
}

func TestFailedItemLeavesIndexUnchanged(t *testing.T) {
	svc, err := NewService(Config{
		Provider:    &stubProvider{itemsByLevel: defaultItems()},
		Transcriber: &transcribers.MockAdapter{Vendor: "Mock-Error"},
		Engine:      screeningengine.New(echoComparator{}),
		Gate:        workflowgate.New(&stubGateEvaluator{}),
		Store:       sessionstore.NewMemoryStore(),
		Reporter:    &stubReporter{},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	ctx := context.Background()

	state, _ := svc.StartSession(ctx)
	if _, err := svc.SubmitItem(ctx, state.SessionID, "a.webm", []byte("audio")); !errors.Is(err, analysisservice.ErrTranscriptionService) {
		t.Fatalf("SubmitItem err = %v, want ErrTranscriptionService", err)
	}

	snap, _ := svc.State(state.SessionID)
	if snap.ItemIndex != 0 {
		t.Errorf("ItemIndex after failed item = %d, want 0 (re-attempt same item)", snap.ItemIndex)
	}
	if snap.TargetText != defaultItems()[levelcontroller.LevelReading][0] {
		t.Errorf("TargetText = %q, want first reading item", snap.TargetText)
	}
}

func TestItemsFetchFailureRecovers(t *testing.T) {
	provider := &stubProvider{itemsByLevel: defaultItems()}
	svc, err := NewService(Config{
		Provider:    provider,
		Transcriber: &transcribers.MockAdapter{},
		Engine:      screeningengine.New(echoComparator{}),
		Gate:        workflowgate.New(&stubGateEvaluator{}),
		Store:       sessionstore.NewMemoryStore(),
		Reporter:    &stubReporter{},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	ctx := context.Background()

	state, _ := svc.StartSession(ctx)
	submitLevelItems(t, svc, state.SessionID, 3)

	// Content source goes down just as level 1 passes: the pass is still
	// recorded, and the level 2 item load is deferred.
	provider.err = errors.New("content down")
	outcome, err := svc.CompleteLevel(ctx, state.SessionID)
	if err != nil {
		t.Fatalf("CompleteLevel: %v", err)
	}
	if outcome.NextLevel != 2 || outcome.NextTarget != "" {
		t.Fatalf("outcome with content down = %+v", outcome)
	}

	if _, err := svc.SubmitItem(ctx, state.SessionID, "a.webm", []byte("audio")); !errors.Is(err, ErrItemsUnavailable) {
		t.Fatalf("SubmitItem err = %v, want ErrItemsUnavailable", err)
	}

	// Once the content source recovers, the next submit proceeds on level 2.
	provider.err = nil
	got, err := svc.SubmitItem(ctx, state.SessionID, "a.webm", []byte("audio"))
	if err != nil {
		t.Fatalf("SubmitItem after recovery: %v", err)
	}
	if got.TargetText != "cat hat" {
		t.Errorf("TargetText = %q, want first rhyme pair", got.TargetText)
	}
}

func TestScoreArithmetic(t *testing.T) {
	// One wrong word out of three: 67% accuracy, 1 error.
	comparator := comparatorFunc(func(_ context.Context, req analysisservice.CompareRequest) (*analysisservice.CompareResponse, error) {
		words := strings.Fields(req.TargetText)
		verdicts := make([]scorecalculator.WordVerdict, len(words))
		for i, w := range words {
			label := scorecalculator.LabelCorrect
			if i == 0 {
				label = scorecalculator.LabelError
			}
			verdicts[i] = scorecalculator.WordVerdict{TargetWord: w, SpokenWord: w, Label: label}
		}
		return &analysisservice.CompareResponse{WordStatus: verdicts}, nil
	})

	svc, err := NewService(Config{
		Provider:    &stubProvider{itemsByLevel: map[int][]string{1: {"one two three"}}},
		Transcriber: &transcribers.MockAdapter{},
		Engine:      screeningengine.New(comparator),
		Gate:        workflowgate.New(&stubGateEvaluator{}),
		Store:       sessionstore.NewMemoryStore(),
		Reporter:    &stubReporter{},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	ctx := context.Background()

	state, _ := svc.StartSession(ctx)
	outcome, err := svc.SubmitItem(ctx, state.SessionID, "a.webm", []byte("audio"))
	if err != nil {
		t.Fatalf("SubmitItem: %v", err)
	}
	if outcome.AccuracyPercent != 67 {
		t.Errorf("AccuracyPercent = %d, want 67", outcome.AccuracyPercent)
	}
	if outcome.ErrorCount != 1 {
		t.Errorf("ErrorCount = %d, want 1", outcome.ErrorCount)
	}
}

// capturingTranscriber records the blob it is given and transcribes the
// target text verbatim.
type capturingTranscriber struct {
	audio []byte
}

func (c *capturingTranscriber) Name() string { return "Capturing" }

func (c *capturingTranscriber) Transcribe(_ context.Context, audio []byte, _, targetText string) (*analysisservice.TranscriptionResult, error) {
	c.audio = append([]byte(nil), audio...)
	return &analysisservice.TranscriptionResult{
		TargetText:      targetText,
		TranscribedText: targetText,
	}, nil
}

func TestSubmitItemDeliversAudioIntact(t *testing.T) {
	transcriber := &capturingTranscriber{}
	svc, err := NewService(Config{
		Provider:    &stubProvider{itemsByLevel: defaultItems()},
		Transcriber: transcriber,
		Engine:      screeningengine.New(echoComparator{}),
		Gate:        workflowgate.New(&stubGateEvaluator{}),
		Store:       sessionstore.NewMemoryStore(),
		Reporter:    &stubReporter{},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	ctx := context.Background()

	blob := []byte("\x1aE\xdf\xa3webm-capture-bytes")
	state, _ := svc.StartSession(ctx)
	if _, err := svc.SubmitItem(ctx, state.SessionID, "capture.webm", blob); err != nil {
		t.Fatalf("SubmitItem: %v", err)
	}
	if !bytes.Equal(transcriber.audio, blob) {
		t.Errorf("transcriber received %q, want %q", transcriber.audio, blob)
	}
}

type comparatorFunc func(context.Context, analysisservice.CompareRequest) (*analysisservice.CompareResponse, error)

func (f comparatorFunc) Compare(ctx context.Context, req analysisservice.CompareRequest) (*analysisservice.CompareResponse, error) {
	return f(ctx, req)
}
