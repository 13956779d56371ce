// Package workflowgate decides whether a completed level advances or is
// retested. The gate is deliberately fail-open: the screening must never
// strand a child on a level because the evaluation backend is down.
package workflowgate

import (
	"context"
	"log"
	"strings"
	"sync"

	"literacy-screening-platform/backend/internal/analysisservice"
)

// Action is the gate's verdict for a completed level.
type Action int

const (
	// Advance moves the session to the next level.
	Advance Action = iota
	// Retest repeats the current level from its first item.
	Retest
)

func (a Action) String() string {
	if a == Retest {
		return "Retest"
	}
	return "Advance"
}

// maxRetests caps how often the same level may be repeated in one session.
const maxRetests = 2

// Decision is the outcome of gating one completed level.
type Decision struct {
	Action    Action
	NextLevel int
	Message   string
}

// Evaluator is the subset of the analysis client the gate needs.
type Evaluator interface {
	EvaluateLevel(ctx context.Context, req analysisservice.LevelEvaluateRequest) (*analysisservice.LevelEvaluateResponse, error)
}

// Gate tracks retest counts per session and level. Safe for concurrent use.
type Gate struct {
	evaluator Evaluator

	mu      sync.Mutex
	retests map[string]map[int]int // sessionID -> level -> count
}

func New(evaluator Evaluator) *Gate {
	return &Gate{
		evaluator: evaluator,
		retests:   make(map[string]map[int]int),
	}
}

// Decide submits a completed level for evaluation and maps the verdict to an
// action. Exactly one network attempt is made; on any evaluation error the
// level is locally assumed passed so the session keeps moving. A level that
// has already been retested maxRetests times advances regardless of verdict.
func (g *Gate) Decide(ctx context.Context, sessionID string, level int, payload analysisservice.LevelEvaluateRequest) Decision {
	resp, err := g.evaluator.EvaluateLevel(ctx, payload)
	if err != nil {
		log.Printf("WorkflowGate: level %d evaluation unavailable, assuming pass: %v", level, err)
		return Decision{Action: Advance, NextLevel: level + 1}
	}

	if !strings.EqualFold(resp.Status, analysisservice.StatusRetest) {
		next := resp.NextLevel
		if next <= level {
			next = level + 1
		}
		return Decision{Action: Advance, NextLevel: next, Message: resp.Message}
	}

	if g.bumpRetest(sessionID, level) > maxRetests {
		log.Printf("WorkflowGate: level %d hit the retest cap for session %s, advancing", level, sessionID)
		return Decision{Action: Advance, NextLevel: level + 1, Message: resp.Message}
	}
	return Decision{Action: Retest, NextLevel: level, Message: resp.Message}
}

// Forget drops the retest bookkeeping for a finished session.
func (g *Gate) Forget(sessionID string) {
	g.mu.Lock()
	delete(g.retests, sessionID)
	g.mu.Unlock()
}

func (g *Gate) bumpRetest(sessionID string, level int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	byLevel, ok := g.retests[sessionID]
	if !ok {
		byLevel = make(map[int]int)
		g.retests[sessionID] = byLevel
	}
	byLevel[level]++
	return byLevel[level]
}
