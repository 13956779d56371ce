package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

var (
	// ErrSessionNotFound is returned when no session exists for the id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrLevelOutOfOrder is returned when a level is saved before all prior
	// levels are present. Levels form a strict progression.
	ErrLevelOutOfOrder = errors.New("level saved out of order")
)

// Store persists sessions. SaveLevelData is last-write-wins for a level that
// is already present (a retest overwrites the earlier attempt).
type Store interface {
	SaveLevelData(ctx context.Context, sessionID string, level int, res LevelResult) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	List(ctx context.Context) ([]*Session, error)
}

// checkProgression enforces that saving level n requires levels 1..n-1.
func checkProgression(results map[int]LevelResult, level int) error {
	if level < 1 {
		return fmt.Errorf("%w: level %d is invalid", ErrLevelOutOfOrder, level)
	}
	for prior := 1; prior < level; prior++ {
		if _, ok := results[prior]; !ok {
			return fmt.Errorf("%w: level %d saved before level %d", ErrLevelOutOfOrder, level, prior)
		}
	}
	return nil
}

// MemoryStore is the in-process default store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

func (m *MemoryStore) SaveLevelData(_ context.Context, sessionID string, level int, res LevelResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	sess, ok := m.sessions[sessionID]
	if !ok {
		sess = &Session{
			SessionID:    sessionID,
			LevelResults: make(map[int]LevelResult),
			CreatedAt:    now,
		}
		m.sessions[sessionID] = sess
	}
	if err := checkProgression(sess.LevelResults, level); err != nil {
		return err
	}
	if res.CompletedAt.IsZero() {
		res.CompletedAt = now
	}
	sess.LevelResults[level] = res
	sess.UpdatedAt = now
	return nil
}

func (m *MemoryStore) Get(_ context.Context, sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return sess.Clone(), nil
}

func (m *MemoryStore) List(_ context.Context) ([]*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		out = append(out, sess.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
