package sessionstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestMemoryStoreSaveAndGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	res := LevelResult{TargetText: "the cat sat", TranscribedText: "the cat sat", Accuracy: 100}
	if err := s.SaveLevelData(ctx, "s1", 1, res); err != nil {
		t.Fatalf("SaveLevelData: %v", err)
	}

	sess, err := s.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	got, ok := sess.LevelResults[1]
	if !ok {
		t.Fatal("level 1 missing from session")
	}
	if got.Accuracy != 100 || got.TargetText != "the cat sat" {
		t.Errorf("level 1 result = %+v", got)
	}
	if got.CompletedAt.IsZero() {
		t.Error("CompletedAt not stamped")
	}
}

func TestMemoryStoreGetUnknownSession(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get err = %v, want ErrSessionNotFound", err)
	}
}

func TestMemoryStoreOrderedProgression(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	err := s.SaveLevelData(ctx, "s1", 3, LevelResult{Accuracy: 50})
	if !errors.Is(err, ErrLevelOutOfOrder) {
		t.Fatalf("level 3 before 1 and 2: err = %v, want ErrLevelOutOfOrder", err)
	}

	if err := s.SaveLevelData(ctx, "s1", 1, LevelResult{Accuracy: 80}); err != nil {
		t.Fatalf("level 1: %v", err)
	}
	if err := s.SaveLevelData(ctx, "s1", 2, LevelResult{Accuracy: 70}); err != nil {
		t.Fatalf("level 2: %v", err)
	}
	if err := s.SaveLevelData(ctx, "s1", 4, LevelResult{Accuracy: 60}); !errors.Is(err, ErrLevelOutOfOrder) {
		t.Fatalf("level 4 before 3: err = %v, want ErrLevelOutOfOrder", err)
	}
	if err := s.SaveLevelData(ctx, "s1", 3, LevelResult{Accuracy: 60}); err != nil {
		t.Fatalf("level 3 in order: %v", err)
	}

	if err := s.SaveLevelData(ctx, "s1", 0, LevelResult{}); !errors.Is(err, ErrLevelOutOfOrder) {
		t.Errorf("level 0: err = %v, want ErrLevelOutOfOrder", err)
	}
}

func TestMemoryStoreRetestOverwrites(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.SaveLevelData(ctx, "s1", 1, LevelResult{Accuracy: 30}); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := s.SaveLevelData(ctx, "s1", 1, LevelResult{Accuracy: 85}); err != nil {
		t.Fatalf("overwrite save: %v", err)
	}
	sess, err := s.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if sess.LevelResults[1].Accuracy != 85 {
		t.Errorf("Accuracy after retest = %d, want 85 (last write wins)", sess.LevelResults[1].Accuracy)
	}
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.SaveLevelData(ctx, "s1", 1, LevelResult{Accuracy: 50}); err != nil {
		t.Fatalf("SaveLevelData: %v", err)
	}

	sess, _ := s.Get(ctx, "s1")
	sess.LevelResults[1] = LevelResult{Accuracy: 0}

	again, _ := s.Get(ctx, "s1")
	if again.LevelResults[1].Accuracy != 50 {
		t.Error("mutating a returned session leaked into the store")
	}
}

func TestMemoryStoreList(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	for _, id := range []string{"a", "b"} {
		if err := s.SaveLevelData(ctx, id, 1, LevelResult{Accuracy: 10}); err != nil {
			t.Fatalf("SaveLevelData %s: %v", id, err)
		}
	}
	sessions, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(sessions) != 2 {
		t.Errorf("List returned %d sessions, want 2", len(sessions))
	}
}

func TestIdentityRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session_id")

	first, err := NewIdentity(path).Load()
	if err != nil {
		t.Fatalf("first Load: %v", err)
	}
	if first == "" {
		t.Fatal("Load returned empty id")
	}

	// A fresh Identity over the same file must return the same id.
	second, err := NewIdentity(path).Load()
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if second != first {
		t.Errorf("second Load = %q, want %q", second, first)
	}
}
