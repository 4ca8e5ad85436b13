package repository

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/resonately/resonately-scribe-sub000/entities"
)

// memStore is an in-memory Store for exercising the mirror without disk.
type memStore struct {
	mu         sync.Mutex
	recordings []entities.Recording
	saves      int
}

func (s *memStore) Load(ctx context.Context) ([]entities.Recording, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entities.Recording, len(s.recordings))
	copy(out, s.recordings)
	return out, nil
}

func (s *memStore) Save(ctx context.Context, recordings []entities.Recording) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordings = make([]entities.Recording, len(recordings))
	copy(s.recordings, recordings)
	s.saves++
	return nil
}

func (s *memStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordings = nil
	return nil
}

func TestMirrorUpdateSerializesWriters(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	mirror := NewMirror(store)

	id := uuid.New()
	if err := mirror.Update(ctx, func(recordings []entities.Recording) ([]entities.Recording, error) {
		return append(recordings, entities.Recording{ID: id}), nil
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Concurrent counter bumps: every increment must survive the
	// read-modify-write cycle.
	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = mirror.UpdateRecording(ctx, id, func(r *entities.Recording) error {
				r.ChunkCounter++
				return nil
			})
		}()
	}
	wg.Wait()

	recordings, err := mirror.View(ctx)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if recordings[0].ChunkCounter != writers {
		t.Fatalf("lost updates: counter = %d, want %d", recordings[0].ChunkCounter, writers)
	}
}

func TestMirrorUpdateRecordingNotFound(t *testing.T) {
	mirror := NewMirror(&memStore{})

	err := mirror.UpdateRecording(context.Background(), uuid.New(), func(r *entities.Recording) error {
		return nil
	})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestMirrorFailedMutationWritesNothing(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	mirror := NewMirror(store)

	savesBefore := store.saves
	id := uuid.New()
	_ = mirror.UpdateRecording(ctx, id, func(r *entities.Recording) error { return nil })

	if store.saves != savesBefore {
		t.Fatal("failed mutation must not persist")
	}
}
