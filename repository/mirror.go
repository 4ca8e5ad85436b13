package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/resonately/resonately-scribe-sub000/entities"
)

// Mirror serializes every read-modify-write against the store. The in-memory
// view is re-synced from the store at the start of each mutation, so a
// process relaunched mid-pipeline (or a cold background invocation) always
// operates on the persisted truth, never a stale mirror.
type Mirror struct {
	store Store
	mu    sync.Mutex
}

func NewMirror(store Store) *Mirror {
	return &Mirror{store: store}
}

// Update runs fn under the mirror's critical section: load, mutate, save.
// fn receives the freshly loaded recording set and returns the set to
// persist. If fn fails nothing is written.
func (m *Mirror) Update(ctx context.Context, fn func(recordings []entities.Recording) ([]entities.Recording, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	recordings, err := m.store.Load(ctx)
	if err != nil {
		return err
	}
	updated, err := fn(recordings)
	if err != nil {
		return err
	}
	return m.store.Save(ctx, updated)
}

// UpdateRecording is Update scoped to a single recording looked up by id.
func (m *Mirror) UpdateRecording(ctx context.Context, id uuid.UUID, fn func(recording *entities.Recording) error) error {
	return m.Update(ctx, func(recordings []entities.Recording) ([]entities.Recording, error) {
		for i := range recordings {
			if recordings[i].ID == id {
				if err := fn(&recordings[i]); err != nil {
					return nil, err
				}
				return recordings, nil
			}
		}
		return nil, fmt.Errorf("recording %s not found", id)
	})
}

// View returns a snapshot of the persisted recording set.
func (m *Mirror) View(ctx context.Context) ([]entities.Recording, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Load(ctx)
}

// Clear wipes the persisted state. Debug/reset use only.
func (m *Mirror) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Clear(ctx)
}
