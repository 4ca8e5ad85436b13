package repository

import (
	"context"
	"errors"

	"github.com/resonately/resonately-scribe-sub000/entities"
)

// ErrStoreWrite marks a failed persistence write. It is surfaced to the
// caller so the controller can treat its in-memory state as unsynced.
var ErrStoreWrite = errors.New("recording store write failed")

// Store is the durable record of all recordings and their chunks. Writes
// are whole-collection overwrites, so callers must always read-modify-write
// under a single critical section (see Mirror).
type Store interface {
	// Load returns the persisted recording set, empty if nothing has been
	// saved yet. "Not found" is not an error.
	Load(ctx context.Context) ([]entities.Recording, error)
	// Save atomically persists the full recording set.
	Save(ctx context.Context, recordings []entities.Recording) error
	// Clear wipes all persisted state.
	Clear(ctx context.Context) error
}
