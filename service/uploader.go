package service

import (
	"context"

	"github.com/resonately/resonately-scribe-sub000/entities"
)

// ChunkUploader transfers one chunk's local audio file to the remote
// service. It reports false on any failure (network error, rejected
// response, timeout) instead of returning an error, so the sweep can stop
// the recording's sequence and leave the chunk for the next pass.
type ChunkUploader interface {
	UploadChunk(ctx context.Context, chunk *entities.Chunk, recording *entities.Recording) bool
}
