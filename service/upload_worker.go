package service

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/resonately/resonately-scribe-sub000/constant"
	"github.com/resonately/resonately-scribe-sub000/entities"
	"github.com/resonately/resonately-scribe-sub000/pkg/analytics"
	"github.com/resonately/resonately-scribe-sub000/repository"
	"github.com/rs/zerolog"
)

// UploadWorker drives the upload of created chunks across all incomplete
// recordings. It derives all pending work from persisted chunk status, so a
// sweep after a crash or a cold background invocation is always safe to
// re-run.
type UploadWorker struct {
	mirror   *repository.Mirror
	uploader ChunkUploader
	sink     analytics.Sink

	timeout       time.Duration
	sweepInterval time.Duration

	inFlight atomic.Bool
}

func NewUploadWorker(mirror *repository.Mirror, uploader ChunkUploader, sink analytics.Sink, timeout, sweepInterval time.Duration) *UploadWorker {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	if sweepInterval <= 0 {
		sweepInterval = 30 * time.Second
	}
	return &UploadWorker{
		mirror:        mirror,
		uploader:      uploader,
		sink:          sink,
		timeout:       timeout,
		sweepInterval: sweepInterval,
	}
}

// Run sweeps on a fixed cadence until the context is cancelled.
func (w *UploadWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()

	zerolog.Ctx(ctx).Info().Dur("sweep_interval", w.sweepInterval).Msg("upload worker started")
	for {
		select {
		case <-ctx.Done():
			zerolog.Ctx(ctx).Info().Msg("upload worker stopped")
			return
		case <-ticker.C:
			w.TriggerSweep(ctx)
		}
	}
}

// TriggerSweep runs one sweep unless one is already in flight. An
// overlapping request is dropped, not queued; the next periodic trigger
// picks up whatever is left.
func (w *UploadWorker) TriggerSweep(ctx context.Context) bool {
	if !w.inFlight.CompareAndSwap(false, true) {
		zerolog.Ctx(ctx).Debug().Msg("sweep already in flight, dropping trigger")
		return false
	}
	defer w.inFlight.Store(false)

	w.processChunks(ctx)
	return true
}

func (w *UploadWorker) processChunks(ctx context.Context) {
	recordings, err := w.mirror.View(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("sweep failed to load recordings")
		return
	}

	for i := range recordings {
		if recordings[i].Status == constant.RecordingStatusCompleted {
			continue
		}
		w.processRecording(ctx, &recordings[i])
	}
}

// processRecording uploads the recording's created chunks in ascending
// position order and stops at the first failure, so the server can rely on
// never seeing chunk N+1 before chunk N.
func (w *UploadWorker) processRecording(ctx context.Context, recording *entities.Recording) {
	chunks := make([]entities.Chunk, len(recording.Chunks))
	copy(chunks, recording.Chunks)
	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].Position < chunks[j].Position
	})

	for i := range chunks {
		chunk := chunks[i]
		if chunk.Status != constant.ChunkStatusCreated {
			continue
		}

		uploadCtx, cancel := context.WithTimeout(ctx, w.timeout)
		ok := w.uploader.UploadChunk(uploadCtx, &chunk, recording)
		cancel()

		if !ok {
			w.sink.Emit(ctx, analytics.NewEvent(analytics.EventChunkUploadFailed, recording.ID.String(), map[string]string{
				"position": strconv.Itoa(chunk.Position),
			}))
			// Retries are unbounded; the count is informational only.
			if err := w.mirror.UpdateRecording(ctx, recording.ID, func(r *entities.Recording) error {
				if c := r.ChunkAt(chunk.Position); c != nil {
					c.RetryCount++
				}
				return nil
			}); err != nil {
				zerolog.Ctx(ctx).Error().Err(err).Msg("failed to persist chunk retry count")
			}
			return
		}

		if err := w.markUploaded(ctx, recording.ID, chunk.Position); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).
				Str("recording_id", recording.ID.String()).
				Int("position", chunk.Position).
				Msg("failed to persist chunk upload")
			return
		}
		w.sink.Emit(ctx, analytics.NewEvent(analytics.EventChunkUploaded, recording.ID.String(), map[string]string{
			"position": strconv.Itoa(chunk.Position),
		}))
	}

	w.finalize(ctx, recording.ID)
}

// markUploaded records the chunk's transition under the mirror's critical
// section, re-reading persisted state so a restart mid-sweep cannot lose or
// double-apply an upload.
func (w *UploadWorker) markUploaded(ctx context.Context, recordingID uuid.UUID, position int) error {
	return w.mirror.UpdateRecording(ctx, recordingID, func(r *entities.Recording) error {
		chunk := r.ChunkAt(position)
		if chunk == nil {
			return fmt.Errorf("chunk %d missing from recording %s", position, recordingID)
		}
		if !chunk.Status.CanTransition(constant.ChunkStatusUploaded) {
			return fmt.Errorf("chunk %d cannot transition %s -> %s", position, chunk.Status, constant.ChunkStatusUploaded)
		}
		chunk.Status = constant.ChunkStatusUploaded

		if chunk.IsLastChunk {
			if r.Status == constant.RecordingStatusInProgress && r.Status.CanTransition(constant.RecordingStatusUploading) {
				r.Status = constant.RecordingStatusUploading
			}
			if r.EndDate == nil {
				end := chunk.EndTime
				r.EndDate = &end
			}
		}
		return nil
	})
}

// finalize promotes the recording to Completed once every chunk is uploaded
// and the end date is set, then deletes the local chunk files.
func (w *UploadWorker) finalize(ctx context.Context, recordingID uuid.UUID) {
	var completed bool
	var localFiles []string

	err := w.mirror.UpdateRecording(ctx, recordingID, func(r *entities.Recording) error {
		if r.Status == constant.RecordingStatusCompleted {
			return nil
		}
		if !r.ReadyToComplete() {
			return nil
		}
		if !r.Status.CanTransition(constant.RecordingStatusCompleted) {
			return fmt.Errorf("recording %s cannot transition %s -> %s", r.ID, r.Status, constant.RecordingStatusCompleted)
		}
		r.Status = constant.RecordingStatusCompleted
		completed = true
		for i := range r.Chunks {
			localFiles = append(localFiles, r.Chunks[i].URI)
		}
		return nil
	})
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("recording_id", recordingID.String()).Msg("failed to finalize recording")
		return
	}
	if !completed {
		return
	}

	// Metadata persists as the historical record; only the audio artifacts
	// are deleted once everything is confirmed uploaded.
	for _, uri := range localFiles {
		if err := os.Remove(uri); err != nil && !os.IsNotExist(err) {
			zerolog.Ctx(ctx).Warn().Err(err).Str("uri", uri).Msg("failed to delete uploaded chunk file")
		}
	}

	w.sink.Emit(ctx, analytics.NewEvent(analytics.EventRecordingCompleted, recordingID.String(), nil))
	zerolog.Ctx(ctx).Info().Str("recording_id", recordingID.String()).Msg("recording completed")
}
