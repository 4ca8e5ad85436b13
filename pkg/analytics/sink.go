package analytics

import (
	"context"
	"time"

	"github.com/resonately/resonately-scribe-sub000/dto"
)

const (
	EventRecordingStarted       = "recording_started"
	EventRecordingPaused        = "recording_paused"
	EventRecordingResumed       = "recording_resumed"
	EventRecordingStopped       = "recording_stopped"
	EventRecordingCompleted     = "recording_completed"
	EventChunkCreated           = "chunk_created"
	EventChunkUploaded          = "chunk_uploaded"
	EventChunkUploadFailed      = "chunk_upload_failed"
	EventChunkFinalizationError = "chunk_finalization_error"
	EventCaptureInterrupted     = "capture_interrupted"
	EventMediaServicesReset     = "media_services_reset"
)

// Sink receives pipeline side effects. Emit is fire-and-forget: failures in
// the sink are never allowed to disturb the recording pipeline.
type Sink interface {
	Emit(ctx context.Context, event dto.AnalyticsEvent)
}

func NewEvent(name, recordingID string, attrs map[string]string) dto.AnalyticsEvent {
	return dto.AnalyticsEvent{
		Name:        name,
		RecordingID: recordingID,
		Attributes:  attrs,
		OccurredAt:  time.Now().UTC(),
	}
}
