package analytics

import (
	"context"

	"github.com/resonately/resonately-scribe-sub000/dto"
	"github.com/rs/zerolog"
)

// LogSink writes events to the structured log. Default sink when no queue
// is configured.
type LogSink struct{}

func NewLogSink() *LogSink {
	return &LogSink{}
}

func (s *LogSink) Emit(ctx context.Context, event dto.AnalyticsEvent) {
	entry := zerolog.Ctx(ctx).Info().
		Str("event", event.Name).
		Time("occurred_at", event.OccurredAt)
	if event.RecordingID != "" {
		entry = entry.Str("recording_id", event.RecordingID)
	}
	for k, v := range event.Attributes {
		entry = entry.Str(k, v)
	}
	entry.Msg("analytics event")
}
