package analytics

import (
	"context"
	"encoding/json"

	"github.com/resonately/resonately-scribe-sub000/dto"
	"github.com/resonately/resonately-scribe-sub000/pkg/rabbitmq"
	"github.com/rs/zerolog"
)

const eventRoutingKey = "scribe.pipeline.event"

// QueueSink publishes events to the analytics exchange. Publish failures are
// logged and dropped; the pipeline never blocks on analytics.
type QueueSink struct {
	publisher *rabbitmq.Publisher
}

func NewQueueSink(publisher *rabbitmq.Publisher) *QueueSink {
	return &QueueSink{publisher: publisher}
}

func (s *QueueSink) Emit(ctx context.Context, event dto.AnalyticsEvent) {
	body, err := json.Marshal(event)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("event", event.Name).Msg("failed to marshal analytics event")
		return
	}
	if err := s.publisher.Publish(ctx, eventRoutingKey, body); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("event", event.Name).Msg("failed to publish analytics event")
	}
}
