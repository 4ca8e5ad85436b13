package dto

import (
	"time"

	"github.com/google/uuid"
)

type StartRecordingRequest struct {
	AppointmentID string `json:"appointmentId" binding:"required"`
	TenantName    string `json:"tenantName" binding:"required"`
}

type StartRecordingResponse struct {
	RecordingID uuid.UUID `json:"recordingId"`
}

type RecordingSummary struct {
	ID            uuid.UUID  `json:"id"`
	AppointmentID string     `json:"appointmentId"`
	Status        string     `json:"status"`
	StartDate     time.Time  `json:"startDate"`
	EndDate       *time.Time `json:"endDate,omitempty"`
	TotalChunks   int        `json:"totalChunks"`
	PendingChunks int        `json:"pendingChunks"`
}

type SweepResponse struct {
	Started bool `json:"started"`
}

// AnalyticsEvent is the fire-and-forget payload published to the events sink.
type AnalyticsEvent struct {
	Name        string            `json:"name"`
	RecordingID string            `json:"recordingId,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	OccurredAt  time.Time         `json:"occurredAt"`
}
