package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/resonately/resonately-scribe-sub000/config"
	"github.com/resonately/resonately-scribe-sub000/entities"
	"github.com/rs/zerolog"
)

// UploadAudioChunksPath is the collaborator endpoint receiving chunk files.
const UploadAudioChunksPath = "/server/v1/upload-audio-chunks"

// HTTPUploader posts each chunk as a multipart form to the remote service.
type HTTPUploader struct {
	client      *resty.Client
	credentials string
}

func NewHTTPUploader(cfg config.Upload) *HTTPUploader {
	client := resty.New().
		SetBaseURL(cfg.Endpoint).
		SetTimeout(cfg.Timeout)
	return &HTTPUploader{
		client:      client,
		credentials: cfg.Credentials,
	}
}

func (u *HTTPUploader) UploadChunk(ctx context.Context, chunk *entities.Chunk, recording *entities.Recording) bool {
	resp, err := u.client.R().
		SetContext(ctx).
		SetFile("file", chunk.URI).
		SetFormData(map[string]string{
			"recordingId":    recording.ID.String(),
			"recordingName":  fmt.Sprintf("appointment-%s", recording.AppointmentID),
			"chunkStartTime": chunk.StartTime.UTC().Format(time.RFC3339),
			"chunkEndTime":   chunk.EndTime.UTC().Format(time.RFC3339),
		}).
		SetHeader("x-tenant-name", recording.TenantName).
		SetAuthToken(u.credentials).
		Post(UploadAudioChunksPath)

	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).
			Str("recording_id", recording.ID.String()).
			Int("position", chunk.Position).
			Msg("chunk upload request failed")
		return false
	}
	if resp.StatusCode() != http.StatusOK {
		zerolog.Ctx(ctx).Warn().
			Str("recording_id", recording.ID.String()).
			Int("position", chunk.Position).
			Int("status_code", resp.StatusCode()).
			Msg("chunk upload rejected")
		return false
	}
	return true
}
