package service

import (
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/resonately/resonately-scribe-sub000/entities"
	"github.com/rs/zerolog"
)

// ObjectUploader puts chunks straight into object storage. Used by
// self-hosted deployments where the ingest service is fronted by a bucket
// instead of the upload endpoint.
type ObjectUploader struct {
	client *minio.Client
	bucket string
}

func NewObjectUploader(client *minio.Client, bucket string) *ObjectUploader {
	return &ObjectUploader{client: client, bucket: bucket}
}

func (u *ObjectUploader) UploadChunk(ctx context.Context, chunk *entities.Chunk, recording *entities.Recording) bool {
	objectName := fmt.Sprintf("recordings/%s/chunks/chunk_%04d.wav", recording.ID, chunk.Position)

	_, err := u.client.FPutObject(ctx, u.bucket, objectName, chunk.URI, minio.PutObjectOptions{
		ContentType: "audio/wav",
		UserMetadata: map[string]string{
			"tenant-name":      recording.TenantName,
			"appointment-id":   recording.AppointmentID,
			"chunk-start-time": chunk.StartTime.UTC().Format(time.RFC3339),
			"chunk-end-time":   chunk.EndTime.UTC().Format(time.RFC3339),
			"is-last-chunk":    fmt.Sprintf("%t", chunk.IsLastChunk),
		},
	})
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).
			Str("recording_id", recording.ID.String()).
			Int("position", chunk.Position).
			Msg("chunk object upload failed")
		return false
	}
	return true
}
