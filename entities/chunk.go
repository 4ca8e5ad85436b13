package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/resonately/resonately-scribe-sub000/constant"
)

type Chunk struct {
	ID          int64                `json:"id" gorm:"primaryKey;autoIncrement"`
	RecordingID uuid.UUID            `json:"recording_id" gorm:"type:uuid;not null;index:idx_chunks_recording_id"`
	Position    int                  `json:"position" gorm:"not null"`
	IsLastChunk bool                 `json:"is_last_chunk" gorm:"not null;default:false"`
	URI         string               `json:"uri" gorm:"type:varchar(500);not null"`
	StartTime   time.Time            `json:"start_time" gorm:"not null"`
	EndTime     time.Time            `json:"end_time" gorm:"not null"`
	Status      constant.ChunkStatus `json:"status" gorm:"type:varchar(20);not null"`
	RetryCount  int                  `json:"retry_count" gorm:"not null;default:0"`
}

func (Chunk) TableName() string {
	return "chunks"
}
