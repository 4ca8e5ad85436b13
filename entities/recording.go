package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/resonately/resonately-scribe-sub000/constant"
)

type Recording struct {
	ID            uuid.UUID                `json:"id" gorm:"type:uuid;primary_key"`
	AppointmentID string                   `json:"appointment_id" gorm:"type:varchar(255);not null;index:idx_recordings_appointment_id"`
	TenantName    string                   `json:"tenant_name" gorm:"type:varchar(255);not null"`
	StartDate     time.Time                `json:"start_date" gorm:"not null"`
	EndDate       *time.Time               `json:"end_date"`
	Status        constant.RecordingStatus `json:"status" gorm:"type:varchar(20);not null"`
	ChunkCounter  int                      `json:"chunk_counter" gorm:"not null;default:0"`
	Chunks        []Chunk                  `json:"chunks" gorm:"foreignKey:RecordingID;constraint:OnDelete:CASCADE"`
}

func (Recording) TableName() string {
	return "recordings"
}

// PendingChunks returns the chunks still awaiting upload, in ascending
// position order.
func (r *Recording) PendingChunks() []*Chunk {
	var pending []*Chunk
	for i := range r.Chunks {
		if r.Chunks[i].Status == constant.ChunkStatusCreated {
			pending = append(pending, &r.Chunks[i])
		}
	}
	return pending
}

// ReadyToComplete reports whether the recording satisfies the completion
// invariant: at least one chunk, an end date, and no chunk left in created.
func (r *Recording) ReadyToComplete() bool {
	if len(r.Chunks) == 0 || r.EndDate == nil {
		return false
	}
	for i := range r.Chunks {
		if r.Chunks[i].Status != constant.ChunkStatusUploaded {
			return false
		}
	}
	return true
}

func (r *Recording) ChunkAt(position int) *Chunk {
	for i := range r.Chunks {
		if r.Chunks[i].Position == position {
			return &r.Chunks[i]
		}
	}
	return nil
}
