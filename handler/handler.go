package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/resonately/resonately-scribe-sub000/dto"
	"github.com/resonately/resonately-scribe-sub000/pkg/capture"
	"github.com/resonately/resonately-scribe-sub000/repository"
	"github.com/resonately/resonately-scribe-sub000/service"
)

// Dependencies wires the UI-facing routes to the pipeline. BaseCtx carries
// the process logger and outlives any single request; sweeps triggered over
// HTTP run on it.
type Dependencies struct {
	Controller *service.SessionController
	Worker     *service.UploadWorker
	Mirror     *repository.Mirror
	BaseCtx    context.Context
}

func Register(r *gin.Engine, deps Dependencies) {
	v1 := r.Group("/v1")
	v1.GET("/recordings", listRecordings(deps))
	v1.POST("/recordings/start", startRecording(deps))
	v1.POST("/recordings/pause", pauseRecording(deps))
	v1.POST("/recordings/resume", resumeRecording(deps))
	v1.POST("/recordings/stop", stopRecording(deps))
	v1.POST("/upload/sweep", triggerSweep(deps))
}

func startRecording(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.StartRecordingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		id, err := deps.Controller.StartRecording(deps.BaseCtx, req.AppointmentID, req.TenantName)
		switch {
		case errors.Is(err, service.ErrRecordingActive):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, capture.ErrPermissionDenied):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusCreated, dto.StartRecordingResponse{RecordingID: id})
		}
	}
}

func pauseRecording(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		respondLifecycle(c, deps.Controller.PauseRecording(deps.BaseCtx))
	}
}

func resumeRecording(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		respondLifecycle(c, deps.Controller.ResumeRecording(deps.BaseCtx))
	}
}

func stopRecording(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		respondLifecycle(c, deps.Controller.StopRecording(deps.BaseCtx))
	}
}

func respondLifecycle(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNoActiveRecording):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func listRecordings(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		recordings, err := deps.Mirror.View(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		summaries := make([]dto.RecordingSummary, 0, len(recordings))
		for i := range recordings {
			r := &recordings[i]
			summaries = append(summaries, dto.RecordingSummary{
				ID:            r.ID,
				AppointmentID: r.AppointmentID,
				Status:        r.Status.String(),
				StartDate:     r.StartDate,
				EndDate:       r.EndDate,
				TotalChunks:   len(r.Chunks),
				PendingChunks: len(r.PendingChunks()),
			})
		}
		c.JSON(http.StatusOK, summaries)
	}
}

// triggerSweep is the background-execution entry point: the platform task
// scheduler posts here outside the app's foreground lifetime. The sweep
// runs detached; an in-flight sweep makes this a no-op.
func triggerSweep(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		go deps.Worker.TriggerSweep(deps.BaseCtx)
		c.JSON(http.StatusAccepted, dto.SweepResponse{Started: true})
	}
}
