package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/resonately/resonately-scribe-sub000/constant"
	"github.com/resonately/resonately-scribe-sub000/entities"
	"github.com/resonately/resonately-scribe-sub000/pkg/analytics"
	"github.com/resonately/resonately-scribe-sub000/pkg/capture"
	"github.com/resonately/resonately-scribe-sub000/pkg/chunking"
	"github.com/resonately/resonately-scribe-sub000/repository"
	"github.com/rs/zerolog"
)

var (
	// ErrRecordingActive rejects a start while another recording is live.
	ErrRecordingActive = errors.New("a recording is already active")
	// ErrNoActiveRecording rejects pause/resume/stop without a live recording.
	ErrNoActiveRecording = errors.New("no active recording")
)

// ChunkFinalizationError wraps a failure to write a chunk's audio file at a
// boundary. The chunk is lost for that boundary; the recording continues.
type ChunkFinalizationError struct {
	Position int
	Err      error
}

func (e *ChunkFinalizationError) Error() string {
	return fmt.Sprintf("failed to finalize chunk %d: %v", e.Position, e.Err)
}

func (e *ChunkFinalizationError) Unwrap() error {
	return e.Err
}

// SessionController owns the single active recording. All capture
// transitions — rollover, pause, stop — run under its lock, so a rollover
// and a stop can never race on the same recording.
type SessionController struct {
	mirror *repository.Mirror
	driver capture.Driver
	policy chunking.Policy
	sink   analytics.Sink

	clock         func() time.Time
	checkInterval time.Duration
	// onAutoPause notifies the UI when an OS interruption paused the
	// recording without the user pressing pause.
	onAutoPause func()

	mu     sync.Mutex
	active *activeSession
}

type activeSession struct {
	recordingID  uuid.UUID
	segment      *capture.Segment
	segmentStart time.Time
	paused       bool
	cancel       context.CancelFunc
}

type ControllerOption func(*SessionController)

func WithClock(clock func() time.Time) ControllerOption {
	return func(c *SessionController) { c.clock = clock }
}

func WithCheckInterval(interval time.Duration) ControllerOption {
	return func(c *SessionController) { c.checkInterval = interval }
}

func WithAutoPauseCallback(fn func()) ControllerOption {
	return func(c *SessionController) { c.onAutoPause = fn }
}

func NewSessionController(mirror *repository.Mirror, driver capture.Driver, policy chunking.Policy, sink analytics.Sink, opts ...ControllerOption) *SessionController {
	c := &SessionController{
		mirror:        mirror,
		driver:        driver,
		policy:        policy,
		sink:          sink,
		clock:         time.Now,
		checkInterval: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartRecording creates the recording entity, starts capture and arms the
// rollover check. At most one recording is active per controller.
func (c *SessionController) StartRecording(ctx context.Context, appointmentID, tenantName string) (uuid.UUID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		return uuid.Nil, ErrRecordingActive
	}

	if err := c.driver.RequestPermission(ctx); err != nil {
		return uuid.Nil, err
	}

	now := c.clock()
	recording := entities.Recording{
		ID:            uuid.New(),
		AppointmentID: appointmentID,
		TenantName:    tenantName,
		StartDate:     now,
		Status:        constant.RecordingStatusInProgress,
	}

	if err := c.mirror.Update(ctx, func(recordings []entities.Recording) ([]entities.Recording, error) {
		return append(recordings, recording), nil
	}); err != nil {
		return uuid.Nil, err
	}

	segment, err := c.driver.Start(ctx)
	if err != nil {
		// Roll the entity back; a recording that never captured is noise.
		if rbErr := c.mirror.Update(ctx, func(recordings []entities.Recording) ([]entities.Recording, error) {
			return removeRecording(recordings, recording.ID), nil
		}); rbErr != nil {
			zerolog.Ctx(ctx).Error().Err(rbErr).Msg("failed to roll back recording after capture start failure")
		}
		return uuid.Nil, err
	}

	c.policy.Begin(now)

	// The loops outlive the caller's request.
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.active = &activeSession{
		recordingID:  recording.ID,
		segment:      segment,
		segmentStart: now,
		cancel:       cancel,
	}
	go c.rolloverLoop(loopCtx)
	go c.eventLoop(loopCtx)

	c.sink.Emit(ctx, analytics.NewEvent(analytics.EventRecordingStarted, recording.ID.String(), map[string]string{
		"appointment_id": appointmentID,
	}))
	zerolog.Ctx(ctx).Info().
		Str("recording_id", recording.ID.String()).
		Str("appointment_id", appointmentID).
		Msg("recording started")
	return recording.ID, nil
}

func removeRecording(recordings []entities.Recording, id uuid.UUID) []entities.Recording {
	out := recordings[:0]
	for i := range recordings {
		if recordings[i].ID != id {
			out = append(out, recordings[i])
		}
	}
	return out
}

func (c *SessionController) rolloverLoop(ctx context.Context) {
	ticker := time.NewTicker(c.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.maybeRollover(ctx)
		}
	}
}

func (c *SessionController) maybeRollover(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil || c.active.paused {
		return
	}
	if !c.policy.ShouldRoll(c.clock()) {
		return
	}
	if err := c.rollover(ctx); err != nil {
		var finalization *ChunkFinalizationError
		if errors.As(err, &finalization) {
			// Chunk lost at this boundary; the recording carries on.
			c.sink.Emit(ctx, analytics.NewEvent(analytics.EventChunkFinalizationError, c.active.recordingID.String(), map[string]string{
				"position": strconv.Itoa(finalization.Position),
			}))
			return
		}
		zerolog.Ctx(ctx).Error().Err(err).Msg("rollover failed")
	}
}

// ForceRollover closes the current chunk and opens the next one regardless
// of the policy. Exposed for deterministic control.
func (c *SessionController) ForceRollover(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return ErrNoActiveRecording
	}
	return c.rollover(ctx)
}

// rollover runs with the controller lock held. Stopping the old segment and
// starting the next one are not atomic at the hardware level; the small gap
// in between is an accepted limitation.
func (c *SessionController) rollover(ctx context.Context) error {
	session := c.active
	now := c.clock()

	uri, stopErr := c.driver.Stop(ctx, session.segment)

	segment, startErr := c.driver.Start(ctx)
	if startErr != nil {
		return startErr
	}
	session.segment = segment
	segmentStart := session.segmentStart
	session.segmentStart = now
	c.policy.Begin(now)

	if stopErr != nil {
		return &ChunkFinalizationError{Err: stopErr}
	}

	return c.appendChunk(ctx, session.recordingID, uri, segmentStart, now, false)
}

// appendChunk persists the finished segment as a new chunk, assigning its
// position from the recording's chunk counter.
func (c *SessionController) appendChunk(ctx context.Context, recordingID uuid.UUID, uri string, start, end time.Time, last bool) error {
	var position int
	err := c.mirror.UpdateRecording(ctx, recordingID, func(r *entities.Recording) error {
		position = r.ChunkCounter
		r.Chunks = append(r.Chunks, entities.Chunk{
			RecordingID: r.ID,
			Position:    position,
			IsLastChunk: last,
			URI:         uri,
			StartTime:   start,
			EndTime:     end,
			Status:      constant.ChunkStatusCreated,
		})
		r.ChunkCounter++
		return nil
	})
	if err != nil {
		return err
	}

	c.sink.Emit(ctx, analytics.NewEvent(analytics.EventChunkCreated, recordingID.String(), map[string]string{
		"position": strconv.Itoa(position),
		"is_last":  strconv.FormatBool(last),
	}))
	return nil
}

// PauseRecording suspends capture without closing the current chunk's
// timing window.
func (c *SessionController) PauseRecording(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pauseLocked(ctx, false)
}

func (c *SessionController) pauseLocked(ctx context.Context, auto bool) error {
	if c.active == nil {
		return ErrNoActiveRecording
	}
	if c.active.paused {
		return nil
	}
	if err := c.driver.Pause(ctx); err != nil && !errors.Is(err, capture.ErrNotRecording) {
		return err
	}
	c.active.paused = true

	event := analytics.EventRecordingPaused
	if auto {
		event = analytics.EventCaptureInterrupted
	}
	c.sink.Emit(ctx, analytics.NewEvent(event, c.active.recordingID.String(), nil))
	if auto && c.onAutoPause != nil {
		c.onAutoPause()
	}
	return nil
}

func (c *SessionController) ResumeRecording(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return ErrNoActiveRecording
	}
	if !c.active.paused {
		return nil
	}
	if err := c.driver.Resume(ctx); err != nil && !errors.Is(err, capture.ErrNotRecording) {
		return err
	}
	c.active.paused = false
	c.sink.Emit(ctx, analytics.NewEvent(analytics.EventRecordingResumed, c.active.recordingID.String(), nil))
	return nil
}

// StopRecording cancels the rollover check, sets the end date, forces the
// final chunk and releases the capture session. The internal reference is
// released even when finalization fails, so a broken upload can never block
// starting the next recording.
func (c *SessionController) StopRecording(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return ErrNoActiveRecording
	}

	session := c.active
	// Finalization must survive cancellation of the caller's context; the
	// event loop in particular stops the recording with the very context
	// that session.cancel tears down.
	ctx = context.WithoutCancel(ctx)
	session.cancel()
	defer func() {
		c.active = nil
	}()

	now := c.clock()
	uri, stopErr := c.driver.Stop(ctx, session.segment)

	var finalization error
	persistErr := c.mirror.UpdateRecording(ctx, session.recordingID, func(r *entities.Recording) error {
		if r.EndDate == nil {
			end := now
			r.EndDate = &end
		}
		return nil
	})

	if stopErr != nil {
		finalization = &ChunkFinalizationError{Err: stopErr}
		c.sink.Emit(ctx, analytics.NewEvent(analytics.EventChunkFinalizationError, session.recordingID.String(), nil))
	} else {
		if err := c.appendChunk(ctx, session.recordingID, uri, session.segmentStart, now, true); err != nil {
			finalization = err
		}
	}

	c.sink.Emit(ctx, analytics.NewEvent(analytics.EventRecordingStopped, session.recordingID.String(), nil))
	zerolog.Ctx(ctx).Info().Str("recording_id", session.recordingID.String()).Msg("recording stopped")

	return errors.Join(persistErr, finalization)
}

// eventLoop reacts to advisory driver status events: an interruption pauses
// the recording internally, a media services reset kills it outright.
func (c *SessionController) eventLoop(ctx context.Context) {
	events := c.driver.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case status, ok := <-events:
			if !ok {
				return
			}
			switch status {
			case capture.StatusInterrupted:
				c.mu.Lock()
				if err := c.pauseLocked(ctx, true); err != nil && !errors.Is(err, ErrNoActiveRecording) {
					zerolog.Ctx(ctx).Error().Err(err).Msg("failed to pause after interruption")
				}
				c.mu.Unlock()
			case capture.StatusMediaServicesReset:
				// The hardware session is gone: hard stop.
				c.sink.Emit(ctx, analytics.NewEvent(analytics.EventMediaServicesReset, "", nil))
				if err := c.StopRecording(ctx); err != nil && !errors.Is(err, ErrNoActiveRecording) {
					zerolog.Ctx(ctx).Error().Err(err).Msg("hard stop after media services reset failed")
				}
			default:
				zerolog.Ctx(ctx).Debug().Str("status", string(status)).Msg("capture status event")
			}
		}
	}
}

// ActiveRecordingID reports the live recording, if any.
func (c *SessionController) ActiveRecordingID() (uuid.UUID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return uuid.Nil, false
	}
	return c.active.recordingID, true
}
