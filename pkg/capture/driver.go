package capture

import (
	"context"
	"errors"
)

var (
	// ErrPermissionDenied means microphone access was refused. Fatal to
	// starting a recording, never retried.
	ErrPermissionDenied = errors.New("microphone permission denied")
	// ErrAlreadyRecording rejects a Start while a segment is being captured.
	ErrAlreadyRecording = errors.New("capture already in progress")
	// ErrNotRecording rejects segment operations without an active segment.
	ErrNotRecording = errors.New("no capture in progress")
	// ErrMediaServicesReset is surfaced by a source whose underlying audio
	// session was torn down by the OS (e.g. an incoming phone call).
	ErrMediaServicesReset = errors.New("media services were reset")
)

type Status string

const (
	StatusRecording          Status = "recording"
	StatusDone               Status = "done"
	StatusInterrupted        Status = "interrupted"
	StatusMediaServicesReset Status = "mediaServicesReset"
)

// Source delivers PCM frames from the underlying audio hardware. ReadFrame
// blocks until a frame is available. io.EOF means the source closed cleanly;
// ErrMediaServicesReset means the OS killed the audio session.
type Source interface {
	ReadFrame() ([]byte, error)
}

// Driver wraps the platform microphone. Status events are advisory, not
// request/response: the session controller reacts to them.
type Driver interface {
	RequestPermission(ctx context.Context) error
	// Start begins capturing a new segment. Calling it while a segment is
	// active fails with ErrAlreadyRecording.
	Start(ctx context.Context) (*Segment, error)
	// Stop flushes and finalizes the segment to a local file and returns its
	// URI. Safe to call even after the hardware session was silently reset;
	// whatever audio was buffered is still written out.
	Stop(ctx context.Context, segment *Segment) (string, error)
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Events() <-chan Status
}
