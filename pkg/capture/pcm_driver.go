package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// PCMDriver captures LINEAR16 PCM from a Source and finalizes each segment
// as a WAV file under the spool directory. One segment is active at a time;
// rollover is Stop followed by Start, which leaves a small un-captured gap
// at the boundary. That gap is an accepted limitation of the pipeline.
type PCMDriver struct {
	source     Source
	spoolDir   string
	sampleRate int
	channels   int

	// permission is injectable for tests; the default probes the spool dir.
	permission func() bool
	// tap observes every captured frame; the chunking policy hangs off it.
	tap func(frame []byte)

	events chan Status

	mu      sync.Mutex
	current *Segment
	paused  bool
	pulling bool
}

// Segment is one bounded capture between Start and Stop.
type Segment struct {
	id      uuid.UUID
	started time.Time

	mu     sync.Mutex
	pcm    []byte
	closed bool
}

func (s *Segment) append(frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.pcm = append(s.pcm, frame...)
}

func (s *Segment) drain() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return s.pcm
}

type Option func(*PCMDriver)

func WithPermissionFunc(fn func() bool) Option {
	return func(d *PCMDriver) { d.permission = fn }
}

func WithFrameTap(fn func(frame []byte)) Option {
	return func(d *PCMDriver) { d.tap = fn }
}

func NewPCMDriver(source Source, spoolDir string, sampleRate, channels int, opts ...Option) *PCMDriver {
	d := &PCMDriver{
		source:     source,
		spoolDir:   spoolDir,
		sampleRate: sampleRate,
		channels:   channels,
		events:     make(chan Status, 16),
	}
	d.permission = func() bool {
		return os.MkdirAll(d.spoolDir, os.ModePerm) == nil
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *PCMDriver) RequestPermission(ctx context.Context) error {
	if !d.permission() {
		return ErrPermissionDenied
	}
	return nil
}

func (d *PCMDriver) Start(ctx context.Context) (*Segment, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.current != nil {
		return nil, ErrAlreadyRecording
	}

	segment := &Segment{id: uuid.New(), started: time.Now()}
	d.current = segment
	if !d.pulling {
		d.pulling = true
		go d.pull()
	}

	d.emit(StatusRecording)
	return segment, nil
}

// pull is the single reader of the source. At most one pull goroutine exists
// at a time: it exits only while no segment is active, and Start respawns it
// under the same lock that cleared the pulling flag.
func (d *PCMDriver) pull() {
	for {
		if d.isPaused() {
			time.Sleep(20 * time.Millisecond)
			continue
		}

		frame, err := d.source.ReadFrame()

		d.mu.Lock()
		segment := d.current
		if err != nil || segment == nil {
			d.pulling = false
			d.mu.Unlock()
			if err != nil {
				switch {
				case errors.Is(err, io.EOF):
					d.emit(StatusDone)
				case errors.Is(err, ErrMediaServicesReset):
					d.emit(StatusMediaServicesReset)
				default:
					log.Warn().Err(err).Msg("capture source read failed")
					d.emit(StatusInterrupted)
				}
			}
			return
		}
		d.mu.Unlock()

		segment.append(frame)
		if d.tap != nil {
			d.tap(frame)
		}
	}
}

func (d *PCMDriver) Stop(ctx context.Context, segment *Segment) (string, error) {
	if segment == nil {
		return "", ErrNotRecording
	}

	d.mu.Lock()
	if d.current == segment {
		d.current = nil
	}
	d.mu.Unlock()

	pcm := segment.drain()

	if err := os.MkdirAll(d.spoolDir, os.ModePerm); err != nil {
		return "", err
	}
	path := filepath.Join(d.spoolDir, fmt.Sprintf("chunk_%s.wav", segment.id))
	if err := os.WriteFile(path, EncodeWAV(pcm, d.sampleRate, d.channels), 0o600); err != nil {
		return "", err
	}
	return path, nil
}

func (d *PCMDriver) Pause(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return ErrNotRecording
	}
	d.paused = true
	return nil
}

func (d *PCMDriver) Resume(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return ErrNotRecording
	}
	d.paused = false
	return nil
}

func (d *PCMDriver) isPaused() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.paused
}

func (d *PCMDriver) Events() <-chan Status {
	return d.events
}

// emit never blocks; status events are advisory and droppable.
func (d *PCMDriver) emit(status Status) {
	select {
	case d.events <- status:
	default:
	}
}
