package capture

import (
	"io"
	"os"
)

// StreamSource adapts an io.Reader delivering raw LINEAR16 PCM — typically
// a FIFO fed by the capture rig — into fixed-size frames.
type StreamSource struct {
	r         io.Reader
	frameSize int
}

// NewStreamSource frames the reader's PCM. frameSize is in bytes; a 20ms
// frame at 16kHz mono LINEAR16 is 640 bytes.
func NewStreamSource(r io.Reader, frameSize int) *StreamSource {
	if frameSize <= 0 {
		frameSize = 640
	}
	return &StreamSource{r: r, frameSize: frameSize}
}

// OpenStreamSource opens the named PCM input, "-" meaning stdin.
func OpenStreamSource(path string, frameSize int) (*StreamSource, error) {
	if path == "" || path == "-" {
		return NewStreamSource(os.Stdin, frameSize), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return NewStreamSource(f, frameSize), nil
}

func (s *StreamSource) ReadFrame() ([]byte, error) {
	frame := make([]byte, s.frameSize)
	n, err := io.ReadFull(s.r, frame)
	if n > 0 {
		return frame[:n], nil
	}
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return nil, err
}

// FrameSize returns the byte length of a frame of the given duration in
// milliseconds for LINEAR16 audio.
func FrameSize(sampleRate, channels, millis int) int {
	return sampleRate * channels * audioBytesPerSample * millis / 1000
}
