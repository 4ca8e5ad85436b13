package chunking

import (
	"encoding/binary"
	"math"
	"sync"
	"time"
)

// SilencePolicy rolls over once the audio level has stayed under a threshold
// for the configured window. Used for adaptive chunking: segments break at
// natural pauses instead of a fixed timer.
type SilencePolicy struct {
	threshold float64       // RMS amplitude, 0..1 against int16 full scale
	window    time.Duration // how long the level must stay under threshold
	minLength time.Duration // never roll a segment shorter than this

	mu           sync.Mutex
	begun        time.Time
	silenceSince time.Time
	inSilence    bool
}

func NewSilencePolicy(threshold float64, window, minLength time.Duration) *SilencePolicy {
	return &SilencePolicy{
		threshold: threshold,
		window:    window,
		minLength: minLength,
	}
}

func (p *SilencePolicy) Begin(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.begun = now
	p.inSilence = false
}

func (p *SilencePolicy) Observe(frame []byte, now time.Time) {
	level := rmsLevel(frame)

	p.mu.Lock()
	defer p.mu.Unlock()

	if level >= p.threshold {
		p.inSilence = false
		return
	}
	if !p.inSilence {
		p.inSilence = true
		p.silenceSince = now
	}
}

func (p *SilencePolicy) ShouldRoll(now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.begun.IsZero() || now.Sub(p.begun) < p.minLength {
		return false
	}
	return p.inSilence && now.Sub(p.silenceSince) >= p.window
}

// rmsLevel computes the root-mean-square amplitude of a LINEAR16 frame,
// normalized against int16 full scale.
func rmsLevel(frame []byte) float64 {
	samples := len(frame) / 2
	if samples == 0 {
		return 0
	}
	var sum float64
	for i := 0; i+1 < len(frame); i += 2 {
		s := float64(int16(binary.LittleEndian.Uint16(frame[i:])))
		sum += s * s
	}
	return math.Sqrt(sum/float64(samples)) / float64(math.MaxInt16)
}
