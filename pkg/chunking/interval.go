package chunking

import (
	"sync"
	"time"
)

// DefaultChunkInterval is the primary pipeline's fixed chunk length.
const DefaultChunkInterval = 2 * time.Minute

// IntervalPolicy rolls over after a fixed wall-clock interval.
type IntervalPolicy struct {
	interval time.Duration

	mu    sync.Mutex
	begun time.Time
}

func NewIntervalPolicy(interval time.Duration) *IntervalPolicy {
	if interval <= 0 {
		interval = DefaultChunkInterval
	}
	return &IntervalPolicy{interval: interval}
}

func (p *IntervalPolicy) Begin(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.begun = now
}

func (p *IntervalPolicy) Observe(frame []byte, now time.Time) {}

func (p *IntervalPolicy) ShouldRoll(now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.begun.IsZero() {
		return false
	}
	return now.Sub(p.begun) >= p.interval
}
