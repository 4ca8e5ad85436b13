package chunking

import "time"

// Policy decides when the current capture segment should roll over into a
// new chunk. The session controller calls Begin when a segment opens,
// Observe for every captured frame, and ShouldRoll on its check cadence.
type Policy interface {
	Begin(now time.Time)
	Observe(frame []byte, now time.Time)
	ShouldRoll(now time.Time) bool
}
