package chunking

import (
	"testing"
	"time"
)

func TestIntervalPolicyRollsAfterInterval(t *testing.T) {
	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	policy := NewIntervalPolicy(2 * time.Minute)

	policy.Begin(base)
	if policy.ShouldRoll(base.Add(time.Minute)) {
		t.Error("must not roll before the interval elapses")
	}
	if !policy.ShouldRoll(base.Add(2 * time.Minute)) {
		t.Error("must roll once the interval has elapsed")
	}
}

func TestIntervalPolicyResetsOnBegin(t *testing.T) {
	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	policy := NewIntervalPolicy(2 * time.Minute)

	policy.Begin(base)
	policy.Begin(base.Add(2 * time.Minute))
	if policy.ShouldRoll(base.Add(3 * time.Minute)) {
		t.Error("Begin must restart the window")
	}
	if !policy.ShouldRoll(base.Add(4 * time.Minute)) {
		t.Error("must roll after the restarted window elapses")
	}
}

func TestIntervalPolicyBeforeBegin(t *testing.T) {
	policy := NewIntervalPolicy(2 * time.Minute)
	if policy.ShouldRoll(time.Now()) {
		t.Error("must not roll before any segment began")
	}
}

func TestIntervalPolicyDefault(t *testing.T) {
	policy := NewIntervalPolicy(0)
	if policy.interval != DefaultChunkInterval {
		t.Errorf("default interval = %v, want %v", policy.interval, DefaultChunkInterval)
	}
}
