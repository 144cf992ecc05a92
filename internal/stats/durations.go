// Package stats tracks generation timings for display.
package stats

import (
	"sync"
	"time"

	"github.com/influxdata/tdigest"
)

// DurationTracker keeps a t-digest of task durations for the lifetime of
// the process. Safe for concurrent use.
type DurationTracker struct {
	mu     sync.Mutex
	digest *tdigest.TDigest
	count  int
	last   time.Duration
	max    time.Duration
}

// NewDurationTracker returns an empty tracker.
func NewDurationTracker() *DurationTracker {
	return &DurationTracker{
		digest: tdigest.NewWithCompression(100),
	}
}

// Record adds one task duration. Negative durations are ignored.
func (t *DurationTracker) Record(d time.Duration) {
	if d < 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.digest.Add(float64(d.Nanoseconds()), 1)
	t.count++
	t.last = d
	if d > t.max {
		t.max = d
	}
}

// Count returns the number of recorded durations.
func (t *DurationTracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// Last returns the most recently recorded duration.
func (t *DurationTracker) Last() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// Quantile returns the estimated q-quantile (0..1), or 0 if nothing has
// been recorded.
func (t *DurationTracker) Quantile(q float64) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.count == 0 {
		return 0
	}
	return time.Duration(t.digest.Quantile(q))
}

// Summary is a point-in-time view of the tracker.
type Summary struct {
	Count int
	Last  time.Duration
	P50   time.Duration
	P95   time.Duration
	Max   time.Duration
}

// Summary returns the current summary.
func (t *DurationTracker) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Summary{Count: t.count, Last: t.last, Max: t.max}
	if t.count > 0 {
		s.P50 = time.Duration(t.digest.Quantile(0.50))
		s.P95 = time.Duration(t.digest.Quantile(0.95))
	}
	return s
}
