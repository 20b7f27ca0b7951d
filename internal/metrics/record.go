// Package metrics implements the per-upstream Metrics Record (spec §4.2):
// request counters, a latency accumulator, and last-error memory. It is
// deliberately process-local and unpersisted — restart loses it by design.
package metrics

import (
	"sync"
	"time"
)

// Record holds the running counters for one upstream. All mutation happens
// through the methods below, each of which takes the Record's own mutex;
// the breaker is synchronized separately by its own lock.
type Record struct {
	mu sync.Mutex

	TotalRequests    int64
	SuccessCount     int64
	FailCount        int64
	TotalLatencyMs   int64
	LastErrorMessage string
	LastErrorAt      time.Time
	HasLastError     bool
}

// AttemptStart records the start of a new attempt.
func (r *Record) AttemptStart() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.TotalRequests++
}

// AttemptSuccess records a successful attempt that took d.
func (r *Record) AttemptSuccess(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.SuccessCount++
	r.TotalLatencyMs += d.Milliseconds()
}

// AttemptFailure records a failed attempt that took d, remembering err.
func (r *Record) AttemptFailure(d time.Duration, now time.Time, err string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FailCount++
	r.TotalLatencyMs += d.Milliseconds()
	r.LastErrorMessage = err
	r.LastErrorAt = now
	r.HasLastError = true
}

// Snapshot is an immutable copy of a Record, safe to read without a lock.
type Snapshot struct {
	TotalRequests    int64
	SuccessCount     int64
	FailCount        int64
	TotalLatencyMs   int64
	LastErrorMessage string
	LastErrorAt      time.Time
	HasLastError     bool
}

// Snapshot returns a consistent point-in-time copy of the record.
func (r *Record) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		TotalRequests:    r.TotalRequests,
		SuccessCount:     r.SuccessCount,
		FailCount:        r.FailCount,
		TotalLatencyMs:   r.TotalLatencyMs,
		LastErrorMessage: r.LastErrorMessage,
		LastErrorAt:      r.LastErrorAt,
		HasLastError:     r.HasLastError,
	}
}
