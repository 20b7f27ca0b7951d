// Package lifecycle implements the process-wide in-flight counter and
// shutdown latch (spec §4.8, component C8). Grounded on the teacher's
// cmd/server/main.go signal-handling block, generalized into a reusable
// type so it can be driven directly in tests without a real HTTP server.
package lifecycle

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultShutdownTimeout is the grace period spec §4.8 mandates.
const DefaultShutdownTimeout = 10 * time.Second

// Controller tracks concurrent chat requests and the shutdown latch.
type Controller struct {
	inFlight     atomic.Int64
	shuttingDown atomic.Bool

	mu     sync.Mutex
	drain  chan struct{}
	closed bool
}

// New constructs a Controller accepting new requests.
func New() *Controller {
	return &Controller{drain: make(chan struct{})}
}

// ShuttingDown reports whether the controller has begun draining.
func (c *Controller) ShuttingDown() bool {
	return c.shuttingDown.Load()
}

// InFlight returns the current number of in-flight requests.
func (c *Controller) InFlight() int64 {
	return c.inFlight.Load()
}

// Enter admits one request if not shutting down, incrementing the in-flight
// counter exactly once. Returns ok=false if the request must be rejected.
// On ok=true, the caller MUST call the returned leave func exactly once,
// typically via defer, to guarantee the exactly-once decrement discipline
// spec §4.8 requires even on error/cancellation paths.
func (c *Controller) Enter() (leave func(), ok bool) {
	if c.shuttingDown.Load() {
		return nil, false
	}
	c.inFlight.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() {
			if c.inFlight.Add(-1) == 0 {
				c.mu.Lock()
				if c.shuttingDown.Load() && !c.closed {
					c.closed = true
					close(c.drain)
				}
				c.mu.Unlock()
			}
		})
	}, true
}

// BeginShutdown flips the shutdown latch, stopping new admissions, then
// blocks until in-flight reaches zero or timeout elapses. Returns true if
// drain completed cleanly, false if the timeout was hit.
func (c *Controller) BeginShutdown(timeout time.Duration) bool {
	c.shuttingDown.Store(true)

	if c.inFlight.Load() == 0 {
		return true
	}

	select {
	case <-c.drain:
		return true
	case <-time.After(timeout):
		return false
	}
}
