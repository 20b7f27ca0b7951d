// Package failover implements the per-request failover loop (spec §4.7,
// component C7): select an upstream, stream it, and on first-token timeout
// or pre-commit failure advance to the next candidate. Once any chunk has
// been emitted to the caller the request is irrevocably committed to that
// upstream — no other upstream can continue a stream coherently.
//
// Grounded on the teacher's client.go ChatCompletionStream retry/fallback
// loop (same shape: pick, dispatch, backoff, swap on failure) but rewritten
// around the commit-on-first-token rule, which the teacher's loop does not
// have — the teacher retries with a fresh HTTP call even mid-stream. This is
// a deliberate behavior change the spec requires, not a bug; see DESIGN.md.
package failover

import (
	"context"
	"time"

	"github.com/nexusgw/nexus-gateway/internal/backoff"
	"github.com/nexusgw/nexus-gateway/internal/breaker"
	"github.com/nexusgw/nexus-gateway/internal/health"
	"github.com/nexusgw/nexus-gateway/internal/pool"
	"github.com/nexusgw/nexus-gateway/internal/selector"
	"github.com/nexusgw/nexus-gateway/internal/telemetry"
	"github.com/nexusgw/nexus-gateway/pkg/ferr"
	"github.com/nexusgw/nexus-gateway/pkg/upstream"
)

// DefaultFirstTokenTimeout is the failover window per spec §4.7.
const DefaultFirstTokenTimeout = 8 * time.Second

// Metadata is the one pre-first-chunk event naming the committed upstream
// (spec §6).
type Metadata struct {
	Provider    string
	LatencyMs   int64
	Circuit     string
	HealthScore int
	RequestID   string
}

// Emitter receives the engine's streaming output. It has no HTTP-framing
// knowledge; that belongs to the caller (internal/api).
type Emitter interface {
	Metadata(m Metadata)
	Chunk(text string)
}

// Request bundles the validated, pass-through request fields the engine
// needs, independent of streaming mode.
type Request struct {
	Messages  []upstream.Message
	Options   upstream.Options
	Mode      selector.Mode
	RequestID string
}

// Config tunes the engine's timeouts and backoff curve.
type Config struct {
	FirstTokenTimeout time.Duration
	Backoff           backoff.Config
	Health            health.Config
}

// DefaultConfig returns spec defaults.
func DefaultConfig() Config {
	return Config{
		FirstTokenTimeout: DefaultFirstTokenTimeout,
		Backoff:           backoff.DefaultConfig(),
		Health:            health.DefaultConfig(),
	}
}

// Engine runs the failover loop against a fixed pool and selector.
type Engine struct {
	pool     *pool.Pool
	selector *selector.Selector
	cfg      Config
}

// New constructs an Engine.
func New(p *pool.Pool, s *selector.Selector, cfg Config) *Engine {
	return &Engine{pool: p, selector: s, cfg: cfg}
}

// attemptOutcome classifies how one dispatch to one upstream ended.
type attemptOutcome int

const (
	outcomeSuccess attemptOutcome = iota
	outcomePreCommitFailure
	outcomeCommittedFailure
	outcomeCancelledPreCommit
	outcomeCancelledCommitted
)

// RunStream executes the failover loop in streaming mode, pushing metadata
// and chunk events to emit as it goes. It returns (started, err): started
// is true once any chunk reached the caller (after which err, if any, is a
// committed-stream error and no failover was attempted), and also when an
// upstream ended its sequence normally without any chunk (err is nil and
// nothing was emitted); started is false and err is non-nil on exhaustion.
func (e *Engine) RunStream(ctx context.Context, req Request, emit Emitter) (started bool, err error) {
	tried := make(map[int]bool)
	attempt := 0

	for {
		idx, ok := e.selector.Select(tried, req.Mode)
		if !ok {
			if len(tried) == 0 {
				break
			}
			if attempt > 0 {
				sleep(ctx, backoff.Delay(attempt, e.cfg.Backoff))
			}
			idx, ok = e.selector.Select(tried, req.Mode)
			if !ok {
				break
			}
		}

		attempt++
		tried[idx] = true

		if attempt > 1 {
			sleep(ctx, backoff.Delay(attempt-1, e.cfg.Backoff))
		}

		u := e.pool.At(idx)
		outcome, committedErr := e.attemptStream(ctx, u, req, emit)
		switch outcome {
		case outcomeSuccess:
			return true, nil
		case outcomeCommittedFailure:
			return true, committedErr
		case outcomeCancelledPreCommit, outcomeCancelledCommitted:
			// Client disconnected (spec kind 6): not a system error, and
			// trying another upstream for a gone caller serves nothing.
			return outcome == outcomeCancelledCommitted, ctx.Err()
		case outcomePreCommitFailure:
			continue
		}
	}

	return false, ferr.Exhausted("no upstream available to serve this request")
}

// attemptStream dispatches one attempt to u, streaming chunks to emit once
// the first-token deadline has been cleared.
func (e *Engine) attemptStream(ctx context.Context, u *pool.Upstream, req Request, emit Emitter) (attemptOutcome, error) {
	if u.Breaker.State() == breaker.StateHalfOpen {
		u.Breaker.BeginHalfOpenAttempt()
	}

	u.Metrics.AttemptStart()
	start := time.Now()

	stream, err := u.Adapter.Stream(ctx, req.Messages, req.Options)
	if err != nil {
		if ctx.Err() != nil {
			e.recordFailure(u, start, "cancelled")
			return outcomeCancelledPreCommit, nil
		}
		e.recordFailure(u, start, err.Error())
		return outcomePreCommitFailure, nil
	}
	defer func() { _ = stream.Close() }()

	firstCtx, cancel := context.WithTimeout(ctx, e.cfg.FirstTokenTimeout)
	chunk, gotChunk, err := stream.Next(firstCtx)
	cancel()

	if err != nil {
		if ctx.Err() != nil {
			// The request's own context ended, not just the first-token
			// deadline: the client disconnected (spec kind 6).
			e.recordFailure(u, start, "cancelled")
			return outcomeCancelledPreCommit, nil
		}
		// First-token deadline elapsed, or the adapter failed before any chunk.
		e.recordFailure(u, start, err.Error())
		return outcomePreCommitFailure, nil
	}
	if !gotChunk {
		// Sequence ended with no chunks before the deadline: success with
		// an empty body (spec §4.7 step 6, rare case).
		e.recordSuccess(u, start)
		return outcomeSuccess, nil
	}

	// Commit: emit metadata, then the first chunk.
	emit.Metadata(Metadata{
		Provider:    u.DisplayName(),
		LatencyMs:   time.Since(start).Milliseconds(),
		Circuit:     u.Breaker.State().String(),
		HealthScore: int(health.Score(u, time.Now(), e.cfg.Health) * 100),
		RequestID:   req.RequestID,
	})
	emit.Chunk(chunk.Text)

	for {
		chunk, gotChunk, err := stream.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				// Client disconnected after commit: bookkeeping only, no
				// error frame to write (spec kind 6).
				e.recordFailure(u, start, "cancelled")
				return outcomeCancelledCommitted, ctx.Err()
			}
			// Committed-stream error: no failover, terminate.
			e.recordFailure(u, start, err.Error())
			return outcomeCommittedFailure, ferr.Committed(u.DisplayName(), err.Error())
		}
		if !gotChunk {
			e.recordSuccess(u, start)
			return outcomeSuccess, nil
		}
		emit.Chunk(chunk.Text)
	}
}

// RunComplete executes the identical failover iteration in non-streaming
// mode: there is no first-token deadline, but backoff and candidate
// iteration are unchanged. Returns the final payload on success or an
// exhaustion error.
func (e *Engine) RunComplete(ctx context.Context, req Request) (*upstream.FinalResponse, error) {
	tried := make(map[int]bool)
	attempt := 0

	for {
		idx, ok := e.selector.Select(tried, req.Mode)
		if !ok {
			if len(tried) == 0 {
				break
			}
			if attempt > 0 {
				sleep(ctx, backoff.Delay(attempt, e.cfg.Backoff))
			}
			idx, ok = e.selector.Select(tried, req.Mode)
			if !ok {
				break
			}
		}

		attempt++
		tried[idx] = true

		if attempt > 1 {
			sleep(ctx, backoff.Delay(attempt-1, e.cfg.Backoff))
		}

		u := e.pool.At(idx)
		if u.Breaker.State() == breaker.StateHalfOpen {
			u.Breaker.BeginHalfOpenAttempt()
		}

		u.Metrics.AttemptStart()
		start := time.Now()

		resp, err := u.Adapter.Complete(ctx, req.Messages, req.Options)
		if err != nil {
			if ctx.Err() != nil {
				// Client disconnected (spec kind 6): bookkeep and stop, no
				// point trying another upstream for a caller that's gone.
				e.recordFailure(u, start, "cancelled")
				return nil, ctx.Err()
			}
			e.recordFailure(u, start, err.Error())
			continue
		}
		e.recordSuccess(u, start)
		return resp, nil
	}

	return nil, ferr.Exhausted("no upstream available to serve this request")
}

func (e *Engine) recordSuccess(u *pool.Upstream, start time.Time) {
	u.Metrics.AttemptSuccess(time.Since(start))
	u.Breaker.RecordSuccess()
	telemetry.FailoverAttemptsTotal.WithLabelValues(u.DisplayName(), "success").Inc()
}

func (e *Engine) recordFailure(u *pool.Upstream, start time.Time, msg string) {
	now := time.Now()
	u.Metrics.AttemptFailure(time.Since(start), now, msg)
	u.Breaker.RecordFailure(now)
	telemetry.FailoverAttemptsTotal.WithLabelValues(u.DisplayName(), "failure").Inc()
}

// sleep blocks for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
