// Package selector implements the health-aware upstream selector (spec
// §4.6, component C6): given a set of already-tried indices and a routing
// mode, returns the next upstream to try. Grounded on the teacher's
// internal/router/simple.go (weighted shuffle) and the shared-cursor idiom
// in internal/router/round_robin.go, generalized to the three named modes.
package selector

import (
	"math/rand"
	"sync"
	"time"

	"github.com/nexusgw/nexus-gateway/internal/health"
	"github.com/nexusgw/nexus-gateway/internal/pool"
)

// Mode is one of the three routing modes (spec §4.6).
type Mode string

const (
	ModeSmart      Mode = "smart"
	ModeFastest    Mode = "fastest"
	ModeRoundRobin Mode = "round_robin"
)

// ParseMode maps an X-Routing-Mode header value to a Mode, falling back to
// ModeSmart for anything unrecognized (spec §6).
func ParseMode(header string) Mode {
	switch Mode(header) {
	case ModeFastest:
		return ModeFastest
	case ModeRoundRobin, "round-robin":
		return ModeRoundRobin
	default:
		return ModeSmart
	}
}

// weightFloor is the minimum weight a smart-mode candidate ever gets, so an
// unattractive but untried upstream is still eventually tried (spec §4.6).
const weightFloor = 0.1

// Selector picks the next candidate upstream for one request. It holds the
// process-wide round-robin cursor and its own rand source; both are shared
// across all requests and must be used under the selector's lock.
type Selector struct {
	pool *pool.Pool
	cfg  health.Config

	mu     sync.Mutex
	rng    *rand.Rand
	cursor int
}

// New constructs a Selector over pool.
func New(p *pool.Pool) *Selector {
	return &Selector{
		pool: p,
		cfg:  health.DefaultConfig(),
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// candidate pairs an upstream with its pool index, since callers need both.
type candidate struct {
	index int
	u     *pool.Upstream
}

// candidates returns every tracked upstream not in tried, enabled, and
// currently available, per the candidate-set rule in spec §4.6. Checking
// IsAvailable here is where selection moves an OPEN breaker whose reset
// timeout has elapsed to HALF_OPEN; GET /v1/models calls the same check and
// can make the same transition.
func (s *Selector) candidates(tried map[int]bool, now time.Time) []candidate {
	all := s.pool.All()
	out := make([]candidate, 0, len(all))
	for i, u := range all {
		if tried[i] {
			continue
		}
		if !u.IsAvailable(now) {
			continue
		}
		out = append(out, candidate{index: i, u: u})
	}
	return out
}

// Select returns the next upstream's pool index to try, or ok=false if no
// candidate is available.
func (s *Selector) Select(tried map[int]bool, mode Mode) (index int, ok bool) {
	now := time.Now()
	cands := s.candidates(tried, now)
	if len(cands) == 0 {
		return 0, false
	}
	if len(cands) == 1 {
		return cands[0].index, true
	}

	switch mode {
	case ModeRoundRobin:
		return s.selectRoundRobin(cands)
	case ModeFastest:
		return s.selectFastest(cands, now)
	default:
		return s.selectSmart(cands, now)
	}
}

// selectRoundRobin advances a process-wide cursor over the full sequence
// until it lands on a candidate, so repeated calls over an unchanging
// candidate set visit every member before repeating any (spec §8).
func (s *Selector) selectRoundRobin(cands []candidate) (int, bool) {
	inCandidates := make(map[int]bool, len(cands))
	for _, c := range cands {
		inCandidates[c.index] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	total := s.pool.Len()
	for i := 0; i < total; i++ {
		idx := s.cursor % total
		s.cursor++
		if inCandidates[idx] {
			return idx, true
		}
	}
	return 0, false
}

// selectFastest returns the highest-scoring candidate, ties broken by
// ascending original index.
func (s *Selector) selectFastest(cands []candidate, now time.Time) (int, bool) {
	best := cands[0]
	bestScore := health.Score(best.u, now, s.cfg)
	for _, c := range cands[1:] {
		score := health.Score(c.u, now, s.cfg)
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	return best.index, true
}

// selectSmart performs weighted-random selection: weight_i = max(floor,
// score_i), picked with probability weight_i / sum(weights).
func (s *Selector) selectSmart(cands []candidate, now time.Time) (int, bool) {
	weights := make([]float64, len(cands))
	var total float64
	for i, c := range cands {
		w := health.Score(c.u, now, s.cfg)
		if w < weightFloor {
			w = weightFloor
		}
		weights[i] = w
		total += w
	}

	s.mu.Lock()
	r := s.rng.Float64() * total
	s.mu.Unlock()

	var cum float64
	for i, w := range weights {
		cum += w
		if r < cum {
			return cands[i].index, true
		}
	}
	return cands[len(cands)-1].index, true
}
