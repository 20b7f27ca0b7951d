// Package pool holds the process-wide, read-only-after-init sequence of
// Tracked Upstreams (spec §3/§4, component C4). It is grounded on the
// teacher's internal/pool/pool.go (a pooling idiom) and the ordering logic
// in internal/router/base.go's AddDeployment, repurposed here as the
// upstream registry rather than an object pool.
package pool

import (
	"sort"
	"sync"
	"time"

	"github.com/nexusgw/nexus-gateway/internal/breaker"
	"github.com/nexusgw/nexus-gateway/internal/metrics"
	"github.com/nexusgw/nexus-gateway/pkg/upstream"
)

// Kind is one of the fixed provider_kind enumeration values (spec §3).
type Kind string

const (
	KindGroq       Kind = "groq"
	KindGemini     Kind = "gemini"
	KindOpenRouter Kind = "openrouter"
	KindCerebras   Kind = "cerebras"
)

// PriorityBonus is the static operator-knowledge table (spec §4.5). It is
// keyed on Kind directly, never inferred from a display name.
var PriorityBonus = map[Kind]float64{
	KindCerebras:   0.15,
	KindGroq:       0.10,
	KindOpenRouter: 0.05,
	KindGemini:     0.00,
}

// Upstream is one tracked upstream: its identity, its adapter, and its
// mutable health state (spec §3 "Tracked Upstream").
type Upstream struct {
	Kind       Kind
	InstanceID string
	Adapter    upstream.Adapter

	Metrics *metrics.Record
	Breaker *breaker.Breaker

	mu      sync.RWMutex
	enabled bool
}

// DisplayName is the stable name used for observability and the toggle API.
func (u *Upstream) DisplayName() string {
	return string(u.Kind) + "-" + u.InstanceID
}

// Enabled reports the current enabled flag.
func (u *Upstream) Enabled() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.enabled
}

// SetEnabled flips the enabled flag, mutable any number of times via the
// toggle API.
func (u *Upstream) SetEnabled(v bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.enabled = v
}

// IsAvailable reports whether the upstream can be attempted right now:
// enabled and the breaker allows it.
func (u *Upstream) IsAvailable(now time.Time) bool {
	return u.Enabled() && u.Breaker.IsAvailable(now)
}

// Pool is the ordered, process-wide sequence of tracked upstreams. Created
// once at startup and never resized; only the upstreams' own fields mutate
// after that.
type Pool struct {
	upstreams []*Upstream
}

// New builds a Pool from upstreams, sorting by descending provider priority
// then ascending numeric instance ID (spec §3 "Ordering"). All entries
// start enabled.
func New(upstreams []*Upstream) *Pool {
	ordered := make([]*Upstream, len(upstreams))
	copy(ordered, upstreams)
	sort.SliceStable(ordered, func(i, j int) bool {
		pi := PriorityBonus[ordered[i].Kind]
		pj := PriorityBonus[ordered[j].Kind]
		if pi != pj {
			return pi > pj
		}
		return instanceIDLess(ordered[i].InstanceID, ordered[j].InstanceID)
	})
	for _, u := range ordered {
		if u.Metrics == nil {
			u.Metrics = &metrics.Record{}
		}
		if u.Breaker == nil {
			u.Breaker = breaker.New(breaker.DefaultConfig())
		}
		u.SetEnabled(true)
	}
	return &Pool{upstreams: ordered}
}

func instanceIDLess(a, b string) bool {
	// Instance IDs are decimal strings unique within a provider; compare
	// numerically so "2" sorts before "10".
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

// Len returns the number of tracked upstreams.
func (p *Pool) Len() int { return len(p.upstreams) }

// At returns the upstream at index i.
func (p *Pool) At(i int) *Upstream { return p.upstreams[i] }

// All returns the full ordered sequence. Callers must not mutate the slice.
func (p *Pool) All() []*Upstream { return p.upstreams }

// IndexByDisplayName finds an upstream's index by its display name, used by the toggle
// API. Returns -1 if not found.
func (p *Pool) IndexByDisplayName(name string) int {
	for i, u := range p.upstreams {
		if u.DisplayName() == name {
			return i
		}
	}
	return -1
}
