// Package config discovers tracked upstreams from the process environment
// (spec §6, "environment-observed invariants") and wires each discovered key
// into a pool.Upstream backed by the matching provider adapter. Grounded on
// the teacher's internal/secret/env/provider.go lookup idiom, generalized
// from a single-key Get into a full-environment scan.
package config

import (
	"fmt"
	"net/http"
	"os"
	"regexp"
	"sort"

	"github.com/nexusgw/nexus-gateway/internal/pool"
	"github.com/nexusgw/nexus-gateway/pkg/upstream"
	"github.com/nexusgw/nexus-gateway/pkg/upstream/cerebras"
	"github.com/nexusgw/nexus-gateway/pkg/upstream/gemini"
	"github.com/nexusgw/nexus-gateway/pkg/upstream/groq"
	"github.com/nexusgw/nexus-gateway/pkg/upstream/openrouter"
)

// envPrefixes maps the fixed provider_kind enumeration (spec §3) to the
// upper-case environment-variable prefix it is discovered under.
var envPrefixes = map[pool.Kind]string{
	pool.KindGroq:       "GROQ",
	pool.KindGemini:     "GEMINI",
	pool.KindOpenRouter: "OPENROUTER",
	pool.KindCerebras:   "CEREBRAS",
}

// keyVarPattern matches "<PREFIX>_KEY_<N>" or "<PREFIX>_API_KEY_<N>".
var keyVarPattern = regexp.MustCompile(`^([A-Z]+)_(KEY|API_KEY)_([1-9][0-9]*)$`)

// discoveredKey is one (provider, instance) pair found in the environment,
// before resolving the preferred/fallback duplicate.
type discoveredKey struct {
	kind       pool.Kind
	instanceID string
	apiKey     string
	preferred  bool // true for "_KEY_", false for "_API_KEY_"
}

// Discover scans os.Environ() for upstream credentials and builds a
// pool.Pool with one entry per discovered (provider, instance). Duplicate
// (provider, instance) pairs resolve to the "_KEY_" form over "_API_KEY_",
// per spec §6.
func Discover(client *http.Client) (*pool.Pool, error) {
	prefixToKind := make(map[string]pool.Kind, len(envPrefixes))
	for kind, prefix := range envPrefixes {
		prefixToKind[prefix] = kind
	}

	found := make(map[string]discoveredKey) // keyed by "kind/instanceID"
	for _, kv := range os.Environ() {
		name, value, ok := splitEnv(kv)
		if !ok || value == "" {
			continue
		}
		m := keyVarPattern.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		kind, ok := prefixToKind[m[1]]
		if !ok {
			continue
		}
		preferred := m[2] == "KEY"
		key := string(kind) + "/" + m[3]
		if existing, already := found[key]; already && existing.preferred && !preferred {
			continue // preferred form already recorded, ignore the fallback
		}
		found[key] = discoveredKey{kind: kind, instanceID: m[3], apiKey: value, preferred: preferred}
	}

	keys := make([]string, 0, len(found))
	for k := range found {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	upstreams := make([]*pool.Upstream, 0, len(found))
	for _, k := range keys {
		dk := found[k]
		adapter, err := buildAdapter(dk.kind, dk.apiKey, client)
		if err != nil {
			return nil, err
		}
		upstreams = append(upstreams, &pool.Upstream{
			Kind:       dk.kind,
			InstanceID: dk.instanceID,
			Adapter:    adapter,
		})
	}

	return pool.New(upstreams), nil
}

func buildAdapter(kind pool.Kind, apiKey string, client *http.Client) (upstream.Adapter, error) {
	switch kind {
	case pool.KindGroq:
		return groq.New(apiKey, client), nil
	case pool.KindGemini:
		return gemini.New(apiKey, client), nil
	case pool.KindOpenRouter:
		return openrouter.New(apiKey, client), nil
	case pool.KindCerebras:
		return cerebras.New(apiKey, client), nil
	default:
		return nil, fmt.Errorf("config: no adapter constructor for provider kind %q", kind)
	}
}

// splitEnv splits a "NAME=VALUE" entry from os.Environ.
func splitEnv(kv string) (name, value string, ok bool) {
	for i := 0; i < len(kv); i++ {
		if kv[i] == '=' {
			return kv[:i], kv[i+1:], true
		}
	}
	return "", "", false
}
