package graph

import (
	"fmt"
	"sync"
)

// GlobalParameters is the per-run context shared by every node: a read-only
// credential map and a single error slot a node sets to request that the run
// abort.
//
// The credential map is copied on construction and never mutated. The error
// slot is guarded so that the first failure wins.
type GlobalParameters struct {
	apiKeys map[string]string

	mu  sync.Mutex
	err string
}

// NewGlobalParameters creates run parameters with the given credentials,
// keyed by provider or key name.
func NewGlobalParameters(apiKeys map[string]string) *GlobalParameters {
	keys := make(map[string]string, len(apiKeys))
	for k, v := range apiKeys {
		keys[k] = v
	}
	return &GlobalParameters{apiKeys: keys}
}

// APIKey returns the credential stored under name. Empty credentials count
// as missing.
func (p *GlobalParameters) APIKey(name string) (string, bool) {
	if p == nil {
		return "", false
	}
	v, ok := p.apiKeys[name]
	return v, ok && v != ""
}

// KeyNames returns the names of all configured credentials.
func (p *GlobalParameters) KeyNames() []string {
	names := make([]string, 0, len(p.apiKeys))
	for k := range p.apiKeys {
		names = append(names, k)
	}
	return names
}

// Fail records a run-fatal error. Only the first call has an effect.
func (p *GlobalParameters) Fail(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err == "" {
		p.err = msg
	}
}

// Failf is Fail with formatting.
func (p *GlobalParameters) Failf(format string, args ...any) {
	p.Fail(fmt.Sprintf(format, args...))
}

// Err returns the recorded fatal error, or "" when none.
func (p *GlobalParameters) Err() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Failed reports whether a fatal error has been recorded.
func (p *GlobalParameters) Failed() bool {
	return p.Err() != ""
}

// scoped returns parameters sharing p's credentials with an empty error slot
// of their own. The credential map is never written, so sharing it is safe.
func (p *GlobalParameters) scoped() *GlobalParameters {
	if p == nil {
		return NewGlobalParameters(nil)
	}
	return &GlobalParameters{apiKeys: p.apiKeys}
}
