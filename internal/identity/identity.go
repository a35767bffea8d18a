// Package identity issues opaque stable identifiers, standing in for the
// anonymous sign-in a hosted auth service would provide.
package identity

import (
	"sync"

	"github.com/google/uuid"
)

// Provider hands out one stable id per instance. GetOrCreate is idempotent:
// the first call mints the id, later calls return the same one.
type Provider struct {
	mu      sync.Mutex
	current string
	newID   func() string
}

func NewProvider() *Provider {
	return &Provider{newID: uuid.NewString}
}

// NewProviderWithGenerator is test-only for deterministic ids.
func NewProviderWithGenerator(newID func() string) *Provider {
	return &Provider{newID: newID}
}

// GetOrCreate returns the session identity, minting it on first use.
func (p *Provider) GetOrCreate() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == "" {
		p.current = p.newID()
	}
	return p.current
}

// Current returns the identity if one has been issued.
func (p *Provider) Current() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, p.current != ""
}

// Clear drops the identity; the next GetOrCreate mints a fresh one.
func (p *Provider) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = ""
}
