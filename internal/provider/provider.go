// Package provider defines cloud billing provider interfaces.
package provider

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/costlens/backend/internal/model"
	"github.com/costlens/backend/internal/normalizer"
)

// Provider fetches billing data from one cloud. Implementations return raw
// rows in the provider's native column names; the normalizer maps them onto
// the canonical record shape exactly as it does for file uploads.
type Provider interface {
	// Name returns the provider name ("aws", "azure", ...).
	Name() string

	// Health checks provider connectivity.
	Health(ctx context.Context) HealthStatus

	// FetchCosts retrieves daily billing rows for the given window.
	FetchCosts(ctx context.Context, window model.DateRange) ([]normalizer.RawRow, error)

	// Close cleans up provider resources.
	Close() error
}

// HealthStatus represents provider health.
type HealthStatus struct {
	Healthy     bool           `json:"healthy"`
	Message     string         `json:"message"`
	LastChecked time.Time      `json:"last_checked"`
	Details     map[string]any `json:"details,omitempty"`
}

// Registry manages registered providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider; a second registration under the same name
// replaces the first.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get returns a provider by name.
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// All returns the registered providers sorted by name.
func (r *Registry) All() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]Provider, 0, len(names))
	for _, name := range names {
		out = append(out, r.providers[name])
	}
	return out
}

// Close closes every registered provider.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.providers {
		p.Close()
	}
}
