package backend

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Router selects which backend serves a request. Registration order is a
// fixed priority list (earlier = higher priority); a user-set preferred
// backend, when available, wins over everything.
type Router struct {
	mu        sync.RWMutex
	backends  []Backend
	preferred string
}

// Status is a point-in-time snapshot of one backend for listings.
type Status struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Port      int    `json:"port"`
	CostGB    int    `json:"vram_gb"`
	Active    bool   `json:"active"`
}

// NewRouter creates a router over the given backends in priority order.
func NewRouter(backends ...Backend) *Router {
	return &Router{backends: backends}
}

// Get returns a backend by name, or ErrUnknownBackend.
func (r *Router) Get(name string) (Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, b := range r.backends {
		if b.Name() == name {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, name)
}

// Active resolves the backend to use now: the preferred backend when set and
// available, otherwise the first available backend in registration order.
// Returns ErrNoBackendAvailable when every probe fails. Availability is
// probed on the calling path; no failure state persists between calls.
func (r *Router) Active(ctx context.Context) (Backend, error) {
	r.mu.RLock()
	preferred := r.preferred
	backends := r.backends
	r.mu.RUnlock()

	if preferred != "" {
		for _, b := range backends {
			if b.Name() != preferred {
				continue
			}
			if b.IsAvailable(ctx) {
				log.Debug().Str("backend", preferred).Msg("using preferred backend")
				return b, nil
			}
			log.Warn().Str("backend", preferred).Msg("preferred backend not available, falling back")
			break
		}
	}

	for _, b := range backends {
		if b.IsAvailable(ctx) {
			log.Debug().Str("backend", b.Name()).Msg("using available backend")
			return b, nil
		}
	}

	return nil, ErrNoBackendAvailable
}

// SetPreferred sets the preferred backend. An empty name clears the
// preference. Unknown names are rejected.
func (r *Router) SetPreferred(name string) error {
	if name == "" {
		r.mu.Lock()
		r.preferred = ""
		r.mu.Unlock()
		return nil
	}

	if _, err := r.Get(name); err != nil {
		return err
	}

	r.mu.Lock()
	r.preferred = name
	r.mu.Unlock()

	log.Info().Str("backend", name).Msg("preferred backend set")
	return nil
}

// Preferred returns the current preferred backend name ("" when unset).
func (r *Router) Preferred() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.preferred
}

// Backends returns the registered backends in priority order.
func (r *Router) Backends() []Backend {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.backends
}

// List probes every backend and returns status snapshots.
func (r *Router) List(ctx context.Context) []Status {
	activeName := ""
	if active, err := r.Active(ctx); err == nil {
		activeName = active.Name()
	}

	backends := r.Backends()
	statuses := make([]Status, 0, len(backends))
	for _, b := range backends {
		statuses = append(statuses, Status{
			Name:      b.Name(),
			Available: b.IsAvailable(ctx),
			Port:      b.Port(),
			CostGB:    b.CostGB(),
			Active:    b.Name() == activeName,
		})
	}
	return statuses
}
