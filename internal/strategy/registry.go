package strategy

import (
	"fmt"
	"sync"

	"MarketWatch/pkg/logger"
)

// ErrNotFound reports a lookup for an unregistered strategy.
var ErrNotFound = fmt.Errorf("strategy not found")

// Registry holds the active strategies. Registration order is preserved and
// drives the deterministic tie-break in the consensus evaluator.
type Registry struct {
	mu         sync.RWMutex
	order      []string
	strategies map[string]Strategy
	loader     Loader
	log        *logger.Logger
}

// NewRegistry creates a registry. loader may be nil when directory loading
// is disabled.
func NewRegistry(loader Loader, log *logger.Logger) *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
		loader:     loader,
		log:        log.With("strategy-registry"),
	}
}

// Register adds a strategy. Registering an existing name is an error; use
// Update to replace.
func (r *Registry) Register(s Strategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := s.Name()
	if _, ok := r.strategies[name]; ok {
		return fmt.Errorf("strategy %q already registered", name)
	}
	r.order = append(r.order, name)
	r.strategies[name] = s
	r.log.Info("strategy registered", logger.String("name", name))
	return nil
}

// Update replaces a registered strategy in place, keeping its position.
func (r *Registry) Update(s Strategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := s.Name()
	if _, ok := r.strategies[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	r.strategies[name] = s
	return nil
}

// Remove unregisters a strategy by name.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.strategies[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	delete(r.strategies, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.log.Info("strategy removed", logger.String("name", name))
	return nil
}

// Get returns a strategy by name.
func (r *Registry) Get(name string) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return s, nil
}

// All returns the strategies in registration order.
func (r *Registry) All() []Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Strategy, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.strategies[name])
	}
	return out
}

// Len returns the number of registered strategies.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Reload re-runs the loader and registers anything new it found. Existing
// registrations are updated, never dropped.
func (r *Registry) Reload(dir string) error {
	if r.loader == nil {
		return nil
	}
	loaded, err := r.loader.Load(dir)
	if err != nil {
		return fmt.Errorf("reload strategies: %w", err)
	}
	for _, s := range loaded {
		if err := r.Update(s); err != nil {
			if regErr := r.Register(s); regErr != nil {
				return regErr
			}
		}
	}
	r.log.Info("strategies reloaded", logger.Int("loaded", len(loaded)))
	return nil
}
