package exchange

import (
	"fmt"

	"MarketWatch/internal/domain/repository"
)

// ErrUnknownExchange is returned when a lookup names an exchange that was
// never registered. Callers treat it as a configuration error, not a
// transient failure.
var ErrUnknownExchange = fmt.Errorf("unknown exchange")

// Registry holds the configured exchange clients. Registration order is
// preserved so pipeline runs iterate exchanges deterministically.
type Registry struct {
	order   []string
	clients map[string]repository.ExchangeClient
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]repository.ExchangeClient)}
}

// Register adds a client under its own name. Registering the same name twice
// replaces the previous client without changing its position.
func (r *Registry) Register(client repository.ExchangeClient) {
	name := client.Name()
	if _, ok := r.clients[name]; !ok {
		r.order = append(r.order, name)
	}
	r.clients[name] = client
}

// Get returns the client registered under name.
func (r *Registry) Get(name string) (repository.ExchangeClient, error) {
	client, ok := r.clients[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownExchange, name)
	}
	return client, nil
}

// Names returns exchange names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Close closes every registered client, returning the first error.
func (r *Registry) Close() error {
	var first error
	for _, name := range r.order {
		if err := r.clients[name].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
