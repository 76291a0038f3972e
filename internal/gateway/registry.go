package gateway

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Registry holds the configured gateway adapters, keyed by provider type.
type Registry struct {
	gateways map[ProviderType]Gateway
	mu       sync.RWMutex
}

// NewRegistry creates an empty gateway registry.
func NewRegistry() *Registry {
	return &Registry{gateways: make(map[ProviderType]Gateway)}
}

// Register adds a gateway to the registry.
func (r *Registry) Register(providerType ProviderType, g Gateway) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.gateways[providerType] = g
	log.Info().
		Str("provider", string(providerType)).
		Str("name", g.Name()).
		Strs("operations", operationsToStrings(g.SupportedOperations())).
		Msg("registered payment gateway")
}

// Get returns a gateway by provider type.
func (r *Registry) Get(providerType ProviderType) (Gateway, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.gateways[providerType]
	if !ok {
		return nil, &Error{
			Code:    "provider_not_found",
			Message: fmt.Sprintf("gateway %s not registered", providerType),
		}
	}
	return g, nil
}

// List returns all registered provider types.
func (r *Registry) List() []ProviderType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var types []ProviderType
	for t := range r.gateways {
		types = append(types, t)
	}
	return types
}

func operationsToStrings(ops []Operation) []string {
	var strs []string
	for _, op := range ops {
		strs = append(strs, string(op))
	}
	return strs
}
