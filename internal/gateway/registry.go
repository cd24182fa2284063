// Package gateway wires the per-provider adapters into a registry resolved
// once at startup. Provider selection is a caller-supplied enum value.
package gateway

import (
	"fmt"

	"github.com/mahmoudaladin7/E-Commerce/internal/domain"
	"github.com/mahmoudaladin7/E-Commerce/internal/port"
)

type Registry struct {
	adapters map[domain.Provider]port.Gateway
}

func NewRegistry(adapters ...port.Gateway) *Registry {
	m := make(map[domain.Provider]port.Gateway, len(adapters))
	for _, a := range adapters {
		m[a.Name()] = a
	}
	return &Registry{adapters: m}
}

func (r *Registry) Resolve(provider domain.Provider) (port.Gateway, error) {
	adapter, ok := r.adapters[provider]
	if !ok {
		return nil, fmt.Errorf("provider[%s]: %w", provider, domain.ErrUnknownProvider)
	}
	return adapter, nil
}
