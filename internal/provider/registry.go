package provider

import (
	"fmt"

	"github.com/openshift-assisted/inventory-sync/internal/domain/entity"
)

// Registry holds the adapters of the enabled providers.
type Registry struct {
	adapters map[entity.Provider]Adapter
}

func NewRegistry(adapters ...Adapter) Registry {
	ret := Registry{
		adapters: make(map[entity.Provider]Adapter, len(adapters)),
	}

	for _, a := range adapters {
		ret.adapters[a.Provider()] = a
	}

	return ret
}

func (r Registry) Get(provider entity.Provider) (Adapter, error) {
	ret, ok := r.adapters[provider]
	if !ok {
		return nil, fmt.Errorf("provider %q is not enabled", provider)
	}

	return ret, nil
}

// Providers returns the registered providers in display order.
func (r Registry) Providers() []entity.Provider {
	ret := []entity.Provider{}

	for _, provider := range entity.Providers {
		if _, ok := r.adapters[provider]; ok {
			ret = append(ret, provider)
		}
	}

	return ret
}
