package factory

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/openshift-assisted/inventory-sync/internal/cache"
	"github.com/openshift-assisted/inventory-sync/internal/common"
	"github.com/openshift-assisted/inventory-sync/internal/config"
	"github.com/openshift-assisted/inventory-sync/internal/log"
)

// CreateStore returns the cache store backed by memory or valkey.
func CreateStore(ctx context.Context, conf config.Cache, registry prometheus.Registerer, clock clockwork.Clock) (*cache.Store, common.CloseFunc, error) {
	counter, err := cache.NewRequestCounter(registry, Namespace)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create cache metrics: %w", err)
	}

	opts := []cache.Option{
		cache.WithClock(clock),
		cache.WithLogger(log.Component("cache", "")),
		cache.WithRequestCounter(counter),
	}

	switch conf.Type {
	case config.CacheTypeValkey:
		client, shutdown, err := CreateValkeyClient(ctx, conf.Valkey)
		if err != nil {
			return nil, nil, err
		}

		return cache.NewStore(cache.NewValkeyKV(client, conf.Valkey.Retention), opts...), shutdown, nil
	default:
		return cache.NewStore(cache.NewMemoryKV(), opts...), nil, nil
	}
}
