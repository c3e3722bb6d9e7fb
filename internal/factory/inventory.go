package factory

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/openshift-assisted/inventory-sync/internal/backend"
	"github.com/openshift-assisted/inventory-sync/internal/cache"
	"github.com/openshift-assisted/inventory-sync/internal/common"
	"github.com/openshift-assisted/inventory-sync/internal/config"
	"github.com/openshift-assisted/inventory-sync/internal/discovery"
	"github.com/openshift-assisted/inventory-sync/internal/domain/entity"
	"github.com/openshift-assisted/inventory-sync/internal/domain/repo/rejected"
	"github.com/openshift-assisted/inventory-sync/internal/enrich"
	"github.com/openshift-assisted/inventory-sync/internal/inventory"
	"github.com/openshift-assisted/inventory-sync/internal/log"
	"github.com/openshift-assisted/inventory-sync/internal/normalize"
	"github.com/openshift-assisted/inventory-sync/internal/provider"
	"github.com/openshift-assisted/inventory-sync/internal/refresh"
	"github.com/openshift-assisted/inventory-sync/internal/snapshot"
	"github.com/openshift-assisted/inventory-sync/pkg/pipeline"
)

// Inventory is everything a command needs to drive the enabled providers.
type Inventory struct {
	Aggregate *inventory.Aggregate
	Adapters  provider.Registry
	Store     *cache.Store

	api        backend.API
	classifier normalize.Classifier
}

// DetailLoader returns the single VM loader of provider.
func (i Inventory) DetailLoader(p entity.Provider) (*enrich.DetailLoader, error) {
	normalizer, err := normalize.New(p, i.classifier)
	if err != nil {
		return nil, err
	}

	return enrich.NewDetailLoader(i.api, normalizer, log.Component("detail", string(p))), nil
}

// CreateInventory wires the back end client, the cache, the refresh controller and one
// adapter and controller per enabled provider.
func CreateInventory(ctx context.Context, conf *config.Config, registry prometheus.Registerer, notify func(inventory.Notice)) (Inventory, common.CloseFunc, error) {
	clock := clockwork.NewRealClock()
	closers := []common.CloseFunc{}

	closeAll := func(ctx context.Context) error {
		return common.CloseAll(ctx, closers...)
	}

	fail := func(err error) (Inventory, common.CloseFunc, error) {
		_ = closeAll(ctx)

		return Inventory{}, nil, err
	}

	api, shutdown, err := CreateBackendClient(conf.Backend)
	if err != nil {
		return fail(fmt.Errorf("failed to create back end client: %w", err))
	}

	closers = append(closers, shutdown)

	store, shutdown, err := CreateStore(ctx, conf.Cache, registry, clock)
	if err != nil {
		return fail(fmt.Errorf("failed to create cache: %w", err))
	}

	closers = append(closers, shutdown)

	errorProcessing, err := createErrorProcessing(ctx, conf, registry, clock)
	if err != nil {
		return fail(err)
	}

	fetcher := snapshot.NewFetcher(api, clock, log.Component("snapshot", ""))

	fetch, err := DecorateFetch(provider.NewFetchStage(fetcher), registry, conf.Backend.Retry)
	if err != nil {
		return fail(err)
	}

	metrics, err := provider.NewMetrics(registry, clock, conf.Cache.TTL, pipeline.MetricsConfig{Namespace: Namespace})
	if err != nil {
		return fail(fmt.Errorf("failed to create provider metrics: %w", err))
	}

	sizeGauge, err := inventory.NewSizeGauge(registry, Namespace)
	if err != nil {
		return fail(fmt.Errorf("failed to create inventory metrics: %w", err))
	}

	classifier := normalize.NewPrefixClassifier(conf.Environment.Prefixes)
	refresher := refresh.NewController(api, clock, conf.Refresh.PollInterval, log.Component("refresh", ""))

	adapters := []provider.Adapter{}
	controllers := []*inventory.Controller{}

	for _, p := range conf.EnabledProviders() {
		providerConf := conf.ProviderConfig(p)

		normalizer, err := normalize.New(p, classifier)
		if err != nil {
			return fail(err)
		}

		opts := []provider.Option{
			provider.WithLegacy(providerConf.Legacy),
			provider.WithErrorProcessing(errorProcessing),
			provider.WithMetrics(metrics),
			provider.WithLogger(log.Component("adapter", string(p))),
		}

		switch p {
		case entity.ProviderHyperV:
			opts = append(opts, provider.WithDiscovery(discovery.NewResolver(api, p, discovery.WithLogger(log.Component("discovery", string(p))))))
		case entity.ProviderCedia:
			opts = append(opts, provider.WithEnrichment(enrich.NewEnricher(api, conf.Enrichment.Concurrency, log.Component("enrich", string(p)))))
		}

		adapter := provider.New(normalizer, fetch, fetcher, opts...)
		adapters = append(adapters, adapter)

		controllers = append(controllers, inventory.NewController(adapter, store, refresher,
			inventory.WithLogger(log.Component("inventory", string(p))),
			inventory.WithClock(clock),
			inventory.WithTTL(providerConf.TTL),
			inventory.WithDebounce(conf.Search.Debounce),
			inventory.WithNotifier(notify),
			inventory.WithSizeGauge(sizeGauge),
		))
	}

	aggregate := inventory.NewAggregate(controllers...)

	closers = append(closers, func(context.Context) error {
		aggregate.Close()

		return nil
	})

	ret := Inventory{
		Aggregate:  aggregate,
		Adapters:   provider.NewRegistry(adapters...),
		Store:      store,
		api:        api,
		classifier: classifier,
	}

	return ret, closeAll, nil
}

// createErrorProcessing sends rejected records to the dead letter bucket when one is configured.
func createErrorProcessing(ctx context.Context, conf *config.Config, registry prometheus.Registerer, clock clockwork.Clock) (pipeline.ErrorProcessing, error) {
	var dlq pipeline.ErrorProcessing

	if conf.DeadLetterQueue.Bucket != "" {
		client, err := CreateS3Client(ctx, conf.DeadLetterQueue)
		if err != nil {
			return nil, fmt.Errorf("failed to create dead letter client: %w", err)
		}

		dlq = rejected.NewS3Writer(client, clock, conf.DeadLetterQueue.Bucket, conf.DeadLetterQueue.KeyPrefix)
	}

	ret, err := DecorateErrorProcessing(dlq, registry, log.Component("rejected", ""), conf.Backend.Retry)
	if err != nil {
		return nil, fmt.Errorf("failed to create error processing: %w", err)
	}

	return ret, nil
}
