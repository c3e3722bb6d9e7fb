package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/openshift-assisted/inventory-sync/internal/common"
	"github.com/openshift-assisted/inventory-sync/internal/domain/entity"
	"github.com/openshift-assisted/inventory-sync/internal/normalize"
	"github.com/openshift-assisted/inventory-sync/internal/snapshot"
	"github.com/openshift-assisted/inventory-sync/pkg/pipeline"
)

//go:generate mockgen -source=adapter.go -package=mock -destination=./mock/mock_adapter.go

// Adapter hides how one back end is fetched and normalized.
type Adapter interface {
	Provider() entity.Provider
	// Scope returns the hosts a refresh job covers, nil meaning all of them.
	Scope(ctx context.Context) ([]string, error)
	// Fetch returns a normalized snapshot. An Empty snapshot carries no data.
	Fetch(ctx context.Context) (entity.Snapshot, error)
	FetchHosts(ctx context.Context) ([]entity.Host, error)
}

type HostResolver interface {
	DiscoverHosts(ctx context.Context) ([]string, error)
}

type HostSource interface {
	FetchHosts(ctx context.Context, provider entity.Provider) ([]interface{}, error)
}

// RecordEnricher completes raw records before normalization.
type RecordEnricher interface {
	Enrich(ctx context.Context, provider entity.Provider, records []interface{}) ([]interface{}, error)
}

type FetchRequest struct {
	Provider entity.Provider
	Params   snapshot.Params
}

// FetchStage is the snapshot retrieval step shared by every adapter.
type FetchStage = pipeline.Stage[FetchRequest, snapshot.Raw]

func NewFetchStage(fetcher snapshot.Fetcher) FetchStage {
	return pipeline.StageFunc[FetchRequest, snapshot.Raw](func(ctx context.Context, req FetchRequest) (snapshot.Raw, error) {
		return fetcher.Fetch(ctx, req.Provider, req.Params)
	})
}

type adapter struct {
	provider   entity.Provider
	fetch      FetchStage
	hosts      HostSource
	normalizer normalize.Normalizer

	legacy          bool
	resolver        HostResolver
	enricher        RecordEnricher
	errorProcessing pipeline.ErrorProcessing
	metrics         *Metrics
	logger          logr.Logger
}

type Option func(*adapter)

// WithLegacy switches to the live VM query.
func WithLegacy(legacy bool) Option {
	return func(a *adapter) {
		a.legacy = legacy
	}
}

// WithDiscovery resolves the host list before fetching. A failed discovery aborts the fetch.
func WithDiscovery(resolver HostResolver) Option {
	return func(a *adapter) {
		a.resolver = resolver
	}
}

func WithEnrichment(enricher RecordEnricher) Option {
	return func(a *adapter) {
		a.enricher = enricher
	}
}

// WithErrorProcessing receives fetch failures and rejected records.
func WithErrorProcessing(p pipeline.ErrorProcessing) Option {
	return func(a *adapter) {
		a.errorProcessing = p
	}
}

func WithMetrics(m *Metrics) Option {
	return func(a *adapter) {
		a.metrics = m
	}
}

func WithLogger(logger logr.Logger) Option {
	return func(a *adapter) {
		a.logger = logger
	}
}

func New(normalizer normalize.Normalizer, fetch FetchStage, hosts HostSource, opts ...Option) Adapter {
	ret := &adapter{
		provider:   normalizer.Provider(),
		fetch:      fetch,
		hosts:      hosts,
		normalizer: normalizer,
		logger:     logr.Discard(),
	}

	for _, opt := range opts {
		opt(ret)
	}

	return ret
}

func (a *adapter) Provider() entity.Provider {
	return a.provider
}

func (a *adapter) Scope(ctx context.Context) ([]string, error) {
	if a.resolver == nil {
		return nil, nil
	}

	hosts, err := a.resolver.DiscoverHosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to discover %s hosts: %w", a.provider, err)
	}

	return hosts, nil
}

func (a *adapter) Fetch(ctx context.Context) (entity.Snapshot, error) {
	params := snapshot.Params{Legacy: a.legacy}

	// without hosts there is nothing to fetch
	hosts, err := a.Scope(ctx)
	if err != nil {
		a.report(ctx, err, categoryOf(err, common.DiscoveryCategory), nil)

		return entity.Snapshot{}, err
	}

	params.Hosts = hosts

	raw, err := a.fetch.Run(ctx, FetchRequest{Provider: a.provider, Params: params})
	if err != nil {
		a.report(ctx, err, categoryOf(err, common.TransportCategory), nil)

		return entity.Snapshot{}, err
	}

	a.metrics.observeStaleness(a.provider, raw)

	if raw.Empty {
		a.logger.V(1).Info("Snapshot is empty, keeping previous data")

		return entity.Snapshot{
			Data:        map[entity.Provider][]entity.VM{},
			Source:      raw.Source,
			HostsStatus: entity.HostsStatus{},
			Empty:       true,
		}, nil
	}

	records := raw.Records

	if a.enricher != nil {
		records, err = a.enricher.Enrich(ctx, a.provider, records)
		if err != nil {
			a.report(ctx, err, categoryOf(err, common.TransportCategory), nil)

			return entity.Snapshot{}, fmt.Errorf("failed to enrich %s records: %w", a.provider, err)
		}
	}

	vms, rejected := normalize.NormalizeBatch(a.normalizer, records)

	for _, r := range rejected {
		a.report(ctx, r.Err, common.NormalizationCategory, []pipeline.Input{rejectedInput(a.provider, r)})
	}

	a.metrics.countRecords(a.provider, len(vms), len(rejected))

	if len(rejected) > 0 {
		a.logger.Info("Records rejected during normalization", "kept", len(vms), "rejected", len(rejected))
	}

	ret := entity.Snapshot{
		Data:        map[entity.Provider][]entity.VM{a.provider: vms},
		GeneratedAt: raw.GeneratedAt,
		Source:      raw.Source,
		Stale:       raw.Stale,
		StaleReason: raw.StaleReason,
		HostsStatus: raw.HostsStatus,
	}

	if ret.HostsStatus == nil {
		ret.HostsStatus = entity.HostsStatus{}
	}

	return ret, nil
}

func (a *adapter) FetchHosts(ctx context.Context) ([]entity.Host, error) {
	records, err := a.hosts.FetchHosts(ctx, a.provider)
	if err != nil {
		return nil, err
	}

	return normalize.NormalizeHosts(a.normalizer, records), nil
}

// report sends err to the error processing. Its own failures are only logged.
func (a *adapter) report(ctx context.Context, err error, category string, inputs []pipeline.Input) {
	if a.errorProcessing == nil || errors.Is(err, context.Canceled) {
		return
	}

	pErr := pipeline.AsProcessingError(err)
	if pErr.Category == pipeline.UnknownCategory {
		pErr = pipeline.NewErrProcessingError(err, category, inputs)
	}

	pErr = pErr.WithSource(string(a.provider))

	err = a.errorProcessing.Process(ctx, pErr)
	if err != nil {
		a.logger.Error(err, "Failed to process error", "category", pErr.Category)
	}
}

func categoryOf(err error, fallback string) string {
	switch {
	case errors.Is(err, common.ErrAuth):
		return common.AuthCategory
	case errors.Is(err, common.ErrPermission):
		return common.PermissionCategory
	case errors.Is(err, common.ErrNoHosts):
		return common.DiscoveryCategory
	default:
		return fallback
	}
}

func rejectedInput(provider entity.Provider, r normalize.Rejected) pipeline.Input {
	value, err := json.Marshal(r.Raw)
	if err != nil {
		value = []byte(fmt.Sprintf("%v", r.Raw))
	}

	return pipeline.Input{
		Source: string(provider),
		Key:    fmt.Sprintf("record-%d", r.Index),
		Value:  value,
	}
}
