package snapshot

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/jonboulle/clockwork"

	"github.com/openshift-assisted/inventory-sync/internal/backend"
	"github.com/openshift-assisted/inventory-sync/internal/domain/entity"
)

// DefaultStaleReason is used when the server flags a snapshot stale without saying why.
const DefaultStaleReason = "snapshot flagged stale by the server"

// Params selects how a provider snapshot is retrieved.
type Params struct {
	// Legacy switches to a live VM query instead of the precomputed snapshot.
	Legacy bool
	// Hosts scopes a legacy batch query.
	Hosts []string
}

// Raw is a fetched snapshot before normalization.
type Raw struct {
	Records     []interface{}
	GeneratedAt *time.Time
	Source      entity.SnapshotSource
	Stale       bool
	StaleReason *string
	HostsStatus entity.HostsStatus
	// Empty is the "no snapshot yet" signal: callers keep what they have.
	Empty bool
}

// Fetcher retrieves provider snapshots and threads their metadata through.
type Fetcher struct {
	api    backend.API
	clock  clockwork.Clock
	logger logr.Logger
}

func NewFetcher(api backend.API, clock clockwork.Clock, logger logr.Logger) Fetcher {
	return Fetcher{
		api:    api,
		clock:  clock,
		logger: logger,
	}
}

func (f Fetcher) Fetch(ctx context.Context, provider entity.Provider, params Params) (Raw, error) {
	if params.Legacy {
		return f.fetchLegacy(ctx, provider, params)
	}

	resp, err := f.api.Get(ctx, fmt.Sprintf("/%s/snapshot", provider), nil)
	if err != nil {
		return Raw{}, fmt.Errorf("failed to get %s snapshot: %w", provider, err)
	}

	if resp.Empty {
		f.logger.V(1).Info("No snapshot yet", "provider", provider)

		return Raw{Empty: true, Records: []interface{}{}, HostsStatus: entity.HostsStatus{}}, nil
	}

	var payload interface{}

	err = backend.Decode(resp, &payload)
	if err != nil {
		return Raw{}, fmt.Errorf("failed to decode %s snapshot: %w", provider, err)
	}

	ret := readMetadata(payload)

	if ret.Source == "" {
		ret.Source = entity.SourceMemory
	}

	if ret.Empty {
		f.logger.V(1).Info("Snapshot flagged empty", "provider", provider)

		ret.Records = []interface{}{}

		return ret, nil
	}

	ret.Records, err = ExtractRecords(payload, provider)
	if err != nil {
		return Raw{}, fmt.Errorf("failed to read %s snapshot: %w", provider, err)
	}

	if ret.Stale && len(ret.HostsStatus) == 0 && (ret.StaleReason == nil || *ret.StaleReason == "") {
		reason := DefaultStaleReason
		ret.StaleReason = &reason
	}

	f.logger.V(2).Info("Snapshot fetched", "provider", provider, "records", len(ret.Records), "source", ret.Source, "stale", ret.Stale)

	return ret, nil
}

// fetchLegacy runs the live query: GET /{provider}/vms, or the per host batch for hyperv.
func (f Fetcher) fetchLegacy(ctx context.Context, provider entity.Provider, params Params) (Raw, error) {
	path := fmt.Sprintf("/%s/vms", provider)

	var query url.Values

	if provider == entity.ProviderHyperV {
		path += "/batch"

		if len(params.Hosts) > 0 {
			query = url.Values{"hosts": []string{strings.Join(params.Hosts, ",")}}
		}
	}

	resp, err := f.api.Get(ctx, path, query)
	if err != nil {
		return Raw{}, fmt.Errorf("failed to query %s vms: %w", provider, err)
	}

	now := f.clock.Now()
	ret := Raw{
		Records:     []interface{}{},
		GeneratedAt: &now,
		Source:      entity.SourceLegacy,
		HostsStatus: entity.HostsStatus{},
	}

	if resp.Empty {
		return ret, nil
	}

	var payload interface{}

	err = backend.Decode(resp, &payload)
	if err != nil {
		return Raw{}, fmt.Errorf("failed to decode %s vms: %w", provider, err)
	}

	ret.Records, err = ExtractRecords(payload, provider)
	if err != nil {
		return Raw{}, fmt.Errorf("failed to read %s vms: %w", provider, err)
	}

	return ret, nil
}

// FetchHosts returns the raw host records of GET /{provider}/hosts.
func (f Fetcher) FetchHosts(ctx context.Context, provider entity.Provider) ([]interface{}, error) {
	resp, err := f.api.Get(ctx, fmt.Sprintf("/%s/hosts", provider), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s hosts: %w", provider, err)
	}

	if resp.Empty {
		return []interface{}{}, nil
	}

	var payload interface{}

	err = backend.Decode(resp, &payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s hosts: %w", provider, err)
	}

	if envelope, ok := payload.(map[string]interface{}); ok {
		if results, ok := envelope["results"].([]interface{}); ok {
			return results, nil
		}
	}

	ret, err := ExtractRecords(payload, provider)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s hosts: %w", provider, err)
	}

	return ret, nil
}
