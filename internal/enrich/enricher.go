package enrich

import (
	"context"
	"fmt"
	"net/url"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/openshift-assisted/inventory-sync/internal/backend"
	"github.com/openshift-assisted/inventory-sync/internal/domain/entity"
	"github.com/openshift-assisted/inventory-sync/internal/normalize"
)

const DefaultConcurrency = 3

// metricsKey is where the per VM metrics document is attached.
const metricsKey = "metrics"

var identityKeys = []string{"id", "vm_id", "uuid"}

// Enricher attaches the per VM metrics document to records that come without one.
// Metrics are best effort: only an authentication failure aborts the batch.
type Enricher struct {
	api         backend.API
	concurrency int
	logger      logr.Logger
}

func NewEnricher(api backend.API, concurrency int, logger logr.Logger) Enricher {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	return Enricher{
		api:         api,
		concurrency: concurrency,
		logger:      logger,
	}
}

func (e Enricher) Enrich(ctx context.Context, provider entity.Provider, records []interface{}) ([]interface{}, error) {
	ret := make([]interface{}, len(records))
	copy(ret, records)

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(e.concurrency)

	for i, item := range records {
		record, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		if _, found := record[metricsKey]; found {
			continue
		}

		id := identity(record)
		if id == "" {
			continue
		}

		group.Go(func() error {
			metrics, err := fetchMetrics(gctx, e.api, provider, id)

			switch {
			case backend.IsAuth(err):
				return err
			case err != nil:
				e.logger.V(1).Info("Failed to load vm metrics", "provider", provider, "id", id, "err", err.Error())

				return nil
			case metrics == nil:
				return nil
			}

			enriched := normalize.CopyRecord(record)
			enriched[metricsKey] = metrics

			ret[i] = enriched

			return nil
		})
	}

	err := group.Wait()
	if err != nil {
		return nil, err
	}

	return ret, nil
}

func identity(record normalize.Record) string {
	for _, key := range identityKeys {
		id, err := normalize.ExtractString(record, key)
		if err == nil {
			return id
		}
	}

	return ""
}

// fetchMetrics returns the metrics document of a VM, nil when there is none.
func fetchMetrics(ctx context.Context, api backend.API, provider entity.Provider, id string) (interface{}, error) {
	resp, err := api.Get(ctx, fmt.Sprintf("/%s/vms/%s/metrics", provider, url.PathEscape(id)), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s metrics: %w", id, err)
	}

	if resp.Empty {
		return nil, nil
	}

	var ret interface{}

	err = backend.Decode(resp, &ret)
	if err != nil {
		return nil, err
	}

	return ret, nil
}
