package enrich

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/go-logr/logr"

	"github.com/openshift-assisted/inventory-sync/internal/backend"
	"github.com/openshift-assisted/inventory-sync/internal/common"
	"github.com/openshift-assisted/inventory-sync/internal/domain/entity"
	"github.com/openshift-assisted/inventory-sync/internal/normalize"
)

// DetailLoader loads one VM with its metrics. Starting a load cancels the one in flight,
// so only the latest selection ever completes.
type DetailLoader struct {
	api        backend.API
	normalizer normalize.Normalizer
	logger     logr.Logger

	lock   sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

func NewDetailLoader(api backend.API, normalizer normalize.Normalizer, logger logr.Logger) *DetailLoader {
	return &DetailLoader{
		api:        api,
		normalizer: normalizer,
		logger:     logger,
	}
}

func (l *DetailLoader) Load(ctx context.Context, id string) (entity.VM, error) {
	ctx, seq := l.start(ctx)
	defer l.done(seq)

	provider := l.normalizer.Provider()

	resp, err := l.api.Get(ctx, fmt.Sprintf("/%s/vms/%s", provider, url.PathEscape(id)), nil)
	if err != nil {
		return entity.VM{}, fmt.Errorf("failed to get %s vm %s: %w", provider, id, err)
	}

	if resp.Empty {
		return entity.VM{}, fmt.Errorf("%w: %s vm %s", common.ErrNotFound, provider, id)
	}

	var payload interface{}

	err = backend.Decode(resp, &payload)
	if err != nil {
		return entity.VM{}, err
	}

	record, ok := payload.(map[string]interface{})
	if !ok {
		return entity.VM{}, fmt.Errorf("%w: %s vm %s is not an object", common.ErrTransport, provider, id)
	}

	metrics, err := fetchMetrics(ctx, l.api, provider, id)

	switch {
	case ctx.Err() != nil:
		return entity.VM{}, ctx.Err()
	case backend.IsAuth(err):
		return entity.VM{}, err
	case err != nil:
		l.logger.V(1).Info("Failed to load vm metrics, showing details only", "provider", provider, "id", id, "err", err.Error())
	case metrics != nil:
		record = normalize.CopyRecord(record)
		record[metricsKey] = metrics
	}

	return l.normalizer.Normalize(record), nil
}

// Cancel stops the load in flight, if any.
func (l *DetailLoader) Cancel() {
	l.lock.Lock()
	defer l.lock.Unlock()

	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}

func (l *DetailLoader) start(ctx context.Context) (context.Context, uint64) {
	ctx, cancel := context.WithCancel(ctx)

	l.lock.Lock()
	defer l.lock.Unlock()

	if l.cancel != nil {
		l.cancel()
	}

	l.seq++
	l.cancel = cancel

	return ctx, l.seq
}

func (l *DetailLoader) done(seq uint64) {
	l.lock.Lock()
	defer l.lock.Unlock()

	if l.seq == seq && l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}
