package discovery

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-logr/logr"

	"github.com/openshift-assisted/inventory-sync/internal/backend"
	"github.com/openshift-assisted/inventory-sync/internal/common"
	"github.com/openshift-assisted/inventory-sync/internal/domain/entity"
)

// Strategy is one way of listing the hosts of a provider.
type Strategy interface {
	Name() string
	Hosts(ctx context.Context) ([]string, error)
}

// Resolver walks its strategies in order and returns the first non empty host set.
type Resolver struct {
	provider   entity.Provider
	strategies []Strategy
	logger     logr.Logger
}

type Option func(*Resolver)

func WithLogger(logger logr.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithStrategies replaces the default chain.
func WithStrategies(strategies ...Strategy) Option {
	return func(r *Resolver) {
		r.strategies = strategies
	}
}

// NewResolver builds the config → hosts → batch chain of provider.
func NewResolver(api backend.API, provider entity.Provider, opts ...Option) *Resolver {
	ret := &Resolver{
		provider: provider,
		strategies: []Strategy{
			NewConfigStrategy(api, provider),
			NewHostsStrategy(api, provider),
			NewBatchStrategy(api, provider),
		},
		logger: logr.Discard(),
	}

	for _, opt := range opts {
		opt(ret)
	}

	return ret
}

// DiscoverHosts returns the lower cased, trimmed, deduplicated and sorted host set.
// An authentication failure stops the chain. ErrNoHosts is returned when every
// strategy failed or came back empty; callers must not fetch VMs in that case.
func (r *Resolver) DiscoverHosts(ctx context.Context) ([]string, error) {
	failures := []error{}

	for _, strategy := range r.strategies {
		hosts, err := strategy.Hosts(ctx)
		if err != nil {
			if backend.IsAuth(err) || ctx.Err() != nil {
				return nil, err
			}

			r.logger.V(1).Info("Host discovery strategy failed", "provider", r.provider, "strategy", strategy.Name(), "err", err.Error())

			failures = append(failures, fmt.Errorf("%s: %w", strategy.Name(), err))

			continue
		}

		hosts = Canonical(hosts)
		if len(hosts) > 0 {
			r.logger.V(2).Info("Hosts discovered", "provider", r.provider, "strategy", strategy.Name(), "count", len(hosts))

			return hosts, nil
		}
	}

	if len(failures) == 0 {
		return nil, common.ErrNoHosts
	}

	return nil, fmt.Errorf("%w: %w", common.ErrNoHosts, errors.Join(failures...))
}

// Canonical lower cases, trims, deduplicates and sorts host identifiers.
func Canonical(hosts []string) []string {
	ret := make([]string, 0, len(hosts))

	for _, host := range hosts {
		host = strings.ToLower(strings.TrimSpace(host))
		if host != "" {
			ret = append(ret, host)
		}
	}

	slices.Sort(ret)

	return slices.Compact(ret)
}
