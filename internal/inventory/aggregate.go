package inventory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/openshift-assisted/inventory-sync/internal/common"
	"github.com/openshift-assisted/inventory-sync/internal/domain/entity"
)

// Aggregate drives every enabled provider at once.
type Aggregate struct {
	controllers []*Controller
}

func NewAggregate(controllers ...*Controller) *Aggregate {
	return &Aggregate{controllers: controllers}
}

func (a *Aggregate) Controllers() []*Controller {
	return a.controllers
}

// Controller returns the controller of provider, nil when it is not enabled.
func (a *Aggregate) Controller(provider entity.Provider) *Controller {
	for _, c := range a.controllers {
		if c.Provider() == provider {
			return c
		}
	}

	return nil
}

// Load loads every provider, see Controller.Load.
func (a *Aggregate) Load(ctx context.Context) (map[entity.Provider]View, error) {
	return a.each(ctx, func(ctx context.Context, c *Controller) (View, error) {
		return c.Load(ctx)
	})
}

// FetchAll fetches every provider concurrently. One failure never cancels the others.
// The result holds a view for every provider; the error is a common.PartialFailure when
// some failed, the authentication error as soon as one reported it, or all the errors
// joined when none succeeded.
func (a *Aggregate) FetchAll(ctx context.Context, opts FetchOptions) (map[entity.Provider]View, error) {
	return a.each(ctx, func(ctx context.Context, c *Controller) (View, error) {
		return c.Fetch(ctx, opts)
	})
}

func (a *Aggregate) each(ctx context.Context, fn func(context.Context, *Controller) (View, error)) (map[entity.Provider]View, error) {
	var lock sync.Mutex

	views := make(map[entity.Provider]View, len(a.controllers))
	failed := map[string]error{}

	// plain group: no sibling cancellation
	group := errgroup.Group{}

	for _, c := range a.controllers {
		group.Go(func() error {
			view, err := fn(ctx, c)
			if err != nil && view.Provider == "" {
				view = c.View()
			}

			lock.Lock()
			defer lock.Unlock()

			views[c.Provider()] = view

			if err != nil {
				failed[string(c.Provider())] = err
			}

			return nil
		})
	}

	_ = group.Wait()

	return views, a.combine(failed)
}

func (a *Aggregate) combine(failed map[string]error) error {
	if len(failed) == 0 {
		return nil
	}

	errs := make([]error, 0, len(failed))

	for _, c := range a.controllers {
		err, ok := failed[string(c.Provider())]
		if !ok {
			continue
		}

		if errors.Is(err, common.ErrAuth) {
			return err
		}

		errs = append(errs, err)
	}

	if len(failed) == len(a.controllers) {
		return fmt.Errorf("every provider failed: %w", errors.Join(errs...))
	}

	return common.PartialFailure{Failed: failed}
}

// Close closes every controller.
func (a *Aggregate) Close() {
	for _, c := range a.controllers {
		c.Close()
	}
}

// ProviderStatus is the health of one provider as shown on the overview.
type ProviderStatus struct {
	VMs         int                   `json:"vms"`
	Source      entity.SnapshotSource `json:"source"`
	Stale       bool                  `json:"stale"`
	Error       string                `json:"error,omitempty"`
	FailedHosts []string              `json:"failed_hosts,omitempty"`
}

// Rollup is the cross provider overview.
type Rollup struct {
	Total         int                                `json:"total"`
	PowerStates   map[string]int                     `json:"power_states"`
	ByProvider    map[entity.Provider]int            `json:"by_provider"`
	ByEnvironment map[string]int                     `json:"by_environment"`
	Status        map[entity.Provider]ProviderStatus `json:"status"`
}

func NewRollup(views map[entity.Provider]View) Rollup {
	ret := Rollup{
		PowerStates:   map[string]int{},
		ByProvider:    map[entity.Provider]int{},
		ByEnvironment: map[string]int{},
		Status:        map[entity.Provider]ProviderStatus{},
	}

	for provider, view := range views {
		status := ProviderStatus{
			VMs:         len(view.VMs),
			Source:      view.Source,
			Stale:       view.Stale,
			FailedHosts: view.HostsStatus.Failing(),
		}

		if view.Err != nil {
			status.Error = common.UserMessage(view.Err)
		}

		if len(status.FailedHosts) == 0 {
			status.FailedHosts = nil
		}

		ret.Status[provider] = status
		ret.ByProvider[provider] = len(view.VMs)
		ret.Total += len(view.VMs)

		for _, vm := range view.VMs {
			ret.PowerStates[vm.PowerState]++

			env := vm.Environment
			if env == "" {
				env = entity.EnvironmentUnknown
			}

			ret.ByEnvironment[env]++
		}
	}

	return ret
}
