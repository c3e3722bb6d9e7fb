package inventory

import (
	"context"
	"fmt"

	"github.com/openshift-assisted/inventory-sync/internal/inventory/query"
)

// Query applies the current view state to the collection.
func (c *Controller) Query() query.Result {
	c.lock.Lock()
	vms := c.view.VMs
	state := c.state
	c.lock.Unlock()

	return query.Apply(vms, state)
}

func (c *Controller) QueryState() query.State {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.state
}

// SetSearch applies the search text once it stayed unchanged for the debounce delay.
// A newer call replaces the pending one.
func (c *Controller) SetSearch(ctx context.Context, text string) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.closed {
		return
	}

	if c.searchTimer != nil {
		c.searchTimer.Stop()
		c.searchTimer = nil
	}

	if c.debounce <= 0 {
		c.state.Search = text
		c.saveFiltersLocked(ctx)

		return
	}

	gen := c.generation
	c.searchSeq++
	seq := c.searchSeq

	c.searchTimer = c.clock.AfterFunc(c.debounce, func() {
		c.lock.Lock()

		if c.closed || c.generation != gen || c.searchSeq != seq {
			c.lock.Unlock()

			return
		}

		c.state.Search = text
		c.searchTimer = nil
		c.saveFiltersLocked(ctx)
		c.lock.Unlock()
	})
}

func (c *Controller) SetFilter(ctx context.Context, f query.Filter) error {
	return c.update(ctx, func(s query.State) query.State {
		return s.WithFilter(f)
	})
}

func (c *Controller) ToggleSort(ctx context.Context, field query.Field) error {
	return c.update(ctx, func(s query.State) query.State {
		return s.ToggleSort(field)
	})
}

// SetGroupBy groups the view by field, an empty field removes the grouping.
func (c *Controller) SetGroupBy(ctx context.Context, field query.Field) error {
	return c.update(ctx, func(s query.State) query.State {
		s.GroupBy = field

		return s
	})
}

func (c *Controller) ToggleCollapsed(ctx context.Context, key string) error {
	return c.update(ctx, func(s query.State) query.State {
		return s.ToggleCollapsed(key)
	})
}

// SetState replaces the whole view state.
func (c *Controller) SetState(ctx context.Context, state query.State) error {
	return c.update(ctx, func(query.State) query.State {
		return state
	})
}

func (c *Controller) update(ctx context.Context, fn func(query.State) query.State) error {
	c.lock.Lock()

	next := fn(c.state)

	err := next.Validate()
	if err != nil {
		c.lock.Unlock()

		return fmt.Errorf("invalid view state: %w", err)
	}

	c.state = next
	c.lock.Unlock()

	c.saveFilters(ctx)

	return nil
}

// saveFilters is best effort, the view works without persistence.
func (c *Controller) saveFilters(ctx context.Context) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.saveFiltersLocked(ctx)
}

func (c *Controller) saveFiltersLocked(ctx context.Context) {
	err := c.store.SaveFilters(context.WithoutCancel(ctx), c.provider, c.state)
	if err != nil {
		c.logger.V(1).Info("Failed to persist filters", "err", err.Error())
	}
}

func (c *Controller) restoreFilters(ctx context.Context) {
	c.lock.Lock()

	if c.restored {
		c.lock.Unlock()

		return
	}

	c.restored = true
	c.lock.Unlock()

	state := query.NewState()

	found, err := c.store.LoadFilters(ctx, c.provider, &state)
	if err != nil {
		c.logger.V(1).Info("Failed to restore filters", "err", err.Error())

		return
	}

	if !found {
		return
	}

	if state.Filters == nil {
		state.Filters = []query.Filter{}
	}

	if state.Collapsed == nil {
		state.Collapsed = map[string]bool{}
	}

	err = state.Validate()
	if err != nil {
		c.logger.V(1).Info("Ignoring invalid persisted filters", "err", err.Error())

		return
	}

	c.lock.Lock()
	c.state = state
	c.lock.Unlock()

	c.logger.V(2).Info("Filters restored", "filters", len(state.Filters), "search", state.Search)
}
