package inventory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/lthibault/jitterbug/v2"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	"github.com/openshift-assisted/inventory-sync/internal/cache"
	"github.com/openshift-assisted/inventory-sync/internal/common"
	"github.com/openshift-assisted/inventory-sync/internal/config"
	"github.com/openshift-assisted/inventory-sync/internal/domain/entity"
	"github.com/openshift-assisted/inventory-sync/internal/inventory/query"
	"github.com/openshift-assisted/inventory-sync/internal/provider"
	"github.com/openshift-assisted/inventory-sync/internal/refresh"
)

const DefaultDebounce = 200 * time.Millisecond

type FetchOptions struct {
	// BypassCache goes to the back end even when the cache is fresh.
	BypassCache bool
	// Quiet fetches emit no notice.
	Quiet bool
}

// View is a copy of the controller state.
type View struct {
	Provider    entity.Provider
	VMs         []entity.VM
	GeneratedAt *time.Time
	Source      entity.SnapshotSource
	Stale       bool
	StaleReason *string
	HostsStatus entity.HostsStatus
	// FetchedAt is when the data was written to the cache.
	FetchedAt time.Time
	// Err is the last fetch failure. The data it did not replace is still in VMs.
	Err        error
	Loaded     bool
	Refreshing bool
}

// Controller owns the inventory of one provider: its collection, its cache entry, its
// refresh job and the query state of its view.
type Controller struct {
	provider  entity.Provider
	adapter   provider.Adapter
	store     *cache.Store
	refresher *refresh.Controller

	clock     clockwork.Clock
	ttl       time.Duration
	debounce  time.Duration
	logger    logr.Logger
	notify    func(Notice)
	sizeGauge *prometheus.GaugeVec

	flight singleflight.Group

	// ctx is cancelled by Close, every background operation derives from it
	ctx    context.Context
	cancel context.CancelFunc

	lock       sync.Mutex
	generation uint64
	// epoch is bumped when a refresh job completes, older fetches can no longer commit
	epoch       uint64
	closed      bool
	view        View
	state       query.State
	restored    bool
	refreshing  bool
	searchTimer clockwork.Timer
	searchSeq   uint64
	ticker      *jitterbug.Ticker
}

type Option func(*Controller)

func WithLogger(logger logr.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(c *Controller) {
		c.clock = clock
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(c *Controller) {
		c.ttl = ttl
	}
}

// WithDebounce sets how long the search text must stay unchanged before it applies.
func WithDebounce(debounce time.Duration) Option {
	return func(c *Controller) {
		c.debounce = debounce
	}
}

// WithNotifier receives the user notices. It is called without the controller lock held.
func WithNotifier(notify func(Notice)) Option {
	return func(c *Controller) {
		c.notify = notify
	}
}

func WithSizeGauge(gauge *prometheus.GaugeVec) Option {
	return func(c *Controller) {
		c.sizeGauge = gauge
	}
}

func NewSizeGauge(registry prometheus.Registerer, namespace string) (*prometheus.GaugeVec, error) {
	gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "inventory_vms",
		Help:      "Number of VMs held by provider.",
	}, []string{"provider"})

	err := registry.Register(gauge)
	if err != nil {
		return nil, fmt.Errorf("failed to register metric: %w", err)
	}

	return gauge, nil
}

func NewController(adapter provider.Adapter, store *cache.Store, refresher *refresh.Controller, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())

	ret := &Controller{
		provider:  adapter.Provider(),
		adapter:   adapter,
		store:     store,
		refresher: refresher,
		clock:     clockwork.NewRealClock(),
		ttl:       config.DefaultCacheTTL,
		debounce:  DefaultDebounce,
		logger:    logr.Discard(),
		ctx:       ctx,
		cancel:    cancel,
		state:     query.NewState(),
	}

	for _, opt := range opts {
		opt(ret)
	}

	ret.logger = ret.logger.WithValues("provider", ret.provider, "session", uuid.NewString())
	ret.view = View{
		Provider:    ret.provider,
		VMs:         []entity.VM{},
		HostsStatus: entity.HostsStatus{},
	}

	return ret
}

func (c *Controller) Provider() entity.Provider {
	return c.provider
}

// View returns a copy of the current state.
func (c *Controller) View() View {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.copyView()
}

// Load shows the cached inventory first and fetches only when it is absent or stale.
// Filters persisted by a previous session are restored on the first Load.
func (c *Controller) Load(ctx context.Context) (View, error) {
	err := c.checkOpen()
	if err != nil {
		return View{}, err
	}

	c.restoreFilters(ctx)

	fresh := c.loadCache(ctx)
	if fresh {
		return c.View(), nil
	}

	// the cache was just read
	return c.Fetch(ctx, FetchOptions{BypassCache: true})
}

// Fetch replaces the collection with a new snapshot. Concurrent fetches with the same
// options share one request, a caller giving up does not cancel it for the others.
// A failure keeps the previous data visible, flagged stale.
func (c *Controller) Fetch(ctx context.Context, opts FetchOptions) (View, error) {
	err := c.checkOpen()
	if err != nil {
		return View{}, err
	}

	if !opts.BypassCache && c.loadCache(ctx) {
		return c.View(), nil
	}

	c.lock.Lock()
	epoch := c.epoch
	c.lock.Unlock()

	key := fmt.Sprintf("fetch:%d:%t", epoch, opts.Quiet)
	detached := context.WithoutCancel(ctx)

	ch := c.flight.DoChan(key, func() (interface{}, error) {
		return c.fetch(detached, epoch, opts)
	})

	select {
	case <-ctx.Done():
		return c.View(), ctx.Err()
	case res := <-ch:
		if res.Shared {
			c.logger.V(2).Info("Fetch shared with a concurrent caller")
		}

		view, _ := res.Val.(View)

		return view, res.Err
	}
}

func (c *Controller) fetch(ctx context.Context, epoch uint64, opts FetchOptions) (View, error) {
	ctx, gen, release := c.bind(ctx)
	defer release()

	snap, err := c.adapter.Fetch(ctx)
	if err != nil {
		return c.fail(gen, epoch, err, opts)
	}

	if snap.Empty {
		return c.keep(gen, opts)
	}

	vms := snap.Data[c.provider]
	if vms == nil {
		vms = []entity.VM{}
	}

	if !c.current(gen) {
		return View{}, common.ErrClosed
	}

	if c.superseded(epoch) {
		c.logger.V(1).Info("Dropping a snapshot requested before the last refresh")

		return c.View(), nil
	}

	fetchedAt := c.clock.Now()

	entry, err := c.store.Set(ctx, cache.VMsKey(c.provider), vms)
	if err != nil {
		c.logger.Error(err, "Failed to write cache, data kept in memory only")
	} else {
		fetchedAt = entry.TS
	}

	return c.commit(gen, epoch, snap, vms, fetchedAt, opts)
}

func (c *Controller) commit(gen, epoch uint64, snap entity.Snapshot, vms []entity.VM, fetchedAt time.Time, opts FetchOptions) (View, error) {
	c.lock.Lock()

	if c.generation != gen || c.closed {
		c.lock.Unlock()

		return View{}, common.ErrClosed
	}

	if epoch < c.epoch {
		ret := c.copyView()
		c.lock.Unlock()

		return ret, nil
	}

	c.view.VMs = vms
	c.view.GeneratedAt = snap.GeneratedAt
	c.view.Source = snap.Source
	c.view.Stale = snap.Stale
	c.view.StaleReason = snap.StaleReason
	c.view.HostsStatus = snap.HostsStatus
	c.view.FetchedAt = fetchedAt
	c.view.Err = nil
	c.view.Loaded = true

	ret := c.copyView()
	c.lock.Unlock()

	c.observeSize(len(vms))

	c.logger.V(1).Info("Inventory replaced", "vms", len(vms), "source", snap.Source, "stale", snap.Stale)

	if !opts.Quiet {
		if failing := snap.HostsStatus.Failing(); len(failing) > 0 {
			c.emit(Notice{Level: LevelWarning, Message: fmt.Sprintf("Some hosts did not answer: %v, their VMs may be missing.", failing)})
		} else if snap.Stale {
			c.emit(Notice{Level: LevelWarning, Message: "Showing stale data: " + deref(snap.StaleReason)})
		}
	}

	return ret, nil
}

// keep handles an empty snapshot: the previous data stays.
func (c *Controller) keep(gen uint64, opts FetchOptions) (View, error) {
	c.lock.Lock()

	if c.generation != gen || c.closed {
		c.lock.Unlock()

		return View{}, common.ErrClosed
	}

	c.view.Err = nil
	ret := c.copyView()
	c.lock.Unlock()

	if !opts.Quiet {
		c.emit(Notice{Level: LevelInfo, Message: "No snapshot available yet, showing the last known data."})
	}

	return ret, nil
}

func (c *Controller) fail(gen, epoch uint64, err error, opts FetchOptions) (View, error) {
	c.lock.Lock()

	if c.generation != gen || c.closed {
		c.lock.Unlock()

		return View{}, common.ErrClosed
	}

	if epoch < c.epoch {
		ret := c.copyView()
		c.lock.Unlock()

		return ret, fmt.Errorf("failed to fetch %s inventory: %w", c.provider, err)
	}

	reason := common.UserMessage(err)

	c.view.Err = err
	c.view.Stale = true
	c.view.StaleReason = &reason

	ret := c.copyView()
	c.lock.Unlock()

	c.logger.Error(err, "Failed to fetch inventory, keeping previous data", "vms", len(ret.VMs))

	if !opts.Quiet {
		c.emit(Notice{Level: LevelError, Message: common.UserMessage(err), Err: err})
	}

	return ret, fmt.Errorf("failed to fetch %s inventory: %w", c.provider, err)
}

// loadCache shows the cached entry, if any, and tells whether it is fresh.
func (c *Controller) loadCache(ctx context.Context) bool {
	entry, found, err := c.store.Get(ctx, cache.VMsKey(c.provider))
	if err != nil {
		c.logger.Error(err, "Failed to read cache")

		return false
	}

	if !found {
		return false
	}

	c.lock.Lock()

	// a newer in memory collection wins over the cache
	if !c.view.Loaded || c.view.FetchedAt.Before(entry.TS) {
		c.view.VMs = entry.Data
		c.view.Source = entity.SourceCache
		c.view.FetchedAt = entry.TS
		c.view.Loaded = true
	}

	c.lock.Unlock()

	c.observeSize(len(entry.Data))

	return c.store.Fresh(entry, c.ttl)
}

// Refresh asks the back end for a new snapshot, waits for the job, then re-fetches.
// Only one refresh runs at a time and none is requested after a permission failure.
// A cooldown is reported through a notice and the returned job message, not as an error.
func (c *Controller) Refresh(ctx context.Context, force bool) (entity.RefreshJob, error) {
	c.lock.Lock()

	switch {
	case c.closed:
		c.lock.Unlock()

		return entity.RefreshJob{}, common.ErrClosed
	case c.refreshing:
		c.lock.Unlock()

		return entity.RefreshJob{}, common.ErrRefreshInProgress
	case errors.Is(c.view.Err, common.ErrPermission):
		err := c.view.Err
		c.lock.Unlock()

		c.emit(Notice{Level: LevelError, Message: common.UserMessage(err), Err: err})

		return entity.RefreshJob{}, fmt.Errorf("refresh not attempted for %s: %w", c.provider, err)
	}

	c.refreshing = true
	c.view.Refreshing = true
	c.lock.Unlock()

	defer func() {
		c.lock.Lock()
		c.refreshing = false
		c.view.Refreshing = false
		c.lock.Unlock()
	}()

	ctx, _, release := c.bind(ctx)
	defer release()

	scope, err := c.adapter.Scope(ctx)

	switch {
	case errors.Is(err, common.ErrAuth):
		return entity.RefreshJob{}, err
	case errors.Is(err, common.ErrPermission):
		c.emit(Notice{Level: LevelError, Message: common.UserMessage(err), Err: err})

		return entity.RefreshJob{}, fmt.Errorf("refresh not attempted for %s: %w", c.provider, err)
	case err != nil:
		c.logger.Info("Failed to scope refresh, refreshing every host", "err", err.Error())

		scope = nil
	}

	task := c.refresher.Start(ctx, c.provider, scope, force, refresh.Hooks{
		OnPartial: func(job entity.RefreshJob) {
			c.emit(Notice{Level: LevelWarning, Message: fmt.Sprintf("Refresh partially failed for %v.", job.HostsStatus.Failing())})
		},
	})

	job, err := task.Wait(ctx)
	if err != nil && ctx.Err() != nil {
		task.Cancel()
		<-task.Done()

		return job, ctx.Err()
	}

	cooldown := common.CooldownRejected{}

	switch {
	case errors.As(err, &cooldown):
		c.emit(Notice{Level: LevelInfo, Message: common.UserMessage(err)})

		return entity.RefreshJob{Message: entity.JobMessageCooldown, CooldownUntil: cooldown.Until}, nil
	case err != nil:
		c.emit(Notice{Level: LevelError, Message: common.UserMessage(err), Err: err})

		return job, fmt.Errorf("failed to refresh %s: %w", c.provider, err)
	}

	if job.Status != entity.JobStatusSucceeded {
		c.emit(Notice{Level: LevelError, Message: fmt.Sprintf("Refresh job %s ended %s, showing the last known data.", job.JobID, job.Status)})
	}

	// fetches started before the job completed must not stand for its result
	c.lock.Lock()
	c.epoch++
	c.lock.Unlock()

	// non destructive: a failed re-fetch keeps the current data
	_, err = c.Fetch(ctx, FetchOptions{BypassCache: true, Quiet: true})
	if err != nil {
		return job, err
	}

	if job.Status == entity.JobStatusSucceeded {
		c.emit(Notice{Level: LevelInfo, Message: "Inventory refreshed."})
	}

	return job, nil
}

// StartAutoRefresh re-fetches on a jittered interval until Close.
func (c *Controller) StartAutoRefresh(interval time.Duration) {
	if interval <= 0 {
		return
	}

	c.lock.Lock()

	if c.closed || c.ticker != nil {
		c.lock.Unlock()

		return
	}

	ticker := jitterbug.New(interval, &jitterbug.Norm{Stdev: interval / 20, Mean: 0})
	c.ticker = ticker
	c.lock.Unlock()

	go func() {
		for {
			select {
			case <-c.ctx.Done():
				return
			case <-ticker.C:
			}

			_, err := c.Fetch(c.ctx, FetchOptions{BypassCache: true, Quiet: true})
			if err != nil && !errors.Is(err, common.ErrClosed) && !errors.Is(err, context.Canceled) {
				c.logger.V(1).Info("Auto refresh failed", "err", err.Error())
			}
		}
	}()
}

// Close cancels in flight requests, the refresh job and every timer. Completions that
// arrive later are dropped.
func (c *Controller) Close() {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	c.generation++
	c.cancel()

	if c.searchTimer != nil {
		c.searchTimer.Stop()
		c.searchTimer = nil
	}

	if c.ticker != nil {
		c.ticker.Stop()
		c.ticker = nil
	}

	c.logger.V(1).Info("Inventory controller closed")
}

func (c *Controller) checkOpen() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.closed {
		return common.ErrClosed
	}

	return nil
}

// bind derives a context cancelled by Close and returns the generation it belongs to.
func (c *Controller) bind(ctx context.Context) (context.Context, uint64, func()) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.ctx, cancel)

	c.lock.Lock()
	gen := c.generation
	c.lock.Unlock()

	return ctx, gen, func() {
		stop()
		cancel()
	}
}

func (c *Controller) superseded(epoch uint64) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	return epoch < c.epoch
}

func (c *Controller) current(gen uint64) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.generation == gen && !c.closed
}

func (c *Controller) copyView() View {
	ret := c.view
	ret.VMs = slices.Clone(c.view.VMs)

	return ret
}

func (c *Controller) observeSize(n int) {
	if c.sizeGauge == nil {
		return
	}

	c.sizeGauge.WithLabelValues(string(c.provider)).Set(float64(n))
}

func (c *Controller) emit(n Notice) {
	if c.notify == nil {
		return
	}

	n.Provider = c.provider
	c.notify(n)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
