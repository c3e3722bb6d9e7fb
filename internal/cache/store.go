package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/openshift-assisted/inventory-sync/internal/domain/entity"
)

const (
	// KeyPrefix namespaces every key written by the store.
	KeyPrefix = "inventory:"

	vmsKeyPrefix     = KeyPrefix + "vms:"
	filtersKeyPrefix = KeyPrefix + "filters:"
)

func VMsKey(provider entity.Provider) string {
	return vmsKeyPrefix + string(provider)
}

func FiltersKey(provider entity.Provider) string {
	return filtersKeyPrefix + string(provider)
}

const (
	resultHit   = "hit"
	resultMiss  = "miss"
	resultError = "error"
)

// Store keeps the last normalized collection per key with its write time. It holds no
// business logic: the inventory controller owning a key is its only writer.
type Store struct {
	kv       KV
	clock    clockwork.Clock
	logger   logr.Logger
	requests *prometheus.CounterVec
}

type Option func(*Store)

func WithLogger(logger logr.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(s *Store) {
		s.clock = clock
	}
}

// WithRequestCounter counts reads by result (hit, miss, error).
func WithRequestCounter(counter *prometheus.CounterVec) Option {
	return func(s *Store) {
		s.requests = counter
	}
}

// NewRequestCounter creates and registers the cache read counter.
func NewRequestCounter(registry prometheus.Registerer, namespace string) (*prometheus.CounterVec, error) {
	ret := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_requests_total",
		Help:      "Number of cache reads by result",
	}, []string{"result"})

	err := registry.Register(ret)
	if err != nil {
		return nil, fmt.Errorf("failed to register cache counter: %w", err)
	}

	return ret, nil
}

func NewStore(kv KV, opts ...Option) *Store {
	ret := &Store{
		kv:     kv,
		clock:  clockwork.NewRealClock(),
		logger: logr.Discard(),
	}

	for _, opt := range opts {
		opt(ret)
	}

	return ret
}

// Get returns the entry stored under key. An undecodable entry is reported as absent.
func (s *Store) Get(ctx context.Context, key string) (entity.CacheEntry, bool, error) {
	data, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		s.count(resultError)

		return entity.CacheEntry{}, false, fmt.Errorf("failed to read cache entry %s: %w", key, err)
	}

	if !ok {
		s.count(resultMiss)

		return entity.CacheEntry{}, false, nil
	}

	ret := entity.CacheEntry{}

	err = json.Unmarshal(data, &ret)
	if err != nil {
		s.logger.V(1).Info("dropping undecodable cache entry", "key", key, "error", err.Error())
		s.count(resultMiss)

		return entity.CacheEntry{}, false, nil
	}

	if ret.Data == nil {
		ret.Data = []entity.VM{}
	}

	s.count(resultHit)

	return ret, true, nil
}

// Set replaces the entry stored under key. An empty collection is a valid state and
// overwrites the previous one.
func (s *Store) Set(ctx context.Context, key string, data []entity.VM) (entity.CacheEntry, error) {
	if data == nil {
		data = []entity.VM{}
	}

	entry := entity.CacheEntry{
		Key:  key,
		Data: data,
		TS:   s.clock.Now(),
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return entity.CacheEntry{}, fmt.Errorf("failed to marshal cache entry %s: %w", key, err)
	}

	err = s.kv.Set(ctx, key, raw)
	if err != nil {
		return entity.CacheEntry{}, fmt.Errorf("failed to write cache entry %s: %w", key, err)
	}

	s.logger.V(2).Info("cache entry written", "key", key, "vms", len(data))

	return entry, nil
}

// Fresh reports whether entry was written less than ttl ago.
func (s *Store) Fresh(entry entity.CacheEntry, ttl time.Duration) bool {
	if ttl <= 0 || entry.TS.IsZero() {
		return false
	}

	return s.clock.Since(entry.TS) < ttl
}

// IsFresh reports whether key holds an entry written less than ttl ago.
func (s *Store) IsFresh(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	entry, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}

	return s.Fresh(entry, ttl), nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.kv.Delete(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to delete cache entry %s: %w", key, err)
	}

	return nil
}

// Clear drops every entry written by the store. It is the logout teardown.
func (s *Store) Clear(ctx context.Context) error {
	err := s.kv.Clear(ctx, KeyPrefix)
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	s.logger.V(1).Info("cache cleared")

	return nil
}

// SaveFilters persists the filter state of provider.
func (s *Store) SaveFilters(ctx context.Context, provider entity.Provider, state any) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal filters of %s: %w", provider, err)
	}

	err = s.kv.Set(ctx, FiltersKey(provider), raw)
	if err != nil {
		return fmt.Errorf("failed to save filters of %s: %w", provider, err)
	}

	return nil
}

// LoadFilters restores the filter state of provider into out.
func (s *Store) LoadFilters(ctx context.Context, provider entity.Provider, out any) (bool, error) {
	raw, ok, err := s.kv.Get(ctx, FiltersKey(provider))
	if err != nil {
		return false, fmt.Errorf("failed to load filters of %s: %w", provider, err)
	}

	if !ok {
		return false, nil
	}

	err = json.Unmarshal(raw, out)
	if err != nil {
		s.logger.V(1).Info("ignoring undecodable filters", "provider", provider, "error", err.Error())

		return false, nil
	}

	return true, nil
}

func (s *Store) count(result string) {
	if s.requests == nil {
		return
	}

	s.requests.WithLabelValues(result).Inc()
}
