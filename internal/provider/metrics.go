package provider

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/openshift-assisted/inventory-sync/internal/domain/entity"
	"github.com/openshift-assisted/inventory-sync/internal/snapshot"
	"github.com/openshift-assisted/inventory-sync/pkg/pipeline"
)

const (
	outcomeKept     = "kept"
	outcomeRejected = "rejected"

	staleReasonServer = "server"
	staleReasonAge    = "age"
)

// Metrics counts normalized records and stale snapshots. A nil *Metrics is a no-op.
type Metrics struct {
	records *prometheus.CounterVec
	stale   *prometheus.CounterVec
	clock   clockwork.Clock
	maxAge  time.Duration
}

// NewMetrics registers the adapter counters. Snapshots generated more than maxAge ago are
// counted stale even when the server does not flag them; 0 disables the age check.
func NewMetrics(registry prometheus.Registerer, clock clockwork.Clock, maxAge time.Duration, config pipeline.MetricsConfig) (*Metrics, error) {
	records := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: config.Namespace,
		Name:      "records_total",
		Help:      "Normalized record counter by provider and outcome.",
	}, []string{"provider", "outcome"})

	err := registry.Register(records)
	if err != nil {
		return nil, fmt.Errorf("failed to register metric: %w", err)
	}

	stale := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: config.Namespace,
		Name:      "stale_snapshots_total",
		Help:      "Stale snapshot counter by provider and reason.",
	}, []string{"provider", "reason"})

	err = registry.Register(stale)
	if err != nil {
		return nil, fmt.Errorf("failed to register metric: %w", err)
	}

	ret := &Metrics{
		records: records,
		stale:   stale,
		clock:   clock,
		maxAge:  maxAge,
	}

	return ret, nil
}

func (m *Metrics) countRecords(provider entity.Provider, kept, rejected int) {
	if m == nil {
		return
	}

	m.records.WithLabelValues(string(provider), outcomeKept).Add(float64(kept))
	m.records.WithLabelValues(string(provider), outcomeRejected).Add(float64(rejected))
}

func (m *Metrics) observeStaleness(provider entity.Provider, raw snapshot.Raw) {
	if m == nil {
		return
	}

	reason := m.staleReason(raw)
	if reason == "" {
		return
	}

	m.stale.WithLabelValues(string(provider), reason).Inc()
}

// staleReason tells why raw is stale: flagged by the server or too old. Empty when fresh.
func (m *Metrics) staleReason(raw snapshot.Raw) string {
	if raw.Stale {
		return staleReasonServer
	}

	if m.maxAge <= 0 || raw.GeneratedAt == nil {
		return ""
	}

	if m.clock.Since(*raw.GeneratedAt) > m.maxAge {
		return staleReasonAge
	}

	return ""
}
