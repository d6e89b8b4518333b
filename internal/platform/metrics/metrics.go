package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// Metrics holds all Prometheus metrics for the registry.
type Metrics struct {
	NamespacesCreated prometheus.Counter
	ClaimApprovals    *prometheus.CounterVec
	Claims            *prometheus.CounterVec
	ClaimDuration     prometheus.Histogram
	Compensations     *prometheus.CounterVec
	Invalidations     *prometheus.CounterVec
	ReverseEntriesSet prometheus.Counter
	ResolverCache     *prometheus.CounterVec
	OutboxRelayed     prometheus.Counter
}

// New creates and registers all metrics with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers with reg. Tests pass a fresh prometheus.NewRegistry().
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		NamespacesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "namespaces_created_total",
			Help: "Total number of namespaces created",
		}),
		ClaimApprovals: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "namespaces_claim_approvals_total",
			Help: "Claim request approvals by path (authority or token)",
		}, []string{"path"}),
		Claims: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "namespaces_claims_total",
			Help: "Claim attempts by result",
		}, []string{"result"}),
		ClaimDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "namespaces_claim_duration_seconds",
			Help:    "Duration of migrate-and-claim including custody calls",
			Buckets: durationBuckets,
		}),
		Compensations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "namespaces_claim_compensations_total",
			Help: "Compensating custody calls run after a failed claim, by step and result",
		}, []string{"step", "result"}),
		Invalidations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "namespaces_entry_invalidations_total",
			Help: "Entry invalidations by flow (expired, transferable, migrated)",
		}, []string{"flow"}),
		ReverseEntriesSet: factory.NewCounter(prometheus.CounterOpts{
			Name: "namespaces_reverse_entries_set_total",
			Help: "Total number of reverse mappings written",
		}),
		ResolverCache: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "namespaces_resolver_cache_total",
			Help: "Resolver cache lookups by outcome (hit, miss, error)",
		}, []string{"outcome"}),
		OutboxRelayed: factory.NewCounter(prometheus.CounterOpts{
			Name: "namespaces_outbox_relayed_total",
			Help: "Audit events relayed from the outbox to Kafka",
		}),
	}
}

func (m *Metrics) IncrementNamespaceCreated() {
	m.NamespacesCreated.Inc()
}

// IncrementApproval records a pending to approved transition.
func (m *Metrics) IncrementApproval(path string) {
	m.ClaimApprovals.WithLabelValues(path).Inc()
}

// ObserveClaim records the result and duration of a claim.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveClaim(start time.Time, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.Claims.WithLabelValues(result).Inc()
	m.ClaimDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementCompensation(step string, err error) {
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.Compensations.WithLabelValues(step, result).Inc()
}

func (m *Metrics) IncrementInvalidation(flow string) {
	m.Invalidations.WithLabelValues(flow).Inc()
}

func (m *Metrics) IncrementReverseSet() {
	m.ReverseEntriesSet.Inc()
}

func (m *Metrics) IncrementResolverCache(outcome string) {
	m.ResolverCache.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AddOutboxRelayed(n int) {
	m.OutboxRelayed.Add(float64(n))
}
