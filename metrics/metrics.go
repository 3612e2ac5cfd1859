package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks reconciliations, commission previews, guard rejections and
// the parameter cache. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Reconciliations     *prometheus.CounterVec
	ReconcileDuration   prometheus.Histogram
	CommissionPreviews  *prometheus.CounterVec
	GuardRejections     *prometheus.CounterVec
	ForbiddenOperations *prometheus.CounterVec
	CacheHits           prometheus.Counter
	CacheMisses         prometheus.Counter
}

// New registers every collector on reg. Pass prometheus.NewRegistry() in
// tests so repeated construction does not collide.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Reconciliations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "collecte_reconciliations_total",
			Help: "Committed versement reconciliations by case and severity",
		}, []string{"case", "severity"}),
		ReconcileDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "collecte_reconcile_duration_seconds",
			Help:    "Duration of CommitReconciliation including backend calls",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		CommissionPreviews: f.NewCounterVec(prometheus.CounterOpts{
			Name: "collecte_commission_previews_total",
			Help: "Commission previews by parameter type and resolved scope",
		}, []string{"type", "scope"}),
		GuardRejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "collecte_guard_rejected_fields_total",
			Help: "Fields dropped from update payloads by the guard",
		}, []string{"entity_type", "field"}),
		ForbiddenOperations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "collecte_forbidden_operations_total",
			Help: "Refused delete attempts",
		}, []string{"entity_type"}),
		CacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "collecte_parameter_cache_hits_total",
			Help: "Parameter lookups served from cache",
		}),
		CacheMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "collecte_parameter_cache_misses_total",
			Help: "Parameter lookups that reached the source",
		}),
	}
}

func (m *Metrics) IncrementReconciliation(caseName, severity string) {
	if m == nil {
		return
	}
	m.Reconciliations.WithLabelValues(caseName, severity).Inc()
}

// ObserveReconcile records the duration since start.
func (m *Metrics) ObserveReconcile(start time.Time) {
	if m == nil {
		return
	}
	m.ReconcileDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementPreview(paramType, scope string) {
	if m == nil {
		return
	}
	m.CommissionPreviews.WithLabelValues(paramType, scope).Inc()
}

func (m *Metrics) IncrementGuardRejection(entityType, field string) {
	if m == nil {
		return
	}
	m.GuardRejections.WithLabelValues(entityType, field).Inc()
}

func (m *Metrics) IncrementForbidden(entityType string) {
	if m == nil {
		return
	}
	m.ForbiddenOperations.WithLabelValues(entityType).Inc()
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.CacheMisses.Inc()
}
