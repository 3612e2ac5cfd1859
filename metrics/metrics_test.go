package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncrementReconciliation("MANQUANT", "LOW")
	m.IncrementReconciliation("MANQUANT", "LOW")
	m.IncrementGuardRejection("CLIENT", "nom")
	m.CacheHit()
	m.CacheMiss()
	m.CacheMiss()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Reconciliations.WithLabelValues("MANQUANT", "LOW")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GuardRejections.WithLabelValues("CLIENT", "nom")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHits))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheMisses))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementReconciliation("NORMAL", "NONE")
		m.IncrementPreview("FIXED", "AGENCY")
		m.IncrementForbidden("CLIENT")
		m.CacheHit()
	})
}
