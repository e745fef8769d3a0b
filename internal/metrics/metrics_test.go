package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_RegistersCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	m.DocumentsCreatedTotal.WithLabelValues("invoice").Inc()
	m.SequenceAllocationsTotal.WithLabelValues("invoice", "ok").Add(2)
	m.GrandTotal.WithLabelValues("invoice").Observe(132)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.DocumentsCreatedTotal.WithLabelValues("invoice")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.SequenceAllocationsTotal.WithLabelValues("invoice", "ok")))

	families, err := registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNewMetrics_DoubleRegistrationPanics(t *testing.T) {
	registry := prometheus.NewRegistry()
	NewMetrics(registry)

	assert.Panics(t, func() { NewMetrics(registry) })
}
