package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the billing service's Prometheus collectors.
type Metrics struct {
	DocumentsCreatedTotal *prometheus.CounterVec
	DocumentsUpdatedTotal *prometheus.CounterVec

	// result is one of ok, unavailable.
	SequenceAllocationsTotal *prometheus.CounterVec
	DuplicateNumberRetries   *prometheus.CounterVec
	PrefixFallbacksTotal     *prometheus.CounterVec

	GrandTotal *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		DocumentsCreatedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_documents_created_total",
				Help: "Total number of documents created",
			},
			[]string{"kind"},
		),
		DocumentsUpdatedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_documents_updated_total",
				Help: "Total number of documents updated",
			},
			[]string{"kind"},
		),
		SequenceAllocationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_sequence_allocations_total",
				Help: "Document number allocations by outcome",
			},
			[]string{"kind", "result"},
		),
		DuplicateNumberRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_duplicate_number_retries_total",
				Help: "Creates retried after a document number uniqueness violation",
			},
			[]string{"kind"},
		),
		PrefixFallbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_prefix_fallbacks_total",
				Help: "Allocations that used the default prefix because the tenant had none configured",
			},
			[]string{"kind"},
		),
		GrandTotal: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "billing_document_grand_total",
				Help:    "Grand total of created documents",
				Buckets: prometheus.ExponentialBuckets(10, 10, 7),
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(
		m.DocumentsCreatedTotal,
		m.DocumentsUpdatedTotal,
		m.SequenceAllocationsTotal,
		m.DuplicateNumberRetries,
		m.PrefixFallbacksTotal,
		m.GrandTotal,
	)

	return m
}
