package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// EnrichmentMetrics tracks the read-through lookup path
type EnrichmentMetrics struct {
	Outcomes         *prometheus.CounterVec
	ProviderDuration *prometheus.HistogramVec
	LeaseWait        prometheus.Histogram
}

// NewEnrichmentMetrics registers the enrichment collectors on reg
func NewEnrichmentMetrics(reg prometheus.Registerer, prefix string) *EnrichmentMetrics {
	factory := promauto.With(reg)
	return &EnrichmentMetrics{
		Outcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_enrichment_lookups_total",
				Help: "Lookups by outcome",
			},
			[]string{"outcome"},
		),
		ProviderDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_enrichment_provider_duration_seconds",
				Help:    "Duration of provider calls",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		),
		LeaseWait: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    prefix + "_enrichment_lease_wait_seconds",
				Help:    "Time spent acquiring the per-company lease",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}
