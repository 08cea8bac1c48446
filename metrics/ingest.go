package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// IngestMetrics tracks bulk loads, labelled by file kind
type IngestMetrics struct {
	Lines            *prometheus.CounterVec
	Committed        *prometheus.CounterVec
	ValidationErrors *prometheus.CounterVec
	StoreErrors      *prometheus.CounterVec
	BatchDuration    *prometheus.HistogramVec
	ReferenceRows    *prometheus.CounterVec
	RowsPerSecond    *prometheus.GaugeVec
}

// NewIngestMetrics registers the ingestion collectors on reg
func NewIngestMetrics(reg prometheus.Registerer, prefix string) *IngestMetrics {
	factory := promauto.With(reg)
	return &IngestMetrics{
		Lines: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_ingest_lines_total",
				Help: "Lines read from input files",
			},
			[]string{"kind"},
		),
		Committed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_ingest_records_committed_total",
				Help: "Records written in committed batches",
			},
			[]string{"kind"},
		),
		ValidationErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_ingest_validation_errors_total",
				Help: "Rows skipped because they failed validation",
			},
			[]string{"kind"},
		),
		StoreErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_ingest_store_errors_total",
				Help: "Rows lost to rolled back batches",
			},
			[]string{"kind"},
		),
		BatchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_ingest_batch_duration_seconds",
				Help:    "Duration of one batch transaction",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"kind", "result"},
		),
		ReferenceRows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_reference_rows_total",
				Help: "Reference rows applied, by table and result",
			},
			[]string{"table", "result"},
		),
		RowsPerSecond: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: prefix + "_ingest_rows_per_second",
				Help: "Throughput of the last finished run",
			},
			[]string{"kind"},
		),
	}
}

// ObserveBatch records one batch transaction
func (m *IngestMetrics) ObserveBatch(kind string, start time.Time, committed bool) {
	result := "committed"
	if !committed {
		result = "rolled_back"
	}
	m.BatchDuration.WithLabelValues(kind, result).Observe(time.Since(start).Seconds())
}
