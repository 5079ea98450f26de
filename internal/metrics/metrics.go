package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsRegistry holds all Prometheus metrics for the EDI engine
type MetricsRegistry struct {
	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight *prometheus.GaugeVec

	// Cache Metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// EDI Metrics
	TransactionsTotal  *prometheus.CounterVec
	AS2MessagesTotal   *prometheus.CounterVec
	AS2SendDuration    prometheus.Histogram
	SFTPPollsTotal     *prometheus.CounterVec
	SFTPFilesTotal     prometheus.Counter
	SFTPPollDuration   prometheus.Histogram
	ScheduledJobs      prometheus.Gauge
	PendingWorkerBatch prometheus.Histogram
}

// NewMetricsRegistry registers every metric with the default registerer
func NewMetricsRegistry() *MetricsRegistry {
	return NewMetricsRegistryWith(prometheus.DefaultRegisterer)
}

// NewMetricsRegistryWith registers every metric with reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration panics.
func NewMetricsRegistryWith(reg prometheus.Registerer) *MetricsRegistry {
	factory := promauto.With(reg)

	return &MetricsRegistry{
		// HTTP Metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edigate_http_requests_total",
				Help: "Total HTTP requests processed by endpoint, method, and status code",
			},
			[]string{"endpoint", "method", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "edigate_http_request_duration_seconds",
				Help:    "HTTP request latency distribution in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint", "method"},
		),
		HTTPRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "edigate_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"endpoint"},
		),

		// Cache Metrics
		CacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edigate_cache_hits_total",
				Help: "Total cache hits by cache key pattern",
			},
			[]string{"cache_key_pattern"},
		),
		CacheMissesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edigate_cache_misses_total",
				Help: "Total cache misses by cache key pattern",
			},
			[]string{"cache_key_pattern"},
		),

		// EDI Metrics
		TransactionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edigate_transactions_total",
				Help: "EDI transactions by direction, document type and final status",
			},
			[]string{"direction", "document_type", "status"},
		),
		AS2MessagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edigate_as2_messages_total",
				Help: "AS2 messages by direction and MDN disposition",
			},
			[]string{"direction", "disposition"},
		),
		AS2SendDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "edigate_as2_send_duration_seconds",
				Help:    "Outbound AS2 HTTP exchange time in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		SFTPPollsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edigate_sftp_polls_total",
				Help: "SFTP polls by result",
			},
			[]string{"result"},
		),
		SFTPFilesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "edigate_sftp_files_total",
				Help: "Files picked up by SFTP polling",
			},
		),
		SFTPPollDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "edigate_sftp_poll_duration_seconds",
				Help:    "SFTP poll execution time in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
			},
		),
		ScheduledJobs: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "edigate_scheduled_jobs",
				Help: "Number of partner polling jobs currently scheduled",
			},
		),
		PendingWorkerBatch: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "edigate_pending_worker_batch_size",
				Help:    "Pending inbound transactions handled per worker tick",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
	}
}

// RecordTransaction counts a transaction reaching a status. Nil-safe so
// callers constructed without metrics keep working.
func (m *MetricsRegistry) RecordTransaction(direction, documentType, status string) {
	if m == nil {
		return
	}
	m.TransactionsTotal.WithLabelValues(direction, documentType, status).Inc()
}

// RecordAS2 counts an AS2 exchange by its disposition
func (m *MetricsRegistry) RecordAS2(direction, disposition string) {
	if m == nil {
		return
	}
	m.AS2MessagesTotal.WithLabelValues(direction, disposition).Inc()
}
