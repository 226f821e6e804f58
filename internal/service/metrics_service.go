package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the
// availability core.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	conflictScanDuration prometheus.Histogram
	conflictPairsFound   prometheus.Counter

	bulkBatchSize    prometheus.Histogram
	bulkItemFailures prometheus.Counter

	approvalDecisions *prometheus.CounterVec
}

// NewMetricsService registers the core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	conflictScanDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "availability_conflict_scan_duration_seconds",
		Help:    "Duration of availability conflict detection scans",
		Buckets: prometheus.DefBuckets,
	})

	conflictPairsFound := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "availability_conflict_pairs_total",
		Help: "Total conflicting slot pairs reported by scans",
	})

	bulkBatchSize := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "availability_bulk_batch_size",
		Help:    "Number of slot ids targeted per bulk mutation",
		Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
	})

	bulkItemFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "availability_bulk_item_failures_total",
		Help: "Total per-item failures across bulk mutations",
	})

	approvalDecisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "availability_approval_decisions_total",
		Help: "Change request decisions by outcome",
	}, []string{"outcome"})

	registry.MustRegister(requestDuration, requestTotal, conflictScanDuration,
		conflictPairsFound, bulkBatchSize, bulkItemFailures, approvalDecisions)

	return &MetricsService{
		registry:             registry,
		handler:              promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:      requestDuration,
		requestTotal:         requestTotal,
		conflictScanDuration: conflictScanDuration,
		conflictPairsFound:   conflictPairsFound,
		bulkBatchSize:        bulkBatchSize,
		bulkItemFailures:     bulkItemFailures,
		approvalDecisions:    approvalDecisions,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	if s == nil {
		return promhttp.Handler()
	}
	return s.handler
}

// ObserveHTTPRequest records one completed HTTP request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if s == nil {
		return
	}
	labels := prometheus.Labels{"method": method, "path": path, "status": strconv.Itoa(status)}
	s.requestDuration.With(labels).Observe(duration.Seconds())
	s.requestTotal.With(labels).Inc()
}

// ObserveConflictScan records one conflict detection pass.
func (s *MetricsService) ObserveConflictScan(duration time.Duration, pairs int) {
	if s == nil {
		return
	}
	s.conflictScanDuration.Observe(duration.Seconds())
	if pairs > 0 {
		s.conflictPairsFound.Add(float64(pairs))
	}
}

// ObserveBulkBatch records one bulk mutation batch.
func (s *MetricsService) ObserveBulkBatch(size, failures int) {
	if s == nil {
		return
	}
	s.bulkBatchSize.Observe(float64(size))
	if failures > 0 {
		s.bulkItemFailures.Add(float64(failures))
	}
}

// IncApprovalDecision counts one change-request decision.
func (s *MetricsService) IncApprovalDecision(outcome string) {
	if s == nil {
		return
	}
	s.approvalDecisions.WithLabelValues(outcome).Inc()
}
