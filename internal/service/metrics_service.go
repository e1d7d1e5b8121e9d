package service

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	blobWrites      prometheus.Counter
	blobWriteBytes  prometheus.Counter
	blobReads       prometheus.Counter
	blobReadBytes   prometheus.Counter
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	cacheLatency    prometheus.Observer
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

	blobWrites := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "blob_writes_total",
		Help: "Number of completed blob store writes",
	})
	blobWriteBytes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "blob_write_bytes_total",
		Help: "Bytes written to the blob store",
	})
	blobReads := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "blob_reads_total",
		Help: "Number of blob store reads served",
	})
	blobReadBytes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "blob_read_bytes_total",
		Help: "Bytes streamed out of the blob store",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Number of list cache hits",
	})
	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Number of list cache misses",
	})
	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency of list cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	registry.MustRegister(requestDuration, requestTotal, blobWrites, blobWriteBytes, blobReads, blobReadBytes, cacheHits, cacheMisses, cacheLatency)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		blobWrites:      blobWrites,
		blobWriteBytes:  blobWriteBytes,
		blobReads:       blobReads,
		blobReadBytes:   blobReadBytes,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		cacheLatency:    cacheLatency,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records one handled request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := []string{method, path, fmt.Sprintf("%d", status)}
	s.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(labels...).Inc()
}

// RecordBlobWrite records one completed blob store write.
func (s *MetricsService) RecordBlobWrite(bytes int64) {
	s.blobWrites.Inc()
	s.blobWriteBytes.Add(float64(bytes))
}

// RecordBlobRead records one blob download.
func (s *MetricsService) RecordBlobRead(bytes int64) {
	s.blobReads.Inc()
	s.blobReadBytes.Add(float64(bytes))
}

// RecordCacheOperation records a cache lookup outcome.
func (s *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if hit {
		s.cacheHits.Inc()
	} else {
		s.cacheMisses.Inc()
	}
	s.cacheLatency.Observe(duration.Seconds())
}
