package prometheus

import (
	"fmt"
	"time"
)

// AppMetrics holds the metric set for the extraction service.
type AppMetrics struct {
	// HTTP layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Pipeline layer
	RecordsProcessedTotal CounterVec
	RecordsSkippedTotal   CounterVec
	BatchDuration         HistogramVec
	PipelineActiveBatches GaugeVec

	// Extraction layer
	RecoveryStrategyTotal    CounterVec
	KeywordsPerRecord        HistogramVec
	AnnotatorRequestDuration HistogramVec
	EngineRequestDuration    HistogramVec
	EngineRequestsTotal      CounterVec

	// Infrastructure layer
	CacheHitsTotal   CounterVec
	CacheMissesTotal CounterVec
	DBQueryDuration  HistogramVec
	ErrorsTotal      CounterVec
}

// Default buckets.
var (
	DefaultHTTPDurationBuckets   = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultEngineDurationBuckets = []float64{.5, 1, 2, 5, 10, 30, 60, 120}
	DefaultBatchDurationBuckets  = []float64{.1, .5, 1, 5, 10, 30, 60, 300, 600}
	DefaultKeywordCountBuckets   = []float64{0, 1, 2, 5, 10, 15, 20, 30}
	DefaultDBDurationBuckets     = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
)

// NewAppMetrics registers all metrics on collector and returns the set.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	// HTTP
	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method", "path")

	// Pipeline
	m.RecordsProcessedTotal = collector.RegisterCounter("records_processed_total", "Records processed", "path", "lang", "status")
	m.RecordsSkippedTotal = collector.RegisterCounter("records_skipped_total", "Malformed records skipped", "reason")
	m.BatchDuration = collector.RegisterHistogram("batch_duration_seconds", "Batch processing duration", DefaultBatchDurationBuckets, "path")
	m.PipelineActiveBatches = collector.RegisterGauge("pipeline_active_batches", "Batches currently in flight", "path")

	// Extraction
	m.RecoveryStrategyTotal = collector.RegisterCounter("recovery_strategy_total", "Recovery parser outcomes", "strategy")
	m.KeywordsPerRecord = collector.RegisterHistogram("keywords_per_record", "Keywords extracted per record", DefaultKeywordCountBuckets, "path", "lang")
	m.AnnotatorRequestDuration = collector.RegisterHistogram("annotator_request_duration_seconds", "Annotator request duration", DefaultHTTPDurationBuckets, "lang")
	m.EngineRequestDuration = collector.RegisterHistogram("engine_request_duration_seconds", "Completion engine request duration", DefaultEngineDurationBuckets, "model")
	m.EngineRequestsTotal = collector.RegisterCounter("engine_requests_total", "Completion engine requests", "model", "status")

	// Infrastructure
	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")
	m.DBQueryDuration = collector.RegisterHistogram("db_query_duration_seconds", "Database query duration", DefaultDBDurationBuckets, "operation")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Total errors", "component", "code")

	return m
}

// RecordHTTPRequest records the standard per-request HTTP metrics.
func RecordHTTPRequest(metrics *AppMetrics, method, path string, statusCode int, duration time.Duration) {
	if metrics == nil {
		return
	}
	status := fmt.Sprintf("%d", statusCode)
	metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordProcessed records the outcome of one record on one extraction path.
func RecordProcessed(metrics *AppMetrics, path, lang, status string, keywordCount int) {
	if metrics == nil {
		return
	}
	metrics.RecordsProcessedTotal.WithLabelValues(path, lang, status).Inc()
	if status == "success" {
		metrics.KeywordsPerRecord.WithLabelValues(path, lang).Observe(float64(keywordCount))
	}
}
