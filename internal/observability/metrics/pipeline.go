package metrics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineMetrics exposes prometheus counters for document processing and
// emits the structured per-run record used by log-based monitoring.
type PipelineMetrics struct {
	registry *prometheus.Registry
	logger   *slog.Logger

	processTotal    *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	processInFlight prometheus.Gauge
	cacheHits       *prometheus.CounterVec
	confidence      prometheus.Histogram
}

func NewPipelineMetrics(service string, logger *slog.Logger) *PipelineMetrics {
	if logger == nil {
		logger = slog.Default()
	}
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ocr",
			Subsystem: "pipeline",
			Name:      "document_process_total",
			Help:      "Total processed documents by document type and status.",
		},
		[]string{"service", "document_type", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ocr",
			Subsystem: "pipeline",
			Name:      "document_process_duration_seconds",
			Help:      "Document processing duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ocr",
			Subsystem: "pipeline",
			Name:      "document_process_in_flight",
			Help:      "Number of in-flight document pipelines.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	cacheHits := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ocr",
			Subsystem: "pipeline",
			Name:      "cache_lookup_total",
			Help:      "Result cache lookups by outcome.",
		},
		[]string{"service", "outcome"},
	)
	confidence := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ocr",
			Subsystem: "pipeline",
			Name:      "extraction_confidence",
			Help:      "Confidence of completed extractions.",
			Buckets:   []float64{0.0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(processTotal, processDuration, processInFlight, cacheHits, confidence)

	return &PipelineMetrics{
		registry:        registry,
		logger:          logger,
		processTotal:    processTotal,
		processDuration: processDuration,
		processInFlight: processInFlight,
		cacheHits:       cacheHits,
		confidence:      confidence,
	}
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PipelineMetrics) StartDocument() {
	m.processInFlight.Inc()
}

// FinishDocument records the outcome counters and logs the structured
// per-run record. It runs on every pipeline completion, success or failure.
func (m *PipelineMetrics) FinishDocument(service, documentType string, duration time.Duration, confidence float64, err error) {
	m.processInFlight.Dec()

	status := "success"
	errText := ""
	if err != nil {
		status = "error"
		errText = err.Error()
	}
	if documentType == "" {
		documentType = "unknown"
	}

	m.processTotal.WithLabelValues(service, documentType, status).Inc()
	m.processDuration.WithLabelValues(service, status).Observe(duration.Seconds())
	if err == nil {
		m.confidence.Observe(confidence)
	}

	m.logger.Info("ocr_metrics",
		"document_type", documentType,
		"processing_time_ms", float64(duration.Microseconds())/1000.0,
		"success", err == nil,
		"confidence", confidence,
		"error", errText,
	)
}

func (m *PipelineMetrics) ObserveCacheLookup(service string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.cacheHits.WithLabelValues(service, outcome).Inc()
}
