// Package metrics holds the Prometheus collectors for extraction and
// capture outcomes.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagelens_extractions_total",
			Help: "Total number of page extractions by content source",
		},
		[]string{"source", "screenshots"},
	)

	ExtractionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pagelens_extraction_duration_seconds",
			Help:    "Duration of one page extraction in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ElementsDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagelens_visual_elements_total",
			Help: "Visual elements detected by type",
		},
		[]string{"type"},
	)

	CapturesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagelens_captures_total",
			Help: "Raster capture attempts by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	DuplicateCaptures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pagelens_duplicate_captures_total",
			Help: "Captures skipped because an identical raster was already kept",
		},
	)

	FieldFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagelens_field_failures_total",
			Help: "Snapshot fields that fell back to their empty value",
		},
		[]string{"field"},
	)

	BridgeMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagelens_bridge_messages_total",
			Help: "Bridge messages handled by action and status",
		},
		[]string{"action", "status"},
	)
)

// Capture outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeFallback = "fallback"
	OutcomeFailed   = "failed"
	OutcomeTimeout  = "timeout"
)

// ObserveCapture records one capture attempt.
func ObserveCapture(kind, outcome string) {
	CapturesTotal.WithLabelValues(kind, outcome).Inc()
}

// ObserveExtraction records one finished extraction.
func ObserveExtraction(source string, screenshots bool, started time.Time) {
	flag := "false"
	if screenshots {
		flag = "true"
	}
	ExtractionsTotal.WithLabelValues(source, flag).Inc()
	ExtractionDuration.Observe(time.Since(started).Seconds())
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
