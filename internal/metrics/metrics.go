// Package metrics holds the Prometheus collectors shared across the service.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	UpstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stock_analyzer",
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Outbound data requests by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	UpstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stock_analyzer",
			Subsystem: "upstream",
			Name:      "latency_seconds",
			Help:      "Latency of outbound data requests",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	AnalysisLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stock_analyzer",
			Subsystem: "analysis",
			Name:      "latency_seconds",
			Help:      "Latency of analysis operations",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)

	AnalysisErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stock_analyzer",
			Subsystem: "analysis",
			Name:      "errors_total",
			Help:      "Failed analysis operations",
		},
		[]string{"operation"},
	)

	Signals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stock_analyzer",
			Subsystem: "analysis",
			Name:      "signals_total",
			Help:      "Fused signals by action",
		},
		[]string{"action"},
	)

	ScanSkips = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stock_analyzer",
			Subsystem: "scanner",
			Name:      "skipped_total",
			Help:      "Symbols skipped by the scanner by kind",
		},
		[]string{"kind"},
	)

	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stock_analyzer",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Response cache lookups by result",
		},
		[]string{"result"},
	)

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stock_analyzer",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status class",
		},
		[]string{"route", "method", "class"},
	)

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stock_analyzer",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"route", "method"},
	)
)

// Register registers all collectors with the default registry. Safe to call repeatedly.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			UpstreamRequests, UpstreamLatency,
			AnalysisLatency, AnalysisErrors, Signals,
			ScanSkips, CacheLookups,
			HTTPRequests, HTTPDuration,
		)
	})
}
