// Package metrics exposes Prometheus instrumentation for report generation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ReportsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "region_insights_reports_generated_total",
			Help: "Reports computed, by kind (overview, review).",
		},
		[]string{"kind"},
	)

	ReportDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "region_insights_report_duration_seconds",
			Help:    "Time to fetch records and compute a report.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "region_insights_cache_lookups_total",
			Help: "Report cache lookups by result (hit, miss, error).",
		},
		[]string{"result"},
	)

	AlertsRaised = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "region_insights_alerts_total",
			Help: "Alerts raised by type and severity.",
		},
		[]string{"type", "severity"},
	)

	SourceErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "region_insights_source_errors_total",
			Help: "Campaign record source failures by operation.",
		},
		[]string{"operation"},
	)

	Publishes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "region_insights_publishes_total",
			Help: "Report publish steps by step and outcome.",
		},
		[]string{"step", "outcome"},
	)

	InsufficientRegions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "region_insights_insufficient_regions",
			Help: "Regions below the significance gate in the latest overview.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		ReportsGenerated,
		ReportDuration,
		CacheLookups,
		AlertsRaised,
		SourceErrors,
		Publishes,
		InsufficientRegions,
	)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
