package fleet

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	registry *prometheus.Registry

	TrackedVehicles prometheus.Gauge

	TelemetryApplied  prometheus.Counter
	TelemetryStale    prometheus.Counter
	TelemetryRejected prometheus.Counter

	ApplyDuration prometheus.Histogram
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	collector := &Collector{
		registry: registry,
		TrackedVehicles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "citybus_fleet_tracked_vehicles",
			Help: "Number of vehicles currently tracked by the fleet store.",
		}),
		TelemetryApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "citybus_fleet_telemetry_applied_total",
			Help: "Total telemetry updates accepted and applied.",
		}),
		TelemetryStale: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "citybus_fleet_telemetry_stale_total",
			Help: "Total telemetry updates dropped for carrying an old timestamp.",
		}),
		TelemetryRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "citybus_fleet_telemetry_rejected_total",
			Help: "Total telemetry updates rejected for referencing an unknown route.",
		}),
		ApplyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "citybus_fleet_apply_duration_seconds",
			Help:    "Duration of telemetry apply operations.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 15),
		}),
	}

	registry.MustRegister(
		collector.TrackedVehicles,
		collector.TelemetryApplied,
		collector.TelemetryStale,
		collector.TelemetryRejected,
		collector.ApplyDuration,
	)

	return collector
}

func (collector *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(collector.registry, promhttp.HandlerOpts{})
}
