package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// PollTotal counts poll ticks by outcome.
	// result: success / partial / skipped / failed
	PollTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carbridge_poll_total",
			Help: "Total number of poll ticks, labeled by result.",
		},
		[]string{"result"},
	)

	// PollInterval exposes the currently scheduled poll interval per vehicle.
	PollInterval = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "carbridge_poll_interval_seconds",
			Help: "The currently scheduled polling interval.",
		},
		[]string{"vin"},
	)

	// CommandTotal counts dispatched remote-control commands.
	// status: succeeded / failed / rejected
	CommandTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carbridge_command_total",
			Help: "Total number of remote-control commands, labeled by kind and status.",
		},
		[]string{"kind", "status"},
	)

	// FetchDuration measures vehicle-cloud request latency.
	FetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "carbridge_cloud_fetch_duration_seconds",
			Help:    "Latency of vehicle cloud requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
)

func init() {
	prometheus.MustRegister(PollTotal)
	prometheus.MustRegister(PollInterval)
	prometheus.MustRegister(CommandTotal)
	prometheus.MustRegister(FetchDuration)
}
