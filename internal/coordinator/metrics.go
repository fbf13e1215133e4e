package coordinator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request paths.
const (
	pathChannel  = "channel"
	pathFallback = "fallback"
	pathBlank    = "blank"
)

// Request outcomes.
const (
	outcomeOK         = "ok"
	outcomeError      = "error"
	outcomeSuperseded = "superseded"
	outcomeTimeout    = "timeout"
	outcomeFailed     = "channel_failed"
	outcomeShutdown   = "shutdown"
)

type metrics struct {
	requests   *prometheus.CounterVec
	superseded prometheus.Counter
	failures   prometheus.Counter
	restarts   prometheus.Counter
	fallback   prometheus.Gauge
	pending    prometheus.Gauge
	latency    *prometheus.HistogramVec
}

// newMetrics creates the coordinator's collectors. A nil registerer leaves
// them unregistered.
func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		// requests counts submissions by the path that served them.
		// Labels: path (channel, fallback, blank)
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cadence",
			Subsystem: "coordinator",
			Name:      "requests_total",
			Help:      "Line analysis requests by serving path",
		}, []string{"path"}),

		superseded: f.NewCounter(prometheus.CounterOpts{
			Namespace: "cadence",
			Subsystem: "coordinator",
			Name:      "superseded_total",
			Help:      "Requests replaced by a newer request for the same line",
		}),

		failures: f.NewCounter(prometheus.CounterOpts{
			Namespace: "cadence",
			Subsystem: "coordinator",
			Name:      "channel_failures_total",
			Help:      "Fatal background channel failures, including failed restarts",
		}),

		restarts: f.NewCounter(prometheus.CounterOpts{
			Namespace: "cadence",
			Subsystem: "coordinator",
			Name:      "channel_restarts_total",
			Help:      "Successful background channel restarts",
		}),

		fallback: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "cadence",
			Subsystem: "coordinator",
			Name:      "fallback_active",
			Help:      "1 once analysis has switched to the in-process fallback",
		}),

		pending: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "cadence",
			Subsystem: "coordinator",
			Name:      "pending_requests",
			Help:      "Requests awaiting a channel response",
		}),

		// latency measures submit-to-settle time for channel requests.
		// Labels: outcome (ok, error, superseded, timeout, channel_failed, shutdown)
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cadence",
			Subsystem: "coordinator",
			Name:      "request_duration_seconds",
			Help:      "Channel request latency in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"outcome"}),
	}
}
