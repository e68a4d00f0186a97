// Package metrics exposes Prometheus instrumentation for the daily post
// loop and the command handlers.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Post kinds used as label values on PostsSent.
const (
	PostCountdown = "countdown"
	PostForecast  = "forecast"
	PostTrigger   = "trigger"
)

// Set holds the bot's metric collectors on a private registry.
type Set struct {
	registry *prometheus.Registry

	PostsSent        *prometheus.CounterVec
	DeliveryFailures prometheus.Counter
	TickErrors       prometheus.Counter
	Commands         *prometheus.CounterVec
	LastTickUnix     prometheus.Gauge
}

// New creates a Set with all collectors registered.
func New() *Set {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Set{
		registry: reg,
		PostsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "untilbot",
			Name:      "posts_sent_total",
			Help:      "Daily channel posts sent, by post kind.",
		}, []string{"kind"}),
		DeliveryFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "untilbot",
			Name:      "delivery_failures_total",
			Help:      "Channel posts that failed to send.",
		}),
		TickErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "untilbot",
			Name:      "tick_errors_total",
			Help:      "Daily tick attempts that failed before sending.",
		}),
		Commands: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "untilbot",
			Name:      "commands_total",
			Help:      "Inbound commands processed, by command and outcome.",
		}, []string{"command", "outcome"}),
		LastTickUnix: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "untilbot",
			Name:      "last_tick_timestamp_seconds",
			Help:      "Unix time of the last completed daily tick.",
		}),
	}
}

// Handler returns the HTTP handler serving the registry, mounted at
// /metrics by the gateway.
func (s *Set) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}
