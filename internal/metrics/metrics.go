// Package metrics exposes prometheus collectors for the server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every collector the server updates.
type Metrics struct {
	OnlineSessions prometheus.Gauge
	LiveMatches    prometheus.Gauge

	Logins        *prometheus.CounterVec
	PacketsIn     *prometheus.CounterVec
	ChatMessages  prometheus.Counter
	RequestTiming prometheus.Histogram
}

// New registers all collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OnlineSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bancho_online_sessions",
			Help: "Currently connected sessions.",
		}),
		LiveMatches: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bancho_live_matches",
			Help: "Currently open multiplayer matches.",
		}),
		Logins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bancho_logins_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
		PacketsIn: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bancho_packets_in_total",
			Help: "Client packets processed by id.",
		}, []string{"id"}),
		ChatMessages: factory.NewCounter(prometheus.CounterOpts{
			Name: "bancho_chat_messages_total",
			Help: "Chat messages routed.",
		}),
		RequestTiming: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bancho_request_seconds",
			Help:    "Wall time of bancho POST requests.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
