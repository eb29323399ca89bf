// Package metrics holds the Prometheus collectors exposed on the
// server-mode /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector this proxy registers. Only server mode
// creates one; client-mode bridges run their Session with nil metrics,
// so they record nothing and serve no /metrics.
type Metrics struct {
	SessionsStarted *prometheus.CounterVec
	SessionsEnded   *prometheus.CounterVec
	ActiveSessions  *prometheus.GaugeVec
	FramesForwarded *prometheus.CounterVec
	CodecErrors     *prometheus.CounterVec
}

// New creates and registers every collector with reg.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		SessionsStarted: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "relaymcp",
				Name:      "sessions_started_total",
				Help:      "Sessions established, by backend.",
			},
			[]string{"backend"},
		),
		SessionsEnded: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "relaymcp",
				Name:      "sessions_ended_total",
				Help:      "Sessions terminated, by backend and reason.",
			},
			[]string{"backend", "reason"},
		),
		ActiveSessions: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "relaymcp",
				Name:      "active_sessions",
				Help:      "Currently live sessions, by backend.",
			},
			[]string{"backend"},
		),
		FramesForwarded: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "relaymcp",
				Name:      "frames_forwarded_total",
				Help:      "JSON-RPC frames forwarded, by direction.",
			},
			[]string{"direction"},
		),
		CodecErrors: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "relaymcp",
				Name:      "codec_errors_total",
				Help:      "Frames that failed to decode, by error kind.",
			},
			[]string{"kind"},
		),
	}
}
