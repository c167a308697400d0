// Package metrics holds the prometheus collectors for the realtime server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	SessionsLive   prometheus.Gauge
	Commands       *prometheus.CounterVec
	Notifications  prometheus.Counter
	FanoutFailures prometheus.Counter
	DroppedClients prometheus.Counter
}

// New registers all collectors on reg. Pass a fresh registry in tests to
// avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionsLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "floorlink",
			Name:      "sessions_live",
			Help:      "Currently connected sessions.",
		}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "floorlink",
			Name:      "commands_total",
			Help:      "Dispatched commands by type and response status.",
		}, []string{"type", "status"}),
		Notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "floorlink",
			Name:      "notifications_total",
			Help:      "Change notifications delivered to sessions.",
		}),
		FanoutFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "floorlink",
			Name:      "fanout_failures_total",
			Help:      "Per-subscription match/project/send failures during fan-out.",
		}),
		DroppedClients: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "floorlink",
			Name:      "dropped_clients_total",
			Help:      "Connections dropped because their send buffer was full.",
		}),
	}
	reg.MustRegister(m.SessionsLive, m.Commands, m.Notifications, m.FanoutFailures, m.DroppedClients)
	return m
}
