package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	HubClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "attackdash",
			Subsystem: "ws",
			Name:      "clients",
			Help:      "Connected websocket clients",
		},
	)

	HubBroadcasts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "attackdash",
			Subsystem: "ws",
			Name:      "broadcasts_total",
			Help:      "Messages broadcast to websocket clients by type",
		},
		[]string{"type"},
	)

	HubDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "attackdash",
			Subsystem: "ws",
			Name:      "dropped_total",
			Help:      "Clients dropped because their send buffer was full",
		},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(HubClients, HubBroadcasts, HubDropped)
	})
}
