package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Connections prometheus.Gauge
	Rooms       prometheus.Gauge
	Events      *prometheus.CounterVec
	Dropped     *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Connections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "callroom",
			Name:      "connections",
			Help:      "Live signal connections.",
		}),
		Rooms: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "callroom",
			Name:      "rooms",
			Help:      "Rooms with at least one member.",
		}),
		Events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "callroom",
			Name:      "inbound_events_total",
			Help:      "Inbound events processed by the router.",
		}, []string{"event"}),
		Dropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "callroom",
			Name:      "dropped_frames_total",
			Help:      "Outbound frames not delivered.",
		}, []string{"reason"}),
	}
}
