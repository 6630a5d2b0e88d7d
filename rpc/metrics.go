package rpc

import "github.com/prometheus/client_golang/prometheus"

var (
	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sanlink",
		Subsystem: "rpc",
		Name:      "requests_total",
		Help:      "Total plugin RPC requests by method and result code.",
	}, []string{"method", "code"})

	requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sanlink",
		Subsystem: "rpc",
		Name:      "request_duration_seconds",
		Help:      "Plugin RPC handling duration in seconds.",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"method"})

	connectionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "sanlink",
		Subsystem: "rpc",
		Name:      "connections",
		Help:      "Currently open plugin connections.",
	})
)

func init() {
	prometheus.MustRegister(
		requestsTotal,
		requestDuration,
		connectionsGauge,
	)
}
