package sim

import "github.com/prometheus/client_golang/prometheus"

var (
	volumesGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "sanlink",
		Subsystem: "sim",
		Name:      "volumes",
		Help:      "Current number of simulated volumes.",
	})

	exportsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "sanlink",
		Subsystem: "sim",
		Name:      "exports",
		Help:      "Current number of simulated NFS exports.",
	})
)

func init() {
	prometheus.MustRegister(
		volumesGauge,
		exportsGauge,
	)
}
