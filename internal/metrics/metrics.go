package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labelgw_events_total",
			Help: "Webhook event lifecycle counter by terminal stage and outcome",
		},
		[]string{"stage", "outcome"}, // received|printed|failed... , ok|transient|permanent
	)

	RelayJobsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "labelgw_relay_jobs_total",
			Help: "Print jobs accepted by the relay",
		},
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		EventsTotal,
		RelayJobsTotal,
	)
}
