package channels

import "github.com/prometheus/client_golang/prometheus"

var (
	channelsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardcomms_channels_created_total",
			Help: "Channels created by the provisioner, by subkind.",
		},
		[]string{"subkind"},
	)
	provisionFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "guardcomms_channels_provision_failures_total",
		Help: "Channel creations that failed and were skipped.",
	})
)

func init() {
	prometheus.MustRegister(channelsCreated, provisionFailures)
}
