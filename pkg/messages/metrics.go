package messages

import "github.com/prometheus/client_golang/prometheus"

var (
	messagesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardcomms_messages_sent_total",
			Help: "Messages accepted by SendMessage, by kind.",
		},
		[]string{"kind"},
	)
	durableWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardcomms_messages_durable_writes_total",
			Help: "Durable message writes by result (ok, error, dropped).",
		},
		[]string{"result"},
	)
	queueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "guardcomms_messages_write_queue_depth",
		Help: "Messages waiting for the async durable writer.",
	})
)

func init() {
	prometheus.MustRegister(messagesSent, durableWrites, queueDepth)
}
