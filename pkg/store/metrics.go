package store

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	backendPebble = "pebble"
	backendMemory = "memory"
)

var (
	operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardcomms_store_operations_total",
			Help: "Record store writes by backend, operation and result.",
		},
		[]string{"backend", "op", "result"},
	)

	degradedOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardcomms_store_degraded_total",
			Help: "Operations served by the in-memory working set because the primary store failed.",
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(operations)
	prometheus.MustRegister(degradedOps)
}

func observe(backend, op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	operations.WithLabelValues(backend, op, result).Inc()
}
