package server

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// RequestDuration observes request latency by method, route and status.
var RequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "fieldcrypt_server_request_seconds",
		Help:    "Time of merchant server request handling",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
	}, []string{"method", "route", "status"})

var registerOnce sync.Once

// RegisterMetrics registers the server metrics in the default registry.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RequestDuration)
	})
}
