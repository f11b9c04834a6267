package gateway

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// RequestsCounter counts gateway calls by operation and outcome.
var RequestsCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "fieldcrypt_gateway_requests_total",
		Help: "number of payment gateway requests",
	}, []string{"operation", "status"})

var registerOnce sync.Once

// RegisterMetrics registers the gateway metrics in the default registry.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RequestsCounter)
	})
}
