package prng

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ReseedCounter counts reseeds from the entropy pools.
	ReseedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fieldcrypt_prng_reseeds_total",
		Help: "number of generator reseeds from the entropy pools",
	})

	// EntropyBitsCounter counts estimated entropy bits added, by source.
	EntropyBitsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldcrypt_prng_entropy_bits_total",
		Help: "estimated entropy bits added to the pools",
	}, []string{"source"})

	// NotReadyCounter counts RandomWords calls refused for lack of entropy.
	NotReadyCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fieldcrypt_prng_not_ready_total",
		Help: "number of random word requests refused before seeding",
	})
)

var registerOnce sync.Once

// RegisterMetrics registers the generator metrics in the default registry.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(ReseedCounter)
		prometheus.MustRegister(EntropyBitsCounter)
		prometheus.MustRegister(NotReadyCounter)
	})
}
