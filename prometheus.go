package fieldcrypt

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fieldcrypt/client-go/internal/prng"
)

const (
	encryptionStatusSuccess = "success"
	encryptionStatusFail    = "fail"
)

// EncryptionCounter counts Encrypt calls by status.
var EncryptionCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "fieldcrypt_encryptions_total",
		Help: "number of field encryptions",
	}, []string{"status"})

var registerOnce sync.Once

// RegisterMetrics registers the encryption and generator metrics in the
// default registry.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(EncryptionCounter)
		prng.RegisterMetrics()
	})
}
