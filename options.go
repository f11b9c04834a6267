package fieldcrypt

import (
	"github.com/sirupsen/logrus"
)

const (
	// DefaultClientID tags envelopes produced by this library.
	DefaultClientID = "go"

	// defaultParanoia selects the generator's own default level.
	defaultParanoia = -1
)

// WordSource supplies random 32-bit words. The paranoia level selects how
// much collected entropy the source must hold before it answers.
type WordSource interface {
	RandomWords(n, paranoia int) ([]uint32, error)
}

// clientConfig holds configuration for the client.
type clientConfig struct {
	clientID string
	version  string
	random   WordSource
	paranoia int
	logger   *logrus.Entry
}

// Option configures the client.
type Option func(*clientConfig)

// WithClientID sets the client ID written into the envelope tag.
// Default: "go"
func WithClientID(id string) Option {
	return func(c *clientConfig) {
		c.clientID = id
	}
}

// WithVersion sets the dotted version written into the envelope tag.
// Default: Version
func WithVersion(version string) Option {
	return func(c *clientConfig) {
		c.version = version
	}
}

// WithRandomSource sets the source of key, IV and padding randomness.
// By default a process-wide generator seeded from crypto/rand is used.
func WithRandomSource(src WordSource) Option {
	return func(c *clientConfig) {
		c.random = src
	}
}

// WithParanoia sets the paranoia level passed to the random source.
// A negative level uses the source's default.
func WithParanoia(level int) Option {
	return func(c *clientConfig) {
		c.paranoia = level
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logrus.Entry) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}
