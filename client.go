package fieldcrypt

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fieldcrypt/client-go/internal/bitarray"
	"github.com/fieldcrypt/client-go/internal/blockcipher"
	"github.com/fieldcrypt/client-go/internal/crypto"
	"github.com/fieldcrypt/client-go/internal/digest"
	"github.com/fieldcrypt/client-go/internal/prng"
	"github.com/fieldcrypt/client-go/internal/rsapub"
)

// Version is the library version written into envelope tags.
const Version = "1.3.10"

const (
	aesKeyWords  = crypto.AESKeySize / 4
	hmacKeyWords = crypto.HMACKeySize / 4
	ivWords      = crypto.IVSize / 4
)

// Envelope is a parsed field envelope.
type Envelope = crypto.Envelope

// ParseEnvelope splits an envelope string into its parts.
func ParseEnvelope(s string) (*Envelope, error) {
	return crypto.ParseEnvelope(s)
}

var (
	defaultSourceOnce sync.Once
	defaultSource     *prng.Generator
	defaultSourceErr  error
)

// DefaultRandomSource returns the process-wide generator used when no
// WithRandomSource option is given.
func DefaultRandomSource() (WordSource, error) {
	defaultSourceOnce.Do(func() {
		defaultSource, defaultSourceErr = prng.NewSeeded()
	})
	if defaultSourceErr != nil {
		return nil, defaultSourceErr
	}
	return defaultSource, nil
}

// DefaultCollectInterval is the tick of the default source's collectors.
const DefaultCollectInterval = 100 * time.Millisecond

// StartCollectors keeps feeding the default random source with timing and
// system entropy until ctx is done or StopCollectors is called. A
// non-positive interval selects DefaultCollectInterval.
func StartCollectors(ctx context.Context, interval time.Duration) error {
	if _, err := DefaultRandomSource(); err != nil {
		return fmt.Errorf("seed random source: %w", err)
	}
	if interval <= 0 {
		interval = DefaultCollectInterval
	}
	defaultSource.StartCollectors(ctx, interval)
	return nil
}

// StopCollectors stops collectors started by StartCollectors.
func StopCollectors() {
	if _, err := DefaultRandomSource(); err != nil {
		return
	}
	defaultSource.StopCollectors()
}

// Client encrypts fields for one merchant public key. It is safe for
// concurrent use if its random source is.
type Client struct {
	publicKey string
	prefix    string
	random    WordSource
	paranoia  int
	logger    *logrus.Entry
}

// New creates a client for a base64 DER public key. The key is decoded on
// each Encrypt call.
func New(publicKey string, opts ...Option) (*Client, error) {
	if publicKey == "" {
		return nil, ErrMissingPublicKey
	}

	cfg := &clientConfig{
		clientID: DefaultClientID,
		version:  Version,
		paranoia: defaultParanoia,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if err := crypto.ValidateTag(cfg.clientID, cfg.version); err != nil {
		return nil, err
	}

	if cfg.random == nil {
		src, err := DefaultRandomSource()
		if err != nil {
			return nil, fmt.Errorf("seed random source: %w", err)
		}
		cfg.random = src
	}
	if cfg.logger == nil {
		cfg.logger = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Client{
		publicKey: publicKey,
		prefix:    crypto.EnvelopePrefix(cfg.clientID, cfg.version),
		random:    cfg.random,
		paranoia:  cfg.paranoia,
		logger:    cfg.logger.WithField("component", "fieldcrypt"),
	}, nil
}

// Encrypt returns the envelope for plaintext.
func (c *Client) Encrypt(plaintext string) (string, error) {
	envelope, err := c.encrypt(plaintext)
	if err != nil {
		EncryptionCounter.WithLabelValues(encryptionStatusFail).Inc()
		return "", err
	}
	EncryptionCounter.WithLabelValues(encryptionStatusSuccess).Inc()
	return envelope, nil
}

func (c *Client) encrypt(plaintext string) (string, error) {
	pub, err := c.parsePublicKey()
	if err != nil {
		c.logger.WithError(err).Warnln("Can't decode encryption key")
		return "", err
	}

	aesKey, err := c.randomBits(aesKeyWords)
	if err != nil {
		return "", err
	}
	hmacKey, err := c.randomBits(hmacKeyWords)
	if err != nil {
		return "", err
	}
	iv, err := c.randomBits(ivWords)
	if err != nil {
		return "", err
	}

	block, err := blockcipher.NewAES(aesKey.Words())
	if err != nil {
		return "", err
	}
	ct, err := blockcipher.EncryptCBC(block, bitarray.FromUTF8(plaintext), iv, bitarray.Bits{})
	if err != nil {
		return "", err
	}
	ivCiphertext := iv.Concat(ct)
	signature := digest.NewHMAC(hmacKey).MAC(ivCiphertext)

	wrapped, err := pub.Encrypt(aesKey.Concat(hmacKey).Base64(), c.random)
	if err != nil {
		return "", err
	}
	wrappedBits, err := bitarray.FromHex(wrapped)
	if err != nil {
		return "", err
	}

	c.logger.WithFields(logrus.Fields{
		"key_bits":        pub.Bits(),
		"plaintext_bytes": len(plaintext),
	}).Debugln("Encrypted field")

	return c.prefix +
		wrappedBits.Base64() + crypto.SegmentSeparator +
		ivCiphertext.Base64() + crypto.SegmentSeparator +
		signature.Base64(), nil
}

func (c *Client) parsePublicKey() (*rsapub.PublicKey, error) {
	der, err := bitarray.FromBase64(c.publicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEncryptionKey, err)
	}
	pub, err := rsapub.FromDER(der.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEncryptionKey, err)
	}
	return pub, nil
}

func (c *Client) randomBits(words int) (bitarray.Bits, error) {
	w, err := c.random.RandomWords(words, c.paranoia)
	if err != nil {
		return bitarray.Bits{}, err
	}
	return bitarray.FromWords(w...), nil
}

// EncryptFields encrypts every value of fields. It returns either all
// envelopes or the first error.
func (c *Client) EncryptFields(fields map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(fields))
	for name, value := range fields {
		envelope, err := c.Encrypt(value)
		if err != nil {
			return nil, &FieldError{Field: name, Err: err}
		}
		out[name] = envelope
	}
	return out, nil
}
