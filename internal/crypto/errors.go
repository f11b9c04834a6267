package crypto

import "errors"

var (
	// ErrKeyFormat is returned when a public key is not valid base64, not
	// valid DER, or does not contain exactly a modulus and an exponent.
	ErrKeyFormat = errors.New("invalid key format")

	// ErrPlaintextTooLong is returned when a message does not fit in the
	// RSA modulus once PKCS#1 v1.5 padding is added.
	ErrPlaintextTooLong = errors.New("message too long for RSA")

	// ErrNotReady is returned when the random generator has not collected
	// enough entropy for the requested paranoia level.
	ErrNotReady = errors.New("generator isn't seeded")

	// ErrCorrupt is returned when CBC padding fails its consistency check.
	ErrCorrupt = errors.New("ciphertext corrupt")

	// ErrStreamBounds is returned when the DER decoder reads outside its
	// buffer or meets a length encoding it does not support.
	ErrStreamBounds = errors.New("stream out of bounds")

	// ErrInvalidEnvelope is returned when an envelope string does not have
	// the marker and the three encoded segments.
	ErrInvalidEnvelope = errors.New("invalid envelope")

	// ErrInvalidTag is returned when a client ID or version cannot be
	// written into an envelope tag.
	ErrInvalidTag = errors.New("invalid envelope tag")

	// ErrSignatureVerificationFailed is returned when the envelope HMAC does
	// not match its ciphertext.
	ErrSignatureVerificationFailed = errors.New("signature verification failed")

	// ErrDecryptionFailed is returned when the wrapped key cannot be recovered.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrInvalidKeySize is returned when a symmetric key has the wrong size.
	ErrInvalidKeySize = errors.New("invalid key size")

	// ErrInvalidIVSize is returned when an IV is not one block long.
	ErrInvalidIVSize = errors.New("invalid iv size")

	// ErrInvalidPrivateKey is returned when a PEM private key cannot be parsed.
	ErrInvalidPrivateKey = errors.New("invalid private key")
)
