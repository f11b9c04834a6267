package fieldcrypt

import (
	"errors"
	"fmt"

	"github.com/fieldcrypt/client-go/internal/crypto"
)

// Sentinel errors for errors.Is() checks
var (
	// ErrMissingPublicKey is returned by New when no public key is given.
	ErrMissingPublicKey = errors.New("public key is required")

	// ErrInvalidEncryptionKey is returned by Encrypt when the public key
	// cannot be decoded into a modulus and an exponent. It matches
	// ErrKeyFormat.
	ErrInvalidEncryptionKey = fmt.Errorf("%w: invalid encryption key", crypto.ErrKeyFormat)

	// ErrKeyFormat matches every public key decoding failure.
	ErrKeyFormat = crypto.ErrKeyFormat

	// ErrPlaintextTooLong is returned when the wrapped key does not fit the
	// RSA modulus.
	ErrPlaintextTooLong = crypto.ErrPlaintextTooLong

	// ErrNotReady is returned when the random source lacks entropy.
	ErrNotReady = crypto.ErrNotReady

	// ErrCorrupt is returned when CBC padding is inconsistent on decrypt.
	ErrCorrupt = crypto.ErrCorrupt

	// ErrStreamBounds is returned when key decoding reads past its input.
	ErrStreamBounds = crypto.ErrStreamBounds

	// ErrInvalidTag is returned by New when the client ID or version cannot
	// be written into an envelope tag.
	ErrInvalidTag = crypto.ErrInvalidTag

	// ErrInvalidEnvelope is returned by ParseEnvelope for malformed input.
	ErrInvalidEnvelope = crypto.ErrInvalidEnvelope
)

// FieldError reports which field of an EncryptFields call failed.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q: %v", e.Field, e.Err)
}

// Unwrap returns the underlying error.
func (e *FieldError) Unwrap() error {
	return e.Err
}
