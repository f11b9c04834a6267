package der

import (
	"fmt"

	"github.com/fieldcrypt/client-go/internal/crypto"
)

// StreamBoundsError is returned when decoding reads outside the buffer or
// meets a length encoding longer than three bytes.
type StreamBoundsError struct {
	Offset int
	Len    int
	Reason string
}

func (e *StreamBoundsError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("der: %s at offset %d", e.Reason, e.Offset)
	}
	return fmt.Sprintf("der: requesting byte offset %d on a stream of length %d", e.Offset, e.Len)
}

// Unwrap returns crypto.ErrStreamBounds.
func (e *StreamBoundsError) Unwrap() error {
	return crypto.ErrStreamBounds
}

// ParseError is returned when the structure of the input is not valid DER.
// It matches crypto.ErrKeyFormat and unwraps to the underlying cause, if any.
type ParseError struct {
	Offset int
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("der: %s at offset %d: %v", e.Msg, e.Offset, e.Err)
	}
	return fmt.Sprintf("der: %s at offset %d", e.Msg, e.Offset)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is reports whether target is crypto.ErrKeyFormat.
func (e *ParseError) Is(target error) bool {
	return target == crypto.ErrKeyFormat
}

// ErrTooDeep is returned when nesting exceeds MaxDepth.
var ErrTooDeep = fmt.Errorf("%w: der nesting exceeds %d levels", crypto.ErrKeyFormat, MaxDepth)
