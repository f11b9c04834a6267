package prng

import (
	"errors"

	"github.com/fieldcrypt/client-go/internal/crypto"
)

var (
	// ErrNotReady is returned by RandomWords before enough entropy has
	// been collected.
	ErrNotReady = crypto.ErrNotReady

	// ErrUnsupportedEntropy is returned by AddEntropy for data that is not
	// an integer, a []uint32 or a string.
	ErrUnsupportedEntropy = errors.New("random: addEntropy only supports number, array of numbers or string")

	// ErrInvalidParanoia is returned for levels outside ParanoiaLevels.
	ErrInvalidParanoia = errors.New("random: invalid paranoia level")
)
