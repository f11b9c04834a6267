// Package rsapub implements RSA public-key encryption with PKCS#1 v1.5
// type 2 padding on top of the bigint package.
package rsapub

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/fieldcrypt/client-go/internal/bigint"
	"github.com/fieldcrypt/client-go/internal/crypto"
	"github.com/fieldcrypt/client-go/internal/der"
)

// ErrInvalidPublicKey is returned by SetPublic for missing or malformed
// modulus and exponent strings.
var ErrInvalidPublicKey = fmt.Errorf("%w: invalid RSA public key", crypto.ErrKeyFormat)

// PlaintextTooLongError is returned when a message does not fit the modulus
// with padding.
type PlaintextTooLongError struct {
	Len int
	Max int
}

func (e *PlaintextTooLongError) Error() string {
	return fmt.Sprintf("message too long for RSA: %d bytes, at most %d", e.Len, e.Max)
}

// Unwrap returns crypto.ErrPlaintextTooLong.
func (e *PlaintextTooLongError) Unwrap() error {
	return crypto.ErrPlaintextTooLong
}

// WordSource supplies random 32-bit words.
type WordSource interface {
	RandomWords(n, paranoia int) ([]uint32, error)
}

// PublicKey is an RSA modulus and a word-sized public exponent.
type PublicKey struct {
	n *bigint.Int
	e uint32
}

// SetPublic builds a key from hex modulus and exponent strings.
func SetPublic(modulusHex, exponentHex string) (*PublicKey, error) {
	if modulusHex == "" || exponentHex == "" {
		return nil, ErrInvalidPublicKey
	}

	n, err := bigint.FromHex(modulusHex)
	if err != nil || n.Sign() <= 0 {
		return nil, fmt.Errorf("%w: modulus %q", ErrInvalidPublicKey, modulusHex)
	}
	e, err := strconv.ParseUint(exponentHex, 16, 32)
	if err != nil || e == 0 {
		return nil, fmt.Errorf("%w: exponent %q", ErrInvalidPublicKey, exponentHex)
	}

	return &PublicKey{n: n, e: uint32(e)}, nil
}

// FromDER extracts the modulus and exponent of a DER encoded key.
func FromDER(buf []byte) (*PublicKey, error) {
	mod, exp, err := der.PublicKeyIntegers(buf)
	if err != nil {
		return nil, err
	}
	return SetPublic(hex.EncodeToString(mod), hex.EncodeToString(exp))
}

// Size returns the modulus length in bytes.
func (k *PublicKey) Size() int {
	return (k.n.BitLen() + 7) / 8
}

// Bits returns the modulus length in bits.
func (k *PublicKey) Bits() int {
	return k.n.BitLen()
}

// Exponent returns the public exponent.
func (k *PublicKey) Exponent() uint32 {
	return k.e
}

// Encrypt pads the UTF-8 bytes of plaintext as 00 02 PS 00 M, where PS is
// non-zero random bytes, and returns m^e mod n as lowercase hex of even
// length. The hex is not padded to the modulus size.
func (k *PublicKey) Encrypt(plaintext string, rnd WordSource) (string, error) {
	block, err := k.pad([]byte(plaintext), rnd)
	if err != nil {
		return "", err
	}

	c := bigint.FromBytes(block, false).ExpMod(k.e, k.n)
	h := c.Hex()
	if len(h)%2 == 1 {
		h = "0" + h
	}
	return h, nil
}

func (k *PublicKey) pad(msg []byte, rnd WordSource) ([]byte, error) {
	size := k.Size()
	if len(msg)+crypto.PKCS1Overhead > size {
		return nil, &PlaintextTooLongError{Len: len(msg), Max: size - crypto.PKCS1Overhead}
	}

	block := make([]byte, size)
	i := size - len(msg)
	copy(block[i:], msg)
	i--
	block[i] = 0

	// Padding bytes are taken low byte first from each word; zero bytes
	// are skipped.
	var word uint32
	shift := 0
	for i > 2 {
		if shift == 0 {
			words, err := rnd.RandomWords(1, 0)
			if err != nil {
				return nil, fmt.Errorf("rsa padding: %w", err)
			}
			word = words[0]
		}
		b := byte(word >> shift)
		shift = (shift + 8) % 32
		if b != 0 {
			i--
			block[i] = b
		}
	}
	block[1] = 2
	block[0] = 0
	return block, nil
}
