package bitarray

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Codec errors.
var (
	ErrInvalidHex    = errors.New("invalid hex")
	ErrInvalidBase64 = errors.New("invalid base64")
	ErrInvalidUTF8   = errors.New("invalid utf-8")
)

const (
	hexDigits      = "0123456789abcdef"
	base64Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
	base64URL      = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
)

// FromBytes packs data big-endian into words.
func FromBytes(data []byte) Bits {
	var b Bits
	for _, c := range data {
		b.push(uint32(c), 8)
	}
	return b
}

// Bytes unpacks b into bytes. A trailing partial byte is zero-filled.
func (b Bits) Bytes() []byte {
	out := make([]byte, (b.n+7)/8)
	for i := range out {
		out[i] = byte(b.Extract(8*i, 8))
	}
	return out
}

// FromUTF8 encodes s as its UTF-8 bytes.
func FromUTF8(s string) Bits {
	return FromBytes([]byte(s))
}

// UTF8 decodes b as UTF-8 text.
func (b Bits) UTF8() (string, error) {
	data := b.Bytes()
	if !utf8.Valid(data) {
		return "", ErrInvalidUTF8
	}
	return string(data), nil
}

// FromHex parses hex digits, ignoring whitespace and a leading "0x".
func FromHex(s string) (Bits, error) {
	s = stripSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")

	var b Bits
	for i := 0; i < len(s); i++ {
		v := strings.IndexByte(hexDigits, lower(s[i]))
		if v < 0 {
			return Bits{}, fmt.Errorf("%w: %q at %d", ErrInvalidHex, s[i], i)
		}
		b.push(uint32(v), 4)
	}
	return b, nil
}

// Hex renders b as lowercase hex, one digit per started nibble.
func (b Bits) Hex() string {
	var sb strings.Builder
	for i := 0; i < b.n; i += 4 {
		sb.WriteByte(hexDigits[b.Extract(i, 4)])
	}
	return sb.String()
}

// FromBase64 parses standard base64. Whitespace and padding are ignored;
// trailing bits that do not make a whole byte are dropped.
func FromBase64(s string) (Bits, error) {
	return fromBase64(s, base64Alphabet)
}

// FromBase64URL parses URL-safe base64.
func FromBase64URL(s string) (Bits, error) {
	return fromBase64(s, base64URL)
}

// Base64 renders b as padded standard base64.
func (b Bits) Base64() string {
	return b.base64(base64Alphabet, true)
}

// Base64URL renders b as unpadded URL-safe base64.
func (b Bits) Base64URL() string {
	return b.base64(base64URL, false)
}

func (b Bits) base64(alphabet string, pad bool) string {
	var sb strings.Builder
	for i := 0; i < b.n; i += 6 {
		sb.WriteByte(alphabet[b.Extract(i, 6)])
	}
	if pad {
		for sb.Len()%4 != 0 {
			sb.WriteByte('=')
		}
	}
	return sb.String()
}

func fromBase64(s, alphabet string) (Bits, error) {
	s = strings.TrimRight(stripSpace(s), "=")

	var b Bits
	for i := 0; i < len(s); i++ {
		v := strings.IndexByte(alphabet, s[i])
		if v < 0 {
			return Bits{}, fmt.Errorf("%w: %q at %d", ErrInvalidBase64, s[i], i)
		}
		b.push(uint32(v), 6)
	}
	return b.Clamp(b.n &^ 7), nil
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, s)
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}
