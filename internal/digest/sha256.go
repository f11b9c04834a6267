// Package digest implements SHA-256 and HMAC-SHA256 over bit arrays.
package digest

import (
	"math"
	"math/bits"
	"sync"

	"github.com/fieldcrypt/client-go/internal/bitarray"
)

const (
	// Size is the digest length in bytes.
	Size = 32
	// BlockSize is the compression block length in bytes.
	BlockSize = 64

	blockBits  = 8 * BlockSize
	blockWords = BlockSize / 4
)

var (
	tablesOnce sync.Once
	initState  [8]uint32
	roundKeys  [64]uint32
)

// precompute derives the initial state and round constants from the square
// and cube roots of the first 64 primes.
func precompute() {
	frac := func(x float64) uint32 {
		return uint32((x - math.Floor(x)) * 0x100000000)
	}

	i := 0
	for p := 2; i < 64; p++ {
		prime := true
		for f := 2; f*f <= p; f++ {
			if p%f == 0 {
				prime = false
				break
			}
		}
		if !prime {
			continue
		}
		if i < 8 {
			initState[i] = frac(math.Sqrt(float64(p)))
		}
		roundKeys[i] = frac(math.Cbrt(float64(p)))
		i++
	}
}

// SHA256 is a streaming hasher. The zero value is not usable; call New.
type SHA256 struct {
	h      [8]uint32
	buf    bitarray.Bits
	length uint64
}

// New returns a reset hasher.
func New() *SHA256 {
	tablesOnce.Do(precompute)
	s := &SHA256{}
	s.Reset()
	return s
}

// Reset restores the initial state.
func (s *SHA256) Reset() {
	s.h = initState
	s.buf = bitarray.Bits{}
	s.length = 0
}

// Clone returns an independent copy of the hasher state.
func (s *SHA256) Clone() *SHA256 {
	c := *s
	return &c
}

// Update absorbs data and returns s.
func (s *SHA256) Update(data bitarray.Bits) *SHA256 {
	s.length += uint64(data.BitLen())
	s.buf = s.buf.Concat(data)

	n := s.buf.BitLen() / blockBits
	if n == 0 {
		return s
	}
	for i := 0; i < n; i++ {
		s.block(s.buf, i*blockWords)
	}
	s.buf = s.buf.Slice(n*blockBits, -1)
	return s
}

// UpdateString absorbs the UTF-8 bytes of str.
func (s *SHA256) UpdateString(str string) *SHA256 {
	return s.Update(bitarray.FromUTF8(str))
}

// Finalize pads the message, returns the 256-bit digest and resets s.
func (s *SHA256) Finalize() bitarray.Bits {
	b := s.buf.Concat(bitarray.Partial(1, 0x80000000))

	zeros := (blockBits - 64 - b.BitLen()%blockBits + blockBits) % blockBits
	b = b.Concat(bitarray.New(make([]uint32, (zeros+31)/32), zeros))
	b = b.Concat(bitarray.FromWords(uint32(s.length>>32), uint32(s.length)))

	for i := 0; i < b.BitLen()/blockBits; i++ {
		s.block(b, i*blockWords)
	}

	out := bitarray.FromWords(s.h[:]...)
	s.Reset()
	return out
}

// block runs the compression function over 16 words of b starting at word off.
func (s *SHA256) block(b bitarray.Bits, off int) {
	var w [64]uint32
	for i := 0; i < 16; i++ {
		w[i] = b.Word(off + i)
	}
	for i := 16; i < 64; i++ {
		s0 := bits.RotateLeft32(w[i-15], -7) ^ bits.RotateLeft32(w[i-15], -18) ^ w[i-15]>>3
		s1 := bits.RotateLeft32(w[i-2], -17) ^ bits.RotateLeft32(w[i-2], -19) ^ w[i-2]>>10
		w[i] = w[i-16] + s0 + w[i-7] + s1
	}

	a, bb, c, d, e, f, g, h := s.h[0], s.h[1], s.h[2], s.h[3], s.h[4], s.h[5], s.h[6], s.h[7]
	for i := 0; i < 64; i++ {
		s1 := bits.RotateLeft32(e, -6) ^ bits.RotateLeft32(e, -11) ^ bits.RotateLeft32(e, -25)
		ch := e&f ^ ^e&g
		t1 := h + s1 + ch + roundKeys[i] + w[i]
		s0 := bits.RotateLeft32(a, -2) ^ bits.RotateLeft32(a, -13) ^ bits.RotateLeft32(a, -22)
		maj := a&bb ^ a&c ^ bb&c
		t2 := s0 + maj

		h, g, f, e, d, c, bb, a = g, f, e, d+t1, c, bb, a, t1+t2
	}

	s.h[0] += a
	s.h[1] += bb
	s.h[2] += c
	s.h[3] += d
	s.h[4] += e
	s.h[5] += f
	s.h[6] += g
	s.h[7] += h
}

// Hash returns the SHA-256 digest of data.
func Hash(data bitarray.Bits) bitarray.Bits {
	return New().Update(data).Finalize()
}

// Sum256 returns the SHA-256 digest of data.
func Sum256(data []byte) [Size]byte {
	var out [Size]byte
	copy(out[:], Hash(bitarray.FromBytes(data)).Bytes())
	return out
}
