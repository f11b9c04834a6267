// Package bitarray implements bit-exact buffers of 32-bit words and the
// hex, UTF-8, base64 and byte codecs used to move key material, ciphertext
// and signatures between the primitives.
//
// Words are big-endian: bit 0 of a Bits value is the most significant bit
// of its first word. Only the last word may be partial, and its unused low
// bits are always zero.
package bitarray

import "crypto/subtle"

// Bits is an immutable bit string. The zero value is the empty string.
type Bits struct {
	words []uint32
	n     int
}

// FromWords returns a Bits of 32*len(words) bits. The slice is copied.
func FromWords(words ...uint32) Bits {
	return Bits{words: append([]uint32(nil), words...), n: 32 * len(words)}
}

// New returns the first n bits of words.
func New(words []uint32, n int) Bits {
	return FromWords(words...).Clamp(n)
}

// Partial returns a single word holding the top n bits of v.
func Partial(n int, v uint32) Bits {
	return New([]uint32{v}, n)
}

// BitLen reports the number of bits.
func (b Bits) BitLen() int { return b.n }

// Words returns a copy of the underlying words.
func (b Bits) Words() []uint32 { return append([]uint32(nil), b.words...) }

// Word returns word i, or zero past the end.
func (b Bits) Word(i int) uint32 {
	if i < 0 || i >= len(b.words) {
		return 0
	}
	return b.words[i]
}

// Concat returns b followed by o.
func (b Bits) Concat(o Bits) Bits {
	if b.n%32 == 0 {
		out := make([]uint32, 0, len(b.words)+len(o.words))
		out = append(append(out, b.words...), o.words...)
		return Bits{words: out, n: b.n + o.n}
	}

	out := Bits{words: b.Words(), n: b.n}
	for i := 0; i < o.n; i += 32 {
		l := min(32, o.n-i)
		out.push(o.Extract(i, l), l)
	}
	return out
}

// Slice returns bits [start, end). A negative end means the end of b.
func (b Bits) Slice(start, end int) Bits {
	if end < 0 || end > b.n {
		end = b.n
	}
	if start < 0 {
		start = 0
	}
	if start >= end {
		return Bits{}
	}

	var out Bits
	for i := start; i < end; i += 32 {
		l := min(32, end-i)
		out.push(b.Extract(i, l), l)
	}
	return out
}

// Clamp truncates b to at most n bits.
func (b Bits) Clamp(n int) Bits {
	if n < 0 {
		n = 0
	}
	if n >= b.n {
		return Bits{words: b.Words(), n: b.n}
	}

	words := append([]uint32(nil), b.words[:(n+31)/32]...)
	if r := n % 32; r != 0 {
		words[len(words)-1] &= ^uint32(0) << (32 - r)
	}
	return Bits{words: words, n: n}
}

// Extract returns length bits starting at bit start, right-aligned.
// length must be at most 32. Bits past the end read as zero.
func (b Bits) Extract(start, length int) uint32 {
	if length <= 0 {
		return 0
	}
	w, off := start/32, uint(start%32)
	hi := b.Word(w)<<off | b.Word(w+1)>>(32-off)
	return hi >> (32 - uint(length))
}

// Equal compares two bit strings in constant time for equal lengths.
func Equal(a, b Bits) bool {
	if a.n != b.n {
		return false
	}
	var x uint32
	for i := range a.words {
		x |= a.words[i] ^ b.words[i]
	}
	return subtle.ConstantTimeEq(int32(x), 0) == 1
}

// push appends the low l bits of v.
func (b *Bits) push(v uint32, l int) {
	if l <= 0 {
		return
	}
	top := v << (32 - uint(l))
	pos := uint(b.n % 32)
	if pos == 0 {
		b.words = append(b.words, top)
	} else {
		b.words[len(b.words)-1] |= top >> pos
		if int(pos)+l > 32 {
			b.words = append(b.words, top<<(32-pos))
		}
	}
	b.n += l
}
