package blockcipher

import (
	"math/bits"
	"sync"
)

var (
	tablesOnce sync.Once

	sbox    [256]byte
	sboxInv [256]byte

	// te and td combine SubBytes with MixColumns (and their inverses) for
	// one column byte position each.
	te [4][256]uint32
	td [4][256]uint32

	gfExp [256]byte
	gfLog [256]byte
)

func xtime(x byte) byte {
	return x<<1 ^ (x>>7)*0x1b
}

// gmul multiplies in GF(2^8) modulo the Rijndael polynomial.
func gmul(a, b byte) byte {
	if a == 0 || b == 0 {
		return 0
	}
	return gfExp[(int(gfLog[a])+int(gfLog[b]))%255]
}

func precompute() {
	// 3 generates the multiplicative group.
	x := byte(1)
	for i := 0; i < 255; i++ {
		gfExp[i] = x
		gfLog[x] = byte(i)
		x ^= xtime(x)
	}

	for i := 0; i < 256; i++ {
		var inv byte
		if i != 0 {
			inv = gfExp[(255-int(gfLog[i]))%255]
		}
		s := inv ^ bits.RotateLeft8(inv, 1) ^ bits.RotateLeft8(inv, 2) ^
			bits.RotateLeft8(inv, 3) ^ bits.RotateLeft8(inv, 4) ^ 0x63
		sbox[i] = s
		sboxInv[s] = byte(i)
	}

	for i := 0; i < 256; i++ {
		s := sbox[i]
		enc := uint32(gmul(s, 2))<<24 | uint32(s)<<16 | uint32(s)<<8 | uint32(gmul(s, 3))

		v := sboxInv[i]
		dec := uint32(gmul(v, 14))<<24 | uint32(gmul(v, 9))<<16 | uint32(gmul(v, 13))<<8 | uint32(gmul(v, 11))

		for j := 0; j < 4; j++ {
			te[j][i] = bits.RotateLeft32(enc, -8*j)
			td[j][i] = bits.RotateLeft32(dec, -8*j)
		}
	}
}

func subWord(w uint32) uint32 {
	return uint32(sbox[w>>24])<<24 | uint32(sbox[w>>16&0xff])<<16 |
		uint32(sbox[w>>8&0xff])<<8 | uint32(sbox[w&0xff])
}
