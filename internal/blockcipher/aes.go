// Package blockcipher implements the AES block cipher on 32-bit words and
// CBC mode with PKCS#5 padding over bit arrays.
package blockcipher

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/fieldcrypt/client-go/internal/crypto"
)

// BlockWords is the AES block length in 32-bit words.
const BlockWords = 4

var (
	// ErrInvalidKeySize is returned for keys that are not 4, 6 or 8 words.
	ErrInvalidKeySize = fmt.Errorf("%w: aes key must be 128, 192 or 256 bits", crypto.ErrInvalidKeySize)

	// ErrInvalidBlockSize is returned when a block is not exactly 4 words.
	ErrInvalidBlockSize = errors.New("invalid aes block size")
)

// AES holds the expanded round keys of one key. It is safe for concurrent
// use once built.
type AES struct {
	enc []uint32
	dec []uint32
}

// NewAES expands a 128, 192 or 256-bit key given as big-endian words.
func NewAES(key []uint32) (*AES, error) {
	nk := len(key)
	if nk != 4 && nk != 6 && nk != 8 {
		return nil, fmt.Errorf("%w: got %d words", ErrInvalidKeySize, nk)
	}
	tablesOnce.Do(precompute)

	n := 4 * (nk + 7)
	enc := make([]uint32, n)
	copy(enc, key)

	rcon := byte(1)
	for i := nk; i < n; i++ {
		t := enc[i-1]
		switch {
		case i%nk == 0:
			t = subWord(bits.RotateLeft32(t, 8)) ^ uint32(rcon)<<24
			rcon = xtime(rcon)
		case nk > 6 && i%nk == 4:
			t = subWord(t)
		}
		enc[i] = enc[i-nk] ^ t
	}

	// Equivalent inverse cipher: reversed rounds, InvMixColumns applied to
	// every round key but the first and last.
	dec := make([]uint32, n)
	for i := 0; i < n; i += 4 {
		ei := n - i - 4
		for j := 0; j < 4; j++ {
			x := enc[ei+j]
			if i > 0 && i+4 < n {
				x = td[0][sbox[x>>24]] ^ td[1][sbox[x>>16&0xff]] ^
					td[2][sbox[x>>8&0xff]] ^ td[3][sbox[x&0xff]]
			}
			dec[i+j] = x
		}
	}

	return &AES{enc: enc, dec: dec}, nil
}

// Encrypt enciphers one block.
func (c *AES) Encrypt(in [4]uint32) [4]uint32 {
	xk := c.enc
	s0, s1, s2, s3 := in[0]^xk[0], in[1]^xk[1], in[2]^xk[2], in[3]^xk[3]

	k := 4
	for r := 0; r < len(xk)/4-2; r++ {
		t0 := xk[k+0] ^ te[0][s0>>24] ^ te[1][s1>>16&0xff] ^ te[2][s2>>8&0xff] ^ te[3][s3&0xff]
		t1 := xk[k+1] ^ te[0][s1>>24] ^ te[1][s2>>16&0xff] ^ te[2][s3>>8&0xff] ^ te[3][s0&0xff]
		t2 := xk[k+2] ^ te[0][s2>>24] ^ te[1][s3>>16&0xff] ^ te[2][s0>>8&0xff] ^ te[3][s1&0xff]
		t3 := xk[k+3] ^ te[0][s3>>24] ^ te[1][s0>>16&0xff] ^ te[2][s1>>8&0xff] ^ te[3][s2&0xff]
		s0, s1, s2, s3 = t0, t1, t2, t3
		k += 4
	}

	return [4]uint32{
		last(&sbox, s0, s1, s2, s3) ^ xk[k+0],
		last(&sbox, s1, s2, s3, s0) ^ xk[k+1],
		last(&sbox, s2, s3, s0, s1) ^ xk[k+2],
		last(&sbox, s3, s0, s1, s2) ^ xk[k+3],
	}
}

// Decrypt deciphers one block.
func (c *AES) Decrypt(in [4]uint32) [4]uint32 {
	xk := c.dec
	s0, s1, s2, s3 := in[0]^xk[0], in[1]^xk[1], in[2]^xk[2], in[3]^xk[3]

	k := 4
	for r := 0; r < len(xk)/4-2; r++ {
		t0 := xk[k+0] ^ td[0][s0>>24] ^ td[1][s3>>16&0xff] ^ td[2][s2>>8&0xff] ^ td[3][s1&0xff]
		t1 := xk[k+1] ^ td[0][s1>>24] ^ td[1][s0>>16&0xff] ^ td[2][s3>>8&0xff] ^ td[3][s2&0xff]
		t2 := xk[k+2] ^ td[0][s2>>24] ^ td[1][s1>>16&0xff] ^ td[2][s0>>8&0xff] ^ td[3][s3&0xff]
		t3 := xk[k+3] ^ td[0][s3>>24] ^ td[1][s2>>16&0xff] ^ td[2][s1>>8&0xff] ^ td[3][s0&0xff]
		s0, s1, s2, s3 = t0, t1, t2, t3
		k += 4
	}

	return [4]uint32{
		last(&sboxInv, s0, s3, s2, s1) ^ xk[k+0],
		last(&sboxInv, s1, s0, s3, s2) ^ xk[k+1],
		last(&sboxInv, s2, s1, s0, s3) ^ xk[k+2],
		last(&sboxInv, s3, s2, s1, s0) ^ xk[k+3],
	}
}

// last is the final round column: substitution without MixColumns.
func last(box *[256]byte, a, b, c, d uint32) uint32 {
	return uint32(box[a>>24])<<24 | uint32(box[b>>16&0xff])<<16 |
		uint32(box[c>>8&0xff])<<8 | uint32(box[d&0xff])
}

// EncryptWords enciphers a block given as a slice.
func (c *AES) EncryptWords(block []uint32) ([]uint32, error) {
	if len(block) != BlockWords {
		return nil, fmt.Errorf("%w: got %d words", ErrInvalidBlockSize, len(block))
	}
	out := c.Encrypt([4]uint32(block))
	return out[:], nil
}

// DecryptWords deciphers a block given as a slice.
func (c *AES) DecryptWords(block []uint32) ([]uint32, error) {
	if len(block) != BlockWords {
		return nil, fmt.Errorf("%w: got %d words", ErrInvalidBlockSize, len(block))
	}
	out := c.Decrypt([4]uint32(block))
	return out[:], nil
}
