package blockcipher

import (
	"errors"
	"fmt"

	"github.com/fieldcrypt/client-go/internal/bitarray"
	"github.com/fieldcrypt/client-go/internal/crypto"
)

var (
	// ErrPaddingCorrupt is returned when the PKCS#5 pad bytes are out of
	// range or inconsistent.
	ErrPaddingCorrupt = fmt.Errorf("%w: pkcs#5 padding corrupt", crypto.ErrCorrupt)

	// ErrCiphertextLength is returned when a ciphertext is empty or not a
	// whole number of blocks.
	ErrCiphertextLength = fmt.Errorf("%w: cbc ciphertext must be a positive multiple of the block size", crypto.ErrCorrupt)

	ErrInvalidIV      = fmt.Errorf("%w: cbc iv must be 128 bits", crypto.ErrInvalidIVSize)
	ErrAssociatedData = errors.New("cbc can't authenticate data")
	ErrNotByteAligned = errors.New("pkcs#5 padding only works for multiples of a byte")
)

const blockBits = 32 * BlockWords

// EncryptCBC pads plaintext with PKCS#5 and chains it under iv. The result
// does not include the IV. adata must be empty.
func EncryptCBC(c *AES, plaintext, iv, adata bitarray.Bits) (bitarray.Bits, error) {
	if adata.BitLen() != 0 {
		return bitarray.Bits{}, ErrAssociatedData
	}
	if iv.BitLen() != blockBits {
		return bitarray.Bits{}, fmt.Errorf("%w: got %d", ErrInvalidIV, iv.BitLen())
	}
	if plaintext.BitLen()%8 != 0 {
		return bitarray.Bits{}, ErrNotByteAligned
	}

	n := 16 - (plaintext.BitLen()/8)%16
	pad := make([]byte, n)
	for i := range pad {
		pad[i] = byte(n)
	}
	data := plaintext.Concat(bitarray.FromBytes(pad))

	prev := [4]uint32(iv.Words())
	out := make([]uint32, 0, data.BitLen()/32)
	for i := 0; i < data.BitLen()/32; i += BlockWords {
		var x [4]uint32
		for j := range x {
			x[j] = prev[j] ^ data.Word(i+j)
		}
		prev = c.Encrypt(x)
		out = append(out, prev[:]...)
	}
	return bitarray.FromWords(out...), nil
}

// DecryptCBC reverses EncryptCBC and strips the padding.
func DecryptCBC(c *AES, ciphertext, iv, adata bitarray.Bits) (bitarray.Bits, error) {
	if adata.BitLen() != 0 {
		return bitarray.Bits{}, ErrAssociatedData
	}
	if iv.BitLen() != blockBits {
		return bitarray.Bits{}, fmt.Errorf("%w: got %d", ErrInvalidIV, iv.BitLen())
	}
	if ciphertext.BitLen() == 0 || ciphertext.BitLen()%blockBits != 0 {
		return bitarray.Bits{}, ErrCiphertextLength
	}

	prev := [4]uint32(iv.Words())
	out := make([]uint32, 0, ciphertext.BitLen()/32)
	for i := 0; i < ciphertext.BitLen()/32; i += BlockWords {
		var in [4]uint32
		for j := range in {
			in[j] = ciphertext.Word(i + j)
		}
		x := c.Decrypt(in)
		for j := range x {
			x[j] ^= prev[j]
		}
		prev = in
		out = append(out, x[:]...)
	}

	plain := bitarray.FromWords(out...)
	n := int(out[len(out)-1] & 0xff)
	if n == 0 || n > 16 {
		return bitarray.Bits{}, ErrPaddingCorrupt
	}
	total := plain.BitLen()
	for i := 1; i <= n; i++ {
		if plain.Extract(total-8*i, 8) != uint32(n) {
			return bitarray.Bits{}, ErrPaddingCorrupt
		}
	}
	return plain.Clamp(total - 8*n), nil
}
