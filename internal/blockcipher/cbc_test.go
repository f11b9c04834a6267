package blockcipher

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/fieldcrypt/client-go/internal/bitarray"
	"github.com/fieldcrypt/client-go/internal/crypto"
)

func testCipher(t *testing.T) (*AES, []byte) {
	t.Helper()
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(0xa0 + i)
	}
	c, err := NewAES(bitarray.FromBytes(key).Words())
	if err != nil {
		t.Fatal(err)
	}
	return c, key
}

var testIV = []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}

func TestCBC_RoundTrip(t *testing.T) {
	c, _ := testCipher(t)
	iv := bitarray.FromBytes(testIV)

	for n := 0; n <= 48; n++ {
		plaintext := bitarray.FromUTF8(strings.Repeat("p", n))

		ct, err := EncryptCBC(c, plaintext, iv, bitarray.Bits{})
		if err != nil {
			t.Fatalf("EncryptCBC() error = %v", err)
		}
		if want := 128 * (n/16 + 1); ct.BitLen() != want {
			t.Errorf("ciphertext of %d bytes has %d bits, want %d", n, ct.BitLen(), want)
		}

		got, err := DecryptCBC(c, ct, iv, bitarray.Bits{})
		if err != nil {
			t.Fatalf("DecryptCBC() error = %v", err)
		}
		if !bitarray.Equal(got, plaintext) {
			t.Errorf("round trip of %d bytes failed", n)
		}
	}
}

func TestCBC_MatchesStdlib(t *testing.T) {
	c, key := testCipher(t)
	plaintext := []byte("4111111111111111 exp 12/30")

	ct, err := EncryptCBC(c, bitarray.FromBytes(plaintext), bitarray.FromBytes(testIV), bitarray.Bits{})
	if err != nil {
		t.Fatal(err)
	}

	want, err := crypto.EncryptCBC(key, testIV, plaintext)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(ct.Bytes(), want[crypto.IVSize:]) {
		t.Errorf("ciphertext = %x, want %x", ct.Bytes(), want[crypto.IVSize:])
	}

	opened, err := crypto.DecryptCBC(key, append(append([]byte{}, testIV...), ct.Bytes()...))
	if err != nil {
		t.Fatalf("crypto.DecryptCBC() error = %v", err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Errorf("stdlib decrypt = %q", opened)
	}
}

func TestEncryptCBC_Errors(t *testing.T) {
	c, _ := testCipher(t)
	iv := bitarray.FromBytes(testIV)

	tests := []struct {
		name      string
		plaintext bitarray.Bits
		iv        bitarray.Bits
		adata     bitarray.Bits
		wantErr   error
	}{
		{"associated data", bitarray.FromUTF8("x"), iv, bitarray.FromUTF8("ad"), ErrAssociatedData},
		{"short iv", bitarray.FromUTF8("x"), iv.Clamp(96), bitarray.Bits{}, ErrInvalidIV},
		{"not byte aligned", bitarray.Partial(7, 0xfe000000), iv, bitarray.Bits{}, ErrNotByteAligned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EncryptCBC(c, tt.plaintext, tt.iv, tt.adata)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDecryptCBC_Corrupt(t *testing.T) {
	c, _ := testCipher(t)
	iv := bitarray.FromBytes(testIV)

	encryptRaw := func(block []byte) bitarray.Bits {
		out := c.Encrypt([4]uint32(bitarray.FromBytes(xor(block, testIV)).Words()))
		return bitarray.FromWords(out[:]...)
	}

	tests := []struct {
		name       string
		ciphertext bitarray.Bits
		wantErr    error
	}{
		{"empty", bitarray.Bits{}, ErrCiphertextLength},
		{"partial block", bitarray.FromBytes(make([]byte, 20)), ErrCiphertextLength},
		{"zero pad", encryptRaw(append(bytes.Repeat([]byte{'a'}, 15), 0)), ErrPaddingCorrupt},
		{"pad too large", encryptRaw(append(bytes.Repeat([]byte{'a'}, 15), 17)), ErrPaddingCorrupt},
		{"inconsistent pad", encryptRaw(append(bytes.Repeat([]byte{'a'}, 14), 3, 2)), ErrPaddingCorrupt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecryptCBC(c, tt.ciphertext, iv, bitarray.Bits{})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if !errors.Is(err, crypto.ErrCorrupt) {
				t.Errorf("expected crypto.ErrCorrupt, got %v", err)
			}
		})
	}
}

func xor(a, b []byte) []byte {
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out
}
