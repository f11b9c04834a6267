package der

import (
	"crypto/rsa"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"

	"github.com/fieldcrypt/client-go/internal/crypto"
)

func testModulus() *big.Int {
	n, _ := new(big.Int).SetString("c4f3a1b2d5e6f70811223344556677889900aabbccddeeff0123456789abcdef"+
		"fedcba98765432100f1e2d3c4b5a69788796a5b4c3d2e1f0a1b2c3d4e5f60718293", 16)
	return n
}

func TestPublicKeyIntegers_SPKI(t *testing.T) {
	der, err := crypto.MarshalPublicKey(&rsa.PublicKey{N: testModulus(), E: 65537})
	require.NoError(t, err)

	mod, exp, err := PublicKeyIntegers(der)
	require.NoError(t, err)

	assert.Equal(t, 0, new(big.Int).SetBytes(mod).Cmp(testModulus()))
	assert.Equal(t, []byte{0x01, 0x00, 0x01}, exp)
}

func TestPublicKeyIntegers_PKCS1(t *testing.T) {
	der := crypto.MarshalPKCS1PublicKey(&rsa.PublicKey{N: testModulus(), E: 3})

	mod, exp, err := PublicKeyIntegers(der)
	require.NoError(t, err)

	assert.Equal(t, 0, new(big.Int).SetBytes(mod).Cmp(testModulus()))
	assert.Equal(t, []byte{0x03}, exp)
}

func TestPublicKeyIntegers_WrappedInOctetString(t *testing.T) {
	var b cryptobyte.Builder
	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1(cbasn1.OCTET_STRING, func(b *cryptobyte.Builder) {
			b.AddBytes(crypto.MarshalPKCS1PublicKey(&rsa.PublicKey{N: testModulus(), E: 17}))
		})
	})

	mod, exp, err := PublicKeyIntegers(b.BytesOrPanic())
	require.NoError(t, err)
	assert.Equal(t, 0, new(big.Int).SetBytes(mod).Cmp(testModulus()))
	assert.Equal(t, []byte{0x11}, exp)
}

func TestPublicKeyIntegers_WrongCount(t *testing.T) {
	var b cryptobyte.Builder
	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1BigInt(testModulus())
		b.AddASN1Int64(65537)
		b.AddASN1Int64(1)
	})

	_, _, err := PublicKeyIntegers(b.BytesOrPanic())
	assert.ErrorIs(t, err, crypto.ErrKeyFormat)

	_, _, err = PublicKeyIntegers([]byte{0x30, 0x03, 0x02, 0x01, 0x05})
	assert.ErrorIs(t, err, crypto.ErrKeyFormat)
}

func TestIntegers_Order(t *testing.T) {
	var b cryptobyte.Builder
	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
			b.AddASN1Int64(1)
			b.AddASN1(cbasn1.SET, func(b *cryptobyte.Builder) {
				b.AddASN1Int64(2)
			})
		})
		b.AddASN1Int64(3)
	})

	root, err := Decode(b.BytesOrPanic())
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{1}, {2}, {3}}, Integers(root))
}

func TestDecode_IndefiniteLength(t *testing.T) {
	buf := []byte{0x30, 0x80, 0x02, 0x01, 0x05, 0x02, 0x01, 0x03, 0x00, 0x00}

	root, err := Decode(buf)
	require.NoError(t, err)

	assert.True(t, root.Indefinite)
	assert.Equal(t, 8, root.Length)
	assert.Equal(t, len(buf), root.PosEnd())
	require.Len(t, root.Sub, 2)
	assert.Equal(t, [][]byte{{5}, {3}}, Integers(root))
}

func TestDecode_IndefiniteWithoutEOC(t *testing.T) {
	_, err := Decode([]byte{0x30, 0x80, 0x02, 0x01, 0x05})

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.ErrorIs(t, err, crypto.ErrStreamBounds)
	assert.ErrorIs(t, err, crypto.ErrKeyFormat)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		buf     []byte
		wantErr error
	}{
		{"empty", nil, crypto.ErrStreamBounds},
		{"missing length", []byte{0x30}, crypto.ErrStreamBounds},
		{"length over 24 bits", []byte{0x30, 0x84, 0x00, 0x00, 0x00, 0x03, 0x02, 0x01, 0x00}, crypto.ErrStreamBounds},
		{"truncated leaf", []byte{0x30, 0x05, 0x02, 0x01}, crypto.ErrStreamBounds},
		{"truncated long length", []byte{0x30, 0x82, 0x01}, crypto.ErrStreamBounds},
		{"size mismatch", []byte{0x30, 0x03, 0x02, 0x02, 0x05, 0x05}, crypto.ErrKeyFormat},
		{"indefinite primitive", []byte{0x02, 0x80, 0x00, 0x00}, crypto.ErrKeyFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.buf)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDecode_StreamBoundsError(t *testing.T) {
	_, err := Decode([]byte{0x30, 0x84, 0x00, 0x00, 0x00, 0x01})

	var serr *StreamBoundsError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 1, serr.Offset)
	assert.Contains(t, serr.Error(), "length over 24 bits")
}

func nested(depth int) []byte {
	var build func(b *cryptobyte.Builder, n int)
	build = func(b *cryptobyte.Builder, n int) {
		if n == 0 {
			b.AddASN1Int64(7)
			return
		}
		b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) { build(b, n-1) })
	}
	var b cryptobyte.Builder
	build(&b, depth)
	return b.BytesOrPanic()
}

func TestDecode_Depth(t *testing.T) {
	root, err := Decode(nested(MaxDepth - 1))
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{7}}, Integers(root))

	_, err = Decode(nested(MaxDepth))
	assert.ErrorIs(t, err, ErrTooDeep)
	assert.ErrorIs(t, err, crypto.ErrKeyFormat)
}

func TestDecodeLength(t *testing.T) {
	tests := []struct {
		buf     []byte
		length  int
		n       int
		wantErr bool
	}{
		{[]byte{0x05}, 5, 1, false},
		{[]byte{0x7f}, 127, 1, false},
		{[]byte{0x81, 0x80}, 128, 2, false},
		{[]byte{0x82, 0x01, 0x00}, 256, 3, false},
		{[]byte{0x83, 0x01, 0x00, 0x00}, 65536, 4, false},
		{[]byte{0x80}, -1, 1, false},
		{[]byte{0x84, 0, 0, 0, 1}, 0, 0, true},
		{[]byte{0x82, 0x01}, 0, 0, true},
	}

	for _, tt := range tests {
		length, n, err := DecodeLength(NewStream(tt.buf), 0)
		if tt.wantErr {
			assert.ErrorIs(t, err, crypto.ErrStreamBounds, "% x", tt.buf)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.length, length, "% x", tt.buf)
		assert.Equal(t, tt.n, n, "% x", tt.buf)
	}
}

func TestTryDecodeHeader(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want bool
	}{
		{"constructed", []byte{0x30, 0x00}, true},
		{"octet string holding a value", []byte{0x04, 0x03, 0x02, 0x01, 0x07}, true},
		{"octet string holding text", []byte{0x04, 0x03, 0x41, 0x42, 0x43}, false},
		{"octet string with short nested length", []byte{0x04, 0x04, 0x02, 0x01, 0x07, 0x00}, false},
		{"bit string holding a value", []byte{0x03, 0x04, 0x00, 0x02, 0x01, 0x07}, true},
		{"bit string with one bit", []byte{0x03, 0x02, 0x07, 0x80}, false},
		{"integer", []byte{0x02, 0x01, 0x30}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStream(tt.buf)
			length, n, err := DecodeLength(s, 1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tryDecodeHeader(s, Tag(tt.buf[0]), 1+n, length))
		})
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name     string
		buf      []byte
		typeName string
		want     string
	}{
		{"boolean", []byte{0x01, 0x01, 0xff}, "BOOLEAN", "true"},
		{"small integer", []byte{0x02, 0x02, 0x01, 0x00}, "INTEGER", "256"},
		{"large integer", []byte{0x02, 0x05, 0x00, 0x80, 0, 0, 0}, "INTEGER", "(32 bit)"},
		{"oid", []byte{0x06, 0x09, 0x2a, 0x86, 0x48, 0x86, 0xf7, 0x0d, 0x01, 0x01, 0x01}, "OBJECT_IDENTIFIER", "1.2.840.113549.1.1.1"},
		{"bit string", []byte{0x03, 0x02, 0x07, 0x80}, "BIT_STRING", "(1 bit) 1"},
		{"octet string", []byte{0x04, 0x03, 0x41, 0x42, 0x43}, "OCTET_STRING", "(3 byte) 414243"},
		{"utf8", []byte{0x0c, 0x03, 0xe2, 0x82, 0xac}, "UTF8String", "€"},
		{"printable", []byte{0x13, 0x02, 'h', 'i'}, "PrintableString", "hi"},
		{"generalized time", append([]byte{0x18, 0x0f}, "20230102150405Z"...), "GeneralizedTime", "2023-01-02 15:04:05 UTC"},
		{"null", []byte{0x05, 0x00}, "NULL", ""},
		{"context", []byte{0xa0, 0x03, 0x02, 0x01, 0x01}, "[0]", "(1)"},
		{"application", []byte{0x41, 0x01, 0x00}, "Application_1", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := Decode(tt.buf)
			require.NoError(t, err)
			assert.Equal(t, tt.typeName, n.TypeName())
			assert.Equal(t, tt.want, n.Describe())
		})
	}
}

func TestPrettyString(t *testing.T) {
	der, err := crypto.MarshalPublicKey(&rsa.PublicKey{N: testModulus(), E: 65537})
	require.NoError(t, err)

	root, err := Decode(der)
	require.NoError(t, err)

	out := root.PrettyString("")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 8)
	assert.True(t, strings.HasPrefix(lines[0], "SEQUENCE @0+"))
	assert.Contains(t, out, "  BIT_STRING @")
	assert.Contains(t, out, "(encapsulates)")
	assert.Contains(t, out, "OBJECT_IDENTIFIER @")
	assert.Contains(t, out, ": 1.2.840.113549.1.1.1")
	assert.Contains(t, out, "      INTEGER @")
}

func TestStreamBoundsError_Is(t *testing.T) {
	_, err := NewStream([]byte{1, 2}).Get(5)
	assert.True(t, errors.Is(err, crypto.ErrStreamBounds))
	assert.Contains(t, err.Error(), "offset 5")
}
