package bigint

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toBig(t *testing.T, x *Int) *big.Int {
	t.Helper()
	b, ok := new(big.Int).SetString(x.Text(16), 16)
	require.True(t, ok, "cannot parse %q", x.Text(16))
	return b
}

func fromBig(t *testing.T, b *big.Int) *Int {
	t.Helper()
	x, err := FromHex(b.Text(16))
	require.NoError(t, err)
	return x
}

// randomBig returns a value of up to maxBits bits with a random sign.
func randomBig(rng *rand.Rand, maxBits int) *big.Int {
	n := rng.Intn(maxBits + 1)
	b := new(big.Int).Rand(rng, new(big.Int).Lsh(big.NewInt(1), uint(n)))
	if rng.Intn(2) == 0 {
		b.Neg(b)
	}
	return b
}

func TestFromInt64(t *testing.T) {
	for _, v := range []int64{0, 1, -1, 1 << 28, 1<<28 - 1, -(1 << 40), 1<<63 - 1, -1 << 63} {
		assert.Equal(t, big.NewInt(v).Text(16), FromInt64(v).Hex(), "FromInt64(%d)", v)
	}
}

func TestZeroInvariants(t *testing.T) {
	zero := FromInt64(5).Sub(FromInt64(5))

	assert.Equal(t, 0, zero.Sign())
	assert.Equal(t, 0, zero.BitLen())
	assert.Empty(t, zero.Bytes())
	assert.Equal(t, "0", zero.Neg().Hex())
	assert.True(t, zero.IsEven())
	assert.Equal(t, 0, zero.Cmp(Zero()))
}

func TestFromBase(t *testing.T) {
	tests := []struct {
		in   string
		base int
		want string
	}{
		{"ff", 16, "255"},
		{"-ff", 16, "-255"},
		{"00:a1:ff", 16, "41471"},
		{"0x10", 16, "16"},
		{"777", 8, "511"},
		{"zz", 36, "1295"},
		{"12345678901234567890123456789", 10, "12345678901234567890123456789"},
	}

	for _, tt := range tests {
		x, err := FromBase(tt.in, tt.base)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, x.String(), "FromBase(%q, %d)", tt.in, tt.base)
	}
}

func TestFromBase_Invalid(t *testing.T) {
	for _, in := range []string{"", "-", "xyz", "::"} {
		_, err := FromHex(in)
		assert.ErrorIs(t, err, ErrSyntax, "FromHex(%q)", in)
	}
	_, err := FromBase("10", 1)
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestArithmetic_MatchesBig(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 300; i++ {
		a, b := randomBig(rng, 600), randomBig(rng, 400)
		x, y := fromBig(t, a), fromBig(t, b)

		assert.Equal(t, new(big.Int).Add(a, b).Text(16), x.Add(y).Hex(), "add")
		assert.Equal(t, new(big.Int).Sub(a, b).Text(16), x.Sub(y).Hex(), "sub")
		assert.Equal(t, new(big.Int).Mul(a, b).Text(16), x.Mul(y).Hex(), "mul")
		assert.Equal(t, new(big.Int).Mul(a, a).Text(16), x.Sqr().Hex(), "sqr")
		assert.Equal(t, a.Cmp(b), x.Cmp(y), "cmp")
		assert.Equal(t, new(big.Int).Abs(a).Cmp(new(big.Int).Abs(b)), x.CmpAbs(y), "cmpabs")
		assert.Equal(t, a.BitLen(), x.BitLen(), "bitlen")

		if b.Sign() == 0 {
			continue
		}
		q, r := x.DivMod(y)
		wq, wr := new(big.Int).QuoRem(a, b, new(big.Int))
		assert.Equal(t, wq.Text(16), q.Hex(), "quo %s / %s", a, b)
		assert.Equal(t, wr.Text(16), r.Hex(), "rem %s / %s", a, b)
		assert.Equal(t, new(big.Int).Mod(a, b).Text(16), x.Mod(y).Hex(), "mod")
	}
}

func TestDivMod_EdgeCases(t *testing.T) {
	tests := []struct{ a, b string }{
		// Quotient digit estimates that need the add-back step.
		{"7fffffff800000010000000000000000", "800000008000000200000005"},
		{"ffffffffffffffffffffffffffffffffffff", "fffffffffffffffff"},
		{"1000000000000000000000000000000000000", "fffffff0000001"},
		{"10", "10"},
		{"f", "10"},
	}

	for _, tt := range tests {
		x, _ := FromHex(tt.a)
		y, _ := FromHex(tt.b)
		a, _ := new(big.Int).SetString(tt.a, 16)
		b, _ := new(big.Int).SetString(tt.b, 16)

		q, r := x.DivMod(y)
		wq, wr := new(big.Int).QuoRem(a, b, new(big.Int))
		assert.Equal(t, wq.Text(16), q.Hex(), "%s / %s", tt.a, tt.b)
		assert.Equal(t, wr.Text(16), r.Hex(), "%s %% %s", tt.a, tt.b)
	}
}

func TestDivMod_ZeroPanics(t *testing.T) {
	assert.Panics(t, func() { FromInt64(1).DivMod(Zero()) })
	assert.Panics(t, func() { FromInt64(1).ExpMod(3, Zero()) })
}

func TestShifts(t *testing.T) {
	rng := rand.New(rand.NewSource(2))

	for i := 0; i < 100; i++ {
		a := new(big.Int).Abs(randomBig(rng, 300))
		x := fromBig(t, a)
		n := uint(rng.Intn(100))

		assert.Equal(t, new(big.Int).Lsh(a, n).Text(16), x.Lsh(n).Hex(), "lsh %d", n)
		assert.Equal(t, new(big.Int).Rsh(a, n).Text(16), x.Rsh(n).Hex(), "rsh %d", n)
	}

	x := FromInt64(-(1 << 30))
	assert.Equal(t, "-"+FromInt64(1<<26).Hex(), x.Rsh(4).Hex())
}

func TestDigitShifts(t *testing.T) {
	x, _ := FromHex("123456789abcdef0123")

	up := x.lshDigits(3)
	assert.Equal(t, x.Lsh(3*DigitBits).Hex(), up.Hex())
	assert.Equal(t, x.Hex(), up.rshDigits(3).Hex())
	assert.Equal(t, "0", x.rshDigits(10).Hex())
	assert.Equal(t, "0", Zero().lshDigits(2).Hex())
}

func TestBytes(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	for i := 0; i < 100; i++ {
		a := new(big.Int).Abs(randomBig(rng, 500))
		x := FromBytes(a.Bytes(), false)
		assert.Equal(t, a.Text(16), x.Hex())
		assert.Equal(t, a.Bytes(), x.Bytes())
	}
}

func TestSignedBytes(t *testing.T) {
	tests := []struct {
		v    int64
		want []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x00, 0x80}},
		{-1, []byte{0xff}},
		{-128, []byte{0x80}},
		{-129, []byte{0xff, 0x7f}},
		{-256, []byte{0xff, 0x00}},
		{-32768, []byte{0x80, 0x00}},
		{65537, []byte{0x01, 0x00, 0x01}},
	}

	for _, tt := range tests {
		got := FromInt64(tt.v).SignedBytes()
		assert.Equal(t, tt.want, got, "SignedBytes(%d)", tt.v)
		assert.Equal(t, tt.v, mustInt64(t, FromBytes(got, true)), "FromBytes(%x, signed)", got)
	}
}

func mustInt64(t *testing.T, x *Int) int64 {
	t.Helper()
	b := toBig(t, x)
	require.True(t, b.IsInt64())
	return b.Int64()
}

func TestText(t *testing.T) {
	rng := rand.New(rand.NewSource(4))

	for i := 0; i < 50; i++ {
		a := randomBig(rng, 200)
		x := fromBig(t, a)
		for _, base := range []int{2, 8, 10, 16, 36} {
			assert.Equal(t, a.Text(base), x.Text(base), "base %d", base)
		}
	}
}
