package bigint

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewReducer(t *testing.T) {
	odd := FromInt64(1000003)
	even := FromInt64(1000004)

	assert.IsType(t, &classicReducer{}, newReducer(odd, 8))
	assert.IsType(t, &montgomeryReducer{}, newReducer(odd, 9))
	assert.IsType(t, &montgomeryReducer{}, newReducer(odd, 17))
	assert.IsType(t, &classicReducer{}, newReducer(even, 17))
}

func TestInvDigit(t *testing.T) {
	for _, x := range []uint32{1, 3, 0xffffff1, 0x1234567, digitMask} {
		mp := invDigit(x)
		assert.Equal(t, uint32(digitMask), uint32(uint64(x)*uint64(mp))&digitMask, "x=%#x", x)
	}
}

func TestExpMod_MatchesBig(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	exponents := []uint32{1, 2, 3, 17, 255, 256, 257, 65537, 0xffffffff}

	for i := 0; i < 40; i++ {
		m := new(big.Int).Abs(randomBig(rng, 700))
		if m.Sign() == 0 {
			m.SetInt64(7)
		}
		if i%2 == 0 {
			m.SetBit(m, 0, 1)
		}
		base := randomBig(rng, 800)

		x, mod := fromBig(t, base), fromBig(t, m)
		for _, e := range exponents {
			want := new(big.Int).Exp(new(big.Int).Mod(base, m), big.NewInt(int64(e)), m)
			assert.Equal(t, want.Text(16), x.ExpMod(e, mod).Hex(), "e=%d m=%s", e, m.Text(16))
		}
	}
}

func TestExpModInt_MatchesBig(t *testing.T) {
	rng := rand.New(rand.NewSource(6))

	for i := 0; i < 20; i++ {
		m := new(big.Int).Abs(randomBig(rng, 512))
		m.SetBit(m, 0, 1)
		m.SetBit(m, 511, 1)
		base := new(big.Int).Abs(randomBig(rng, 512))
		e := new(big.Int).Abs(randomBig(rng, 300))

		want := new(big.Int).Exp(base, e, m)
		if e.Sign() == 0 {
			want.SetInt64(1)
		}
		got := fromBig(t, base).ExpModInt(fromBig(t, e), fromBig(t, m))
		assert.Equal(t, want.Text(16), got.Hex())
	}
}

func TestExpMod_ZeroExponent(t *testing.T) {
	assert.Equal(t, "1", FromInt64(12345).ExpMod(0, FromInt64(97)).Hex())
}

func TestExpMod_RSAVector(t *testing.T) {
	// 61 * 53 = 3233, e = 17, d = 2753.
	n := FromInt64(3233)
	c := FromInt64(65).ExpMod(17, n)
	assert.Equal(t, "2790", c.String())
	assert.Equal(t, "65", c.ExpModInt(FromInt64(2753), n).String())
}
