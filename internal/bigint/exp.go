package bigint

// reducer carries values through modular exponentiation in its own
// representation.
type reducer interface {
	convert(x *Int) []uint32
	revert(x []uint32) []uint32
	reduce(x []uint32) []uint32
	mul(x, y []uint32) []uint32
	sqr(x []uint32) []uint32
}

// newReducer picks plain division for even moduli and exponents below 256,
// and Montgomery otherwise.
func newReducer(m *Int, expBits int) reducer {
	if len(m.d) == 0 {
		panic("bigint: zero modulus")
	}
	if expBits <= 8 || m.IsEven() {
		return &classicReducer{m: m.d}
	}
	return newMontgomeryReducer(m.d)
}

// classicReducer reduces by long division.
type classicReducer struct {
	m []uint32
}

func (c *classicReducer) convert(x *Int) []uint32 {
	if x.neg || cmpNat(x.d, c.m) >= 0 {
		return x.Mod(&Int{d: c.m}).d
	}
	return cloneNat(x.d)
}

func (c *classicReducer) revert(x []uint32) []uint32 { return x }

func (c *classicReducer) reduce(x []uint32) []uint32 {
	_, r := divNat(x, c.m)
	return r
}

func (c *classicReducer) mul(x, y []uint32) []uint32 { return c.reduce(mulNat(x, y)) }

func (c *classicReducer) sqr(x []uint32) []uint32 { return c.reduce(sqrNat(x)) }

// montgomeryReducer keeps values as x*R mod m with R = 2^(DigitBits*len(m))
// and reduces with REDC (HAC 14.32).
type montgomeryReducer struct {
	m  []uint32
	mp uint32 // -1/m[0] mod 2^DigitBits
}

func newMontgomeryReducer(m []uint32) *montgomeryReducer {
	return &montgomeryReducer{m: m, mp: invDigit(m[0])}
}

// invDigit returns -1/x mod 2^DigitBits for odd x by Newton iteration; each
// step doubles the number of correct low bits.
func invDigit(x uint32) uint32 {
	y := x // x*x = 1 mod 8
	for i := 0; i < 4; i++ {
		y *= 2 - x*y
	}
	return -y & digitMask
}

func (r *montgomeryReducer) convert(x *Int) []uint32 {
	shifted := x.Abs().lshDigits(len(r.m))
	v := shifted.Mod(&Int{d: r.m})
	if x.neg && len(v.d) > 0 {
		return subNat(r.m, v.d)
	}
	return v.d
}

func (r *montgomeryReducer) revert(x []uint32) []uint32 {
	return r.reduce(x)
}

func (r *montgomeryReducer) reduce(x []uint32) []uint32 {
	n := len(r.m)
	t := make([]uint32, 2*n+1)
	copy(t, x)

	for i := 0; i < n; i++ {
		u := uint32(uint64(t[i]) * uint64(r.mp) & digitMask)
		c := mulAddVW(t[i:i+n], r.m, u)
		for k := i + n; c != 0; k++ {
			s := t[k] + c
			t[k] = s & digitMask
			c = s >> DigitBits
		}
	}

	z := norm(cloneNat(t[n:]))
	if cmpNat(z, r.m) >= 0 {
		z = subNat(z, r.m)
	}
	return z
}

func (r *montgomeryReducer) mul(x, y []uint32) []uint32 { return r.reduce(mulNat(x, y)) }

func (r *montgomeryReducer) sqr(x []uint32) []uint32 { return r.reduce(sqrNat(x)) }

// ExpMod returns x^e mod m for a word-sized exponent, scanning e from its
// top bit. An exponent of zero yields 1. It panics when m is zero.
func (x *Int) ExpMod(e uint32, m *Int) *Int {
	if e == 0 {
		return One()
	}
	return x.expMod(FromInt64(int64(e)), m)
}

// ExpModInt is ExpMod with an arbitrary non-negative exponent.
func (x *Int) ExpModInt(e, m *Int) *Int {
	if e.Sign() <= 0 {
		return One()
	}
	return x.expMod(e, m)
}

func (x *Int) expMod(e, m *Int) *Int {
	red := newReducer(m, e.BitLen())
	g := red.convert(x)
	r := g

	for i := e.BitLen() - 2; i >= 0; i-- {
		r = red.sqr(r)
		if e.bit(i) {
			r = red.mul(r, g)
		}
	}
	return newInt(false, red.revert(r))
}

// bit reports whether bit i of |x| is set.
func (x *Int) bit(i int) bool {
	k := i / DigitBits
	if k >= len(x.d) {
		return false
	}
	return x.d[k]>>(uint(i)%DigitBits)&1 == 1
}
