// Package bigint implements signed arbitrary-precision integers for the RSA
// public-key operation.
//
// Values are immutable: every operation returns a new *Int. Magnitudes are
// stored as little-endian digits of DigitBits bits in uint32 words, and all
// digit products are formed in uint64.
package bigint

import (
	"errors"
	"fmt"
	"math/bits"
	"strings"
)

const (
	// DigitBits is the width of one digit.
	DigitBits = 28

	digitBase = 1 << DigitBits
	digitMask = digitBase - 1
)

// ErrSyntax is returned when a string holds no digits of the requested base.
var ErrSyntax = errors.New("bigint: invalid number")

// Int is a sign and a clamped magnitude. Zero has no digits and is never
// negative.
type Int struct {
	neg bool
	d   []uint32
}

func newInt(neg bool, d []uint32) *Int {
	d = norm(d)
	return &Int{neg: neg && len(d) > 0, d: d}
}

// Zero returns 0.
func Zero() *Int { return &Int{} }

// One returns 1.
func One() *Int { return FromInt64(1) }

// FromInt64 returns v.
func FromInt64(v int64) *Int {
	neg := v < 0
	u := uint64(v)
	if neg {
		u = -u
	}
	var d []uint32
	for u != 0 {
		d = append(d, uint32(u&digitMask))
		u >>= DigitBits
	}
	return newInt(neg, d)
}

// FromBytes reads a big-endian integer. With signed set and the top bit of
// b[0] set, b is taken as two's complement.
func FromBytes(b []byte, signed bool) *Int {
	neg := signed && len(b) > 0 && b[0]&0x80 != 0
	if neg {
		c := make([]byte, len(b))
		carry := 1
		for i := len(b) - 1; i >= 0; i-- {
			v := int(^b[i]) + carry
			c[i] = byte(v)
			carry = v >> 8
		}
		b = c
	}

	d := make([]uint32, (len(b)*8+DigitBits-1)/DigitBits)
	for i := 0; i < len(b); i++ {
		bit := uint(8 * (len(b) - 1 - i))
		v := uint64(b[i]) << (bit % DigitBits)
		k := int(bit / DigitBits)
		d[k] |= uint32(v & digitMask)
		if hi := uint32(v >> DigitBits); hi != 0 {
			d[k+1] |= hi
		}
	}
	return newInt(neg, d)
}

// FromHex parses base 16. See FromBase.
func FromHex(s string) (*Int, error) {
	return FromBase(s, 16)
}

// FromBase parses s in the given base (2 to 36). A '-' marks the number
// negative and any other character that is not a digit of base is skipped,
// so "00:a1:ff" reads as a1ff.
func FromBase(s string, base int) (*Int, error) {
	if base < 2 || base > 36 {
		return nil, fmt.Errorf("%w: base %d", ErrSyntax, base)
	}

	var d []uint32
	neg, seen := false, false
	for i := 0; i < len(s); i++ {
		v := digitValue(s[i])
		if v < 0 || v >= base {
			if s[i] == '-' && !seen {
				neg = true
			}
			continue
		}
		seen = true

		z := make([]uint32, len(d)+1)
		z[0] = uint32(v)
		z[len(d)] += mulAddVW(z, d, uint32(base))
		d = norm(z)
	}
	if !seen {
		return nil, fmt.Errorf("%w: no base %d digits in %q", ErrSyntax, base, s)
	}
	return newInt(neg, d), nil
}

func digitValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	}
	return -1
}

// Sign returns -1, 0 or +1.
func (x *Int) Sign() int {
	switch {
	case len(x.d) == 0:
		return 0
	case x.neg:
		return -1
	}
	return 1
}

// Cmp compares x and y.
func (x *Int) Cmp(y *Int) int {
	if x.neg != y.neg {
		if x.neg {
			return -1
		}
		return 1
	}
	c := cmpNat(x.d, y.d)
	if x.neg {
		return -c
	}
	return c
}

// CmpAbs compares |x| and |y|.
func (x *Int) CmpAbs(y *Int) int {
	return cmpNat(x.d, y.d)
}

// BitLen returns the bit length of |x|; zero for zero.
func (x *Int) BitLen() int {
	return bitLenNat(x.d)
}

// IsEven reports whether x is even.
func (x *Int) IsEven() bool {
	return len(x.d) == 0 || x.d[0]&1 == 0
}

// Neg returns -x.
func (x *Int) Neg() *Int {
	return newInt(!x.neg, cloneNat(x.d))
}

// Abs returns |x|.
func (x *Int) Abs() *Int {
	return newInt(false, cloneNat(x.d))
}

// Add returns x + y.
func (x *Int) Add(y *Int) *Int {
	if x.neg == y.neg {
		return newInt(x.neg, addNat(x.d, y.d))
	}
	if cmpNat(x.d, y.d) >= 0 {
		return newInt(x.neg, subNat(x.d, y.d))
	}
	return newInt(y.neg, subNat(y.d, x.d))
}

// Sub returns x - y.
func (x *Int) Sub(y *Int) *Int {
	return x.Add(&Int{neg: !y.neg && len(y.d) > 0, d: y.d})
}

// Mul returns x * y.
func (x *Int) Mul(y *Int) *Int {
	return newInt(x.neg != y.neg, mulNat(x.d, y.d))
}

// Sqr returns x * x.
func (x *Int) Sqr() *Int {
	return newInt(false, sqrNat(x.d))
}

// DivMod returns the quotient truncated toward zero and the remainder,
// which takes the sign of x. It panics when y is zero.
func (x *Int) DivMod(y *Int) (q, r *Int) {
	qd, rd := divNat(x.d, y.d)
	return newInt(x.neg != y.neg, qd), newInt(x.neg, rd)
}

// Mod returns x mod |m| in [0, |m|). It panics when m is zero.
func (x *Int) Mod(m *Int) *Int {
	_, rd := divNat(x.d, m.d)
	if x.neg && len(rd) > 0 {
		rd = subNat(m.d, rd)
	}
	return newInt(false, rd)
}

// Lsh returns x << n, keeping the sign.
func (x *Int) Lsh(n uint) *Int {
	return newInt(x.neg, shlNat(x.d, n))
}

// Rsh returns |x| >> n with the sign of x, which truncates toward zero.
func (x *Int) Rsh(n uint) *Int {
	return newInt(x.neg, shrNat(x.d, n))
}

// lshDigits shifts left by whole digits.
func (x *Int) lshDigits(n int) *Int {
	if len(x.d) == 0 {
		return Zero()
	}
	d := make([]uint32, n+len(x.d))
	copy(d[n:], x.d)
	return newInt(x.neg, d)
}

// rshDigits shifts right by whole digits.
func (x *Int) rshDigits(n int) *Int {
	if n >= len(x.d) {
		return Zero()
	}
	return newInt(x.neg, cloneNat(x.d[n:]))
}

// Bytes returns the big-endian magnitude; empty for zero.
func (x *Int) Bytes() []byte {
	out := make([]byte, (x.BitLen()+7)/8)
	for i := range out {
		bit := uint(8 * (len(out) - 1 - i))
		k, off := int(bit/DigitBits), bit%DigitBits
		v := uint64(x.d[k]) >> off
		if k+1 < len(x.d) {
			v |= uint64(x.d[k+1]) << (DigitBits - off)
		}
		out[i] = byte(v)
	}
	return out
}

// SignedBytes returns the shortest big-endian two's complement encoding.
func (x *Int) SignedBytes() []byte {
	mag := x.Bytes()
	if !x.neg {
		if len(mag) == 0 || mag[0]&0x80 != 0 {
			mag = append([]byte{0}, mag...)
		}
		return mag
	}

	// -|x| needs an extra byte unless |x| <= 2^(8k-1).
	k := len(mag)
	if mag[0] > 0x80 || mag[0] == 0x80 && !powerOfTwo(x.d) {
		k++
	}
	out := make([]byte, k)
	copy(out[k-len(mag):], mag)
	carry := 1
	for i := k - 1; i >= 0; i-- {
		v := int(^out[i]) + carry
		out[i] = byte(v)
		carry = v >> 8
	}
	return out
}

func powerOfTwo(d []uint32) bool {
	for i := 0; i < len(d)-1; i++ {
		if d[i] != 0 {
			return false
		}
	}
	return len(d) > 0 && bits.OnesCount32(d[len(d)-1]) == 1
}

// Text renders x in base 2 to 36 with lowercase digits.
func (x *Int) Text(base int) string {
	if base < 2 || base > 36 {
		panic(fmt.Sprintf("bigint: invalid base %d", base))
	}
	if len(x.d) == 0 {
		return "0"
	}

	const digits = "0123456789abcdefghijklmnopqrstuvwxyz"
	var rev []byte
	d := x.d
	for len(d) > 0 {
		var r uint32
		d, r = divWNat(d, uint32(base))
		rev = append(rev, digits[r])
	}

	var sb strings.Builder
	if x.neg {
		sb.WriteByte('-')
	}
	for i := len(rev) - 1; i >= 0; i-- {
		sb.WriteByte(rev[i])
	}
	return sb.String()
}

// Hex renders x in base 16.
func (x *Int) Hex() string { return x.Text(16) }

// String renders x in base 10.
func (x *Int) String() string { return x.Text(10) }
