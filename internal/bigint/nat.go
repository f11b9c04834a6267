package bigint

import "math/bits"

// Magnitudes are little-endian slices of DigitBits-wide digits with no high
// zero digits. Routines here never alias their inputs with their outputs
// unless stated.

func norm(z []uint32) []uint32 {
	i := len(z)
	for i > 0 && z[i-1] == 0 {
		i--
	}
	return z[:i]
}

func cloneNat(x []uint32) []uint32 {
	if len(x) == 0 {
		return nil
	}
	return append([]uint32(nil), x...)
}

func cmpNat(x, y []uint32) int {
	if len(x) != len(y) {
		if len(x) < len(y) {
			return -1
		}
		return 1
	}
	for i := len(x) - 1; i >= 0; i-- {
		if x[i] != y[i] {
			if x[i] < y[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

func bitLenNat(x []uint32) int {
	if len(x) == 0 {
		return 0
	}
	return (len(x)-1)*DigitBits + bits.Len32(x[len(x)-1])
}

func addNat(x, y []uint32) []uint32 {
	if len(x) < len(y) {
		x, y = y, x
	}
	z := make([]uint32, len(x)+1)
	var c uint32
	for i := range x {
		s := x[i] + c
		if i < len(y) {
			s += y[i]
		}
		z[i] = s & digitMask
		c = s >> DigitBits
	}
	z[len(x)] = c
	return norm(z)
}

// subNat returns x - y for x >= y.
func subNat(x, y []uint32) []uint32 {
	z := make([]uint32, len(x))
	var borrow int32
	for i := range x {
		d := int32(x[i]) - borrow
		if i < len(y) {
			d -= int32(y[i])
		}
		borrow = 0
		if d < 0 {
			d += digitBase
			borrow = 1
		}
		z[i] = uint32(d)
	}
	return norm(z)
}

// mulAddVW adds x*y to z[:len(x)] and returns the carry digit.
func mulAddVW(z, x []uint32, y uint32) uint32 {
	var c uint64
	for i, xi := range x {
		t := uint64(z[i]) + uint64(xi)*uint64(y) + c
		z[i] = uint32(t & digitMask)
		c = t >> DigitBits
	}
	return uint32(c)
}

func mulNat(x, y []uint32) []uint32 {
	if len(x) == 0 || len(y) == 0 {
		return nil
	}
	z := make([]uint32, len(x)+len(y))
	for j, yj := range y {
		if yj == 0 {
			continue
		}
		z[j+len(x)] = mulAddVW(z[j:j+len(x)], x, yj)
	}
	return norm(z)
}

// sqrNat computes x*x with each cross product formed once.
func sqrNat(x []uint32) []uint32 {
	n := len(x)
	if n == 0 {
		return nil
	}
	z := make([]uint32, 2*n)
	for i := 0; i < n-1; i++ {
		z[i+n] = mulAddVW(z[2*i+1:i+n], x[i+1:], x[i])
	}

	var c uint32
	for k := range z {
		v := z[k]<<1 | c
		z[k] = v & digitMask
		c = v >> DigitBits
	}

	var carry uint64
	for i := 0; i < n; i++ {
		t := uint64(z[2*i]) + uint64(x[i])*uint64(x[i]) + carry
		z[2*i] = uint32(t & digitMask)
		t = uint64(z[2*i+1]) + t>>DigitBits
		z[2*i+1] = uint32(t & digitMask)
		carry = t >> DigitBits
	}
	return norm(z)
}

// shlNat shifts x left by s bits.
func shlNat(x []uint32, s uint) []uint32 {
	if len(x) == 0 {
		return nil
	}
	ds, bs := int(s/DigitBits), s%DigitBits
	z := make([]uint32, len(x)+ds+1)
	for i := len(x) - 1; i >= 0; i-- {
		v := uint64(x[i]) << bs
		z[i+ds+1] |= uint32(v >> DigitBits)
		z[i+ds] = uint32(v & digitMask)
	}
	return norm(z)
}

// shrNat shifts x right by s bits.
func shrNat(x []uint32, s uint) []uint32 {
	ds, bs := int(s/DigitBits), s%DigitBits
	if ds >= len(x) {
		return nil
	}
	z := make([]uint32, len(x)-ds)
	for i := range z {
		v := x[i+ds] >> bs
		if i+ds+1 < len(x) {
			v |= x[i+ds+1] << (DigitBits - bs) & digitMask
		}
		z[i] = v
	}
	return norm(z)
}

// divWNat divides x by a single digit.
func divWNat(x []uint32, y uint32) ([]uint32, uint32) {
	q := make([]uint32, len(x))
	var r uint64
	for i := len(x) - 1; i >= 0; i-- {
		cur := r<<DigitBits | uint64(x[i])
		q[i] = uint32(cur / uint64(y))
		r = cur % uint64(y)
	}
	return norm(q), uint32(r)
}

// divNat is normalised long division (HAC 14.20, Knuth D). It panics when
// v is zero.
func divNat(u, v []uint32) (q, r []uint32) {
	if len(v) == 0 {
		panic("bigint: division by zero")
	}
	if cmpNat(u, v) < 0 {
		return nil, cloneNat(u)
	}
	if len(v) == 1 {
		q, rw := divWNat(u, v[0])
		return q, norm([]uint32{rw})
	}

	s := uint(DigitBits - bits.Len32(v[len(v)-1]))
	vn := shlNat(v, s)
	un := make([]uint32, len(u)+1)
	copy(un, shlNat(u, s))

	n := len(vn)
	m := len(un) - n
	q = make([]uint32, m)
	vTop, vNext := uint64(vn[n-1]), uint64(vn[n-2])

	for j := m - 1; j >= 0; j-- {
		num := uint64(un[j+n])<<DigitBits | uint64(un[j+n-1])
		qhat, rhat := num/vTop, num%vTop
		for qhat >= digitBase || qhat*vNext > rhat<<DigitBits|uint64(un[j+n-2]) {
			qhat--
			rhat += vTop
			if rhat >= digitBase {
				break
			}
		}

		var borrow int64
		var carry uint64
		for i := 0; i < n; i++ {
			p := qhat*uint64(vn[i]) + carry
			carry = p >> DigitBits
			t := int64(un[i+j]) - int64(p&digitMask) - borrow
			borrow = 0
			if t < 0 {
				t += digitBase
				borrow = 1
			}
			un[i+j] = uint32(t)
		}
		t := int64(un[j+n]) - int64(carry) - borrow

		if t < 0 {
			// qhat was one too large; add v back.
			qhat--
			var c uint32
			for i := 0; i < n; i++ {
				sum := un[i+j] + vn[i] + c
				un[i+j] = sum & digitMask
				c = sum >> DigitBits
			}
			t += int64(c)
		}
		un[j+n] = uint32(t)
		q[j] = uint32(qhat)
	}

	return norm(q), shrNat(norm(un[:n]), s)
}
