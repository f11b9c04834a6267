package digest

import "github.com/fieldcrypt/client-go/internal/bitarray"

const (
	ipad = 0x36363636
	opad = 0x5c5c5c5c
)

// HMAC is HMAC-SHA256 with precomputed inner and outer states.
type HMAC struct {
	inner, outer *SHA256
}

// NewHMAC keys an HMAC. Keys longer than one block are hashed first.
func NewHMAC(key bitarray.Bits) *HMAC {
	words := key.Words()
	if len(words) > blockWords {
		words = Hash(key).Words()
	}

	var in, out [blockWords]uint32
	for i := 0; i < blockWords; i++ {
		var k uint32
		if i < len(words) {
			k = words[i]
		}
		in[i] = k ^ ipad
		out[i] = k ^ opad
	}

	return &HMAC{
		inner: New().Update(bitarray.FromWords(in[:]...)),
		outer: New().Update(bitarray.FromWords(out[:]...)),
	}
}

// MAC returns the 256-bit tag of data. h can be reused.
func (h *HMAC) MAC(data bitarray.Bits) bitarray.Bits {
	inner := h.inner.Clone().Update(data).Finalize()
	return h.outer.Clone().Update(inner).Finalize()
}
