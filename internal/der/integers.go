package der

import (
	"fmt"

	"github.com/fieldcrypt/client-go/internal/crypto"
)

// Integers returns the contents of every INTEGER in the tree, depth first
// and in document order.
func Integers(root *Node) [][]byte {
	var out [][]byte
	var walk func(n *Node)
	walk = func(n *Node) {
		if n.TypeName() == "INTEGER" {
			out = append(out, n.Content())
		}
		for _, c := range n.Sub {
			walk(c)
		}
	}
	walk(root)
	return out
}

// PublicKeyIntegers decodes an RSA public key, either SubjectPublicKeyInfo
// or a bare RSAPublicKey, and returns its modulus and exponent bytes.
func PublicKeyIntegers(buf []byte) (modulus, exponent []byte, err error) {
	root, err := Decode(buf)
	if err != nil {
		return nil, nil, err
	}

	ints := Integers(root)
	if len(ints) != 2 {
		return nil, nil, fmt.Errorf("%w: found %d integers, want 2", crypto.ErrKeyFormat, len(ints))
	}
	return ints[0], ints[1], nil
}
