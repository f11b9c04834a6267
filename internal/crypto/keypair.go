package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/asn1"
	"encoding/pem"
	"fmt"
	"math/big"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// oidRSAEncryption is the rsaEncryption algorithm identifier (PKCS#1).
var oidRSAEncryption = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 1}

// Keypair is an RSA key pair for the receiving side of field encryption.
// Merchants publish PublicKeyB64 as their client-side encryption key.
type Keypair struct {
	// PrivateKey unwraps envelope keys.
	PrivateKey *rsa.PrivateKey
	// PublicKeyDER is the SubjectPublicKeyInfo DER encoding of the public key.
	PublicKeyDER []byte
	// PublicKeyB64 is PublicKeyDER encoded as standard base64.
	PublicKeyB64 string
}

// GenerateKeypair creates a new RSA key pair. A bits value of zero selects
// DefaultRSABits.
func GenerateKeypair(bits int) (*Keypair, error) {
	if bits == 0 {
		bits = DefaultRSABits
	}
	if bits < MinRSABits {
		return nil, fmt.Errorf("%w: %d-bit modulus cannot wrap the envelope key, need at least %d",
			ErrInvalidKeySize, bits, MinRSABits)
	}

	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, err
	}

	return KeypairFromPrivateKey(priv)
}

// KeypairFromPrivateKey derives the published key forms from priv.
func KeypairFromPrivateKey(priv *rsa.PrivateKey) (*Keypair, error) {
	der, err := MarshalPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, err
	}

	return &Keypair{
		PrivateKey:   priv,
		PublicKeyDER: der,
		PublicKeyB64: ToBase64(der),
	}, nil
}

// MarshalPublicKey encodes pub as a SubjectPublicKeyInfo:
//
//	SEQUENCE { SEQUENCE { rsaEncryption, NULL }, BIT STRING { RSAPublicKey } }
func MarshalPublicKey(pub *rsa.PublicKey) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
			b.AddASN1ObjectIdentifier(oidRSAEncryption)
			b.AddASN1NULL()
		})
		b.AddASN1(cbasn1.BIT_STRING, func(b *cryptobyte.Builder) {
			b.AddUint8(0) // unused bits
			b.AddBytes(marshalRSAPublicKey(pub))
		})
	})
	return b.Bytes()
}

// MarshalPKCS1PublicKey encodes pub as a bare RSAPublicKey SEQUENCE.
func MarshalPKCS1PublicKey(pub *rsa.PublicKey) []byte {
	return marshalRSAPublicKey(pub)
}

func marshalRSAPublicKey(pub *rsa.PublicKey) []byte {
	var b cryptobyte.Builder
	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1BigInt(pub.N)
		b.AddASN1BigInt(big.NewInt(int64(pub.E)))
	})
	return b.BytesOrPanic()
}

// ParsePublicKey decodes a base64 SubjectPublicKeyInfo RSA key.
func ParsePublicKey(b64 string) (*rsa.PublicKey, error) {
	der, err := DecodeBase64(b64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyFormat, err)
	}

	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		if pub, perr := x509.ParsePKCS1PublicKey(der); perr == nil {
			return pub, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrKeyFormat, err)
	}

	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA key", ErrKeyFormat)
	}
	return pub, nil
}

// MarshalPrivateKeyPEM encodes priv as a PKCS#1 "RSA PRIVATE KEY" PEM block.
func MarshalPrivateKeyPEM(priv *rsa.PrivateKey) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(priv),
	})
}

// ParsePrivateKeyPEM reads a PKCS#1 or PKCS#8 RSA private key from PEM.
func ParsePrivateKeyPEM(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", ErrInvalidPrivateKey)
	}

	if priv, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return priv, nil
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}

	priv, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA key", ErrInvalidPrivateKey)
	}
	return priv, nil
}
