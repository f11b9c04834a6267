package crypto

import (
	"crypto/rsa"
	"fmt"
)

// Opened is the result of opening a field envelope on the receiving side.
type Opened struct {
	// Envelope is the parsed envelope.
	Envelope *Envelope
	// Plaintext is the recovered field value.
	Plaintext []byte
	// AESKey is the per-field AES-256 key.
	AESKey []byte
	// HMACKey is the per-field HMAC-SHA256 key.
	HMACKey []byte
}

// Open decrypts a field envelope with the merchant's RSA private key.
//
// The process:
//  1. RSA PKCS#1 v1.5 decryption of the wrapped key, which yields the base64
//     text of AES key || HMAC key
//  2. HMAC-SHA256 verification of the raw IV||ciphertext bytes
//  3. AES-256-CBC decryption and PKCS#5 padding removal
func Open(envelope string, priv *rsa.PrivateKey) (*Opened, error) {
	env, err := ParseEnvelope(envelope)
	if err != nil {
		return nil, err
	}

	aesKey, hmacKey, err := UnwrapKey(env.EncryptedKey, priv)
	if err != nil {
		return nil, err
	}

	ciphertext, err := FromBase64(env.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: decode ciphertext: %v", ErrInvalidEnvelope, err)
	}

	signature, err := FromBase64(env.Signature)
	if err != nil {
		return nil, fmt.Errorf("%w: decode signature: %v", ErrInvalidEnvelope, err)
	}

	if err := VerifySignature(hmacKey, ciphertext, signature); err != nil {
		return nil, err
	}

	plaintext, err := DecryptCBC(aesKey, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}

	return &Opened{
		Envelope:  env,
		Plaintext: plaintext,
		AESKey:    aesKey,
		HMACKey:   hmacKey,
	}, nil
}

// UnwrapKey recovers the AES and HMAC keys from the base64 wrapped-key segment.
func UnwrapKey(encryptedKeyB64 string, priv *rsa.PrivateKey) (aesKey, hmacKey []byte, err error) {
	wrapped, err := FromBase64(encryptedKeyB64)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: decode key: %v", ErrInvalidEnvelope, err)
	}

	// The sender only pads its hex output to an even length, so a result
	// with leading zero bytes arrives shorter than the modulus.
	k := priv.Size()
	if len(wrapped) > k {
		return nil, nil, fmt.Errorf("%w: wrapped key is %d bytes, modulus is %d", ErrDecryptionFailed, len(wrapped), k)
	}
	if len(wrapped) < k {
		padded := make([]byte, k)
		copy(padded[k-len(wrapped):], wrapped)
		wrapped = padded
	}

	encoded, err := rsa.DecryptPKCS1v15(nil, priv, wrapped)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	combined, err := FromBase64(string(encoded))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: wrapped key is not base64: %v", ErrDecryptionFailed, err)
	}
	if len(combined) != CombinedKeySize {
		return nil, nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidKeySize, len(combined), CombinedKeySize)
	}

	return combined[:AESKeySize], combined[AESKeySize:], nil
}
