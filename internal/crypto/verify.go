package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
)

// Sign computes the HMAC-SHA256 envelope signature over data.
func Sign(hmacKey, data []byte) []byte {
	mac := hmac.New(sha256.New, hmacKey)
	mac.Write(data)
	return mac.Sum(nil)
}

// VerifySignature checks the HMAC-SHA256 signature of data in constant time.
// CRITICAL: This MUST be called BEFORE the ciphertext is decrypted.
func VerifySignature(hmacKey, data, signature []byte) error {
	if len(hmacKey) != HMACKeySize {
		return fmt.Errorf("%w: got %d, want %d", ErrInvalidKeySize, len(hmacKey), HMACKeySize)
	}

	if !hmac.Equal(Sign(hmacKey, data), signature) {
		return ErrSignatureVerificationFailed
	}

	return nil
}

// VerifySignatureSafe verifies the signature without returning an error.
func VerifySignatureSafe(hmacKey, data, signature []byte) bool {
	return VerifySignature(hmacKey, data, signature) == nil
}
