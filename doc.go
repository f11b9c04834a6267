// Package fieldcrypt encrypts individual form fields on the client for a
// payment gateway that holds the matching RSA private key.
//
// Each field gets a fresh AES-256 key, HMAC-SHA256 key and IV. The value is
// encrypted with AES-CBC, the ciphertext is signed with HMAC, and the two
// keys are wrapped with the merchant's RSA public key (PKCS#1 v1.5). The
// result is a single ASCII envelope:
//
//	$bt4|go_1_3_10$<wrapped key>$<iv||ciphertext>$<signature>
//
// Basic usage:
//
//	client, err := fieldcrypt.New(encryptionKey)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	envelope, err := client.Encrypt("4111111111111111")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Randomness
//
// Keys, IVs and padding come from a Fortuna-style generator seeded once
// per process from crypto/rand. Use WithRandomSource to supply another
// source; Encrypt fails with ErrNotReady if it lacks entropy.
//
// # Errors
//
// A public key that is not base64 DER holding exactly a modulus and an
// exponent fails with ErrInvalidEncryptionKey before any randomness is
// drawn. A key too small to wrap the field keys fails with
// ErrPlaintextTooLong.
package fieldcrypt
