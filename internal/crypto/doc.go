// Package crypto holds the shared pieces of the field envelope format and
// the receiving side of it.
//
// # Envelope Format
//
// A field envelope is a single ASCII string:
//
//	$bt4|<clientID>_<major>_<minor>_<patch>$<wrapped key>$<iv||ciphertext>$<signature>
//
// The wrapped key is the RSA PKCS#1 v1.5 encryption, under the merchant's
// public key, of the base64 text of AES-256 key || HMAC-SHA256 key. The
// sender renders it as hex and converts it to base64. The second segment is
// a fresh 16-byte IV followed by AES-256-CBC ciphertext with PKCS#5
// padding. The signature is HMAC-SHA256 over the raw iv||ciphertext bytes.
//
// The sending side is built from the packages under internal (bigint, der,
// rsapub, prng, blockcipher, digest, bitarray). The receiving side here uses
// the standard library primitives, so every round trip checks one
// implementation against the other.
//
// # Critical Security Notes
//
// Signature verification MUST be performed BEFORE decryption. [Open] does
// this; callers that use [UnwrapKey] and [DecryptCBC] directly must call
// [VerifySignature] first. CBC padding is not an integrity check.
//
// # Key Management
//
// Use [GenerateKeypair] to create an RSA key pair. The public half is
// published as base64 SubjectPublicKeyInfo DER ([Keypair.PublicKeyB64]);
// the private half should be stored with [MarshalPrivateKeyPEM] and never
// logged, transmitted in plaintext, or stored in version control.
package crypto
