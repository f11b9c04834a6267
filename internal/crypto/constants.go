package crypto

const (
	// EnvelopeMarker opens every field envelope and names the format version.
	EnvelopeMarker = "$bt4|"
	// SegmentSeparator delimits the envelope segments.
	SegmentSeparator = "$"

	// AESKeySize is the size of the per-field AES-256 key in bytes.
	AESKeySize = 32
	// HMACKeySize is the size of the per-field HMAC-SHA256 key in bytes.
	HMACKeySize = 32
	// CombinedKeySize is the size of AES key || HMAC key as wrapped by RSA.
	CombinedKeySize = AESKeySize + HMACKeySize
	// IVSize is the size of the AES-CBC initialization vector in bytes.
	IVSize = 16
	// BlockSize is the AES block size in bytes.
	BlockSize = 16
	// SignatureSize is the size of an HMAC-SHA256 signature in bytes.
	SignatureSize = 32

	// PKCS1Overhead is the number of bytes PKCS#1 v1.5 type 2 padding needs
	// on top of the message.
	PKCS1Overhead = 11

	// DefaultRSABits is the modulus size used by GenerateKeypair when none is given.
	DefaultRSABits = 2048
	// MinRSABits is the smallest modulus able to wrap the base64 combined key.
	MinRSABits = 8 * (88 + PKCS1Overhead)
)
