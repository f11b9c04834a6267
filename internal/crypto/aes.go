package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// DecryptCBC decrypts AES-256-CBC ciphertext and strips PKCS#5 padding.
// The input format is: iv (16 bytes) || ciphertext.
func DecryptCBC(key, ivAndCiphertext []byte) ([]byte, error) {
	if len(key) != AESKeySize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidKeySize, len(key), AESKeySize)
	}

	if len(ivAndCiphertext) < IVSize+BlockSize {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrCorrupt)
	}

	iv := ivAndCiphertext[:IVSize]
	ciphertext := ivAndCiphertext[IVSize:]
	if len(ciphertext)%BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext is not a multiple of the block size", ErrCorrupt)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	return unpad(plaintext)
}

// EncryptCBC encrypts data using AES-256-CBC with PKCS#5 padding.
// Returns: iv (16 bytes) || ciphertext
func EncryptCBC(key, iv, plaintext []byte) ([]byte, error) {
	if len(key) != AESKeySize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidKeySize, len(key), AESKeySize)
	}

	if len(iv) != IVSize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidIVSize, len(iv), IVSize)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	n := BlockSize - len(plaintext)%BlockSize
	padded := append(append([]byte{}, plaintext...), bytes.Repeat([]byte{byte(n)}, n)...)

	out := make([]byte, IVSize+len(padded))
	copy(out, iv)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[IVSize:], padded)
	return out, nil
}

func unpad(data []byte) ([]byte, error) {
	n := int(data[len(data)-1])
	if n == 0 || n > BlockSize {
		return nil, fmt.Errorf("%w: pkcs#5 padding corrupt", ErrCorrupt)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("%w: pkcs#5 padding corrupt", ErrCorrupt)
		}
	}
	return data[:len(data)-n], nil
}
