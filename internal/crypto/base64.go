package crypto

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// ToBase64 encodes bytes to standard base64 with padding.
// All envelope segments use this alphabet.
func ToBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// FromBase64 decodes standard base64 (with padding) to bytes.
func FromBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// DecodeBase64 decodes base64 in any of the common forms. Whitespace is
// ignored so that keys pasted from a dashboard with line breaks still decode.
func DecodeBase64(s string) ([]byte, error) {
	s = strings.Join(strings.Fields(s), "")

	if data, err := base64.StdEncoding.DecodeString(s); err == nil {
		return data, nil
	}

	if data, err := base64.RawStdEncoding.DecodeString(s); err == nil {
		return data, nil
	}

	if data, err := base64.URLEncoding.DecodeString(s); err == nil {
		return data, nil
	}

	return base64.RawURLEncoding.DecodeString(s)
}

// Base64ToHex converts standard base64 to lowercase hex.
func Base64ToHex(s string) (string, error) {
	raw, err := FromBase64(s)
	if err != nil {
		return "", fmt.Errorf("decode base64: %w", err)
	}
	return hex.EncodeToString(raw), nil
}
