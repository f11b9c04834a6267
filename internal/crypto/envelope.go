package crypto

import (
	"fmt"
	"regexp"
	"strings"
)

// versionGroups is the number of "_" groups at the end of a tag that hold
// the version.
const versionGroups = 3

var (
	clientIDPattern = regexp.MustCompile(`^[a-z0-9_]+$`)
	versionPattern  = regexp.MustCompile(`^[0-9]+\.[0-9]+\.[0-9]+$`)
)

// ValidateTag checks that a client ID and a dotted version can be written
// into an envelope tag and parsed back.
func ValidateTag(clientID, version string) error {
	if !clientIDPattern.MatchString(clientID) {
		return fmt.Errorf("%w: client ID %q must match %s", ErrInvalidTag, clientID, clientIDPattern)
	}
	if !versionPattern.MatchString(version) {
		return fmt.Errorf("%w: version %q must be major.minor.patch", ErrInvalidTag, version)
	}
	return nil
}

// Envelope is a parsed field envelope:
//
//	$bt4|<clientID>_<major>_<minor>_<patch>$<wrapped key>$<iv||ciphertext>$<signature>
//
// The three trailing segments are standard base64.
type Envelope struct {
	// ClientID names the library that produced the envelope (e.g. "go").
	ClientID string
	// Version is the producing library version in dotted form.
	Version string
	// EncryptedKey is the RSA-wrapped AES||HMAC key material.
	EncryptedKey string
	// Ciphertext is the IV followed by the AES-CBC ciphertext.
	Ciphertext string
	// Signature is the HMAC-SHA256 of the raw IV||ciphertext bytes.
	Signature string
}

// EnvelopePrefix builds the fixed prefix for a client ID and a dotted version.
func EnvelopePrefix(clientID, version string) string {
	return EnvelopeMarker + clientID + "_" + strings.ReplaceAll(version, ".", "_") + SegmentSeparator
}

// String renders the envelope in its wire form.
func (e *Envelope) String() string {
	return EnvelopePrefix(e.ClientID, e.Version) +
		e.EncryptedKey + SegmentSeparator +
		e.Ciphertext + SegmentSeparator +
		e.Signature
}

// ParseEnvelope splits an envelope string into its parts. It checks the
// structure only; segments are not decoded.
func ParseEnvelope(s string) (*Envelope, error) {
	if !strings.HasPrefix(s, EnvelopeMarker) {
		return nil, fmt.Errorf("%w: missing %q marker", ErrInvalidEnvelope, EnvelopeMarker)
	}

	parts := strings.Split(s[len(EnvelopeMarker):], SegmentSeparator)
	if len(parts) != 4 {
		return nil, fmt.Errorf("%w: got %d segments, want 4", ErrInvalidEnvelope, len(parts))
	}
	for i, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("%w: segment %d is empty", ErrInvalidEnvelope, i)
		}
	}

	// The client ID may contain "_"; the version is always the last groups.
	groups := strings.Split(parts[0], "_")
	if len(groups) <= versionGroups {
		return nil, fmt.Errorf("%w: malformed tag %q", ErrInvalidEnvelope, parts[0])
	}
	split := len(groups) - versionGroups
	clientID := strings.Join(groups[:split], "_")
	version := strings.Join(groups[split:], ".")
	if err := ValidateTag(clientID, version); err != nil {
		return nil, fmt.Errorf("%w: malformed tag %q: %v", ErrInvalidEnvelope, parts[0], err)
	}

	return &Envelope{
		ClientID:     clientID,
		Version:      version,
		EncryptedKey: parts[1],
		Ciphertext:   parts[2],
		Signature:    parts[3],
	}, nil
}
