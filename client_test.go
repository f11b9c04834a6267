package fieldcrypt

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"math/big"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/fieldcrypt/client-go/internal/crypto"
	"github.com/fieldcrypt/client-go/internal/prng"
)

var envelopeRE = regexp.MustCompile(`^\$bt4\|[a-z_0-9]+\$[A-Za-z0-9+/=]+\$[A-Za-z0-9+/=]+\$[A-Za-z0-9+/=]+$`)

var (
	keypairOnce sync.Once
	keypair     *crypto.Keypair
	keypairErr  error
)

func testKeypair(t *testing.T) *crypto.Keypair {
	t.Helper()
	keypairOnce.Do(func() {
		keypair, keypairErr = crypto.GenerateKeypair(1024)
	})
	if keypairErr != nil {
		t.Fatalf("GenerateKeypair() error = %v", keypairErr)
	}
	return keypair
}

// countingSource records how many times it was asked for words.
type countingSource struct {
	mu    sync.Mutex
	src   WordSource
	calls int
	err   error
}

func (s *countingSource) RandomWords(n, paranoia int) ([]uint32, error) {
	s.mu.Lock()
	s.calls++
	err := s.err
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.src.RandomWords(n, paranoia)
}

func (s *countingSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newCountingSource(t *testing.T) *countingSource {
	t.Helper()
	g, err := prng.NewSeeded()
	if err != nil {
		t.Fatalf("NewSeeded() error = %v", err)
	}
	return &countingSource{src: g}
}

func TestNew_MissingPublicKey(t *testing.T) {
	_, err := New("")
	if !errors.Is(err, ErrMissingPublicKey) {
		t.Errorf("New(\"\") error = %v, want ErrMissingPublicKey", err)
	}
}

func TestNew_Defaults(t *testing.T) {
	c, err := New("AAAA")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.prefix != "$bt4|go_1_3_10$" {
		t.Errorf("prefix = %q, want $bt4|go_1_3_10$", c.prefix)
	}
	if c.random == nil {
		t.Error("random source was not set")
	}
	if c.paranoia != defaultParanoia {
		t.Errorf("paranoia = %d, want %d", c.paranoia, defaultParanoia)
	}
}

func TestNew_Options(t *testing.T) {
	src := newCountingSource(t)
	c, err := New("AAAA",
		WithClientID("javascript"),
		WithVersion("2.0.1"),
		WithRandomSource(src),
		WithParanoia(3),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.prefix != "$bt4|javascript_2_0_1$" {
		t.Errorf("prefix = %q", c.prefix)
	}
	if c.random != src {
		t.Error("random source was not applied")
	}
	if c.paranoia != 3 {
		t.Errorf("paranoia = %d, want 3", c.paranoia)
	}
}

func TestNew_InvalidTag(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"dollar in client id", []Option{WithClientID("go$x")}},
		{"pipe in client id", []Option{WithClientID("a|b")}},
		{"empty client id", []Option{WithClientID("")}},
		{"uppercase client id", []Option{WithClientID("Shop")}},
		{"short version", []Option{WithVersion("1.3")}},
		{"non-numeric version", []Option{WithVersion("1.x.0")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("AAAA", tt.opts...)
			if !errors.Is(err, ErrInvalidTag) {
				t.Errorf("New() error = %v, want ErrInvalidTag", err)
			}
		})
	}
}

func TestEncrypt_UnderscoreClientID(t *testing.T) {
	kp := testKeypair(t)

	c, err := New(kp.PublicKeyB64, WithClientID("my_shop_app"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	envelope, err := c.Encrypt("4111")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	env, err := ParseEnvelope(envelope)
	if err != nil {
		t.Fatalf("ParseEnvelope() error = %v", err)
	}
	if env.ClientID != "my_shop_app" || env.Version != Version {
		t.Errorf("tag = %s/%s, want my_shop_app/%s", env.ClientID, env.Version, Version)
	}
	if env.String() != envelope {
		t.Errorf("String() = %q, want %q", env.String(), envelope)
	}
}

func TestEncrypt_RoundTrip(t *testing.T) {
	kp := testKeypair(t)

	c, err := New(kp.PublicKeyB64)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	plaintexts := []string{
		"4111111111111111",
		"",
		"12/2030",
		"a value that spans more than one sixteen byte block",
		"ünïcödé ✓",
	}
	for _, pt := range plaintexts {
		t.Run(pt, func(t *testing.T) {
			envelope, err := c.Encrypt(pt)
			if err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}
			if !envelopeRE.MatchString(envelope) {
				t.Fatalf("envelope %q does not match the wire format", envelope)
			}

			opened, err := crypto.Open(envelope, kp.PrivateKey)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			if string(opened.Plaintext) != pt {
				t.Errorf("plaintext = %q, want %q", opened.Plaintext, pt)
			}
			if opened.Envelope.ClientID != DefaultClientID || opened.Envelope.Version != Version {
				t.Errorf("tag = %s/%s", opened.Envelope.ClientID, opened.Envelope.Version)
			}
		})
	}
}

func TestEncrypt_FreshKeysPerCall(t *testing.T) {
	kp := testKeypair(t)
	c, err := New(kp.PublicKeyB64)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	a, err := c.Encrypt("4111111111111111")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	b, err := c.Encrypt("4111111111111111")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if a == b {
		t.Fatal("two encryptions of the same value are identical")
	}

	ea, _ := ParseEnvelope(a)
	eb, _ := ParseEnvelope(b)
	if ea.Ciphertext[:22] == eb.Ciphertext[:22] {
		t.Error("IV was reused")
	}

	oa, err := crypto.Open(a, kp.PrivateKey)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	ob, err := crypto.Open(b, kp.PrivateKey)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if string(oa.AESKey) == string(ob.AESKey) || string(oa.HMACKey) == string(ob.HMACKey) {
		t.Error("field keys were reused")
	}
}

func TestEncrypt_SignatureCoversCiphertext(t *testing.T) {
	kp := testKeypair(t)
	c, err := New(kp.PublicKeyB64)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	envelope, err := c.Encrypt("4111111111111111")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	opened, err := crypto.Open(envelope, kp.PrivateKey)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	raw, _ := base64.StdEncoding.DecodeString(opened.Envelope.Ciphertext)
	sig, _ := base64.StdEncoding.DecodeString(opened.Envelope.Signature)
	if err := crypto.VerifySignature(opened.HMACKey, raw, sig); err != nil {
		t.Errorf("VerifySignature() error = %v", err)
	}
	if len(raw) != crypto.IVSize+crypto.BlockSize*2 {
		t.Errorf("iv||ciphertext length = %d, want %d", len(raw), crypto.IVSize+crypto.BlockSize*2)
	}
}

func TestEncrypt_InvalidKeyDrawsNoRandomness(t *testing.T) {
	validSPKIPrefix := testKeypair(t).PublicKeyB64[:40]

	tests := []struct {
		name string
		key  string
	}{
		{"not base64", "!!!not base64!!!"},
		{"not DER", base64.StdEncoding.EncodeToString([]byte("hello world"))},
		{"truncated", validSPKIPrefix},
		{"one integer", base64.StdEncoding.EncodeToString([]byte{0x30, 0x03, 0x02, 0x01, 0x05})},
		{"three integers", base64.StdEncoding.EncodeToString([]byte{0x30, 0x09, 0x02, 0x01, 0x05, 0x02, 0x01, 0x03, 0x02, 0x01, 0x01})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newCountingSource(t)
			c, err := New(tt.key, WithRandomSource(src))
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}

			_, err = c.Encrypt("4111111111111111")
			if !errors.Is(err, ErrInvalidEncryptionKey) {
				t.Errorf("error = %v, want ErrInvalidEncryptionKey", err)
			}
			if !errors.Is(err, ErrKeyFormat) {
				t.Errorf("error = %v, want ErrKeyFormat", err)
			}
			if n := src.Calls(); n != 0 {
				t.Errorf("random source called %d times, want 0", n)
			}
		})
	}
}

func TestEncrypt_KeyTooSmall(t *testing.T) {
	n := new(big.Int).Lsh(big.NewInt(1), 511)
	n.Add(n, big.NewInt(1))
	der, err := crypto.MarshalPublicKey(&rsa.PublicKey{N: n, E: 65537})
	if err != nil {
		t.Fatalf("MarshalPublicKey() error = %v", err)
	}

	c, err := New(base64.StdEncoding.EncodeToString(der), WithRandomSource(newCountingSource(t)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_, err = c.Encrypt("4111111111111111")
	if !errors.Is(err, ErrPlaintextTooLong) {
		t.Errorf("error = %v, want ErrPlaintextTooLong", err)
	}
}

func TestEncrypt_SourceError(t *testing.T) {
	kp := testKeypair(t)
	src := newCountingSource(t)
	src.err = ErrNotReady

	c, err := New(kp.PublicKeyB64, WithRandomSource(src))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := c.Encrypt("x"); !errors.Is(err, ErrNotReady) {
		t.Errorf("error = %v, want ErrNotReady", err)
	}
}

func TestEncrypt_UnseededGenerator(t *testing.T) {
	kp := testKeypair(t)
	c, err := New(kp.PublicKeyB64, WithRandomSource(prng.New()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := c.Encrypt("x"); !errors.Is(err, ErrNotReady) {
		t.Errorf("error = %v, want ErrNotReady", err)
	}
}

func TestEncryptFields(t *testing.T) {
	kp := testKeypair(t)
	c, err := New(kp.PublicKeyB64)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	fields := map[string]string{
		"number":          "4111111111111111",
		"cvv":             "123",
		"expiration_date": "12/2030",
	}
	out, err := c.EncryptFields(fields)
	if err != nil {
		t.Fatalf("EncryptFields() error = %v", err)
	}
	if len(out) != len(fields) {
		t.Fatalf("got %d fields, want %d", len(out), len(fields))
	}
	for name, want := range fields {
		opened, err := crypto.Open(out[name], kp.PrivateKey)
		if err != nil {
			t.Fatalf("Open(%s) error = %v", name, err)
		}
		if string(opened.Plaintext) != want {
			t.Errorf("%s = %q, want %q", name, opened.Plaintext, want)
		}
	}
}

func TestEncryptFields_AllOrNothing(t *testing.T) {
	c, err := New("AAAA", WithRandomSource(newCountingSource(t)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	out, err := c.EncryptFields(map[string]string{"cvv": "123"})
	if out != nil {
		t.Errorf("out = %v, want nil", out)
	}
	var fe *FieldError
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v, want *FieldError", err)
	}
	if fe.Field != "cvv" {
		t.Errorf("Field = %q, want cvv", fe.Field)
	}
	if !errors.Is(err, ErrInvalidEncryptionKey) {
		t.Errorf("error = %v, want ErrInvalidEncryptionKey", err)
	}
}

func TestParseEnvelope(t *testing.T) {
	env, err := ParseEnvelope("$bt4|javascript_1_3_10$a2V5$Y3Q=$c2ln")
	if err != nil {
		t.Fatalf("ParseEnvelope() error = %v", err)
	}
	if env.ClientID != "javascript" || env.Version != "1.3.10" {
		t.Errorf("tag = %s/%s", env.ClientID, env.Version)
	}
	if env.EncryptedKey != "a2V5" || env.Ciphertext != "Y3Q=" || env.Signature != "c2ln" {
		t.Errorf("segments = %+v", env)
	}

	if _, err := ParseEnvelope("$bt4|go_1$x"); !errors.Is(err, ErrInvalidEnvelope) {
		t.Errorf("error = %v, want ErrInvalidEnvelope", err)
	}
}

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{"invalid key is key format", ErrInvalidEncryptionKey, crypto.ErrKeyFormat},
		{"key format", ErrKeyFormat, crypto.ErrKeyFormat},
		{"too long", ErrPlaintextTooLong, crypto.ErrPlaintextTooLong},
		{"not ready", ErrNotReady, prng.ErrNotReady},
		{"corrupt", ErrCorrupt, crypto.ErrCorrupt},
		{"stream bounds", ErrStreamBounds, crypto.ErrStreamBounds},
		{"field error", &FieldError{Field: "f", Err: ErrNotReady}, crypto.ErrNotReady},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.target) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.target)
			}
		})
	}
}

func TestFieldError_Error(t *testing.T) {
	err := &FieldError{Field: "cvv", Err: errors.New("boom")}
	if got := err.Error(); got != `field "cvv": boom` {
		t.Errorf("Error() = %q", got)
	}
}

func TestStartCollectors_FeedsDefaultSource(t *testing.T) {
	src, err := DefaultRandomSource()
	if err != nil {
		t.Fatalf("DefaultRandomSource() error = %v", err)
	}
	g := src.(*prng.Generator)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := StartCollectors(ctx, time.Millisecond); err != nil {
		t.Fatalf("StartCollectors() error = %v", err)
	}
	defer StopCollectors()

	if !g.CollectorsRunning() {
		t.Fatal("collectors are not running")
	}
	start := g.PoolStrength()
	deadline := time.Now().Add(5 * time.Second)
	for g.PoolStrength() <= start {
		if time.Now().After(deadline) {
			t.Fatalf("pool strength stayed at %d", start)
		}
		time.Sleep(5 * time.Millisecond)
	}

	StopCollectors()
	if g.CollectorsRunning() {
		t.Error("collectors still running after StopCollectors")
	}
}
