// Command fieldcrypt generates merchant keys, encrypts field values into
// envelopes, and opens or inspects them.
package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	fieldcrypt "github.com/fieldcrypt/client-go"
	"github.com/fieldcrypt/client-go/internal/crypto"
	"github.com/fieldcrypt/client-go/internal/der"
	"github.com/fieldcrypt/client-go/internal/rsapub"
)

const keyEnv = "FIELDCRYPT_ENCRYPTION_KEY"

const usage = `usage: fieldcrypt <command> [args]

commands:
  keygen [-bits N] [-out FILE]         create a key pair; prints the public key
  encrypt [-key KEY] [name=value ...]  encrypt stdin, or each name=value pair
  decrypt -private FILE [ENVELOPE]     open an envelope from the argument or stdin
  inspect-key [KEY]                    print the DER structure of a public key
  inspect-envelope [-private FILE] ENVELOPE
                                       print the segments of an envelope; with a
                                       private key also check its signature`

// exitFunc is called by fatal. Tests replace it.
var exitFunc = os.Exit

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	exitFunc(1)
}

// Config holds the I/O streams used by run.
type Config struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string
}

// DefaultConfig returns a Config wired to the process streams.
func DefaultConfig() *Config {
	return &Config{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Getenv: os.Getenv,
	}
}

func (c *Config) getenv(key string) string {
	if c.Getenv == nil {
		return ""
	}
	return c.Getenv(key)
}

func run(args []string, cfg *Config) error {
	if len(args) < 2 {
		return errors.New(usage)
	}

	switch args[1] {
	case "keygen":
		return runKeygen(args[2:], cfg)
	case "encrypt":
		return runEncrypt(args[2:], cfg)
	case "decrypt":
		return runDecrypt(args[2:], cfg)
	case "inspect-key":
		return runInspectKey(args[2:], cfg)
	case "inspect-envelope":
		return runInspectEnvelope(args[2:], cfg)
	case "help", "-h", "--help":
		fmt.Fprintln(cfg.Stdout, usage)
		return nil
	default:
		return fmt.Errorf("unknown command: %s", args[1])
	}
}

func newFlagSet(name string, cfg *Config) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	if cfg.Stderr != nil {
		fs.SetOutput(cfg.Stderr)
	} else {
		fs.SetOutput(io.Discard)
	}
	return fs
}

// KeygenOutput is printed by the keygen command.
type KeygenOutput struct {
	PublicKey string `json:"publicKey"`
	Bits      int    `json:"bits"`
	Private   string `json:"privateKeyFile,omitempty"`
}

func runKeygen(args []string, cfg *Config) error {
	fs := newFlagSet("keygen", cfg)
	bits := fs.Int("bits", crypto.DefaultRSABits, "RSA modulus size")
	out := fs.String("out", "", "write the PEM private key to FILE instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	kp, err := crypto.GenerateKeypair(*bits)
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}
	pemKey := crypto.MarshalPrivateKeyPEM(kp.PrivateKey)

	output := KeygenOutput{PublicKey: kp.PublicKeyB64, Bits: kp.PrivateKey.N.BitLen()}
	if *out != "" {
		if err := os.WriteFile(*out, pemKey, 0o600); err != nil {
			return fmt.Errorf("write private key: %w", err)
		}
		output.Private = *out
	} else if _, err := cfg.Stdout.Write(pemKey); err != nil {
		return err
	}

	return json.NewEncoder(cfg.Stdout).Encode(output)
}

func runEncrypt(args []string, cfg *Config) error {
	fs := newFlagSet("encrypt", cfg)
	key := fs.String("key", "", "base64 public key; defaults to $"+keyEnv)
	clientID := fs.String("client-id", fieldcrypt.DefaultClientID, "client ID written into envelopes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *key == "" {
		*key = cfg.getenv(keyEnv)
	}
	if *key == "" {
		return fmt.Errorf("encrypt: no key given and $%s is empty", keyEnv)
	}

	client, err := fieldcrypt.New(*key, fieldcrypt.WithClientID(*clientID))
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	if fs.NArg() == 0 {
		data, err := io.ReadAll(cfg.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		envelope, err := client.Encrypt(strings.TrimRight(string(data), "\r\n"))
		if err != nil {
			return fmt.Errorf("encrypt: %w", err)
		}
		_, err = fmt.Fprintln(cfg.Stdout, envelope)
		return err
	}

	fields := make(map[string]string, fs.NArg())
	for _, arg := range fs.Args() {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return fmt.Errorf("encrypt: field %q is not name=value", arg)
		}
		fields[name] = value
	}
	envelopes, err := client.EncryptFields(fields)
	if err != nil {
		return fmt.Errorf("encrypt: %w", err)
	}
	return json.NewEncoder(cfg.Stdout).Encode(envelopes)
}

func runDecrypt(args []string, cfg *Config) error {
	fs := newFlagSet("decrypt", cfg)
	privPath := fs.String("private", "", "PEM private key file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *privPath == "" {
		return errors.New("decrypt: -private is required")
	}

	pemData, err := os.ReadFile(*privPath)
	if err != nil {
		return fmt.Errorf("read private key: %w", err)
	}
	priv, err := crypto.ParsePrivateKeyPEM(pemData)
	if err != nil {
		return fmt.Errorf("parse private key: %w", err)
	}

	envelopes := fs.Args()
	if len(envelopes) == 0 {
		scanner := bufio.NewScanner(cfg.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				envelopes = append(envelopes, line)
			}
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
	}
	if len(envelopes) == 0 {
		return errors.New("decrypt: no envelope given")
	}

	for _, envelope := range envelopes {
		opened, err := crypto.Open(envelope, priv)
		if err != nil {
			return fmt.Errorf("decrypt: %w", err)
		}
		if _, err := fmt.Fprintln(cfg.Stdout, string(opened.Plaintext)); err != nil {
			return err
		}
	}
	return nil
}

func runInspectKey(args []string, cfg *Config) error {
	key := cfg.getenv(keyEnv)
	if len(args) > 0 {
		key = args[0]
	}
	if key == "" {
		return fmt.Errorf("inspect-key: no key given and $%s is empty", keyEnv)
	}

	buf, err := crypto.DecodeBase64(key)
	if err != nil {
		return fmt.Errorf("inspect-key: %w: %v", fieldcrypt.ErrKeyFormat, err)
	}
	root, err := der.Decode(buf)
	if err != nil {
		return fmt.Errorf("inspect-key: %w", err)
	}
	fmt.Fprint(cfg.Stdout, root.PrettyString(""))

	pub, err := rsapub.FromDER(buf)
	if err != nil {
		return fmt.Errorf("inspect-key: %w", err)
	}
	fmt.Fprintf(cfg.Stdout, "modulus: %d bits\nexponent: %d\n", pub.Bits(), pub.Exponent())
	return nil
}

func runInspectEnvelope(args []string, cfg *Config) error {
	fs := newFlagSet("inspect-envelope", cfg)
	privPath := fs.String("private", "", "PEM private key file used to check the signature")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("inspect-envelope: exactly one envelope is required")
	}

	env, err := crypto.ParseEnvelope(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("inspect-envelope: %w", err)
	}
	wrappedHex, err := crypto.Base64ToHex(env.EncryptedKey)
	if err != nil {
		return fmt.Errorf("inspect-envelope: wrapped key: %w", err)
	}
	ivct, err := crypto.FromBase64(env.Ciphertext)
	if err != nil {
		return fmt.Errorf("inspect-envelope: ciphertext: %w", err)
	}
	if len(ivct) < crypto.IVSize {
		return fmt.Errorf("inspect-envelope: %w: ciphertext shorter than the IV", crypto.ErrInvalidEnvelope)
	}
	sigHex, err := crypto.Base64ToHex(env.Signature)
	if err != nil {
		return fmt.Errorf("inspect-envelope: signature: %w", err)
	}

	fmt.Fprintf(cfg.Stdout, "client: %s\nversion: %s\n", env.ClientID, env.Version)
	fmt.Fprintf(cfg.Stdout, "wrapped key: %d bytes %s\n", len(wrappedHex)/2, wrappedHex)
	fmt.Fprintf(cfg.Stdout, "iv: %x\n", ivct[:crypto.IVSize])
	fmt.Fprintf(cfg.Stdout, "ciphertext: %d bytes\n", len(ivct)-crypto.IVSize)
	fmt.Fprintf(cfg.Stdout, "signature: %s\n", sigHex)

	if *privPath == "" {
		return nil
	}
	pemData, err := os.ReadFile(*privPath)
	if err != nil {
		return fmt.Errorf("read private key: %w", err)
	}
	priv, err := crypto.ParsePrivateKeyPEM(pemData)
	if err != nil {
		return fmt.Errorf("parse private key: %w", err)
	}
	_, hmacKey, err := crypto.UnwrapKey(env.EncryptedKey, priv)
	if err != nil {
		return fmt.Errorf("inspect-envelope: %w", err)
	}
	sig, err := crypto.FromBase64(env.Signature)
	if err != nil {
		return fmt.Errorf("inspect-envelope: signature: %w", err)
	}
	if !crypto.VerifySignatureSafe(hmacKey, ivct, sig) {
		fmt.Fprintln(cfg.Stdout, "signature check: invalid")
		return fmt.Errorf("inspect-envelope: %w", crypto.ErrSignatureVerificationFailed)
	}
	fmt.Fprintln(cfg.Stdout, "signature check: valid")
	return nil
}
