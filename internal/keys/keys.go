// Package keys creates and loads the ed25519 keypairs used by a launch:
// the throwaway mint keypair and the funding wallet.
package keys

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"filippo.io/edwards25519"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// Key errors.
var (
	// ErrInvalidKey is returned when key material has the wrong shape.
	ErrInvalidKey = errors.New("invalid private key")

	// ErrKeyMismatch is returned when the public half of a 64-byte secret
	// does not match the key derived from its seed half.
	ErrKeyMismatch = errors.New("private key public half does not match seed")

	// ErrOffCurve is returned for public keys that are not ed25519 points.
	ErrOffCurve = errors.New("public key is not on the ed25519 curve")
)

// Generate creates a fresh keypair. A launch uses it once as the token's mint.
func Generate() (solanago.PrivateKey, error) {
	key, err := solanago.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	return key, nil
}

// ParsePrivateKey parses a 64-byte secret key given either as base58 (the
// wallet export format) or as a JSON byte array (the solana-keygen format).
func ParsePrivateKey(s string) (solanago.PrivateKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidKey)
	}

	var raw []byte
	if strings.HasPrefix(s, "[") {
		var err error
		raw, err = parseByteArray([]byte(s))
		if err != nil {
			return nil, err
		}
	} else {
		decoded, err := base58.Decode(s)
		if err != nil {
			return nil, fmt.Errorf("%w: base58: %v", ErrInvalidKey, err)
		}
		raw = decoded
	}

	key := solanago.PrivateKey(raw)
	if err := Validate(key); err != nil {
		return nil, err
	}
	return key, nil
}

// LoadKeypairFile reads a solana-keygen JSON keypair file.
func LoadKeypairFile(path string) (solanago.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keypair file: %w", err)
	}
	raw, err := parseByteArray(data)
	if err != nil {
		return nil, fmt.Errorf("keypair file %s: %w", path, err)
	}
	key := solanago.PrivateKey(raw)
	if err := Validate(key); err != nil {
		return nil, fmt.Errorf("keypair file %s: %w", path, err)
	}
	return key, nil
}

// MarshalKeypairJSON encodes a key in the solana-keygen JSON byte array format.
func MarshalKeypairJSON(key solanago.PrivateKey) ([]byte, error) {
	if err := Validate(key); err != nil {
		return nil, err
	}
	ints := make([]int, len(key))
	for i, b := range key {
		ints[i] = int(b)
	}
	return json.Marshal(ints)
}

// parseByteArray decodes a JSON array of byte values. encoding/json would
// expect base64 for a []byte target, so values are read as ints.
func parseByteArray(data []byte) ([]byte, error) {
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return nil, fmt.Errorf("%w: json: %v", ErrInvalidKey, err)
	}
	raw := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("%w: byte %d out of range: %d", ErrInvalidKey, i, v)
		}
		raw[i] = byte(v)
	}
	return raw, nil
}

// Validate checks that key is a well-formed 64-byte ed25519 secret whose
// public half matches its seed and lies on the curve.
func Validate(key solanago.PrivateKey) error {
	if len(key) != ed25519.PrivateKeySize {
		return fmt.Errorf("%w: length %d, want %d", ErrInvalidKey, len(key), ed25519.PrivateKeySize)
	}
	derived := ed25519.NewKeyFromSeed(key[:ed25519.SeedSize])
	if !bytes.Equal(derived[ed25519.SeedSize:], key[ed25519.SeedSize:]) {
		return ErrKeyMismatch
	}
	if !IsOnCurve(key.PublicKey()) {
		return ErrOffCurve
	}
	return nil
}

// IsOnCurve reports whether pub decodes to a point on the ed25519 curve.
// Program derived addresses are deliberately off-curve and cannot sign.
func IsOnCurve(pub solanago.PublicKey) bool {
	_, err := new(edwards25519.Point).SetBytes(pub[:])
	return err == nil
}
