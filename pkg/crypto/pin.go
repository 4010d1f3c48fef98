// Package crypto provides PIN hashing for the credential registry.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

var ErrPINMismatch = errors.New("crypto: PIN mismatch")

const saltLen = 16

// HashPIN derives an argon2id hash for a PIN with a fresh random salt.
// Returns hex-encoded hash and salt for storage.
func HashPIN(pin string) (hash, salt string, err error) {
	raw := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", "", fmt.Errorf("crypto: generate salt: %w", err)
	}
	sum := argon2.IDKey([]byte(pin), raw, 1, 64*1024, 4, 32)
	return hex.EncodeToString(sum), hex.EncodeToString(raw), nil
}

// VerifyPIN recomputes the hash for a candidate PIN against the stored
// salt and compares in constant time. Returns ErrPINMismatch on failure.
func VerifyPIN(pin, storedHash, storedSalt string) error {
	salt, err := hex.DecodeString(storedSalt)
	if err != nil {
		return fmt.Errorf("crypto: decode salt: %w", err)
	}
	want, err := hex.DecodeString(storedHash)
	if err != nil {
		return fmt.Errorf("crypto: decode hash: %w", err)
	}
	got := argon2.IDKey([]byte(pin), salt, 1, 64*1024, 4, 32)
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return ErrPINMismatch
	}
	return nil
}
