package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltLength   = 16
	digestLength = 32

	// DefaultHashIterations is the PBKDF2 iteration count for new digests.
	// Historical records were created with a single iteration; that value is a
	// known production-hardening gap and is only honored through configuration,
	// never as a default.
	DefaultHashIterations = 100000
)

// PasswordHasher derives and verifies password digests. Two schemes are
// supported: PBKDF2-SHA256 over (password, salt) for salted records, and a
// legacy unsalted digest (HMAC-SHA256 keyed by the password over an empty
// message) retained for records created before salting was introduced.
type PasswordHasher struct {
	iterations int
}

// NewPasswordHasher constructs a hasher with the given PBKDF2 iteration count.
// Non-positive values fall back to DefaultHashIterations.
func NewPasswordHasher(iterations int) *PasswordHasher {
	if iterations <= 0 {
		iterations = DefaultHashIterations
	}
	return &PasswordHasher{iterations: iterations}
}

// Iterations returns the configured PBKDF2 iteration count.
func (h *PasswordHasher) Iterations() int {
	return h.iterations
}

// Hash generates a random salt and derives a hex-encoded digest for the
// password. The salt is hex-encoded before derivation, so the stored salt
// string is the exact derivation input.
func (h *PasswordHasher) Hash(password string) (digest, salt string, err error) {
	raw := make([]byte, saltLength)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("generate salt: %w", err)
	}

	salt = hex.EncodeToString(raw)
	digest = h.saltedDigest(password, salt)
	return digest, salt, nil
}

// Verify compares the password against a stored digest. An empty salt selects
// the legacy unsalted scheme. Both paths compare in constant time.
func (h *PasswordHasher) Verify(password, storedDigest, storedSalt string) bool {
	if password == "" || storedDigest == "" {
		return false
	}

	var computed string
	if storedSalt != "" {
		computed = h.saltedDigest(password, storedSalt)
	} else {
		computed = LegacyDigest(password)
	}

	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedDigest)) == 1
}

func (h *PasswordHasher) saltedDigest(password, salt string) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), h.iterations, digestLength, sha256.New)
	return hex.EncodeToString(key)
}

// LegacyDigest computes the unsalted digest scheme: HMAC-SHA256 keyed by the
// password over an empty message, hex-encoded. Retained for backward
// verification only; new records always get a salt.
func LegacyDigest(password string) string {
	mac := hmac.New(sha256.New, []byte(password))
	return hex.EncodeToString(mac.Sum(nil))
}
