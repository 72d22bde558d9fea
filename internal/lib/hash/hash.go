package hash

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hasher wraps one-way password hashing. Construct once and share;
// it is stateless and safe for concurrent use.
type Hasher struct {
	cost int
}

func New() *Hasher {
	return &Hasher{cost: bcrypt.DefaultCost}
}

// Hash returns a salted bcrypt hash of the given plaintext. Each call
// produces a different hash for the same input; all of them verify.
func (h *Hasher) Hash(plaintext string) (string, error) {
	const op = "hash.Hash"

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(hashed), nil
}

// Verify reports whether plaintext matches the stored hash. A malformed
// hash value returns false, never an error; bcrypt's comparison is
// constant-time over the digest.
func (h *Hasher) Verify(plaintext, hashValue string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashValue), []byte(plaintext)) == nil
}
