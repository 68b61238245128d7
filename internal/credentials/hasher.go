package credentials

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCost is returned by NewHasher for a cost outside bcrypt's range.
var ErrInvalidCost = errors.New("credentials: invalid bcrypt cost")

// Hasher produces and checks bcrypt digests. It is immutable and safe for
// concurrent use.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher with the given work factor. Zero selects
// bcrypt.DefaultCost; bcrypt.MinCost is the fast path used by tests.
func NewHasher(cost int) (*Hasher, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("%w: %d must be in [%d, %d]", ErrInvalidCost, cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &Hasher{cost: cost}, nil
}

// Cost returns the configured work factor.
func (h *Hasher) Cost() int { return h.cost }

// Hash returns the bcrypt digest of plaintext with a fresh salt.
func (h *Hasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("credentials: hash: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest. An empty or malformed
// digest yields false.
func (h *Hasher) Verify(plaintext, digest string) bool {
	if digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
