package credentials

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// TokenBytes is the entropy of a raw token. Encoded it is 22 characters.
const TokenBytes = 16

// NewToken returns a random URL-safe token (unpadded base64url).
func NewToken() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("credentials: read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
