package credentials

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestHasher(t *testing.T) *Hasher {
	t.Helper()
	h, err := NewHasher(bcrypt.MinCost)
	require.NoError(t, err)
	return h
}

func TestNewHasher_Cost(t *testing.T) {
	h, err := NewHasher(0)
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, h.Cost())

	h, err = NewHasher(bcrypt.MinCost)
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, h.Cost())

	for _, cost := range []int{-1, bcrypt.MinCost - 1, bcrypt.MaxCost + 1} {
		_, err := NewHasher(cost)
		assert.True(t, errors.Is(err, ErrInvalidCost), "cost %d", cost)
	}
}

func TestHasher_HashEmbedsCost(t *testing.T) {
	h := newTestHasher(t)

	d, err := h.Hash("secret6")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(d, "$2a$"), d)

	cost, err := bcrypt.Cost([]byte(d))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)
	assert.NotContains(t, d, "secret6")
}

func TestHasher_HashIsSalted(t *testing.T) {
	h := newTestHasher(t)

	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.True(t, h.Verify("same", a))
	assert.True(t, h.Verify("same", b))
}

func TestHasher_Verify(t *testing.T) {
	h := newTestHasher(t)
	d, err := h.Hash("secret6")
	require.NoError(t, err)

	tests := []struct {
		name      string
		plaintext string
		digest    string
		want      bool
	}{
		{name: "match", plaintext: "secret6", digest: d, want: true},
		{name: "mismatch", plaintext: "wrong", digest: d, want: false},
		{name: "empty digest", plaintext: "secret6", digest: "", want: false},
		{name: "malformed digest", plaintext: "secret6", digest: "not-a-bcrypt-digest", want: false},
		{name: "truncated digest", plaintext: "secret6", digest: d[:20], want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, h.Verify(tt.plaintext, tt.digest))
		})
	}
}

func TestHasher_TooLongInput(t *testing.T) {
	h := newTestHasher(t)
	_, err := h.Hash(strings.Repeat("x", 73))
	require.Error(t, err)
}
