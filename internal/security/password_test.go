package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Cheap parameters keep the suite fast.
var testParams = Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1}

func TestPasswordHashRoundTrip(t *testing.T) {
	h := NewPasswordHasher(testParams)

	hash, err := h.Hash("secret1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(hash), "$argon2id$v=19$m=8192,t=1,p=1$"))
	assert.NotContains(t, string(hash), "secret1")

	ok, err := h.Compare("secret1", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Compare("secret2", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPasswordHashIsSalted(t *testing.T) {
	h := NewPasswordHasher(testParams)

	a, err := h.Hash("secret1")
	require.NoError(t, err)
	b, err := h.Hash("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestCompareUsesEncodedParams(t *testing.T) {
	hash, err := NewPasswordHasher(testParams).Hash("secret1")
	require.NoError(t, err)

	ok, err := NewPasswordHasher(DefaultArgon2Params).Compare("secret1", hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCompareMalformedHash(t *testing.T) {
	h := NewPasswordHasher(testParams)

	for _, bad := range []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$garbage$c2FsdA$a2V5",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$a2V5",
	} {
		_, err := h.Compare("secret1", []byte(bad))
		assert.ErrorIs(t, err, ErrMalformedHash, bad)
	}
}
