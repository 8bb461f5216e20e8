package ids

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	a, b := New(), New()
	assert.NotEqual(t, a, b)
	assert.True(t, Valid(a))
	assert.False(t, Valid("not-an-id"))
}

func TestReferralCode(t *testing.T) {
	alnum := regexp.MustCompile(`^[A-Z2-9]+$`)
	for _, length := range []int{3, 8, 10} {
		code, err := ReferralCode(length)
		require.NoError(t, err)
		assert.Len(t, code, length)
		assert.Regexp(t, alnum, code)
	}
}
