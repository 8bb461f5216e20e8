package ids

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/segmentio/ksuid"
)

const referralAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// New returns a time-ordered, globally unique identifier.
func New() string {
	return ksuid.New().String()
}

// Valid reports whether s parses as an identifier produced by New.
func Valid(s string) bool {
	_, err := ksuid.Parse(s)
	return err == nil
}

// ReferralCode returns a random upper-case alphanumeric code of the given
// length. Ambiguous glyphs (0, O, 1, I) are excluded.
func ReferralCode(length int) (string, error) {
	buf := make([]byte, length)
	max := big.NewInt(int64(len(referralAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate referral code: %w", err)
		}
		buf[i] = referralAlphabet[n.Int64()]
	}
	return string(buf), nil
}
