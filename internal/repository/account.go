package repository

import (
	"errors"
)

var (
	ErrAccountNotFound       = errors.New("account not found")
	ErrDuplicateAccount      = errors.New("account with this email or phone already exists")
	ErrDuplicateReferralCode = errors.New("referral code already in use")
	ErrSelfReferral          = errors.New("account cannot refer itself")
)

// ReferralCredit is applied to the referring account in the same commit that
// creates the referred account.
type ReferralCredit struct {
	ReferrerID string
	Bonus      int
}
