package service

import (
	"context"
	"errors"
	"strings"

	"cashcraft/api/internal/repository"
)

// referralLedger turns a referral code supplied at registration into a credit
// for the owning account. The credit is committed together with the new
// account by the store, never on its own.
type referralLedger struct {
	accounts AccountStore
	bonus    int
}

// resolve returns the credit to apply for code, or nil when code is empty or
// matches no account. An unmatched code is not an error.
func (l referralLedger) resolve(ctx context.Context, code string) (*repository.ReferralCredit, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, nil
	}

	referrer, err := l.accounts.FindByReferralCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &repository.ReferralCredit{
		ReferrerID: referrer.ID,
		Bonus:      l.bonus,
	}, nil
}
