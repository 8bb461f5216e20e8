package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"cashcraft/api/internal/models"
)

// MemoryAccountRepository keeps accounts in process memory. Uniqueness and
// referral credit are enforced under a single lock, matching the guarantees
// of the Postgres repository. Used by tests and the "memory" storage driver.
type MemoryAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]models.Account
	now      func() time.Time
}

func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{
		accounts: map[string]models.Account{},
		now:      time.Now,
	}
}

func (r *MemoryAccountRepository) Ping(context.Context) error {
	return nil
}

func (r *MemoryAccountRepository) ExistsByEmailOrPhone(_ context.Context, email string, phone string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.accounts {
		if strings.EqualFold(a.Email, email) || a.Phone == phone {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryAccountRepository) FindByEmail(_ context.Context, email string) (models.Account, error) {
	return r.find(func(a models.Account) bool { return strings.EqualFold(a.Email, email) })
}

func (r *MemoryAccountRepository) GetByID(_ context.Context, id string) (models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.accounts[id]
	if !ok {
		return models.Account{}, ErrAccountNotFound
	}
	return clone(a), nil
}

func (r *MemoryAccountRepository) FindByReferralCode(_ context.Context, code string) (models.Account, error) {
	return r.find(func(a models.Account) bool { return a.ReferralCode == code })
}

func (r *MemoryAccountRepository) Create(_ context.Context, account models.Account, credit *ReferralCredit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if account.ReferredBy != nil && *account.ReferredBy == account.ID {
		return ErrSelfReferral
	}
	for _, a := range r.accounts {
		if a.ID == account.ID || strings.EqualFold(a.Email, account.Email) || a.Phone == account.Phone {
			return ErrDuplicateAccount
		}
		if a.ReferralCode == account.ReferralCode {
			return ErrDuplicateReferralCode
		}
	}

	var referrer models.Account
	if credit != nil {
		var ok bool
		if referrer, ok = r.accounts[credit.ReferrerID]; !ok {
			return ErrAccountNotFound
		}
	}

	now := r.now()
	account.ReferralCount = 0
	account.CreatedAt = now
	account.UpdatedAt = now
	r.accounts[account.ID] = clone(account)

	if credit != nil {
		referrer.ReferralCount++
		referrer.CreditScore += credit.Bonus
		referrer.UpdatedAt = now
		r.accounts[referrer.ID] = referrer
	}
	return nil
}

func (r *MemoryAccountRepository) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	a.LastLogin = &at
	a.UpdatedAt = r.now()
	r.accounts[id] = a
	return nil
}

// SetStatus changes an account's status. Administrative status changes live
// outside the auth API; this exists for seeding and tests.
func (r *MemoryAccountRepository) SetStatus(id string, status models.AccountStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	a.Status = status
	r.accounts[id] = a
	return nil
}

func (r *MemoryAccountRepository) find(match func(models.Account) bool) (models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.accounts {
		if match(a) {
			return clone(a), nil
		}
	}
	return models.Account{}, ErrAccountNotFound
}

func clone(a models.Account) models.Account {
	a.PasswordHash = append([]byte(nil), a.PasswordHash...)
	if a.ReferredBy != nil {
		ref := *a.ReferredBy
		a.ReferredBy = &ref
	}
	if a.LastLogin != nil {
		at := *a.LastLogin
		a.LastLogin = &at
	}
	return a
}
