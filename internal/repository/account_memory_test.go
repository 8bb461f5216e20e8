package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashcraft/api/internal/models"
)

func newAccount(id, email, phone, code string) models.Account {
	return models.Account{
		ID:           id,
		FirstName:    "Jane",
		LastName:     "Doe",
		Email:        email,
		Phone:        phone,
		PasswordHash: []byte("hash"),
		CreditScore:  300,
		KYCStatus:    models.KYCStatusUnverified,
		Status:       models.AccountStatusActive,
		Role:         models.UserRoleUser,
		ReferralCode: code,
	}
}

func TestMemoryCreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepository()

	require.NoError(t, repo.Create(ctx, newAccount("a1", "jane@x.com", "0712345678", "CODE1"), nil))

	byEmail, err := repo.FindByEmail(ctx, "JANE@x.com")
	require.NoError(t, err)
	assert.Equal(t, "a1", byEmail.ID)
	assert.False(t, byEmail.CreatedAt.IsZero())

	byCode, err := repo.FindByReferralCode(ctx, "CODE1")
	require.NoError(t, err)
	assert.Equal(t, "a1", byCode.ID)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrAccountNotFound)

	exists, err := repo.ExistsByEmailOrPhone(ctx, "other@x.com", "0712345678")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByEmailOrPhone(ctx, "other@x.com", "0700000000")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryCreateEnforcesUniqueness(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepository()
	require.NoError(t, repo.Create(ctx, newAccount("a1", "jane@x.com", "0712345678", "CODE1"), nil))

	assert.ErrorIs(t, repo.Create(ctx, newAccount("a2", "Jane@X.com", "0799999999", "CODE2"), nil), ErrDuplicateAccount)
	assert.ErrorIs(t, repo.Create(ctx, newAccount("a2", "john@x.com", "0712345678", "CODE2"), nil), ErrDuplicateAccount)
	assert.ErrorIs(t, repo.Create(ctx, newAccount("a2", "john@x.com", "0799999999", "CODE1"), nil), ErrDuplicateReferralCode)
}

func TestMemoryCreateAppliesReferralCredit(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepository()
	require.NoError(t, repo.Create(ctx, newAccount("ref", "ref@x.com", "0700000001", "REF01"), nil))

	referred := newAccount("new", "new@x.com", "0700000002", "NEW01")
	refID := "ref"
	referred.ReferredBy = &refID
	require.NoError(t, repo.Create(ctx, referred, &ReferralCredit{ReferrerID: "ref", Bonus: 10}))

	referrer, err := repo.GetByID(ctx, "ref")
	require.NoError(t, err)
	assert.Equal(t, 1, referrer.ReferralCount)
	assert.Equal(t, 310, referrer.CreditScore)
}

func TestMemoryCreateFailureLeavesReferrerUntouched(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepository()
	require.NoError(t, repo.Create(ctx, newAccount("ref", "ref@x.com", "0700000001", "REF01"), nil))

	dup := newAccount("new", "ref@x.com", "0700000002", "NEW01")
	err := repo.Create(ctx, dup, &ReferralCredit{ReferrerID: "ref", Bonus: 10})
	require.ErrorIs(t, err, ErrDuplicateAccount)

	referrer, err := repo.GetByID(ctx, "ref")
	require.NoError(t, err)
	assert.Equal(t, 0, referrer.ReferralCount)
	assert.Equal(t, 300, referrer.CreditScore)
}

func TestMemoryRejectsSelfReferral(t *testing.T) {
	repo := NewMemoryAccountRepository()
	acc := newAccount("a1", "jane@x.com", "0712345678", "CODE1")
	acc.ReferredBy = &acc.ID

	assert.ErrorIs(t, repo.Create(context.Background(), acc, nil), ErrSelfReferral)
}

func TestMemoryConcurrentReferralCredit(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepository()
	require.NoError(t, repo.Create(ctx, newAccount("ref", "ref@x.com", "0700000000", "REF00"), nil))

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i))
			acc := newAccount(id, id+"@x.com", "07000000"+string(rune('a'+i))+"0", "C"+id+"XX")
			_ = repo.Create(ctx, acc, &ReferralCredit{ReferrerID: "ref", Bonus: 10})
		}(i)
	}
	wg.Wait()

	referrer, err := repo.GetByID(ctx, "ref")
	require.NoError(t, err)
	assert.Equal(t, n, referrer.ReferralCount)
	assert.Equal(t, 300+10*n, referrer.CreditScore)
}

func TestMemoryUpdateLastLogin(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepository()
	require.NoError(t, repo.Create(ctx, newAccount("a1", "jane@x.com", "0712345678", "CODE1"), nil))

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateLastLogin(ctx, "a1", at))

	acc, err := repo.GetByID(ctx, "a1")
	require.NoError(t, err)
	require.NotNil(t, acc.LastLogin)
	assert.True(t, at.Equal(*acc.LastLogin))

	assert.ErrorIs(t, repo.UpdateLastLogin(ctx, "missing", at), ErrAccountNotFound)
}
