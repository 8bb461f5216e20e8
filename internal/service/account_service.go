package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"cashcraft/api/internal/config"
	"cashcraft/api/internal/ids"
	"cashcraft/api/internal/metrics"
	"cashcraft/api/internal/models"
	"cashcraft/api/internal/repository"
	"cashcraft/api/internal/security"
)

var (
	ErrAccountExists      = errors.New("account with this email or phone already exists")
	ErrReferralCodeTaken  = errors.New("could not allocate a unique referral code")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account suspended or closed")
)

const referralCodeAttempts = 5

// AccountStore is the credential store. Implementations must enforce unique
// email, phone and referral code themselves.
type AccountStore interface {
	ExistsByEmailOrPhone(ctx context.Context, email string, phone string) (bool, error)
	FindByEmail(ctx context.Context, email string) (models.Account, error)
	GetByID(ctx context.Context, id string) (models.Account, error)
	FindByReferralCode(ctx context.Context, code string) (models.Account, error)
	Create(ctx context.Context, account models.Account, credit *repository.ReferralCredit) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}

type AccountService struct {
	accounts AccountStore
	hasher   *security.PasswordHasher
	sessions *security.SessionIssuer
	referral referralLedger
	cfg      config.AccountsConfig
	log      zerolog.Logger
	now      func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

func NewAccountService(
	accounts AccountStore,
	hasher *security.PasswordHasher,
	sessions *security.SessionIssuer,
	cfg config.AccountsConfig,
	log zerolog.Logger,
) *AccountService {
	return &AccountService{
		accounts: accounts,
		hasher:   hasher,
		sessions: sessions,
		referral: referralLedger{accounts: accounts, bonus: cfg.ReferralBonus},
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

type RegisterInput struct {
	FirstName    string
	LastName     string
	Email        string
	Phone        string
	Password     string
	ReferralCode string
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResult struct {
	Token   string
	Account models.Account
}

// Profile is an account together with the account that referred it, if any.
type Profile struct {
	Account  models.Account
	Referrer *models.Account
}

// Register creates an account from an already validated payload. A matched
// referral code credits the referrer in the same commit as the new account.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	email := canonicalEmail(input.Email)
	phone := strings.TrimSpace(input.Phone)

	exists, err := s.accounts.ExistsByEmailOrPhone(ctx, email, phone)
	if err != nil {
		return AuthResult{}, fmt.Errorf("check existing account: %w", err)
	}
	if exists {
		metrics.RecordAuth("register", "conflict")
		return AuthResult{}, ErrAccountExists
	}

	credit, err := s.referral.resolve(ctx, input.ReferralCode)
	if err != nil {
		return AuthResult{}, fmt.Errorf("resolve referral code: %w", err)
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}

	account := models.Account{
		ID:           ids.New(),
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Email:        email,
		Phone:        phone,
		PasswordHash: passwordHash,
		CreditScore:  s.cfg.BaselineCreditScore,
		KYCStatus:    models.KYCStatusUnverified,
		Status:       models.AccountStatusActive,
		Role:         models.UserRoleUser,
	}
	if credit != nil {
		referrerID := credit.ReferrerID
		account.ReferredBy = &referrerID
	}

	if err := s.create(ctx, &account, credit); err != nil {
		return AuthResult{}, err
	}

	if credit != nil {
		metrics.RecordReferral()
		s.log.Info().
			Str("account_id", account.ID).
			Str("referrer_id", credit.ReferrerID).
			Int("bonus", credit.Bonus).
			Msg("referral credited")
	}

	token, err := s.sessions.Issue(account.ID)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue token: %w", err)
	}

	metrics.RecordAuth("register", "success")
	s.log.Info().Str("account_id", account.ID).Msg("account registered")

	stored, err := s.accounts.GetByID(ctx, account.ID)
	if err != nil {
		s.log.Warn().Err(err).Str("account_id", account.ID).Msg("reload registered account failed")
		stored = account
	}
	return AuthResult{Token: token, Account: stored}, nil
}

// create persists account, drawing a fresh referral code whenever the store
// reports a collision.
func (s *AccountService) create(ctx context.Context, account *models.Account, credit *repository.ReferralCredit) error {
	for attempt := 0; attempt < referralCodeAttempts; attempt++ {
		code, err := ids.ReferralCode(s.cfg.ReferralCodeLength)
		if err != nil {
			return err
		}
		account.ReferralCode = code

		err = s.accounts.Create(ctx, *account, credit)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, repository.ErrDuplicateReferralCode):
			s.log.Debug().Int("attempt", attempt+1).Msg("referral code collision")
			continue
		case errors.Is(err, repository.ErrDuplicateAccount):
			// Lost a race with a concurrent registration.
			metrics.RecordAuth("register", "conflict")
			return ErrAccountExists
		default:
			return fmt.Errorf("create account: %w", err)
		}
	}
	return ErrReferralCodeTaken
}

// Login verifies credentials. Unknown email and wrong password both yield
// ErrInvalidCredentials; account status is only disclosed once the password
// has been proven.
func (s *AccountService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	email := canonicalEmail(input.Email)

	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			// Burn the same hashing cost as a real comparison.
			_, _ = s.hasher.Compare(input.Password, s.placeholderHash())
			metrics.RecordAuth("login", "invalid_credentials")
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, fmt.Errorf("find account: %w", err)
	}

	ok, err := s.hasher.Compare(input.Password, account.PasswordHash)
	if err != nil {
		s.log.Error().Err(err).Str("account_id", account.ID).Msg("stored password hash unreadable")
	}
	if err != nil || !ok {
		metrics.RecordAuth("login", "invalid_credentials")
		return AuthResult{}, ErrInvalidCredentials
	}

	if !account.Active() {
		metrics.RecordAuth("login", "inactive")
		return AuthResult{}, ErrAccountInactive
	}

	now := s.now().UTC()
	if err := s.accounts.UpdateLastLogin(ctx, account.ID, now); err != nil {
		return AuthResult{}, fmt.Errorf("update last login: %w", err)
	}
	account.LastLogin = &now

	token, err := s.sessions.Issue(account.ID)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue token: %w", err)
	}

	metrics.RecordAuth("login", "success")
	return AuthResult{Token: token, Account: account}, nil
}

// Me loads the authenticated account and resolves its referrer. An id that
// could never have been issued is reported as not found without a lookup.
func (s *AccountService) Me(ctx context.Context, accountID string) (Profile, error) {
	if !ids.Valid(accountID) {
		return Profile{}, repository.ErrAccountNotFound
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return Profile{}, err
	}

	profile := Profile{Account: account}
	if account.ReferredBy == nil {
		return profile, nil
	}

	referrer, err := s.accounts.GetByID(ctx, *account.ReferredBy)
	switch {
	case err == nil:
		profile.Referrer = &referrer
	case errors.Is(err, repository.ErrAccountNotFound):
		s.log.Warn().Str("account_id", account.ID).Str("referrer_id", *account.ReferredBy).Msg("referrer missing")
	default:
		return Profile{}, fmt.Errorf("load referrer: %w", err)
	}
	return profile, nil
}

// RefreshToken re-issues a session token for an identity the caller has
// already authenticated. The password is not checked again.
func (s *AccountService) RefreshToken(_ context.Context, accountID string) (string, error) {
	token, err := s.sessions.Issue(accountID)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	metrics.RecordAuth("refresh", "success")
	return token, nil
}

func (s *AccountService) placeholderHash() []byte {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(ids.New())
		if err != nil {
			s.log.Error().Err(err).Msg("placeholder hash failed")
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func canonicalEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
