package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"cashcraft/api/internal/models"
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

const accountColumns = `
	id, first_name, last_name, email, phone, password_hash, credit_score, kyc_status,
	status, role, referral_code, referred_by, referral_count, last_login, created_at, updated_at
`

type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

func (r *AccountRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *AccountRepository) ExistsByEmailOrPhone(ctx context.Context, email string, phone string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM accounts WHERE lower(email) = lower($1) OR phone = $2)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, email, phone).Scan(&exists); err != nil {
		return false, fmt.Errorf("exists by email or phone: %w", err)
	}
	return exists, nil
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (models.Account, error) {
	return r.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE lower(email) = lower($1)`, email)
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (models.Account, error) {
	return r.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

func (r *AccountRepository) FindByReferralCode(ctx context.Context, code string) (models.Account, error) {
	return r.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE referral_code = $1`, code)
}

// Create inserts account and, when credit is set, bumps the referrer's
// counters in the same transaction. Unique index violations surface as
// ErrDuplicateAccount or ErrDuplicateReferralCode.
func (r *AccountRepository) Create(ctx context.Context, account models.Account, credit *ReferralCredit) error {
	const insert = `
		INSERT INTO accounts (
			id, first_name, last_name, email, phone, password_hash, credit_score, kyc_status,
			status, role, referral_code, referred_by, referral_count, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 0, NOW(), NOW()
		)
	`
	const applyCredit = `
		UPDATE accounts
		SET referral_count = referral_count + 1,
		    credit_score = credit_score + $2,
		    updated_at = NOW()
		WHERE id = $1
	`

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insert,
			account.ID,
			account.FirstName,
			account.LastName,
			account.Email,
			account.Phone,
			account.PasswordHash,
			account.CreditScore,
			account.KYCStatus,
			account.Status,
			account.Role,
			account.ReferralCode,
			account.ReferredBy,
		); err != nil {
			return translateError(err)
		}

		if credit == nil {
			return nil
		}
		cmd, err := tx.Exec(ctx, applyCredit, credit.ReferrerID, credit.Bonus)
		if err != nil {
			return fmt.Errorf("apply referral credit: %w", err)
		}
		if cmd.RowsAffected() == 0 {
			return fmt.Errorf("apply referral credit: %w", ErrAccountNotFound)
		}
		return nil
	})
}

func (r *AccountRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE accounts SET last_login = $2, updated_at = NOW() WHERE id = $1`

	cmd, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) findOne(ctx context.Context, query string, arg string) (models.Account, error) {
	row := r.pool.QueryRow(ctx, query, arg)
	var account models.Account
	if err := row.Scan(
		&account.ID,
		&account.FirstName,
		&account.LastName,
		&account.Email,
		&account.Phone,
		&account.PasswordHash,
		&account.CreditScore,
		&account.KYCStatus,
		&account.Status,
		&account.Role,
		&account.ReferralCode,
		&account.ReferredBy,
		&account.ReferralCount,
		&account.LastLogin,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Account{}, ErrAccountNotFound
		}
		return models.Account{}, err
	}
	return account, nil
}

func translateError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		if strings.Contains(pgErr.ConstraintName, "referral_code") {
			return ErrDuplicateReferralCode
		}
		return ErrDuplicateAccount
	case pgCheckViolation:
		if pgErr.ConstraintName == "accounts_no_self_referral" {
			return ErrSelfReferral
		}
	}
	return err
}
