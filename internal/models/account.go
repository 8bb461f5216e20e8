package models

import "time"

type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "active"
	AccountStatusSuspended AccountStatus = "suspended"
	AccountStatusClosed    AccountStatus = "closed"
)

type KYCStatus string

const (
	KYCStatusUnverified KYCStatus = "unverified"
	KYCStatusPending    KYCStatus = "pending"
	KYCStatusVerified   KYCStatus = "verified"
	KYCStatusRejected   KYCStatus = "rejected"
)

// Account is a registered borrower. ReferredBy is a weak reference to the
// referring account's ID and never changes after creation.
type Account struct {
	ID            string
	FirstName     string
	LastName      string
	Email         string
	Phone         string
	PasswordHash  []byte
	CreditScore   int
	KYCStatus     KYCStatus
	Status        AccountStatus
	Role          UserRole
	ReferralCode  string
	ReferredBy    *string
	ReferralCount int
	LastLogin     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (a Account) Active() bool {
	return a.Status == AccountStatusActive
}
