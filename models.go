package accounts

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Account is the persisted credential record
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`

	ID                 uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username           string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email              string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash       string     `bun:"password_hash,notnull" json:"-"`
	Confirmed          bool       `bun:"confirmed,notnull" json:"confirmed"`
	ConfirmationCode   string     `bun:"confirmation_code,nullzero" json:"-"`
	ConfirmedAt        *time.Time `bun:"confirmed_at,nullzero" json:"confirmed_at,omitempty"`
	ResetToken         string     `bun:"reset_token,nullzero" json:"-"`
	ResetTokenIssuedAt *time.Time `bun:"reset_token_issued_at,nullzero" json:"-"`
	CreatedAt          *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt          *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`

	// Password is the plaintext input. It is replaced by PasswordHash on save
	// and never stored.
	Password string `bun:"-" json:"-"`
	// PasswordConfirmation is only used by validation and is cleared on save.
	PasswordConfirmation string `bun:"-" json:"-"`

	loadedPasswordHash string
	loaded             bool
}

var _ Authenticatable = (*Account)(nil)

// IsNew reports whether the account was never persisted
func (a *Account) IsNew() bool {
	return a == nil || a.ID == uuid.Nil
}

// AuthIdentifier returns the unique identifier for the account
func (a *Account) AuthIdentifier() string {
	if a.IsNew() {
		return ""
	}
	return a.ID.String()
}

// AuthPassword returns the stored password hash
func (a *Account) AuthPassword() string {
	if a == nil {
		return ""
	}
	return a.PasswordHash
}

// MarkLoaded snapshots the stored password hash. Repositories call it after
// reading a record so that PasswordChanged can tell edits of unrelated fields
// from password changes.
func (a *Account) MarkLoaded() *Account {
	if a == nil {
		return nil
	}
	a.loadedPasswordHash = a.PasswordHash
	a.loaded = true
	return a
}

// PasswordChanged reports whether the password differs from the last loaded value
func (a *Account) PasswordChanged() bool {
	if a == nil {
		return false
	}
	if a.Password != "" {
		return true
	}
	if !a.loaded {
		return a.IsNew()
	}
	return a.PasswordHash != a.loadedPasswordHash
}

// ConfirmationState returns the account position in the confirmation machine
func (a *Account) ConfirmationState() ConfirmationState {
	if a != nil && a.Confirmed {
		return StateConfirmed
	}
	return StateUnconfirmed
}

// ResetTokenState returns the account position in the reset token machine
func (a *Account) ResetTokenState() ResetTokenState {
	if a != nil && a.ResetToken != "" {
		return StateTokenIssued
	}
	return StateNoToken
}

// ResetTokenExpired reports whether the outstanding reset token is older than ttl.
// A zero ttl means tokens never expire.
func (a *Account) ResetTokenExpired(ttl time.Duration, now time.Time) bool {
	if ttl <= 0 {
		return false
	}
	if a == nil || a.ResetTokenIssuedAt == nil {
		return true
	}
	return !IsWithinPeriod(*a.ResetTokenIssuedAt, ttl, now)
}

// ConfirmationCodeExpired reports whether the confirmation code is older than ttl.
// The code is issued at creation time. A zero ttl means codes never expire.
func (a *Account) ConfirmationCodeExpired(ttl time.Duration, now time.Time) bool {
	if ttl <= 0 || a == nil || a.CreatedAt == nil {
		return false
	}
	return !IsWithinPeriod(*a.CreatedAt, ttl, now)
}

func (a *Account) clearTransient() {
	a.Password = ""
	a.PasswordConfirmation = ""
}
