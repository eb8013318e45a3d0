package accounts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Authenticatable is the capability an auth layer needs from a credential record
type Authenticatable interface {
	AuthIdentifier() string
	AuthPassword() string
}

// PasswordHasher hashes and verifies passwords
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// IdentityQuery describes an existence check over the unique identity fields.
// Username and Email are OR'ed, empty values are ignored. ExcludeID removes
// the record's own row from the check.
type IdentityQuery struct {
	Username  string
	Email     string
	ExcludeID uuid.UUID
}

// IsEmpty reports whether the query has nothing to match on
func (q IdentityQuery) IsEmpty() bool {
	return q.Username == "" && q.Email == ""
}

// Repository is the persistence contract the Manager requires.
//
// Lookups that match nothing must return an error for which IsNotFound
// reports true. Writes that collide with a storage-level unique constraint
// must return an error for which IsUniqueViolation reports true.
type Repository interface {
	Exists(ctx context.Context, query IdentityQuery) (bool, error)
	FindByIdentity(ctx context.Context, credentials map[string]string, identityColumns ...string) (*Account, error)
	FindByConfirmationCode(ctx context.Context, code string) (*Account, error)
	FindByResetToken(ctx context.Context, token string) (*Account, error)
	Persist(ctx context.Context, account *Account) error
	StoreResetToken(ctx context.Context, account *Account, token string, issuedAt time.Time) error
	ClearResetTokenAndSetPassword(ctx context.Context, account *Account, passwordHash string) error
}

// Notifier delivers templated notifications (emails) to account owners
type Notifier interface {
	Send(ctx context.Context, templateID string, payload Notification) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, templateID string, payload Notification) error

// Send implements Notifier.
func (f NotifierFunc) Send(ctx context.Context, templateID string, payload Notification) error {
	if f == nil {
		return nil
	}
	return f(ctx, templateID, payload)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] ACCOUNTS "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

// DefaultIdentityColumns are matched by FindByIdentity when none are given
var DefaultIdentityColumns = []string{"username", "email"}

// IdentityCredentials builds a credentials map matching identifier against
// every default identity column.
func IdentityCredentials(identifier string) map[string]string {
	creds := make(map[string]string, len(DefaultIdentityColumns))
	for _, col := range DefaultIdentityColumns {
		creds[col] = identifier
	}
	return creds
}
