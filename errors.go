package accounts

import (
	"database/sql"
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeDuplicated          = "DUPLICATED_CREDENTIALS"
	TextCodeInvalid             = "INVALID_ACCOUNT"
	TextCodePasswordMismatch    = "PASSWORD_MISMATCH"
	TextCodePersistence         = "PERSISTENCE_FAILURE"
	TextCodeNotificationFailure = "NOTIFICATION_FAILURE"
	TextCodeNotFound            = "ACCOUNT_NOT_FOUND"
	TextCodeUniqueViolation     = "UNIQUE_VIOLATION"
	TextCodeTokenInvalid        = "TOKEN_INVALID"
	TextCodeTokenExpired        = "TOKEN_EXPIRED"
	TextCodeEmptyPassword       = "EMPTY_PASSWORD"
	TextCodeInvalidCreds        = "INVALID_CREDENTIALS"
)

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = goerrors.New("password can't be an empty string", goerrors.CategoryBadInput).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrMismatchedHashAndPassword is returned when a password does not match its hash
var ErrMismatchedHashAndPassword = goerrors.New("mismatched hash and password", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds)

// DuplicatedError reports a username or email already in use.
func DuplicatedError(metadata map[string]any) error {
	err := goerrors.New("duplicated credentials: username or email already in use", goerrors.CategoryConflict).
		WithTextCode(TextCodeDuplicated).
		WithCode(goerrors.CodeConflict)
	if len(metadata) > 0 {
		err = err.WithMetadata(metadata)
	}
	return err
}

// InvalidError carries the rule violations found by the Validator.
func InvalidError(violations Violations) error {
	return goerrors.New("account validation failed", goerrors.CategoryValidation).
		WithTextCode(TextCodeInvalid).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{
			"violations": violations,
		})
}

// PasswordMismatchError reports that a password and its confirmation differ.
func PasswordMismatchError() error {
	return goerrors.New("password and confirmation do not match", goerrors.CategoryBadInput).
		WithTextCode(TextCodePasswordMismatch).
		WithCode(goerrors.CodeBadRequest)
}

// PersistenceError wraps a repository failure.
func PersistenceError(cause error, message string) error {
	if message == "" {
		message = "repository operation failed"
	}
	return withSource(goerrors.New(message, goerrors.CategoryInternal), cause).
		WithTextCode(TextCodePersistence)
}

// internalError reports a failure of a collaborator other than storage,
// such as the hasher or the token generator.
func internalError(cause error, message string) error {
	return withSource(goerrors.New(message, goerrors.CategoryInternal), cause)
}

// withSource records cause as the Source of err. goerrors.Wrap clones rich
// causes and keeps their category, which would let a wrapped NotFound or
// BadInput leak through as the kind of the new error.
func withSource(err *goerrors.Error, cause error) *goerrors.Error {
	err.Source = cause
	return err
}

// NotFoundError is returned by repositories when a lookup matches nothing.
func NotFoundError(metadata map[string]any) error {
	err := goerrors.New("account not found", goerrors.CategoryNotFound).
		WithTextCode(TextCodeNotFound).
		WithCode(goerrors.CodeNotFound)
	if len(metadata) > 0 {
		err = err.WithMetadata(metadata)
	}
	return err
}

// UniqueViolationError is returned by repositories when a write hits a
// storage-level unique constraint.
func UniqueViolationError(cause error) error {
	return withSource(goerrors.New("unique constraint violation", goerrors.CategoryConflict), cause).
		WithTextCode(TextCodeUniqueViolation).
		WithCode(goerrors.CodeConflict)
}

func tokenInvalidError(kind string) error {
	return goerrors.New("invalid or already used "+kind, goerrors.CategoryNotFound).
		WithTextCode(TextCodeTokenInvalid).
		WithCode(goerrors.CodeNotFound).
		WithMetadata(map[string]any{"token_kind": kind})
}

func tokenExpiredError(kind string) error {
	return goerrors.New(kind+" has expired", goerrors.CategoryValidation).
		WithTextCode(TextCodeTokenExpired).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{"token_kind": kind})
}

// IsDuplicated reports a Duplicated error
func IsDuplicated(err error) bool {
	return hasTextCode(err, TextCodeDuplicated)
}

// IsInvalid reports an Invalid error
func IsInvalid(err error) bool {
	return hasTextCode(err, TextCodeInvalid)
}

// IsPasswordMismatch reports a PasswordMismatch error
func IsPasswordMismatch(err error) bool {
	return hasTextCode(err, TextCodePasswordMismatch)
}

// IsPersistence reports a Persistence error
func IsPersistence(err error) bool {
	return hasTextCode(err, TextCodePersistence)
}

// IsTokenInvalid reports an unknown or consumed token
func IsTokenInvalid(err error) bool {
	return hasTextCode(err, TextCodeTokenInvalid)
}

// IsTokenExpired reports an expired token
func IsTokenExpired(err error) bool {
	return hasTextCode(err, TextCodeTokenExpired)
}

// IsNotFound reports a lookup that matched nothing
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if richErr := outermost(err); richErr != nil {
		return richErr.TextCode == TextCodeNotFound || richErr.Category == goerrors.CategoryNotFound
	}
	return errors.Is(err, sql.ErrNoRows)
}

// IsUniqueViolation reports a storage-level uniqueness failure. Repositories
// should return UniqueViolationError, the message check covers drivers that
// reach the Manager unwrapped.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if richErr := outermost(err); richErr != nil {
		return richErr.TextCode == TextCodeUniqueViolation
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}

// ViolationsFromError returns the violations attached to an Invalid error
func ViolationsFromError(err error) Violations {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.TextCode != TextCodeInvalid {
		return nil
	}
	violations, _ := richErr.Metadata["violations"].(Violations)
	return violations
}

// hasTextCode classifies err by the first rich error in its chain, so a
// Persistence error never reports the kind of the cause it wraps.
func hasTextCode(err error, code string) bool {
	richErr := outermost(err)
	return richErr != nil && richErr.TextCode == code
}

func outermost(err error) *goerrors.Error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return nil
	}
	return richErr
}
