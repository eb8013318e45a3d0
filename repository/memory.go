package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	accounts "github.com/goliatone/go-accounts"
	"github.com/google/uuid"
)

// MemoryRepository is an in-process accounts.Repository. It enforces the same
// uniqueness constraints as the SQL schema and hands out copies, so callers
// never share state with the store.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[uuid.UUID]accounts.Account
}

var _ accounts.Repository = (*MemoryRepository)(nil)

// NewMemoryRepository returns an empty repository
func NewMemoryRepository(seed ...*accounts.Account) *MemoryRepository {
	r := &MemoryRepository{
		records: make(map[uuid.UUID]accounts.Account),
	}
	for _, a := range seed {
		if a == nil {
			continue
		}
		if a.IsNew() {
			a.ID = uuid.New()
		}
		r.records[a.ID] = snapshot(a)
	}
	return r
}

// Len returns the number of stored accounts
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Exists implements accounts.Repository.
func (r *MemoryRepository) Exists(_ context.Context, query accounts.IdentityQuery) (bool, error) {
	if query.IsEmpty() {
		return false, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, rec := range r.records {
		if id == query.ExcludeID {
			continue
		}
		if query.Username != "" && rec.Username == query.Username {
			return true, nil
		}
		if query.Email != "" && rec.Email == query.Email {
			return true, nil
		}
	}
	return false, nil
}

// FindByIdentity implements accounts.Repository.
func (r *MemoryRepository) FindByIdentity(_ context.Context, credentials map[string]string, columns ...string) (*accounts.Account, error) {
	matches := identityMatches(credentials, columns)
	if len(matches) == 0 {
		return nil, accounts.NotFoundError(map[string]any{"columns": columns})
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var found []accounts.Account
	for _, rec := range r.records {
		for _, m := range matches {
			if fieldValue(rec, m.column) == m.value {
				found = append(found, rec)
				break
			}
		}
	}

	if len(found) == 0 {
		return nil, accounts.NotFoundError(map[string]any{"columns": columns})
	}

	sort.Slice(found, func(i, j int) bool {
		return createdAt(found[i]).Before(createdAt(found[j]))
	})

	return restore(found[0]), nil
}

// FindByConfirmationCode implements accounts.Repository.
func (r *MemoryRepository) FindByConfirmationCode(_ context.Context, code string) (*accounts.Account, error) {
	return r.findBy("confirmation_code", code, func(a accounts.Account) string {
		return a.ConfirmationCode
	})
}

// FindByResetToken implements accounts.Repository.
func (r *MemoryRepository) FindByResetToken(_ context.Context, token string) (*accounts.Account, error) {
	return r.findBy("reset_token", token, func(a accounts.Account) string {
		return a.ResetToken
	})
}

func (r *MemoryRepository) findBy(column, value string, get func(accounts.Account) string) (*accounts.Account, error) {
	if value == "" {
		return nil, accounts.NotFoundError(map[string]any{"column": column})
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.records {
		if get(rec) == value {
			return restore(rec), nil
		}
	}
	return nil, accounts.NotFoundError(map[string]any{"column": column})
}

// Persist implements accounts.Repository.
func (r *MemoryRepository) Persist(_ context.Context, account *accounts.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := account.ID
	var stored accounts.Account
	if account.IsNew() {
		id = uuid.New()
	} else {
		rec, ok := r.records[id]
		if !ok {
			return accounts.NotFoundError(map[string]any{"id": id.String()})
		}
		stored = rec
	}

	if err := r.checkUnique(id, account); err != nil {
		return err
	}

	account.ID = id
	rec := snapshot(account)
	// only StoreResetToken and ClearResetTokenAndSetPassword move the token
	rec.ResetToken = stored.ResetToken
	rec.ResetTokenIssuedAt = copyTime(stored.ResetTokenIssuedAt)
	r.records[id] = rec
	return nil
}

// StoreResetToken implements accounts.Repository.
func (r *MemoryRepository) StoreResetToken(_ context.Context, account *accounts.Account, token string, issuedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[account.ID]
	if !ok {
		return accounts.NotFoundError(map[string]any{"id": account.ID.String()})
	}

	rec.ResetToken = token
	rec.ResetTokenIssuedAt = &issuedAt
	rec.UpdatedAt = &issuedAt
	r.records[account.ID] = rec
	return nil
}

// ClearResetTokenAndSetPassword implements accounts.Repository.
func (r *MemoryRepository) ClearResetTokenAndSetPassword(_ context.Context, account *accounts.Account, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[account.ID]
	if !ok || (account.ResetToken != "" && rec.ResetToken != account.ResetToken) {
		return accounts.NotFoundError(map[string]any{"id": account.ID.String()})
	}

	now := time.Now()
	rec.PasswordHash = passwordHash
	rec.ResetToken = ""
	rec.ResetTokenIssuedAt = nil
	rec.UpdatedAt = &now
	r.records[account.ID] = rec
	return nil
}

func (r *MemoryRepository) checkUnique(id uuid.UUID, account *accounts.Account) error {
	for otherID, rec := range r.records {
		if otherID == id {
			continue
		}
		if rec.Username == account.Username {
			return accounts.UniqueViolationError(errors.New("UNIQUE constraint failed: accounts.username"))
		}
		if rec.Email == account.Email {
			return accounts.UniqueViolationError(errors.New("UNIQUE constraint failed: accounts.email"))
		}
	}
	return nil
}

func fieldValue(a accounts.Account, column string) string {
	switch strings.ToLower(column) {
	case "id":
		return a.ID.String()
	case "username":
		return a.Username
	case "email":
		return a.Email
	}
	return ""
}

func createdAt(a accounts.Account) time.Time {
	if a.CreatedAt == nil {
		return time.Time{}
	}
	return *a.CreatedAt
}

// snapshot copies the persisted columns of a, dropping transient input
func snapshot(a *accounts.Account) accounts.Account {
	return accounts.Account{
		ID:                 a.ID,
		Username:           a.Username,
		Email:              a.Email,
		PasswordHash:       a.PasswordHash,
		Confirmed:          a.Confirmed,
		ConfirmationCode:   a.ConfirmationCode,
		ConfirmedAt:        copyTime(a.ConfirmedAt),
		ResetToken:         a.ResetToken,
		ResetTokenIssuedAt: copyTime(a.ResetTokenIssuedAt),
		CreatedAt:          copyTime(a.CreatedAt),
		UpdatedAt:          copyTime(a.UpdatedAt),
	}
}

func restore(rec accounts.Account) *accounts.Account {
	a := snapshot(&rec)
	return a.MarkLoaded()
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
