package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	accounts "github.com/goliatone/go-accounts"
	gorepo "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// identityColumns lists the columns FindByIdentity may match on
var identityColumns = map[string]struct{}{
	"id":       {},
	"username": {},
	"email":    {},
}

// persistColumns are written when updating an existing account. The reset
// token columns are owned by StoreResetToken and ClearResetTokenAndSetPassword.
var persistColumns = []string{
	"username",
	"email",
	"password_hash",
	"confirmed",
	"confirmation_code",
	"confirmed_at",
	"updated_at",
}

// AccountRepository implements accounts.Repository using Bun.
type AccountRepository struct {
	base gorepo.Repository[*accounts.Account]
	db   bun.IDB
}

var _ accounts.Repository = (*AccountRepository)(nil)

// NewAccountRepository creates a new repository.
func NewAccountRepository(db *bun.DB) *AccountRepository {
	base := gorepo.NewRepository[*accounts.Account](db, gorepo.ModelHandlers[*accounts.Account]{
		NewRecord: func() *accounts.Account { return &accounts.Account{} },
		GetID: func(a *accounts.Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *accounts.Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &AccountRepository{
		base: base,
		db:   db,
	}
}

// WithTx returns a copy of the repository that runs every query on tx
func (r *AccountRepository) WithTx(tx bun.IDB) *AccountRepository {
	return &AccountRepository{
		base: r.base,
		db:   tx,
	}
}

// Exists implements accounts.Repository.
func (r *AccountRepository) Exists(ctx context.Context, query accounts.IdentityQuery) (bool, error) {
	return r.ExistsTx(ctx, r.db, query)
}

func (r *AccountRepository) ExistsTx(ctx context.Context, tx bun.IDB, query accounts.IdentityQuery) (bool, error) {
	if query.IsEmpty() {
		return false, nil
	}

	q := tx.NewSelect().
		Model((*accounts.Account)(nil)).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			if query.Username != "" {
				q = q.WhereOr("?TableAlias.username = ?", query.Username)
			}
			if query.Email != "" {
				q = q.WhereOr("?TableAlias.email = ?", query.Email)
			}
			return q
		})

	if query.ExcludeID != uuid.Nil {
		q = q.Where("?TableAlias.id != ?", query.ExcludeID)
	}

	return q.Exists(ctx)
}

// FindByIdentity implements accounts.Repository. Any of the identity columns
// present in credentials may match.
func (r *AccountRepository) FindByIdentity(ctx context.Context, credentials map[string]string, columns ...string) (*accounts.Account, error) {
	return r.FindByIdentityTx(ctx, r.db, credentials, columns...)
}

func (r *AccountRepository) FindByIdentityTx(ctx context.Context, tx bun.IDB, credentials map[string]string, columns ...string) (*accounts.Account, error) {
	matches := identityMatches(credentials, columns)
	if len(matches) == 0 {
		return nil, accounts.NotFoundError(map[string]any{
			"columns": columns,
		})
	}

	record := &accounts.Account{}
	err := tx.NewSelect().
		Model(record).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			for _, m := range matches {
				q = q.WhereOr("?TableAlias.? = ?", bun.Ident(m.column), m.value)
			}
			return q
		}).
		OrderExpr("?TableAlias.created_at ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, lookupError(err, map[string]any{"columns": columns})
	}

	return record.MarkLoaded(), nil
}

// FindByConfirmationCode implements accounts.Repository.
func (r *AccountRepository) FindByConfirmationCode(ctx context.Context, code string) (*accounts.Account, error) {
	return r.findByColumn(ctx, r.db, "confirmation_code", code)
}

// FindByResetToken implements accounts.Repository.
func (r *AccountRepository) FindByResetToken(ctx context.Context, token string) (*accounts.Account, error) {
	return r.findByColumn(ctx, r.db, "reset_token", token)
}

func (r *AccountRepository) findByColumn(ctx context.Context, tx bun.IDB, column, value string) (*accounts.Account, error) {
	if value == "" {
		return nil, accounts.NotFoundError(map[string]any{"column": column})
	}

	record := &accounts.Account{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.? = ?", bun.Ident(column), value).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, lookupError(err, map[string]any{"column": column})
	}

	return record.MarkLoaded(), nil
}

// Persist implements accounts.Repository. New accounts get an ID and are
// inserted, existing ones are updated in place.
func (r *AccountRepository) Persist(ctx context.Context, account *accounts.Account) error {
	return r.PersistTx(ctx, r.db, account)
}

func (r *AccountRepository) PersistTx(ctx context.Context, tx bun.IDB, account *accounts.Account) error {
	if account.IsNew() {
		account.ID = uuid.New()
		if _, err := r.base.CreateTx(ctx, tx, account); err != nil {
			account.ID = uuid.Nil
			return writeError(err)
		}
		return nil
	}

	res, err := tx.NewUpdate().
		Model(account).
		Column(persistColumns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return writeError(err)
	}

	return expectAffected(res, account.ID)
}

// StoreResetToken implements accounts.Repository.
func (r *AccountRepository) StoreResetToken(ctx context.Context, account *accounts.Account, token string, issuedAt time.Time) error {
	res, err := r.db.NewUpdate().
		Model((*accounts.Account)(nil)).
		Set("reset_token = ?", token).
		Set("reset_token_issued_at = ?", issuedAt).
		Set("updated_at = ?", issuedAt).
		Where("id = ?", account.ID).
		Exec(ctx)
	if err != nil {
		return writeError(err)
	}

	return expectAffected(res, account.ID)
}

// ClearResetTokenAndSetPassword implements accounts.Repository. The token is
// cleared in the same statement that writes the hash. When the account still
// carries its reset token the update only matches while that token is stored,
// so a token can be consumed once.
func (r *AccountRepository) ClearResetTokenAndSetPassword(ctx context.Context, account *accounts.Account, passwordHash string) error {
	q := r.db.NewUpdate().
		Model((*accounts.Account)(nil)).
		Set("password_hash = ?", passwordHash).
		Set("reset_token = NULL").
		Set("reset_token_issued_at = NULL").
		Set("updated_at = ?", time.Now()).
		Where("id = ?", account.ID)

	if account.ResetToken != "" {
		q = q.Where("reset_token = ?", account.ResetToken)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return writeError(err)
	}

	return expectAffected(res, account.ID)
}

type identityMatch struct {
	column string
	value  string
}

func identityMatches(credentials map[string]string, columns []string) []identityMatch {
	if len(columns) == 0 {
		columns = accounts.DefaultIdentityColumns
	}

	matches := make([]identityMatch, 0, len(columns))
	for _, col := range columns {
		col = strings.ToLower(strings.TrimSpace(col))
		if _, ok := identityColumns[col]; !ok {
			continue
		}

		value := strings.TrimSpace(credentials[col])
		if value == "" {
			continue
		}

		if col == "id" {
			if _, err := uuid.Parse(value); err != nil {
				continue
			}
		}

		matches = append(matches, identityMatch{column: col, value: value})
	}
	return matches
}

func lookupError(err error, metadata map[string]any) error {
	if errors.Is(err, sql.ErrNoRows) || gorepo.IsRecordNotFound(err) {
		return accounts.NotFoundError(metadata)
	}
	return err
}

func expectAffected(res sql.Result, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return accounts.NotFoundError(map[string]any{
			"id": id.String(),
		})
	}
	return nil
}
