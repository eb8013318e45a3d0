package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"

	accounts "github.com/goliatone/go-accounts"
	"github.com/uptrace/bun"
)

// Store exposes the account repository and transaction handling over a bun DB
type Store interface {
	Validate() error
	MustValidate()
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
	Accounts() *AccountRepository
	// InTx runs fn with an account repository bound to a transaction.
	InTx(ctx context.Context, fn func(ctx context.Context, repo accounts.Repository) error) error
}

type store struct {
	db       *bun.DB
	accounts *AccountRepository
}

// NewStore returns a Store backed by db
func NewStore(db *bun.DB) Store {
	return &store{
		db:       db,
		accounts: NewAccountRepository(db),
	}
}

func (s store) Validate() error {
	if s.db == nil {
		return errors.New("store database should be initialized")
	}

	if s.accounts == nil {
		return errors.New("repository accounts should be initialized")
	}

	return nil
}

func (s store) MustValidate() {
	if err := s.Validate(); err != nil {
		log.Panic(err)
	}
}

func (s store) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return s.db.RunInTx(ctx, opts, f)
	}
}

func (s store) InTx(ctx context.Context, fn func(ctx context.Context, repo accounts.Repository) error) error {
	return s.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, s.accounts.WithTx(tx))
	})
}

func (s store) Accounts() *AccountRepository {
	return s.accounts
}
