package main

import (
	"context"

	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/activitymap"
	"github.com/goliatone/go-accounts/config"
	"github.com/goliatone/go-accounts/mailer"
	"github.com/goliatone/go-accounts/migrations"
	"github.com/goliatone/go-accounts/repository"
	goerrors "github.com/goliatone/go-errors"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
)

// application wires configuration, storage and the account manager
type application struct {
	cfg      config.Config
	logger   *logrus.Logger
	db       *bun.DB
	store    repository.Store
	notifier *mailer.Client
	manager  *accounts.Manager
}

func newApplication(ctx context.Context, opts globalOptions, migrate bool) (*application, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg.Log.Level, cfg.Log.Format, opts.Verbose)
	migrations.SetLogger(logger)

	db, err := repository.Open(cfg.Database.Driver, cfg.Database.DSN,
		repository.WithQueryDebug(cfg.Database.Debug || opts.Verbose),
	)
	if err != nil {
		return nil, err
	}

	if migrate && cfg.Database.Migrate {
		if err := migrations.Up(ctx, db.DB, cfg.Database.Driver); err != nil {
			db.Close()
			return nil, err
		}
	}

	notifier, err := mailer.New(cfg.Mail, mailer.WithLogger(component(logger, "mailer")))
	if err != nil {
		db.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to set up mailer")
	}

	store := repository.NewStore(db)
	store.MustValidate()

	app := &application{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		store:    store,
		notifier: notifier,
	}
	app.manager = app.newManager(store.Accounts())

	return app, nil
}

func (a *application) newManager(repo accounts.Repository) *accounts.Manager {
	return accounts.NewManager(repo,
		accounts.WithConfig(a.cfg.Accounts),
		accounts.WithNotifier(a.notifier),
		accounts.WithLogger(component(a.logger, "accounts")),
		accounts.WithActivitySink(activitymap.Sink(a.logActivity)),
	)
}

func (a *application) logActivity(_ context.Context, record activitymap.Record) error {
	a.logger.WithFields(logrus.Fields{
		"verb":        record.Verb,
		"actor_id":    record.ActorID,
		"object_type": record.ObjectType,
		"object_id":   record.ObjectID,
		"channel":     record.Channel,
		"metadata":    record.Metadata,
	}).Info("activity")
	return nil
}

func (a *application) Close() error {
	if a.manager != nil {
		a.manager.Wait()
	}
	return a.db.Close()
}
