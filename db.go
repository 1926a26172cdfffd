package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"expensetracker/pkg/account"
	"expensetracker/pkg/config"
	"expensetracker/pkg/events"
	"expensetracker/pkg/expense"
	"expensetracker/pkg/logging"
	"expensetracker/pkg/ocr"
	"expensetracker/pkg/store"
	"expensetracker/pkg/store/memory"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// receiptScanner reads a receipt image for the scan endpoint.
type receiptScanner interface {
	Scan(ctx context.Context, path string) (*ocr.Result, error)
}

// app holds the services the handlers call into.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	accounts *account.Service
	expenses *expense.Service
	scanner  receiptScanner
	db       *gorm.DB
	closers  []func() error
}

// newApp wires the configured backend, the optional event publisher and the
// services.
func newApp(cfg *config.Config, log *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log, scanner: ocr.NewScanner(log)}

	var (
		txStore   expense.Store
		userStore account.Store
	)
	switch cfg.DataBackend {
	case config.BackendMemory:
		log.Warn("using in-memory storage; data is lost on restart")
		m := memory.New()
		txStore, userStore = m, m
	default:
		db, err := openDB(cfg, log)
		if err != nil {
			return nil, err
		}
		a.db = db
		if sqlDB, err := db.DB(); err == nil {
			a.closers = append(a.closers, sqlDB.Close)
		}
		txStore, userStore = store.NewTransactions(db), store.NewAccounts(db)
	}

	opts := []expense.Option{expense.WithLogger(log)}
	if cfg.AMQPURL != "" {
		pub, err := events.Dial(cfg.AMQPURL, cfg.AMQPExchange, log)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect amqp: %w", err)
		}
		a.closers = append(a.closers, pub.Close)
		opts = append(opts, expense.WithPublisher(pub))
	}

	a.expenses = expense.NewService(txStore, opts...)
	a.accounts = account.NewService(userStore, account.Config{
		Secret:     []byte(cfg.JWTSecret),
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
		BcryptCost: bcrypt.DefaultCost,
	}, log)
	return a, nil
}

// openDB connects to postgres and, unless DB_AUTO_MIGRATE is off, migrates
// the schema. Migration problems are logged so a restricted database role
// can still serve an already migrated schema.
func openDB(cfg *config.Config, log *slog.Logger) (*gorm.DB, error) {
	db, err := store.Open(cfg.DBDSN, log)
	if err != nil {
		return nil, err
	}
	if cfg.DBAutoMigrate {
		if err := store.Migrate(db, log); err != nil {
			log.Warn("migration incomplete", logging.FieldError, err)
		}
	}
	return db, nil
}

// Close releases the database pool and the AMQP connection.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// ping reports whether the backing store is reachable.
func (a *app) ping(ctx context.Context) error {
	if a.db == nil {
		return nil
	}
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
