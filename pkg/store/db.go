// Package store is the postgres implementation of the expense, account and
// receipt ports, built on gorm.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"expensetracker/models"
	"expensetracker/pkg/logging"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to postgres. Driver errors are translated so unique
// violations surface as gorm.ErrDuplicatedKey.
func Open(dsn string, log *slog.Logger) (*gorm.DB, error) {
	if log == nil {
		log = slog.Default()
	}
	gl := logger.New(
		slog.NewLogLogger(log.With(logging.FieldComponent, logging.ComponentStorage).Handler(), slog.LevelWarn),
		logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gl, TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return db, nil
}

// Migrate creates or updates every table. Models are migrated one at a time
// so a failure on one is reported with its table name; users go first since
// the other tables reference them.
func Migrate(db *gorm.DB, log *slog.Logger) error {
	var errs []error
	for _, m := range []struct {
		table string
		model any
	}{
		{"users", &models.User{}},
		{"transactions", &models.Transaction{}},
		{"refresh_tokens", &models.RefreshToken{}},
		{"receipts", &models.Receipt{}},
	} {
		if err := db.AutoMigrate(m.model); err != nil {
			log.Warn("migration failed", "table", m.table, logging.FieldError, err)
			errs = append(errs, fmt.Errorf("migrate %s: %w", m.table, err))
		}
	}
	return errors.Join(errs...)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
