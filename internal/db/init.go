package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/atinyakov/ukarch-cms/internal/db/migrations"
)

// DSN builds a modernc sqlite DSN for path with WAL, a busy timeout and
// foreign keys enabled.
func DSN(path string) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(1)")
	return "file:" + path + "?" + q.Encode()
}

// Open opens and pings the database at path without migrating it.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", DSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

// InitSQLite opens the database at path, applies pending migrations and
// restricts the pool to one connection so writes are serialized.
func InitSQLite(ctx context.Context, path string, log *zap.Logger) (*sql.DB, error) {
	db, err := Open(ctx, path)
	if err != nil {
		return nil, err
	}

	results, err := Migrate(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	for _, r := range results {
		log.Info("applied migration",
			zap.Int64("version", r.Source.Version),
			zap.String("source", r.Source.Path),
			zap.Duration("took", r.Duration),
		)
	}

	db.SetMaxOpenConns(1)
	return db, nil
}

// Migrate applies every pending migration in version order, then adds any
// recognized settings field still missing. It returns the versioned steps
// that ran and is a no-op on a current schema.
func Migrate(ctx context.Context, db *sql.DB) ([]*goose.MigrationResult, error) {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.SQL,
		goose.WithGoMigrations(migrations.Go()...),
		goose.WithDisableGlobalRegistry(true),
	)
	if err != nil {
		return nil, fmt.Errorf("create migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	if err := migrations.ReconcileSettings(ctx, db); err != nil {
		return nil, err
	}
	return results, nil
}
