package pg

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Migrate applies pending goose migrations found under cfg.MigrationsPath.
// goose only speaks database/sql, so this wraps pool in a short-lived
// database/sql handle (stdlib.OpenDBFromPool) for the duration of the run.
func Migrate(ctx context.Context, pool *pgxpool.Pool, cfg Config, logger *slog.Logger) error {
	if cfg.MigrationsPath == "" {
		return ErrMigrationPathNotProvided
	}
	if _, err := os.Stat(cfg.MigrationsPath); err != nil {
		if os.IsNotExist(err) {
			return ErrMigrationsDirNotFound
		}
		return fmt.Errorf("%w: %w", ErrFailedToApplyMigrations, err)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	return migrateDB(ctx, db, cfg, logger)
}

func migrateDB(ctx context.Context, db *sql.DB, cfg Config, logger *slog.Logger) error {
	table := cfg.MigrationsTable
	if table == "" {
		table = "schema_migrations"
	}
	goose.SetTableName(table)
	goose.SetLogger(goose.NopLogger())

	provider, err := goose.NewProvider(goose.DialectPostgres, db, os.DirFS(cfg.MigrationsPath))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToApplyMigrations, err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToApplyMigrations, err)
	}

	for _, r := range results {
		if r.Error != nil {
			return fmt.Errorf("%w: migration %s: %w", ErrFailedToApplyMigrations, r.Source.Path, r.Error)
		}
		if logger != nil {
			logger.InfoContext(ctx, "migration applied", slog.String("path", r.Source.Path), slog.Duration("duration", r.Duration))
		}
	}

	return nil
}
