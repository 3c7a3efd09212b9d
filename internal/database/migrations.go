package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

func newMigrator(db *sql.DB) (*goose.Provider, error) {
	scripts, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return nil, err
	}
	return goose.NewProvider(goose.DialectPostgres, db, scripts)
}

// RunMigrations applies every pending migration in version order.
func RunMigrations(ctx context.Context, db *sql.DB, logger *zap.Logger) error {
	migrator, err := newMigrator(db)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	results, err := migrator.Up(ctx)
	for _, res := range results {
		logger.Info("Applied migration",
			zap.Int64("version", res.Source.Version),
			zap.String("file", res.Source.Path),
			zap.Duration("took", res.Duration),
		)
	}
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, err := migrator.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	logger.Info("Schema up to date", zap.Int64("version", version), zap.Int("applied", len(results)))
	return nil
}

// MigrationStatus lists every known migration with its applied state.
func MigrationStatus(ctx context.Context, db *sql.DB) ([]*goose.MigrationStatus, error) {
	migrator, err := newMigrator(db)
	if err != nil {
		return nil, fmt.Errorf("load migrations: %w", err)
	}
	return migrator.Status(ctx)
}
