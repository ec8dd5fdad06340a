package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ashita-ai/kasane/migrations"
)

// Options selects the vault backend. DatabaseURL wins over SQLitePath;
// with neither set the vault lives in memory.
type Options struct {
	DatabaseURL string
	SQLitePath  string
}

// Open returns the configured Vault. For Postgres it applies the embedded
// migrations before returning.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (Vault, error) {
	switch {
	case opts.DatabaseURL != "":
		db, err := New(ctx, opts.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		if err := db.RunMigrations(ctx, migrations.FS); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("storage: migrate: %w", err)
		}
		logger.Info("storage: postgres vault open")
		return NewPostgresVault(db), nil
	case opts.SQLitePath != "":
		return OpenSQLite(ctx, opts.SQLitePath, logger)
	default:
		logger.Warn("storage: no vault path configured, outputs will not survive restart")
		return NewMemoryVault(), nil
	}
}
