package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/ashita-ai/kasane/internal/model"
)

// LibraryKey is the key the whole output list is stored under.
const LibraryKey = "kasane_library"

// SQLiteVault stores the library as one JSON array in a key-value table.
// Every append rewrites the array inside a transaction.
type SQLiteVault struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// OpenSQLite opens (creating if needed) the vault file at path.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLiteVault, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("storage: create vault dir: %w", err)
		}
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite: %w", err)
	}
	// One writer; appends are read-modify-write.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS kv (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: create kv table: %w", err)
	}
	logger.Info("storage: sqlite vault open", "path", path)
	return &SQLiteVault{db: db, path: path, logger: logger}, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func loadLibrary(ctx context.Context, q querier) ([]model.GeneratedOutput, error) {
	var raw string
	err := q.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, LibraryKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read library: %w", err)
	}
	var items []model.GeneratedOutput
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("storage: decode library: %w", err)
	}
	return items, nil
}

func (v *SQLiteVault) Append(ctx context.Context, out model.GeneratedOutput) error {
	if err := validate(out); err != nil {
		return err
	}
	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	items, err := loadLibrary(ctx, tx)
	if err != nil {
		return err
	}
	for _, it := range items {
		if it.ID == out.ID {
			return fmt.Errorf("%w: %s", ErrDuplicate, out.ID)
		}
	}
	items = append(items, out)

	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("storage: encode library: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		LibraryKey, string(raw), time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("storage: write library: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: commit: %w", err)
	}
	return nil
}

func (v *SQLiteVault) List(ctx context.Context) ([]model.GeneratedOutput, error) {
	items, err := loadLibrary(ctx, v.db)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.GeneratedOutput{}
	}
	return items, nil
}

func (v *SQLiteVault) Get(ctx context.Context, id string) (model.GeneratedOutput, error) {
	items, err := loadLibrary(ctx, v.db)
	if err != nil {
		return model.GeneratedOutput{}, err
	}
	for _, it := range items {
		if it.ID == id {
			return it, nil
		}
	}
	return model.GeneratedOutput{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (v *SQLiteVault) Count(ctx context.Context) (int, error) {
	items, err := loadLibrary(ctx, v.db)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

func (v *SQLiteVault) Backend() string { return "sqlite" }

func (v *SQLiteVault) Close() error {
	return v.db.Close()
}
