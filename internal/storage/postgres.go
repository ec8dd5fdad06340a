package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ashita-ai/kasane/internal/model"
)

const (
	appendRetries   = 3
	appendBaseDelay = 20 * time.Millisecond
)

// PostgresVault stores one row per output in generated_outputs.
// Rows are ordered by a serial column so List preserves append order.
type PostgresVault struct {
	*DB
}

// NewPostgresVault wraps db as a Vault. Migrations must already be applied.
func NewPostgresVault(db *DB) *PostgresVault {
	return &PostgresVault{DB: db}
}

func (v *PostgresVault) Append(ctx context.Context, out model.GeneratedOutput) error {
	if err := validate(out); err != nil {
		return err
	}
	plan, err := marshalNullable(out.SlidePlan, len(out.SlidePlan) > 0)
	if err != nil {
		return fmt.Errorf("storage: encode slide plan: %w", err)
	}
	analysis, err := marshalNullable(out.Analysis, out.Analysis != nil)
	if err != nil {
		return fmt.Errorf("storage: encode analysis: %w", err)
	}

	err = WithRetry(ctx, appendRetries, appendBaseDelay, func() error {
		_, err := v.pool.Exec(ctx, `
			INSERT INTO generated_outputs
				(id, output_type, title, content, audio_url, image_url, slide_plan, prompt, analysis, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			out.ID, string(out.Type), out.Title, out.Content,
			out.AudioURL, out.ImageURL, plan, out.Prompt, analysis, out.Timestamp,
		)
		return err
	})
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrDuplicate, out.ID)
	}
	if err != nil {
		return fmt.Errorf("storage: insert output %s: %w", out.ID, err)
	}
	return nil
}

const selectOutputs = `
	SELECT id, output_type, title, content, audio_url, image_url, slide_plan, prompt, analysis, created_at
	FROM generated_outputs`

func (v *PostgresVault) List(ctx context.Context) ([]model.GeneratedOutput, error) {
	rows, err := v.pool.Query(ctx, selectOutputs+` ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("storage: list outputs: %w", err)
	}
	defer rows.Close()

	items := []model.GeneratedOutput{}
	for rows.Next() {
		out, err := scanOutput(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, out)
	}
	return items, rows.Err()
}

func (v *PostgresVault) Get(ctx context.Context, id string) (model.GeneratedOutput, error) {
	out, err := scanOutput(v.pool.QueryRow(ctx, selectOutputs+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.GeneratedOutput{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return out, err
}

func (v *PostgresVault) Count(ctx context.Context) (int, error) {
	var n int
	if err := v.pool.QueryRow(ctx, `SELECT count(*) FROM generated_outputs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("storage: count outputs: %w", err)
	}
	return n, nil
}

func (v *PostgresVault) Backend() string { return "postgres" }

func scanOutput(row pgx.Row) (model.GeneratedOutput, error) {
	var (
		out            model.GeneratedOutput
		typ            string
		plan, analysis []byte
	)
	err := row.Scan(&out.ID, &typ, &out.Title, &out.Content, &out.AudioURL, &out.ImageURL,
		&plan, &out.Prompt, &analysis, &out.Timestamp)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return out, err
		}
		return out, fmt.Errorf("storage: scan output: %w", err)
	}
	out.Type = model.OutputType(typ)
	out.Timestamp = out.Timestamp.UTC()
	if len(plan) > 0 {
		if err := json.Unmarshal(plan, &out.SlidePlan); err != nil {
			return out, fmt.Errorf("storage: decode slide plan for %s: %w", out.ID, err)
		}
	}
	if len(analysis) > 0 {
		if err := json.Unmarshal(analysis, &out.Analysis); err != nil {
			return out, fmt.Errorf("storage: decode analysis for %s: %w", out.ID, err)
		}
	}
	return out, nil
}

// marshalNullable returns nil (SQL NULL) when present is false.
func marshalNullable(v any, present bool) ([]byte, error) {
	if !present {
		return nil, nil
	}
	return json.Marshal(v)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
