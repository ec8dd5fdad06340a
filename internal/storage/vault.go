// Package storage persists generated outputs. The vault is an append-only
// list keyed by output id: outputs are never updated or deleted.
//
// Two durable backends exist. SQLiteVault is the default single-file store
// and mirrors the whole library as one JSON document under a fixed key.
// PostgresVault stores one row per output. MemoryVault backs tests and
// runs with persistence disabled.
package storage

import (
	"context"
	"fmt"

	"github.com/ashita-ai/kasane/internal/model"
)

// Vault is the artifact store.
type Vault interface {
	// Append adds out. ErrDuplicate if its id is already stored.
	Append(ctx context.Context, out model.GeneratedOutput) error
	// List returns every output in append order.
	List(ctx context.Context) ([]model.GeneratedOutput, error)
	// Get returns one output. ErrNotFound if absent.
	Get(ctx context.Context, id string) (model.GeneratedOutput, error)
	// Count returns the number of stored outputs.
	Count(ctx context.Context) (int, error)
	// Backend names the store for health reporting.
	Backend() string
	Close() error
}

func validate(out model.GeneratedOutput) error {
	if out.ID == "" {
		return fmt.Errorf("storage: output id is required")
	}
	if !out.Type.Valid() {
		return fmt.Errorf("storage: invalid output type %q", out.Type)
	}
	return nil
}
