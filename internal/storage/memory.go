package storage

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/ashita-ai/kasane/internal/model"
)

// MemoryVault keeps outputs in process memory.
type MemoryVault struct {
	mu    sync.RWMutex
	items []model.GeneratedOutput
	byID  map[string]int
}

// NewMemoryVault returns an empty in-memory vault.
func NewMemoryVault() *MemoryVault {
	return &MemoryVault{byID: make(map[string]int)}
}

func (m *MemoryVault) Append(_ context.Context, out model.GeneratedOutput) error {
	if err := validate(out); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[out.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, out.ID)
	}
	m.byID[out.ID] = len(m.items)
	m.items = append(m.items, out)
	return nil
}

func (m *MemoryVault) List(context.Context) ([]model.GeneratedOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.items), nil
}

func (m *MemoryVault) Get(_ context.Context, id string) (model.GeneratedOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.byID[id]
	if !ok {
		return model.GeneratedOutput{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return m.items[i], nil
}

func (m *MemoryVault) Count(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items), nil
}

func (m *MemoryVault) Backend() string { return "memory" }

func (m *MemoryVault) Close() error { return nil }
