package repository

import (
	"context"
	"sync"

	"github.com/neurovault/vault/internal/domain"
)

// MemoryStore keeps a private copy of committed state for STORAGE_DRIVER=memory.
// Load after Commit returns what a restart against a database would see.
type MemoryStore struct {
	mu    sync.Mutex
	state *domain.VaultState
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: domain.NewVaultState(0)}
}

func (s *MemoryStore) Load(ctx context.Context) (*domain.VaultState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone(), nil
}

func (s *MemoryStore) Commit(ctx context.Context, cs *domain.Changeset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Apply(cs, 0)
	return nil
}
