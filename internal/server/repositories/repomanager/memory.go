package repomanager

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/fieldsync/internal/server/repositories/calendars"
	"github.com/dmitrijs2005/fieldsync/internal/server/repositories/referentials"
)

// MemoryRepositoryManager keeps everything in process memory. WithTx
// serializes callers but does not roll back on error.
type MemoryRepositoryManager struct {
	mu           sync.Mutex
	calendars    *calendars.MemoryRepository
	referentials *referentials.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{
		calendars:    calendars.NewMemoryRepository(),
		referentials: referentials.NewMemoryRepository(),
	}
}

func (m *MemoryRepositoryManager) Calendars() calendars.Repository {
	return m.calendars
}

func (m *MemoryRepositoryManager) Referentials() referentials.Repository {
	return m.referentials
}

func (m *MemoryRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx, m)
}

func (m *MemoryRepositoryManager) Close() error { return nil }
