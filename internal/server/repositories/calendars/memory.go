package calendars

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/models"
)

// MemoryRepository keeps calendars in process memory. It backs a server
// started without a database DSN and the service tests.
type MemoryRepository struct {
	mu     sync.RWMutex
	rows   map[int64]*models.Calendar
	lastID int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{rows: make(map[int64]*models.Calendar)}
}

func (r *MemoryRepository) Get(_ context.Context, id int64) (*models.Calendar, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.rows[id]
	if !ok {
		return nil, fmt.Errorf("calendar %d: %w", id, common.ErrorNotFound)
	}
	return c.Clone()
}

func (r *MemoryRepository) List(_ context.Context, f models.CalendarFilter, offset, size int) ([]*models.Calendar, error) {
	r.mu.RLock()
	ids := make([]int64, 0, len(r.rows))
	for id, c := range r.rows {
		if f.Match(c) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	out := make([]*models.Calendar, 0, len(ids))
	for _, id := range ids {
		c, err := r.rows[id].Clone()
		if err != nil {
			r.mu.RUnlock()
			return nil, err
		}
		out = append(out, c)
	}
	r.mu.RUnlock()
	return page(out, offset, size), nil
}

func (r *MemoryRepository) Insert(_ context.Context, c *models.Calendar) error {
	cp, err := c.Clone()
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[c.ID]; ok {
		return fmt.Errorf("calendar %d already exists", c.ID)
	}
	r.rows[c.ID] = cp
	return nil
}

func (r *MemoryRepository) Update(_ context.Context, c *models.Calendar, expected models.Timestamp) error {
	cp, err := c.Clone()
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.rows[c.ID]
	if !ok || cur.UpdateDate != expected {
		return fmt.Errorf("calendar %d: %w", c.ID, common.ErrVersionConflict)
	}
	r.rows[c.ID] = cp
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, ids []int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := r.rows[id]; ok {
			delete(r.rows, id)
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) NextIDs(_ context.Context, n int) ([]int64, error) {
	if n <= 0 {
		return nil, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int64, n)
	for i := range ids {
		r.lastID++
		ids[i] = r.lastID
	}
	return ids, nil
}
