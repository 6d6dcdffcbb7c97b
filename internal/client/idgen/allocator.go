// Package idgen hands out negative placeholder ids for entities created
// offline.
package idgen

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/fieldsync/internal/models"
)

var ErrInvalidCount = errors.New("id count must be positive")

// SequenceStore persists the last id handed out per entity type.
// entities.SQLiteRepository implements it.
type SequenceStore interface {
	MinID(ctx context.Context, entityType models.EntityType) (int64, error)
	SetMinID(ctx context.Context, entityType models.EntityType, id int64) error
}

// Allocator issues strictly negative ids, decreasing and unique per entity
// type. Each type is seeded lazily from the store so ids stay unique across
// restarts. Safe for concurrent use.
type Allocator struct {
	store SequenceStore

	mu   sync.Mutex
	last map[models.EntityType]int64
}

func NewAllocator(store SequenceStore) *Allocator {
	return &Allocator{store: store, last: make(map[models.EntityType]int64)}
}

// Next returns count ids for entityType, e.g. [-6 -7 -8] after -5.
func (a *Allocator) Next(ctx context.Context, entityType models.EntityType, count int) ([]int64, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCount, count)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	last, err := a.seed(ctx, entityType)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, count)
	for i := range ids {
		last--
		ids[i] = last
	}

	if err := a.store.SetMinID(ctx, entityType, last); err != nil {
		return nil, fmt.Errorf("persist %s ids: %w", entityType, err)
	}
	a.last[entityType] = last

	return ids, nil
}

// NextID returns a single id.
func (a *Allocator) NextID(ctx context.Context, entityType models.EntityType) (int64, error) {
	ids, err := a.Next(ctx, entityType, 1)
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// AssignLocalIDs gives a fresh local id to every node of c that has none,
// one batch per entity type. Local ids already in c are reserved first so
// they are never handed out again.
func (a *Allocator) AssignLocalIDs(ctx context.Context, c *models.Calendar) error {
	missing := make(map[models.EntityType][]*models.Entity)
	lowest := make(map[models.EntityType]int64)
	var order []models.EntityType
	c.Walk(func(t models.EntityType, e *models.Entity) {
		if _, seen := missing[t]; !seen {
			missing[t] = nil
			order = append(order, t)
		}
		if e.IsLocal() {
			lowest[t] = min(lowest[t], e.ID)
		}
		if !e.HasID() {
			missing[t] = append(missing[t], e)
		}
	})

	for _, t := range order {
		if id, ok := lowest[t]; ok {
			if err := a.reserve(ctx, t, id); err != nil {
				return err
			}
		}
		nodes := missing[t]
		if len(nodes) == 0 {
			continue
		}
		ids, err := a.Next(ctx, t, len(nodes))
		if err != nil {
			return err
		}
		for i, e := range nodes {
			e.ID = ids[i]
		}
	}
	return nil
}

// reserve makes sure ids down to id are never handed out.
func (a *Allocator) reserve(ctx context.Context, entityType models.EntityType, id int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	last, err := a.seed(ctx, entityType)
	if err != nil {
		return err
	}
	if id >= last {
		return nil
	}
	if err := a.store.SetMinID(ctx, entityType, id); err != nil {
		return fmt.Errorf("persist %s ids: %w", entityType, err)
	}
	a.last[entityType] = id
	return nil
}

// seed returns the last id of entityType, reading it from the store on first
// use. Callers hold a.mu.
func (a *Allocator) seed(ctx context.Context, entityType models.EntityType) (int64, error) {
	if last, ok := a.last[entityType]; ok {
		return last, nil
	}
	seed, err := a.store.MinID(ctx, entityType)
	if err != nil {
		return 0, fmt.Errorf("seed %s ids: %w", entityType, err)
	}
	last := min(seed, 0)
	a.last[entityType] = last
	return last, nil
}
