package referentials

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/models"
)

// MemoryRepository holds the seeded reference data in memory.
type MemoryRepository struct {
	mu           sync.RWMutex
	programs     map[int64]*models.Program
	referentials map[string]map[int64]*models.Referential
	vessels      map[int64]*models.VesselSnapshot
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		programs:     make(map[int64]*models.Program),
		referentials: make(map[string]map[int64]*models.Referential),
		vessels:      make(map[int64]*models.VesselSnapshot),
	}
}

func sortedByID[T models.Identifiable](m map[int64]T, keep func(T) bool) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		if keep(v) {
			out = append(out, v)
		}
	}
	slices.SortFunc(out, func(a, b T) int { return cmp.Compare(a.Identity().ID, b.Identity().ID) })
	return out
}

func (r *MemoryRepository) Programs(_ context.Context, level string) ([]*models.Program, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedByID(r.programs, func(p *models.Program) bool { return programUsedAt(p, level) }), nil
}

func (r *MemoryRepository) ProgramByLabel(_ context.Context, label string) (*models.Program, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.programs {
		if p.Label == label {
			return p, nil
		}
	}
	return nil, fmt.Errorf("program %q: %w", label, common.ErrorNotFound)
}

func (r *MemoryRepository) Referentials(_ context.Context, entityName string, levels []string) ([]*models.Referential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedByID(r.referentials[entityName], func(ref *models.Referential) bool { return ref.UsedAt(levels) }), nil
}

func (r *MemoryRepository) Vessels(_ context.Context, ids []int64) ([]*models.VesselSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedByID(r.vessels, func(v *models.VesselSnapshot) bool { return vesselWanted(ids, v.ID) }), nil
}

func (r *MemoryRepository) Seed(_ context.Context, s Seed) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range s.Programs {
		r.programs[p.ID] = p
	}
	for _, ref := range s.Referentials {
		byID, ok := r.referentials[ref.EntityName]
		if !ok {
			byID = make(map[int64]*models.Referential)
			r.referentials[ref.EntityName] = byID
		}
		byID[ref.ID] = ref
	}
	for _, v := range s.Vessels {
		r.vessels[v.ID] = v
	}
	return nil
}
