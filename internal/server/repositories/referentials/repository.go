// Package referentials serves the read-only reference data a client needs to
// edit calendars offline: programs, reference tables and vessels.
package referentials

import (
	"context"
	"slices"

	"github.com/dmitrijs2005/fieldsync/internal/models"
)

type Repository interface {
	// Programs returns the programs used at level, or all of them when level is "".
	Programs(ctx context.Context, level string) ([]*models.Program, error)
	// ProgramByLabel returns common.ErrorNotFound for an unknown label.
	ProgramByLabel(ctx context.Context, label string) (*models.Program, error)
	Referentials(ctx context.Context, entityName string, levels []string) ([]*models.Referential, error)
	// Vessels returns the requested vessels, or all of them when ids is empty.
	Vessels(ctx context.Context, ids []int64) ([]*models.VesselSnapshot, error)
	Seed(ctx context.Context, s Seed) error
}

// Seed is the content of a reference data file loaded at server start.
type Seed struct {
	Programs     []*models.Program        `json:"programs"`
	Referentials []*models.Referential    `json:"referentials"`
	Vessels      []*models.VesselSnapshot `json:"vessels"`
}

func programUsedAt(p *models.Program, level string) bool {
	return level == "" || slices.Contains(p.AcquisitionLevels, level)
}

func vesselWanted(ids []int64, id int64) bool {
	return len(ids) == 0 || slices.Contains(ids, id)
}
