// Package calendars stores activity calendars on the server. A calendar and
// its children are kept as one document.
package calendars

import (
	"context"

	"github.com/dmitrijs2005/fieldsync/internal/models"
)

type Repository interface {
	// Get returns common.ErrorNotFound for an unknown id.
	Get(ctx context.Context, id int64) (*models.Calendar, error)
	// List returns the calendars matching f ordered by id. size <= 0 means no limit.
	List(ctx context.Context, f models.CalendarFilter, offset, size int) ([]*models.Calendar, error)
	Insert(ctx context.Context, c *models.Calendar) error
	// Update replaces the calendar only when its stored update date equals
	// expected, otherwise it returns common.ErrVersionConflict.
	Update(ctx context.Context, c *models.Calendar, expected models.Timestamp) error
	// Delete removes the given calendars and returns how many existed.
	Delete(ctx context.Context, ids []int64) (int64, error)
	// NextIDs reserves n entity ids.
	NextIDs(ctx context.Context, n int) ([]int64, error)
}

// page applies offset and size to an ordered result.
func page(list []*models.Calendar, offset, size int) []*models.Calendar {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(list) {
		return []*models.Calendar{}
	}
	list = list[offset:]
	if size > 0 && size < len(list) {
		list = list[:size]
	}
	return list
}
