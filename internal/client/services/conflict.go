package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/models"
)

// ConflictPolicy decides what is pushed when a local calendar is synchronized
// while the server already holds a calendar for the same program, vessel and
// year.
type ConflictPolicy interface {
	Resolve(ctx context.Context, local, remote *models.Calendar) (*models.Calendar, error)
}

// LastWriterWins pushes the local graph over the remote one: local takes the
// remote root id and update date, its children replace the remote children.
type LastWriterWins struct{}

func (LastWriterWins) Resolve(_ context.Context, local, remote *models.Calendar) (*models.Calendar, error) {
	local.CopyIdentity(&remote.Entity)
	return local, nil
}

// RejectConflicts refuses to push over an existing remote calendar.
type RejectConflicts struct{}

func (RejectConflicts) Resolve(_ context.Context, local, remote *models.Calendar) (*models.Calendar, error) {
	return nil, fmt.Errorf("%w: calendar %d already holds %s/%d/%d",
		common.ErrVersionConflict, remote.ID, local.ProgramLabel(), local.VesselID, local.Year)
}
