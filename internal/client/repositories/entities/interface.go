package entities

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/fieldsync/internal/models"
)

// Record is one stored entity.
type Record struct {
	EntityType models.EntityType
	ID         int64
	UpdateDate models.Timestamp
	SyncStatus models.SyncStatus
	Data       []byte
}

// Query narrows LoadAll. Zero values mean "no restriction"; Limit <= 0 means
// no limit.
type Query struct {
	Offset      int
	Limit       int
	SyncStatus  models.SyncStatus
	LocalOnly   bool
	IDs         []int64
	ExcludedIDs []int64
}

// Page is a slice of records plus the total matching the query.
type Page struct {
	Data  []Record
	Total int
}

// TrashRecord is a deleted root kept for restore.
type TrashRecord struct {
	TrashID    uuid.UUID
	EntityType models.EntityType
	OriginalID int64
	DeletedAt  time.Time
	Data       []byte
}

// Repository is the Local Store used by the engine.
type Repository interface {
	// Load returns common.ErrorNotFound when the row does not exist.
	Load(ctx context.Context, entityType models.EntityType, id int64) (*Record, error)
	LoadAll(ctx context.Context, entityType models.EntityType, q Query) (Page, error)

	// Save inserts or replaces the row identified by (EntityType, ID).
	Save(ctx context.Context, rec Record) error
	// SaveAll saves records in one transaction.
	SaveAll(ctx context.Context, recs []Record) error
	// SaveSynced saves copies of remote records without touching rows that
	// hold unpushed local edits (DIRTY). It reports how many were written.
	SaveSynced(ctx context.Context, recs []Record) (int, error)
	// ReplaceRemote swaps every non-local row of entityType for recs, in one
	// transaction. Local rows are kept.
	ReplaceRemote(ctx context.Context, entityType models.EntityType, recs []Record) error

	// Delete returns common.ErrorNotFound when nothing was deleted.
	Delete(ctx context.Context, entityType models.EntityType, id int64) error

	SaveToTrash(ctx context.Context, rec TrashRecord) error
	LoadFromTrash(ctx context.Context, trashID uuid.UUID) (*TrashRecord, error)
	ListTrash(ctx context.Context, entityType models.EntityType) ([]TrashRecord, error)
	DeleteFromTrash(ctx context.Context, trashID uuid.UUID) error

	// MinID is the smallest id ever used locally for entityType (0 if none).
	MinID(ctx context.Context, entityType models.EntityType) (int64, error)
	// SetMinID records the last id handed out for entityType.
	SetMinID(ctx context.Context, entityType models.EntityType, id int64) error
}
