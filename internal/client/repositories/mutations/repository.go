// Package mutations keeps remote mutations issued while offline so they can
// be replayed once the server is reachable again.
package mutations

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/dbx"
)

// Pending is a mutation waiting for replay. SerializationKey identifies the
// target entity ("ActivityCalendar:-5"); a newer mutation for the same key
// replaces the older one.
type Pending struct {
	SerializationKey string
	Operation        string
	Variables        []byte
	CreatedAt        time.Time
}

type Repository interface {
	Save(ctx context.Context, p Pending) error
	// List returns pending mutations oldest first.
	List(ctx context.Context) ([]Pending, error)
	Delete(ctx context.Context, key string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Save(ctx context.Context, p Pending) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	query := `INSERT INTO pending_mutations (serialization_key, operation, variables, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(serialization_key) DO UPDATE SET
			operation = excluded.operation,
			variables = excluded.variables,
			created_at = excluded.created_at`
	_, err := r.db.ExecContext(ctx, query, p.SerializationKey, p.Operation, p.Variables,
		p.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save pending mutation %s: %w", p.SerializationKey, err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]Pending, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT serialization_key, operation, variables, created_at
		FROM pending_mutations ORDER BY created_at, serialization_key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending mutations: %w", err)
	}
	defer rows.Close()

	var out []Pending
	for rows.Next() {
		var (
			p         Pending
			createdAt string
		)
		if err := rows.Scan(&p.SerializationKey, &p.Operation, &p.Variables, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan pending mutation: %w", err)
		}
		if p.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("bad created_at %q: %w", createdAt, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending mutations: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, key string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM pending_mutations WHERE serialization_key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete pending mutation %s: %w", key, err)
	}
	return dbx.ExpectOneRow(res)
}
