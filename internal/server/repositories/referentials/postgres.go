package referentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/dbx"
	"github.com/dmitrijs2005/fieldsync/internal/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// selectAll decodes every data column returned by query.
func selectAll[T any](ctx context.Context, db dbx.DBTX, query string, args ...any) ([]*T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*T
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		v, err := models.Decode[T](data)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresRepository) Programs(ctx context.Context, level string) ([]*models.Program, error) {
	all, err := selectAll[models.Program](ctx, r.db, `SELECT data FROM programs ORDER BY id`)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Program, 0, len(all))
	for _, p := range all {
		if programUsedAt(p, level) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *PostgresRepository) ProgramByLabel(ctx context.Context, label string) (*models.Program, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx, `SELECT data FROM programs WHERE label = $1`, label).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("program %q: %w", label, common.ErrorNotFound)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return models.Decode[models.Program](data)
}

func (r *PostgresRepository) Referentials(ctx context.Context, entityName string, levels []string) ([]*models.Referential, error) {
	all, err := selectAll[models.Referential](ctx, r.db,
		`SELECT data FROM referentials WHERE entity_name = $1 ORDER BY id`, entityName)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Referential, 0, len(all))
	for _, ref := range all {
		if ref.UsedAt(levels) {
			out = append(out, ref)
		}
	}
	return out, nil
}

func (r *PostgresRepository) Vessels(ctx context.Context, ids []int64) ([]*models.VesselSnapshot, error) {
	all, err := selectAll[models.VesselSnapshot](ctx, r.db, `SELECT data FROM vessels ORDER BY id`)
	if err != nil {
		return nil, err
	}
	out := make([]*models.VesselSnapshot, 0, len(all))
	for _, v := range all {
		if vesselWanted(ids, v.ID) {
			out = append(out, v)
		}
	}
	return out, nil
}

// Seed upserts every row of s. Run it inside a transaction to load a file
// atomically.
func (r *PostgresRepository) Seed(ctx context.Context, s Seed) error {
	for _, p := range s.Programs {
		if err := r.upsert(ctx, `
			INSERT INTO programs (id, label, data) VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET label = EXCLUDED.label, data = EXCLUDED.data`,
			p, p.ID, p.Label); err != nil {
			return fmt.Errorf("seed program %q: %w", p.Label, err)
		}
	}
	for _, ref := range s.Referentials {
		if err := r.upsert(ctx, `
			INSERT INTO referentials (entity_name, id, data) VALUES ($1, $2, $3)
			ON CONFLICT (entity_name, id) DO UPDATE SET data = EXCLUDED.data`,
			ref, ref.EntityName, ref.ID); err != nil {
			return fmt.Errorf("seed %s %d: %w", ref.EntityName, ref.ID, err)
		}
	}
	for _, v := range s.Vessels {
		if err := r.upsert(ctx, `
			INSERT INTO vessels (id, data) VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data`,
			v, v.ID); err != nil {
			return fmt.Errorf("seed vessel %d: %w", v.ID, err)
		}
	}
	return nil
}

// upsert encodes v and passes it as the last argument of query.
func (r *PostgresRepository) upsert(ctx context.Context, query string, v any, args ...any) error {
	data, err := models.Encode(v)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, query, append(args, data)...); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
