package calendars

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/dbx"
	"github.com/dmitrijs2005/fieldsync/internal/models"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.Calendar, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx, `SELECT data FROM calendars WHERE id = $1`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("calendar %d: %w", id, common.ErrorNotFound)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return models.Decode[models.Calendar](data)
}

// List filters on program and year in SQL. Vessel and id filters are applied
// on the decoded rows.
func (r *PostgresRepository) List(ctx context.Context, f models.CalendarFilter, offset, size int) ([]*models.Calendar, error) {
	var (
		where []string
		args  []any
	)
	if f.ProgramLabel != "" {
		args = append(args, f.ProgramLabel)
		where = append(where, fmt.Sprintf("program_label = $%d", len(args)))
	}
	if !f.StartDate.IsZero() {
		args = append(args, f.StartDate.Time().Year())
		where = append(where, fmt.Sprintf("year >= $%d", len(args)))
	}
	if !f.EndDate.IsZero() {
		args = append(args, f.EndDate.Time().Year())
		where = append(where, fmt.Sprintf("year <= $%d", len(args)))
	}

	query := `SELECT data FROM calendars`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select calendars: %w", err)
	}
	defer rows.Close()

	var result []*models.Calendar
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		c, err := models.Decode[models.Calendar](data)
		if err != nil {
			return nil, err
		}
		if f.Match(c) {
			result = append(result, c)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return page(result, offset, size), nil
}

func (r *PostgresRepository) Insert(ctx context.Context, c *models.Calendar) error {
	data, err := models.Encode(c)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO calendars (id, program_label, vessel_id, year, update_date, data)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.ProgramLabel(), c.VesselID, c.Year, string(c.UpdateDate), data)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, c *models.Calendar, expected models.Timestamp) error {
	data, err := models.Encode(c)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE calendars
		SET program_label = $2, vessel_id = $3, year = $4, update_date = $5, data = $6
		WHERE id = $1 AND update_date = $7`,
		c.ID, c.ProgramLabel(), c.VesselID, c.Year, string(c.UpdateDate), data, string(expected))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return fmt.Errorf("calendar %d: %w", c.ID, common.ErrVersionConflict)
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

func (r *PostgresRepository) Delete(ctx context.Context, ids []int64) (int64, error) {
	var total int64
	for _, id := range ids {
		res, err := r.db.ExecContext(ctx, `DELETE FROM calendars WHERE id = $1`, id)
		if err != nil {
			return total, fmt.Errorf("db error: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("rows affected error: %w", err)
		}
		total += n
	}
	return total, nil
}

func (r *PostgresRepository) NextIDs(ctx context.Context, n int) ([]int64, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `SELECT nextval('entity_id_seq') FROM generate_series(1, $1)`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve ids: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0, n)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) != n {
		return nil, fmt.Errorf("reserved %d ids, want %d", len(ids), n)
	}
	return ids, nil
}
