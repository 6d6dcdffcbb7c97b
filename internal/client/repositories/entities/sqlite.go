package entities

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/fieldsync/internal/dbx"
	"github.com/dmitrijs2005/fieldsync/internal/models"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Load(ctx context.Context, entityType models.EntityType, id int64) (*Record, error) {
	query := `SELECT entity_type, id, update_date, sync_status, data
		FROM entities WHERE entity_type = ? AND id = ?`

	var rec Record
	err := r.db.QueryRowContext(ctx, query, string(entityType), id).
		Scan(&rec.EntityType, &rec.ID, &rec.UpdateDate, &rec.SyncStatus, &rec.Data)
	if err != nil {
		return nil, dbx.NotFound(err)
	}
	return &rec, nil
}

func (r *SQLiteRepository) LoadAll(ctx context.Context, entityType models.EntityType, q Query) (Page, error) {
	where, args := buildWhere(entityType, q)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entities`+where, args...).Scan(&total); err != nil {
		return Page{}, fmt.Errorf("failed to count entities: %w", err)
	}

	query := `SELECT entity_type, id, update_date, sync_status, data FROM entities` + where + ` ORDER BY id`
	if q.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, q.Limit, q.Offset)
	} else if q.Offset > 0 {
		query += ` LIMIT -1 OFFSET ?`
		args = append(args, q.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return Page{}, fmt.Errorf("failed to select entities: %w", err)
	}
	defer rows.Close()

	page := Page{Total: total}
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.EntityType, &rec.ID, &rec.UpdateDate, &rec.SyncStatus, &rec.Data); err != nil {
			return Page{}, fmt.Errorf("failed to scan entity row: %w", err)
		}
		page.Data = append(page.Data, rec)
	}
	if err := rows.Err(); err != nil {
		return Page{}, fmt.Errorf("failed to iterate entity rows: %w", err)
	}
	return page, nil
}

func buildWhere(entityType models.EntityType, q Query) (string, []any) {
	conds := []string{"entity_type = ?"}
	args := []any{string(entityType)}

	if q.SyncStatus != "" {
		conds = append(conds, "sync_status = ?")
		args = append(args, string(q.SyncStatus))
	}
	if q.LocalOnly {
		conds = append(conds, "id < 0")
	}
	if len(q.IDs) > 0 {
		conds = append(conds, "id IN ("+placeholders(len(q.IDs))+")")
		for _, id := range q.IDs {
			args = append(args, id)
		}
	}
	if len(q.ExcludedIDs) > 0 {
		conds = append(conds, "id NOT IN ("+placeholders(len(q.ExcludedIDs))+")")
		for _, id := range q.ExcludedIDs {
			args = append(args, id)
		}
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func (r *SQLiteRepository) Save(ctx context.Context, rec Record) error {
	return save(ctx, r.db, rec)
}

func save(ctx context.Context, db dbx.DBTX, rec Record) error {
	query := `INSERT INTO entities (entity_type, id, update_date, sync_status, data)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(entity_type, id) DO UPDATE SET
			update_date = excluded.update_date,
			sync_status = excluded.sync_status,
			data = excluded.data`

	_, err := db.ExecContext(ctx, query, string(rec.EntityType), rec.ID, string(rec.UpdateDate), string(rec.SyncStatus), rec.Data)
	if err != nil {
		return fmt.Errorf("failed to save %s#%d: %w", rec.EntityType, rec.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) SaveAll(ctx context.Context, recs []Record) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, rec := range recs {
			if err := save(ctx, tx, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) SaveSynced(ctx context.Context, recs []Record) (int, error) {
	query := `INSERT INTO entities (entity_type, id, update_date, sync_status, data)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(entity_type, id) DO UPDATE SET
			update_date = excluded.update_date,
			sync_status = excluded.sync_status,
			data = excluded.data
		WHERE entities.sync_status <> ?`

	written := 0
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, rec := range recs {
			res, err := tx.ExecContext(ctx, query, string(rec.EntityType), rec.ID, string(rec.UpdateDate),
				string(rec.SyncStatus), rec.Data, string(models.StatusDirty))
			if err != nil {
				return fmt.Errorf("failed to save %s#%d: %w", rec.EntityType, rec.ID, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected error: %w", err)
			}
			written += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

func (r *SQLiteRepository) ReplaceRemote(ctx context.Context, entityType models.EntityType, recs []Record) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM entities WHERE entity_type = ? AND id >= 0`, string(entityType)); err != nil {
			return fmt.Errorf("failed to clear %s: %w", entityType, err)
		}
		for _, rec := range recs {
			rec.EntityType = entityType
			if err := save(ctx, tx, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) Delete(ctx context.Context, entityType models.EntityType, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM entities WHERE entity_type = ? AND id = ?`, string(entityType), id)
	if err != nil {
		return fmt.Errorf("failed to delete %s#%d: %w", entityType, id, err)
	}
	return dbx.ExpectOneRow(res)
}

func (r *SQLiteRepository) SaveToTrash(ctx context.Context, rec TrashRecord) error {
	if rec.TrashID == uuid.Nil {
		rec.TrashID = uuid.New()
	}
	if rec.DeletedAt.IsZero() {
		rec.DeletedAt = time.Now()
	}
	query := `INSERT INTO trash (trash_id, entity_type, original_id, deleted_at, data) VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, rec.TrashID.String(), string(rec.EntityType), rec.OriginalID,
		rec.DeletedAt.UTC().Format(time.RFC3339Nano), rec.Data)
	if err != nil {
		return fmt.Errorf("failed to trash %s#%d: %w", rec.EntityType, rec.OriginalID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrash(row rowScanner) (*TrashRecord, error) {
	var (
		rec       TrashRecord
		trashID   string
		deletedAt string
	)
	if err := row.Scan(&trashID, &rec.EntityType, &rec.OriginalID, &deletedAt, &rec.Data); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(trashID)
	if err != nil {
		return nil, fmt.Errorf("bad trash id %q: %w", trashID, err)
	}
	rec.TrashID = id
	rec.DeletedAt, err = time.Parse(time.RFC3339Nano, deletedAt)
	if err != nil {
		return nil, fmt.Errorf("bad deleted_at %q: %w", deletedAt, err)
	}
	return &rec, nil
}

func (r *SQLiteRepository) LoadFromTrash(ctx context.Context, trashID uuid.UUID) (*TrashRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT trash_id, entity_type, original_id, deleted_at, data
		FROM trash WHERE trash_id = ?`, trashID.String())
	rec, err := scanTrash(row)
	if err != nil {
		return nil, dbx.NotFound(err)
	}
	return rec, nil
}

func (r *SQLiteRepository) ListTrash(ctx context.Context, entityType models.EntityType) ([]TrashRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT trash_id, entity_type, original_id, deleted_at, data
		FROM trash WHERE entity_type = ? ORDER BY deleted_at DESC`, string(entityType))
	if err != nil {
		return nil, fmt.Errorf("failed to list trash: %w", err)
	}
	defer rows.Close()

	var out []TrashRecord
	for rows.Next() {
		rec, err := scanTrash(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trash row: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trash rows: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) DeleteFromTrash(ctx context.Context, trashID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM trash WHERE trash_id = ?`, trashID.String())
	if err != nil {
		return fmt.Errorf("failed to delete trash %s: %w", trashID, err)
	}
	return dbx.ExpectOneRow(res)
}

func (r *SQLiteRepository) MinID(ctx context.Context, entityType models.EntityType) (int64, error) {
	query := `SELECT COALESCE(MIN(v), 0) FROM (
		SELECT MIN(id) AS v FROM entities WHERE entity_type = ?
		UNION ALL
		SELECT last_id AS v FROM sequences WHERE entity_type = ?
	)`
	var minID int64
	if err := r.db.QueryRowContext(ctx, query, string(entityType), string(entityType)).Scan(&minID); err != nil {
		return 0, fmt.Errorf("failed to read min id of %s: %w", entityType, err)
	}
	if minID > 0 {
		return 0, nil
	}
	return minID, nil
}

func (r *SQLiteRepository) SetMinID(ctx context.Context, entityType models.EntityType, id int64) error {
	query := `INSERT INTO sequences (entity_type, last_id) VALUES (?, ?)
		ON CONFLICT(entity_type) DO UPDATE SET last_id = MIN(sequences.last_id, excluded.last_id)`
	if _, err := r.db.ExecContext(ctx, query, string(entityType), id); err != nil {
		return fmt.Errorf("failed to store sequence of %s: %w", entityType, err)
	}
	return nil
}
