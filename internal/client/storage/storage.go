// Package storage opens the client SQLite cache and builds its repositories.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/fieldsync/internal/client/migrations"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/entities"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/mutations"
	"github.com/dmitrijs2005/fieldsync/internal/filex"
)

type Repositories struct {
	DB        *sql.DB
	Entities  *entities.SQLiteRepository
	Metadata  *metadata.SQLiteRepository
	Mutations *mutations.SQLiteRepository
}

func (r *Repositories) Close() error {
	return r.DB.Close()
}

// Open creates the parent directory of path when needed, opens the database
// and applies pending migrations. ":memory:" is accepted for tests.
func Open(ctx context.Context, path string) (*Repositories, error) {
	dsn := path
	if path != ":memory:" {
		abs, err := filex.EnsureFileDir(path)
		if err != nil {
			return nil, err
		}
		dsn = abs
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dsn, err)
	}
	// a single connection serializes writers and keeps :memory: databases alive
	db.SetMaxOpenConns(1)

	if err := migrations.Up(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate %s: %w", dsn, err)
	}

	return &Repositories{
		DB:        db,
		Entities:  entities.NewSQLiteRepository(db),
		Metadata:  metadata.NewSQLiteRepository(db),
		Mutations: mutations.NewSQLiteRepository(db),
	}, nil
}
