package metadata

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/fieldsync/internal/client/migrations"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, migrations.Up(context.Background(), db))
	return db
}

func TestSetAndGet(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "k1", []byte{0x01, 0x02}))

	v, err := r.Get(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02}, v)
}

func TestGet_Missing_ReturnsNilNil(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	v, err := r.Get(context.Background(), "absent")
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestSet_Upserts(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "k", []byte("old")))
	require.NoError(t, r.Set(ctx, "k", []byte("new")))

	v, err := r.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("new"), v)
}

func TestDelete_IsIdempotent(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "x", []byte{0x01}))
	require.NoError(t, r.Delete(ctx, "x"))

	v, err := r.Get(ctx, "x")
	require.NoError(t, err)
	require.Nil(t, v)

	require.NoError(t, r.Delete(ctx, "x"))
}

func TestListPrefix_AndDeletePrefix(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "history/ActivityCalendar:-1", []byte("a")))
	require.NoError(t, r.Set(ctx, "history/ActivityCalendar:-12", []byte("b")))
	require.NoError(t, r.Set(ctx, "history/Trip:-1", []byte("c")))
	require.NoError(t, r.Set(ctx, "offline_filter", []byte("{}")))
	require.NoError(t, r.Set(ctx, "x_y", []byte("underscore")))
	require.NoError(t, r.Set(ctx, "xzy", []byte("wildcard")))

	m, err := r.ListPrefix(ctx, "history/ActivityCalendar:")
	require.NoError(t, err)
	assert.Len(t, m, 2)

	m, err = r.ListPrefix(ctx, "x_")
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"x_y": []byte("underscore")}, m, "LIKE wildcards are escaped")

	n, err := r.DeletePrefix(ctx, "history/ActivityCalendar:-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	all, err := r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Contains(t, all, "history/Trip:-1")
}

func TestClear_RemovesAllKeys(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "a", []byte{1}))
	require.NoError(t, r.Set(ctx, "b", []byte{2}))
	require.NoError(t, r.Clear(ctx))

	m, err := r.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestErrorsAreWrapped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	require.NoError(t, db.Close())

	_, err := r.Get(ctx, "k")
	require.ErrorContains(t, err, "failed to get metadata[k]")

	require.ErrorContains(t, r.Set(ctx, "k", []byte("v")), "failed to set metadata[k]")
	require.ErrorContains(t, r.Delete(ctx, "k"), "failed to delete metadata[k]")
	require.ErrorContains(t, r.Clear(ctx), "failed to clear metadata")

	_, err = r.List(ctx)
	require.ErrorContains(t, err, "failed to list metadata")

	_, err = r.DeletePrefix(ctx, "p")
	require.ErrorContains(t, err, "failed to delete metadata[p*]")
}
