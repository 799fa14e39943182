package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/SpiderChef/internal/domain"
)

type execCall struct {
	sql  string
	args []any
}

type fakeDB struct {
	execs   []execCall
	execErr error
	row     pgx.Row
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, execCall{sql: sql, args: args})
	return pgconn.NewCommandTag("INSERT 0 1"), f.execErr
}

func (f *fakeDB) QueryRow(context.Context, string, ...any) pgx.Row {
	return f.row
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

func TestRunRepo_EnsureSchema(t *testing.T) {
	db := &fakeDB{}
	require.NoError(t, NewRunRepo(db).EnsureSchema(context.Background()))

	require.Len(t, db.execs, 1)
	assert.Contains(t, db.execs[0].sql, "CREATE TABLE IF NOT EXISTS recipe_runs")
}

func TestRunRepo_Save(t *testing.T) {
	db := &fakeDB{}
	run := domain.NewRun("books", "")
	run.MarkRunning()
	run.MarkSucceeded(map[string]any{"title": "A"})

	require.NoError(t, NewRunRepo(db).Save(context.Background(), run))

	require.Len(t, db.execs, 1)
	args := db.execs[0].args
	assert.Equal(t, run.ID, args[0])
	assert.Equal(t, "books", args[1])
	assert.Nil(t, args[2])
	assert.Equal(t, "SUCCEEDED", args[3])
	assert.JSONEq(t, `{"title":"A"}`, string(args[4].([]byte)))
	assert.Nil(t, args[5])
}

func TestRunRepo_SaveError(t *testing.T) {
	db := &fakeDB{execErr: errors.New("connection reset")}
	err := NewRunRepo(db).Save(context.Background(), domain.NewRun("books", ""))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "save run")
}

func TestRunRepo_GetByID_NotFound(t *testing.T) {
	db := &fakeDB{row: errRow{err: pgx.ErrNoRows}}
	_, err := NewRunRepo(db).GetByID(context.Background(), domain.NewRun("x", "").ID)

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewPool_EmptyDSN(t *testing.T) {
	_, err := NewPool(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
