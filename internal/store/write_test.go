package store

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/absql/internal/ir"
)

func TestInsert_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Exec(ctx, `CREATE TABLE people (name TEXT, age INTEGER, tags TEXT)`))
	require.NoError(t, s.Insert(ctx, "people", []ir.Object{
		{"name": ir.String("ada"), "age": ir.Int(36), "tags": ir.Array{ir.String("math"), ir.String("engines")}},
		{"name": ir.String("alan")},
	}))

	var (
		count int
		tags  string
	)
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM people`).Scan(&count))
	assert.Equal(t, 2, count)

	require.NoError(t, s.DB().QueryRow(`SELECT tags FROM people WHERE name = 'ada'`).Scan(&tags))
	assert.Equal(t, `["math","engines"]`, tags)

	var nulls int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM people WHERE age IS NULL AND tags IS NULL`).Scan(&nulls))
	assert.Equal(t, 1, nulls, "missing keys are written as NULL")
}

func TestInsert_Empty(t *testing.T) {
	s, mock := newMockStore(t, "sqlite3")

	require.NoError(t, s.Insert(context.Background(), "t", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_SortedColumnsAndDialect(t *testing.T) {
	s, mock := newMockStore(t, "postgres")

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "t" ("a", "b") VALUES ($1, $2)`).
		WithArgs(int64(1), "x").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.Insert(context.Background(), "t", []ir.Object{
		{"b": ir.String("x"), "a": ir.Int(1)},
	}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_RollsBackOnError(t *testing.T) {
	s, mock := newMockStore(t, "mysql")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `t` (`id`) VALUES (?)").
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO `t` (`id`) VALUES (?)").
		WithArgs(int64(1)).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := s.Insert(context.Background(), "t", []ir.Object{
		{"id": ir.Int(1)},
		{"id": ir.Int(1)},
	})
	require.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "insert into t: row 1")
	assert.NoError(t, mock.ExpectationsWereMet())
}
