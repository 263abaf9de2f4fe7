package sqlstore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/plasm/repo"
	"github.com/reoring/plasm/repo/sqlstore"
)

func openSQLite(t *testing.T) *sqlstore.Store {
	t.Helper()
	s, err := sqlstore.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_SQLiteDialect(t *testing.T) {
	s := openSQLite(t)
	assert.Equal(t, repo.SQLite.Name, s.Dialect().Name)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := sqlstore.Open(context.Background(), "oracle", "x")
	require.Error(t, err)
}

func TestQueryAndExec(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t)

	require.NoError(t, s.Exec(ctx, `CREATE TABLE "t" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "name" TEXT)`))

	rows, err := s.Query(ctx, `INSERT INTO "t" ("name") VALUES (?) RETURNING "id"`, "a")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 1, rows[0]["id"])

	require.NoError(t, s.Exec(ctx, `INSERT INTO "t" ("name") VALUES (?)`, "b"))
	id, err := s.LastInsertedID(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, id)

	rows, err = s.Query(ctx, `SELECT "id", "name" FROM "t" ORDER BY "id"`)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "b", rows[1]["name"])
}

// Row-yielding statements that do not start with SELECT and carry no
// RETURNING clause still come back through Query.
func TestQuery_CommonTableExpression(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t)
	rows, err := s.Query(ctx, "WITH n(v) AS (VALUES (1), (2)) SELECT v FROM n ORDER BY v")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.EqualValues(t, 2, rows[1]["v"])

	rows, err = s.Query(ctx, "VALUES (7)")
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestQueryAndExec_SyntaxError(t *testing.T) {
	s := openSQLite(t)
	_, err := s.Query(context.Background(), "SELEKT 1")
	require.Error(t, err)
	require.Error(t, s.Exec(context.Background(), "SELEKT 1"))
}

func TestOpen_Postgres(t *testing.T) {
	dsn := os.Getenv("PLASM_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PLASM_TEST_POSTGRES_DSN not set")
	}
	s, err := sqlstore.Open(context.Background(), "pgx", dsn)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, repo.Postgres.Name, s.Dialect().Name)
	rows, err := s.Query(context.Background(), "SELECT 1 AS one")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 1, rows[0]["one"])
}
