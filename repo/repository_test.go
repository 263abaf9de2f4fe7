package repo_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/plasm"
	g "github.com/reoring/plasm/dsl"
	"github.com/reoring/plasm/repo"
	"github.com/reoring/plasm/repo/sqlstore"
)

var letter = g.Schema("letter").
	Field("id", g.Integer()).
	Field("document", g.String(g.Required)).
	Field("recipients", g.String()).
	Field("createdAt", g.String()).
	Field("postedAt", g.String()).
	MustBuild()

func newRepo(t *testing.T) *repo.Repository {
	t.Helper()
	s, err := sqlstore.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "plasm.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	r := repo.New(s, s.Dialect())
	require.NoError(t, r.EnsureTable(context.Background(), letter))
	return r
}

func insert(t *testing.T, r *repo.Repository, cs plasm.Changeset) plasm.Entity {
	t.Helper()
	res, err := r.Insert(context.Background(), plasm.Ok(cs.Entity()))
	require.NoError(t, err)
	e, ok := res.Entity()
	require.True(t, ok, "unexpected failure %v", res.Payload())
	return e
}

// recorder counts statements and fails if any are issued.
type recorder struct {
	mu      sync.Mutex
	queries []string
}

func (r *recorder) Query(_ context.Context, q string, _ ...any) ([]repo.Row, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, q)
	return nil, errors.New("unexpected I/O")
}

func (r *recorder) Exec(ctx context.Context, q string, params ...any) error {
	_, err := r.Query(ctx, q, params...)
	return err
}

// checkCreatesAfterExplicitID writes id 3 explicitly, then creates three rows
// without an id. Row 3 must survive and every id must be distinct.
func checkCreatesAfterExplicitID(t *testing.T, r *repo.Repository) {
	t.Helper()
	ctx := context.Background()
	insert(t, r, plasm.Cast(letter, []string{"id", "document"}, map[string]any{"id": int64(3), "document": "pinned"}))

	seen := map[int64]bool{3: true}
	for i := 0; i < 3; i++ {
		e := insert(t, r, plasm.Cast(letter, []string{"document"}, map[string]any{"document": "created"}))
		id, ok := e.ID()
		require.True(t, ok)
		assert.False(t, seen[id], "id %d assigned twice", id)
		seen[id] = true
		assert.Equal(t, "created", e.Values["document"])
	}
	assert.Len(t, seen, 4)

	got, err := r.Get(ctx, letter, 3)
	require.NoError(t, err)
	assert.Equal(t, "pinned", got.Values["document"])
}

func TestInsert_FailedResultPassesThroughWithoutIO(t *testing.T) {
	rec := &recorder{}
	r := repo.New(rec, repo.SQLite)
	in := plasm.Invalid(plasm.ValidationErrors{"document": plasm.CodeRequired})
	out, err := r.Insert(context.Background(), in)
	require.NoError(t, err)
	errs, failed := out.Errors()
	require.True(t, failed)
	assert.Equal(t, plasm.ValidationErrors{"document": plasm.CodeRequired}, errs)
	assert.Empty(t, rec.queries)
}

func TestInsert_EmptyChangesetIsANoOp(t *testing.T) {
	rec := &recorder{}
	r := repo.New(rec, repo.SQLite)
	cs := plasm.Cast(letter, nil, map[string]any{})
	out, err := r.Insert(context.Background(), plasm.Ok(cs.Entity()))
	require.NoError(t, err)
	e, ok := out.Entity()
	require.True(t, ok)
	assert.Empty(t, e.Values)
	assert.Empty(t, rec.queries)
}

func TestInsert_RoundTrip(t *testing.T) {
	r := newRepo(t)
	e := insert(t, r, plasm.Cast(letter, []string{"document", "recipients"}, map[string]any{
		"document": "test", "recipients": "a@example.com",
	}))
	assert.Equal(t, map[string]any{
		"id": int64(1), "document": "test", "recipients": "a@example.com",
		"createdAt": nil, "postedAt": nil,
	}, e.Values)

	got, err := r.Get(context.Background(), letter, 1)
	require.NoError(t, err)
	assert.Equal(t, e.Values, got.Values)
	assert.Same(t, letter, got.Schema)
}

func TestInsert_IsIdempotentForTheSameID(t *testing.T) {
	r := newRepo(t)
	cs := func() plasm.Changeset {
		return plasm.Cast(letter, []string{"id", "document"}, map[string]any{"id": int64(123), "document": "test2"})
	}
	first := insert(t, r, cs())
	second := insert(t, r, cs())
	assert.Equal(t, first.Values, second.Values)

	got, err := r.Get(context.Background(), letter, 123)
	require.NoError(t, err)
	assert.Equal(t, "test2", got.Values["document"])
}

func TestInsert_ChangesetUpdatesOnlyWrittenFields(t *testing.T) {
	r := newRepo(t)
	created := insert(t, r, plasm.Cast(letter, []string{"document", "recipients"}, map[string]any{
		"document": "draft", "recipients": "a",
	}))
	id, ok := created.ID()
	require.True(t, ok)

	updated := insert(t, r, plasm.Cast(letter, []string{"id", "postedAt"}, map[string]any{
		"id": id, "postedAt": "2025-01-01T00:00:00Z",
	}))
	assert.Equal(t, "draft", updated.Values["document"], "re-read must fill fields the changeset did not set")
	assert.Equal(t, "2025-01-01T00:00:00Z", updated.Values["postedAt"])
}

func TestInsert_IDOnlyChangesetReadsExistingRow(t *testing.T) {
	r := newRepo(t)
	created := insert(t, r, plasm.Cast(letter, []string{"document"}, map[string]any{"document": "x"}))
	id, _ := created.ID()
	e := insert(t, r, plasm.Cast(letter, []string{"id"}, map[string]any{"id": id}))
	assert.Equal(t, "x", e.Values["document"])
}

func TestInsert_ExplicitNullClearsColumn(t *testing.T) {
	r := newRepo(t)
	created := insert(t, r, plasm.Cast(letter, []string{"document", "recipients"}, map[string]any{
		"document": "d", "recipients": "a",
	}))
	id, _ := created.ID()
	cs := plasm.Cast(letter, []string{"id", "recipients"}, map[string]any{"id": id, "recipients": nil},
		plasm.CastOpt{Presence: plasm.PresenceExplicit})
	e := insert(t, r, cs)
	assert.Nil(t, e.Values["recipients"])
	assert.Equal(t, "d", e.Values["document"])
}

func TestInsert_CreatesDoNotOverwriteExplicitIDs(t *testing.T) {
	checkCreatesAfterExplicitID(t, newRepo(t))
}

func TestInsert_CreatesDoNotOverwriteExplicitIDsWithoutReturning(t *testing.T) {
	s, err := sqlstore.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "legacy.db"))
	require.NoError(t, err)
	defer s.Close()
	legacy := repo.SQLite
	legacy.Returning = false
	r := repo.New(s, legacy)
	require.NoError(t, r.EnsureTable(context.Background(), letter))
	checkCreatesAfterExplicitID(t, r)
}

func TestInsert_NonPositiveIDIsGenerated(t *testing.T) {
	r := newRepo(t)
	for _, raw := range []any{int64(0), int64(-4)} {
		cs := plasm.Cast(letter, []string{"id", "document"}, map[string]any{"id": raw, "document": "z"},
			plasm.CastOpt{Presence: plasm.PresenceExplicit})
		e := insert(t, r, cs)
		id, ok := e.ID()
		require.True(t, ok)
		assert.Positive(t, id)
	}
	_, err := r.Get(context.Background(), letter, 0)
	require.ErrorIs(t, err, plasm.ErrNotFound)
}

func TestInsert_ValuesAreParameterBound(t *testing.T) {
	r := newRepo(t)
	evil := `'); DROP TABLE "letter"; --`
	e := insert(t, r, plasm.Cast(letter, []string{"document"}, map[string]any{"document": evil}))
	assert.Equal(t, evil, e.Values["document"])
	id, _ := e.ID()
	_, err := r.Get(context.Background(), letter, id)
	require.NoError(t, err)
}

func TestGet_NotFound(t *testing.T) {
	r := newRepo(t)
	_, err := r.Get(context.Background(), letter, 42)
	require.ErrorIs(t, err, plasm.ErrNotFound)
}

func TestInsert_StorageErrorIsTyped(t *testing.T) {
	s, err := sqlstore.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	defer s.Close()
	r := repo.New(s, s.Dialect())
	in := plasm.Ok(plasm.Cast(letter, []string{"document"}, map[string]any{"document": "x"}).Entity())
	_, err = r.Insert(context.Background(), in)
	var se *plasm.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "insert", se.Op)
	assert.Equal(t, "letter", se.Table)
}

func TestInsert_LastInsertedIDFallback(t *testing.T) {
	s, err := sqlstore.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "legacy.db"))
	require.NoError(t, err)
	defer s.Close()
	legacy := repo.SQLite
	legacy.Returning = false
	r := repo.New(s, legacy)
	require.NoError(t, r.EnsureTable(context.Background(), letter))

	var wg sync.WaitGroup
	ids := make(chan int64, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := r.Insert(context.Background(), plasm.Ok(
				plasm.Cast(letter, []string{"document"}, map[string]any{"document": "c"}).Entity()))
			if err != nil {
				t.Error(err)
				return
			}
			e, _ := res.Entity()
			id, _ := e.ID()
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)
	seen := map[int64]bool{}
	for id := range ids {
		assert.False(t, seen[id], "id %d resolved twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, 8)
}

func TestRepository_Postgres(t *testing.T) {
	dsn := os.Getenv("PLASM_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PLASM_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	s, err := sqlstore.Open(ctx, "pgx", dsn)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Exec(ctx, `DROP TABLE IF EXISTS "letter"`))
	r := repo.New(s, s.Dialect())
	require.NoError(t, r.EnsureTable(ctx, letter))

	checkCreatesAfterExplicitID(t, r)

	e := insert(t, r, plasm.Cast(letter, []string{"document"}, map[string]any{"document": "pg"}))
	id, ok := e.ID()
	require.True(t, ok)
	got, err := r.Get(ctx, letter, id)
	require.NoError(t, err)
	assert.Equal(t, "pg", got.Values["document"])
}
