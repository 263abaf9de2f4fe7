// Package repo persists entities with an idempotent upsert keyed on the id
// column, or a plain insert when the entity has no id yet, and re-reads the
// stored row after every write.
package repo

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/reoring/plasm"
)

// Row is one result row keyed by column name.
type Row map[string]any

// Executor runs parameter-bound statements. Query is used for statements that
// yield rows, including INSERT ... RETURNING; Exec for everything else.
type Executor interface {
	Query(ctx context.Context, query string, params ...any) ([]Row, error)
	Exec(ctx context.Context, query string, params ...any) error
}

// LastInserter is implemented by executors that can report the identifier
// generated by their most recent insert.
type LastInserter interface {
	LastInsertedID(ctx context.Context) (int64, error)
}

// Repository writes and reads entities through an Executor.
type Repository struct {
	exec    Executor
	dialect Dialect

	// mu pairs a write with its LastInsertedID lookup.
	mu sync.Mutex
}

// New returns a Repository speaking dialect over exec.
func New(exec Executor, dialect Dialect) *Repository {
	return &Repository{exec: exec, dialect: dialect}
}

// Dialect returns the repository's SQL dialect.
func (r *Repository) Dialect() Dialect { return r.dialect }

// Insert is a pipeline stage. Failed results pass through without I/O. A valid
// entity with a positive id is upserted with its written fields; one without is
// inserted and gets a generated id. Every schema field of the stored row is then
// merged onto it.
func (r *Repository) Insert(ctx context.Context, in plasm.Result) (plasm.Result, error) {
	e, ok := in.Entity()
	if !ok {
		return in, nil
	}
	s := e.Schema
	_, hasID := e.ID()
	var cols []string
	var params []any
	for _, name := range s.FieldNames() {
		if name == plasm.IDField && !hasID {
			continue
		}
		if plasm.Written(e, name) {
			cols = append(cols, name)
			params = append(params, e.Values[name])
		}
	}
	if len(cols) == 0 {
		return in, nil
	}

	id, err := r.write(ctx, s.Name(), cols, params, e)
	if err != nil {
		return in, &plasm.StorageError{Op: "insert", Table: s.Name(), Err: err}
	}
	stored, err := r.Get(ctx, s, id)
	if err != nil {
		return in, err
	}
	if e.Values == nil {
		e.Values = make(map[string]any, len(stored.Values))
	}
	for k, v := range stored.Values {
		e.Values[k] = v
	}
	return plasm.Ok(e), nil
}

func (r *Repository) write(ctx context.Context, table string, cols []string, params []any, e plasm.Entity) (int64, error) {
	if id, ok := e.ID(); ok {
		if err := r.exec.Exec(ctx, r.dialect.upsertSQL(table, cols, false), params...); err != nil {
			return 0, err
		}
		if r.dialect.Resync != nil {
			if _, err := r.exec.Query(ctx, r.dialect.Resync(table)); err != nil {
				return 0, fmt.Errorf("resync id sequence: %w", err)
			}
		}
		return id, nil
	}

	if r.dialect.Returning {
		rows, err := r.exec.Query(ctx, r.dialect.insertSQL(table, cols, true), params...)
		if err != nil {
			return 0, err
		}
		if len(rows) > 0 {
			if id, ok := plasm.AsInt64(normalize(rows[0][plasm.IDField])); ok {
				return id, nil
			}
		}
		return 0, errors.New("no identifier returned")
	}

	li, ok := r.exec.(LastInserter)
	if !ok {
		return 0, fmt.Errorf("dialect %s needs an executor reporting inserted ids", r.dialect.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.exec.Exec(ctx, r.dialect.insertSQL(table, cols, false), params...); err != nil {
		return 0, err
	}
	return li.LastInsertedID(ctx)
}

// Get reads the row with the given id. It returns an error wrapping
// plasm.ErrNotFound when no row matches.
func (r *Repository) Get(ctx context.Context, s *plasm.SchemaDefinition, id int64) (plasm.Entity, error) {
	rows, err := r.exec.Query(ctx, r.dialect.selectSQL(s), id)
	if err != nil {
		return plasm.Entity{}, &plasm.StorageError{Op: "get", Table: s.Name(), Err: err}
	}
	if len(rows) == 0 {
		return plasm.Entity{}, fmt.Errorf("%s %d: %w", s.Name(), id, plasm.ErrNotFound)
	}
	values := make(map[string]any, len(s.Fields()))
	for _, name := range s.FieldNames() {
		values[name] = normalize(rows[0][name])
	}
	return plasm.Instantiate(s, values), nil
}

// EnsureTable creates the schema's table when it does not exist yet.
func (r *Repository) EnsureTable(ctx context.Context, s *plasm.SchemaDefinition) error {
	if err := r.exec.Exec(ctx, r.dialect.createTableSQL(s)); err != nil {
		return &plasm.StorageError{Op: "ensure_table", Table: s.Name(), Err: err}
	}
	return nil
}

func normalize(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case int16:
		return int64(t)
	case int8:
		return int64(t)
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	default:
		return v
	}
}
