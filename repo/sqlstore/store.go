// Package sqlstore implements repo.Executor over database/sql. It registers
// the modernc.org/sqlite driver ("sqlite") and the pgx driver ("pgx").
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // register sqlite as a database/sql driver

	"github.com/reoring/plasm/repo"
)

// Compile-time contract assertions.
var (
	_ repo.Executor     = (*Store)(nil)
	_ repo.LastInserter = (*Store)(nil)
)

const (
	DefaultDriver = "sqlite"
	DefaultDSN    = "plasm.db"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store is a single database handle shared by every request.
type Store struct {
	db      *sql.DB
	driver  string
	dialect repo.Dialect
	log     *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for statement tracing at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// Open connects to driver/dsn and pings the database. Empty values fall back
// to a local sqlite file.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	if driver == "" {
		driver = DefaultDriver
	}
	if dsn == "" {
		dsn = DefaultDSN
	}
	dialect, err := repo.DialectFor(driver)
	if err != nil {
		return nil, err
	}
	openMu.Lock()
	db, err := sqlOpen(driver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if dialect.Name == repo.SQLite.Name {
		// One connection: last_insert_rowid is per connection and sqlite
		// allows a single writer.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	s := &Store{db: db, driver: driver, dialect: dialect, log: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Dialect returns the SQL dialect matching the store's driver.
func (s *Store) Dialect() repo.Dialect { return s.dialect }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Exec runs a statement that yields no rows.
func (s *Store) Exec(ctx context.Context, query string, params ...any) error {
	s.log.DebugContext(ctx, "sql exec", slog.String("query", query), slog.Int("params", len(params)))
	_, err := s.db.ExecContext(ctx, query, params...)
	return err
}

// Query runs query with bound params and collects every row it yields.
func (s *Store) Query(ctx context.Context, query string, params ...any) ([]repo.Row, error) {
	s.log.DebugContext(ctx, "sql query", slog.String("query", query), slog.Int("params", len(params)))
	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []repo.Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(repo.Row, len(cols))
		for i, c := range cols {
			row[c] = vals[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// LastInsertedID reports the identifier generated by the most recent insert
// on the store's connection.
func (s *Store) LastInsertedID(ctx context.Context) (int64, error) {
	q := "SELECT last_insert_rowid()"
	if s.dialect.Name == repo.Postgres.Name {
		q = "SELECT lastval()"
	}
	var id int64
	if err := s.db.QueryRowContext(ctx, q).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("no inserted id: %w", err)
		}
		return 0, err
	}
	return id, nil
}

var (
	_ repo.Executor     = (*Store)(nil)
	_ repo.LastInserter = (*Store)(nil)
)
