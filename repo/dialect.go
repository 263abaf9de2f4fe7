package repo

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/reoring/plasm"
)

// Dialect captures the SQL differences between supported engines.
type Dialect struct {
	Name string
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
	// Returning reports whether INSERT ... RETURNING is available. When false
	// the Executor must implement LastInserter.
	Returning bool
	// IDColumn is the column definition of the generated identifier.
	IDColumn string
	// Types maps field kinds to column types.
	Types map[plasm.Kind]string
	// Resync, when set, renders the statement that moves the id generator
	// past rows written with an explicit id.
	Resync func(table string) string
}

var (
	// SQLite uses "?" placeholders and an autoincrement rowid alias.
	SQLite = Dialect{
		Name:        "sqlite",
		Placeholder: func(int) string { return "?" },
		Returning:   true,
		IDColumn:    "INTEGER PRIMARY KEY AUTOINCREMENT",
		Types:       map[plasm.Kind]string{plasm.KindInteger: "INTEGER", plasm.KindString: "TEXT"},
	}
	// Postgres uses numbered placeholders and an identity column.
	Postgres = Dialect{
		Name:        "postgres",
		Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
		Returning:   true,
		IDColumn:    "BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY",
		Types:       map[plasm.Kind]string{plasm.KindInteger: "BIGINT", plasm.KindString: "TEXT"},
		Resync:      pgResync,
	}
)

// DialectFor resolves a dialect from a database/sql driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "pgx", "postgres", "postgresql":
		return Postgres, nil
	default:
		return Dialect{}, fmt.Errorf("repo: unsupported driver %q", driver)
	}
}

func quote(ident string) string { return `"` + ident + `"` }

// pgResync advances the identity sequence to the table's current maximum id.
// An identity column does not observe explicit ids, so without it the next
// generated id may already be taken.
func pgResync(table string) string {
	return fmt.Sprintf("SELECT setval(pg_get_serial_sequence('%s', '%s'), (SELECT max(%s) FROM %s))",
		quote(table), plasm.IDField, quote(plasm.IDField), quote(table))
}

func quoteAll(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quote(c)
	}
	return strings.Join(quoted, ", ")
}

func (d Dialect) placeholders(n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = d.Placeholder(i + 1)
	}
	return strings.Join(ps, ", ")
}

// insertSQL renders a plain insert for an entity without an id. The engine
// assigns the id; a collision fails instead of overwriting a row.
func (d Dialect) insertSQL(table string, cols []string, returning bool) string {
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quote(table), quoteAll(cols), d.placeholders(len(cols)))
	if returning {
		q += " RETURNING " + quote(plasm.IDField)
	}
	return q
}

// upsertSQL renders the idempotent write for cols, which must include the id.
func (d Dialect) upsertSQL(table string, cols []string, returning bool) string {
	b := &strings.Builder{}
	fmt.Fprintf(b, "INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) ",
		quote(table), quoteAll(cols), d.placeholders(len(cols)), quote(plasm.IDField))
	var sets []string
	for _, c := range cols {
		if c == plasm.IDField {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = excluded.%s", quote(c), quote(c)))
	}
	if len(sets) == 0 {
		b.WriteString("DO NOTHING")
	} else {
		b.WriteString("DO UPDATE SET ")
		b.WriteString(strings.Join(sets, ", "))
	}
	if returning {
		fmt.Fprintf(b, " RETURNING %s", quote(plasm.IDField))
	}
	return b.String()
}

func (d Dialect) selectSQL(s *plasm.SchemaDefinition) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		quoteAll(s.FieldNames()), quote(s.Name()), quote(plasm.IDField), d.Placeholder(1))
}

func (d Dialect) createTableSQL(s *plasm.SchemaDefinition) string {
	defs := make([]string, 0, len(s.Fields()))
	for _, f := range s.Fields() {
		if f.Name == plasm.IDField {
			defs = append(defs, quote(f.Name)+" "+d.IDColumn)
			continue
		}
		defs = append(defs, quote(f.Name)+" "+d.Types[f.Kind])
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quote(s.Name()), strings.Join(defs, ", "))
}
