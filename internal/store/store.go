package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/diamant-gtfs/internal/common/db"
	"github.com/diamant-gtfs/internal/common/logger"
	"github.com/diamant-gtfs/internal/patterns"
)

// ErrStore marks every failure raised by the store.
var ErrStore = errors.New("store error")

// ErrUnknownKind is returned for a pattern kind without tables.
var ErrUnknownKind = errors.New("unknown pattern kind")

type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() []error {
	return []error{ErrStore, e.Err}
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// Store runs the visit, pattern and catalogue queries over a GTFS database.
type Store struct {
	db     *db.DB
	logger logger.Logger
}

func New(database *db.DB) *Store {
	return &Store{
		db:     database,
		logger: database.Logger(),
	}
}

func (s *Store) DB() *db.DB {
	return s.db
}

type kindTables struct {
	patterns    string
	assignments string
}

var kinds = map[patterns.Kind]kindTables{
	patterns.ServiceRoute: {patterns: "service_routes", assignments: "trips2service_routes"},
	patterns.Course:       {patterns: "courses", assignments: "trips2courses"},
}

func tablesFor(kind patterns.Kind) (kindTables, error) {
	t, ok := kinds[kind]
	if !ok {
		return kindTables{}, fmt.Errorf("%q: %w", kind, ErrUnknownKind)
	}
	return t, nil
}

func schemaStatements() []string {
	var stmts []string
	for _, kind := range []patterns.Kind{patterns.ServiceRoute, patterns.Course} {
		t := kinds[kind]
		stmts = append(stmts,
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id INTEGER NOT NULL,
	name TEXT NOT NULL,
	direction_id INTEGER NOT NULL,
	PRIMARY KEY (id, direction_id)
)`, t.patterns),
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	trip_id TEXT NOT NULL PRIMARY KEY,
	id INTEGER NOT NULL,
	direction_id INTEGER NOT NULL
)`, t.assignments),
		)
	}
	return append(stmts, `CREATE TABLE IF NOT EXISTS pattern_runs (
	run_id TEXT NOT NULL PRIMARY KEY,
	kind TEXT NOT NULL,
	strategy TEXT NOT NULL,
	bootstrapped INTEGER NOT NULL,
	pattern_count INTEGER NOT NULL,
	assignment_count INTEGER NOT NULL,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL
)`)
}

// EnsureSchema creates the pattern and run tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return wrap("ensure schema", s.db.ExecStatements(ctx, s.db.DB(), schemaStatements()))
}

// tableExists reports whether table is present. A feed imported without an
// identification pass has no pattern or run tables.
func (s *Store) tableExists(ctx context.Context, table string) (bool, error) {
	query := "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?"
	if s.db.Dialect() == db.Postgres {
		query = "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = ?"
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, table).Scan(&n); err != nil {
		return false, fmt.Errorf("looking up table %s: %w", table, err)
	}
	return n > 0, nil
}

const insertChunk = 500

// insertRows writes rows into table with multi-row inserts.
func (s *Store) insertRows(ctx context.Context, tx *sql.Tx, table string, columns []string, rows [][]interface{}) error {
	row := "(" + db.Placeholders(len(columns)) + ")"
	for start := 0; start < len(rows); start += insertChunk {
		end := start + insertChunk
		if end > len(rows) {
			end = len(rows)
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", table, strings.Join(columns, ", "))
		args := make([]interface{}, 0, (end-start)*len(columns))
		for i, r := range rows[start:end] {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(row)
			args = append(args, r...)
		}

		if _, err := tx.ExecContext(ctx, s.db.Rebind(sb.String()), args...); err != nil {
			return fmt.Errorf("inserting into %s: %w", table, err)
		}
	}
	return nil
}

// likeEscape escapes LIKE wildcards so s matches literally.
func likeEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func inClause(column string, n int) string {
	return column + " IN (" + db.Placeholders(n) + ")"
}

func stringArgs(values []string) []interface{} {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
