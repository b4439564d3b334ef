package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path in read-only mode
// with a busy timeout.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// Pragmas apply per connection; pin the pool to one so they hold.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA query_only=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query")
	}
	defer rows.Close()
	return collectRows(rows)
}

func (s *SQLiteStore) LatestPeriod(ctx context.Context) (string, error) {
	var label string
	err := s.db.QueryRowContext(ctx,
		`SELECT raw_label FROM dim_period WHERE sort_key IS NOT NULL ORDER BY sort_key DESC LIMIT 1`,
	).Scan(&label)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrap(err, "sqlite: latest period")
	}
	return label, nil
}

func (s *SQLiteStore) PeriodLabels(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT raw_label FROM dim_period WHERE sort_key IS NOT NULL ORDER BY sort_key DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: period labels")
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan period label")
		}
		labels = append(labels, l)
	}
	return labels, eris.Wrap(rows.Err(), "sqlite: period labels")
}

func (s *SQLiteStore) SchemaTables(ctx context.Context) ([]TableSchema, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type IN ('table','view') AND name NOT LIKE 'sqlite_%' ORDER BY name`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list tables")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan table name")
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: list tables")
	}

	var tables []TableSchema
	for _, name := range names {
		cols, err := s.tableColumns(ctx, name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, TableSchema{Name: name, Columns: cols})
	}
	return tables, nil
}

func (s *SQLiteStore) tableColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: table_info %s", table)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var (
			cid       int
			name, typ string
			notNull   int
			dflt      sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, eris.Wrapf(err, "sqlite: scan table_info %s", table)
		}
		cols = append(cols, name)
	}
	return cols, eris.Wrapf(rows.Err(), "sqlite: table_info %s", table)
}

// collectRows drains a *sql.Rows into generic tuples.
func collectRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: columns")
	}

	var out []Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan row")
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		out = append(out, Row(vals))
	}
	return out, eris.Wrap(rows.Err(), "sqlite: rows")
}
