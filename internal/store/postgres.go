package store

import (
	"context"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool the store needs; satisfied by pgxmock.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// PostgresStore implements Store over an already-provisioned schema using
// a pgx connection pool. Provisioning (DDL, views, ingestion) is external.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	rows, err := s.pool.Query(ctx, rebind(query), args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query")
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, eris.Wrap(err, "postgres: row values")
		}
		out = append(out, Row(vals))
	}
	return out, eris.Wrap(rows.Err(), "postgres: rows")
}

func (s *PostgresStore) LatestPeriod(ctx context.Context) (string, error) {
	rows, err := s.Query(ctx,
		`SELECT raw_label FROM dim_period WHERE sort_key IS NOT NULL ORDER BY sort_key DESC LIMIT 1`)
	if err != nil {
		return "", eris.Wrap(err, "postgres: latest period")
	}
	if len(rows) == 0 {
		return "", nil
	}
	label, _ := String(rows[0][0])
	return label, nil
}

func (s *PostgresStore) PeriodLabels(ctx context.Context) ([]string, error) {
	rows, err := s.Query(ctx,
		`SELECT raw_label FROM dim_period WHERE sort_key IS NOT NULL ORDER BY sort_key DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: period labels")
	}
	labels := make([]string, 0, len(rows))
	for _, r := range rows {
		if l, ok := String(r[0]); ok {
			labels = append(labels, l)
		}
	}
	return labels, nil
}

func (s *PostgresStore) SchemaTables(ctx context.Context) ([]TableSchema, error) {
	rows, err := s.Query(ctx, `
		SELECT table_name, column_name
		FROM information_schema.columns
		WHERE table_schema = 'public'
		ORDER BY table_name, ordinal_position`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: schema tables")
	}

	var tables []TableSchema
	for _, r := range rows {
		table, _ := String(r[0])
		col, _ := String(r[1])
		if len(tables) == 0 || tables[len(tables)-1].Name != table {
			tables = append(tables, TableSchema{Name: table})
		}
		last := &tables[len(tables)-1]
		last.Columns = append(last.Columns, col)
	}
	return tables, nil
}

// rebind converts `?` placeholders to pgx's `$n` form. Question marks
// inside single-quoted literals are left alone.
func rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inString := false
	for _, r := range query {
		switch {
		case r == '\'':
			inString = !inString
			b.WriteRune(r)
		case r == '?' && !inString:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
