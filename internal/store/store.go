package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/finqa-cli/internal/config"
)

// Row is one result tuple in column order. NULLs come back as nil.
type Row []any

// TableSchema describes one relation visible to the query layer.
type TableSchema struct {
	Name    string
	Columns []string
}

// Store is a read-only handle over the analytical star schema.
type Store interface {
	// Query executes a read statement with positional `?` placeholders.
	Query(ctx context.Context, sql string, args ...any) ([]Row, error)

	// LatestPeriod returns the raw label of the period with the maximum
	// sort key, or "" when no period has one.
	LatestPeriod(ctx context.Context) (string, error)

	// PeriodLabels returns all period labels with a sort key, most recent
	// first.
	PeriodLabels(ctx context.Context) ([]string, error)

	// SchemaTables lists tables and views with their columns.
	SchemaTables(ctx context.Context) ([]TableSchema, error)

	Close() error
}

// Open constructs a Store from configuration.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLite(cfg.Path)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

// Float extracts a float64 from a scanned value, handling the integer
// affinities SQLite hands back for whole numbers.
func Float(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

// String extracts a string from a scanned value.
func String(v any) (string, bool) {
	s, ok := v.(string)
	if ok {
		return s, true
	}
	b, ok := v.([]byte)
	if ok {
		return string(b), true
	}
	return "", false
}
