package dbms

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/EuPathDB/WSF/pkg/wdkerr"

	// Database drivers for the supported platforms.
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/trinodb/trino-go-client/trino"
)

// Platform executes SQL against one database.
type Platform interface {
	// Name returns the platform name.
	Name() string

	// Dialect returns the SQL dialect.
	Dialect() Dialect

	// Query executes f and returns a cursor over its rows. The caller
	// must close the cursor.
	Query(ctx context.Context, f Fragment) (Cursor, error)

	// Scalar executes f and returns the first column of its first row.
	Scalar(ctx context.Context, f Fragment) (any, error)

	// PagedSQL limits f to rows [start, end], 1-based inclusive.
	PagedSQL(f Fragment, start, end int) (Fragment, error)

	// ExceptOperator returns the set difference keyword.
	ExceptOperator() string

	// Close releases the connection pool.
	Close() error
}

// Options configures Open.
type Options struct {
	// Platform is the platform name.
	Platform string

	// DSN is the driver data source name.
	DSN string

	// MaxOpenConns limits the pool size. Zero leaves the driver default.
	MaxOpenConns int

	// ConnMaxLifetime limits connection reuse. Zero leaves the driver default.
	ConnMaxLifetime time.Duration
}

// SQLPlatform is a Platform over database/sql.
type SQLPlatform struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLPlatform wraps an open database handle.
func NewSQLPlatform(db *sql.DB, dialect Dialect) *SQLPlatform {
	return &SQLPlatform{db: db, dialect: dialect}
}

// Open connects to the configured platform and verifies the connection.
func Open(ctx context.Context, opts Options) (*SQLPlatform, error) {
	dialect, err := DialectFor(opts.Platform)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dialect.DriverName(), opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", opts.Platform, err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging %s database: %w", opts.Platform, err)
	}

	slog.Info("database platform opened", "platform", dialect.Name())
	return NewSQLPlatform(db, dialect), nil
}

// DB returns the underlying handle.
func (p *SQLPlatform) DB() *sql.DB {
	return p.db
}

// Name returns the platform name.
func (p *SQLPlatform) Name() string {
	return p.dialect.Name()
}

// Dialect returns the SQL dialect.
func (p *SQLPlatform) Dialect() Dialect {
	return p.dialect
}

// Native rebinds the "?" placeholders of sqlText to the platform syntax.
func (p *SQLPlatform) Native(sqlText string) (string, error) {
	native, err := p.dialect.Placeholder().ReplacePlaceholders(sqlText)
	if err != nil {
		return "", fmt.Errorf("rebinding placeholders: %w", err)
	}
	return native, nil
}

// Query executes f.
func (p *SQLPlatform) Query(ctx context.Context, f Fragment) (Cursor, error) {
	native, err := p.Native(f.SQL)
	if err != nil {
		return nil, wdkerr.DataAccess("preparing query", f.SQL, err)
	}

	start := time.Now()
	rows, err := p.db.QueryContext(ctx, native, f.Args...)
	if err != nil {
		return nil, wdkerr.DataAccess("executing query", native, err)
	}
	slog.Debug("query executed", "platform", p.Name(), "duration", time.Since(start), "sql", native)

	cursor, err := NewSQLCursor(rows)
	if err != nil {
		return nil, wdkerr.DataAccess("opening cursor", native, err)
	}
	return cursor, nil
}

// Scalar executes f and returns the first column of the first row.
func (p *SQLPlatform) Scalar(ctx context.Context, f Fragment) (any, error) {
	native, err := p.Native(f.SQL)
	if err != nil {
		return nil, wdkerr.DataAccess("preparing scalar query", f.SQL, err)
	}

	var v any
	if err := p.db.QueryRowContext(ctx, native, f.Args...).Scan(&v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, wdkerr.DataAccess("executing scalar query", native, ErrNoRow)
		}
		return nil, wdkerr.DataAccess("executing scalar query", native, err)
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	return v, nil
}

// PagedSQL delegates to the dialect.
func (p *SQLPlatform) PagedSQL(f Fragment, start, end int) (Fragment, error) {
	return p.dialect.PagedSQL(f, start, end)
}

// ExceptOperator delegates to the dialect.
func (p *SQLPlatform) ExceptOperator() string {
	return p.dialect.ExceptOperator()
}

// Close closes the pool.
func (p *SQLPlatform) Close() error {
	if err := p.db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// ScalarInt converts a driver scalar to int.
func ScalarInt(v any) (int, error) {
	switch n := v.(type) {
	case int64:
		return int(n), nil
	case int32:
		return int(n), nil
	case int:
		return n, nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("scalar %v is not an integer", n)
		}
		return int(n), nil
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, fmt.Errorf("parsing scalar %q: %w", n, err)
		}
		return i, nil
	case nil:
		return 0, errors.New("scalar is NULL")
	default:
		return 0, fmt.Errorf("unsupported scalar type %T", v)
	}
}

// Verify interface compliance.
var _ Platform = (*SQLPlatform)(nil)
