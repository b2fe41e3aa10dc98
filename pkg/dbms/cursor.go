package dbms

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

var (
	// ErrColumnNotFound is returned by Cursor.Get for a column the cursor
	// was not constructed with.
	ErrColumnNotFound = errors.New("column not found in result")

	// ErrNoRow is returned by Cursor.Get when the cursor is not positioned
	// on a row.
	ErrNoRow = errors.New("no current row")

	// ErrCursorClosed is returned by Cursor.Get after Close.
	ErrCursorClosed = errors.New("cursor is closed")

	// ErrShortRow is returned when an array row is narrower than the
	// declared columns.
	ErrShortRow = errors.New("result has fewer columns than the column definition")
)

// Cursor is a forward-only, column-named row cursor.
type Cursor interface {
	// Next advances to the next row. It returns false at the end of the
	// result or on error; check Err afterwards.
	Next() bool

	// Get returns the value of the named column on the current row.
	Get(column string) (any, error)

	// Columns returns the declared column names.
	Columns() []string

	// Err returns the error, if any, that ended iteration.
	Err() error

	// Close releases the underlying resources. It is idempotent.
	Close() error
}

// columnIndex maps lower-cased column names to their positions. Engines
// disagree on identifier case, model definitions are lower case.
func columnIndex(columns []string) map[string]int {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[strings.ToLower(c)] = i
	}
	return index
}

func lookup(index map[string]int, column string) (int, error) {
	i, ok := index[strings.ToLower(column)]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrColumnNotFound, column)
	}
	return i, nil
}

// SQLCursor wraps *sql.Rows.
type SQLCursor struct {
	rows    *sql.Rows
	columns []string
	index   map[string]int
	current []any
	err     error
	closed  bool
}

// NewSQLCursor creates a cursor over rows. The rows are closed if the
// column metadata cannot be read.
func NewSQLCursor(rows *sql.Rows) (*SQLCursor, error) {
	columns, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("reading result columns: %w", err)
	}
	return &SQLCursor{
		rows:    rows,
		columns: columns,
		index:   columnIndex(columns),
	}, nil
}

// Next advances the cursor.
func (c *SQLCursor) Next() bool {
	if c.closed || c.err != nil {
		return false
	}
	if !c.rows.Next() {
		c.current = nil
		c.err = c.rows.Err()
		return false
	}

	values := make([]any, len(c.columns))
	ptrs := make([]any, len(c.columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := c.rows.Scan(ptrs...); err != nil {
		c.current = nil
		c.err = fmt.Errorf("scanning row: %w", err)
		return false
	}
	for i, v := range values {
		if b, ok := v.([]byte); ok {
			values[i] = string(b)
		}
	}
	c.current = values
	return true
}

// Get returns the named column of the current row.
func (c *SQLCursor) Get(column string) (any, error) {
	i, err := lookup(c.index, column)
	if err != nil {
		return nil, err
	}
	if c.closed {
		return nil, ErrCursorClosed
	}
	if c.current == nil {
		return nil, ErrNoRow
	}
	return c.current[i], nil
}

// Columns returns the result column names.
func (c *SQLCursor) Columns() []string {
	return c.columns
}

// Err returns the iteration error.
func (c *SQLCursor) Err() error {
	return c.err
}

// Close closes the underlying rows once.
func (c *SQLCursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.current = nil
	if err := c.rows.Close(); err != nil {
		return fmt.Errorf("closing rows: %w", err)
	}
	return nil
}

// ArrayCursor iterates an in-memory relation.
type ArrayCursor struct {
	columns []string
	index   map[string]int
	rows    [][]any
	pos     int
	closed  bool
}

// NewArrayCursor creates a cursor over rows with the declared columns.
func NewArrayCursor(columns []string, rows [][]any) (*ArrayCursor, error) {
	for i, row := range rows {
		if len(row) < len(columns) {
			return nil, fmt.Errorf("row %d: %w", i, ErrShortRow)
		}
	}
	return &ArrayCursor{
		columns: columns,
		index:   columnIndex(columns),
		rows:    rows,
		pos:     -1,
	}, nil
}

// Next advances the cursor.
func (c *ArrayCursor) Next() bool {
	if c.pos >= len(c.rows) {
		return false
	}
	c.pos++
	return c.pos < len(c.rows)
}

// Get returns the named column of the current row.
func (c *ArrayCursor) Get(column string) (any, error) {
	i, err := lookup(c.index, column)
	if err != nil {
		return nil, err
	}
	if c.closed {
		return nil, ErrCursorClosed
	}
	if c.pos < 0 || c.pos >= len(c.rows) {
		return nil, ErrNoRow
	}
	return c.rows[c.pos][i], nil
}

// Columns returns the declared columns.
func (c *ArrayCursor) Columns() []string {
	return c.columns
}

// Err always returns nil.
func (*ArrayCursor) Err() error {
	return nil
}

// Close marks the cursor exhausted.
func (c *ArrayCursor) Close() error {
	c.closed = true
	c.pos = len(c.rows)
	return nil
}

// Drain reads every remaining row of c into memory and closes it. Rows hold
// the given columns in order, or every cursor column when none are given.
func Drain(c Cursor, columns ...string) ([][]any, error) {
	defer CloseQuietly(c, "drained cursor")

	if len(columns) == 0 {
		columns = c.Columns()
	}
	var rows [][]any
	for c.Next() {
		row := make([]any, len(columns))
		for i, col := range columns {
			v, err := c.Get(col)
			if err != nil {
				return nil, err
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// CloseQuietly closes c and logs a failure instead of returning it, so a
// close error never masks the error that is already propagating.
func CloseQuietly(c io.Closer, what string) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		slog.Warn("close failed", "resource", what, "error", err)
	}
}

// Verify interface compliance.
var (
	_ Cursor = (*SQLCursor)(nil)
	_ Cursor = (*ArrayCursor)(nil)
)
