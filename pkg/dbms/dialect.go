package dbms

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	sq "github.com/Masterminds/squirrel"
)

// Supported platform names.
const (
	PlatformPostgres = "postgres"
	PlatformSQLite   = "sqlite"
	PlatformTrino    = "trino"
	PlatformOracle   = "oracle"
)

// ErrInvalidRange is returned for a page window with startIndex < 1 or
// endIndex < startIndex.
var ErrInvalidRange = errors.New("invalid page range")

// Dialect captures the syntax differences between database engines.
type Dialect interface {
	// Name returns the platform name.
	Name() string

	// DriverName returns the database/sql driver name.
	DriverName() string

	// Placeholder returns the native bind parameter format.
	Placeholder() sq.PlaceholderFormat

	// Subquery renders "(sql) alias" in the engine's derived-table syntax.
	Subquery(sql, alias string) string

	// PagedSQL limits f to rows [start, end], 1-based inclusive.
	PagedSQL(f Fragment, start, end int) (Fragment, error)

	// ExceptOperator returns the set difference keyword.
	ExceptOperator() string

	// Dual returns the FROM clause a table-less SELECT needs, or "".
	Dual() string
}

type dialectFactory func() Dialect

var dialects = map[string]dialectFactory{
	PlatformPostgres: func() Dialect { return postgresDialect{} },
	PlatformSQLite:   func() Dialect { return sqliteDialect{} },
	PlatformTrino:    func() Dialect { return trinoDialect{} },
	PlatformOracle:   func() Dialect { return oracleDialect{} },
}

// DialectFor returns the dialect registered under name.
func DialectFor(name string) (Dialect, error) {
	factory, ok := dialects[name]
	if !ok {
		return nil, fmt.Errorf("unknown database platform %q (supported: %v)", name, DialectNames())
	}
	return factory(), nil
}

// DialectNames returns the supported platform names, sorted.
func DialectNames() []string {
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func checkRange(start, end int) error {
	if start < 1 || end < start {
		return fmt.Errorf("%w: [%d, %d]", ErrInvalidRange, start, end)
	}
	return nil
}

// asDerived renders "(sql) AS alias", accepted by every engine except Oracle.
func asDerived(sql, alias string) string {
	return "(" + sql + ") AS " + alias
}

// limitOffset appends LIMIT/OFFSET to the statement itself so an ORDER BY
// in f stays authoritative.
func limitOffset(f Fragment, start, end int) (Fragment, error) {
	if err := checkRange(start, end); err != nil {
		return Fragment{}, err
	}
	return Render(sq.ConcatExpr(f, " LIMIT "+strconv.Itoa(end-start+1)+" OFFSET "+strconv.Itoa(start-1)))
}

type postgresDialect struct{}

func (postgresDialect) Name() string                      { return PlatformPostgres }
func (postgresDialect) DriverName() string                { return "postgres" }
func (postgresDialect) Placeholder() sq.PlaceholderFormat { return sq.Dollar }
func (postgresDialect) Subquery(sql, alias string) string { return asDerived(sql, alias) }
func (postgresDialect) ExceptOperator() string            { return "EXCEPT" }
func (postgresDialect) Dual() string                      { return "" }

func (postgresDialect) PagedSQL(f Fragment, start, end int) (Fragment, error) {
	return limitOffset(f, start, end)
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string                      { return PlatformSQLite }
func (sqliteDialect) DriverName() string                { return "sqlite3" }
func (sqliteDialect) Placeholder() sq.PlaceholderFormat { return sq.Question }
func (sqliteDialect) Subquery(sql, alias string) string { return asDerived(sql, alias) }
func (sqliteDialect) ExceptOperator() string            { return "EXCEPT" }
func (sqliteDialect) Dual() string                      { return "" }

func (sqliteDialect) PagedSQL(f Fragment, start, end int) (Fragment, error) {
	return limitOffset(f, start, end)
}

type trinoDialect struct{}

func (trinoDialect) Name() string                      { return PlatformTrino }
func (trinoDialect) DriverName() string                { return "trino" }
func (trinoDialect) Placeholder() sq.PlaceholderFormat { return sq.Question }
func (trinoDialect) Subquery(sql, alias string) string { return asDerived(sql, alias) }
func (trinoDialect) ExceptOperator() string            { return "EXCEPT" }
func (trinoDialect) Dual() string                      { return "" }

// PagedSQL uses OFFSET before LIMIT, the only order Trino accepts.
func (trinoDialect) PagedSQL(f Fragment, start, end int) (Fragment, error) {
	if err := checkRange(start, end); err != nil {
		return Fragment{}, err
	}
	return Render(sq.ConcatExpr(f, " OFFSET "+strconv.Itoa(start-1)+" LIMIT "+strconv.Itoa(end-start+1)))
}

type oracleDialect struct{}

func (oracleDialect) Name() string                      { return PlatformOracle }
func (oracleDialect) DriverName() string                { return "godror" }
func (oracleDialect) Placeholder() sq.PlaceholderFormat { return sq.Colon }
func (oracleDialect) ExceptOperator() string            { return "MINUS" }
func (oracleDialect) Dual() string                      { return " FROM dual" }

// Subquery omits AS, which Oracle rejects for table aliases.
func (oracleDialect) Subquery(sql, alias string) string {
	return "(" + sql + ") " + alias
}

// PagedSQL wraps f in a ROWNUM window. ROWNUM is assigned after the ORDER
// BY of the inner statement.
func (d oracleDialect) PagedSQL(f Fragment, start, end int) (Fragment, error) {
	if err := checkRange(start, end); err != nil {
		return Fragment{}, err
	}
	inner, err := FromBuilder(
		sq.Select("pq.*", "ROWNUM AS row_index").
			From(d.Subquery(f.SQL, "pq")).
			Where(sq.LtOrEq{"ROWNUM": end}),
		f,
	)
	if err != nil {
		return Fragment{}, err
	}
	return FromBuilder(
		sq.Select("*").
			From(d.Subquery(inner.SQL, "pw")).
			Where(sq.GtOrEq{"row_index": start}),
		inner,
	)
}

// Verify interface compliance.
var (
	_ Dialect = postgresDialect{}
	_ Dialect = sqliteDialect{}
	_ Dialect = trinoDialect{}
	_ Dialect = oracleDialect{}
)
