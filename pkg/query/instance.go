package query

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/EuPathDB/WSF/pkg/dbms"
	"github.com/EuPathDB/WSF/pkg/wdkerr"
)

// Kind classifies a query instance.
type Kind int

const (
	// KindLeaf is a plain SQL or plugin query bound to values.
	KindLeaf Kind = iota

	// KindBoolean combines two instances with a set operator.
	KindBoolean

	// KindTransform runs a query over the result of another answer.
	KindTransform
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindBoolean:
		return "boolean"
	case KindTransform:
		return "transform"
	default:
		return "leaf"
	}
}

// Instance is a query bound to concrete values. Instances with equal
// checksums are interchangeable result sources.
//
// An instance memoizes its execution and is not safe for concurrent use.
type Instance interface {
	// Query returns the bound query.
	Query() *Query

	// Kind returns the instance kind.
	Kind() Kind

	// Values returns a copy of the bound values.
	Values() map[string]string

	// SQL renders the instance.
	SQL(ctx context.Context) (dbms.Fragment, error)

	// Checksum identifies the instance.
	Checksum() string

	// Results returns a fresh cursor over the memoized result.
	Results(ctx context.Context) (dbms.Cursor, error)

	// ResultSize returns the number of distinct result rows, or the total
	// reported by the result message when there is one.
	ResultSize(ctx context.Context) (int, error)

	// ResultMessage returns the side-channel message of the source, or "".
	ResultMessage(ctx context.Context) (string, error)
}

// memo holds the lazily computed execution state of an SQL-backed instance.
// A failed computation leaves it unset.
type memo struct {
	rows    [][]any
	fetched bool
	size    int
	sized   bool
}

func (m *memo) results(ctx context.Context, q *Query, render func(context.Context) (dbms.Fragment, error)) (dbms.Cursor, error) {
	if !m.fetched {
		f, err := render(ctx)
		if err != nil {
			return nil, err
		}
		cursor, err := q.platform.Query(ctx, f)
		if err != nil {
			return nil, err
		}
		rows, err := dbms.Drain(cursor, q.ColumnNames()...)
		if err != nil {
			return nil, wdkerr.DataAccess("reading results of "+q.FullName(), f.SQL, err)
		}
		m.rows = rows
		m.fetched = true
	}
	return dbms.NewArrayCursor(q.ColumnNames(), m.rows)
}

func (m *memo) resultSize(ctx context.Context, q *Query, render func(context.Context) (dbms.Fragment, error)) (int, error) {
	if m.sized {
		return m.size, nil
	}
	f, err := render(ctx)
	if err != nil {
		return 0, err
	}
	count, err := CountDistinctSQL(q.platform.Dialect(), f, q.ColumnNames())
	if err != nil {
		return 0, err
	}
	v, err := q.platform.Scalar(ctx, count)
	if err != nil {
		return 0, err
	}
	n, err := dbms.ScalarInt(v)
	if err != nil {
		return 0, wdkerr.DataAccess("counting results of "+q.FullName(), count.SQL, err)
	}
	m.size, m.sized = n, true
	return n, nil
}

// CountDistinctSQL counts the distinct rows of f projected to columns.
func CountDistinctSQL(d dbms.Dialect, f dbms.Fragment, columns []string) (dbms.Fragment, error) {
	distinct, err := dbms.FromBuilder(
		sq.Select(columns...).Distinct().From(d.Subquery(f.SQL, "rsq")),
		f,
	)
	if err != nil {
		return dbms.Fragment{}, err
	}
	return dbms.FromBuilder(
		sq.Select("count(*)").From(d.Subquery(distinct.SQL, "rsc")),
		distinct,
	)
}

func copyValues(values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}

// SQLInstance is a SQL query bound to values. With inputs it is a
// transform instance: each answer param macro expands to the SQL of its
// input instance.
type SQLInstance struct {
	query    *Query
	values   map[string]string
	inputs   map[string]Instance
	checksum string
	memo
}

func newSQLInstance(q *Query, values map[string]string, inputs map[string]Instance) *SQLInstance {
	return &SQLInstance{
		query:    q,
		values:   values,
		inputs:   inputs,
		checksum: Checksum(q.FullName(), values),
	}
}

// Query returns the bound query.
func (i *SQLInstance) Query() *Query { return i.query }

// Kind returns KindTransform when the instance has inputs.
func (i *SQLInstance) Kind() Kind {
	if len(i.inputs) > 0 {
		return KindTransform
	}
	return KindLeaf
}

// Values returns a copy of the bound values.
func (i *SQLInstance) Values() map[string]string { return copyValues(i.values) }

// Inputs returns the input instances of a transform.
func (i *SQLInstance) Inputs() map[string]Instance { return i.inputs }

// Checksum identifies the instance.
func (i *SQLInstance) Checksum() string { return i.checksum }

// SQL expands the query template.
func (i *SQLInstance) SQL(ctx context.Context) (dbms.Fragment, error) {
	return ExpandMacros(i.query.SQL, func(name string) (dbms.Fragment, error) {
		p, ok := i.query.Param(name)
		if !ok {
			return dbms.Fragment{}, wdkerr.ModelConfiguration("query %s references undeclared param $$%s$$", i.query.FullName(), name)
		}
		if _, isAnswer := p.(*AnswerParam); isAnswer {
			in, ok := i.inputs[name]
			if !ok {
				return dbms.Fragment{}, wdkerr.ModelConfiguration("query %s has no input for answer param %s", i.query.FullName(), name)
			}
			return in.SQL(ctx)
		}
		v := i.values[name]
		if b := Base(p); b.AllowEmpty && v == b.EmptyValue {
			if v == "" {
				return dbms.Raw("?", nil), nil
			}
			return dbms.Raw("?", v), nil
		}
		return p.Render(v)
	})
}

// Results executes the instance once and returns a cursor over its rows.
func (i *SQLInstance) Results(ctx context.Context) (dbms.Cursor, error) {
	return i.results(ctx, i.query, i.SQL)
}

// ResultSize counts distinct rows.
func (i *SQLInstance) ResultSize(ctx context.Context) (int, error) {
	return i.resultSize(ctx, i.query, i.SQL)
}

// ResultMessage is always empty for SQL instances.
func (*SQLInstance) ResultMessage(context.Context) (string, error) {
	return "", nil
}

// Verify interface compliance.
var _ Instance = (*SQLInstance)(nil)
