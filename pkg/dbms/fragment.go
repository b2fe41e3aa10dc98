// Package dbms provides the database platform abstraction used by the query
// and answer layers: SQL fragments with bound arguments, forward-only result
// cursors, and per-engine dialects for paging and placeholder syntax.
//
// SQL inside this module is always written with "?" placeholders. A platform
// rebinds them to its native syntax only when a statement is executed, so
// fragments can be nested freely while composing.
package dbms

import (
	sq "github.com/Masterminds/squirrel"
)

// Fragment is a piece of SQL together with the arguments bound to its
// placeholders, in textual order.
type Fragment struct {
	SQL  string
	Args []any
}

// Raw creates a fragment from SQL text and arguments.
func Raw(sql string, args ...any) Fragment {
	return Fragment{SQL: sql, Args: args}
}

// ToSql implements squirrel.Sqlizer.
//
//nolint:revive // method name fixed by the squirrel.Sqlizer interface
func (f Fragment) ToSql() (string, []any, error) {
	return f.SQL, f.Args, nil
}

// IsZero reports whether the fragment has no SQL.
func (f Fragment) IsZero() bool {
	return f.SQL == ""
}

// String returns the SQL text.
func (f Fragment) String() string {
	return f.SQL
}

// Concat returns the arguments of fragments in order, for SQL that embeds
// their text in the same order.
func Concat(fragments ...Fragment) []any {
	var n int
	for _, f := range fragments {
		n += len(f.Args)
	}
	args := make([]any, 0, n)
	for _, f := range fragments {
		args = append(args, f.Args...)
	}
	return args
}

// FromBuilder renders a squirrel builder whose FROM clause textually embeds
// the given leading fragments. Their arguments precede every argument the
// builder itself produced.
func FromBuilder(b sq.Sqlizer, leading ...Fragment) (Fragment, error) {
	sql, args, err := b.ToSql()
	if err != nil {
		return Fragment{}, err
	}
	all := Concat(leading...)
	return Fragment{SQL: sql, Args: append(all, args...)}, nil
}

// Render converts any squirrel expression to a fragment.
func Render(s sq.Sqlizer) (Fragment, error) {
	sql, args, err := s.ToSql()
	if err != nil {
		return Fragment{}, err
	}
	return Fragment{SQL: sql, Args: args}, nil
}

// Verify interface compliance.
var _ sq.Sqlizer = Fragment{}
