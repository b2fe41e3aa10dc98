// Package query defines queries, their parameters, and query instances: a
// query bound to concrete parameter values that can render SQL, execute,
// count its results, and identify itself by checksum.
package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/EuPathDB/WSF/pkg/dbms"
	"github.com/EuPathDB/WSF/pkg/wdkerr"
)

// Column is a declared output column of a query.
type Column struct {
	Name string `yaml:"name"`

	// SortingColumn, when set, is ordered by instead of Name.
	SortingColumn string `yaml:"sortingColumn,omitempty"`

	// IgnoreCase sorts on lower(column).
	IgnoreCase bool `yaml:"ignoreCase,omitempty"`
}

// SortExpression returns the column used in ORDER BY.
func (c Column) SortExpression() string {
	if c.SortingColumn != "" {
		return c.SortingColumn
	}
	return c.Name
}

// PluginInvoker runs a named plugin and returns its rows in column order
// together with its result message.
type PluginInvoker interface {
	InvokePlugin(ctx context.Context, plugin string, params map[string]string, columns []string) (rows [][]string, message string, err error)
}

// Query is a parameterized SQL or plugin query. A query is immutable once
// Resolve has succeeded and may be shared across requests.
type Query struct {
	SetName string
	Name    string

	// SQL is the template, with $$param$$ macros.
	SQL string

	// Plugin names a WSF plugin that produces the rows instead of SQL.
	Plugin string

	Columns []Column
	Params  []Param

	platform dbms.Platform
	invoker  PluginInvoker
	resolved bool
}

// FullName returns "set.name".
func (q *Query) FullName() string {
	return q.SetName + "." + q.Name
}

// Platform returns the platform the query runs on.
func (q *Query) Platform() dbms.Platform {
	return q.platform
}

// Column returns the declared column with the given name.
func (q *Query) Column(name string) (Column, bool) {
	for _, c := range q.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnNames returns the declared column names in order.
func (q *Query) ColumnNames() []string {
	names := make([]string, len(q.Columns))
	for i, c := range q.Columns {
		names[i] = c.Name
	}
	return names
}

// Param returns the declared parameter with the given name.
func (q *Query) Param(name string) (Param, bool) {
	for _, p := range q.Params {
		if Base(p).Name == name {
			return p, true
		}
	}
	return nil, false
}

// IsCombined reports whether the query takes another answer as input.
func (q *Query) IsCombined() bool {
	for _, p := range q.Params {
		if _, ok := p.(*AnswerParam); ok {
			return true
		}
	}
	return false
}

// Resolve validates the definition and binds it to a platform. invoker may
// be nil for queries without a plugin.
func (q *Query) Resolve(platform dbms.Platform, invoker PluginInvoker) error {
	if q.resolved {
		return nil
	}
	if q.Name == "" {
		return wdkerr.ModelConfiguration("query in set %s has no name", q.SetName)
	}
	if platform == nil {
		return wdkerr.ModelConfiguration("query %s has no database platform", q.FullName())
	}
	if len(q.Columns) == 0 {
		return wdkerr.ModelConfiguration("query %s declares no columns", q.FullName())
	}
	if (q.SQL == "") == (q.Plugin == "") {
		return wdkerr.ModelConfiguration("query %s must declare exactly one of sql or plugin", q.FullName())
	}
	if q.Plugin != "" && invoker == nil {
		return wdkerr.ModelConfiguration("query %s uses plugin %s but no plugin executor is configured", q.FullName(), q.Plugin)
	}

	seen := map[string]bool{}
	for _, c := range q.Columns {
		key := strings.ToLower(c.Name)
		if seen[key] {
			return wdkerr.ModelConfiguration("query %s declares column %s twice", q.FullName(), c.Name)
		}
		seen[key] = true
	}

	params := map[string]bool{}
	for _, p := range q.Params {
		b := Base(p)
		if b.Name == "" {
			return wdkerr.ModelConfiguration("query %s has a parameter without a name", q.FullName())
		}
		if params[b.Name] {
			return wdkerr.ModelConfiguration("query %s declares param %s twice", q.FullName(), b.Name)
		}
		params[b.Name] = true
		if sp, ok := p.(*StringParam); ok {
			if err := sp.Compile(); err != nil {
				return err
			}
		}
	}
	for _, name := range MacroNames(q.SQL) {
		if !params[name] {
			return wdkerr.ModelConfiguration("query %s references undeclared param $$%s$$", q.FullName(), name)
		}
	}

	q.platform = platform
	q.invoker = invoker
	q.resolved = true
	return nil
}

// bindValues applies defaults and validates values against the declared
// params. It returns the normalized value map.
func (q *Query) bindValues(values map[string]string) (map[string]string, error) {
	for name, v := range values {
		if _, ok := q.Param(name); !ok {
			return nil, wdkerr.ParameterValidation(name, "", v, fmt.Sprintf("not a parameter of query %s", q.FullName()))
		}
	}

	bound := make(map[string]string, len(q.Params))
	for _, p := range q.Params {
		b := Base(p)
		v, ok := values[b.Name]
		if !ok || v == "" {
			v = b.Default
		}
		if v == "" {
			if !b.AllowEmpty {
				return nil, wdkerr.ParameterValidation(b.Name, b.Prompt, "", "a value is required")
			}
			bound[b.Name] = b.EmptyValue
			continue
		}
		if err := p.Validate(v); err != nil {
			return nil, err
		}
		if e, ok := p.(*EnumParam); ok {
			v = e.Canonical(v)
		}
		bound[b.Name] = v
	}
	return bound, nil
}

// MakeInstance binds values and returns a leaf instance. Queries with an
// answer param need MakeTransformInstance.
func (q *Query) MakeInstance(values map[string]string) (Instance, error) {
	if !q.resolved {
		return nil, wdkerr.ModelConfiguration("query %s is not resolved", q.FullName())
	}
	if q.IsCombined() {
		return nil, wdkerr.ModelConfiguration("query %s takes an input answer; use a transform instance", q.FullName())
	}
	bound, err := q.bindValues(values)
	if err != nil {
		return nil, err
	}
	if q.Plugin != "" {
		return newPluginInstance(q, bound), nil
	}
	return newSQLInstance(q, bound, nil), nil
}

// MakeTransformInstance binds values plus one input instance per answer
// param. The value of each answer param becomes its input's checksum.
func (q *Query) MakeTransformInstance(values map[string]string, inputs map[string]Instance) (Instance, error) {
	if !q.resolved {
		return nil, wdkerr.ModelConfiguration("query %s is not resolved", q.FullName())
	}
	if !q.IsCombined() {
		return nil, wdkerr.ModelConfiguration("query %s takes no input answer", q.FullName())
	}
	if q.Plugin != "" {
		return nil, wdkerr.ModelConfiguration("plugin query %s cannot take an input answer", q.FullName())
	}

	merged := make(map[string]string, len(values)+len(inputs))
	for k, v := range values {
		merged[k] = v
	}
	for _, p := range q.Params {
		ap, ok := p.(*AnswerParam)
		if !ok {
			continue
		}
		in, ok := inputs[ap.Name]
		if !ok || in == nil {
			return nil, wdkerr.ParameterValidation(ap.Name, ap.Prompt, "", "an input answer is required")
		}
		merged[ap.Name] = in.Checksum()
	}
	for name := range inputs {
		if p, ok := q.Param(name); !ok {
			return nil, wdkerr.ModelConfiguration("query %s has no answer param %s", q.FullName(), name)
		} else if _, isAnswer := p.(*AnswerParam); !isAnswer {
			return nil, wdkerr.ModelConfiguration("param %s of query %s is not an answer param", name, q.FullName())
		}
	}

	bound, err := q.bindValues(merged)
	if err != nil {
		return nil, err
	}
	return newSQLInstance(q, bound, inputs), nil
}

// QuerySet is a named group of queries.
type QuerySet struct {
	Name    string
	queries map[string]*Query
	order   []string
}

// NewQuerySet creates an empty set.
func NewQuerySet(name string) *QuerySet {
	return &QuerySet{Name: name, queries: map[string]*Query{}}
}

// Add adds q to the set, setting its SetName.
func (s *QuerySet) Add(q *Query) error {
	if _, ok := s.queries[q.Name]; ok {
		return wdkerr.ModelConfiguration("query set %s already contains query %s", s.Name, q.Name)
	}
	q.SetName = s.Name
	s.queries[q.Name] = q
	s.order = append(s.order, q.Name)
	return nil
}

// Query returns the named query.
func (s *QuerySet) Query(name string) (*Query, error) {
	q, ok := s.queries[name]
	if !ok {
		return nil, wdkerr.ModelConfiguration("query set %s has no query %s", s.Name, name)
	}
	return q, nil
}

// Queries returns the queries in insertion order.
func (s *QuerySet) Queries() []*Query {
	out := make([]*Query, len(s.order))
	for i, name := range s.order {
		out[i] = s.queries[name]
	}
	return out
}
