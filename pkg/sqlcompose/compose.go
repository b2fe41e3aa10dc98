// Package sqlcompose builds the SQL that pages an answer: distinct id
// extraction, filtering, sort joins, paging windows, attribute joins and
// counts. It never executes anything.
package sqlcompose

import (
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/EuPathDB/WSF/pkg/dbms"
	"github.com/EuPathDB/WSF/pkg/wdkerr"
)

// Table aliases used in composed SQL.
const (
	aliasBaseID    = "bidq"
	aliasID        = "idq"
	aliasPagedID   = "pidq"
	aliasAttr      = "aq"
	aliasFiltered  = "f"
	aliasAmbiguous = "d"
)

// Rewriter narrows an id query. A nil Rewriter leaves the SQL unchanged.
type Rewriter interface {
	Apply(idSQL dbms.Fragment) (dbms.Fragment, error)
}

// SortKey is one resolved entry of a sort specification.
type SortKey struct {
	// Source identifies the attribute query that produces Column. Keys with
	// the same Source share one join. An empty Source sorts by the id
	// query's primary key columns and ignores SQL and Column.
	Source string

	// SQL is the attribute query SQL.
	SQL dbms.Fragment

	// Column is the column to order by.
	Column string

	// IgnoreCase orders by lower(Column).
	IgnoreCase bool

	// Ascending selects ASC over DESC.
	Ascending bool
}

// Composer builds SQL for one dialect.
type Composer struct {
	Dialect dbms.Dialect
}

// New creates a composer.
func New(d dbms.Dialect) Composer {
	return Composer{Dialect: d}
}

func checkPK(pkColumns []string) error {
	if len(pkColumns) == 0 {
		return wdkerr.ModelConfiguration("no primary key columns given")
	}
	for _, c := range pkColumns {
		if strings.TrimSpace(c) == "" {
			return wdkerr.ModelConfiguration("empty primary key column name")
		}
	}
	return nil
}

func qualify(alias string, columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = alias + "." + c
	}
	return out
}

func joinOn(left, right string, pkColumns []string) string {
	conds := make([]string, len(pkColumns))
	for i, c := range pkColumns {
		conds[i] = left + "." + c + " = " + right + "." + c
	}
	return strings.Join(conds, " AND ")
}

func applyFilter(inner dbms.Fragment, filter Rewriter) (dbms.Fragment, error) {
	if filter == nil {
		return inner, nil
	}
	return filter.Apply(inner)
}

// IDSQL renders SELECT DISTINCT <pk> FROM (<filtered inner>) bidq.
func (c Composer) IDSQL(inner dbms.Fragment, pkColumns []string, filter Rewriter) (dbms.Fragment, error) {
	if err := checkPK(pkColumns); err != nil {
		return dbms.Fragment{}, err
	}
	filtered, err := applyFilter(inner, filter)
	if err != nil {
		return dbms.Fragment{}, err
	}
	return dbms.FromBuilder(
		sq.Select(qualify(aliasBaseID, pkColumns)...).
			Distinct().
			From(c.Dialect.Subquery(filtered.SQL, aliasBaseID)),
		filtered,
	)
}

// SortPlan records the join alias assigned to each attribute query and the
// ORDER BY terms, both in first-seen order.
type SortPlan struct {
	Aliases []string
	Sources []string
	OrderBy []string

	bySource map[string]int
	seen     map[string]bool
}

func newSortPlan() *SortPlan {
	return &SortPlan{bySource: map[string]int{}, seen: map[string]bool{}}
}

// alias returns the alias for source, assigning aq0, aq1, ... on first use.
func (p *SortPlan) alias(source string) (string, bool) {
	if i, ok := p.bySource[source]; ok {
		return p.Aliases[i], false
	}
	a := aliasAttr + strconv.Itoa(len(p.Aliases))
	p.bySource[source] = len(p.Aliases)
	p.Aliases = append(p.Aliases, a)
	p.Sources = append(p.Sources, source)
	return a, true
}

// order adds a term unless the same expression is already ordered.
func (p *SortPlan) order(expr string, ascending bool) {
	if p.seen[expr] {
		return
	}
	p.seen[expr] = true
	dir := " DESC"
	if ascending {
		dir = " ASC"
	}
	p.OrderBy = append(p.OrderBy, expr+dir)
}

// Plan resolves sorting into aliases and ORDER BY terms without rendering.
// The id query's primary key columns always close the ORDER BY ascending so
// that rows with equal sort values page deterministically.
func Plan(sorting []SortKey, pkColumns []string) *SortPlan {
	plan := newSortPlan()
	for _, k := range sorting {
		if k.Source == "" {
			for _, col := range qualify(aliasID, pkColumns) {
				plan.order(col, k.Ascending)
			}
			continue
		}
		alias, _ := plan.alias(k.Source)
		expr := alias + "." + k.Column
		if k.IgnoreCase {
			expr = "lower(" + expr + ")"
		}
		plan.order(expr, k.Ascending)
	}
	for _, col := range qualify(aliasID, pkColumns) {
		plan.order(col, true)
	}
	return plan
}

// SortedIDSQL joins every attribute query needed by sorting to idSQL on the
// full primary key and orders by the sort keys.
func (c Composer) SortedIDSQL(idSQL dbms.Fragment, pkColumns []string, sorting []SortKey) (dbms.Fragment, error) {
	if err := checkPK(pkColumns); err != nil {
		return dbms.Fragment{}, err
	}

	plan := Plan(sorting, pkColumns)
	b := sq.Select(qualify(aliasID, pkColumns)...).
		From(c.Dialect.Subquery(idSQL.SQL, aliasID))

	joined := map[string]bool{}
	for _, k := range sorting {
		if k.Source == "" || joined[k.Source] {
			continue
		}
		joined[k.Source] = true
		alias := plan.Aliases[plan.bySource[k.Source]]
		b = b.JoinClause(sq.Expr(
			"JOIN "+c.Dialect.Subquery(k.SQL.SQL, alias)+" ON "+joinOn(aliasID, alias, pkColumns),
			k.SQL.Args...,
		))
	}
	if len(plan.OrderBy) > 0 {
		b = b.OrderBy(plan.OrderBy...)
	}
	return dbms.FromBuilder(b, idSQL)
}

// PagedIDSQL sorts idSQL and limits it to rows [start, end].
func (c Composer) PagedIDSQL(idSQL dbms.Fragment, pkColumns []string, sorting []SortKey, start, end int) (dbms.Fragment, error) {
	sorted, err := c.SortedIDSQL(idSQL, pkColumns, sorting)
	if err != nil {
		return dbms.Fragment{}, err
	}
	return c.Dialect.PagedSQL(sorted, start, end)
}

// PagedAttributeSQL restricts an attribute query to the rows of a page.
func (c Composer) PagedAttributeSQL(pagedIDSQL, attributeSQL dbms.Fragment, pkColumns []string) (dbms.Fragment, error) {
	if err := checkPK(pkColumns); err != nil {
		return dbms.Fragment{}, err
	}
	if attributeSQL.IsZero() {
		return dbms.Fragment{}, wdkerr.ModelConfiguration("empty attribute query SQL")
	}
	b := sq.Select(aliasAttr + ".*").
		From(c.Dialect.Subquery(pagedIDSQL.SQL, aliasPagedID)).
		JoinClause(sq.Expr(
			"JOIN "+c.Dialect.Subquery(attributeSQL.SQL, aliasAttr)+" ON "+joinOn(aliasAttr, aliasPagedID, pkColumns),
			attributeSQL.Args...,
		))
	return dbms.FromBuilder(b, pagedIDSQL)
}

// DistinctSQL renders SELECT DISTINCT <columns> FROM (<inner>) bidq.
func (c Composer) DistinctSQL(inner dbms.Fragment, columns []string) (dbms.Fragment, error) {
	if len(columns) == 0 {
		return dbms.Fragment{}, wdkerr.ModelConfiguration("no columns given")
	}
	return dbms.FromBuilder(
		sq.Select(qualify(aliasBaseID, columns)...).
			Distinct().
			From(c.Dialect.Subquery(inner.SQL, aliasBaseID)),
		inner,
	)
}

// AmbiguousKeyCountSQL counts the primary keys of inner that map to more
// than one distinct row of columns. columns must include pkColumns.
func (c Composer) AmbiguousKeyCountSQL(inner dbms.Fragment, pkColumns, columns []string) (dbms.Fragment, error) {
	if err := checkPK(pkColumns); err != nil {
		return dbms.Fragment{}, err
	}
	distinct, err := c.DistinctSQL(inner, columns)
	if err != nil {
		return dbms.Fragment{}, err
	}
	grouped, err := dbms.FromBuilder(
		sq.Select(qualify(aliasAmbiguous, pkColumns)...).
			From(c.Dialect.Subquery(distinct.SQL, aliasAmbiguous)).
			GroupBy(qualify(aliasAmbiguous, pkColumns)...).
			Having("count(*) > 1"),
		distinct,
	)
	if err != nil {
		return dbms.Fragment{}, err
	}
	return c.CountSQL(grouped)
}

// CountSQL renders SELECT count(*) FROM (<inner>) f.
func (c Composer) CountSQL(inner dbms.Fragment) (dbms.Fragment, error) {
	return dbms.FromBuilder(
		sq.Select("count(*)").From(c.Dialect.Subquery(inner.SQL, aliasFiltered)),
		inner,
	)
}

// FilterCountSQL counts the distinct primary keys of inner after filter.
func (c Composer) FilterCountSQL(inner dbms.Fragment, pkColumns []string, filter Rewriter) (dbms.Fragment, error) {
	idSQL, err := c.IDSQL(inner, pkColumns, filter)
	if err != nil {
		return dbms.Fragment{}, err
	}
	return c.CountSQL(idSQL)
}

// GroupCountSQL counts the distinct primary keys of the filtered inner SQL
// per value of column. column need not be a primary key column but must be
// returned by inner.
func (c Composer) GroupCountSQL(inner dbms.Fragment, pkColumns []string, filter Rewriter, column string) (dbms.Fragment, error) {
	if err := checkPK(pkColumns); err != nil {
		return dbms.Fragment{}, err
	}
	filtered, err := applyFilter(inner, filter)
	if err != nil {
		return dbms.Fragment{}, err
	}

	columns := pkColumns
	if !containsFold(pkColumns, column) {
		columns = append(append([]string(nil), pkColumns...), column)
	}
	distinct, err := dbms.FromBuilder(
		sq.Select(qualify(aliasBaseID, columns)...).
			Distinct().
			From(c.Dialect.Subquery(filtered.SQL, aliasBaseID)),
		filtered,
	)
	if err != nil {
		return dbms.Fragment{}, err
	}

	col := aliasFiltered + "." + column
	return dbms.FromBuilder(
		sq.Select(col, "count(*) AS cnt").
			From(c.Dialect.Subquery(distinct.SQL, aliasFiltered)).
			GroupBy(col).
			OrderBy(col),
		distinct,
	)
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
