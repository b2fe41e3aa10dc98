package query

import (
	"context"
	"strings"

	"github.com/EuPathDB/WSF/pkg/dbms"
	"github.com/EuPathDB/WSF/pkg/wdkerr"
)

// Operator is a boolean set operator.
type Operator string

// Boolean operators.
const (
	OpAnd Operator = "AND"
	OpOr  Operator = "OR"
	OpNot Operator = "NOT"
)

// ParseOperator accepts AND, OR, NOT and the SQL names INTERSECT, UNION,
// EXCEPT and MINUS, in any case.
func ParseOperator(s string) (Operator, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "AND", "INTERSECT":
		return OpAnd, nil
	case "OR", "UNION":
		return OpOr, nil
	case "NOT", "EXCEPT", "MINUS":
		return OpNot, nil
	default:
		return "", wdkerr.ParameterValidation("operator", "Boolean operator", s, "must be AND, OR or NOT")
	}
}

func (op Operator) setOperator(platform dbms.Platform) string {
	switch op {
	case OpAnd:
		return "INTERSECT"
	case OpNot:
		return platform.ExceptOperator()
	default:
		return "UNION"
	}
}

// BooleanInstance combines two instances with a set operator over their
// primary-key projection.
type BooleanInstance struct {
	query       *Query
	op          Operator
	left, right Instance
	checksum    string
	memo
}

// NewBooleanInstance combines left and right. Both operands must declare
// every primary-key column and run on the same platform.
func NewBooleanInstance(op Operator, left, right Instance, pkColumns []string) (*BooleanInstance, error) {
	if _, err := ParseOperator(string(op)); err != nil {
		return nil, err
	}
	if left == nil || right == nil {
		return nil, wdkerr.ModelConfiguration("boolean %s needs two operands", op)
	}
	if len(pkColumns) == 0 {
		return nil, wdkerr.ModelConfiguration("boolean %s: no primary key columns", op)
	}

	lq, rq := left.Query(), right.Query()
	if lq.Platform() != rq.Platform() {
		return nil, wdkerr.ModelConfiguration("boolean %s: operands %s and %s run on different platforms", op, lq.FullName(), rq.FullName())
	}

	columns := make([]Column, 0, len(pkColumns))
	for _, name := range pkColumns {
		lc, ok := lq.Column(name)
		if !ok {
			return nil, wdkerr.ModelConfiguration("boolean %s: operand %s has no column %s", op, lq.FullName(), name)
		}
		if _, ok := rq.Column(name); !ok {
			return nil, wdkerr.ModelConfiguration("boolean %s: operand %s has no column %s", op, rq.FullName(), name)
		}
		columns = append(columns, lc)
	}

	return &BooleanInstance{
		query: &Query{
			SetName:  "boolean",
			Name:     strings.ToLower(string(op)),
			Columns:  columns,
			platform: lq.Platform(),
			resolved: true,
		},
		op:       op,
		left:     left,
		right:    right,
		checksum: booleanChecksum(op, left.Checksum(), right.Checksum()),
	}, nil
}

// Query returns the synthetic query describing the combination.
func (b *BooleanInstance) Query() *Query { return b.query }

// Kind returns KindBoolean.
func (*BooleanInstance) Kind() Kind { return KindBoolean }

// Operator returns the set operator.
func (b *BooleanInstance) Operator() Operator { return b.op }

// Operands returns the left and right instances.
func (b *BooleanInstance) Operands() (Instance, Instance) { return b.left, b.right }

// Values describes the combination.
func (b *BooleanInstance) Values() map[string]string {
	return map[string]string{
		"operator": string(b.op),
		"left":     b.left.Checksum(),
		"right":    b.right.Checksum(),
	}
}

// Checksum identifies the combination. Operand order is significant.
func (b *BooleanInstance) Checksum() string { return b.checksum }

// SQL renders "SELECT pk FROM (left) bl <op> SELECT pk FROM (right) br".
func (b *BooleanInstance) SQL(ctx context.Context) (dbms.Fragment, error) {
	l, err := b.left.SQL(ctx)
	if err != nil {
		return dbms.Fragment{}, err
	}
	r, err := b.right.SQL(ctx)
	if err != nil {
		return dbms.Fragment{}, err
	}

	d := b.query.platform.Dialect()
	pk := b.query.ColumnNames()
	project := func(alias string) string {
		cols := make([]string, len(pk))
		for i, c := range pk {
			cols[i] = alias + "." + c
		}
		return strings.Join(cols, ", ")
	}

	sql := "SELECT " + project("bl") + " FROM " + d.Subquery(l.SQL, "bl") +
		" " + b.op.setOperator(b.query.platform) + " " +
		"SELECT " + project("br") + " FROM " + d.Subquery(r.SQL, "br")
	return dbms.Fragment{SQL: sql, Args: dbms.Concat(l, r)}, nil
}

// Results executes the combination once.
func (b *BooleanInstance) Results(ctx context.Context) (dbms.Cursor, error) {
	return b.results(ctx, b.query, b.SQL)
}

// ResultSize counts distinct keys.
func (b *BooleanInstance) ResultSize(ctx context.Context) (int, error) {
	return b.resultSize(ctx, b.query, b.SQL)
}

// ResultMessage is always empty: set operations invalidate per-source counts.
func (*BooleanInstance) ResultMessage(context.Context) (string, error) {
	return "", nil
}

// Verify interface compliance.
var _ Instance = (*BooleanInstance)(nil)
