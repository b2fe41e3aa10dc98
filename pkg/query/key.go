package query

import (
	"context"

	"github.com/EuPathDB/WSF/pkg/dbms"
	"github.com/EuPathDB/WSF/pkg/wdkerr"
)

// KeyInstance is a leaf instance of exactly one primary key. It stands in
// for an id query when a single record is looked up by key.
type KeyInstance struct {
	query    *Query
	values   []string
	checksum string
}

// NewKeyInstance binds one value per key column. The synthetic query is
// named "<name>.key".
func NewKeyInstance(platform dbms.Platform, name string, columns, values []string) (*KeyInstance, error) {
	if platform == nil {
		return nil, wdkerr.ModelConfiguration("key lookup of %s needs a platform", name)
	}
	if len(columns) == 0 || len(columns) != len(values) {
		return nil, wdkerr.ModelConfiguration("key lookup of %s has %d columns but %d values", name, len(columns), len(values))
	}
	cols := make([]Column, len(columns))
	for i, c := range columns {
		cols[i] = Column{Name: c}
	}
	k := &KeyInstance{
		query: &Query{
			SetName:  name,
			Name:     "key",
			Columns:  cols,
			platform: platform,
			resolved: true,
		},
		values: append([]string(nil), values...),
	}
	k.checksum = Checksum(k.query.FullName(), k.Values())
	return k, nil
}

// Query returns the synthetic query.
func (k *KeyInstance) Query() *Query { return k.query }

// Kind returns KindLeaf.
func (*KeyInstance) Kind() Kind { return KindLeaf }

// Values maps each key column to its value.
func (k *KeyInstance) Values() map[string]string {
	out := make(map[string]string, len(k.values))
	for i, c := range k.query.ColumnNames() {
		out[c] = k.values[i]
	}
	return out
}

// Checksum identifies the key.
func (k *KeyInstance) Checksum() string { return k.checksum }

// SQL renders the key as a one-row relation.
func (k *KeyInstance) SQL(context.Context) (dbms.Fragment, error) {
	return LiteralRelation(k.query.platform.Dialect(), k.query.ColumnNames(), [][]string{k.values}), nil
}

// Results returns a cursor over the single row.
func (k *KeyInstance) Results(context.Context) (dbms.Cursor, error) {
	row := make([]any, len(k.values))
	for i, v := range k.values {
		row[i] = v
	}
	return dbms.NewArrayCursor(k.query.ColumnNames(), [][]any{row})
}

// ResultSize is always 1.
func (*KeyInstance) ResultSize(context.Context) (int, error) { return 1, nil }

// ResultMessage is always empty.
func (*KeyInstance) ResultMessage(context.Context) (string, error) { return "", nil }

// Verify interface compliance.
var _ Instance = (*KeyInstance)(nil)
