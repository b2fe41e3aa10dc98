package model

import (
	"github.com/EuPathDB/WSF/pkg/query"
	"github.com/EuPathDB/WSF/pkg/wdkerr"
)

// SortSpec orders an answer by one attribute.
type SortSpec struct {
	Attribute string `yaml:"attribute" json:"attribute"`
	Ascending bool   `yaml:"ascending" json:"ascending"`
}

// Question combines an id query with a record class. A question is
// immutable once the model is resolved.
type Question struct {
	FullName    string
	DisplayName string
	Description string
	RecordClass *RecordClass
	IDQuery     *query.Query

	// DefaultSorting applies when a request gives no sorting.
	DefaultSorting []SortSpec

	summary []string
	dynamic []AttributeField
	index   map[string]AttributeField
}

// NewQuestion creates a question. The id query must return every
// primary-key column of the record class.
func NewQuestion(fullName string, rc *RecordClass, idQuery *query.Query) (*Question, error) {
	if rc == nil || idQuery == nil {
		return nil, wdkerr.ModelConfiguration("question %s needs a record class and an id query", fullName)
	}
	for _, pk := range rc.PrimaryKeyColumns() {
		if _, ok := idQuery.Column(pk); !ok {
			return nil, wdkerr.ModelConfiguration("id query %s of question %s does not return primary key column %s",
				idQuery.FullName(), fullName, pk)
		}
	}
	q := &Question{
		FullName:    fullName,
		RecordClass: rc,
		IDQuery:     idQuery,
		index:       map[string]AttributeField{},
	}
	for _, f := range rc.AttributeFields() {
		q.index[f.Name()] = f
	}
	return q, nil
}

// AddDynamicAttribute exposes a non-key column of the id query as an
// attribute.
func (q *Question) AddDynamicAttribute(base FieldBase, column string) error {
	c, ok := q.IDQuery.Column(column)
	if !ok {
		return wdkerr.ModelConfiguration("dynamic attribute %s of %s: id query %s has no column %s",
			base.FieldName, q.FullName, q.IDQuery.FullName(), column)
	}
	if q.RecordClass.IsPrimaryKeyColumn(column) {
		return wdkerr.ModelConfiguration("dynamic attribute %s of %s maps primary key column %s",
			base.FieldName, q.FullName, column)
	}
	if base.FieldName == "" {
		base.FieldName = c.Name
	}
	if _, dup := q.index[base.FieldName]; dup {
		return wdkerr.ModelConfiguration("question %s declares attribute %s twice", q.FullName, base.FieldName)
	}
	f := &ColumnField{FieldBase: base, Column: c, Query: q.IDQuery}
	q.dynamic = append(q.dynamic, f)
	q.index[f.Name()] = f
	return nil
}

// SetSummaryAttributes sets the default summary attributes.
func (q *Question) SetSummaryAttributes(names []string) error {
	for _, name := range names {
		if _, err := q.AttributeField(name); err != nil {
			return err
		}
	}
	q.summary = append([]string(nil), names...)
	return nil
}

// AttributeFields returns the record class attributes followed by the
// dynamic attributes.
func (q *Question) AttributeFields() []AttributeField {
	out := make([]AttributeField, 0, len(q.RecordClass.AttributeFields())+len(q.dynamic))
	out = append(out, q.RecordClass.AttributeFields()...)
	return append(out, q.dynamic...)
}

// AttributeFieldMap returns every attribute by name.
func (q *Question) AttributeFieldMap() map[string]AttributeField {
	out := make(map[string]AttributeField, len(q.index))
	for k, v := range q.index {
		out[k] = v
	}
	return out
}

// AttributeField returns the named attribute. An unknown name is a model
// configuration error.
func (q *Question) AttributeField(name string) (AttributeField, error) {
	f, ok := q.index[name]
	if !ok {
		return nil, wdkerr.ModelConfiguration("question %s has no attribute %s", q.FullName, name)
	}
	return f, nil
}

// DynamicAttributeFields returns the attributes backed by the id query.
func (q *Question) DynamicAttributeFields() []AttributeField {
	return q.dynamic
}

// IsDynamic reports whether f is produced by the id query.
func (q *Question) IsDynamic(f *ColumnField) bool {
	return f.Query == q.IDQuery
}

// SummaryAttributeFields resolves names, or the default summary when names
// is empty, always starting with the primary key.
func (q *Question) SummaryAttributeFields(names []string) ([]AttributeField, error) {
	if len(names) == 0 {
		names = q.summary
	}
	pk := q.RecordClass.PrimaryKey
	fields := []AttributeField{pk}
	for _, name := range names {
		if name == pk.Name() {
			continue
		}
		f, err := q.AttributeField(name)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// SummaryAttributeFieldMap returns the default summary attributes by name.
func (q *Question) SummaryAttributeFieldMap() map[string]AttributeField {
	fields, _ := q.SummaryAttributeFields(nil) // names were validated by SetSummaryAttributes
	out := make(map[string]AttributeField, len(fields))
	for _, f := range fields {
		out[f.Name()] = f
	}
	return out
}

// IsCombined reports whether the id query takes another answer as input.
func (q *Question) IsCombined() bool {
	return q.IDQuery.IsCombined()
}
