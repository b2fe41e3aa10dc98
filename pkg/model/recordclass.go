package model

import (
	"strings"

	"github.com/EuPathDB/WSF/pkg/query"
	"github.com/EuPathDB/WSF/pkg/wdkerr"
)

// RecordClass is an entity type: its primary key, attributes, attribute
// queries, filters and reporters.
type RecordClass struct {
	FullName    string
	DisplayName string
	PrimaryKey  *PrimaryKeyField

	attributes       []AttributeField
	attributeIndex   map[string]AttributeField
	attributeQueries []*query.Query
	filters          []*Filter
	reporters        []ReporterRef
}

// NewRecordClass creates a record class with the given primary key. The
// key is registered as the first attribute.
func NewRecordClass(fullName string, pk *PrimaryKeyField) (*RecordClass, error) {
	if pk == nil || len(pk.Columns) == 0 {
		return nil, wdkerr.ModelConfiguration("record class %s declares no primary key columns", fullName)
	}
	if pk.FieldName == "" {
		pk.FieldName = "primary_key"
	}
	rc := &RecordClass{
		FullName:       fullName,
		PrimaryKey:     pk,
		attributeIndex: map[string]AttributeField{},
	}
	if err := rc.AddAttribute(pk); err != nil {
		return nil, err
	}
	return rc, nil
}

// PrimaryKeyColumns returns the primary-key column names.
func (rc *RecordClass) PrimaryKeyColumns() []string {
	return rc.PrimaryKey.Columns
}

// IsPrimaryKeyColumn reports whether name is a primary-key column.
func (rc *RecordClass) IsPrimaryKeyColumn(name string) bool {
	for _, c := range rc.PrimaryKey.Columns {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

// AddAttribute registers a field. Names must be unique.
func (rc *RecordClass) AddAttribute(f AttributeField) error {
	if f.Name() == "" {
		return wdkerr.ModelConfiguration("record class %s has an attribute without a name", rc.FullName)
	}
	if _, dup := rc.attributeIndex[f.Name()]; dup {
		return wdkerr.ModelConfiguration("record class %s declares attribute %s twice", rc.FullName, f.Name())
	}
	rc.attributes = append(rc.attributes, f)
	rc.attributeIndex[f.Name()] = f
	return nil
}

// AddAttributeQuery registers q and a column field for each of its
// non-key columns. q must return every primary-key column.
func (rc *RecordClass) AddAttributeQuery(q *query.Query) error {
	for _, pk := range rc.PrimaryKey.Columns {
		if _, ok := q.Column(pk); !ok {
			return wdkerr.ModelConfiguration("attribute query %s of %s does not return primary key column %s",
				q.FullName(), rc.FullName, pk)
		}
	}
	if len(q.Params) > 0 {
		return wdkerr.ModelConfiguration("attribute query %s of %s must not declare params", q.FullName(), rc.FullName)
	}
	for _, c := range q.Columns {
		if rc.IsPrimaryKeyColumn(c.Name) {
			continue
		}
		f := &ColumnField{FieldBase: FieldBase{FieldName: c.Name}, Column: c, Query: q}
		if err := rc.AddAttribute(f); err != nil {
			return err
		}
	}
	rc.attributeQueries = append(rc.attributeQueries, q)
	return nil
}

// AttributeQueries returns the attribute queries in declaration order.
func (rc *RecordClass) AttributeQueries() []*query.Query {
	return rc.attributeQueries
}

// AttributeFields returns every attribute in declaration order, the primary
// key first.
func (rc *RecordClass) AttributeFields() []AttributeField {
	return rc.attributes
}

// AttributeField returns the named attribute.
func (rc *RecordClass) AttributeField(name string) (AttributeField, error) {
	f, ok := rc.attributeIndex[name]
	if !ok {
		return nil, wdkerr.ModelConfiguration("record class %s has no attribute %s", rc.FullName, name)
	}
	return f, nil
}

// AddFilter registers a filter.
func (rc *RecordClass) AddFilter(f *Filter) error {
	if err := f.validate(rc.FullName); err != nil {
		return err
	}
	for _, existing := range rc.filters {
		if existing.Name == f.Name {
			return wdkerr.ModelConfiguration("record class %s declares filter %s twice", rc.FullName, f.Name)
		}
	}
	rc.filters = append(rc.filters, f)
	return nil
}

// Filter returns the named filter. An unknown name is a model
// configuration error.
func (rc *RecordClass) Filter(name string) (*Filter, error) {
	for _, f := range rc.filters {
		if f.Name == name {
			return f, nil
		}
	}
	return nil, wdkerr.ModelConfiguration("filter %s is not defined for record class %s", name, rc.FullName)
}

// Filters returns the filters in declaration order.
func (rc *RecordClass) Filters() []*Filter {
	return rc.filters
}

// AddReporter registers a reporter reference.
func (rc *RecordClass) AddReporter(r ReporterRef) error {
	if r.Name == "" || r.Implementation == "" {
		return wdkerr.ModelConfiguration("record class %s has a reporter without a name or implementation", rc.FullName)
	}
	for _, existing := range rc.reporters {
		if existing.Name == r.Name {
			return wdkerr.ModelConfiguration("record class %s declares reporter %s twice", rc.FullName, r.Name)
		}
	}
	rc.reporters = append(rc.reporters, r)
	return nil
}

// Reporter returns the named reporter reference.
func (rc *RecordClass) Reporter(name string) (ReporterRef, bool) {
	for _, r := range rc.reporters {
		if r.Name == name {
			return r, true
		}
	}
	return ReporterRef{}, false
}

// Reporters returns the reporter references in declaration order.
func (rc *RecordClass) Reporters() []ReporterRef {
	return rc.reporters
}

// validateDerived checks that text and link fields only reference known
// attributes.
func (rc *RecordClass) validateDerived(lookup func(string) (AttributeField, error)) error {
	for _, f := range rc.attributes {
		switch f.(type) {
		case *TextField, *LinkField:
			for _, dep := range f.Dependents() {
				if rc.IsPrimaryKeyColumn(dep) {
					continue
				}
				if _, err := lookup(dep); err != nil {
					return wdkerr.ModelConfiguration("attribute %s of %s references unknown attribute %s", f.Name(), rc.FullName, dep)
				}
			}
		}
	}
	return nil
}
