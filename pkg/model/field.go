package model

import (
	"github.com/EuPathDB/WSF/pkg/query"
)

// AttributeField describes one attribute of a record. The implementations
// form a closed set: *PrimaryKeyField, *ColumnField, *TextField and
// *LinkField. Switch on the concrete type to handle each kind.
type AttributeField interface {
	// Name returns the attribute name.
	Name() string

	// DisplayName returns the label, falling back to the name.
	DisplayName() string

	// Help returns the descriptive text.
	Help() string

	// IsInternal reports whether the attribute is hidden from users.
	IsInternal() bool

	// TruncateTo returns the brief display length. Zero means no limit.
	TruncateTo() int

	// Dependents returns the names of the attributes the field is derived
	// from.
	Dependents() []string

	attributeField()
}

// FieldBase holds the attributes shared by every field kind.
type FieldBase struct {
	FieldName string `yaml:"name"`
	Display   string `yaml:"displayName,omitempty"`
	HelpText  string `yaml:"help,omitempty"`
	Internal  bool   `yaml:"internal,omitempty"`
	Truncate  int    `yaml:"truncateTo,omitempty"`
}

// Name returns the attribute name.
func (f *FieldBase) Name() string { return f.FieldName }

// DisplayName returns the label.
func (f *FieldBase) DisplayName() string {
	if f.Display != "" {
		return f.Display
	}
	return f.FieldName
}

// Help returns the descriptive text.
func (f *FieldBase) Help() string { return f.HelpText }

// IsInternal reports whether the field is hidden.
func (f *FieldBase) IsInternal() bool { return f.Internal }

// TruncateTo returns the brief display length.
func (f *FieldBase) TruncateTo() int { return f.Truncate }

func (*FieldBase) attributeField() {}

// Sortable reports whether answers can be ordered by f. Only the primary
// key and query columns have a SQL expression to sort on.
func Sortable(f AttributeField) bool {
	switch f.(type) {
	case *PrimaryKeyField, *ColumnField:
		return true
	}
	return false
}

// PrimaryKeyField identifies a record by one or more columns.
type PrimaryKeyField struct {
	FieldBase

	// Columns are the primary-key column names, in order.
	Columns []string

	// Text renders the key for display, with $$column$$ macros. Empty
	// joins the column values.
	Text string
}

// Dependents returns the key columns.
func (f *PrimaryKeyField) Dependents() []string { return f.Columns }

// ColumnField is an attribute produced by a column of an attribute query,
// or of the id query for a dynamic attribute.
type ColumnField struct {
	FieldBase

	// Column is the declared query column.
	Column query.Column

	// Query produces the column.
	Query *query.Query
}

// Dependents is empty for column fields.
func (*ColumnField) Dependents() []string { return nil }

// TextField is derived from other attributes by a $$name$$ template.
type TextField struct {
	FieldBase

	Text string
}

// Dependents returns the attributes referenced by the template.
func (f *TextField) Dependents() []string { return query.MacroNames(f.Text) }

// LinkField renders a hyperlink from two templates.
type LinkField struct {
	FieldBase

	DisplayText string
	URL         string
}

// Dependents returns the attributes referenced by either template.
func (f *LinkField) Dependents() []string {
	names := query.MacroNames(f.DisplayText)
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}
	for _, n := range query.MacroNames(f.URL) {
		if !seen[n] {
			names = append(names, n)
		}
	}
	return names
}

// Verify interface compliance.
var (
	_ AttributeField = (*PrimaryKeyField)(nil)
	_ AttributeField = (*ColumnField)(nil)
	_ AttributeField = (*TextField)(nil)
	_ AttributeField = (*LinkField)(nil)
)
