package model

import (
	"github.com/EuPathDB/WSF/pkg/dbms"
	"github.com/EuPathDB/WSF/pkg/query"
	"github.com/EuPathDB/WSF/pkg/wdkerr"
)

// IDSQLMacro is the macro a filter uses for the SQL it narrows.
const IDSQLMacro = "id_sql"

// Filter is a named SQL rewrite that narrows an id query. Its SQL must
// select the same columns as $$id_sql$$.
type Filter struct {
	Name        string `yaml:"name"`
	DisplayName string `yaml:"displayName,omitempty"`
	Description string `yaml:"description,omitempty"`
	SQL         string `yaml:"sql"`
}

func (f *Filter) validate(recordClass string) error {
	if f.Name == "" {
		return wdkerr.ModelConfiguration("record class %s has a filter without a name", recordClass)
	}
	names := query.MacroNames(f.SQL)
	if len(names) != 1 || names[0] != IDSQLMacro {
		return wdkerr.ModelConfiguration("filter %s of %s must reference $$%s$$ and no other macro", f.Name, recordClass, IDSQLMacro)
	}
	return nil
}

// Apply rewrites idSQL.
func (f *Filter) Apply(idSQL dbms.Fragment) (dbms.Fragment, error) {
	return query.ExpandMacros(f.SQL, query.FixedResolver(map[string]dbms.Fragment{IDSQLMacro: idSQL}))
}

// ReporterRef binds a reporter implementation to a record class.
type ReporterRef struct {
	Name           string            `yaml:"name"`
	DisplayName    string            `yaml:"displayName,omitempty"`
	Implementation string            `yaml:"implementation"`
	Properties     map[string]string `yaml:"properties,omitempty"`
}
