// Package model holds the resolved, read-only definition of questions,
// record classes, attribute fields, filters and query sets. A Model is built
// once at startup and shared by every request.
package model

import (
	"sort"
	"strings"

	"github.com/EuPathDB/WSF/pkg/dbms"
	"github.com/EuPathDB/WSF/pkg/query"
	"github.com/EuPathDB/WSF/pkg/wdkerr"
)

// Model is the process-wide cache of resolved definitions.
type Model struct {
	Name    string
	Version string

	platform      dbms.Platform
	querySets     map[string]*query.QuerySet
	recordClasses map[string]*RecordClass
	questions     map[string]*Question
}

// New creates an empty model bound to platform.
func New(name string, platform dbms.Platform) *Model {
	return &Model{
		Name:          name,
		platform:      platform,
		querySets:     map[string]*query.QuerySet{},
		recordClasses: map[string]*RecordClass{},
		questions:     map[string]*Question{},
	}
}

// Platform returns the platform queries run on.
func (m *Model) Platform() dbms.Platform {
	return m.platform
}

// AddQuerySet registers a query set.
func (m *Model) AddQuerySet(s *query.QuerySet) error {
	if _, dup := m.querySets[s.Name]; dup {
		return wdkerr.ModelConfiguration("query set %s is declared twice", s.Name)
	}
	m.querySets[s.Name] = s
	return nil
}

// AddRecordClass registers a record class.
func (m *Model) AddRecordClass(rc *RecordClass) error {
	if _, dup := m.recordClasses[rc.FullName]; dup {
		return wdkerr.ModelConfiguration("record class %s is declared twice", rc.FullName)
	}
	m.recordClasses[rc.FullName] = rc
	return nil
}

// AddQuestion registers a question.
func (m *Model) AddQuestion(q *Question) error {
	if _, dup := m.questions[q.FullName]; dup {
		return wdkerr.ModelConfiguration("question %s is declared twice", q.FullName)
	}
	m.questions[q.FullName] = q
	return nil
}

// ResolveQuery returns the query named "set.query".
func (m *Model) ResolveQuery(fullName string) (*query.Query, error) {
	setName, name, ok := strings.Cut(fullName, ".")
	if !ok {
		return nil, wdkerr.ModelConfiguration("query reference %q is not of the form set.query", fullName)
	}
	set, ok := m.querySets[setName]
	if !ok {
		return nil, wdkerr.ModelConfiguration("query set %s is not defined", setName)
	}
	return set.Query(name)
}

// Question returns the named question.
func (m *Model) Question(fullName string) (*Question, error) {
	q, ok := m.questions[fullName]
	if !ok {
		return nil, wdkerr.ModelConfiguration("question %s is not defined", fullName)
	}
	return q, nil
}

// Questions returns every question sorted by full name.
func (m *Model) Questions() []*Question {
	out := make([]*Question, 0, len(m.questions))
	for _, q := range m.questions {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out
}

// RecordClass returns the named record class.
func (m *Model) RecordClass(fullName string) (*RecordClass, error) {
	rc, ok := m.recordClasses[fullName]
	if !ok {
		return nil, wdkerr.ModelConfiguration("record class %s is not defined", fullName)
	}
	return rc, nil
}

// RecordClasses returns every record class sorted by full name.
func (m *Model) RecordClasses() []*RecordClass {
	out := make([]*RecordClass, 0, len(m.recordClasses))
	for _, rc := range m.recordClasses {
		out = append(out, rc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out
}
