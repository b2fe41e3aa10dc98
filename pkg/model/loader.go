package model

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/EuPathDB/WSF/pkg/dbms"
	"github.com/EuPathDB/WSF/pkg/query"
	"github.com/EuPathDB/WSF/pkg/wdkerr"
)

// Param types accepted in model files.
const (
	ParamTypeString = "string"
	ParamTypeNumber = "number"
	ParamTypeEnum   = "enum"
	ParamTypeAnswer = "answer"
)

type modelDef struct {
	Name          string           `yaml:"name"`
	Version       string           `yaml:"version"`
	QuerySets     []querySetDef    `yaml:"querySets"`
	RecordClasses []recordClassDef `yaml:"recordClasses"`
	Questions     []questionDef    `yaml:"questions"`
}

type querySetDef struct {
	Name    string     `yaml:"name"`
	Queries []queryDef `yaml:"queries"`
}

type queryDef struct {
	Name    string         `yaml:"name"`
	SQL     string         `yaml:"sql"`
	Plugin  string         `yaml:"plugin"`
	Columns []query.Column `yaml:"columns"`
	Params  []paramDef     `yaml:"params"`
}

type paramDef struct {
	query.ParamBase `yaml:",inline"`

	Type        string       `yaml:"type"`
	Pattern     string       `yaml:"pattern"`
	MaxLength   int          `yaml:"maxLength"`
	Integer     bool         `yaml:"integer"`
	Min         *float64     `yaml:"min"`
	Max         *float64     `yaml:"max"`
	Terms       []query.Term `yaml:"terms"`
	MultiPick   bool         `yaml:"multiPick"`
	RecordClass string       `yaml:"recordClass"`
}

type primaryKeyDef struct {
	FieldBase `yaml:",inline"`

	Columns []string `yaml:"columns"`
	Text    string   `yaml:"text"`
}

type textFieldDef struct {
	FieldBase `yaml:",inline"`

	Text string `yaml:"text"`
}

type linkFieldDef struct {
	FieldBase `yaml:",inline"`

	DisplayText string `yaml:"displayText"`
	URL         string `yaml:"url"`
}

type recordClassDef struct {
	Name             string         `yaml:"name"`
	DisplayName      string         `yaml:"displayName"`
	PrimaryKey       primaryKeyDef  `yaml:"primaryKey"`
	AttributeQueries []string       `yaml:"attributeQueries"`
	Attributes       []FieldBase    `yaml:"attributes"`
	TextAttributes   []textFieldDef `yaml:"textAttributes"`
	LinkAttributes   []linkFieldDef `yaml:"linkAttributes"`
	Filters          []Filter       `yaml:"filters"`
	Reporters        []ReporterRef  `yaml:"reporters"`
}

type dynamicAttributeDef struct {
	FieldBase `yaml:",inline"`

	Column string `yaml:"column"`
}

type questionDef struct {
	Name              string                `yaml:"name"`
	DisplayName       string                `yaml:"displayName"`
	Description       string                `yaml:"description"`
	RecordClass       string                `yaml:"recordClass"`
	IDQuery           string                `yaml:"idQuery"`
	SummaryAttributes []string              `yaml:"summaryAttributes"`
	DynamicAttributes []dynamicAttributeDef `yaml:"dynamicAttributes"`
	DefaultSorting    []SortSpec            `yaml:"defaultSorting"`
}

// Load reads and resolves a model file.
func Load(path string, platform dbms.Platform, invoker query.PluginInvoker) (*Model, error) {
	data, err := os.ReadFile(path) //nolint:gosec // model path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("reading model file: %w", err)
	}
	m, err := Parse(data, platform, invoker)
	if err != nil {
		return nil, fmt.Errorf("loading model %s: %w", path, err)
	}
	return m, nil
}

// Parse parses and resolves a model document.
func Parse(data []byte, platform dbms.Platform, invoker query.PluginInvoker) (*Model, error) {
	var def modelDef
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parsing model: %w", err)
	}

	m := New(def.Name, platform)
	m.Version = def.Version

	for _, sd := range def.QuerySets {
		set, err := buildQuerySet(sd, platform, invoker)
		if err != nil {
			return nil, err
		}
		if err := m.AddQuerySet(set); err != nil {
			return nil, err
		}
	}
	for _, rd := range def.RecordClasses {
		rc, err := buildRecordClass(m, rd)
		if err != nil {
			return nil, err
		}
		if err := m.AddRecordClass(rc); err != nil {
			return nil, err
		}
	}
	for _, qd := range def.Questions {
		q, err := buildQuestion(m, qd)
		if err != nil {
			return nil, err
		}
		if err := m.AddQuestion(q); err != nil {
			return nil, err
		}
	}

	slog.Info("model loaded",
		"name", m.Name,
		"version", m.Version,
		"query_sets", len(m.querySets),
		"record_classes", len(m.recordClasses),
		"questions", len(m.questions))
	return m, nil
}

func buildQuerySet(sd querySetDef, platform dbms.Platform, invoker query.PluginInvoker) (*query.QuerySet, error) {
	set := query.NewQuerySet(sd.Name)
	for _, qd := range sd.Queries {
		q := &query.Query{
			Name:    qd.Name,
			SQL:     qd.SQL,
			Plugin:  qd.Plugin,
			Columns: qd.Columns,
		}
		for _, pd := range qd.Params {
			p, err := buildParam(pd)
			if err != nil {
				return nil, fmt.Errorf("query %s.%s: %w", sd.Name, qd.Name, err)
			}
			q.Params = append(q.Params, p)
		}
		if err := set.Add(q); err != nil {
			return nil, err
		}
		if err := q.Resolve(platform, invoker); err != nil {
			return nil, err
		}
	}
	return set, nil
}

func buildParam(pd paramDef) (query.Param, error) {
	switch pd.Type {
	case ParamTypeString, "":
		return &query.StringParam{ParamBase: pd.ParamBase, Pattern: pd.Pattern, MaxLength: pd.MaxLength}, nil
	case ParamTypeNumber:
		return &query.NumberParam{ParamBase: pd.ParamBase, Integer: pd.Integer, Min: pd.Min, Max: pd.Max}, nil
	case ParamTypeEnum:
		if len(pd.Terms) == 0 {
			return nil, wdkerr.ModelConfiguration("enum param %s has no terms", pd.Name)
		}
		return &query.EnumParam{ParamBase: pd.ParamBase, Terms: pd.Terms, MultiPick: pd.MultiPick}, nil
	case ParamTypeAnswer:
		return &query.AnswerParam{ParamBase: pd.ParamBase, RecordClass: pd.RecordClass}, nil
	default:
		return nil, wdkerr.ModelConfiguration("param %s has unknown type %q", pd.Name, pd.Type)
	}
}

func buildRecordClass(m *Model, rd recordClassDef) (*RecordClass, error) {
	pk := &PrimaryKeyField{FieldBase: rd.PrimaryKey.FieldBase, Columns: rd.PrimaryKey.Columns, Text: rd.PrimaryKey.Text}
	rc, err := NewRecordClass(rd.Name, pk)
	if err != nil {
		return nil, err
	}
	rc.DisplayName = rd.DisplayName

	for _, name := range rd.AttributeQueries {
		q, err := m.ResolveQuery(name)
		if err != nil {
			return nil, fmt.Errorf("record class %s: %w", rd.Name, err)
		}
		if err := rc.AddAttributeQuery(q); err != nil {
			return nil, err
		}
	}

	for _, override := range rd.Attributes {
		f, err := rc.AttributeField(override.FieldName)
		if err != nil {
			return nil, err
		}
		cf, ok := f.(*ColumnField)
		if !ok {
			return nil, wdkerr.ModelConfiguration("attribute %s of %s is not a column attribute", override.FieldName, rd.Name)
		}
		cf.FieldBase = override
	}
	for _, td := range rd.TextAttributes {
		if err := rc.AddAttribute(&TextField{FieldBase: td.FieldBase, Text: td.Text}); err != nil {
			return nil, err
		}
	}
	for _, ld := range rd.LinkAttributes {
		if err := rc.AddAttribute(&LinkField{FieldBase: ld.FieldBase, DisplayText: ld.DisplayText, URL: ld.URL}); err != nil {
			return nil, err
		}
	}
	if err := rc.validateDerived(rc.AttributeField); err != nil {
		return nil, err
	}

	for i := range rd.Filters {
		if err := rc.AddFilter(&rd.Filters[i]); err != nil {
			return nil, err
		}
	}
	for _, r := range rd.Reporters {
		if err := rc.AddReporter(r); err != nil {
			return nil, err
		}
	}
	return rc, nil
}

func buildQuestion(m *Model, qd questionDef) (*Question, error) {
	rc, err := m.RecordClass(qd.RecordClass)
	if err != nil {
		return nil, fmt.Errorf("question %s: %w", qd.Name, err)
	}
	idq, err := m.ResolveQuery(qd.IDQuery)
	if err != nil {
		return nil, fmt.Errorf("question %s: %w", qd.Name, err)
	}

	q, err := NewQuestion(qd.Name, rc, idq)
	if err != nil {
		return nil, err
	}
	q.DisplayName = qd.DisplayName
	q.Description = qd.Description

	for _, dd := range qd.DynamicAttributes {
		column := dd.Column
		if column == "" {
			column = dd.FieldName
		}
		if err := q.AddDynamicAttribute(dd.FieldBase, column); err != nil {
			return nil, err
		}
	}
	if err := q.SetSummaryAttributes(qd.SummaryAttributes); err != nil {
		return nil, err
	}
	for _, s := range qd.DefaultSorting {
		if _, err := q.AttributeField(s.Attribute); err != nil {
			return nil, err
		}
	}
	q.DefaultSorting = qd.DefaultSorting
	return q, nil
}
