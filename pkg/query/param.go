package query

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/EuPathDB/WSF/pkg/dbms"
	"github.com/EuPathDB/WSF/pkg/wdkerr"
)

// ParamBase holds the attributes shared by every parameter kind.
type ParamBase struct {
	// Name is the macro name referenced as $$name$$ in query SQL.
	Name string `yaml:"name"`

	// Prompt is the label shown to the end user.
	Prompt string `yaml:"prompt"`

	// Help is optional descriptive text.
	Help string `yaml:"help,omitempty"`

	// Default is used when no value is supplied.
	Default string `yaml:"default,omitempty"`

	// AllowEmpty permits an empty value. EmptyValue then replaces it.
	AllowEmpty bool   `yaml:"allowEmpty,omitempty"`
	EmptyValue string `yaml:"emptyValue,omitempty"`
}

func (b *ParamBase) base() *ParamBase { return b }

func (b *ParamBase) invalid(value, reason string) error {
	return wdkerr.ParameterValidation(b.Name, b.Prompt, value, reason)
}

// Param is a declared query parameter. The set of implementations is closed:
// StringParam, NumberParam, EnumParam and AnswerParam.
type Param interface {
	base() *ParamBase

	// Validate checks a non-empty user value.
	Validate(value string) error

	// Render returns the SQL bound for a validated value.
	Render(value string) (dbms.Fragment, error)
}

// Base returns the shared attributes of p.
func Base(p Param) *ParamBase {
	return p.base()
}

// StringParam accepts free text, optionally constrained by a pattern.
type StringParam struct {
	ParamBase `yaml:",inline"`

	// Pattern is an anchored regular expression the value must match.
	Pattern string `yaml:"pattern,omitempty"`

	// MaxLength limits the value length in runes. Zero is unlimited.
	MaxLength int `yaml:"maxLength,omitempty"`

	re *regexp.Regexp
}

// Compile prepares the pattern.
func (p *StringParam) Compile() error {
	if p.Pattern == "" {
		return nil
	}
	re, err := regexp.Compile("^(?:" + p.Pattern + ")$")
	if err != nil {
		return wdkerr.ModelConfiguration("param %s: invalid pattern %q: %v", p.Name, p.Pattern, err)
	}
	p.re = re
	return nil
}

// Validate checks length and pattern.
func (p *StringParam) Validate(value string) error {
	if p.MaxLength > 0 && len([]rune(value)) > p.MaxLength {
		return p.invalid(value, fmt.Sprintf("value is longer than %d characters", p.MaxLength))
	}
	if p.re != nil && !p.re.MatchString(value) {
		return p.invalid(value, fmt.Sprintf("value does not match pattern %s", p.Pattern))
	}
	return nil
}

// Render binds the value as a string.
func (*StringParam) Render(value string) (dbms.Fragment, error) {
	return dbms.Raw("?", value), nil
}

// NumberParam accepts integers or decimals within optional bounds.
type NumberParam struct {
	ParamBase `yaml:",inline"`

	Integer bool     `yaml:"integer,omitempty"`
	Min     *float64 `yaml:"min,omitempty"`
	Max     *float64 `yaml:"max,omitempty"`
}

func (p *NumberParam) parse(value string) (any, float64, error) {
	if p.Integer {
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return nil, 0, p.invalid(value, "value is not an integer")
		}
		return n, float64(n), nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return nil, 0, p.invalid(value, "value is not a number")
	}
	return f, f, nil
}

// Validate checks the number and its bounds.
func (p *NumberParam) Validate(value string) error {
	_, f, err := p.parse(value)
	if err != nil {
		return err
	}
	if p.Min != nil && f < *p.Min {
		return p.invalid(value, fmt.Sprintf("value is less than %v", *p.Min))
	}
	if p.Max != nil && f > *p.Max {
		return p.invalid(value, fmt.Sprintf("value is greater than %v", *p.Max))
	}
	return nil
}

// Render binds the parsed number.
func (p *NumberParam) Render(value string) (dbms.Fragment, error) {
	n, _, err := p.parse(value)
	if err != nil {
		return dbms.Fragment{}, err
	}
	return dbms.Raw("?", n), nil
}

// Term is one entry of a flat vocabulary.
type Term struct {
	// Term is the value users submit.
	Term string `yaml:"term"`

	// Internal is the value bound into SQL. Defaults to Term.
	Internal string `yaml:"internal,omitempty"`

	// Display is the label shown to users. Defaults to Term.
	Display string `yaml:"display,omitempty"`
}

// EnumParam accepts terms from a flat vocabulary. A multi-pick value is a
// comma-separated term list and renders as a placeholder list, so the SQL
// template writes IN ($$name$$).
type EnumParam struct {
	ParamBase `yaml:",inline"`

	Terms     []Term `yaml:"terms"`
	MultiPick bool   `yaml:"multiPick,omitempty"`
}

// Split returns the selected terms of value.
func (p *EnumParam) Split(value string) []string {
	if !p.MultiPick {
		return []string{value}
	}
	parts := strings.Split(value, ",")
	terms := make([]string, 0, len(parts))
	for _, part := range parts {
		if t := strings.TrimSpace(part); t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

func (p *EnumParam) lookup(term string) (Term, bool) {
	for _, t := range p.Terms {
		if t.Term == term {
			return t, true
		}
	}
	return Term{}, false
}

// Validate checks every selected term against the vocabulary.
func (p *EnumParam) Validate(value string) error {
	terms := p.Split(value)
	if len(terms) == 0 {
		return p.invalid(value, "no term selected")
	}
	for _, term := range terms {
		if _, ok := p.lookup(term); !ok {
			return p.invalid(value, fmt.Sprintf("term %q is not allowed", term))
		}
	}
	return nil
}

// Render binds the internal value of every selected term.
func (p *EnumParam) Render(value string) (dbms.Fragment, error) {
	terms := p.Split(value)
	marks := make([]string, 0, len(terms))
	args := make([]any, 0, len(terms))
	for _, term := range terms {
		t, ok := p.lookup(term)
		if !ok {
			return dbms.Fragment{}, p.invalid(value, fmt.Sprintf("term %q is not allowed", term))
		}
		internal := t.Internal
		if internal == "" {
			internal = t.Term
		}
		marks = append(marks, "?")
		args = append(args, internal)
	}
	return dbms.Raw(strings.Join(marks, ", "), args...), nil
}

// Canonical returns value with the selected terms sorted and deduplicated,
// so equal selections bind to equal values.
func (p *EnumParam) Canonical(value string) string {
	if !p.MultiPick {
		return value
	}
	terms := p.Split(value)
	sort.Strings(terms)
	out := terms[:0]
	for i, t := range terms {
		if i == 0 || t != terms[i-1] {
			out = append(out, t)
		}
	}
	return strings.Join(out, ",")
}

// Display returns the display labels of the selected terms.
func (p *EnumParam) Display(value string) string {
	terms := p.Split(value)
	labels := make([]string, 0, len(terms))
	for _, term := range terms {
		t, ok := p.lookup(term)
		switch {
		case !ok:
			labels = append(labels, term)
		case t.Display != "":
			labels = append(labels, t.Display)
		default:
			labels = append(labels, t.Term)
		}
	}
	return strings.Join(labels, ", ")
}

// AnswerParam takes the result of another answer as input. Its value is the
// input instance checksum; the macro renders the input instance SQL.
type AnswerParam struct {
	ParamBase `yaml:",inline"`

	// RecordClass is the full name of the accepted record class.
	RecordClass string `yaml:"recordClass"`
}

// Validate requires a checksum.
func (p *AnswerParam) Validate(value string) error {
	if strings.TrimSpace(value) == "" {
		return p.invalid(value, "an input answer is required")
	}
	return nil
}

// Render is not supported; answer params are expanded from their input
// instance.
func (p *AnswerParam) Render(string) (dbms.Fragment, error) {
	return dbms.Fragment{}, wdkerr.ModelConfiguration("answer param %s cannot be rendered without an input", p.Name)
}

// Verify interface compliance.
var (
	_ Param = (*StringParam)(nil)
	_ Param = (*NumberParam)(nil)
	_ Param = (*EnumParam)(nil)
	_ Param = (*AnswerParam)(nil)
)
