package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/EuPathDB/WSF/pkg/model"
	"github.com/EuPathDB/WSF/pkg/query"
	"github.com/EuPathDB/WSF/pkg/wdkerr"
)

// briefSuffix marks a truncated brief value.
const briefSuffix = "..."

// LinkValue is the value of a link attribute.
type LinkValue struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// String returns the display text.
func (l LinkValue) String() string { return l.Text }

// AttributeValue is the value of one attribute of one record.
type AttributeValue struct {
	Field model.AttributeField
	Value any
}

// String renders the full value.
func (a AttributeValue) String() string {
	if l, ok := a.Value.(LinkValue); ok {
		return l.Text
	}
	return stringValue(a.Value)
}

// Brief renders the value cut to the field's truncate length.
func (a AttributeValue) Brief() string {
	s := a.String()
	limit := a.Field.TruncateTo()
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + briefSuffix
}

// RecordInstance is one record of a page. It starts with its primary key
// only and gains column values as attribute queries are integrated. Text,
// link and primary-key attributes are derived on access.
type RecordInstance struct {
	pk      PrimaryKeyValue
	owner   *AnswerValue
	columns map[string]any
}

func newRecordInstance(owner *AnswerValue, pk PrimaryKeyValue) *RecordInstance {
	return &RecordInstance{pk: pk, owner: owner, columns: map[string]any{}}
}

// PrimaryKey returns the record's key.
func (r *RecordInstance) PrimaryKey() PrimaryKeyValue { return r.pk }

// setColumn attaches an integrated column value.
func (r *RecordInstance) setColumn(name string, v any) {
	r.columns[name] = v
}

// hasColumn reports whether the named column attribute is integrated.
func (r *RecordInstance) hasColumn(name string) bool {
	_, ok := r.columns[name]
	return ok
}

// ColumnValues returns the integrated column attributes by name.
func (r *RecordInstance) ColumnValues() map[string]any {
	out := make(map[string]any, len(r.columns))
	for k, v := range r.columns {
		out[k] = v
	}
	return out
}

// AttributeValue returns the named attribute, integrating the attribute
// query that owns it when it is not loaded yet.
func (r *RecordInstance) AttributeValue(ctx context.Context, name string) (AttributeValue, error) {
	return r.attributeValue(ctx, name, map[string]bool{})
}

func (r *RecordInstance) attributeValue(ctx context.Context, name string, visiting map[string]bool) (AttributeValue, error) {
	field, err := r.owner.question.AttributeField(name)
	if err != nil {
		return AttributeValue{}, err
	}
	if visiting[name] {
		return AttributeValue{}, wdkerr.ModelConfiguration("attribute %s of %s is derived from itself", name, r.owner.question.FullName)
	}
	visiting[name] = true
	defer delete(visiting, name)

	switch f := field.(type) {
	case *model.PrimaryKeyField:
		if f.Text == "" {
			return AttributeValue{Field: f, Value: strings.Join(r.pk.Values, ", ")}, nil
		}
		text, err := r.expand(ctx, f.Text, visiting)
		if err != nil {
			return AttributeValue{}, err
		}
		return AttributeValue{Field: f, Value: text}, nil

	case *model.ColumnField:
		if !r.hasColumn(f.Name()) {
			if err := r.owner.IntegrateAttributesQuery(ctx, f.Query); err != nil {
				return AttributeValue{}, err
			}
		}
		return AttributeValue{Field: f, Value: r.columns[f.Name()]}, nil

	case *model.TextField:
		text, err := r.expand(ctx, f.Text, visiting)
		if err != nil {
			return AttributeValue{}, err
		}
		return AttributeValue{Field: f, Value: text}, nil

	case *model.LinkField:
		text, err := r.expand(ctx, f.DisplayText, visiting)
		if err != nil {
			return AttributeValue{}, err
		}
		url, err := r.expand(ctx, f.URL, visiting)
		if err != nil {
			return AttributeValue{}, err
		}
		return AttributeValue{Field: f, Value: LinkValue{Text: text, URL: url}}, nil

	default:
		return AttributeValue{}, wdkerr.ModelConfiguration("attribute %s has unsupported type %T", name, field)
	}
}

// expand substitutes $$name$$ references with primary-key column values or
// attribute values.
func (r *RecordInstance) expand(ctx context.Context, template string, visiting map[string]bool) (string, error) {
	f, err := query.ExpandText(template, func(name string) (string, error) {
		if v, ok := r.pk.Get(name); ok {
			return v, nil
		}
		av, err := r.attributeValue(ctx, name, visiting)
		if err != nil {
			return "", err
		}
		return av.String(), nil
	})
	if err != nil {
		return "", fmt.Errorf("expanding %q: %w", template, err)
	}
	return f, nil
}

// Print renders every non-internal attribute, one per line.
func (r *RecordInstance) Print(ctx context.Context) (string, error) {
	var b strings.Builder
	for _, f := range r.owner.question.AttributeFields() {
		if f.IsInternal() {
			continue
		}
		av, err := r.AttributeValue(ctx, f.Name())
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "%s:   %s\n", f.DisplayName(), av.String())
	}
	return b.String(), nil
}

// PrintSummary renders the summary attributes of the owning answer as one
// tab-delimited line of brief values.
func (r *RecordInstance) PrintSummary(ctx context.Context) (string, error) {
	values := make([]string, 0, len(r.owner.summary))
	for _, f := range r.owner.summary {
		av, err := r.AttributeValue(ctx, f.Name())
		if err != nil {
			return "", err
		}
		values = append(values, av.Brief())
	}
	return strings.Join(values, "\t") + "\n", nil
}
