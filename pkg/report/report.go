// Package report provides the built-in answer reporters.
package report

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/EuPathDB/WSF/pkg/answer"
	"github.com/EuPathDB/WSF/pkg/model"
)

// Implementation names under which the built-in reporters register.
const (
	Tabular    = "tabular"
	FullRecord = "fullRecord"
	JSON       = "json"
)

// Property names understood by the built-in reporters.
const (
	PropAttributes    = "attributes"
	PropIncludeHeader = "includeHeader"
	PropDivider       = "divider"
	PropPageSize      = "pageSize"
)

// allAttributes selects every non-internal attribute.
const allAttributes = "all"

const defaultPageSize = 100

// RegisterBuiltins registers the tabular, fullRecord and json reporters.
func RegisterBuiltins(r *answer.ReporterRegistry) error {
	for name, c := range map[string]answer.ReporterConstructor{
		Tabular:    newTabularReporter,
		FullRecord: newFullRecordReporter,
		JSON:       newJSONReporter,
	} {
		if err := r.Register(name, c); err != nil {
			return fmt.Errorf("registering %s reporter: %w", name, err)
		}
	}
	return nil
}

// base holds the state shared by the built-in reporters.
type base struct {
	av         *answer.AnswerValue
	start, end int
	fields     []model.AttributeField
	pageSize   int
}

func newBase(av *answer.AnswerValue, start, end int) base {
	return base{av: av, start: start, end: end, pageSize: defaultPageSize}
}

// configure resolves the attribute selection and page size. defaults is
// used when no attributes property is given.
func (b *base) configure(properties map[string]string, defaults []model.AttributeField) error {
	if v := properties[PropPageSize]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return fmt.Errorf("invalid %s %q", PropPageSize, v)
		}
		b.pageSize = n
	}

	spec := strings.TrimSpace(properties[PropAttributes])
	switch spec {
	case "":
		b.fields = defaults
	case allAttributes:
		b.fields = visibleFields(b.av.Question().AttributeFields())
	default:
		fields := make([]model.AttributeField, 0)
		for _, name := range strings.Split(spec, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			f, err := b.av.Question().AttributeField(name)
			if err != nil {
				return fmt.Errorf("selecting report attributes: %w", err)
			}
			fields = append(fields, f)
		}
		b.fields = fields
	}
	return nil
}

func visibleFields(fields []model.AttributeField) []model.AttributeField {
	out := make([]model.AttributeField, 0, len(fields))
	for _, f := range fields {
		if !f.IsInternal() {
			out = append(out, f)
		}
	}
	return out
}

// eachRecord visits the records of [start, end] one page at a time.
func (b *base) eachRecord(ctx context.Context, fn func(r *answer.RecordInstance) error) error {
	size, err := b.av.ResultSize(ctx)
	if err != nil {
		return err
	}
	last := b.end
	if size < last {
		last = size
	}
	for from := b.start; from <= last; from += b.pageSize {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		to := from + b.pageSize - 1
		if to > last {
			to = last
		}
		page, err := b.av.WithPage(from, to)
		if err != nil {
			return err
		}
		records, err := page.RecordInstances(ctx)
		if err != nil {
			return err
		}
		for _, r := range records {
			if err := fn(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// values returns the selected attribute values of r.
func (b *base) values(ctx context.Context, r *answer.RecordInstance) ([]answer.AttributeValue, error) {
	out := make([]answer.AttributeValue, len(b.fields))
	for i, f := range b.fields {
		v, err := r.AttributeValue(ctx, f.Name())
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func parseBool(properties map[string]string, name string, fallback bool) (bool, error) {
	v := properties[name]
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q", name, v)
	}
	return b, nil
}
