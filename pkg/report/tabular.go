package report

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/EuPathDB/WSF/pkg/answer"
)

// tabularReporter writes one delimited line per record.
type tabularReporter struct {
	base
	header  bool
	divider string
}

func newTabularReporter(av *answer.AnswerValue, start, end int) (answer.Reporter, error) {
	return &tabularReporter{base: newBase(av, start, end), header: true, divider: "\t"}, nil
}

func (t *tabularReporter) Configure(properties map[string]string) error {
	if err := t.configure(properties, t.av.SummaryAttributeFields()); err != nil {
		return err
	}
	header, err := parseBool(properties, PropIncludeHeader, true)
	if err != nil {
		return err
	}
	t.header = header
	if d, ok := properties[PropDivider]; ok && d != "" {
		t.divider = d
	}
	return nil
}

func (t *tabularReporter) Write(ctx context.Context, w io.Writer) error {
	bw := bufio.NewWriter(w)
	if t.header {
		names := make([]string, len(t.fields))
		for i, f := range t.fields {
			names[i] = f.DisplayName()
		}
		if _, err := fmt.Fprintln(bw, strings.Join(names, t.divider)); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	err := t.eachRecord(ctx, func(r *answer.RecordInstance) error {
		values, err := t.values(ctx, r)
		if err != nil {
			return err
		}
		cells := make([]string, len(values))
		for i, v := range values {
			cells[i] = v.String()
		}
		if _, err := fmt.Fprintln(bw, strings.Join(cells, t.divider)); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flushing report: %w", err)
	}
	return nil
}

func (*tabularReporter) ContentType() string   { return "text/tab-separated-values" }
func (*tabularReporter) FileExtension() string { return "txt" }
