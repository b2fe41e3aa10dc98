package report

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/EuPathDB/WSF/pkg/answer"
)

const recordDivider = "------------------------------------------------------------\n"

// fullRecordReporter writes each record as a block of "name: value" lines.
type fullRecordReporter struct {
	base
}

func newFullRecordReporter(av *answer.AnswerValue, start, end int) (answer.Reporter, error) {
	return &fullRecordReporter{base: newBase(av, start, end)}, nil
}

func (f *fullRecordReporter) Configure(properties map[string]string) error {
	return f.configure(properties, visibleFields(f.av.Question().AttributeFields()))
}

func (f *fullRecordReporter) Write(ctx context.Context, w io.Writer) error {
	bw := bufio.NewWriter(w)
	err := f.eachRecord(ctx, func(r *answer.RecordInstance) error {
		values, err := f.values(ctx, r)
		if err != nil {
			return err
		}
		for _, v := range values {
			if _, err := fmt.Fprintf(bw, "%s: %s\n", v.Field.DisplayName(), v.String()); err != nil {
				return fmt.Errorf("writing record: %w", err)
			}
		}
		if _, err := io.WriteString(bw, recordDivider); err != nil {
			return fmt.Errorf("writing record: %w", err)
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

func (*fullRecordReporter) ContentType() string   { return "text/plain" }
func (*fullRecordReporter) FileExtension() string { return "txt" }
