package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/EuPathDB/WSF/pkg/answer"
)

// jsonRecord is one record of the json report.
type jsonRecord struct {
	ID         map[string]string `json:"id"`
	Attributes map[string]any    `json:"attributes"`
}

// jsonReport is the document written by the json reporter.
type jsonReport struct {
	Question   string       `json:"question"`
	Checksum   string       `json:"checksum"`
	ResultSize int          `json:"resultSize"`
	Start      int          `json:"start"`
	End        int          `json:"end"`
	Records    []jsonRecord `json:"records"`
}

// jsonReporter writes the selected records and attributes as one JSON
// document.
type jsonReporter struct {
	base
	indent bool
}

func newJSONReporter(av *answer.AnswerValue, start, end int) (answer.Reporter, error) {
	return &jsonReporter{base: newBase(av, start, end)}, nil
}

func (j *jsonReporter) Configure(properties map[string]string) error {
	if err := j.configure(properties, j.av.SummaryAttributeFields()); err != nil {
		return err
	}
	indent, err := parseBool(properties, "indent", false)
	if err != nil {
		return err
	}
	j.indent = indent
	return nil
}

func (j *jsonReporter) Write(ctx context.Context, w io.Writer) error {
	size, err := j.av.ResultSize(ctx)
	if err != nil {
		return err
	}
	doc := jsonReport{
		Question:   j.av.Question().FullName,
		Checksum:   j.av.Checksum(),
		ResultSize: size,
		Start:      j.start,
		End:        j.end,
		Records:    []jsonRecord{},
	}

	err = j.eachRecord(ctx, func(r *answer.RecordInstance) error {
		values, err := j.values(ctx, r)
		if err != nil {
			return err
		}
		attrs := make(map[string]any, len(values))
		for _, v := range values {
			if l, ok := v.Value.(answer.LinkValue); ok {
				attrs[v.Field.Name()] = l
				continue
			}
			attrs[v.Field.Name()] = v.String()
		}
		doc.Records = append(doc.Records, jsonRecord{ID: r.PrimaryKey().Map(), Attributes: attrs})
		return nil
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	if j.indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding json report: %w", err)
	}
	return nil
}

func (*jsonReporter) ContentType() string   { return "application/json" }
func (*jsonReporter) FileExtension() string { return "json" }
