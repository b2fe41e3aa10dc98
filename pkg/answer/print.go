package answer

import (
	"context"
	"fmt"
	"strings"
)

const recordSeparator = "---------------------\n"

// PrintAsRecords renders every record of the page with all its attributes.
func (v *AnswerValue) PrintAsRecords(ctx context.Context) (string, error) {
	records, err := v.RecordInstances(ctx)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, r := range records {
		s, err := r.Print(ctx)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
		b.WriteString(recordSeparator)
	}
	return b.String(), nil
}

// PrintAsSummary renders the summary attributes of each record, one
// record per line.
func (v *AnswerValue) PrintAsSummary(ctx context.Context) (string, error) {
	records, err := v.RecordInstances(ctx)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, r := range records {
		s, err := r.PrintSummary(ctx)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

// PrintAsTable renders a size line, a header of summary attribute names
// and one tab-delimited row of brief values per record.
func (v *AnswerValue) PrintAsTable(ctx context.Context) (string, error) {
	records, err := v.RecordInstances(ctx)
	if err != nil {
		return "", err
	}
	size, err := v.ResultSize(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# of Records: %d,\t# of Pages: %d,\t# Records per Page: %d\n",
		size, PageCount(size, v.PageSize()), v.PageSize())
	if len(records) == 0 {
		return b.String(), nil
	}

	names := make([]string, len(v.summary))
	for i, f := range v.summary {
		names[i] = f.Name()
	}
	b.WriteString(strings.Join(names, "\t"))
	b.WriteString("\n")
	for _, r := range records {
		s, err := r.PrintSummary(ctx)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}
	return b.String(), nil
}
