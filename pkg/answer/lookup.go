package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/EuPathDB/WSF/pkg/model"
	"github.com/EuPathDB/WSF/pkg/query"
	"github.com/EuPathDB/WSF/pkg/wdkerr"
)

// ErrRecordNotFound is returned when an attribute query of the record class
// has no row for the requested primary key.
var ErrRecordNotFound = errors.New("record not found")

// RecordByKey loads the record of rc with the given primary key. Every
// attribute query of the record class is integrated; a key one of them
// does not return is not found.
func (s *Service) RecordByKey(ctx context.Context, rc *model.RecordClass, key map[string]string) (*RecordInstance, error) {
	if rc == nil {
		return nil, wdkerr.ModelConfiguration("no record class given")
	}
	columns := rc.PrimaryKeyColumns()
	values := make([]string, len(columns))
	for i, c := range columns {
		v, ok := key[c]
		if !ok || v == "" {
			return nil, wdkerr.ParameterValidation(c, rc.PrimaryKey.DisplayName(), v, "a primary key value is required")
		}
		values[i] = v
	}

	instance, err := query.NewKeyInstance(s.Platform, rc.FullName, columns, values)
	if err != nil {
		return nil, err
	}
	question, err := model.NewQuestion(rc.FullName, rc, instance.Query())
	if err != nil {
		return nil, err
	}
	av, err := newAnswerValue(s, question, instance, WithRange(1, 1), WithSorting(nil))
	if err != nil {
		return nil, err
	}

	records, err := av.RecordInstances(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) != 1 {
		return nil, wdkerr.Integrity(
			fmt.Sprintf("key lookup of %s returned %d records", rc.FullName, len(records)),
			nil, instance.Query().FullName())
	}
	record := records[0]

	for _, q := range rc.AttributeQueries() {
		loaded, _, err := av.loadAttributes(ctx, q)
		if err != nil {
			return nil, err
		}
		if len(loaded) == 0 {
			return nil, fmt.Errorf("%w: %s %s", ErrRecordNotFound, rc.FullName, record.PrimaryKey())
		}
		av.attach(q, loaded)
	}
	slog.Debug("record loaded", "record_class", rc.FullName, "primary_key", record.PrimaryKey().String())
	return record, nil
}
