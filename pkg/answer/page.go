package answer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/EuPathDB/WSF/pkg/dbms"
	"github.com/EuPathDB/WSF/pkg/model"
	"github.com/EuPathDB/WSF/pkg/query"
	"github.com/EuPathDB/WSF/pkg/wdkerr"
)

// expectedPageCount is min(end, size) - start + 1, never negative.
func expectedPageCount(start, end, size int) int {
	last := end
	if size < last {
		last = size
	}
	if n := last - start + 1; n > 0 {
		return n
	}
	return 0
}

// materialize runs the paged id SQL and builds the skeletal records of the
// page in row order.
func (v *AnswerValue) materialize(ctx context.Context) error {
	if v.index != nil {
		return nil
	}
	paged, err := v.PagedIDSQL(ctx)
	if err != nil {
		return err
	}

	records, index, collisions, err := v.readPage(ctx, paged)
	if err != nil {
		return err
	}
	v.collisions = collisions

	size, err := v.ResultSize(ctx)
	if err != nil {
		return err
	}
	if expected := expectedPageCount(v.start, v.end, size); expected != len(records) {
		queries := append([]string{v.instance.Query().FullName()}, v.integratedNames()...)
		return wdkerr.Integrity(
			fmt.Sprintf("page [%d, %d] of %s has %d records, expected %d from a result size of %d",
				v.start, v.end, v.question.FullName, len(records), expected, size),
			[]string{paged.SQL},
			queries...,
		)
	}

	v.records, v.index = records, index
	slog.Debug("page materialized",
		"question", v.question.FullName,
		"start", v.start,
		"end", v.end,
		"records", len(records))
	return nil
}

// readPage drains the paged id cursor. A repeated key keeps its first
// record and is counted as a collision.
func (v *AnswerValue) readPage(ctx context.Context, paged dbms.Fragment) ([]*RecordInstance, map[string]*RecordInstance, int, error) {
	cursor, err := v.service.Platform.Query(ctx, paged)
	if err != nil {
		return nil, nil, 0, err
	}
	defer dbms.CloseQuietly(cursor, "paged id cursor")

	var (
		records    []*RecordInstance
		index      = map[string]*RecordInstance{}
		collisions int
	)
	for cursor.Next() {
		pk, err := primaryKeyFromCursor(cursor, v.pkColumns())
		if err != nil {
			return nil, nil, 0, err
		}
		if _, dup := index[pk.Key()]; dup {
			collisions++
			slog.Warn("duplicate primary key in page",
				"question", v.question.FullName,
				"primary_key", pk.String())
			continue
		}
		r := newRecordInstance(v, pk)
		records = append(records, r)
		index[pk.Key()] = r
	}
	if err := cursor.Err(); err != nil {
		return nil, nil, 0, wdkerr.DataAccess("reading page", paged.SQL, err)
	}
	return records, index, collisions, nil
}

func (v *AnswerValue) integratedNames() []string {
	names := make([]string, 0, len(v.integrated))
	for n := range v.integrated {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// RecordInstances returns the records of the page in the order of the
// paged id SQL. Without sorting that order is whatever the engine returns.
func (v *AnswerValue) RecordInstances(ctx context.Context) ([]*RecordInstance, error) {
	if err := v.materialize(ctx); err != nil {
		return nil, err
	}
	return v.records, nil
}

// RecordInstance returns the page record with key pk. Returns nil, nil if
// the key is not on the page.
func (v *AnswerValue) RecordInstance(ctx context.Context, pk PrimaryKeyValue) (*RecordInstance, error) {
	if err := v.materialize(ctx); err != nil {
		return nil, err
	}
	r, ok := v.index[pk.Key()]
	if !ok {
		return nil, nil //nolint:nilnil // a key outside the page is not an error
	}
	return r, nil
}

// IntegrateAttributesQuery loads the columns of attribute query q for the
// page's records. Each query is integrated at most once per page and only
// fills the attributes it owns, so the order of integration is irrelevant.
func (v *AnswerValue) IntegrateAttributesQuery(ctx context.Context, q *query.Query) error {
	if q == nil {
		return wdkerr.ModelConfiguration("no attribute query given")
	}
	name := q.FullName()
	if v.integrated[name] {
		return nil
	}
	values, sqls, err := v.loadAttributes(ctx, q)
	if err != nil {
		return err
	}
	if len(values) != len(v.records) {
		return wdkerr.Integrity(
			fmt.Sprintf("attribute query %s returned %d rows for a page of %d records", name, len(values), len(v.records)),
			sqls,
			name, v.instance.Query().FullName(),
		)
	}
	v.attach(q, values)
	return nil
}

// loadAttributes runs attribute query q restricted to the page and returns
// the owned field values per record key, with the SQL it ran.
func (v *AnswerValue) loadAttributes(ctx context.Context, q *query.Query) (map[string]map[string]any, []string, error) {
	if err := v.materialize(ctx); err != nil {
		return nil, nil, err
	}
	if len(v.records) == 0 {
		return map[string]map[string]any{}, nil, nil
	}

	_, attrSQL, err := v.attributeSource(ctx, q)
	if err != nil {
		return nil, nil, err
	}
	paged, err := v.PagedIDSQL(ctx)
	if err != nil {
		return nil, nil, err
	}
	f, err := v.composer.PagedAttributeSQL(paged, attrSQL, v.pkColumns())
	if err != nil {
		return nil, nil, err
	}
	values, err := v.readAttributes(ctx, q, f, paged, v.ownedFields(q))
	if err != nil {
		return nil, nil, err
	}
	return values, []string{f.SQL, paged.SQL}, nil
}

// attach fills the page's records with values and marks q integrated.
func (v *AnswerValue) attach(q *query.Query, values map[string]map[string]any) {
	for key, row := range values {
		r := v.index[key]
		for col, val := range row {
			r.setColumn(col, val)
		}
	}
	v.integrated[q.FullName()] = true
	slog.Debug("attribute query integrated", "question", v.question.FullName, "query", q.FullName(), "rows", len(values))
}

// ownedFields maps the column names of q to the field names they fill.
func (v *AnswerValue) ownedFields(q *query.Query) map[string]string {
	owned := map[string]string{}
	for _, f := range v.question.AttributeFields() {
		cf, ok := f.(*model.ColumnField)
		if ok && cf.Query == q {
			owned[cf.Column.Name] = cf.Name()
		}
	}
	return owned
}

// readAttributes drains the paged attribute cursor into field values per
// record key. Nothing is attached to a record until every row matched.
func (v *AnswerValue) readAttributes(ctx context.Context, q *query.Query, f, paged dbms.Fragment, fields map[string]string) (map[string]map[string]any, error) {
	cursor, err := v.service.Platform.Query(ctx, f)
	if err != nil {
		return nil, err
	}
	defer dbms.CloseQuietly(cursor, "paged attribute cursor")

	values := map[string]map[string]any{}
	for cursor.Next() {
		pk, err := primaryKeyFromCursor(cursor, v.pkColumns())
		if err != nil {
			return nil, err
		}
		if _, ok := v.index[pk.Key()]; !ok {
			return nil, wdkerr.Integrity(
				fmt.Sprintf("paged attribute query %s returned a row that matches no record of the page (%s)", q.FullName(), pk),
				[]string{f.SQL, paged.SQL},
				q.FullName(), v.instance.Query().FullName(),
			)
		}
		if _, dup := values[pk.Key()]; dup {
			return nil, wdkerr.Integrity(
				fmt.Sprintf("paged attribute query %s returned more than one row for (%s)", q.FullName(), pk),
				[]string{f.SQL, paged.SQL},
				q.FullName(), v.instance.Query().FullName(),
			)
		}
		row := make(map[string]any, len(fields))
		for col, field := range fields {
			val, err := cursor.Get(col)
			if err != nil {
				return nil, wdkerr.DataAccess("reading attribute "+field, f.SQL, err)
			}
			row[field] = val
		}
		values[pk.Key()] = row
	}
	if err := cursor.Err(); err != nil {
		return nil, wdkerr.DataAccess("reading attributes of "+q.FullName(), f.SQL, err)
	}
	return values, nil
}

// CreateReport builds the named reporter over the whole answer.
func (v *AnswerValue) CreateReport(ctx context.Context, reporterName string, config map[string]string) (Reporter, error) {
	size, err := v.ResultSize(ctx)
	if err != nil {
		return nil, err
	}
	end := size
	if end < 1 {
		end = 1
	}
	return v.CreateReportRange(ctx, reporterName, config, 1, end)
}

// CreateReportRange builds the named reporter over records [start, end].
// The reporter must be declared by the record class and its implementation
// registered with the service.
func (v *AnswerValue) CreateReportRange(_ context.Context, reporterName string, config map[string]string, start, end int) (Reporter, error) {
	rc := v.question.RecordClass
	ref, ok := rc.Reporter(reporterName)
	if !ok {
		e := wdkerr.ModelConfiguration("reporter %s is not declared for record class %s", reporterName, rc.FullName)
		e.Err = ErrReporterNotFound
		return nil, e
	}
	if v.service.Reporters == nil {
		e := wdkerr.ModelConfiguration("no reporter registry configured for record class %s", rc.FullName)
		e.Err = ErrReporterNotFound
		return nil, e
	}
	construct, err := v.service.Reporters.Get(ref.Implementation)
	if err != nil {
		e := wdkerr.ModelConfiguration("reporter %s of record class %s has no implementation %s",
			reporterName, rc.FullName, ref.Implementation)
		e.Err = err
		return nil, e
	}

	page, err := v.WithPage(start, end)
	if err != nil {
		return nil, err
	}
	reporter, err := construct(page, start, end)
	if err != nil {
		return nil, fmt.Errorf("creating reporter %s: %w", reporterName, err)
	}

	properties := make(map[string]string, len(ref.Properties)+len(config))
	for k, val := range ref.Properties {
		properties[k] = val
	}
	for k, val := range config {
		properties[k] = val
	}
	if err := reporter.Configure(properties); err != nil {
		return nil, fmt.Errorf("configuring reporter %s: %w", reporterName, err)
	}
	return reporter, nil
}
