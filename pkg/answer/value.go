package answer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/EuPathDB/WSF/pkg/dbms"
	"github.com/EuPathDB/WSF/pkg/model"
	"github.com/EuPathDB/WSF/pkg/query"
	"github.com/EuPathDB/WSF/pkg/sqlcompose"
	"github.com/EuPathDB/WSF/pkg/wdkerr"
)

// DefaultPageSize is the page window used when no range is given.
const DefaultPageSize = 20

// ProjectColumn is the id query column grouped on to count results per
// project when the source reports no counts itself.
const ProjectColumn = "project_id"

// Option configures a new AnswerValue.
type Option func(*options)

type options struct {
	start, end int
	sorting    []model.SortSpec
	sorted     bool
	filter     string
	summary    []string
}

// WithRange sets the 1-based inclusive page window.
func WithRange(start, end int) Option {
	return func(o *options) { o.start, o.end = start, end }
}

// WithSorting sets the sort specification. Without it the question's
// default sorting applies.
func WithSorting(sorting []model.SortSpec) Option {
	return func(o *options) { o.sorting, o.sorted = sorting, true }
}

// WithFilter narrows the answer by the named record class filter.
func WithFilter(name string) Option {
	return func(o *options) { o.filter = name }
}

// WithSummaryAttributes selects the summary attributes. Without it the
// question's summary applies.
func WithSummaryAttributes(names []string) Option {
	return func(o *options) { o.summary = names }
}

// sizeCache holds the result sizes of an answer. Pages of the same answer
// start from a copy.
type sizeCache struct {
	size      int
	sized     bool
	filters   map[string]int
	projects  map[string]int
	projected bool

	// dynamicChecked is set once the id instance is known to map every
	// primary key to one row of dynamic attribute values.
	dynamicChecked bool
}

func (c *sizeCache) clone() *sizeCache {
	out := *c
	out.filters = make(map[string]int, len(c.filters))
	for k, v := range c.filters {
		out.filters[k] = v
	}
	if c.projects != nil {
		out.projects = make(map[string]int, len(c.projects))
		for k, v := range c.projects {
			out.projects[k] = v
		}
	}
	return &out
}

// AnswerValue is one page [start, end] of the result of a question run.
// Every derived value is computed on first use and kept; a failed
// computation is retried on the next call.
//
// An AnswerValue is request scoped and not safe for concurrent use.
// WithPage derives another page that shares the question, instance,
// sorting and filter read-only and starts from a copy of the size caches.
type AnswerValue struct {
	service  *Service
	question *model.Question
	instance query.Instance
	composer sqlcompose.Composer

	start, end int
	sorting    []model.SortSpec
	sortKeys   []sortKey
	filter     *model.Filter
	summary    []model.AttributeField

	sizes *sizeCache

	pagedID    dbms.Fragment
	pagedReady bool

	records    []*RecordInstance
	index      map[string]*RecordInstance
	integrated map[string]bool
	collisions int
	answer     *Answer
}

// sortKey is a sort spec resolved against the question's fields.
type sortKey struct {
	spec  model.SortSpec
	field model.AttributeField
}

func newAnswerValue(s *Service, question *model.Question, instance query.Instance, opts ...Option) (*AnswerValue, error) {
	if question == nil || instance == nil {
		return nil, wdkerr.ModelConfiguration("an answer needs a question and an id query instance")
	}
	o := options{start: 1, end: DefaultPageSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.start < 1 || o.end < o.start {
		return nil, fmt.Errorf("%w: [%d, %d]", dbms.ErrInvalidRange, o.start, o.end)
	}

	v := &AnswerValue{
		service:  s,
		question: question,
		instance: instance,
		composer: sqlcompose.New(s.Platform.Dialect()),
		start:    o.start,
		end:      o.end,
		sizes:    &sizeCache{filters: map[string]int{}},
	}

	sorting := question.DefaultSorting
	if o.sorted {
		sorting = o.sorting
	} else if !v.ownIDQuery() {
		sorting = v.withoutDynamicSorts(sorting)
	}
	if err := v.setSorting(sorting); err != nil {
		return nil, err
	}

	if o.filter != "" {
		f, err := question.RecordClass.Filter(o.filter)
		if err != nil {
			return nil, err
		}
		v.filter = f
	}

	summary, err := question.SummaryAttributeFields(o.summary)
	if err != nil {
		return nil, err
	}
	if len(o.summary) == 0 && !v.ownIDQuery() {
		summary = v.withoutDynamicFields(summary)
	}
	v.summary = summary
	v.resetPage()
	return v, nil
}

func (v *AnswerValue) setSorting(sorting []model.SortSpec) error {
	keys := make([]sortKey, 0, len(sorting))
	for _, s := range sorting {
		f, err := v.question.AttributeField(s.Attribute)
		if err != nil {
			return err
		}
		if !model.Sortable(f) {
			return wdkerr.ModelConfiguration("attribute %s of %s is not sortable", s.Attribute, v.question.FullName)
		}
		if v.isDynamic(f) && !v.ownIDQuery() {
			return wdkerr.ModelConfiguration("dynamic attribute %s of %s is not available on a %s answer",
				s.Attribute, v.question.FullName, v.instance.Kind())
		}
		keys = append(keys, sortKey{spec: s, field: f})
	}
	v.sorting = append([]model.SortSpec(nil), sorting...)
	v.sortKeys = keys
	return nil
}

// ownIDQuery reports whether the id instance runs the question's own id
// query, the only source of its dynamic attributes.
func (v *AnswerValue) ownIDQuery() bool {
	return v.instance.Query() == v.question.IDQuery
}

func (v *AnswerValue) isDynamic(f model.AttributeField) bool {
	cf, ok := f.(*model.ColumnField)
	return ok && v.question.IsDynamic(cf)
}

func (v *AnswerValue) withoutDynamicSorts(sorting []model.SortSpec) []model.SortSpec {
	out := make([]model.SortSpec, 0, len(sorting))
	for _, s := range sorting {
		if f, err := v.question.AttributeField(s.Attribute); err == nil && v.isDynamic(f) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func (v *AnswerValue) withoutDynamicFields(fields []model.AttributeField) []model.AttributeField {
	out := make([]model.AttributeField, 0, len(fields))
	for _, f := range fields {
		if !v.isDynamic(f) {
			out = append(out, f)
		}
	}
	return out
}

func (v *AnswerValue) resetPage() {
	v.pagedID = dbms.Fragment{}
	v.pagedReady = false
	v.records = nil
	v.index = nil
	v.integrated = map[string]bool{}
	v.collisions = 0
}

// WithPage returns the page [start, end] of the same answer.
func (v *AnswerValue) WithPage(start, end int) (*AnswerValue, error) {
	if start < 1 || end < start {
		return nil, fmt.Errorf("%w: [%d, %d]", dbms.ErrInvalidRange, start, end)
	}
	page := &AnswerValue{
		service:  v.service,
		question: v.question,
		instance: v.instance,
		composer: v.composer,
		start:    start,
		end:      end,
		sorting:  v.sorting,
		sortKeys: v.sortKeys,
		filter:   v.filter,
		summary:  v.summary,
		sizes:    v.sizes.clone(),
		answer:   v.answer,
	}
	page.resetPage()
	return page, nil
}

// Question returns the question.
func (v *AnswerValue) Question() *model.Question { return v.question }

// Instance returns the id query instance.
func (v *AnswerValue) Instance() query.Instance { return v.instance }

// Start returns the first index of the page.
func (v *AnswerValue) Start() int { return v.start }

// End returns the last index of the page.
func (v *AnswerValue) End() int { return v.end }

// Sorting returns the sort specification in effect.
func (v *AnswerValue) Sorting() []model.SortSpec { return v.sorting }

// Filter returns the active filter, or nil.
func (v *AnswerValue) Filter() *model.Filter { return v.filter }

// IsCombined reports whether the id instance is built from other answers.
func (v *AnswerValue) IsCombined() bool {
	return v.instance.Kind() != query.KindLeaf
}

// IsBoolean reports whether the id instance is a boolean combination.
func (v *AnswerValue) IsBoolean() bool {
	return v.instance.Kind() == query.KindBoolean
}

// IsTransform reports whether the id instance is combined but not boolean.
func (v *AnswerValue) IsTransform() bool {
	return v.IsCombined() && !v.IsBoolean()
}

// Checksum returns the checksum of the id instance.
func (v *AnswerValue) Checksum() string {
	return v.instance.Checksum()
}

// Collisions returns the number of duplicate primary keys seen while
// materializing the page.
func (v *AnswerValue) Collisions() int { return v.collisions }

// PageSize returns end - start + 1.
func (v *AnswerValue) PageSize() int {
	return v.end - v.start + 1
}

func (v *AnswerValue) pkColumns() []string {
	return v.question.RecordClass.PrimaryKeyColumns()
}

// rewriter returns the filter as a Rewriter, keeping nil untyped.
func rewriter(f *model.Filter) sqlcompose.Rewriter {
	if f == nil {
		return nil
	}
	return f
}

// unfilteredSize counts the distinct primary keys of the id instance. A
// source that reports a total in its result message is trusted instead.
func (v *AnswerValue) unfilteredSize(ctx context.Context) (int, error) {
	if v.sizes.sized {
		return v.sizes.size, nil
	}
	message, err := v.instance.ResultMessage(ctx)
	if err != nil {
		return 0, err
	}
	var n int
	if message != "" {
		n, err = v.instance.ResultSize(ctx)
	} else {
		n, err = v.countKeys(ctx, nil)
	}
	if err != nil {
		return 0, err
	}
	v.sizes.size, v.sizes.sized = n, true
	return n, nil
}

// countKeys counts the distinct primary keys of the id instance that pass
// filter. A nil filter counts them all.
func (v *AnswerValue) countKeys(ctx context.Context, filter *model.Filter) (int, error) {
	inner, err := v.instance.SQL(ctx)
	if err != nil {
		return 0, err
	}
	count, err := v.composer.FilterCountSQL(inner, v.pkColumns(), rewriter(filter))
	if err != nil {
		return 0, err
	}
	raw, err := v.service.Platform.Scalar(ctx, count)
	if err != nil {
		return 0, err
	}
	n, err := dbms.ScalarInt(raw)
	if err != nil {
		return 0, wdkerr.DataAccess("counting records of "+v.question.FullName, count.SQL, err)
	}
	return n, nil
}

// ResultSize returns the number of records in the whole answer: the
// distinct primary keys of the id instance, or the active filter's count.
func (v *AnswerValue) ResultSize(ctx context.Context) (int, error) {
	if v.filter == nil {
		return v.unfilteredSize(ctx)
	}
	return v.FilterSize(ctx, v.filter.Name)
}

// FilterSize counts the records that pass the named filter. Counts are
// kept per filter name.
func (v *AnswerValue) FilterSize(ctx context.Context, name string) (int, error) {
	if n, ok := v.sizes.filters[name]; ok {
		return n, nil
	}
	f, err := v.question.RecordClass.Filter(name)
	if err != nil {
		return 0, err
	}
	n, err := v.countKeys(ctx, f)
	if err != nil {
		return 0, err
	}
	v.sizes.filters[name] = n
	slog.Debug("filter size computed", "question", v.question.FullName, "filter", name, "size", n)
	return n, nil
}

// ResultSizesByProject returns the record count per project. A source that
// reports counts in its result message is trusted; otherwise the filtered
// id result is grouped on ProjectColumn.
func (v *AnswerValue) ResultSizesByProject(ctx context.Context) (map[string]int, error) {
	if v.sizes.projected {
		return copyCounts(v.sizes.projects), nil
	}

	message, err := v.instance.ResultMessage(ctx)
	if err != nil {
		return nil, err
	}
	var counts map[string]int
	if message != "" {
		counts, err = query.ParseProjectCounts(message)
		if err != nil {
			return nil, err
		}
	} else {
		counts, err = v.groupByProject(ctx)
		if err != nil {
			return nil, err
		}
	}
	v.sizes.projects, v.sizes.projected = counts, true
	return copyCounts(counts), nil
}

func (v *AnswerValue) groupByProject(ctx context.Context) (map[string]int, error) {
	if _, ok := v.instance.Query().Column(ProjectColumn); !ok {
		return nil, wdkerr.ModelConfiguration("id query %s has no %s column to count by project",
			v.instance.Query().FullName(), ProjectColumn)
	}
	inner, err := v.instance.SQL(ctx)
	if err != nil {
		return nil, err
	}
	group, err := v.composer.GroupCountSQL(inner, v.pkColumns(), rewriter(v.filter), ProjectColumn)
	if err != nil {
		return nil, err
	}
	cursor, err := v.service.Platform.Query(ctx, group)
	if err != nil {
		return nil, err
	}
	defer dbms.CloseQuietly(cursor, "project count cursor")

	counts := map[string]int{}
	for cursor.Next() {
		project, err := cursor.Get(ProjectColumn)
		if err != nil {
			return nil, err
		}
		raw, err := cursor.Get("cnt")
		if err != nil {
			return nil, err
		}
		n, err := dbms.ScalarInt(raw)
		if err != nil {
			return nil, wdkerr.DataAccess("counting by project", group.SQL, err)
		}
		counts[stringValue(project)] = n
	}
	if err := cursor.Err(); err != nil {
		return nil, wdkerr.DataAccess("counting by project", group.SQL, err)
	}
	return counts, nil
}

func copyCounts(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, n := range in {
		out[k] = n
	}
	return out
}

// PageCount returns ceil(resultSize / pageSize).
func (v *AnswerValue) PageCount(ctx context.Context) (int, error) {
	size, err := v.ResultSize(ctx)
	if err != nil {
		return 0, err
	}
	return PageCount(size, v.PageSize()), nil
}

// PageCount returns the number of pages of pageSize needed for size
// records.
func PageCount(size, pageSize int) int {
	if size <= 0 || pageSize <= 0 {
		return 0
	}
	return (size + pageSize - 1) / pageSize
}

// IDSQL returns the distinct, filtered primary keys of the answer.
func (v *AnswerValue) IDSQL(ctx context.Context) (dbms.Fragment, error) {
	return v.idSQL(ctx, v.filter)
}

func (v *AnswerValue) idSQL(ctx context.Context, filter *model.Filter) (dbms.Fragment, error) {
	inner, err := v.instance.SQL(ctx)
	if err != nil {
		return dbms.Fragment{}, err
	}
	return v.composer.IDSQL(inner, v.pkColumns(), rewriter(filter))
}

// PagedIDSQL returns the sorted id SQL limited to the page.
func (v *AnswerValue) PagedIDSQL(ctx context.Context) (dbms.Fragment, error) {
	if v.pagedReady {
		return v.pagedID, nil
	}
	idSQL, err := v.IDSQL(ctx)
	if err != nil {
		return dbms.Fragment{}, err
	}
	keys, err := v.resolveSortKeys(ctx)
	if err != nil {
		return dbms.Fragment{}, err
	}
	paged, err := v.composer.PagedIDSQL(idSQL, v.pkColumns(), keys, v.start, v.end)
	if err != nil {
		return dbms.Fragment{}, err
	}
	v.pagedID, v.pagedReady = paged, true
	return paged, nil
}

func (v *AnswerValue) resolveSortKeys(ctx context.Context) ([]sqlcompose.SortKey, error) {
	keys := make([]sqlcompose.SortKey, 0, len(v.sortKeys))
	for _, k := range v.sortKeys {
		cf, ok := k.field.(*model.ColumnField)
		if !ok {
			keys = append(keys, sqlcompose.SortKey{Ascending: k.spec.Ascending})
			continue
		}
		source, sql, err := v.attributeSource(ctx, cf.Query)
		if err != nil {
			return nil, err
		}
		keys = append(keys, sqlcompose.SortKey{
			Source:     source,
			SQL:        sql,
			Column:     cf.Column.SortExpression(),
			IgnoreCase: cf.Column.IgnoreCase,
			Ascending:  k.spec.Ascending,
		})
	}
	return keys, nil
}

// attributeSource returns the join identity and SQL of an attribute query.
// The question's id query backs the dynamic attributes; its SQL is the id
// instance's own, reduced to distinct rows.
func (v *AnswerValue) attributeSource(ctx context.Context, q *query.Query) (string, dbms.Fragment, error) {
	if q == v.question.IDQuery {
		sql, err := v.dynamicSource(ctx)
		return "dynamic:" + q.FullName(), sql, err
	}
	inst, err := v.service.attributeInstance(q)
	if err != nil {
		return "", dbms.Fragment{}, err
	}
	sql, err := inst.SQL(ctx)
	return q.FullName(), sql, err
}

// dynamicSource returns the distinct rows of the id instance. Every primary
// key must map to a single row of dynamic values, otherwise joining them
// would repeat records.
func (v *AnswerValue) dynamicSource(ctx context.Context) (dbms.Fragment, error) {
	q := v.question.IDQuery
	if v.instance.Query() != q {
		return dbms.Fragment{}, wdkerr.ModelConfiguration("dynamic attributes of %s are not available on a %s answer",
			v.question.FullName, v.instance.Kind())
	}
	inner, err := v.instance.SQL(ctx)
	if err != nil {
		return dbms.Fragment{}, err
	}
	if !v.sizes.dynamicChecked {
		check, err := v.composer.AmbiguousKeyCountSQL(inner, v.pkColumns(), q.ColumnNames())
		if err != nil {
			return dbms.Fragment{}, err
		}
		raw, err := v.service.Platform.Scalar(ctx, check)
		if err != nil {
			return dbms.Fragment{}, err
		}
		n, err := dbms.ScalarInt(raw)
		if err != nil {
			return dbms.Fragment{}, wdkerr.DataAccess("checking dynamic attributes of "+v.question.FullName, check.SQL, err)
		}
		if n > 0 {
			return dbms.Fragment{}, wdkerr.ModelConfiguration(
				"id query %s returns more than one row of dynamic attributes for %d primary keys of %s",
				q.FullName(), n, v.question.FullName)
		}
		v.sizes.dynamicChecked = true
	}
	return v.composer.DistinctSQL(inner, q.ColumnNames())
}

// ParamDisplays maps each parameter prompt to its display value.
func (v *AnswerValue) ParamDisplays() map[string]string {
	values := v.instance.Values()
	q := v.instance.Query()
	out := make(map[string]string, len(values))
	for name, value := range values {
		p, ok := q.Param(name)
		if !ok {
			out[name] = value
			continue
		}
		label := query.Base(p).Prompt
		if label == "" {
			label = name
		}
		if e, isEnum := p.(*query.EnumParam); isEnum {
			value = e.Display(value)
		}
		out[label] = value
	}
	return out
}

// SummaryAttributeFields returns the summary attributes, primary key first.
func (v *AnswerValue) SummaryAttributeFields() []model.AttributeField {
	return v.summary
}

// DisplayableAttributes returns the non-internal attributes that are not
// in the summary.
func (v *AnswerValue) DisplayableAttributes() []model.AttributeField {
	inSummary := make(map[string]bool, len(v.summary))
	for _, f := range v.summary {
		inSummary[f.Name()] = true
	}
	var out []model.AttributeField
	for _, f := range v.question.AttributeFields() {
		if !f.IsInternal() && !inSummary[f.Name()] {
			out = append(out, f)
		}
	}
	return out
}

// Answer returns the persisted answer for this value's checksum, saving
// one on first use.
func (v *AnswerValue) Answer(ctx context.Context) (*Answer, error) {
	if v.answer != nil {
		return v.answer, nil
	}
	if v.service.Factory == nil {
		return nil, wdkerr.ModelConfiguration("no answer factory configured")
	}
	a, err := v.service.Factory.GetAnswer(ctx, v.Checksum())
	if err != nil {
		return nil, fmt.Errorf("looking up answer: %w", err)
	}
	if a == nil {
		a, err = v.service.Factory.SaveAnswerValue(ctx, v)
		if err != nil {
			return nil, fmt.Errorf("saving answer: %w", err)
		}
	}
	v.answer = a
	return a, nil
}

// FilterResults returns the distinct primary keys that pass the named
// filter, unpaged.
func (v *AnswerValue) FilterResults(ctx context.Context, name string) (dbms.Cursor, error) {
	f, err := v.question.RecordClass.Filter(name)
	if err != nil {
		return nil, err
	}
	idSQL, err := v.idSQL(ctx, f)
	if err != nil {
		return nil, err
	}
	return v.service.Platform.Query(ctx, idSQL)
}

// PrimaryKeyValues returns every primary key of the filtered answer in
// sort order.
func (v *AnswerValue) PrimaryKeyValues(ctx context.Context) ([]PrimaryKeyValue, error) {
	idSQL, err := v.IDSQL(ctx)
	if err != nil {
		return nil, err
	}
	keys, err := v.resolveSortKeys(ctx)
	if err != nil {
		return nil, err
	}
	sorted, err := v.composer.SortedIDSQL(idSQL, v.pkColumns(), keys)
	if err != nil {
		return nil, err
	}
	return v.readKeys(ctx, sorted)
}

// AllPKValues returns every distinct primary key of the id instance,
// ignoring the filter and sorting.
func (v *AnswerValue) AllPKValues(ctx context.Context) ([]PrimaryKeyValue, error) {
	idSQL, err := v.idSQL(ctx, nil)
	if err != nil {
		return nil, err
	}
	return v.readKeys(ctx, idSQL)
}

func (v *AnswerValue) readKeys(ctx context.Context, f dbms.Fragment) ([]PrimaryKeyValue, error) {
	cursor, err := v.service.Platform.Query(ctx, f)
	if err != nil {
		return nil, err
	}
	defer dbms.CloseQuietly(cursor, "primary key cursor")

	var keys []PrimaryKeyValue
	seen := map[string]bool{}
	for cursor.Next() {
		pk, err := primaryKeyFromCursor(cursor, v.pkColumns())
		if err != nil {
			return nil, err
		}
		if seen[pk.Key()] {
			continue
		}
		seen[pk.Key()] = true
		keys = append(keys, pk)
	}
	if err := cursor.Err(); err != nil {
		return nil, wdkerr.DataAccess("reading primary keys", f.SQL, err)
	}
	return keys, nil
}
