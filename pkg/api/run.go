package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/EuPathDB/WSF/pkg/answer"
	"github.com/EuPathDB/WSF/pkg/model"
)

var (
	errQuestionNotFound    = errors.New("question not found")
	errRecordClassNotFound = errors.New("record class not found")
	errBadRequest          = errors.New("bad request")
)

// AnswerRequest selects a page of a question's answer.
type AnswerRequest struct {
	// Params are the id query parameter values.
	Params map[string]string `json:"params,omitempty"`

	// Sorting overrides the question's default sorting.
	Sorting []model.SortSpec `json:"sorting,omitempty"`

	// Filter names a record class filter.
	Filter string `json:"filter,omitempty"`

	// Attributes override the question's summary attributes.
	Attributes []string `json:"attributes,omitempty"`

	// Start and End are the 1-based inclusive page window. Zero values
	// select the first default page.
	Start int `json:"start,omitempty"`
	End   int `json:"end,omitempty"`

	// Save persists the answer.
	Save bool `json:"save,omitempty"`
}

// StepRequest selects a page of a boolean or transform answer. The step
// carries the params; the request carries the page, sorting and filter.
type StepRequest struct {
	AnswerRequest

	Step *answer.Step `json:"step"`
}

// RecordResponse is one record looked up by primary key.
type RecordResponse struct {
	RecordClass string            `json:"record_class"`
	ID          map[string]string `json:"id"`
	Attributes  map[string]string `json:"attributes"`
}

// RecordView is one record of a page.
type RecordView struct {
	ID         map[string]string `json:"id"`
	Attributes map[string]string `json:"attributes"`
}

// PageResponse is one page of an answer.
type PageResponse struct {
	Question   string            `json:"question"`
	Checksum   string            `json:"checksum"`
	Params     map[string]string `json:"params,omitempty"`
	Filter     string            `json:"filter,omitempty"`
	ResultSize int               `json:"result_size"`
	Start      int               `json:"start"`
	End        int               `json:"end"`
	PageCount  int               `json:"page_count"`
	Attributes []string          `json:"attributes"`
	Records    []RecordView      `json:"records"`
	Answer     *answer.Answer    `json:"answer,omitempty"`
}

// Runner builds answer pages for the REST and MCP surfaces.
type Runner struct {
	Model   *model.Model
	Answers *answer.Service
}

// MakeAnswerValue validates req against the question and creates its
// answer value.
func (r *Runner) MakeAnswerValue(questionName string, req AnswerRequest) (*answer.AnswerValue, error) {
	q, err := r.Model.Question(questionName)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errQuestionNotFound, questionName)
	}
	opts, err := answerOptions(q, req, false)
	if err != nil {
		return nil, err
	}
	return r.Answers.MakeAnswerValue(q, req.Params, opts...)
}

// MakeStepAnswerValue builds the step of req and creates its answer value.
// Params belong to the steps, not to the request.
func (r *Runner) MakeStepAnswerValue(req StepRequest) (*answer.AnswerValue, error) {
	if len(req.Params) > 0 {
		return nil, fmt.Errorf("%w: params belong to the steps", errBadRequest)
	}
	if req.Step == nil {
		return nil, fmt.Errorf("%w: no step given", errBadRequest)
	}
	q, instance, err := r.Answers.BuildStep(r.Model, req.Step)
	if err != nil {
		return nil, err
	}
	opts, err := answerOptions(q, req.AnswerRequest, instance.Query() != q.IDQuery)
	if err != nil {
		return nil, err
	}
	return r.Answers.NewAnswerValue(q, instance, opts...)
}

// answerOptions validates the page, sorting, filter and attributes of req
// against q. A combined answer cannot use the question's dynamic
// attributes.
func answerOptions(q *model.Question, req AnswerRequest, combined bool) ([]answer.Option, error) {
	usable := func(name string) (model.AttributeField, error) {
		f, err := q.AttributeField(name)
		if err != nil {
			return nil, err
		}
		if cf, ok := f.(*model.ColumnField); ok && combined && q.IsDynamic(cf) {
			return nil, fmt.Errorf("dynamic attribute %s is not available on a combined answer", name)
		}
		return f, nil
	}
	for _, s := range req.Sorting {
		f, err := usable(s.Attribute)
		if err != nil {
			return nil, fmt.Errorf("%w: sorting: %w", errBadRequest, err)
		}
		if !model.Sortable(f) {
			return nil, fmt.Errorf("%w: sorting: attribute %s is not sortable", errBadRequest, s.Attribute)
		}
	}
	for _, name := range req.Attributes {
		if _, err := usable(name); err != nil {
			return nil, fmt.Errorf("%w: attributes: %w", errBadRequest, err)
		}
	}
	opts := []answer.Option{}
	if req.Filter != "" {
		if _, err := q.RecordClass.Filter(req.Filter); err != nil {
			return nil, fmt.Errorf("%w: filter: %w", errBadRequest, err)
		}
		opts = append(opts, answer.WithFilter(req.Filter))
	}
	if req.Sorting != nil {
		opts = append(opts, answer.WithSorting(req.Sorting))
	}
	if len(req.Attributes) > 0 {
		opts = append(opts, answer.WithSummaryAttributes(req.Attributes))
	}
	if req.Start != 0 || req.End != 0 {
		start, end := req.Start, req.End
		if start == 0 {
			start = 1
		}
		if end == 0 {
			end = start + answer.DefaultPageSize - 1
		}
		opts = append(opts, answer.WithRange(start, end))
	}
	return opts, nil
}

// Run creates the answer value for req and materializes its page.
func (r *Runner) Run(ctx context.Context, questionName string, req AnswerRequest) (*PageResponse, error) {
	av, err := r.MakeAnswerValue(questionName, req)
	if err != nil {
		return nil, err
	}
	return buildAndSave(ctx, av, req.Save)
}

// RunStep creates the answer value of a combined step and materializes its
// page.
func (r *Runner) RunStep(ctx context.Context, req StepRequest) (*PageResponse, error) {
	av, err := r.MakeStepAnswerValue(req)
	if err != nil {
		return nil, err
	}
	return buildAndSave(ctx, av, req.Save)
}

func buildAndSave(ctx context.Context, av *answer.AnswerValue, save bool) (*PageResponse, error) {
	resp, err := BuildPage(ctx, av)
	if err != nil {
		return nil, err
	}
	if save {
		a, err := av.Answer(ctx)
		if err != nil {
			return nil, err
		}
		resp.Answer = a
	}
	return resp, nil
}

// Record looks up one record of the named record class by its primary key
// columns and renders every displayable attribute.
func (r *Runner) Record(ctx context.Context, recordClass string, key map[string]string) (*RecordResponse, error) {
	rc, err := r.Model.RecordClass(recordClass)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errRecordClassNotFound, recordClass)
	}
	for col := range key {
		if !rc.IsPrimaryKeyColumn(col) {
			return nil, fmt.Errorf("%w: %s is not a primary key column of %s", errBadRequest, col, rc.FullName)
		}
	}
	rec, err := r.Answers.RecordByKey(ctx, rc, key)
	if err != nil {
		return nil, err
	}
	resp := &RecordResponse{
		RecordClass: rc.FullName,
		ID:          rec.PrimaryKey().Map(),
		Attributes:  map[string]string{},
	}
	for _, f := range rc.AttributeFields() {
		if f.IsInternal() {
			continue
		}
		v, err := rec.AttributeValue(ctx, f.Name())
		if err != nil {
			return nil, err
		}
		resp.Attributes[f.Name()] = v.String()
	}
	return resp, nil
}

// BuildPage renders the current page of av with its summary attributes.
func BuildPage(ctx context.Context, av *answer.AnswerValue) (*PageResponse, error) {
	size, err := av.ResultSize(ctx)
	if err != nil {
		return nil, err
	}
	pages, err := av.PageCount(ctx)
	if err != nil {
		return nil, err
	}
	records, err := av.RecordInstances(ctx)
	if err != nil {
		return nil, err
	}

	fields := av.SummaryAttributeFields()
	resp := &PageResponse{
		Question:   av.Question().FullName,
		Checksum:   av.Checksum(),
		Params:     av.ParamDisplays(),
		ResultSize: size,
		Start:      av.Start(),
		End:        av.End(),
		PageCount:  pages,
		Attributes: make([]string, 0, len(fields)),
		Records:    make([]RecordView, 0, len(records)),
	}
	if f := av.Filter(); f != nil {
		resp.Filter = f.Name
	}
	for _, f := range fields {
		resp.Attributes = append(resp.Attributes, f.Name())
	}
	for _, rec := range records {
		view := RecordView{ID: rec.PrimaryKey().Map(), Attributes: make(map[string]string, len(fields))}
		for _, f := range fields {
			v, err := rec.AttributeValue(ctx, f.Name())
			if err != nil {
				return nil, err
			}
			view.Attributes[f.Name()] = v.String()
		}
		resp.Records = append(resp.Records, view)
	}
	return resp, nil
}
