package api

import (
	"net/http"

	"github.com/EuPathDB/WSF/pkg/model"
	"github.com/EuPathDB/WSF/pkg/query"
)

// ParamSummary describes one question parameter.
type ParamSummary struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Prompt     string   `json:"prompt,omitempty"`
	Help       string   `json:"help,omitempty"`
	Default    string   `json:"default,omitempty"`
	AllowEmpty bool     `json:"allow_empty,omitempty"`
	Terms      []string `json:"terms,omitempty"`
	MultiPick  bool     `json:"multi_pick,omitempty"`
}

// AttributeSummary describes one attribute field.
type AttributeSummary struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// QuestionSummary describes a question.
type QuestionSummary struct {
	Name              string             `json:"name"`
	DisplayName       string             `json:"display_name,omitempty"`
	Description       string             `json:"description,omitempty"`
	RecordClass       string             `json:"record_class"`
	Params            []ParamSummary     `json:"params"`
	SummaryAttributes []string           `json:"summary_attributes"`
	Attributes        []AttributeSummary `json:"attributes,omitempty"`
	Filters           []string           `json:"filters,omitempty"`
	Reporters         []string           `json:"reporters,omitempty"`
	DefaultSorting    []model.SortSpec   `json:"default_sorting,omitempty"`
}

// listQuestionsResponse is the response of GET /questions.
type listQuestionsResponse struct {
	Questions []QuestionSummary `json:"questions"`
	Total     int               `json:"total"`
}

// describeParam summarizes p.
func describeParam(p query.Param) ParamSummary {
	b := query.Base(p)
	s := ParamSummary{
		Name:       b.Name,
		Prompt:     b.Prompt,
		Help:       b.Help,
		Default:    b.Default,
		AllowEmpty: b.AllowEmpty,
	}
	switch tp := p.(type) {
	case *query.StringParam:
		s.Type = "string"
	case *query.NumberParam:
		s.Type = "number"
	case *query.EnumParam:
		s.Type = "enum"
		s.MultiPick = tp.MultiPick
		for _, t := range tp.Terms {
			s.Terms = append(s.Terms, t.Term)
		}
	case *query.AnswerParam:
		s.Type = "answer"
	}
	return s
}

// DescribeQuestion summarizes q. detail adds attributes, filters and
// reporters.
func DescribeQuestion(q *model.Question, detail bool) QuestionSummary {
	s := QuestionSummary{
		Name:           q.FullName,
		DisplayName:    q.DisplayName,
		Description:    q.Description,
		RecordClass:    q.RecordClass.FullName,
		Params:         make([]ParamSummary, 0, len(q.IDQuery.Params)),
		DefaultSorting: q.DefaultSorting,
	}
	for _, p := range q.IDQuery.Params {
		s.Params = append(s.Params, describeParam(p))
	}
	fields, _ := q.SummaryAttributeFields(nil) // validated when the model was loaded
	for _, f := range fields {
		s.SummaryAttributes = append(s.SummaryAttributes, f.Name())
	}
	if !detail {
		return s
	}
	for _, f := range q.AttributeFields() {
		if f.IsInternal() {
			continue
		}
		s.Attributes = append(s.Attributes, AttributeSummary{Name: f.Name(), DisplayName: f.DisplayName()})
	}
	for _, f := range q.RecordClass.Filters() {
		s.Filters = append(s.Filters, f.Name)
	}
	for _, r := range q.RecordClass.Reporters() {
		s.Reporters = append(s.Reporters, r.Name)
	}
	return s
}

// listQuestions handles GET /api/v1/questions.
//
//	@Summary		List questions
//	@Description	Returns every question of the loaded model with its parameters.
//	@Tags			Questions
//	@Produce		json
//	@Success		200	{object}	listQuestionsResponse
//	@Router			/questions [get]
func (h *Handler) listQuestions(w http.ResponseWriter, _ *http.Request) {
	questions := h.deps.Model.Questions()
	resp := listQuestionsResponse{
		Questions: make([]QuestionSummary, 0, len(questions)),
		Total:     len(questions),
	}
	for _, q := range questions {
		resp.Questions = append(resp.Questions, DescribeQuestion(q, false))
	}
	writeJSON(w, http.StatusOK, resp)
}

// getQuestion handles GET /api/v1/questions/{name}.
//
//	@Summary		Get question
//	@Description	Returns one question with its attributes, filters and reporters.
//	@Tags			Questions
//	@Produce		json
//	@Param			name	path		string	true	"Question full name"
//	@Success		200		{object}	QuestionSummary
//	@Failure		404		{object}	errorResponse
//	@Router			/questions/{name} [get]
func (h *Handler) getQuestion(w http.ResponseWriter, r *http.Request) {
	q, err := h.deps.Model.Question(r.PathValue("name"))
	if err != nil {
		writeError(w, http.StatusNotFound, "question not found")
		return
	}
	writeJSON(w, http.StatusOK, DescribeQuestion(q, true))
}

// runQuestion handles POST /api/v1/questions/{name}/answer.
//
//	@Summary		Run question
//	@Description	Binds parameters, applies sorting and filter and returns one page of the answer.
//	@Tags			Answers
//	@Accept			json
//	@Produce		json
//	@Param			name	path		string			true	"Question full name"
//	@Param			request	body		AnswerRequest	true	"Parameters and page window"
//	@Success		200		{object}	PageResponse
//	@Failure		400		{object}	errorResponse
//	@Failure		404		{object}	errorResponse
//	@Router			/questions/{name}/answer [post]
func (h *Handler) runQuestion(w http.ResponseWriter, r *http.Request) {
	var req AnswerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	page, err := h.runner().Run(r.Context(), r.PathValue("name"), req)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) runner() *Runner {
	return &Runner{Model: h.deps.Model, Answers: h.deps.Answers}
}
