package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/EuPathDB/WSF/pkg/answer"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
	maxBodyBytes     = 1 << 20
)

// listAnswersResponse is the response of GET /answers.
type listAnswersResponse struct {
	Answers []*answer.Answer `json:"answers"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

// getAnswer handles GET /api/v1/answers/{checksum}.
//
//	@Summary		Get answer
//	@Description	Returns the saved answer for an id query checksum.
//	@Tags			Answers
//	@Produce		json
//	@Param			checksum	path		string	true	"Id query instance checksum"
//	@Success		200			{object}	answer.Answer
//	@Failure		404			{object}	errorResponse
//	@Router			/answers/{checksum} [get]
func (h *Handler) getAnswer(w http.ResponseWriter, r *http.Request) {
	if h.deps.Answers.Factory == nil {
		writeError(w, http.StatusNotImplemented, "answers are not persisted")
		return
	}
	a, err := h.deps.Answers.Factory.GetAnswer(r.Context(), r.PathValue("checksum"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	if a == nil {
		writeError(w, http.StatusNotFound, "answer not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// listAnswers handles GET /api/v1/answers.
//
//	@Summary		List answers
//	@Description	Returns saved answers, newest first.
//	@Tags			Answers
//	@Produce		json
//	@Param			question	query		string	false	"Question full name"
//	@Param			limit		query		int		false	"Page size (default 50, max 1000)"
//	@Param			offset		query		int		false	"Offset"
//	@Success		200			{object}	listAnswersResponse
//	@Failure		400			{object}	errorResponse
//	@Failure		501			{object}	errorResponse
//	@Router			/answers [get]
func (h *Handler) listAnswers(w http.ResponseWriter, r *http.Request) {
	lister, ok := h.deps.Answers.Factory.(answer.Lister)
	if !ok {
		writeError(w, http.StatusNotImplemented, "answer listing is not supported")
		return
	}

	limit, err := intQuery(r, "limit", defaultListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := intQuery(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	answers, err := lister.ListAnswers(r.Context(), answer.ListFilter{
		QuestionName: r.URL.Query().Get("question"),
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	if answers == nil {
		answers = []*answer.Answer{}
	}
	writeJSON(w, http.StatusOK, listAnswersResponse{Answers: answers, Limit: limit, Offset: offset})
}

// intQuery parses an integer query parameter.
func intQuery(r *http.Request, name string, def int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", name, s)
	}
	return n, nil
}

// decodeBody decodes an optional JSON body into v. Writes a 400 and
// returns false on malformed input.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
