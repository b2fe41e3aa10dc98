// Package api provides the REST API over questions, answers and reports.
//
//	@title			WDK answer service
//	@version		1.0
//	@description	Runs model questions and pages, persists and reports their answers.
//	@BasePath		/api/v1
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/EuPathDB/WSF/pkg/answer"
	"github.com/EuPathDB/WSF/pkg/auth"
	"github.com/EuPathDB/WSF/pkg/dbms"
	"github.com/EuPathDB/WSF/pkg/model"
	"github.com/EuPathDB/WSF/pkg/wdkerr"
)

// Deps holds the handler dependencies.
type Deps struct {
	// Model resolves questions.
	Model *model.Model

	// Answers creates answer values.
	Answers *answer.Service

	// Login checks the login cookie. Nil serves every request as the guest.
	Login *auth.LoginChecker
}

// Handler provides the REST API endpoints.
type Handler struct {
	mux  *http.ServeMux
	deps Deps
}

// NewHandler creates a new REST API handler.
func NewHandler(deps Deps) *Handler {
	h := &Handler{
		mux:  http.NewServeMux(),
		deps: deps,
	}
	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.deps.Login != nil {
		h.deps.Login.CheckLogin(h.mux).ServeHTTP(w, r)
		return
	}
	h.mux.ServeHTTP(w, r)
}

// registerRoutes registers all API routes.
func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /api/v1/questions", h.listQuestions)
	h.mux.HandleFunc("GET /api/v1/questions/{name}", h.getQuestion)
	h.mux.HandleFunc("POST /api/v1/questions/{name}/answer", h.runQuestion)
	h.mux.HandleFunc("POST /api/v1/questions/{name}/report/{reporter}", h.createReport)
	h.mux.HandleFunc("GET /api/v1/answers", h.listAnswers)
	h.mux.HandleFunc("GET /api/v1/answers/{checksum}", h.getAnswer)
	h.mux.HandleFunc("POST /api/v1/steps/answer", h.runStep)
	h.mux.HandleFunc("GET /api/v1/records/{recordClass}", h.getRecord)
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeFailure maps err to a status and writes it.
func writeFailure(w http.ResponseWriter, err error) {
	writeJSON(w, StatusFor(err), errorResponse{Error: err.Error(), Kind: string(wdkerr.KindOf(err))})
}

// StatusFor maps an engine error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, errQuestionNotFound), errors.Is(err, answer.ErrQuestionNotFound),
		errors.Is(err, errRecordClassNotFound), errors.Is(err, answer.ErrRecordNotFound),
		errors.Is(err, answer.ErrReporterNotFound):
		return http.StatusNotFound
	case wdkerr.IsParameterValidation(err), errors.Is(err, dbms.ErrInvalidRange),
		errors.Is(err, errBadRequest), errors.Is(err, answer.ErrInvalidStep):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
