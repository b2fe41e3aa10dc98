package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/EuPathDB/WSF/pkg/answer"
)

// ReportRequest selects the answer and range a report covers.
type ReportRequest struct {
	AnswerRequest

	// Config overrides the reporter properties declared in the model.
	Config map[string]string `json:"config,omitempty"`
}

// createReport handles POST /api/v1/questions/{name}/report/{reporter}.
//
//	@Summary		Create report
//	@Description	Formats the answer with a reporter declared by the question's record class. Without start and end the whole answer is reported.
//	@Tags			Reports
//	@Accept			json
//	@Produce		plain
//	@Param			name		path		string			true	"Question full name"
//	@Param			reporter	path		string			true	"Reporter name"
//	@Param			request		body		ReportRequest	false	"Parameters, range and reporter config"
//	@Success		200			{string}	string
//	@Failure		400			{object}	errorResponse
//	@Failure		404			{object}	errorResponse
//	@Router			/questions/{name}/report/{reporter} [post]
func (h *Handler) createReport(w http.ResponseWriter, r *http.Request) {
	var req ReportRequest
	if !decodeBody(w, r, &req) {
		return
	}
	name, reporterName := r.PathValue("name"), r.PathValue("reporter")

	// The report range replaces the page window.
	ranged := req.Start != 0 || req.End != 0
	start, end := req.Start, req.End
	req.Start, req.End = 0, 0

	av, err := h.runner().MakeAnswerValue(name, req.AnswerRequest)
	if err != nil {
		writeFailure(w, err)
		return
	}

	ctx := r.Context()
	var rep answer.Reporter
	if ranged {
		if start == 0 {
			start = 1
		}
		if end == 0 {
			end = start
		}
		rep, err = av.CreateReportRange(ctx, reporterName, req.Config, start, end)
	} else {
		rep, err = av.CreateReport(ctx, reporterName, req.Config)
	}
	if err != nil {
		writeFailure(w, err)
		return
	}

	var buf bytes.Buffer
	if err := rep.Write(ctx, &buf); err != nil {
		writeFailure(w, err)
		return
	}
	filename := fmt.Sprintf("%s.%s", strings.ReplaceAll(name, "/", "_"), rep.FileExtension())
	w.Header().Set("Content-Type", rep.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
