package api

import "net/http"

// runStep handles POST /api/v1/steps/answer.
//
//	@Summary		Run combined answer
//	@Description	Builds a boolean or transform step from other questions and returns one page of its answer.
//	@Tags			Answers
//	@Accept			json
//	@Produce		json
//	@Param			request	body		StepRequest	true	"Step tree, sorting and page window"
//	@Success		200		{object}	PageResponse
//	@Failure		400		{object}	errorResponse
//	@Failure		404		{object}	errorResponse
//	@Router			/steps/answer [post]
func (h *Handler) runStep(w http.ResponseWriter, r *http.Request) {
	var req StepRequest
	if !decodeBody(w, r, &req) {
		return
	}
	page, err := h.runner().RunStep(r.Context(), req)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}
