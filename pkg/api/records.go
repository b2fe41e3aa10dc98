package api

import "net/http"

// getRecord handles GET /api/v1/records/{recordClass}.
//
//	@Summary		Get record
//	@Description	Looks up one record by its primary key columns, given as query parameters, and returns every displayable attribute.
//	@Tags			Records
//	@Produce		json
//	@Param			recordClass	path		string	true	"Record class full name"
//	@Success		200			{object}	RecordResponse
//	@Failure		400			{object}	errorResponse
//	@Failure		404			{object}	errorResponse
//	@Router			/records/{recordClass} [get]
func (h *Handler) getRecord(w http.ResponseWriter, r *http.Request) {
	key := map[string]string{}
	for name, values := range r.URL.Query() {
		if len(values) != 1 {
			writeError(w, http.StatusBadRequest, "primary key column "+name+" must be given once")
			return
		}
		key[name] = values[0]
	}
	rec, err := h.runner().Record(r.Context(), r.PathValue("recordClass"), key)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
