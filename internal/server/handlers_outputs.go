package server

import (
	"net/http"

	"github.com/ashita-ai/kasane/internal/model"
)

// HandleGenerate handles POST /v1/outputs/{type}. Generation is
// synchronous: the response carries the final status and, on success,
// the stored output. A failed generation still reports its status in the
// error details.
func (h *Handlers) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	t, ok := pathOutputType(w, r)
	if !ok {
		return
	}

	resp, err := h.studio.Generate(r.Context(), t, h.callerTier(r))
	if err != nil {
		var details any
		if resp.Status.Type != "" {
			details = resp.Status
		}
		h.writeStudioError(w, r, err, details)
		return
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// HandleOutputStatus handles GET /v1/outputs/status.
func (h *Handlers) HandleOutputStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.studio.Status())
}

// HandleOutputResult handles GET /v1/outputs/{type}: the in-memory
// structured result of the last successful generation.
func (h *Handlers) HandleOutputResult(w http.ResponseWriter, r *http.Request) {
	t, ok := pathOutputType(w, r)
	if !ok {
		return
	}
	res, found := h.studio.Result(t)
	if !found {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "no result for "+t.DisplayName())
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// HandleOutputReset handles POST /v1/outputs/{type}/reset.
func (h *Handlers) HandleOutputReset(w http.ResponseWriter, r *http.Request) {
	t, ok := pathOutputType(w, r)
	if !ok {
		return
	}
	st, err := h.studio.DevReset(t)
	if err != nil {
		h.writeStudioError(w, r, err, nil)
		return
	}
	writeJSON(w, r, http.StatusOK, st)
}
