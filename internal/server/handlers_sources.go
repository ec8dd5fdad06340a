package server

import (
	"errors"
	"net/http"

	"github.com/ashita-ai/kasane/internal/model"
	"github.com/ashita-ai/kasane/internal/studio"
)

// HandleIngest handles POST /v1/ingest. URL sources are validated and
// ingested directly, without the preview round trip.
func (h *Handlers) HandleIngest(w http.ResponseWriter, r *http.Request) {
	var req model.IngestRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	st, ok := model.ParseSourceType(string(req.SourceType))
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput,
			"source_type must be one of url, youtube, paste, manual")
		return
	}

	b, err := h.studio.Ingest(r.Context(), studio.IngestInput{
		SourceType: st,
		Value:      req.InputValue,
		Purpose:    req.Purpose,
	})
	if err != nil {
		h.writeStudioError(w, r, err, nil)
		return
	}
	writeJSON(w, r, http.StatusCreated, b)
}

// HandlePreview handles POST /v1/preview.
func (h *Handlers) HandlePreview(w http.ResponseWriter, r *http.Request) {
	var req model.PreviewRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	p, err := h.studio.Preview(r.Context(), req.URL)
	if err != nil {
		h.writeStudioError(w, r, err, nil)
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}

// HandleGetPreview handles GET /v1/preview.
func (h *Handlers) HandleGetPreview(w http.ResponseWriter, r *http.Request) {
	p, ok := h.studio.PendingPreview()
	if !ok {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "no pending preview")
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}

// HandleConfirmPreview handles POST /v1/preview/confirm.
func (h *Handlers) HandleConfirmPreview(w http.ResponseWriter, r *http.Request) {
	b, err := h.studio.ConfirmPreview(r.Context())
	if err != nil {
		h.writeStudioError(w, r, err, nil)
		return
	}
	writeJSON(w, r, http.StatusCreated, b)
}

// HandleDiscardPreview handles DELETE /v1/preview.
func (h *Handlers) HandleDiscardPreview(w http.ResponseWriter, r *http.Request) {
	if !h.studio.DiscardPreview() {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "no pending preview")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleBaseline handles GET /v1/baseline.
func (h *Handlers) HandleBaseline(w http.ResponseWriter, r *http.Request) {
	b, err := h.studio.Baseline()
	if errors.Is(err, studio.ErrNoBaseline) {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "no baseline established")
		return
	}
	if err != nil {
		h.writeStudioError(w, r, err, nil)
		return
	}
	writeJSON(w, r, http.StatusOK, b)
}

// HandleReadiness handles GET /v1/readiness.
func (h *Handlers) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.studio.Readiness())
}

// HandleEligibility handles GET /v1/eligibility for the caller's tier.
func (h *Handlers) HandleEligibility(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.studio.Eligibility(h.callerTier(r)))
}
