package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ashita-ai/kasane/internal/model"
)

// HandleVault handles GET /v1/vault. Items come back in append order;
// ?limit=N keeps only the N most recent.
func (h *Handlers) HandleVault(w http.ResponseWriter, r *http.Request) {
	items, err := h.studio.Vault(r.Context())
	if err != nil {
		h.writeInternalError(w, r, "failed to list vault", err)
		return
	}
	if limit := queryLimit(r); limit > 0 && len(items) > limit {
		items = items[len(items)-limit:]
	}
	if items == nil {
		items = []model.GeneratedOutput{}
	}
	writeJSON(w, r, http.StatusOK, items)
}

// HandleVaultItem handles GET /v1/vault/{id}.
func (h *Handlers) HandleVaultItem(w http.ResponseWriter, r *http.Request) {
	out, err := h.studio.VaultItem(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeStudioError(w, r, err, nil)
		return
	}
	writeJSON(w, r, http.StatusOK, out)
}

// HandleExport handles GET /v1/vault/{id}/export. The body is the
// rendered document, not an envelope.
func (h *Handlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	exp, err := h.studio.ExportOutput(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeStudioError(w, r, err, nil)
		return
	}
	w.Header().Set("Content-Type", exp.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, exp.Filename))
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(exp.Body)
}

// HandleDiagnostics handles GET /v1/diagnostics.
func (h *Handlers) HandleDiagnostics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.studio.Diagnostics())
}

// HandleClearDiagnostics handles DELETE /v1/diagnostics.
func (h *Handlers) HandleClearDiagnostics(w http.ResponseWriter, r *http.Request) {
	h.studio.ClearDiagnostics()
	w.WriteHeader(http.StatusNoContent)
}

// HandleDiagnosticsStream handles GET /v1/diagnostics/stream (SSE).
func (h *Handlers) HandleDiagnosticsStream(w http.ResponseWriter, r *http.Request) {
	if h.broker == nil {
		writeError(w, r, http.StatusServiceUnavailable, model.ErrCodeInternalError, "diagnostic streaming not available")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Long-lived connection; the server WriteTimeout must not cut it.
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	ch := h.broker.Subscribe()
	defer h.broker.Unsubscribe(ch)

	keepalive := time.NewTicker(15 * time.Second)
	defer keepalive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-keepalive.C:
			if _, err := w.Write([]byte(":keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case event, ok := <-ch:
			if !ok {
				return
			}
			if _, err := w.Write(event); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
