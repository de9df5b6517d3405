package handler

import (
	"net/http"
)

// ListRecipients handles GET /api/v1/recipients
func (h *Handler) ListRecipients(w http.ResponseWriter, r *http.Request) {
	recipients, err := h.recipientSvc.List(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list recipients")
		writeError(w, http.StatusInternalServerError, "LIST_RECIPIENTS_FAILED", "Failed to list recipients")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"recipients": recipients})
}
