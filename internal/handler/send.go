package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/dripmail/dripmail/internal/email"
	"github.com/dripmail/dripmail/internal/repository"
	"github.com/dripmail/dripmail/internal/service"
)

// sendNowRequest is the payload for an immediate send
type sendNowRequest struct {
	TemplateID   string   `json:"template_id"`
	RecipientIDs []string `json:"recipient_ids"`
}

// scheduleRequest is the payload for a future-scheduled send
type scheduleRequest struct {
	TemplateID    string   `json:"template_id"`
	RecipientIDs  []string `json:"recipient_ids"`
	ScheduledDate string   `json:"scheduled_date"`
}

// ListSends handles GET /api/v1/sends
func (h *Handler) ListSends(w http.ResponseWriter, r *http.Request) {
	sends, err := h.dispatchSvc.ListSends(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list sends")
		writeError(w, http.StatusInternalServerError, "LIST_SENDS_FAILED", "Failed to list sends")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sends": sends})
}

// SendNow handles POST /api/v1/sends/now
func (h *Handler) SendNow(w http.ResponseWriter, r *http.Request) {
	var req sendNowRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if req.TemplateID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_TEMPLATE_ID", "Template ID is required")
		return
	}

	created, err := h.dispatchSvc.SendNow(r.Context(), req.TemplateID, req.RecipientIDs)
	if err != nil {
		h.writeDispatchError(w, err, "SEND_FAILED", "Failed to send email")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Email sent",
		"count":   created,
	})
}

// ScheduleSend handles POST /api/v1/sends/schedule
func (h *Handler) ScheduleSend(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if req.TemplateID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_TEMPLATE_ID", "Template ID is required")
		return
	}

	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_DATE", "Invalid date format, expected RFC 3339")
		return
	}

	created, err := h.dispatchSvc.Schedule(r.Context(), req.TemplateID, req.RecipientIDs, scheduledAt)
	if err != nil {
		h.writeDispatchError(w, err, "SCHEDULE_FAILED", "Failed to schedule emails")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Emails scheduled",
		"count":   created,
	})
}

// CancelSend handles DELETE /api/v1/sends/{id}
func (h *Handler) CancelSend(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_SEND_ID", "Send ID is required")
		return
	}

	if err := h.dispatchSvc.Cancel(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "SEND_NOT_FOUND", "Scheduled send not found")
			return
		}
		h.log.Error().Err(err).Str("send_id", id).Msg("failed to cancel send")
		writeError(w, http.StatusInternalServerError, "CANCEL_FAILED", "Failed to cancel scheduled send")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "Scheduled send deleted"})
}

// TriggerSweep handles POST /api/v1/dispatch/sweep
func (h *Handler) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	report, err := h.dispatchSvc.Sweep(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("on-demand sweep failed")
		writeError(w, http.StatusInternalServerError, "SWEEP_FAILED", "Sweep could not be completed")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// writeDispatchError maps dispatch failures onto HTTP responses
func (h *Handler) writeDispatchError(w http.ResponseWriter, err error, code, message string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Referenced template or recipient not found")
	case errors.Is(err, service.ErrNoRecipients):
		writeError(w, http.StatusBadRequest, "NO_RECIPIENTS", "No recipients selected")
	case errors.Is(err, email.ErrDelivery):
		h.log.Error().Err(err).Msg("delivery failed")
		writeError(w, http.StatusBadGateway, "DELIVERY_FAILED", "Email transport failed")
	default:
		h.log.Error().Err(err).Msg(message)
		writeError(w, http.StatusInternalServerError, code, message)
	}
}
