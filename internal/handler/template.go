package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dripmail/dripmail/internal/content"
	"github.com/dripmail/dripmail/internal/repository"
)

// templateRequest is the payload for creating or updating a template
type templateRequest struct {
	Subject string `json:"subject"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (req *templateRequest) validate() string {
	if strings.TrimSpace(req.Subject) == "" {
		return "Subject is required"
	}
	if strings.TrimSpace(req.Title) == "" {
		return "Title is required"
	}
	return ""
}

// ListTemplates handles GET /api/v1/templates
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.templateSvc.List(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list templates")
		writeError(w, http.StatusInternalServerError, "LIST_TEMPLATES_FAILED", "Failed to list templates")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"templates": templates})
}

// CreateTemplate handles POST /api/v1/templates
func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", msg)
		return
	}

	tmpl, err := h.templateSvc.Create(r.Context(), req.Subject, req.Title, req.Content)
	if err != nil {
		h.writeContentError(w, err, "CREATE_TEMPLATE_FAILED", "Failed to create template")
		return
	}
	writeJSON(w, http.StatusCreated, tmpl)
}

// UpdateTemplate handles PUT /api/v1/templates/{id}
func (h *Handler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_TEMPLATE_ID", "Template ID is required")
		return
	}

	var req templateRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", msg)
		return
	}

	tmpl, err := h.templateSvc.Update(r.Context(), id, req.Subject, req.Title, req.Content)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "TEMPLATE_NOT_FOUND", "Template not found")
			return
		}
		h.writeContentError(w, err, "UPDATE_TEMPLATE_FAILED", "Failed to update template")
		return
	}
	writeJSON(w, http.StatusOK, tmpl)
}

// DeleteTemplate handles DELETE /api/v1/templates/{id}
func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_TEMPLATE_ID", "Template ID is required")
		return
	}

	if err := h.templateSvc.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "TEMPLATE_NOT_FOUND", "Template not found")
			return
		}
		h.log.Error().Err(err).Str("template_id", id).Msg("failed to delete template")
		writeError(w, http.StatusInternalServerError, "DELETE_TEMPLATE_FAILED", "Failed to delete template")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "Template deleted"})
}

// writeContentError maps extraction pipeline failures onto HTTP responses
func (h *Handler) writeContentError(w http.ResponseWriter, err error, code, message string) {
	if errors.Is(err, content.ErrDecode) {
		writeError(w, http.StatusBadRequest, "INVALID_IMAGE_DATA", "Embedded image data could not be decoded")
		return
	}
	h.log.Error().Err(err).Msg(message)
	writeError(w, http.StatusInternalServerError, code, message)
}
