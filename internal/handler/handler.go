package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dripmail/dripmail/internal/config"
	"github.com/dripmail/dripmail/internal/database"
	"github.com/dripmail/dripmail/internal/logger"
	"github.com/dripmail/dripmail/internal/service"
)

// Handler holds all HTTP handlers
type Handler struct {
	db           *database.Postgres
	rdb          *database.Redis
	log          *logger.Logger
	cfg          *config.Config
	templateSvc  *service.TemplateService
	recipientSvc *service.RecipientService
	dispatchSvc  *service.DispatchService
}

// New creates a new Handler instance
func New(db *database.Postgres, rdb *database.Redis, log *logger.Logger, cfg *config.Config, templateSvc *service.TemplateService, recipientSvc *service.RecipientService, dispatchSvc *service.DispatchService) *Handler {
	return &Handler{
		db:           db,
		rdb:          rdb,
		log:          log,
		cfg:          cfg,
		templateSvc:  templateSvc,
		recipientSvc: recipientSvc,
		dispatchSvc:  dispatchSvc,
	}
}

// JSON helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	})
}

func readJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return errors.New("request body is empty")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}
