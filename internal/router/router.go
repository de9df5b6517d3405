package router

import (
	"net/http"
	"time"

	"github.com/dripmail/dripmail/internal/config"
	"github.com/dripmail/dripmail/internal/handler"
	"github.com/dripmail/dripmail/internal/middleware"
)

// New creates and configures the HTTP router
func New(h *handler.Handler, mw *middleware.Middleware, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoints
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ready", h.Ready)

	// API v1 routes
	mux.HandleFunc("GET /api/v1/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"Dripmail API v1","version":"0.1.0"}`))
	})

	// Mutating routes are rate limited per client IP
	writeRateLimit := mw.RateLimit(middleware.RateLimitConfig{
		Limit:  30,
		Window: 1 * time.Minute,
		KeyFn:  middleware.IPKey,
	})
	sendRateLimit := mw.RateLimit(middleware.RateLimitConfig{
		Limit:  10,
		Window: 1 * time.Minute,
		KeyFn:  middleware.IPKey,
	})

	// Template routes
	mux.HandleFunc("GET /api/v1/templates", h.ListTemplates)
	mux.Handle("POST /api/v1/templates", writeRateLimit(http.HandlerFunc(h.CreateTemplate)))
	mux.Handle("PUT /api/v1/templates/{id}", writeRateLimit(http.HandlerFunc(h.UpdateTemplate)))
	mux.Handle("DELETE /api/v1/templates/{id}", writeRateLimit(http.HandlerFunc(h.DeleteTemplate)))

	// Recipient routes
	mux.HandleFunc("GET /api/v1/recipients", h.ListRecipients)

	// Scheduled send routes
	mux.HandleFunc("GET /api/v1/sends", h.ListSends)
	mux.Handle("POST /api/v1/sends/now", sendRateLimit(http.HandlerFunc(h.SendNow)))
	mux.Handle("POST /api/v1/sends/schedule", writeRateLimit(http.HandlerFunc(h.ScheduleSend)))
	mux.Handle("DELETE /api/v1/sends/{id}", writeRateLimit(http.HandlerFunc(h.CancelSend)))

	// On-demand sweep trigger, also used by external cron
	mux.Handle("POST /api/v1/dispatch/sweep", sendRateLimit(http.HandlerFunc(h.TriggerSweep)))

	// Extracted image artifacts, served from the media root
	mux.Handle("GET "+cfg.Media.URLPrefix+"/", http.StripPrefix(cfg.Media.URLPrefix+"/", http.FileServer(http.Dir(cfg.Media.Root))))

	// Apply middleware stack
	var root http.Handler = mux

	// CORS (frontend origins)
	root = mw.CORS([]string{"http://localhost:3000", "http://localhost:5173"})(root)

	// Security headers
	root = mw.SecurityHeaders(root)

	// Request logging
	root = mw.Logger(root)

	// Timing
	root = mw.Timing(root)

	// Request ID
	root = mw.RequestID(root)

	// Panic recovery (outermost)
	root = mw.Recover(root)

	return root
}
