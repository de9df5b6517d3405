package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dripmail/dripmail/internal/config"
	"github.com/dripmail/dripmail/internal/content"
	"github.com/dripmail/dripmail/internal/database"
	"github.com/dripmail/dripmail/internal/email"
	"github.com/dripmail/dripmail/internal/handler"
	"github.com/dripmail/dripmail/internal/logger"
	"github.com/dripmail/dripmail/internal/middleware"
	"github.com/dripmail/dripmail/internal/repository"
	"github.com/dripmail/dripmail/internal/router"
	"github.com/dripmail/dripmail/internal/scheduler"
	"github.com/dripmail/dripmail/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info().Str("version", "0.1.0").Msg("starting Dripmail server")

	// Connect to PostgreSQL
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("connected to PostgreSQL")

	// Connect to Redis
	rdb, err := database.NewRedis(cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("connected to Redis")

	// Initialize repositories
	templateRepo := repository.NewTemplateRepository(db)
	recipientRepo := repository.NewRecipientRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)

	// Initialize the content pipeline
	store := content.NewStore(cfg.Media.Root)
	pipeline := content.NewPipeline(store, cfg.Media, log)

	// Initialize the email sender
	sender, err := email.New(context.Background(), cfg.Email)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize email sender")
	}
	log.Info().Str("provider", cfg.Email.Provider).Msg("email sender initialized")

	// Initialize services
	templateSvc := service.NewTemplateService(templateRepo, pipeline, log)
	recipientSvc := service.NewRecipientService(recipientRepo, log)
	dispatchSvc := service.NewDispatchService(scheduleRepo, templateRepo, recipientRepo, pipeline, sender, log)

	// Initialize handlers and middleware
	h := handler.New(db, rdb, log, cfg, templateSvc, recipientSvc, dispatchSvc)
	mw := middleware.New(rdb, log, cfg)

	// Set up router
	r := router.New(h, mw, cfg)

	// Start the periodic dispatch sweep
	schedCtx, stopScheduler := context.WithCancel(context.Background())
	defer stopScheduler()
	if cfg.Scheduler.Enabled {
		sched := scheduler.New(dispatchSvc, rdb, cfg.Scheduler, log)
		go sched.Run(schedCtx)
	}

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")
	stopScheduler()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
