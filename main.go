package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/okenna/dreamloom-be/internal/api"
	"github.com/okenna/dreamloom-be/internal/auth"
	"github.com/okenna/dreamloom-be/internal/config"
	"github.com/okenna/dreamloom-be/internal/database"
	"github.com/okenna/dreamloom-be/internal/imagegen"
	"github.com/okenna/dreamloom-be/internal/llm"
	"github.com/okenna/dreamloom-be/internal/logger"
	"github.com/okenna/dreamloom-be/internal/monitoring"
	"github.com/okenna/dreamloom-be/internal/services"
	"github.com/okenna/dreamloom-be/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Env)

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Token issuer shared read-only across all requests
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)

	// External collaborators
	llmClient := llm.New(cfg.GroqAPIKey, cfg.GroqModel)
	imageClient := imagegen.New(cfg.PixazoAPIKey)

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	userService := services.NewUserService(db)
	eventService := services.NewEventService(db)
	dreamService := services.NewDreamService(db, llmClient, imageClient, eventService, hub)

	// Set up and run the background stats updater
	statUpdater := monitoring.NewStatUpdater(eventService)
	go statUpdater.Run()

	// Set up and run the background digest scheduler
	digestScheduler, err := monitoring.NewDigestScheduler(dreamService, eventService, cfg.DigestCron)
	if err != nil {
		log.Fatal().Err(err).Str("cron", cfg.DigestCron).Msg("Invalid digest cron expression")
	}
	go digestScheduler.Run()

	// Set up router
	router := api.NewRouter(tokens, hub, userService, dreamService, eventService, statUpdater)

	// Set up server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Server starting")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe()")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	statUpdater.Stop()
	digestScheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
