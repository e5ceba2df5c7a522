package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/okenna/dreamloom-be/internal/api/handlers"
	"github.com/okenna/dreamloom-be/internal/auth"
	"github.com/okenna/dreamloom-be/internal/services"
	"github.com/okenna/dreamloom-be/internal/websocket"
)

// NewRouter creates and configures a new Chi router.
func NewRouter(
	tokens *auth.TokenIssuer,
	hub *websocket.Hub,
	userService services.UserServiceProvider,
	dreamService services.DreamServiceProvider,
	eventService services.EventServiceProvider,
	stats handlers.StatsProvider,
) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration for the development frontend
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:8080", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, tokens)
	dreamHandler := handlers.NewDreamHandler(dreamService)
	eventHandler := handlers.NewEventHandler(eventService)
	systemHandler := handlers.NewSystemHandler(stats)
	wsHandler := handlers.NewWebSocketHandler(hub, tokens)

	requireAuth := auth.Middleware(tokens)

	// API versioning
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authHandler.Signup)
			r.Post("/login", authHandler.Login)
			r.With(requireAuth).Get("/me", authHandler.GetMe)
		})

		// WebSocket feed endpoint (token passed as a query parameter)
		r.Get("/ws", wsHandler.Serve)

		// Everything below requires a valid bearer token.
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Route("/dreams", func(r chi.Router) {
				r.Post("/", dreamHandler.Save)
				r.Get("/", dreamHandler.List)
				r.Get("/narrative", dreamHandler.Narrative)
				r.Post("/image", dreamHandler.GenerateImage)
			})

			r.Get("/digests/latest", dreamHandler.LatestDigest)
			r.Get("/events", eventHandler.GetRecent)
			r.Get("/system/stats", systemHandler.GetStats)
		})
	})

	return r
}
