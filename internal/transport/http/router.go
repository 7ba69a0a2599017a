package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"pushnotify/internal/handler"
	authmw "pushnotify/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	AuthHandler         *handler.AuthHandler
	NotificationHandler *handler.NotificationHandler
	HealthHandler       *handler.HealthHandler
	JWTSecret           string
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	// Health check endpoint (useful for deployment/monitoring)
	r.Get("/health", cfg.HealthHandler.Check)

	// Public routes - no authentication required
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", cfg.AuthHandler.Register)
		r.Post("/login", cfg.AuthHandler.Login)
		r.Post("/refresh", cfg.AuthHandler.Refresh)
	})

	// Protected routes - require authentication
	r.Group(func(r chi.Router) {
		r.Use(authmw.AuthMiddleware(cfg.JWTSecret))

		r.Get("/me", cfg.AuthHandler.Me)
		r.Post("/auth/logout", cfg.AuthHandler.Logout)

		r.Post("/devices", cfg.NotificationHandler.RegisterDevice)
		r.Get("/devices", cfg.NotificationHandler.ListDevices)

		r.Route("/notifications", func(r chi.Router) {
			r.Post("/push", cfg.NotificationHandler.SendPush)
			r.Post("/internal", cfg.NotificationHandler.SendInternal)
			r.Get("/", cfg.NotificationHandler.List)
			r.Get("/unread-count", cfg.NotificationHandler.GetUnreadCount)
			r.Put("/{id}/read", cfg.NotificationHandler.MarkRead)
		})
	})

	return r
}
