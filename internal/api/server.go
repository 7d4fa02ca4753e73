package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/openmealplan/mealplanner/internal/auth"
	"github.com/openmealplan/mealplanner/internal/dietrules"
	"github.com/openmealplan/mealplanner/internal/domain"
	"github.com/openmealplan/mealplanner/internal/nutrition"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, repo domain.Repository, cache domain.Cache, bus domain.EventBus, tokens *auth.TokenIssuer, diet *dietrules.Engine, nutritionSvc *nutrition.Service, authCfg domain.AuthConfig, version string) *Server {
	handler := NewHandler(repo, cache, bus, tokens, diet, nutritionSvc, authCfg, version)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)         // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression

	// Health endpoints (no auth required)
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	// Registration and login (no auth required)
	router.Post("/api/auth/register", handler.Register)
	router.Post("/api/auth/login", handler.Login)

	// Authenticated API routes
	router.Route("/api", func(r chi.Router) {
		r.Use(AuthMiddleware(tokens))

		// Profile
		r.Get("/users/me", handler.GetMe)
		r.Put("/users/me", handler.UpdateMe)
		r.Put("/users/me/password", handler.ChangePassword)
		r.Put("/users/me/diet", handler.UpdateDietFilter)
		r.Get("/users/me/favorites", handler.ListFavorites)

		// Food catalog
		r.Get("/foods", handler.ListFoods)
		r.Post("/foods", handler.CreateFood)
		r.Get("/foods/compatible", handler.ListCompatibleFoods)
		r.Get("/foods/{id}", handler.GetFood)
		r.Put("/foods/{id}", handler.UpdateFood)
		r.Delete("/foods/{id}", handler.DeleteFood)
		r.Post("/foods/{id}/like", handler.LikeFood)
		r.Delete("/foods/{id}/like", handler.UnlikeFood)

		// Meals
		r.Get("/meals", handler.ListMeals)
		r.Post("/meals", handler.CreateMeal)
		r.Get("/meals/{id}", handler.GetMeal)
		r.Put("/meals/{id}", handler.UpdateMeal)
		r.Delete("/meals/{id}", handler.DeleteMeal)

		// Plan
		r.Get("/plan", handler.ListPlan)
		r.Post("/plan", handler.AddPlanEntry)
		r.Delete("/plan/{id}", handler.DeletePlanEntry)
		r.Get("/plan/summary", handler.DaySummary)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
