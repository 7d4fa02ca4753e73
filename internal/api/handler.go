package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/openmealplan/mealplanner/internal/auth"
	"github.com/openmealplan/mealplanner/internal/dbconn"
	"github.com/openmealplan/mealplanner/internal/dietrules"
	"github.com/openmealplan/mealplanner/internal/domain"
	"github.com/openmealplan/mealplanner/internal/nutrition"
	"github.com/openmealplan/mealplanner/internal/repository"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo      domain.Repository
	cache     domain.Cache
	bus       domain.EventBus
	tokens    *auth.TokenIssuer
	diet      *dietrules.Engine
	nutrition *nutrition.Service
	authCfg   domain.AuthConfig
	version   string

	// db allows direct health probes with acquire latency. Nil when the
	// repository is not SQL-backed (tests with fakes).
	db *sql.DB
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, tokens *auth.TokenIssuer, diet *dietrules.Engine, nutritionSvc *nutrition.Service, authCfg domain.AuthConfig, version string) *Handler {
	h := &Handler{
		repo:      repo,
		cache:     cache,
		bus:       bus,
		tokens:    tokens,
		diet:      diet,
		nutrition: nutritionSvc,
		authCfg:   authCfg,
		version:   version,
	}

	if sqlRepo, ok := repo.(*repository.SQLRepository); ok {
		h.db = sqlRepo.DB()
	}

	return h
}

// Health returns server health status, including database round-trip
// latency when available.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	resp := map[string]any{
		"version": h.version,
	}

	if h.db != nil {
		latency, err := dbconn.HealthCheck(r.Context(), h.db)
		if err != nil {
			status = "degraded"
			resp["database"] = "unreachable"
			if errors.Is(err, dbconn.ErrPoolExhausted) {
				resp["database"] = "pool exhausted"
			}
		} else {
			resp["database"] = "ok"
			resp["databaseLatencyMs"] = latency.Milliseconds()
		}
	} else if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
			resp["database"] = "unreachable"
		} else {
			resp["database"] = "ok"
		}
	}

	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
			resp["cache"] = "unreachable"
		} else {
			resp["cache"] = "ok"
		}
	}

	if h.bus != nil {
		if err := h.bus.Ping(r.Context()); err != nil {
			status = "degraded"
			resp["eventBus"] = "unreachable"
		} else {
			resp["eventBus"] = "ok"
		}
	}

	resp["status"] = status
	writeJSON(w, http.StatusOK, resp)
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeRepoError maps repository errors to HTTP status codes.
func writeRepoError(w http.ResponseWriter, err error, resource string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, resource+" not found")
	case errors.Is(err, repository.ErrDuplicate):
		writeError(w, http.StatusConflict, resource+" already exists")
	case errors.Is(err, repository.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("repository error", "resource", resource, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
