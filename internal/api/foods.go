package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/openmealplan/mealplanner/internal/domain"
)

const foodCacheTTL = 10 * time.Minute

// FoodRequest is the request body for creating or updating a food.
type FoodRequest struct {
	Name            string  `json:"name"`
	Category        string  `json:"category"`
	Calories        float64 `json:"calories"`
	Protein         float64 `json:"protein"`
	Carbs           float64 `json:"carbs"`
	Fat             float64 `json:"fat"`
	Fiber           float64 `json:"fiber"`
	ServingSize     float64 `json:"servingSize"`
	Unit            string  `json:"unit"`
	NonInflammatory bool    `json:"nonInflammatory"`
}

func (req *FoodRequest) validate() error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if !domain.FoodCategory(req.Category).Valid() {
		return fmt.Errorf("unknown category %q", req.Category)
	}
	if req.Calories < 0 || req.Protein < 0 || req.Carbs < 0 || req.Fat < 0 || req.Fiber < 0 {
		return fmt.Errorf("macro values must not be negative")
	}
	if req.ServingSize <= 0 {
		return fmt.Errorf("servingSize must be positive")
	}
	return nil
}

func (req *FoodRequest) apply(food *domain.Food) {
	food.Name = strings.TrimSpace(req.Name)
	food.Category = domain.FoodCategory(req.Category)
	food.Calories = req.Calories
	food.Protein = req.Protein
	food.Carbs = req.Carbs
	food.Fat = req.Fat
	food.Fiber = req.Fiber
	food.ServingSize = req.ServingSize
	food.Unit = req.Unit
	food.NonInflammatory = req.NonInflammatory
}

// CreateFood handles POST /api/foods.
func (h *Handler) CreateFood(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req FoodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	food := &domain.Food{}
	req.apply(food)

	if err := h.repo.CreateFood(ctx, food); err != nil {
		writeRepoError(w, err, "food")
		return
	}

	writeJSON(w, http.StatusCreated, food)
}

// GetFood handles GET /api/foods/{id}. Reads go through the cache.
func (h *Handler) GetFood(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	foodID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid food id")
		return
	}

	key := foodCacheKey(foodID)
	if h.cache != nil {
		if data, err := h.cache.Get(ctx, key); err == nil && data != nil {
			var food domain.Food
			if err := json.Unmarshal(data, &food); err == nil {
				writeJSON(w, http.StatusOK, &food)
				return
			}
		}
	}

	food, err := h.repo.GetFood(ctx, foodID)
	if err != nil {
		writeRepoError(w, err, "food")
		return
	}

	if h.cache != nil {
		if data, err := json.Marshal(food); err == nil {
			if err := h.cache.Set(ctx, key, data, foodCacheTTL); err != nil {
				slog.Warn("failed to cache food", "food_id", foodID, "error", err)
			}
		}
	}

	writeJSON(w, http.StatusOK, food)
}

// ListFoods handles GET /api/foods with category, limit, and offset
// query parameters.
func (h *Handler) ListFoods(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := domain.FoodFilter{}
	if category := r.URL.Query().Get("category"); category != "" {
		fc := domain.FoodCategory(strings.ToUpper(category))
		if !fc.Valid() {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown category %q", category))
			return
		}
		filter.Category = fc
	}
	filter.Limit = queryInt(r, "limit")
	filter.Offset = queryInt(r, "offset")

	foods, err := h.repo.ListFoods(ctx, filter)
	if err != nil {
		writeRepoError(w, err, "foods")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"foods": foods,
		"count": len(foods),
	})
}

// ListCompatibleFoods handles GET /api/foods/compatible, narrowing the
// catalog through the caller's diet filter.
func (h *Handler) ListCompatibleFoods(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := h.repo.GetUser(ctx, GetUserID(ctx))
	if err != nil {
		writeRepoError(w, err, "user")
		return
	}

	foods, err := h.repo.ListFoods(ctx, domain.FoodFilter{Limit: queryInt(r, "limit")})
	if err != nil {
		writeRepoError(w, err, "foods")
		return
	}

	matched, err := h.diet.Filter(user.DietFilter, foods)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "diet filter failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"foods":  matched,
		"count":  len(matched),
		"filter": user.DietFilter,
	})
}

// UpdateFood handles PUT /api/foods/{id}.
func (h *Handler) UpdateFood(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	foodID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid food id")
		return
	}

	var req FoodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	food, err := h.repo.GetFood(ctx, foodID)
	if err != nil {
		writeRepoError(w, err, "food")
		return
	}

	req.apply(food)
	if err := h.repo.UpdateFood(ctx, food); err != nil {
		writeRepoError(w, err, "food")
		return
	}

	h.invalidateFood(ctx, foodID)
	writeJSON(w, http.StatusOK, food)
}

// DeleteFood handles DELETE /api/foods/{id}.
func (h *Handler) DeleteFood(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	foodID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid food id")
		return
	}

	if err := h.repo.DeleteFood(ctx, foodID); err != nil {
		writeRepoError(w, err, "food")
		return
	}

	h.invalidateFood(ctx, foodID)
	w.WriteHeader(http.StatusNoContent)
}

// LikeFood handles POST /api/foods/{id}/like.
func (h *Handler) LikeFood(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	foodID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid food id")
		return
	}

	if err := h.repo.LikeFood(ctx, GetUserID(ctx), foodID); err != nil {
		writeRepoError(w, err, "food")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "liked"})
}

// UnlikeFood handles DELETE /api/foods/{id}/like.
func (h *Handler) UnlikeFood(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	foodID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid food id")
		return
	}

	if err := h.repo.UnlikeFood(ctx, GetUserID(ctx), foodID); err != nil {
		writeRepoError(w, err, "food")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) invalidateFood(ctx context.Context, foodID int64) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Delete(ctx, foodCacheKey(foodID)); err != nil {
		slog.Warn("failed to invalidate food cache", "food_id", foodID, "error", err)
	}
}

func foodCacheKey(foodID int64) string {
	return fmt.Sprintf("%s:%d", domain.CacheKeyFood, foodID)
}

// pathID parses a numeric URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

// queryInt parses an optional numeric query parameter, returning 0 when
// absent or malformed.
func queryInt(r *http.Request, name string) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
