package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/openmealplan/mealplanner/internal/domain"
)

// MealIngredientRequest is one ingredient line in a meal request.
type MealIngredientRequest struct {
	FoodID   int64   `json:"foodId"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit,omitempty"`
	Notes    string  `json:"notes,omitempty"`
}

// MealRequest is the request body for creating or updating a meal.
type MealRequest struct {
	Name            string                  `json:"name"`
	Description     string                  `json:"description,omitempty"`
	PrepTimeMinutes int                     `json:"prepTimeMinutes,omitempty"`
	Ingredients     []MealIngredientRequest `json:"ingredients"`
}

func (req *MealRequest) validate() error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if req.PrepTimeMinutes < 0 {
		return fmt.Errorf("prepTimeMinutes must not be negative")
	}
	for i, ing := range req.Ingredients {
		if ing.FoodID <= 0 {
			return fmt.Errorf("ingredients[%d].foodId is required", i)
		}
		if ing.Quantity <= 0 {
			return fmt.Errorf("ingredients[%d].quantity must be positive", i)
		}
	}
	return nil
}

func (req *MealRequest) apply(meal *domain.Meal) {
	meal.Name = strings.TrimSpace(req.Name)
	meal.Description = req.Description
	meal.PrepTimeMinutes = req.PrepTimeMinutes

	meal.Ingredients = make([]*domain.MealIngredient, 0, len(req.Ingredients))
	for _, ing := range req.Ingredients {
		meal.Ingredients = append(meal.Ingredients, &domain.MealIngredient{
			FoodID:   ing.FoodID,
			Quantity: ing.Quantity,
			Unit:     ing.Unit,
			Notes:    ing.Notes,
		})
	}
}

// CreateMeal handles POST /api/meals. Totals are computed from the
// ingredient list before the meal is stored.
func (h *Handler) CreateMeal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req MealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	meal := &domain.Meal{}
	req.apply(meal)

	if err := h.nutrition.ComputeTotals(ctx, meal); err != nil {
		writeRepoError(w, err, "meal")
		return
	}

	if err := h.repo.CreateMeal(ctx, meal); err != nil {
		writeRepoError(w, err, "meal")
		return
	}

	h.publishMealChanged(ctx, meal.ID, false)
	writeJSON(w, http.StatusCreated, meal)
}

// GetMeal handles GET /api/meals/{id}.
func (h *Handler) GetMeal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	mealID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid meal id")
		return
	}

	meal, err := h.repo.GetMeal(ctx, mealID)
	if err != nil {
		writeRepoError(w, err, "meal")
		return
	}

	writeJSON(w, http.StatusOK, meal)
}

// ListMeals handles GET /api/meals with limit and offset parameters.
func (h *Handler) ListMeals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	meals, err := h.repo.ListMeals(ctx, queryInt(r, "limit"), queryInt(r, "offset"))
	if err != nil {
		writeRepoError(w, err, "meals")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"meals": meals,
		"count": len(meals),
	})
}

// UpdateMeal handles PUT /api/meals/{id}. The ingredient list is
// replaced wholesale and totals recomputed.
func (h *Handler) UpdateMeal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	mealID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid meal id")
		return
	}

	var req MealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	meal, err := h.repo.GetMeal(ctx, mealID)
	if err != nil {
		writeRepoError(w, err, "meal")
		return
	}

	req.apply(meal)
	if err := h.nutrition.ComputeTotals(ctx, meal); err != nil {
		writeRepoError(w, err, "meal")
		return
	}

	if err := h.repo.UpdateMeal(ctx, meal); err != nil {
		writeRepoError(w, err, "meal")
		return
	}

	h.publishMealChanged(ctx, meal.ID, false)
	writeJSON(w, http.StatusOK, meal)
}

// DeleteMeal handles DELETE /api/meals/{id}.
func (h *Handler) DeleteMeal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	mealID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid meal id")
		return
	}

	if err := h.repo.DeleteMeal(ctx, mealID); err != nil {
		writeRepoError(w, err, "meal")
		return
	}

	h.publishMealChanged(ctx, mealID, true)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) publishMealChanged(ctx context.Context, mealID int64, deleted bool) {
	if h.bus == nil {
		return
	}
	payload, _ := json.Marshal(domain.MealChangedEvent{MealID: mealID, Deleted: deleted})
	if err := h.bus.Publish(ctx, domain.TopicMealChanged, payload); err != nil {
		slog.Error("failed to publish meal changed event", "meal_id", mealID, "error", err)
	}
}
