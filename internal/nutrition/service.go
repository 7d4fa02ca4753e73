// Package nutrition derives macro totals from ingredient lists and
// aggregates planned meals into per-day summaries.
package nutrition

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/openmealplan/mealplanner/internal/domain"
)

const summaryTTL = 15 * time.Minute

// Service computes nutrition totals for meals and plan days.
type Service struct {
	repo  domain.Repository
	cache domain.Cache
}

// NewService creates a new nutrition service.
func NewService(repo domain.Repository, cache domain.Cache) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
	}
}

// ComputeTotals fills in a meal's macro totals from its ingredient list.
// Each ingredient contributes its food's macros scaled by quantity over
// the food's serving size. The meal is modified in place, not persisted.
func (s *Service) ComputeTotals(ctx context.Context, meal *domain.Meal) error {
	if meal == nil {
		return fmt.Errorf("meal is required")
	}

	var calories, protein, carbs, fat float64

	for _, ing := range meal.Ingredients {
		food, err := s.repo.GetFood(ctx, ing.FoodID)
		if err != nil {
			return fmt.Errorf("failed to load food %d: %w", ing.FoodID, err)
		}

		factor := ing.Quantity
		if food.ServingSize > 0 {
			factor = ing.Quantity / food.ServingSize
		}

		calories += food.Calories * factor
		protein += food.Protein * factor
		carbs += food.Carbs * factor
		fat += food.Fat * factor
	}

	meal.TotalCalories = calories
	meal.TotalProtein = protein
	meal.TotalCarbs = carbs
	meal.TotalFat = fat

	return nil
}

// RecomputeMeal reloads a meal, recomputes its totals, and persists them.
// Called by the background worker when ingredients change.
func (s *Service) RecomputeMeal(ctx context.Context, mealID int64) (*domain.Meal, error) {
	meal, err := s.repo.GetMeal(ctx, mealID)
	if err != nil {
		return nil, err
	}

	if err := s.ComputeTotals(ctx, meal); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateMeal(ctx, meal); err != nil {
		return nil, err
	}

	return meal, nil
}

// DaySummary aggregates macros across all meals planned for a user on
// one date. Summaries are cached; call InvalidateDaySummary when the
// plan or a scheduled meal changes.
func (s *Service) DaySummary(ctx context.Context, userID int64, date time.Time) (*domain.DaySummary, error) {
	day := date.Format("2006-01-02")
	key := summaryKey(userID, day)

	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil && data != nil {
			var summary domain.DaySummary
			if err := json.Unmarshal(data, &summary); err == nil {
				return &summary, nil
			}
			// Corrupt entry, drop it and recompute.
			_ = s.cache.Delete(ctx, key)
		}
	}

	entries, err := s.repo.ListPlanEntries(ctx, userID, date)
	if err != nil {
		return nil, err
	}

	summary := &domain.DaySummary{Date: day}
	for _, entry := range entries {
		meal, err := s.repo.GetMeal(ctx, entry.MealID)
		if err != nil {
			return nil, fmt.Errorf("failed to load meal %d: %w", entry.MealID, err)
		}
		summary.MealCount++
		summary.TotalCalories += meal.TotalCalories
		summary.TotalProtein += meal.TotalProtein
		summary.TotalCarbs += meal.TotalCarbs
		summary.TotalFat += meal.TotalFat
	}

	if s.cache != nil {
		if data, err := json.Marshal(summary); err == nil {
			if err := s.cache.Set(ctx, key, data, summaryTTL); err != nil {
				slog.Warn("failed to cache day summary", "key", key, "error", err)
			}
		}
	}

	return summary, nil
}

// InvalidateDaySummary drops the cached summary for a user and date.
func (s *Service) InvalidateDaySummary(ctx context.Context, userID int64, day string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, summaryKey(userID, day)); err != nil {
		slog.Warn("failed to invalidate day summary", "user_id", userID, "date", day, "error", err)
	}
}

func summaryKey(userID int64, day string) string {
	return fmt.Sprintf("%s:%d:%s", domain.CacheKeyDaySummary, userID, day)
}
