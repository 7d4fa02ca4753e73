package nutrition

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/openmealplan/mealplanner/internal/cache"
	"github.com/openmealplan/mealplanner/internal/domain"
	"github.com/openmealplan/mealplanner/internal/repository"
)

func newTestService(t *testing.T) (*Service, domain.Repository) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "mealplanner-nutrition-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpPath) })

	repo, err := repository.New(context.Background(), domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	}, nil)
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	return NewService(repo, cache.NewLRUCache(100)), repo
}

func seedFood(t *testing.T, repo domain.Repository, name string, calories, protein, carbs, fat, serving float64) *domain.Food {
	t.Helper()

	food := &domain.Food{
		Name:        name,
		Category:    domain.CategoryVegetable,
		Calories:    calories,
		Protein:     protein,
		Carbs:       carbs,
		Fat:         fat,
		ServingSize: serving,
		Unit:        "g",
	}
	if err := repo.CreateFood(context.Background(), food); err != nil {
		t.Fatalf("failed to seed food: %v", err)
	}
	return food
}

func TestComputeTotals(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	rice := seedFood(t, repo, "rice", 130, 2.7, 28, 0.3, 100)
	chicken := seedFood(t, repo, "chicken", 165, 31, 0, 3.6, 100)

	meal := &domain.Meal{
		Name: "chicken and rice",
		Ingredients: []*domain.MealIngredient{
			{FoodID: rice.ID, Quantity: 200, Unit: "g"},
			{FoodID: chicken.ID, Quantity: 150, Unit: "g"},
		},
	}

	if err := svc.ComputeTotals(ctx, meal); err != nil {
		t.Fatalf("ComputeTotals failed: %v", err)
	}

	// rice x2 servings + chicken x1.5 servings
	wantCalories := 130*2.0 + 165*1.5
	wantProtein := 2.7*2.0 + 31*1.5

	if !closeTo(meal.TotalCalories, wantCalories) {
		t.Errorf("calories = %v, want %v", meal.TotalCalories, wantCalories)
	}
	if !closeTo(meal.TotalProtein, wantProtein) {
		t.Errorf("protein = %v, want %v", meal.TotalProtein, wantProtein)
	}
}

func TestRecomputeMeal(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	oats := seedFood(t, repo, "oats", 389, 16.9, 66, 6.9, 100)

	meal := &domain.Meal{
		Name: "oatmeal",
		Ingredients: []*domain.MealIngredient{
			{FoodID: oats.ID, Quantity: 50, Unit: "g"},
		},
	}
	if err := repo.CreateMeal(ctx, meal); err != nil {
		t.Fatalf("CreateMeal failed: %v", err)
	}

	updated, err := svc.RecomputeMeal(ctx, meal.ID)
	if err != nil {
		t.Fatalf("RecomputeMeal failed: %v", err)
	}
	if !closeTo(updated.TotalCalories, 389*0.5) {
		t.Errorf("calories = %v, want %v", updated.TotalCalories, 389*0.5)
	}

	// Totals must be persisted.
	stored, err := repo.GetMeal(ctx, meal.ID)
	if err != nil {
		t.Fatalf("GetMeal failed: %v", err)
	}
	if !closeTo(stored.TotalCalories, 389*0.5) {
		t.Errorf("stored calories = %v, want %v", stored.TotalCalories, 389*0.5)
	}
}

func TestDaySummary(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	user := &domain.User{
		Email:        "planner@example.com",
		Username:     "planner",
		PasswordHash: "$2a$10$fakehash",
		Sex:          domain.SexOther,
	}
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	meal := &domain.Meal{
		Name:          "lunch bowl",
		TotalCalories: 600,
		TotalProtein:  40,
		TotalCarbs:    55,
		TotalFat:      20,
	}
	if err := repo.CreateMeal(ctx, meal); err != nil {
		t.Fatalf("CreateMeal failed: %v", err)
	}

	day := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	for _, n := range []int{1, 2} {
		entry := &domain.PlanEntry{
			UserID:     user.ID,
			MealID:     meal.ID,
			Date:       day,
			MealNumber: n,
		}
		if err := repo.AddPlanEntry(ctx, entry); err != nil {
			t.Fatalf("AddPlanEntry failed: %v", err)
		}
	}

	summary, err := svc.DaySummary(ctx, user.ID, day)
	if err != nil {
		t.Fatalf("DaySummary failed: %v", err)
	}
	if summary.MealCount != 2 {
		t.Errorf("meal count = %d, want 2", summary.MealCount)
	}
	if !closeTo(summary.TotalCalories, 1200) {
		t.Errorf("calories = %v, want 1200", summary.TotalCalories)
	}
	if summary.Date != "2026-03-15" {
		t.Errorf("date = %s, want 2026-03-15", summary.Date)
	}

	t.Run("CachedAfterFirstRead", func(t *testing.T) {
		// Remove the plan entries behind the cache's back; the cached
		// summary should still be served.
		entries, err := repo.ListPlanEntries(ctx, user.ID, day)
		if err != nil {
			t.Fatalf("ListPlanEntries failed: %v", err)
		}
		for _, e := range entries {
			if err := repo.DeletePlanEntry(ctx, user.ID, e.ID); err != nil {
				t.Fatalf("DeletePlanEntry failed: %v", err)
			}
		}

		cached, err := svc.DaySummary(ctx, user.ID, day)
		if err != nil {
			t.Fatalf("DaySummary failed: %v", err)
		}
		if cached.MealCount != 2 {
			t.Errorf("expected cached summary with 2 meals, got %d", cached.MealCount)
		}
	})

	t.Run("Invalidate", func(t *testing.T) {
		svc.InvalidateDaySummary(ctx, user.ID, "2026-03-15")

		fresh, err := svc.DaySummary(ctx, user.ID, day)
		if err != nil {
			t.Fatalf("DaySummary failed: %v", err)
		}
		if fresh.MealCount != 0 {
			t.Errorf("expected empty summary after invalidation, got %d meals", fresh.MealCount)
		}
	})
}

func closeTo(got, want float64) bool {
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	return diff < 1e-6
}
