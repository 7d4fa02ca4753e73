package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/openmealplan/mealplanner/internal/auth"
	"github.com/openmealplan/mealplanner/internal/bus"
	"github.com/openmealplan/mealplanner/internal/cache"
	"github.com/openmealplan/mealplanner/internal/dietrules"
	"github.com/openmealplan/mealplanner/internal/domain"
	"github.com/openmealplan/mealplanner/internal/nutrition"
	"github.com/openmealplan/mealplanner/internal/repository"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "mealplanner-api-*.db")
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

	eventBus := bus.NewChannelBus(100)
	t.Cleanup(func() { eventBus.Close() })

	lru := cache.NewLRUCache(500)

	tokens, err := auth.NewTokenIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("failed to create token issuer: %v", err)
	}

	diet, err := dietrules.NewEngine()
	if err != nil {
		t.Fatalf("failed to create diet engine: %v", err)
	}

	nutritionSvc := nutrition.NewService(repo, lru)

	authCfg := domain.AuthConfig{
		MaxLoginAttempts: 5,
		LoginWindow:      time.Minute,
	}

	return NewServer(domain.ServerConfig{}, repo, lru, eventBus, tokens, diet, nutritionSvc, authCfg, "test")
}

func doJSON(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func registerUser(t *testing.T, srv *Server, email, username string) (string, *domain.User) {
	t.Helper()

	rec := doJSON(t, srv, http.MethodPost, "/api/auth/register", "", RegisterRequest{
		Email:    email,
		Username: username,
		Password: "correct-horse",
		FullName: "Test User",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register returned %d: %s", rec.Code, rec.Body.String())
	}

	resp := decode[TokenResponse](t, rec)
	if resp.AccessToken == "" {
		t.Fatal("expected access token")
	}
	return resp.AccessToken, resp.User
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health returned %d", rec.Code)
	}

	health := decode[map[string]any](t, rec)
	if health["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", health["status"])
	}
	if health["database"] != "ok" {
		t.Errorf("database = %v, want ok", health["database"])
	}
	if _, ok := health["databaseLatencyMs"]; !ok {
		t.Error("expected databaseLatencyMs in health response")
	}

	rec = doJSON(t, srv, http.MethodGet, "/ready", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ready returned %d", rec.Code)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	srv := newTestServer(t)

	token, user := registerUser(t, srv, "alice@example.com", "alice")
	if user.Email != "alice@example.com" {
		t.Errorf("email = %s", user.Email)
	}

	t.Run("DuplicateEmail", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/api/auth/register", "", RegisterRequest{
			Email:    "alice@example.com",
			Username: "alice2",
			Password: "correct-horse",
		})
		if rec.Code != http.StatusConflict {
			t.Errorf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("ShortPassword", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/api/auth/register", "", RegisterRequest{
			Email:    "bob@example.com",
			Username: "bob",
			Password: "short",
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("Login", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/api/auth/login", "", LoginRequest{
			Email:    "alice@example.com",
			Password: "correct-horse",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("login returned %d: %s", rec.Code, rec.Body.String())
		}
		resp := decode[TokenResponse](t, rec)
		if resp.AccessToken == "" {
			t.Error("expected access token")
		}
	})

	t.Run("WrongPassword", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/api/auth/login", "", LoginRequest{
			Email:    "alice@example.com",
			Password: "wrong-password",
		})
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("ProtectedRouteRequiresToken", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/api/users/me", "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("GetMe", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/api/users/me", token, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("me returned %d", rec.Code)
		}
		me := decode[domain.User](t, rec)
		if me.Username != "alice" {
			t.Errorf("username = %s", me.Username)
		}
	})
}

func TestLoginRateLimit(t *testing.T) {
	srv := newTestServer(t)
	registerUser(t, srv, "carol@example.com", "carol")

	body := LoginRequest{Email: "carol@example.com", Password: "wrong-password"}
	var last int
	for i := 0; i < 6; i++ {
		last = doJSON(t, srv, http.MethodPost, "/api/auth/login", "", body).Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("expected 429 after repeated failures, got %d", last)
	}
}

func TestFoodEndpoints(t *testing.T) {
	srv := newTestServer(t)
	token, _ := registerUser(t, srv, "dana@example.com", "dana")

	createBody := FoodRequest{
		Name:            "broccoli",
		Category:        "VEGETABLE",
		Calories:        34,
		Protein:         2.8,
		Carbs:           6.6,
		Fat:             0.4,
		Fiber:           2.6,
		ServingSize:     100,
		Unit:            "g",
		NonInflammatory: true,
	}

	rec := doJSON(t, srv, http.MethodPost, "/api/foods", token, createBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create food returned %d: %s", rec.Code, rec.Body.String())
	}
	food := decode[domain.Food](t, rec)
	if food.ID == 0 {
		t.Fatal("expected food ID")
	}

	t.Run("Get", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/foods/%d", food.ID), token, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("get food returned %d", rec.Code)
		}
		got := decode[domain.Food](t, rec)
		if got.Name != "broccoli" {
			t.Errorf("name = %s", got.Name)
		}
	})

	t.Run("BadCategory", func(t *testing.T) {
		bad := createBody
		bad.Name = "mystery"
		bad.Category = "UNKNOWN"
		rec := doJSON(t, srv, http.MethodPost, "/api/foods", token, bad)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("ListByCategory", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/api/foods?category=vegetable", token, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("list foods returned %d", rec.Code)
		}
		list := decode[struct {
			Foods []*domain.Food `json:"foods"`
			Count int            `json:"count"`
		}](t, rec)
		if list.Count != 1 {
			t.Errorf("count = %d, want 1", list.Count)
		}
	})

	t.Run("LikeAndFavorites", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/foods/%d/like", food.ID), token, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("like returned %d", rec.Code)
		}

		rec = doJSON(t, srv, http.MethodGet, "/api/users/me/favorites", token, nil)
		favs := decode[struct {
			Foods []*domain.Food `json:"foods"`
		}](t, rec)
		if len(favs.Foods) != 1 || favs.Foods[0].ID != food.ID {
			t.Errorf("unexpected favorites: %+v", favs.Foods)
		}

		rec = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/foods/%d/like", food.ID), token, nil)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("unlike returned %d", rec.Code)
		}
	})

	t.Run("UpdateAndDelete", func(t *testing.T) {
		update := createBody
		update.Calories = 40
		rec := doJSON(t, srv, http.MethodPut, fmt.Sprintf("/api/foods/%d", food.ID), token, update)
		if rec.Code != http.StatusOK {
			t.Fatalf("update returned %d: %s", rec.Code, rec.Body.String())
		}
		updated := decode[domain.Food](t, rec)
		if updated.Calories != 40 {
			t.Errorf("calories = %v, want 40", updated.Calories)
		}

		rec = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/foods/%d", food.ID), token, nil)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("delete returned %d", rec.Code)
		}

		rec = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/foods/%d", food.ID), token, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404 after delete, got %d", rec.Code)
		}
	})
}

func TestDietFilterEndpoints(t *testing.T) {
	srv := newTestServer(t)
	token, _ := registerUser(t, srv, "erin@example.com", "erin")

	seed := func(name, category string, calories float64) {
		rec := doJSON(t, srv, http.MethodPost, "/api/foods", token, FoodRequest{
			Name:        name,
			Category:    category,
			Calories:    calories,
			ServingSize: 100,
			Unit:        "g",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("seed food returned %d: %s", rec.Code, rec.Body.String())
		}
	}
	seed("spinach", "VEGETABLE", 23)
	seed("cheesecake", "SNACK", 321)

	t.Run("RejectsInvalidFilter", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPut, "/api/users/me/diet", token, DietFilterRequest{
			Filter: "calories <",
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("FiltersCatalog", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPut, "/api/users/me/diet", token, DietFilterRequest{
			Filter: "calories < 100.0",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("set filter returned %d: %s", rec.Code, rec.Body.String())
		}

		rec = doJSON(t, srv, http.MethodGet, "/api/foods/compatible", token, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("compatible returned %d: %s", rec.Code, rec.Body.String())
		}
		list := decode[struct {
			Foods []*domain.Food `json:"foods"`
			Count int            `json:"count"`
		}](t, rec)
		if list.Count != 1 || list.Foods[0].Name != "spinach" {
			t.Errorf("unexpected compatible foods: %+v", list.Foods)
		}
	})
}

func TestMealAndPlanEndpoints(t *testing.T) {
	srv := newTestServer(t)
	token, _ := registerUser(t, srv, "frank@example.com", "frank")

	rec := doJSON(t, srv, http.MethodPost, "/api/foods", token, FoodRequest{
		Name:        "oats",
		Category:    "GRAIN",
		Calories:    389,
		Protein:     16.9,
		Carbs:       66,
		Fat:         6.9,
		ServingSize: 100,
		Unit:        "g",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create food returned %d", rec.Code)
	}
	food := decode[domain.Food](t, rec)

	rec = doJSON(t, srv, http.MethodPost, "/api/meals", token, MealRequest{
		Name: "oatmeal",
		Ingredients: []MealIngredientRequest{
			{FoodID: food.ID, Quantity: 50, Unit: "g"},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create meal returned %d: %s", rec.Code, rec.Body.String())
	}
	meal := decode[domain.Meal](t, rec)
	if meal.TotalCalories < 194 || meal.TotalCalories > 195 {
		t.Errorf("totals not computed, calories = %v", meal.TotalCalories)
	}

	t.Run("MissingIngredientFood", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/api/meals", token, MealRequest{
			Name: "ghost meal",
			Ingredients: []MealIngredientRequest{
				{FoodID: 9999, Quantity: 1},
			},
		})
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("PlanFlow", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/api/plan", token, PlanEntryRequest{
			MealID:     meal.ID,
			Date:       "2026-04-01",
			MealNumber: 1,
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("add plan entry returned %d: %s", rec.Code, rec.Body.String())
		}
		entry := decode[domain.PlanEntry](t, rec)

		rec = doJSON(t, srv, http.MethodGet, "/api/plan?date=2026-04-01", token, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("list plan returned %d", rec.Code)
		}
		plan := decode[struct {
			Entries []*domain.PlanEntry `json:"entries"`
			Count   int                 `json:"count"`
		}](t, rec)
		if plan.Count != 1 {
			t.Fatalf("plan count = %d, want 1", plan.Count)
		}

		rec = doJSON(t, srv, http.MethodGet, "/api/plan/summary?date=2026-04-01", token, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("summary returned %d", rec.Code)
		}
		summary := decode[domain.DaySummary](t, rec)
		if summary.MealCount != 1 {
			t.Errorf("summary meal count = %d, want 1", summary.MealCount)
		}

		rec = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/plan/%d?date=2026-04-01", entry.ID), token, nil)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("delete plan entry returned %d", rec.Code)
		}
	})

	t.Run("BadDate", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/api/plan?date=April-1", token, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}
