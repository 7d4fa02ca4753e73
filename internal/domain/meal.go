package domain

import "time"

// Meal is a named combination of foods with aggregated macros.
// Totals are derived from the ingredient list and recomputed whenever
// ingredients change.
type Meal struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	TotalCalories float64 `json:"totalCalories"`
	TotalProtein  float64 `json:"totalProtein"`
	TotalCarbs    float64 `json:"totalCarbs"`
	TotalFat      float64 `json:"totalFat"`

	PrepTimeMinutes int `json:"prepTimeMinutes,omitempty"`

	Ingredients []*MealIngredient `json:"ingredients,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MealIngredient links a food into a meal with a quantity.
// A food appears at most once per meal.
type MealIngredient struct {
	ID       int64   `json:"id"`
	MealID   int64   `json:"mealId"`
	FoodID   int64   `json:"foodId"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
	Notes    string  `json:"notes,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// PlanEntry schedules a meal for a user on a given date.
// MealNumber orders meals within the day (1=breakfast, 2=lunch, ...).
type PlanEntry struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"userId"`
	MealID     int64     `json:"mealId"`
	Date       time.Time `json:"date"`
	MealNumber int       `json:"mealNumber"`
	CreatedAt  time.Time `json:"createdAt"`
}

// DaySummary aggregates macros across all meals planned for one date.
type DaySummary struct {
	Date          string  `json:"date"`
	MealCount     int     `json:"mealCount"`
	TotalCalories float64 `json:"totalCalories"`
	TotalProtein  float64 `json:"totalProtein"`
	TotalCarbs    float64 `json:"totalCarbs"`
	TotalFat      float64 `json:"totalFat"`
}
