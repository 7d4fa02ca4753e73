package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
type Repository interface {
	// User operations
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, userID int64) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	UpdateUser(ctx context.Context, user *User) error
	UpdateUserPassword(ctx context.Context, userID int64, passwordHash string) error

	// Food catalog operations
	CreateFood(ctx context.Context, food *Food) error
	GetFood(ctx context.Context, foodID int64) (*Food, error)
	ListFoods(ctx context.Context, filter FoodFilter) ([]*Food, error)
	UpdateFood(ctx context.Context, food *Food) error
	DeleteFood(ctx context.Context, foodID int64) error

	// Favorite operations
	LikeFood(ctx context.Context, userID, foodID int64) error
	UnlikeFood(ctx context.Context, userID, foodID int64) error
	ListFavorites(ctx context.Context, userID int64) ([]*Food, error)

	// Meal operations. Create and Update replace the ingredient list
	// atomically with the meal row.
	CreateMeal(ctx context.Context, meal *Meal) error
	GetMeal(ctx context.Context, mealID int64) (*Meal, error)
	ListMeals(ctx context.Context, limit, offset int) ([]*Meal, error)
	UpdateMeal(ctx context.Context, meal *Meal) error
	DeleteMeal(ctx context.Context, mealID int64) error

	// Plan operations
	AddPlanEntry(ctx context.Context, entry *PlanEntry) error
	ListPlanEntries(ctx context.Context, userID int64, date time.Time) ([]*PlanEntry, error)
	DeletePlanEntry(ctx context.Context, userID, entryID int64) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// FoodFilter narrows ListFoods results.
type FoodFilter struct {
	Category FoodCategory
	Limit    int
	Offset   int
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "postgres" or "sqlite"
	Driver string

	// SQLite specific (development and tests)
	SQLitePath string

	// Cold-start retry settings for the cloud strategies. The connection
	// resolver never retries; the repository factory owns the retry
	// window for serverless database wake-up.
	MaxConnectAttempts  int
	ConnectRetryBackoff time.Duration
}
