package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/openmealplan/mealplanner/internal/domain"
)

const foodColumns = `id, name, category, calories, protein, carbs, fat, fiber,
	   serving_size, unit, non_inflammatory, created_at, updated_at`

// CreateFood inserts a catalog entry and fills in the generated ID.
func (r *SQLRepository) CreateFood(ctx context.Context, food *domain.Food) error {
	if food.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if !food.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidInput, food.Category)
	}

	now := time.Now().UTC()
	food.CreatedAt = now
	food.UpdatedAt = now

	query := `
		INSERT INTO food_catalog (
			name, category, calories, protein, carbs, fat, fiber,
			serving_size, unit, non_inflammatory, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	id, err := r.insertReturningID(ctx, query,
		food.Name, food.Category, food.Calories, food.Protein,
		food.Carbs, food.Fat, food.Fiber,
		food.ServingSize, food.Unit, food.NonInflammatory,
		food.CreatedAt, food.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: food %q", ErrDuplicate, food.Name)
		}
		return err
	}

	food.ID = id
	return nil
}

// GetFood retrieves a catalog entry by ID.
func (r *SQLRepository) GetFood(ctx context.Context, foodID int64) (*domain.Food, error) {
	query := `SELECT ` + foodColumns + ` FROM food_catalog WHERE id = ?`

	food, err := scanFood(r.db.QueryRowContext(ctx, r.rebind(query), foodID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return food, err
}

// ListFoods returns catalog entries ordered by name.
func (r *SQLRepository) ListFoods(ctx context.Context, filter domain.FoodFilter) ([]*domain.Food, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `SELECT ` + foodColumns + ` FROM food_catalog`
	args := []any{}
	if filter.Category != "" {
		query += ` WHERE category = ?`
		args = append(args, filter.Category)
	}
	query += ` ORDER BY name LIMIT ? OFFSET ?`
	args = append(args, limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectFoods(rows)
}

// UpdateFood writes all mutable fields of a catalog entry.
func (r *SQLRepository) UpdateFood(ctx context.Context, food *domain.Food) error {
	if !food.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidInput, food.Category)
	}

	food.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE food_catalog SET
			name = ?, category = ?, calories = ?, protein = ?, carbs = ?,
			fat = ?, fiber = ?, serving_size = ?, unit = ?,
			non_inflammatory = ?, updated_at = ?
		WHERE id = ?
	`

	res, err := r.db.ExecContext(ctx, r.rebind(query),
		food.Name, food.Category, food.Calories, food.Protein, food.Carbs,
		food.Fat, food.Fiber, food.ServingSize, food.Unit,
		food.NonInflammatory, food.UpdatedAt, food.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: food %q", ErrDuplicate, food.Name)
		}
		return err
	}
	return requireRow(res)
}

// DeleteFood removes a catalog entry along with likes and ingredient
// references to it.
func (r *SQLRepository) DeleteFood(ctx context.Context, foodID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM food_user_likes WHERE food_id = ?`), foodID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM meal_ingredients WHERE food_id = ?`), foodID); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM food_catalog WHERE id = ?`), foodID)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}

	return tx.Commit()
}

// LikeFood marks a food as a favorite. Liking twice is a no-op.
func (r *SQLRepository) LikeFood(ctx context.Context, userID, foodID int64) error {
	if _, err := r.GetFood(ctx, foodID); err != nil {
		return err
	}

	query := `INSERT INTO food_user_likes (user_id, food_id, created_at) VALUES (?, ?, ?)`

	_, err := r.db.ExecContext(ctx, r.rebind(query), userID, foodID, time.Now().UTC())
	if err != nil && isUniqueViolation(err) {
		return nil
	}
	return err
}

// UnlikeFood removes a favorite mark.
func (r *SQLRepository) UnlikeFood(ctx context.Context, userID, foodID int64) error {
	query := `DELETE FROM food_user_likes WHERE user_id = ? AND food_id = ?`

	res, err := r.db.ExecContext(ctx, r.rebind(query), userID, foodID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ListFavorites returns the user's liked foods ordered by name.
func (r *SQLRepository) ListFavorites(ctx context.Context, userID int64) ([]*domain.Food, error) {
	query := `
		SELECT f.id, f.name, f.category, f.calories, f.protein, f.carbs, f.fat, f.fiber,
			   f.serving_size, f.unit, f.non_inflammatory, f.created_at, f.updated_at
		FROM food_catalog f
		JOIN food_user_likes l ON l.food_id = f.id
		WHERE l.user_id = ?
		ORDER BY f.name
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectFoods(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFood(row rowScanner) (*domain.Food, error) {
	var food domain.Food
	err := row.Scan(
		&food.ID, &food.Name, &food.Category,
		&food.Calories, &food.Protein, &food.Carbs, &food.Fat, &food.Fiber,
		&food.ServingSize, &food.Unit, &food.NonInflammatory,
		&food.CreatedAt, &food.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &food, nil
}

func collectFoods(rows *sql.Rows) ([]*domain.Food, error) {
	var foods []*domain.Food
	for rows.Next() {
		food, err := scanFood(rows)
		if err != nil {
			return nil, err
		}
		foods = append(foods, food)
	}
	return foods, rows.Err()
}
