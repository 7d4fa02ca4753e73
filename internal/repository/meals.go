package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/openmealplan/mealplanner/internal/domain"
)

// CreateMeal inserts a meal and its ingredient list in one transaction.
func (r *SQLRepository) CreateMeal(ctx context.Context, meal *domain.Meal) error {
	if meal.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	now := time.Now().UTC()
	meal.CreatedAt = now
	meal.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO meals (
			name, description, total_calories, total_protein, total_carbs,
			total_fat, prep_time, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	id, err := r.txInsertReturningID(ctx, tx, query,
		meal.Name, nullString(meal.Description),
		meal.TotalCalories, meal.TotalProtein, meal.TotalCarbs, meal.TotalFat,
		meal.PrepTimeMinutes, meal.CreatedAt, meal.UpdatedAt,
	)
	if err != nil {
		return err
	}
	meal.ID = id

	if err := r.insertIngredients(ctx, tx, meal); err != nil {
		return err
	}

	return tx.Commit()
}

// GetMeal retrieves a meal with its ingredients.
func (r *SQLRepository) GetMeal(ctx context.Context, mealID int64) (*domain.Meal, error) {
	query := `
		SELECT id, name, description, total_calories, total_protein,
			   total_carbs, total_fat, prep_time, created_at, updated_at
		FROM meals WHERE id = ?
	`

	var meal domain.Meal
	var desc sql.NullString
	var prep sql.NullInt64

	err := r.db.QueryRowContext(ctx, r.rebind(query), mealID).Scan(
		&meal.ID, &meal.Name, &desc,
		&meal.TotalCalories, &meal.TotalProtein, &meal.TotalCarbs, &meal.TotalFat,
		&prep, &meal.CreatedAt, &meal.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	meal.Description = desc.String
	meal.PrepTimeMinutes = int(prep.Int64)

	ingredients, err := r.listIngredients(ctx, mealID)
	if err != nil {
		return nil, err
	}
	meal.Ingredients = ingredients

	return &meal, nil
}

// ListMeals returns meals without ingredient lists, ordered by name.
func (r *SQLRepository) ListMeals(ctx context.Context, limit, offset int) ([]*domain.Meal, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `
		SELECT id, name, description, total_calories, total_protein,
			   total_carbs, total_fat, prep_time, created_at, updated_at
		FROM meals ORDER BY name LIMIT ? OFFSET ?
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meals []*domain.Meal
	for rows.Next() {
		var meal domain.Meal
		var desc sql.NullString
		var prep sql.NullInt64

		if err := rows.Scan(
			&meal.ID, &meal.Name, &desc,
			&meal.TotalCalories, &meal.TotalProtein, &meal.TotalCarbs, &meal.TotalFat,
			&prep, &meal.CreatedAt, &meal.UpdatedAt,
		); err != nil {
			return nil, err
		}

		meal.Description = desc.String
		meal.PrepTimeMinutes = int(prep.Int64)
		meals = append(meals, &meal)
	}

	return meals, rows.Err()
}

// UpdateMeal rewrites the meal row and replaces its ingredient list.
func (r *SQLRepository) UpdateMeal(ctx context.Context, meal *domain.Meal) error {
	meal.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		UPDATE meals SET
			name = ?, description = ?, total_calories = ?, total_protein = ?,
			total_carbs = ?, total_fat = ?, prep_time = ?, updated_at = ?
		WHERE id = ?
	`

	res, err := tx.ExecContext(ctx, r.rebind(query),
		meal.Name, nullString(meal.Description),
		meal.TotalCalories, meal.TotalProtein, meal.TotalCarbs, meal.TotalFat,
		meal.PrepTimeMinutes, meal.UpdatedAt, meal.ID,
	)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM meal_ingredients WHERE meal_id = ?`), meal.ID); err != nil {
		return err
	}
	if err := r.insertIngredients(ctx, tx, meal); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteMeal removes a meal, its ingredients, and plan entries using it.
func (r *SQLRepository) DeleteMeal(ctx context.Context, mealID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM meal_ingredients WHERE meal_id = ?`), mealID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM user_meals WHERE meal_id = ?`), mealID); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM meals WHERE id = ?`), mealID)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *SQLRepository) insertIngredients(ctx context.Context, tx *sql.Tx, meal *domain.Meal) error {
	query := `
		INSERT INTO meal_ingredients (meal_id, food_id, quantity, unit, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	now := time.Now().UTC()
	for _, ing := range meal.Ingredients {
		if ing.Quantity <= 0 {
			return fmt.Errorf("%w: ingredient quantity must be positive", ErrInvalidInput)
		}

		id, err := r.txInsertReturningID(ctx, tx, query,
			meal.ID, ing.FoodID, ing.Quantity, ing.Unit, nullString(ing.Notes), now,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: food %d listed twice in meal", ErrDuplicate, ing.FoodID)
			}
			return err
		}

		ing.ID = id
		ing.MealID = meal.ID
		ing.CreatedAt = now
	}
	return nil
}

func (r *SQLRepository) listIngredients(ctx context.Context, mealID int64) ([]*domain.MealIngredient, error) {
	query := `
		SELECT id, meal_id, food_id, quantity, unit, notes, created_at
		FROM meal_ingredients WHERE meal_id = ? ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), mealID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ingredients []*domain.MealIngredient
	for rows.Next() {
		var ing domain.MealIngredient
		var notes sql.NullString

		if err := rows.Scan(&ing.ID, &ing.MealID, &ing.FoodID, &ing.Quantity, &ing.Unit, &notes, &ing.CreatedAt); err != nil {
			return nil, err
		}

		ing.Notes = notes.String
		ingredients = append(ingredients, &ing)
	}

	return ingredients, rows.Err()
}
