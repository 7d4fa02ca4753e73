package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/openmealplan/mealplanner/internal/domain"
)

// dateLayout is how plan dates are stored: calendar day, no time zone.
const dateLayout = "2006-01-02"

// AddPlanEntry schedules a meal for a user on a date.
func (r *SQLRepository) AddPlanEntry(ctx context.Context, entry *domain.PlanEntry) error {
	if entry.MealNumber <= 0 {
		return fmt.Errorf("%w: mealNumber must be positive", ErrInvalidInput)
	}
	if entry.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidInput)
	}

	// Reject dangling meal references up front.
	if _, err := r.GetMeal(ctx, entry.MealID); err != nil {
		return err
	}

	entry.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO user_meals (user_id, meal_id, date, meal_number, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	id, err := r.insertReturningID(ctx, query,
		entry.UserID, entry.MealID, entry.Date.Format(dateLayout),
		entry.MealNumber, entry.CreatedAt,
	)
	if err != nil {
		return err
	}

	entry.ID = id
	return nil
}

// ListPlanEntries returns a user's entries for one date ordered by meal
// number.
func (r *SQLRepository) ListPlanEntries(ctx context.Context, userID int64, date time.Time) ([]*domain.PlanEntry, error) {
	query := `
		SELECT id, user_id, meal_id, date, meal_number, created_at
		FROM user_meals
		WHERE user_id = ? AND date = ?
		ORDER BY meal_number, id
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), userID, date.Format(dateLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.PlanEntry
	for rows.Next() {
		var entry domain.PlanEntry
		var day string

		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.MealID, &day, &entry.MealNumber, &entry.CreatedAt); err != nil {
			return nil, err
		}

		entry.Date, err = time.Parse(dateLayout, day)
		if err != nil {
			return nil, fmt.Errorf("malformed plan date %q: %w", day, err)
		}

		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

// DeletePlanEntry removes one entry. Scoped by user so one user cannot
// delete another's plan.
func (r *SQLRepository) DeletePlanEntry(ctx context.Context, userID, entryID int64) error {
	query := `DELETE FROM user_meals WHERE id = ? AND user_id = ?`

	res, err := r.db.ExecContext(ctx, r.rebind(query), entryID, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}
