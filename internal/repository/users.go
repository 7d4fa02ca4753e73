package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/openmealplan/mealplanner/internal/domain"
)

const userColumns = `id, email, username, password_hash, full_name, sex, phone_number,
	   address_line_1, address_line_2, city, state_province_code,
	   country_code, postal_code, diet_filter, created_at, updated_at`

// CreateUser inserts a user and fills in the generated ID.
func (r *SQLRepository) CreateUser(ctx context.Context, user *domain.User) error {
	if user.Email == "" || user.Username == "" {
		return fmt.Errorf("%w: email and username are required", ErrInvalidInput)
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO users (
			email, username, password_hash, full_name, sex, phone_number,
			address_line_1, address_line_2, city, state_province_code,
			country_code, postal_code, diet_filter, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	id, err := r.insertReturningID(ctx, query,
		user.Email, user.Username, user.PasswordHash,
		user.FullName, user.Sex, nullString(user.PhoneNumber),
		user.AddressLine1, nullString(user.AddressLine2), user.City,
		user.StateProvinceCode, user.CountryCode, user.PostalCode,
		nullString(user.DietFilter), user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: email or username taken", ErrDuplicate)
		}
		return err
	}

	user.ID = id
	return nil
}

// GetUser retrieves a user by ID.
func (r *SQLRepository) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	return r.getUserWhere(ctx, "id = ?", userID)
}

// GetUserByEmail retrieves a user by email.
func (r *SQLRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getUserWhere(ctx, "email = ?", email)
}

// GetUserByUsername retrieves a user by username.
func (r *SQLRepository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getUserWhere(ctx, "username = ?", username)
}

func (r *SQLRepository) getUserWhere(ctx context.Context, where string, arg any) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where

	var user domain.User
	var phone, line2, diet sql.NullString

	err := r.db.QueryRowContext(ctx, r.rebind(query), arg).Scan(
		&user.ID, &user.Email, &user.Username, &user.PasswordHash,
		&user.FullName, &user.Sex, &phone,
		&user.AddressLine1, &line2, &user.City, &user.StateProvinceCode,
		&user.CountryCode, &user.PostalCode, &diet,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	user.PhoneNumber = phone.String
	user.AddressLine2 = line2.String
	user.DietFilter = diet.String
	return &user, nil
}

// UpdateUser writes profile fields. Email, username, and password hash
// are not touched here.
func (r *SQLRepository) UpdateUser(ctx context.Context, user *domain.User) error {
	user.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE users SET
			full_name = ?, sex = ?, phone_number = ?,
			address_line_1 = ?, address_line_2 = ?, city = ?,
			state_province_code = ?, country_code = ?, postal_code = ?,
			diet_filter = ?, updated_at = ?
		WHERE id = ?
	`

	res, err := r.db.ExecContext(ctx, r.rebind(query),
		user.FullName, user.Sex, nullString(user.PhoneNumber),
		user.AddressLine1, nullString(user.AddressLine2), user.City,
		user.StateProvinceCode, user.CountryCode, user.PostalCode,
		nullString(user.DietFilter), user.UpdatedAt, user.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpdateUserPassword replaces the stored password hash.
func (r *SQLRepository) UpdateUserPassword(ctx context.Context, userID int64, passwordHash string) error {
	query := `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`

	res, err := r.db.ExecContext(ctx, r.rebind(query), passwordHash, time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
