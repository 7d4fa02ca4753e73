package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/openmealplan/mealplanner/internal/auth"
	"github.com/openmealplan/mealplanner/internal/domain"
)

// GetMe handles GET /api/users/me.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := h.repo.GetUser(ctx, GetUserID(ctx))
	if err != nil {
		writeRepoError(w, err, "user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// UpdateMeRequest is the request body for PUT /api/users/me.
type UpdateMeRequest struct {
	FullName    *string `json:"fullName,omitempty"`
	Sex         *string `json:"sex,omitempty"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`

	AddressLine1      *string `json:"addressLine1,omitempty"`
	AddressLine2      *string `json:"addressLine2,omitempty"`
	City              *string `json:"city,omitempty"`
	StateProvinceCode *string `json:"stateProvinceCode,omitempty"`
	CountryCode       *string `json:"countryCode,omitempty"`
	PostalCode        *string `json:"postalCode,omitempty"`
}

// UpdateMe handles PUT /api/users/me. Only fields present in the body
// are changed.
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req UpdateMeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	user, err := h.repo.GetUser(ctx, GetUserID(ctx))
	if err != nil {
		writeRepoError(w, err, "user")
		return
	}

	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Sex != nil {
		sex := domain.Sex(strings.ToUpper(*req.Sex))
		if !sex.Valid() {
			writeError(w, http.StatusBadRequest, "sex must be one of MALE, FEMALE, OTHER")
			return
		}
		user.Sex = sex
	}
	if req.PhoneNumber != nil {
		user.PhoneNumber = *req.PhoneNumber
	}
	if req.AddressLine1 != nil {
		user.AddressLine1 = *req.AddressLine1
	}
	if req.AddressLine2 != nil {
		user.AddressLine2 = *req.AddressLine2
	}
	if req.City != nil {
		user.City = *req.City
	}
	if req.StateProvinceCode != nil {
		user.StateProvinceCode = *req.StateProvinceCode
	}
	if req.CountryCode != nil {
		user.CountryCode = *req.CountryCode
	}
	if req.PostalCode != nil {
		user.PostalCode = *req.PostalCode
	}

	if err := h.repo.UpdateUser(ctx, user); err != nil {
		writeRepoError(w, err, "user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// ChangePasswordRequest is the request body for PUT /api/users/me/password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ChangePassword handles PUT /api/users/me/password.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	if len(req.NewPassword) < minPasswordLength {
		writeError(w, http.StatusBadRequest, "new password is too short")
		return
	}

	user, err := h.repo.GetUser(ctx, GetUserID(ctx))
	if err != nil {
		writeRepoError(w, err, "user")
		return
	}

	if err := auth.CheckPassword(user.PasswordHash, req.CurrentPassword); err != nil {
		writeError(w, http.StatusUnauthorized, "current password is incorrect")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := h.repo.UpdateUserPassword(ctx, user.ID, hash); err != nil {
		writeRepoError(w, err, "user")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}

// DietFilterRequest is the request body for PUT /api/users/me/diet.
type DietFilterRequest struct {
	Filter string `json:"filter"`
}

// UpdateDietFilter handles PUT /api/users/me/diet. The filter is a CEL
// expression over food fields; an empty filter clears it.
func (h *Handler) UpdateDietFilter(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req DietFilterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	if err := h.diet.Validate(req.Filter); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.repo.GetUser(ctx, GetUserID(ctx))
	if err != nil {
		writeRepoError(w, err, "user")
		return
	}

	user.DietFilter = req.Filter
	if err := h.repo.UpdateUser(ctx, user); err != nil {
		writeRepoError(w, err, "user")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"filter": user.DietFilter})
}

// ListFavorites handles GET /api/users/me/favorites.
func (h *Handler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	foods, err := h.repo.ListFavorites(ctx, GetUserID(ctx))
	if err != nil {
		writeRepoError(w, err, "favorites")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"foods": foods,
		"count": len(foods),
	})
}
