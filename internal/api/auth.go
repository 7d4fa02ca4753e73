package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/openmealplan/mealplanner/internal/auth"
	"github.com/openmealplan/mealplanner/internal/domain"
	"github.com/openmealplan/mealplanner/internal/repository"
)

const minPasswordLength = 8

// RegisterRequest is the request body for POST /api/auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`

	FullName    string `json:"fullName"`
	Sex         string `json:"sex,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`

	AddressLine1      string `json:"addressLine1,omitempty"`
	AddressLine2      string `json:"addressLine2,omitempty"`
	City              string `json:"city,omitempty"`
	StateProvinceCode string `json:"stateProvinceCode,omitempty"`
	CountryCode       string `json:"countryCode,omitempty"`
	PostalCode        string `json:"postalCode,omitempty"`
}

// TokenResponse carries an access token and the authenticated user.
type TokenResponse struct {
	AccessToken string       `json:"accessToken"`
	User        *domain.User `json:"user"`
}

// Register handles POST /api/auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Username = strings.TrimSpace(req.Username)

	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, "a valid email is required")
		return
	}
	if req.Username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
		return
	}

	sex := domain.Sex(strings.ToUpper(req.Sex))
	if req.Sex == "" {
		sex = domain.SexOther
	}
	if !sex.Valid() {
		writeError(w, http.StatusBadRequest, "sex must be one of MALE, FEMALE, OTHER")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	user := &domain.User{
		Email:             req.Email,
		Username:          req.Username,
		PasswordHash:      hash,
		FullName:          req.FullName,
		Sex:               sex,
		PhoneNumber:       req.PhoneNumber,
		AddressLine1:      req.AddressLine1,
		AddressLine2:      req.AddressLine2,
		City:              req.City,
		StateProvinceCode: req.StateProvinceCode,
		CountryCode:       req.CountryCode,
		PostalCode:        req.PostalCode,
	}

	if err := h.repo.CreateUser(ctx, user); err != nil {
		writeRepoError(w, err, "user")
		return
	}

	if h.bus != nil {
		payload, _ := json.Marshal(domain.UserCreatedEvent{UserID: user.ID, Email: user.Email})
		if err := h.bus.Publish(ctx, domain.TopicUserCreated, payload); err != nil {
			slog.Error("failed to publish user created event", "user_id", user.ID, "error", err)
		}
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		slog.Error("failed to issue token", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, TokenResponse{AccessToken: token, User: user})
}

// LoginRequest is the request body for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/auth/login. Attempts are rate limited per
// email address.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	if h.cache != nil && h.authCfg.MaxLoginAttempts > 0 {
		key := domain.CacheKeyLoginRate + ":" + req.Email
		count, err := h.cache.IncrementCounter(ctx, key, h.authCfg.LoginWindow)
		if err != nil {
			slog.Warn("login rate limiter unavailable", "error", err)
		} else if count > int64(h.authCfg.MaxLoginAttempts) {
			writeError(w, http.StatusTooManyRequests, "too many login attempts, try again later")
			return
		}
	}

	user, err := h.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		writeRepoError(w, err, "user")
		return
	}

	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		slog.Error("failed to issue token", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{AccessToken: token, User: user})
}
