package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/openmealplan/mealplanner/internal/domain"
)

const dateLayout = "2006-01-02"

// PlanEntryRequest is the request body for POST /api/plan.
type PlanEntryRequest struct {
	MealID     int64  `json:"mealId"`
	Date       string `json:"date"` // YYYY-MM-DD
	MealNumber int    `json:"mealNumber"`
}

// AddPlanEntry handles POST /api/plan.
func (h *Handler) AddPlanEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req PlanEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	if req.MealID <= 0 {
		writeError(w, http.StatusBadRequest, "mealId is required")
		return
	}
	if req.MealNumber <= 0 {
		writeError(w, http.StatusBadRequest, "mealNumber must be positive")
		return
	}

	entry := &domain.PlanEntry{
		UserID:     GetUserID(ctx),
		MealID:     req.MealID,
		Date:       date,
		MealNumber: req.MealNumber,
	}

	if err := h.repo.AddPlanEntry(ctx, entry); err != nil {
		writeRepoError(w, err, "plan entry")
		return
	}

	h.publishPlanChanged(ctx, entry.UserID, req.Date)
	writeJSON(w, http.StatusCreated, entry)
}

// ListPlan handles GET /api/plan?date=YYYY-MM-DD.
func (h *Handler) ListPlan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	date, err := time.Parse(dateLayout, r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "date query parameter must be YYYY-MM-DD")
		return
	}

	entries, err := h.repo.ListPlanEntries(ctx, GetUserID(ctx), date)
	if err != nil {
		writeRepoError(w, err, "plan")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"date":    date.Format(dateLayout),
		"entries": entries,
		"count":   len(entries),
	})
}

// DeletePlanEntry handles DELETE /api/plan/{id}. Users can only remove
// their own entries.
func (h *Handler) DeletePlanEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entryID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid plan entry id")
		return
	}

	userID := GetUserID(ctx)

	// Look up the entry date before deleting so the summary cache can be
	// invalidated. The date query parameter avoids a scan when provided.
	day := r.URL.Query().Get("date")

	if err := h.repo.DeletePlanEntry(ctx, userID, entryID); err != nil {
		writeRepoError(w, err, "plan entry")
		return
	}

	if day != "" {
		h.publishPlanChanged(ctx, userID, day)
	}
	w.WriteHeader(http.StatusNoContent)
}

// DaySummary handles GET /api/plan/summary?date=YYYY-MM-DD.
func (h *Handler) DaySummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	date, err := time.Parse(dateLayout, r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "date query parameter must be YYYY-MM-DD")
		return
	}

	summary, err := h.nutrition.DaySummary(ctx, GetUserID(ctx), date)
	if err != nil {
		writeRepoError(w, err, "summary")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) publishPlanChanged(ctx context.Context, userID int64, day string) {
	if h.bus == nil {
		return
	}
	payload, _ := json.Marshal(domain.PlanChangedEvent{UserID: userID, Date: day})
	if err := h.bus.Publish(ctx, domain.TopicPlanChanged, payload); err != nil {
		slog.Error("failed to publish plan changed event", "user_id", userID, "error", err)
	}
}
