// Package worker provides async event processing for the meal planner.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/openmealplan/mealplanner/internal/domain"
	"github.com/openmealplan/mealplanner/internal/nutrition"
)

// Worker keeps derived nutrition data consistent. It listens for meal
// and plan change events, recomputes meal totals, and drops stale day
// summaries from the cache.
type Worker struct {
	bus       domain.EventBus
	nutrition *nutrition.Service

	subscriptions []domain.Subscription
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, nutritionSvc *nutrition.Service) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:       bus,
		nutrition: nutritionSvc,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start subscribes to the change topics.
func (w *Worker) Start() error {
	mealSub, err := w.bus.Subscribe(w.ctx, domain.TopicMealChanged, w.handleMealChanged)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, mealSub)

	planSub, err := w.bus.Subscribe(w.ctx, domain.TopicPlanChanged, w.handlePlanChanged)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, planSub)

	slog.Info("worker started",
		"topics", []string{domain.TopicMealChanged, domain.TopicPlanChanged},
	)

	return nil
}

// handleMealChanged recomputes the totals of a changed meal.
func (w *Worker) handleMealChanged(ctx context.Context, msg *domain.Message) error {
	start := time.Now()

	var event domain.MealChangedEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		slog.Error("failed to parse meal changed event",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	if event.Deleted {
		// Nothing to recompute; plan change events cover summary invalidation.
		slog.Debug("meal deleted", "meal_id", event.MealID)
		return nil
	}

	meal, err := w.nutrition.RecomputeMeal(ctx, event.MealID)
	if err != nil {
		slog.Error("failed to recompute meal totals",
			"meal_id", event.MealID,
			"error", err,
		)
		return err
	}

	slog.Info("meal totals recomputed",
		"meal_id", meal.ID,
		"calories", meal.TotalCalories,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// handlePlanChanged drops the cached day summary for the affected date.
func (w *Worker) handlePlanChanged(ctx context.Context, msg *domain.Message) error {
	var event domain.PlanChangedEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		slog.Error("failed to parse plan changed event",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	w.nutrition.InvalidateDaySummary(ctx, event.UserID, event.Date)

	slog.Debug("day summary invalidated",
		"user_id", event.UserID,
		"date", event.Date,
	)

	return nil
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() error {
	w.cancel()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	slog.Info("worker stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
