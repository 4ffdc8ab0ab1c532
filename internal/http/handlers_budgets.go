package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"casinoboys/internal/budget"
	"casinoboys/internal/core"
	"casinoboys/internal/store"
)

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid := userID(r)

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	amount, err := core.ParseAmount(parser.Get("amount"))
	if err != nil {
		UnprocessableEntityError("Amount must be a valid number").Write(w)
		return
	}

	periodType := core.PeriodType(parser.Get("period_type"))
	if !periodType.Valid() {
		UnprocessableEntityError("Period must be weekly or monthly").Write(w)
		return
	}

	now := time.Now().UTC()
	start, end := budget.PeriodBounds(periodType, now)
	b := core.Budget{
		ID:         uuid.NewString(),
		UserID:     uid,
		PeriodType: periodType,
		Amount:     amount,
		StartDate:  start,
		EndDate:    end,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := b.Validate(); err != nil {
		if errors.Is(err, core.ErrNonPositiveLimit) {
			UnprocessableEntityError("Budget amount must be positive").Write(w)
			return
		}
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	if err := s.backend.CreateBudget(ctx, b); err != nil {
		slog.ErrorContext(ctx, "Budget create failed", "error", err, "user_id", uid)
		InternalServerError("Could not create the budget").Write(w)
		return
	}

	slog.InfoContext(ctx, "Budget created", "budget_id", b.ID, "user_id", uid, "period_type", string(periodType))

	resp := NewHTMXResponse().
		Status(http.StatusCreated).
		TriggerBudgetChanged()
	s.writeOrRedirect(w, r, resp, "/")
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid := userID(r)
	id := r.PathValue("id")

	// Budgets are private; deleting through another user's id must look
	// identical to deleting a budget that never existed.
	budgets, err := s.backend.ListBudgetsByUser(ctx, uid)
	if err != nil {
		slog.ErrorContext(ctx, "Budget list failed", "error", err, "user_id", uid)
		InternalServerError("Could not delete the budget").Write(w)
		return
	}
	owned := false
	for _, b := range budgets {
		if b.ID == id {
			owned = true
			break
		}
	}
	if !owned {
		NotFoundError("Budget not found").Write(w)
		return
	}

	if err := s.backend.DeleteBudget(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFoundError("Budget not found").Write(w)
			return
		}
		slog.ErrorContext(ctx, "Budget delete failed", "error", err, "budget_id", id, "user_id", uid)
		InternalServerError("Could not delete the budget").Write(w)
		return
	}

	slog.InfoContext(ctx, "Budget deleted", "budget_id", id, "user_id", uid)

	resp := NewHTMXResponse().
		Status(http.StatusOK).
		TriggerBudgetChanged()
	s.writeOrRedirect(w, r, resp, "/")
}
