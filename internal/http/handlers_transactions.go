package http

import (
	"errors"
	"log/slog"
	"net/http"

	"casinoboys/internal/core"
	"casinoboys/internal/services"
	"casinoboys/internal/store"
)

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
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

	date, err := core.ParseDate(parser.Get("date"))
	if err != nil {
		UnprocessableEntityError("Date must be a valid date").Write(w)
		return
	}

	tx := core.Transaction{
		UserID:          uid,
		SessionID:       parser.Get("session_id"),
		Game:            core.GameType(parser.Get("game")),
		Amount:          amount,
		Notes:           parser.Get("notes"),
		TransactionDate: date,
	}

	created, err := s.backend.RecordTransaction(ctx, tx)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrUnknownGame):
			UnprocessableEntityError("Unknown game type").Write(w)
		case errors.Is(err, core.ErrInvalidDate):
			UnprocessableEntityError("Date must be a valid date").Write(w)
		case errors.Is(err, core.ErrMissingSession):
			NotFoundError("Session not found").Write(w)
		case errors.Is(err, services.ErrSessionClosed):
			UnprocessableEntityError("Session is closed to new transactions").Write(w)
		default:
			slog.ErrorContext(ctx, "Transaction create failed", "error", err, "user_id", uid, "session_id", tx.SessionID)
			InternalServerError("Could not record the transaction").Write(w)
		}
		return
	}

	s.invalidateUserCaches(uid, created.SessionID)

	dateKey := core.DateKey(created.TransactionDate)
	slog.InfoContext(ctx, "Transaction recorded",
		"transaction_id", created.ID,
		"user_id", uid,
		"session_id", created.SessionID,
		"game", string(created.Game),
		"date", dateKey)

	resp := NewHTMXResponse().
		Status(http.StatusCreated).
		TriggerTransactionCreated(created.SessionID, dateKey)
	s.writeOrRedirect(w, r, resp, "/sessions/"+created.SessionID)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid := userID(r)
	id := r.PathValue("id")

	// Looked up before deletion so the cache invalidation and HX trigger
	// still know which session and day the transaction belonged to.
	tx, err := s.backend.GetTransaction(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFoundError("Transaction not found").Write(w)
			return
		}
		slog.ErrorContext(ctx, "Transaction load failed", "error", err, "transaction_id", id)
		InternalServerError("Could not delete the transaction").Write(w)
		return
	}

	if err := s.backend.RemoveTransaction(ctx, id, uid); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			NotFoundError("Transaction not found").Write(w)
		case errors.Is(err, services.ErrNotOwner):
			ForbiddenError("Only the owner can delete a transaction").Write(w)
		default:
			slog.ErrorContext(ctx, "Transaction delete failed", "error", err, "transaction_id", id, "user_id", uid)
			InternalServerError("Could not delete the transaction").Write(w)
		}
		return
	}

	s.invalidateUserCaches(uid, tx.SessionID)

	dateKey := core.DateKey(tx.TransactionDate)
	slog.InfoContext(ctx, "Transaction deleted", "transaction_id", id, "user_id", uid, "session_id", tx.SessionID)

	resp := NewHTMXResponse().
		Status(http.StatusOK).
		TriggerTransactionDeleted(tx.SessionID, dateKey)
	s.writeOrRedirect(w, r, resp, "/sessions/"+tx.SessionID)
}
