// Package services orchestrates writes across the store and the AMQP
// rollup queue.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"casinoboys/internal/amqp"
	"casinoboys/internal/core"
	applog "casinoboys/internal/log"
	"casinoboys/internal/store"
)

var (
	ErrSessionClosed = errors.New("session is not active")
	ErrNotOwner      = errors.New("transaction belongs to another user")
)

// RollupPublisher is the slice of the AMQP client the service needs.
type RollupPublisher interface {
	PublishRollup(ctx context.Context, msg *amqp.RollupMessage) error
}

// TransactionService validates and persists transaction writes, then
// publishes a rollup message so the worker can reconcile. A publish
// failure never fails the request: the write already committed and the
// worker's periodic sweep covers the gap.
type TransactionService struct {
	store     store.Store
	publisher RollupPublisher
}

func NewTransactionService(s store.Store, publisher RollupPublisher) *TransactionService {
	return &TransactionService{store: s, publisher: publisher}
}

func (s *TransactionService) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.TransactionDate = core.DateOnly(t.TransactionDate)
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	sess, err := s.store.GetSession(ctx, t.SessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return core.Transaction{}, core.ErrMissingSession
		}
		return core.Transaction{}, fmt.Errorf("lookup session: %w", err)
	}
	if !sess.IsActive {
		return core.Transaction{}, ErrSessionClosed
	}

	if err := s.store.CreateTransaction(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.publish(ctx, amqp.NewRollupMessage(t.ID, t.UserID, core.DateKey(t.TransactionDate), amqp.ActionCreate))
	return t, nil
}

// DeleteTransaction removes a transaction after checking the caller owns
// it.
func (s *TransactionService) DeleteTransaction(ctx context.Context, id, userID string) error {
	t, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return err
	}
	if t.UserID != userID {
		return ErrNotOwner
	}

	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	s.publish(ctx, amqp.NewRollupMessage(id, t.UserID, core.DateKey(t.TransactionDate), amqp.ActionDelete))
	return nil
}

func (s *TransactionService) publish(ctx context.Context, msg *amqp.RollupMessage) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishRollup(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish rollup message",
			applog.FieldComponent, applog.ComponentTransaction,
			applog.FieldTransactionID, msg.TransactionID,
			applog.FieldUserID, msg.UserID,
			applog.FieldDateKey, msg.DateKey,
			applog.FieldError, err.Error())
	}
}
