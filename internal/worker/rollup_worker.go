// Package worker keeps the daily_balances rollups consistent with the
// raw transactions: it rebuilds the affected (user, day) on every AMQP
// message and sweeps the whole table periodically to cover lost messages.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"casinoboys/internal/amqp"
	applog "casinoboys/internal/log"
)

// Rebuilder is the slice of the storage layer the worker needs.
type Rebuilder interface {
	RebuildUserDay(ctx context.Context, userID, dateKey string) error
	RebuildAllDailyBalances(ctx context.Context) error
}

// Consumer delivers rollup messages; nil means sweep-only mode.
type Consumer interface {
	ConsumeRollups(ctx context.Context, handler func(*amqp.RollupMessage) error) error
}

type RollupWorker struct {
	storage       Rebuilder
	consumer      Consumer
	sweepInterval time.Duration
}

func NewRollupWorker(storage Rebuilder, consumer Consumer, sweepInterval time.Duration) *RollupWorker {
	return &RollupWorker{
		storage:       storage,
		consumer:      consumer,
		sweepInterval: sweepInterval,
	}
}

// HandleRollupMessage rebuilds the one (user, day) named by the message.
// Both create and delete actions resolve the same way: re-derive the row.
func (w *RollupWorker) HandleRollupMessage(ctx context.Context, msg *amqp.RollupMessage) error {
	slog.InfoContext(ctx, "Processing rollup message",
		applog.FieldComponent, applog.ComponentWorker,
		applog.FieldOperation, applog.OpRebuild,
		applog.FieldTransactionID, msg.TransactionID,
		applog.FieldUserID, msg.UserID,
		applog.FieldDateKey, msg.DateKey,
		"action", msg.Action)

	if msg.UserID == "" || msg.DateKey == "" {
		slog.WarnContext(ctx, "Dropping rollup message with missing identifiers",
			applog.FieldComponent, applog.ComponentWorker,
			applog.FieldTransactionID, msg.TransactionID)
		return nil
	}

	if err := w.storage.RebuildUserDay(ctx, msg.UserID, msg.DateKey); err != nil {
		return fmt.Errorf("rebuild user day: %w", err)
	}
	return nil
}

// StartupReconcile rebuilds every rollup once before consuming, covering
// messages lost while the worker was down.
func (w *RollupWorker) StartupReconcile(ctx context.Context) error {
	slog.InfoContext(ctx, "Reconciling daily balances on startup")
	if err := w.storage.RebuildAllDailyBalances(ctx); err != nil {
		return fmt.Errorf("startup reconcile: %w", err)
	}
	return nil
}

// Run consumes rollup messages and sweeps the whole table on a timer,
// returning when the context ends or either loop fails.
func (w *RollupWorker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if w.consumer != nil {
		g.Go(func() error {
			err := w.consumer.ConsumeRollups(ctx, func(msg *amqp.RollupMessage) error {
				return w.HandleRollupMessage(ctx, msg)
			})
			if err != nil && ctx.Err() != nil {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(w.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := w.storage.RebuildAllDailyBalances(ctx); err != nil {
					slog.ErrorContext(ctx, "Periodic rollup sweep failed",
						applog.FieldComponent, applog.ComponentWorker,
						applog.FieldError, err.Error())
				}
			}
		}
	})

	return g.Wait()
}
