// Package adapters binds a store and the transaction service into the
// single surface the HTTP handlers depend on: reads go straight to the
// store, transaction writes go through the service so validation and
// rollup publishing always happen.
package adapters

import (
	"context"

	"casinoboys/internal/core"
	"casinoboys/internal/services"
	"casinoboys/internal/store"
)

type StoreAdapter struct {
	store.Store
	service *services.TransactionService
}

func NewStoreAdapter(s store.Store, service *services.TransactionService) *StoreAdapter {
	return &StoreAdapter{Store: s, service: service}
}

// RecordTransaction validates and persists a transaction, publishing the
// rollup message as a side effect.
func (a *StoreAdapter) RecordTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	return a.service.CreateTransaction(ctx, t)
}

// RemoveTransaction deletes a transaction owned by userID.
func (a *StoreAdapter) RemoveTransaction(ctx context.Context, id, userID string) error {
	return a.service.DeleteTransaction(ctx, id, userID)
}
