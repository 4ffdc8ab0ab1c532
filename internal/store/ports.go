// Package store defines the persistence ports the HTTP layer and the
// services depend on. Implementations live in internal/storage (SQLite)
// and internal/store/memory.
package store

import (
	"context"
	"errors"

	"casinoboys/internal/core"
)

// ErrNotFound is returned when a lookup by ID matches nothing.
var ErrNotFound = errors.New("not found")

type TransactionStore interface {
	CreateTransaction(ctx context.Context, tx core.Transaction) error
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
	ListTransactionsByUser(ctx context.Context, userID string) ([]core.Transaction, error)
	ListTransactionsBySession(ctx context.Context, sessionID string) ([]core.Transaction, error)
}

type SessionStore interface {
	CreateSession(ctx context.Context, s core.Session) error
	GetSession(ctx context.Context, id string) (core.Session, error)
	ListSessions(ctx context.Context) ([]core.Session, error)
	ListSessionSummaries(ctx context.Context) ([]core.SessionSummary, error)
	ListSessionPlayers(ctx context.Context, sessionID string) ([]core.SessionPlayer, error)
}

type BudgetStore interface {
	CreateBudget(ctx context.Context, b core.Budget) error
	DeleteBudget(ctx context.Context, id string) error
	ListBudgetsByUser(ctx context.Context, userID string) ([]core.Budget, error)
}

type ProfileStore interface {
	CreateProfile(ctx context.Context, p core.Profile) error
	GetProfile(ctx context.Context, id string) (core.Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (core.Profile, error)
	UpdateProfile(ctx context.Context, p core.Profile) error
	ListProfiles(ctx context.Context) ([]core.Profile, error)
}

// BalanceReader serves the calendar view from the per-day rollups.
type BalanceReader interface {
	ListDailyBalances(ctx context.Context, userID string) ([]core.DailyBalance, error)
	ListDailyBalancesInRange(ctx context.Context, userID string, startKey, endKey string) ([]core.DailyBalance, error)
}

// Store is the full persistence surface a backend must provide.
type Store interface {
	TransactionStore
	SessionStore
	BudgetStore
	ProfileStore
	BalanceReader
}
