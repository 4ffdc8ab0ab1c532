package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"casinoboys/internal/core"
	"casinoboys/internal/store"
)

func day(s string) time.Time {
	d, err := core.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func seedTx(t *testing.T, s *Store, id, userID, sessionID, amount, date string) {
	t.Helper()
	tx := core.Transaction{
		ID:              id,
		UserID:          userID,
		SessionID:       sessionID,
		Game:            core.Poker,
		Amount:          decimal.RequireFromString(amount),
		TransactionDate: day(date),
	}
	if err := s.CreateTransaction(context.Background(), tx); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
}

func TestTransactionLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	seedTx(t, s, "t1", "u1", "s1", "100", "2024-01-15")

	got, err := s.GetTransaction(ctx, "t1")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if got.Amount.String() != "100" {
		t.Fatalf("expected amount 100, got %s", got.Amount)
	}

	if err := s.DeleteTransaction(ctx, "t1"); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	if _, err := s.GetTransaction(ctx, "t1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteTransaction(ctx, "t1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestListTransactionsOrdering(t *testing.T) {
	s := New()
	seedTx(t, s, "t1", "u1", "s1", "10", "2024-01-10")
	seedTx(t, s, "t2", "u1", "s1", "20", "2024-01-12")
	seedTx(t, s, "t3", "u2", "s1", "30", "2024-01-11")

	txs, err := s.ListTransactionsByUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ListTransactionsByUser: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}
	if txs[0].ID != "t2" || txs[1].ID != "t1" {
		t.Fatalf("expected newest first, got %s then %s", txs[0].ID, txs[1].ID)
	}
}

func TestDailyBalancesAggregation(t *testing.T) {
	s := New()
	seedTx(t, s, "t1", "u1", "s1", "100", "2024-01-15")
	seedTx(t, s, "t2", "u1", "s1", "-30", "2024-01-15")
	seedTx(t, s, "t3", "u1", "s1", "50", "2024-01-16")
	seedTx(t, s, "t4", "u2", "s1", "999", "2024-01-15")

	balances, err := s.ListDailyBalances(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ListDailyBalances: %v", err)
	}
	if len(balances) != 2 {
		t.Fatalf("expected 2 days, got %d", len(balances))
	}
	if core.DateKey(balances[0].Date) != "2024-01-15" || balances[0].DailyTotal.String() != "70" {
		t.Fatalf("day 1: got %s = %s", core.DateKey(balances[0].Date), balances[0].DailyTotal)
	}
	if balances[0].TransactionCount != 2 {
		t.Fatalf("expected count 2, got %d", balances[0].TransactionCount)
	}
	if core.DateKey(balances[1].Date) != "2024-01-16" || balances[1].DailyTotal.String() != "50" {
		t.Fatalf("day 2: got %s = %s", core.DateKey(balances[1].Date), balances[1].DailyTotal)
	}
}

func TestDailyBalancesInRange(t *testing.T) {
	s := New()
	seedTx(t, s, "t1", "u1", "s1", "10", "2024-01-31")
	seedTx(t, s, "t2", "u1", "s1", "20", "2024-02-01")
	seedTx(t, s, "t3", "u1", "s1", "30", "2024-02-29")
	seedTx(t, s, "t4", "u1", "s1", "40", "2024-03-01")

	got, err := s.ListDailyBalancesInRange(context.Background(), "u1", "2024-02-01", "2024-02-29")
	if err != nil {
		t.Fatalf("ListDailyBalancesInRange: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 days in range, got %d", len(got))
	}
}

func TestSessionSummaries(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.CreateProfile(ctx, core.Profile{ID: "u1", Email: "alex@example.com", FullName: "Alex Johnson"}); err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
	if err := s.CreateProfile(ctx, core.Profile{ID: "u2", Email: "sam@example.com", FullName: "Sam Smith"}); err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
	if err := s.CreateSession(ctx, core.Session{ID: "s1", Name: "Vegas Weekend", CreatedBy: "u1", Date: day("2024-01-15"), IsActive: true}); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	seedTx(t, s, "t1", "u1", "s1", "100", "2024-01-15")
	seedTx(t, s, "t2", "u2", "s1", "-40", "2024-01-15")
	seedTx(t, s, "t3", "u2", "s1", "10", "2024-01-16")

	summaries, err := s.ListSessionSummaries(ctx)
	if err != nil {
		t.Fatalf("ListSessionSummaries: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}
	got := summaries[0]
	if got.PlayerCount != 2 {
		t.Fatalf("expected 2 players, got %d", got.PlayerCount)
	}
	if got.TotalTransactions != 3 {
		t.Fatalf("expected 3 transactions, got %d", got.TotalTransactions)
	}
	if got.TotalAmount.String() != "70" {
		t.Fatalf("expected total 70, got %s", got.TotalAmount)
	}
	if len(got.Players) != 2 || got.Players[1].Total.String() != "-30" {
		t.Fatalf("unexpected players: %+v", got.Players)
	}
}

func TestProfileByEmailCaseInsensitive(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.CreateProfile(ctx, core.Profile{ID: "u1", Email: "Alex@Example.com"}); err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}

	got, err := s.GetProfileByEmail(ctx, "alex@example.com")
	if err != nil {
		t.Fatalf("GetProfileByEmail: %v", err)
	}
	if got.ID != "u1" {
		t.Fatalf("expected u1, got %s", got.ID)
	}

	if _, err := s.GetProfileByEmail(ctx, "nobody@example.com"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBudgetLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	b := core.Budget{
		ID:         "b1",
		UserID:     "u1",
		PeriodType: core.Weekly,
		Amount:     decimal.RequireFromString("100"),
		StartDate:  day("2024-01-14"),
		EndDate:    day("2024-01-20"),
		IsActive:   true,
	}
	if err := s.CreateBudget(ctx, b); err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}

	budgets, err := s.ListBudgetsByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("ListBudgetsByUser: %v", err)
	}
	if len(budgets) != 1 {
		t.Fatalf("expected 1 budget, got %d", len(budgets))
	}

	if err := s.DeleteBudget(ctx, "b1"); err != nil {
		t.Fatalf("DeleteBudget: %v", err)
	}
	if err := s.DeleteBudget(ctx, "b1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
