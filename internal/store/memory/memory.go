// Package memory provides an in-memory implementation of the store ports,
// used by the memory backend and by handler tests. Daily balances and
// session summaries are computed on demand rather than materialized.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"casinoboys/internal/core"
	"casinoboys/internal/stats"
	"casinoboys/internal/store"
)

type Store struct {
	mu           sync.RWMutex
	transactions map[string]core.Transaction
	sessions     map[string]core.Session
	budgets      map[string]core.Budget
	profiles     map[string]core.Profile
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		transactions: make(map[string]core.Transaction),
		sessions:     make(map[string]core.Session),
		budgets:      make(map[string]core.Budget),
		profiles:     make(map[string]core.Profile),
	}
}

func (s *Store) CreateTransaction(_ context.Context, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions[tx.ID] = tx
	return nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.transactions[id]
	if !ok {
		return core.Transaction{}, store.ErrNotFound
	}
	return tx, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.transactions, id)
	return nil
}

func (s *Store) ListTransactionsByUser(_ context.Context, userID string) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Transaction
	for _, tx := range s.transactions {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	sortTransactions(out)
	return out, nil
}

func (s *Store) ListTransactionsBySession(_ context.Context, sessionID string) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Transaction
	for _, tx := range s.transactions {
		if tx.SessionID == sessionID {
			out = append(out, tx)
		}
	}
	sortTransactions(out)
	return out, nil
}

// sortTransactions orders newest-first, with ID as the tiebreaker so list
// output is deterministic.
func sortTransactions(txs []core.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].TransactionDate.Equal(txs[j].TransactionDate) {
			return txs[i].TransactionDate.After(txs[j].TransactionDate)
		}
		return txs[i].ID < txs[j].ID
	})
}

func (s *Store) CreateSession(_ context.Context, sess core.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return nil
}

func (s *Store) GetSession(_ context.Context, id string) (core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return core.Session{}, store.ErrNotFound
	}
	return sess, nil
}

func (s *Store) ListSessions(_ context.Context) ([]core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) ListSessionSummaries(ctx context.Context) ([]core.SessionSummary, error) {
	sessions, err := s.ListSessions(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]core.SessionSummary, 0, len(sessions))
	for _, sess := range sessions {
		players, err := s.ListSessionPlayers(ctx, sess.ID)
		if err != nil {
			return nil, err
		}
		summary := core.SessionSummary{
			SessionID:   sess.ID,
			Name:        sess.Name,
			Location:    sess.Location,
			Date:        sess.Date,
			IsActive:    sess.IsActive,
			PlayerCount: len(players),
			TotalAmount: decimal.Zero,
			Players:     players,
		}
		txs, _ := s.ListTransactionsBySession(ctx, sess.ID)
		for _, tx := range txs {
			summary.TotalTransactions++
			summary.TotalAmount = summary.TotalAmount.Add(tx.Amount)
		}
		out = append(out, summary)
	}
	return out, nil
}

func (s *Store) ListSessionPlayers(_ context.Context, sessionID string) ([]core.SessionPlayer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[string]decimal.Decimal)
	order := make([]string, 0)
	for _, tx := range s.transactions {
		if tx.SessionID != sessionID {
			continue
		}
		if _, seen := totals[tx.UserID]; !seen {
			order = append(order, tx.UserID)
			totals[tx.UserID] = decimal.Zero
		}
		totals[tx.UserID] = totals[tx.UserID].Add(tx.Amount)
	}
	sort.Strings(order)

	out := make([]core.SessionPlayer, 0, len(order))
	for _, userID := range order {
		p := s.profiles[userID]
		out = append(out, core.SessionPlayer{
			UserID:   userID,
			FullName: p.FullName,
			Email:    p.Email,
			Total:    totals[userID],
		})
	}
	return out, nil
}

func (s *Store) CreateBudget(_ context.Context, b core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets[b.ID] = b
	return nil
}

func (s *Store) DeleteBudget(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgets[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.budgets, id)
	return nil
}

func (s *Store) ListBudgetsByUser(_ context.Context, userID string) ([]core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Budget
	for _, b := range s.budgets {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) CreateProfile(_ context.Context, p core.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.ID] = p
	return nil
}

func (s *Store) GetProfile(_ context.Context, id string) (core.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return core.Profile{}, store.ErrNotFound
	}
	return p, nil
}

func (s *Store) GetProfileByEmail(_ context.Context, email string) (core.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.profiles {
		if strings.EqualFold(p.Email, email) {
			return p, nil
		}
	}
	return core.Profile{}, store.ErrNotFound
}

func (s *Store) UpdateProfile(_ context.Context, p core.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[p.ID]; !ok {
		return store.ErrNotFound
	}
	s.profiles[p.ID] = p
	return nil
}

func (s *Store) ListProfiles(_ context.Context) ([]core.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListDailyBalances(ctx context.Context, userID string) ([]core.DailyBalance, error) {
	txs, err := s.ListTransactionsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return balancesFromTotals(userID, stats.DailyTotals(txs)), nil
}

func (s *Store) ListDailyBalancesInRange(ctx context.Context, userID, startKey, endKey string) ([]core.DailyBalance, error) {
	all, err := s.ListDailyBalances(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]core.DailyBalance, 0, len(all))
	for _, b := range all {
		key := core.DateKey(b.Date)
		if key >= startKey && key <= endKey {
			out = append(out, b)
		}
	}
	return out, nil
}

func balancesFromTotals(userID string, totals map[string]stats.DayTotal) []core.DailyBalance {
	keys := make([]string, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]core.DailyBalance, 0, len(keys))
	for _, k := range keys {
		day, err := core.ParseDate(k)
		if err != nil {
			continue
		}
		out = append(out, core.DailyBalance{
			UserID:           userID,
			Date:             day,
			DailyTotal:       totals[k].Total,
			TransactionCount: totals[k].Count,
		})
	}
	return out
}
