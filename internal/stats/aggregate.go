// Package stats implements the read-side reductions over transactions and
// daily balances: dashboard totals, per-day and per-game groupings, calendar
// indexes, trend series and session leaderboards. All functions are pure
// single passes over their input; each render builds fresh results.
package stats

import (
	"sort"

	"github.com/shopspring/decimal"

	"casinoboys/internal/core"
)

// Summary holds the dashboard headline numbers for a set of transactions.
type Summary struct {
	TotalWinnings decimal.Decimal
	TotalLosses   decimal.Decimal
	NetTotal      decimal.Decimal
	TotalGames    int
}

// DayTotal is the aggregate for one calendar day.
type DayTotal struct {
	Total decimal.Decimal
	Count int
}

// GameTotal is the aggregate for one game type.
type GameTotal struct {
	Total decimal.Decimal
	Count int
}

// Summarize accumulates winnings (positive amounts), losses (absolute value
// of negative amounts), net total and game count in one pass. Zero-amount
// transactions contribute to the net total and the game count only.
func Summarize(txs []core.Transaction) Summary {
	s := Summary{
		TotalWinnings: decimal.Zero,
		TotalLosses:   decimal.Zero,
		NetTotal:      decimal.Zero,
	}
	for _, t := range txs {
		amt := core.NormalizeAmount(t.Amount, decimal.Zero)
		s.NetTotal = s.NetTotal.Add(amt)
		s.TotalGames++
		switch {
		case amt.IsPositive():
			s.TotalWinnings = s.TotalWinnings.Add(amt)
		case amt.IsNegative():
			s.TotalLosses = s.TotalLosses.Add(amt.Abs())
		}
	}
	return s
}

// DailyTotals groups transactions by canonical calendar date, summing
// normalized amounts. Timestamps and bare dates land in the same bucket.
func DailyTotals(txs []core.Transaction) map[string]DayTotal {
	out := make(map[string]DayTotal)
	for _, t := range txs {
		key := core.DateKey(t.TransactionDate)
		dt := out[key]
		if dt.Count == 0 {
			dt.Total = decimal.Zero
		}
		dt.Total = dt.Total.Add(core.NormalizeAmount(t.Amount, decimal.Zero))
		dt.Count++
		out[key] = dt
	}
	return out
}

// GameTotals groups transactions by game type, accumulating the signed
// total and the play count per game.
func GameTotals(txs []core.Transaction) map[core.GameType]GameTotal {
	out := make(map[core.GameType]GameTotal)
	for _, t := range txs {
		gt := out[t.Game]
		if gt.Count == 0 {
			gt.Total = decimal.Zero
		}
		gt.Total = gt.Total.Add(core.NormalizeAmount(t.Amount, decimal.Zero))
		gt.Count++
		out[t.Game] = gt
	}
	return out
}

// TrendPoint is one step of the cumulative performance series.
type TrendPoint struct {
	DateKey    string
	Daily      decimal.Decimal
	Cumulative decimal.Decimal
}

// Trend orders daily balances by date ascending and accumulates a running
// total, producing the series behind the performance chart.
func Trend(balances []core.DailyBalance) []TrendPoint {
	sorted := make([]core.DailyBalance, len(balances))
	copy(sorted, balances)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	out := make([]TrendPoint, 0, len(sorted))
	running := decimal.Zero
	for _, b := range sorted {
		daily := core.NormalizeAmount(b.DailyTotal, decimal.Zero)
		running = running.Add(daily)
		out = append(out, TrendPoint{
			DateKey:    core.DateKey(b.Date),
			Daily:      daily,
			Cumulative: running,
		})
	}
	return out
}
