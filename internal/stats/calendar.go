package stats

import (
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"casinoboys/internal/core"
)

// Tone classifies a daily total for calendar rendering.
type Tone string

const (
	ToneWinning Tone = "winning"
	ToneLosing  Tone = "losing"
	ToneNeutral Tone = "neutral"
)

// BalanceIndex is a date-keyed lookup over pre-aggregated daily balances.
type BalanceIndex map[string]core.DailyBalance

// IndexBalances builds an index keyed by canonical date. The storage layer
// guarantees one row per (user, day); should two rows ever normalize to the
// same key the later one wins and the anomaly is logged.
func IndexBalances(balances []core.DailyBalance) BalanceIndex {
	ix := make(BalanceIndex, len(balances))
	for _, b := range balances {
		key := core.DateKey(b.Date)
		if _, dup := ix[key]; dup {
			slog.Warn("Duplicate daily balance row", "user_id", b.UserID, "date", key)
		}
		ix[key] = b
	}
	return ix
}

// At returns the balance for a date key; dates outside the indexed range
// are simply absent.
func (ix BalanceIndex) At(key string) (core.DailyBalance, bool) {
	b, ok := ix[key]
	return b, ok
}

// AtDate is At keyed by a time value.
func (ix BalanceIndex) AtDate(t time.Time) (core.DailyBalance, bool) {
	return ix.At(core.DateKey(t))
}

// GroupByDay buckets transactions by canonical date, preserving relative
// input order within each day. Used by the calendar's day-detail view.
func GroupByDay(txs []core.Transaction) map[string][]core.Transaction {
	out := make(map[string][]core.Transaction)
	for _, t := range txs {
		key := core.DateKey(t.TransactionDate)
		out[key] = append(out[key], t)
	}
	return out
}

// DayTone classifies a daily total: strictly positive is winning, strictly
// negative is losing, exactly zero is neutral.
func DayTone(total decimal.Decimal) Tone {
	switch {
	case total.IsPositive():
		return ToneWinning
	case total.IsNegative():
		return ToneLosing
	default:
		return ToneNeutral
	}
}

// CalendarDays returns every day of the calendar grid for a month: from the
// Sunday on or before the 1st through the Saturday on or after the last day.
func CalendarDays(year int, month time.Month) []time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	start := first.AddDate(0, 0, -int(first.Weekday()))
	end := last.AddDate(0, 0, 6-int(last.Weekday()))

	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
