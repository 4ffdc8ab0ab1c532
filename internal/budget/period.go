// Package budget implements budget window computation, period spending and
// budget status evaluation.
//
// A budget's own start/end dates are computed exactly once, at creation,
// and persisted; they never roll forward. The spending shown against a
// budget is recomputed from the live calendar period on every read. The two
// notions are deliberately distinct and must stay that way.
package budget

import (
	"time"

	"github.com/shopspring/decimal"

	"casinoboys/internal/core"
)

// PeriodBounds computes the inclusive date-only window containing ref.
// Weekly periods run Sunday through Saturday; monthly periods run the 1st
// through the last day of ref's month.
func PeriodBounds(periodType core.PeriodType, ref time.Time) (start, end time.Time) {
	ref = core.DateOnly(ref)
	switch periodType {
	case core.Weekly:
		start = ref.AddDate(0, 0, -int(ref.Weekday()))
		end = start.AddDate(0, 0, 6)
	case core.Monthly:
		start = time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, -1)
	}
	return start, end
}

// WeekStart returns the Sunday on or before now, date-only.
func WeekStart(now time.Time) time.Time {
	s, _ := PeriodBounds(core.Weekly, now)
	return s
}

// MonthStart returns the first day of now's month, date-only.
func MonthStart(now time.Time) time.Time {
	s, _ := PeriodBounds(core.Monthly, now)
	return s
}

// SpendingSince sums the absolute value of losses (amount < 0) dated on or
// after start. Wins and zero-amount transactions do not count as spending.
func SpendingSince(txs []core.Transaction, start time.Time) decimal.Decimal {
	start = core.DateOnly(start)
	spent := decimal.Zero
	for _, t := range txs {
		amt := core.NormalizeAmount(t.Amount, decimal.Zero)
		if !amt.IsNegative() {
			continue
		}
		if core.DateOnly(t.TransactionDate).Before(start) {
			continue
		}
		spent = spent.Add(amt.Abs())
	}
	return spent
}

// PeriodSpending carries the live current-period spend totals a dashboard
// render computes once and feeds to Evaluate for each budget.
type PeriodSpending struct {
	Weekly  decimal.Decimal
	Monthly decimal.Decimal
}

// CurrentSpending computes spending for the current calendar week and month
// as of now. These reflect the true live periods regardless of any stored
// budget window.
func CurrentSpending(txs []core.Transaction, now time.Time) PeriodSpending {
	return PeriodSpending{
		Weekly:  SpendingSince(txs, WeekStart(now)),
		Monthly: SpendingSince(txs, MonthStart(now)),
	}
}
