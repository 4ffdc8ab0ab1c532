package budget

import (
	"github.com/shopspring/decimal"

	"casinoboys/internal/core"
)

// Level classifies how a budget is holding up.
type Level string

const (
	LevelHealthy    Level = "healthy"
	LevelNearLimit  Level = "near-limit"
	LevelOverBudget Level = "over-budget"
)

// nearLimitPercent is the percent-used threshold at which a budget that is
// not yet exceeded starts warning.
const nearLimitPercent = 80.0

// Status is the evaluated state of one budget against period spending.
type Status struct {
	Budget      core.Budget
	Spent       decimal.Decimal
	Remaining   decimal.Decimal
	PercentUsed float64
	Level       Level
}

// Evaluate compares a budget against the live period spending matching its
// period type. Precedence: over-budget when remaining is negative, then
// near-limit at 80% used, else healthy.
//
// Budget creation rejects non-positive amounts, but a persisted zero would
// divide by zero here, so it is guarded: any spend against a non-positive
// amount reads as fully used.
func Evaluate(b core.Budget, spending PeriodSpending) Status {
	spent := spending.Monthly
	if b.PeriodType == core.Weekly {
		spent = spending.Weekly
	}
	spent = core.NormalizeAmount(spent, decimal.Zero)

	remaining := b.Amount.Sub(spent)

	var percent float64
	if b.Amount.IsPositive() {
		percent, _ = spent.Div(b.Amount).Mul(decimal.NewFromInt(100)).Float64()
	} else if spent.IsPositive() {
		percent = 100
	}

	level := LevelHealthy
	switch {
	case remaining.IsNegative():
		level = LevelOverBudget
	case percent >= nearLimitPercent:
		level = LevelNearLimit
	}

	return Status{
		Budget:      b,
		Spent:       spent,
		Remaining:   remaining,
		PercentUsed: percent,
		Level:       level,
	}
}

// EvaluateAll evaluates every budget in order. An empty input yields an
// empty result; "no budgets" is a legitimate unset state the view renders,
// not an error.
func EvaluateAll(budgets []core.Budget, spending PeriodSpending) []Status {
	out := make([]Status, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, Evaluate(b, spending))
	}
	return out
}
