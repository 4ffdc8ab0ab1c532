package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"casinoboys/internal/budget"
	"casinoboys/internal/core"
	"casinoboys/internal/stats"
)

type gameRow struct {
	Label  string
	Amount string
	Count  int
	Width  int
	Losing bool
}

type trendRow struct {
	DateKey    string
	Daily      string
	Cumulative string
	Width      int
	Losing     bool
}

type budgetRow struct {
	ID          string
	PeriodType  string
	Amount      string
	Spent       string
	Remaining   string
	PercentUsed int
	Level       string
	StartDate   string
	EndDate     string
}

type recentRow struct {
	Game    string
	Amount  string
	Losing  bool
	DateKey string
	Notes   string
}

type dashboardData struct {
	Theme   string
	Profile core.Profile

	TotalWinnings string
	TotalLosses   string
	NetTotal      string
	NetLosing     bool
	TotalGames    int

	Games   []gameRow
	Trend   []trendRow
	Budgets []budgetRow
	Recent  []recentRow

	Periods []core.PeriodType
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	ctx := r.Context()

	profile, err := s.currentProfile(r)
	if err != nil {
		slog.ErrorContext(ctx, "Profile load failed", "error", err, "user_id", uid)
		s.clearSessionCookie(w)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	summary, txs, err := s.userSummary(ctx, uid)
	if err != nil {
		slog.ErrorContext(ctx, "Transaction list failed", "error", err, "user_id", uid)
		InternalServerError("Could not load the dashboard").Write(w)
		return
	}

	data := dashboardData{
		Theme:         themeFromRequest(r),
		Profile:       profile,
		TotalWinnings: formatDollars(summary.TotalWinnings),
		TotalLosses:   formatDollars(summary.TotalLosses),
		NetTotal:      formatDollars(summary.NetTotal),
		NetLosing:     summary.NetTotal.IsNegative(),
		TotalGames:    summary.TotalGames,
		Periods:       []core.PeriodType{core.Weekly, core.Monthly},
	}

	data.Games = buildGameRows(stats.GameTotals(txs))
	data.Recent = buildRecentRows(txs)

	balances, err := s.backend.ListDailyBalances(ctx, uid)
	if err != nil {
		slog.ErrorContext(ctx, "Daily balance list failed", "error", err, "user_id", uid)
	} else {
		data.Trend = buildTrendRows(stats.Trend(balances))
	}

	budgets, err := s.backend.ListBudgetsByUser(ctx, uid)
	if err != nil {
		slog.ErrorContext(ctx, "Budget list failed", "error", err, "user_id", uid)
	} else {
		spending := budget.CurrentSpending(txs, time.Now())
		for _, st := range budget.EvaluateAll(budgets, spending) {
			data.Budgets = append(data.Budgets, buildBudgetRow(st))
		}
	}

	s.render(w, r, "dashboard.html", data)
}

// buildGameRows scales each game's absolute total against the largest
// one so the bars stay comparable.
func buildGameRows(totals map[core.GameType]stats.GameTotal) []gameRow {
	var maxAbs decimal.Decimal
	for _, gt := range totals {
		if abs := gt.Total.Abs(); abs.GreaterThan(maxAbs) {
			maxAbs = abs
		}
	}

	var rows []gameRow
	for _, game := range core.Games() {
		gt, ok := totals[game]
		if !ok {
			continue
		}
		rows = append(rows, gameRow{
			Label:  game.Label(),
			Amount: formatDollars(gt.Total),
			Count:  gt.Count,
			Width:  barWidth(gt.Total.Abs(), maxAbs),
			Losing: gt.Total.IsNegative(),
		})
	}
	return rows
}

// buildRecentRows keeps the five newest transactions for the activity
// feed; the input is already ordered newest-first.
func buildRecentRows(txs []core.Transaction) []recentRow {
	const feedSize = 5

	var rows []recentRow
	for _, t := range txs {
		if len(rows) == feedSize {
			break
		}
		rows = append(rows, recentRow{
			Game:    t.Game.Label(),
			Amount:  formatDollars(t.Amount),
			Losing:  t.Amount.IsNegative(),
			DateKey: core.DateKey(t.TransactionDate),
			Notes:   t.Notes,
		})
	}
	return rows
}

func buildTrendRows(points []stats.TrendPoint) []trendRow {
	var maxAbs decimal.Decimal
	for _, p := range points {
		if abs := p.Cumulative.Abs(); abs.GreaterThan(maxAbs) {
			maxAbs = abs
		}
	}

	rows := make([]trendRow, 0, len(points))
	for _, p := range points {
		rows = append(rows, trendRow{
			DateKey:    p.DateKey,
			Daily:      formatDollars(p.Daily),
			Cumulative: formatDollars(p.Cumulative),
			Width:      barWidth(p.Cumulative.Abs(), maxAbs),
			Losing:     p.Cumulative.IsNegative(),
		})
	}
	return rows
}

func buildBudgetRow(st budget.Status) budgetRow {
	percent := int(st.PercentUsed + 0.5)
	if percent > 100 {
		percent = 100
	}
	return budgetRow{
		ID:          st.Budget.ID,
		PeriodType:  string(st.Budget.PeriodType),
		Amount:      formatDollars(st.Budget.Amount),
		Spent:       formatDollars(st.Spent),
		Remaining:   formatDollars(st.Remaining),
		PercentUsed: percent,
		Level:       string(st.Level),
		StartDate:   core.DateKey(st.Budget.StartDate),
		EndDate:     core.DateKey(st.Budget.EndDate),
	}
}

// barWidth converts a value to a rounded percent of the maximum, keeping
// tiny non-zero values visible.
func barWidth(value, max decimal.Decimal) int {
	if max.IsZero() || value.IsZero() {
		return 0
	}
	width := int(value.Div(max).Mul(decimal.NewFromInt(100)).Round(0).IntPart())
	if width > 0 && width < 2 {
		width = 2
	}
	if width > 100 {
		width = 100
	}
	return width
}
