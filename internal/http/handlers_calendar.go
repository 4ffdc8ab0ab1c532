package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"casinoboys/internal/core"
	"casinoboys/internal/stats"
)

type calendarData struct {
	Theme   string
	Profile core.Profile

	Year       int
	Month      int
	MonthLabel string
	PrevYear   int
	PrevMonth  int
	NextYear   int
	NextMonth  int

	Weekdays []string
	Weeks    [][]calendarCell

	MonthNet    string
	MonthLosing bool
	MonthGames  int

	SelectedDay string
	DayRows     []dayDetailRow
	DayNet      string
	DayLosing   bool
}

type dayDetailRow struct {
	Game   string
	Amount string
	Losing bool
	Notes  string
}

type calendarCell struct {
	Day       int
	DateKey   string
	InMonth   bool
	Today     bool
	HasData   bool
	Total     string
	Tone      string
	GameCount int
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid := userID(r)

	profile, err := s.currentProfile(r)
	if err != nil {
		s.clearSessionCookie(w)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	year, month := parseYearMonth(r)
	if month < 1 || month > 12 {
		BadRequestError("Month must be between 1 and 12").Write(w)
		return
	}
	if year < 1970 || year > 9999 {
		BadRequestError("Year out of range").Write(w)
		return
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	balances, err := s.backend.ListDailyBalancesInRange(ctx, uid, core.DateKey(first), core.DateKey(last))
	if err != nil {
		slog.ErrorContext(ctx, "Daily balance range query failed", "error", err, "user_id", uid, "year", year, "month", month)
		InternalServerError("Could not load the calendar").Write(w)
		return
	}
	index := stats.IndexBalances(balances)

	prev := first.AddDate(0, -1, 0)
	next := first.AddDate(0, 1, 0)

	data := calendarData{
		Theme:      themeFromRequest(r),
		Profile:    profile,
		Year:       year,
		Month:      month,
		MonthLabel: first.Format("January 2006"),
		PrevYear:   prev.Year(),
		PrevMonth:  int(prev.Month()),
		NextYear:   next.Year(),
		NextMonth:  int(next.Month()),
		Weekdays:   []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"},
	}

	todayKey := core.DateKey(time.Now())
	var week []calendarCell
	for _, day := range stats.CalendarDays(year, time.Month(month)) {
		cell := calendarCell{
			Day:     day.Day(),
			DateKey: core.DateKey(day),
			InMonth: day.Month() == time.Month(month),
			Tone:    string(stats.ToneNeutral),
		}
		cell.Today = cell.DateKey == todayKey

		if b, ok := index.AtDate(day); ok && cell.InMonth {
			cell.HasData = true
			cell.Total = formatDollars(b.DailyTotal)
			cell.Tone = string(stats.DayTone(b.DailyTotal))
			cell.GameCount = b.TransactionCount
		}

		week = append(week, cell)
		if len(week) == 7 {
			data.Weeks = append(data.Weeks, week)
			week = nil
		}
	}

	monthNet := decimal.Zero
	monthGames := 0
	for _, b := range balances {
		monthNet = monthNet.Add(b.DailyTotal)
		monthGames += b.TransactionCount
	}
	data.MonthNet = formatDollars(monthNet)
	data.MonthLosing = monthNet.IsNegative()
	data.MonthGames = monthGames

	if day := r.URL.Query().Get("day"); day != "" {
		selected, err := core.ParseDate(day)
		if err != nil {
			BadRequestError("Day must be a valid date").Write(w)
			return
		}
		txs, err := s.backend.ListTransactionsByUser(ctx, uid)
		if err != nil {
			slog.ErrorContext(ctx, "Transaction list failed", "error", err, "user_id", uid)
			InternalServerError("Could not load the calendar").Write(w)
			return
		}
		data.SelectedDay = core.DateKey(selected)
		dayNet := decimal.Zero
		for _, t := range stats.GroupByDay(txs)[data.SelectedDay] {
			data.DayRows = append(data.DayRows, dayDetailRow{
				Game:   t.Game.Label(),
				Amount: formatDollars(t.Amount),
				Losing: t.Amount.IsNegative(),
				Notes:  t.Notes,
			})
			dayNet = dayNet.Add(t.Amount)
		}
		data.DayNet = formatDollars(dayNet)
		data.DayLosing = dayNet.IsNegative()
	}

	s.render(w, r, "calendar.html", data)
}
