package stats

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"casinoboys/internal/core"
)

func bal(date, total string) core.DailyBalance {
	d, err := core.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return core.DailyBalance{
		UserID:     "u1",
		Date:       d,
		DailyTotal: decimal.RequireFromString(total),
	}
}

func TestIndexBalancesLookup(t *testing.T) {
	ix := IndexBalances([]core.DailyBalance{
		bal("2024-01-01", "70"),
		bal("2024-01-05", "-25"),
	})
	got, ok := ix.At("2024-01-01")
	if !ok || got.DailyTotal.String() != "70" {
		t.Fatalf("expected 70 for 2024-01-01, got %v (ok=%v)", got.DailyTotal, ok)
	}
	if _, ok := ix.At("2030-12-25"); ok {
		t.Fatalf("out-of-range date should be absent, not an error")
	}
}

func TestIndexBalancesLastWriteWins(t *testing.T) {
	ix := IndexBalances([]core.DailyBalance{
		bal("2024-01-01", "10"),
		bal("2024-01-01", "99"),
	})
	got, ok := ix.At("2024-01-01")
	if !ok || got.DailyTotal.String() != "99" {
		t.Fatalf("expected later row to win, got %v", got.DailyTotal)
	}
}

func TestGroupByDayPreservesOrder(t *testing.T) {
	txs := []core.Transaction{
		tx("u1", core.Poker, "10", "2024-01-01"),
		tx("u2", core.Slots, "-5", "2024-01-01"),
		tx("u1", core.Blackjack, "20", "2024-01-02"),
	}
	grouped := GroupByDay(txs)
	day := grouped["2024-01-01"]
	if len(day) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(day))
	}
	if day[0].UserID != "u1" || day[1].UserID != "u2" {
		t.Fatalf("input order not preserved: %s, %s", day[0].UserID, day[1].UserID)
	}
}

func TestDayTone(t *testing.T) {
	cases := []struct {
		total string
		want  Tone
	}{
		{"0.01", ToneWinning},
		{"-0.01", ToneLosing},
		{"0", ToneNeutral},
	}
	for _, tc := range cases {
		if got := DayTone(decimal.RequireFromString(tc.total)); got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.total, tc.want, got)
		}
	}
}

func TestCalendarDays(t *testing.T) {
	// February 2024: the 1st is a Thursday, the 29th a Thursday.
	days := CalendarDays(2024, time.February)
	if len(days)%7 != 0 {
		t.Fatalf("grid must be whole weeks, got %d days", len(days))
	}
	if days[0].Weekday() != time.Sunday {
		t.Fatalf("grid must start on Sunday, got %s", days[0].Weekday())
	}
	if last := days[len(days)-1]; last.Weekday() != time.Saturday {
		t.Fatalf("grid must end on Saturday, got %s", last.Weekday())
	}
	if core.DateKey(days[0]) != "2024-01-28" {
		t.Fatalf("expected grid start 2024-01-28, got %s", core.DateKey(days[0]))
	}
}
