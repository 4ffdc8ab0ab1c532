package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestBodyParser_JSON(t *testing.T) {
	body := `{"session_id": "s-1", "game": "blackjack", "amount": 42.5}`
	req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if !parser.IsJSON() {
		t.Error("IsJSON() = false, want true")
	}
	if got := parser.Get("session_id"); got != "s-1" {
		t.Errorf("Get(session_id) = %q, want %q", got, "s-1")
	}
	if got := parser.Get("amount"); got != "42.5" {
		t.Errorf("Get(amount) = %q, want %q", got, "42.5")
	}
	if got := parser.Get("missing"); got != "" {
		t.Errorf("Get(missing) = %q, want empty", got)
	}
}

func TestRequestBodyParser_Form(t *testing.T) {
	body := "game=poker&amount=-40.50&notes=bad+night"
	req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if parser.IsJSON() {
		t.Error("IsJSON() = true, want false")
	}
	if got := parser.Get("game"); got != "poker" {
		t.Errorf("Get(game) = %q, want %q", got, "poker")
	}
	if got := parser.Get("notes"); got != "bad night" {
		t.Errorf("Get(notes) = %q, want %q", got, "bad night")
	}
}

func TestRequestBodyParser_SanitizesValues(t *testing.T) {
	body := "name=%20%20Vegas%07Weekend%20%20"
	req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if got := parser.Get("name"); got != "VegasWeekend" {
		t.Errorf("Get(name) = %q, want control chars and padding stripped", got)
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(""))

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := parser.Get("anything"); got != "" {
		t.Errorf("Get on empty body = %q, want empty", got)
	}
}

func TestRequestBodyParser_GetAnyPreservesTypes(t *testing.T) {
	body := `{"amount": 42.5, "active": true}`
	req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if got, ok := parser.GetAny("amount").(float64); !ok || got != 42.5 {
		t.Errorf("GetAny(amount) = %v, want float64 42.5", parser.GetAny("amount"))
	}
	if got, ok := parser.GetAny("active").(bool); !ok || !got {
		t.Errorf("GetAny(active) = %v, want true", parser.GetAny("active"))
	}
	if parser.GetAny("missing") != nil {
		t.Error("GetAny(missing) should be nil")
	}
}

func TestParseYearMonthDefaults(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/calendar", nil)
	year, month := parseYearMonth(req)
	if year == 0 {
		t.Error("Year should default to the current year")
	}
	if month < 1 || month > 12 {
		t.Errorf("Month = %d, want current month", month)
	}

	req = httptest.NewRequest(http.MethodGet, "/calendar?year=2024&month=2", nil)
	year, month = parseYearMonth(req)
	if year != 2024 || month != 2 {
		t.Errorf("parseYearMonth = (%d, %d), want (2024, 2)", year, month)
	}
}
