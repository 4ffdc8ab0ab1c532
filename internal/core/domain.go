package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Blackjack     GameType = "blackjack"
	Poker         GameType = "poker"
	UltimatePoker GameType = "ultimate-poker"
	Roulette      GameType = "roulette"
	Slots         GameType = "slots"
)

const (
	Weekly  PeriodType = "weekly"
	Monthly PeriodType = "monthly"
)

type (
	GameType string

	PeriodType string

	Profile struct {
		ID           string
		Email        string
		FullName     string
		AvatarURL    string
		PasswordHash string
		CreatedAt    time.Time
		UpdatedAt    time.Time
	}

	// Session is a grouped casino outing; many transactions reference one
	// session. IsActive gates whether new transactions may be added to it.
	Session struct {
		ID        string
		Name      string
		Location  string
		Date      time.Time
		CreatedBy string
		IsActive  bool
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// Transaction is one recorded win or loss: positive amount = win,
	// negative = loss, zero = neutral. Immutable after creation except
	// deletion by its owner.
	Transaction struct {
		ID              string
		UserID          string
		SessionID       string
		Game            GameType
		Amount          decimal.Decimal
		Notes           string
		TransactionDate time.Time
		CreatedAt       time.Time
		UpdatedAt       time.Time
	}

	// DailyBalance is one user's net total for one calendar day,
	// pre-aggregated by the storage layer.
	DailyBalance struct {
		UserID           string
		Date             time.Time
		DailyTotal       decimal.Decimal
		TransactionCount int
	}

	// Budget is a fixed spending window. StartDate/EndDate are computed
	// once at creation from PeriodType and never roll forward.
	Budget struct {
		ID         string
		UserID     string
		PeriodType PeriodType
		Amount     decimal.Decimal
		StartDate  time.Time
		EndDate    time.Time
		IsActive   bool
		CreatedAt  time.Time
		UpdatedAt  time.Time
	}

	SessionPlayer struct {
		UserID   string
		FullName string
		Email    string
		Total    decimal.Decimal
	}

	// SessionSummary is the storage-computed rollup used to render the
	// sessions list without re-aggregating raw transactions.
	SessionSummary struct {
		SessionID         string
		Name              string
		Location          string
		Date              time.Time
		IsActive          bool
		PlayerCount       int
		TotalTransactions int
		TotalAmount       decimal.Decimal
		Players           []SessionPlayer
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrUnknownGame      = errors.New("unknown game type")
	ErrEmptyName        = errors.New("empty name")
	ErrMissingSession   = errors.New("missing session")
	ErrMissingUser      = errors.New("missing user")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidPeriod    = errors.New("invalid period type")
	ErrNonPositiveLimit = errors.New("budget amount must be positive")
)

// Games lists every playable game in display order.
func Games() []GameType {
	return []GameType{Blackjack, Poker, UltimatePoker, Roulette, Slots}
}

// GameLabels maps game types to their display names.
var GameLabels = map[GameType]string{
	Blackjack:     "Blackjack",
	Poker:         "Poker",
	UltimatePoker: "Ultimate Poker",
	Roulette:      "Roulette",
	Slots:         "Slots",
}

func (g GameType) Valid() bool {
	switch g {
	case Blackjack, Poker, UltimatePoker, Roulette, Slots:
		return true
	default:
		return false
	}
}

// Label returns the display name, falling back to the raw value.
func (g GameType) Label() string {
	if l, ok := GameLabels[g]; ok {
		return l
	}
	return string(g)
}

func (p PeriodType) Valid() bool {
	return p == Weekly || p == Monthly
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.UserID) == "" {
		return ErrMissingUser
	}
	if strings.TrimSpace(t.SessionID) == "" {
		return ErrMissingSession
	}
	if !t.Game.Valid() {
		return ErrUnknownGame
	}
	if t.TransactionDate.IsZero() {
		return ErrInvalidDate
	}
	if len(t.Notes) > 500 {
		return errors.New("notes too long (max 500 characters)")
	}
	return nil
}

func (s Session) Validate() error {
	if len(strings.TrimSpace(s.Name)) == 0 {
		return ErrEmptyName
	}
	if len(s.Name) > 120 {
		return errors.New("name too long (max 120 characters)")
	}
	if strings.TrimSpace(s.CreatedBy) == "" {
		return ErrMissingUser
	}
	if s.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.UserID) == "" {
		return ErrMissingUser
	}
	if !b.PeriodType.Valid() {
		return ErrInvalidPeriod
	}
	// A zero or negative limit would make percent-used undefined, so it
	// is rejected up front instead of guessing a runtime behavior.
	if !b.Amount.IsPositive() {
		return ErrNonPositiveLimit
	}
	if b.StartDate.IsZero() || b.EndDate.IsZero() {
		return ErrInvalidDate
	}
	if b.EndDate.Before(b.StartDate) {
		return errors.New("end date before start date")
	}
	return nil
}

// DisplayName resolves a profile's display name: full name, else email,
// else "Unknown".
func (p Profile) DisplayName() string {
	if strings.TrimSpace(p.FullName) != "" {
		return p.FullName
	}
	if strings.TrimSpace(p.Email) != "" {
		return p.Email
	}
	return "Unknown"
}
