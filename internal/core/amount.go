// Package core provides the Casino Boys domain model and amount handling.
//
// This file contains the amount normalizer that guards every point where a
// persisted amount is consumed, plus the strict parser used at input
// boundaries before anything is written.
package core

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// NormalizeAmount coerces an arbitrary value to a finite decimal amount,
// returning fallback when the value is missing or not representable.
// It never fails: one corrupt row must not blank a whole aggregation,
// so malformed amounts degrade to the fallback (normally zero).
//
// Examples:
//
//	NormalizeAmount(nil, decimal.Zero)     -> 0
//	NormalizeAmount("12.5", decimal.Zero)  -> 12.5
//	NormalizeAmount(math.NaN(), decimal.Zero) -> 0
func NormalizeAmount(v any, fallback decimal.Decimal) decimal.Decimal {
	switch x := v.(type) {
	case nil:
		return fallback
	case decimal.Decimal:
		return x
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(x))
		if err != nil {
			return fallback
		}
		return d
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fallback
		}
		return decimal.NewFromFloat(x)
	case float32:
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fallback
		}
		return decimal.NewFromFloat(f)
	case int:
		return decimal.NewFromInt(int64(x))
	case int64:
		return decimal.NewFromInt(x)
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		if err != nil {
			return fallback
		}
		return d
	default:
		return fallback
	}
}

// ParseAmount parses user-entered text into a signed decimal amount.
// Unlike NormalizeAmount it rejects malformed input instead of defaulting,
// because a submission with a bad amount must abort, not silently zero.
// Both dot and comma decimal separators are accepted.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}
