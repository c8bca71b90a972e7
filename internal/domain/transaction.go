// Package domain provides core domain models and types.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the direction of a money flow
type TransactionType string

const (
	// TypeIncome represents money flowing into an account
	TypeIncome TransactionType = "income"
	// TypeExpense represents money flowing out of an account
	TypeExpense TransactionType = "expense"
)

// Valid reports whether the transaction type is one of the enumerated values
func (t TransactionType) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// Transaction represents a single dated money flow.
// Amount is a magnitude (non-negative); Type determines the sign of net flow.
// The surrounding application is responsible for normalizing records before
// they reach the engine (parseable dates, finite amounts, valid type).
type Transaction struct {
	Date      time.Time       `json:"date"`
	ID        string          `json:"id"`
	Type      TransactionType `json:"type"`
	Category  string          `json:"category"` // empty = uncategorized
	AccountID string          `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// Magnitude returns the absolute amount regardless of how the caller signed it
func (t Transaction) Magnitude() decimal.Decimal {
	return t.Amount.Abs()
}

// SignedAmount returns the amount signed by type: income positive, expense negative
func (t Transaction) SignedAmount() decimal.Decimal {
	if t.Type == TypeExpense {
		return t.Amount.Abs().Neg()
	}
	return t.Amount.Abs()
}

// TimeRange represents an inclusive calendar-date interval.
// Time-of-day on Start and End is ignored when filtering.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Label string    `json:"label,omitempty"`
}

// Valid reports whether Start <= End (comparing calendar dates only)
func (r TimeRange) Valid() bool {
	return !DateOnly(r.End).Before(DateOnly(r.Start))
}

// Contains reports whether the transaction date falls inside the range,
// inclusive on both ends, comparing calendar dates only
func (r TimeRange) Contains(date time.Time) bool {
	d := DateOnly(date)
	return !d.Before(DateOnly(r.Start)) && !d.After(DateOnly(r.End))
}

// DateOnly truncates a timestamp to its calendar date (midnight UTC)
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthKey returns the calendar month of a date in YYYY-MM form.
// Used as the grouping key for monthly aggregation.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}
