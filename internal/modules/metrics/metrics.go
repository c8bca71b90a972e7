// Package metrics provides the primitive aggregations every other
// analytics module builds on: range filtering and income/expense/net/count
// computation over an in-memory transaction batch. All functions are pure;
// they never mutate their input.
package metrics

import (
	"github.com/shopspring/decimal"

	"github.com/ledgerscope/ledgerscope/internal/domain"
)

// Kind identifies a primitive metric
type Kind string

const (
	KindIncome   Kind = "income"
	KindExpenses Kind = "expenses"
	KindNet      Kind = "net"
	KindCount    Kind = "count"
)

// Valid reports whether the kind is one of the enumerated metrics
func (k Kind) Valid() bool {
	switch k {
	case KindIncome, KindExpenses, KindNet, KindCount:
		return true
	}
	return false
}

// FilterByRange returns the transactions whose calendar date falls inside
// the range, inclusive on both ends. Time-of-day is ignored.
func FilterByRange(txns []domain.Transaction, r domain.TimeRange) []domain.Transaction {
	out := make([]domain.Transaction, 0, len(txns))
	for _, t := range txns {
		if r.Contains(t.Date) {
			out = append(out, t)
		}
	}
	return out
}

// Metric computes a primitive metric over the given transactions.
// Income and expenses sum absolute amounts of the matching type,
// net = income - expenses, count is the record count.
func Metric(txns []domain.Transaction, kind Kind) decimal.Decimal {
	switch kind {
	case KindIncome:
		return sumOfType(txns, domain.TypeIncome)
	case KindExpenses:
		return sumOfType(txns, domain.TypeExpense)
	case KindNet:
		return sumOfType(txns, domain.TypeIncome).Sub(sumOfType(txns, domain.TypeExpense))
	case KindCount:
		return decimal.NewFromInt(int64(len(txns)))
	}
	return decimal.Zero
}

func sumOfType(txns []domain.Transaction, typ domain.TransactionType) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range txns {
		if t.Type == typ {
			sum = sum.Add(t.Magnitude())
		}
	}
	return sum
}
