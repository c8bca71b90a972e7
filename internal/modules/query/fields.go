package query

import (
	"github.com/shopspring/decimal"

	"github.com/ledgerscope/ledgerscope/internal/domain"
)

// Field names the closed set of queryable transaction attributes.
// Dynamic field access is deliberately a fixed mapping: an unknown name is
// an ErrUnknownField at validation time, never a silent zero.
type Field string

const (
	FieldID        Field = "id"
	FieldDate      Field = "date"  // YYYY-MM-DD
	FieldMonth     Field = "month" // YYYY-MM, derived from date
	FieldAmount    Field = "amount"
	FieldType      Field = "type"
	FieldCategory  Field = "category"
	FieldAccountID Field = "account_id"
)

// stringAccessors maps fields to their string projection, used by
// filtering and grouping. Date fields project to ISO strings so
// lexicographic comparison matches chronological order.
var stringAccessors = map[Field]func(domain.Transaction) string{
	FieldID:        func(t domain.Transaction) string { return t.ID },
	FieldDate:      func(t domain.Transaction) string { return domain.DateOnly(t.Date).Format("2006-01-02") },
	FieldMonth:     func(t domain.Transaction) string { return domain.MonthKey(t.Date) },
	FieldType:      func(t domain.Transaction) string { return string(t.Type) },
	FieldCategory:  func(t domain.Transaction) string { return t.Category },
	FieldAccountID: func(t domain.Transaction) string { return t.AccountID },
}

// numericAccessors maps fields usable in numeric comparisons and generic
// aggregations.
var numericAccessors = map[Field]func(domain.Transaction) decimal.Decimal{
	FieldAmount: func(t domain.Transaction) decimal.Decimal { return t.Magnitude() },
}

func knownField(f Field) bool {
	if _, ok := stringAccessors[f]; ok {
		return true
	}
	_, ok := numericAccessors[f]
	return ok
}
