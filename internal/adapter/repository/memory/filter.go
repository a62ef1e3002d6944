package memory

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/expenseledger/internal/domain"
)

func matches(doc *domain.Document, filters []domain.Filter) bool {
	for _, f := range filters {
		v, ok := doc.Fields[f.Field]
		if !ok {
			return false
		}
		c, comparable := compare(v, f.Value)
		if !comparable {
			return false
		}

		var pass bool
		switch f.Op {
		case domain.OpEqual:
			pass = c == 0
		case domain.OpLessThan:
			pass = c < 0
		case domain.OpLessOrEqual:
			pass = c <= 0
		case domain.OpGreaterThan:
			pass = c > 0
		case domain.OpGreaterOrEqual:
			pass = c >= 0
		}
		if !pass {
			return false
		}
	}
	return true
}

// compareField orders values for sorting; absent or mismatched values sort first.
func compareField(a, b any) int {
	if c, ok := compare(a, b); ok {
		return c
	}
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	default:
		return 0
	}
}

func compare(a, b any) (int, bool) {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return av.Compare(bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		default:
			return 1, true
		}
	}

	ad, aok := toDecimal(a)
	bd, bok := toDecimal(b)
	if !aok || !bok {
		return 0, false
	}
	return ad.Cmp(bd), true
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case float64:
		return decimal.NewFromFloat(n), true
	default:
		return decimal.Zero, false
	}
}
