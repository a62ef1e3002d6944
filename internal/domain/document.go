package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Collection names.
const (
	CollectionWallets      = "wallets"
	CollectionTransactions = "transactions"
)

// Fields holds the field values of a document. Supported value types are
// string, bool, int64, float64, decimal.Decimal, time.Time and nil.
// Adapters that serialize documents may hand back decimals and times as strings;
// the typed accessors accept both forms.
type Fields map[string]any

// Document is a stored document with its store-managed metadata.
type Document struct {
	ID        string
	Fields    Fields
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a shallow copy of the fields map.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Merge copies every key of patch into f.
func (f Fields) Merge(patch Fields) {
	for k, v := range patch {
		f[k] = v
	}
}

// String returns the string field or "" when absent.
func (f Fields) String(key string) string {
	if s, ok := f[key].(string); ok {
		return s
	}
	return ""
}

// Decimal returns the decimal field, zero when absent.
func (f Fields) Decimal(key string) (decimal.Decimal, error) {
	switch v := f[key].(type) {
	case nil:
		return decimal.Zero, nil
	case decimal.Decimal:
		return v, nil
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, fmt.Errorf("field %s: %w", key, err)
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	default:
		return decimal.Zero, fmt.Errorf("field %s: unexpected type %T", key, v)
	}
}

// Time returns the time field, zero time when absent.
func (f Fields) Time(key string) (time.Time, error) {
	switch v := f[key].(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return v, nil
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}, fmt.Errorf("field %s: %w", key, err)
		}
		return t, nil
	default:
		return time.Time{}, fmt.Errorf("field %s: unexpected type %T", key, v)
	}
}

// Operator is a query comparison operator.
type Operator string

const (
	OpEqual          Operator = "=="
	OpLessThan       Operator = "<"
	OpLessOrEqual    Operator = "<="
	OpGreaterThan    Operator = ">"
	OpGreaterOrEqual Operator = ">="
)

// Filter restricts a query to documents whose field compares true against Value.
type Filter struct {
	Field string
	Op    Operator
	Value any
}

// Where builds a Filter.
func Where(field string, op Operator, value any) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

// Order sorts query results by a field.
type Order struct {
	Field string
	Desc  bool
}

// Query describes a collection query. A zero Limit means no limit.
// AfterID keeps only documents whose ID sorts after it; with no OrderBy, results
// are ordered by ID so AfterID works as a paging cursor.
type Query struct {
	Filters []Filter
	OrderBy []Order
	Limit   int
	AfterID string
}
