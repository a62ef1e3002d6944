package postgres

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/expenseledger/internal/domain"
)

func TestBuildQuery(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		query    domain.Query
		wantSQL  []string
		wantArgs []any
	}{
		{
			name:     "collection only orders by id",
			query:    domain.Query{},
			wantSQL:  []string{"WHERE collection = $1", "ORDER BY id"},
			wantArgs: []any{"transactions"},
		},
		{
			name: "string and time filters with order and limit",
			query: domain.Query{
				Filters: []domain.Filter{
					domain.Where(domain.FieldUID, domain.OpEqual, "u1"),
					domain.Where(domain.FieldDate, domain.OpGreaterOrEqual, start),
				},
				OrderBy: []domain.Order{{Field: domain.FieldDate, Desc: true}},
				Limit:   30,
			},
			wantSQL: []string{
				"fields->>$2::text = $3",
				"fields->>$4::text >= $5",
				"ORDER BY fields->>$6::text DESC, id",
				"LIMIT $7",
			},
			wantArgs: []any{"transactions", "uid", "u1", "date", "2025-03-01T00:00:00.000000000Z", "date", 30},
		},
		{
			name: "numeric filter and cursor",
			query: domain.Query{
				Filters: []domain.Filter{domain.Where(domain.FieldAmount, domain.OpGreaterThan, decimal.NewFromInt(5))},
				AfterID: "t9",
			},
			wantSQL:  []string{"(fields->>$2::text)::numeric > $3::numeric", "id > $4", "ORDER BY id"},
			wantArgs: []any{"transactions", "amount", "5", "t9"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := buildQuery(domain.CollectionTransactions, tt.query)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(sql, selectDocument))
			for _, fragment := range tt.wantSQL {
				assert.Contains(t, sql, fragment)
			}
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestBuildQueryRejectsUnsupported(t *testing.T) {
	_, _, err := buildQuery("wallets", domain.Query{Filters: []domain.Filter{{Field: "x", Op: "!=", Value: "y"}}})
	assert.Error(t, err)

	_, _, err = buildQuery("wallets", domain.Query{Filters: []domain.Filter{domain.Where("x", domain.OpEqual, []string{"y"})}})
	assert.Error(t, err)
}

func TestFieldsRoundTrip(t *testing.T) {
	date := time.Date(2025, 6, 7, 8, 9, 10, 123, time.FixedZone("CET", 3600))
	data, err := encodeFields(domain.Fields{
		domain.FieldAmount: decimal.RequireFromString("12.50"),
		domain.FieldDate:   date,
		domain.FieldType:   "expense",
	})
	require.NoError(t, err)

	fields, err := decodeFields(data)
	require.NoError(t, err)

	amount, err := fields.Decimal(domain.FieldAmount)
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.RequireFromString("12.5")))

	got, err := fields.Time(domain.FieldDate)
	require.NoError(t, err)
	assert.True(t, got.Equal(date))
	assert.Equal(t, "expense", fields.String(domain.FieldType))
}

func TestTimeEncodingSortsChronologically(t *testing.T) {
	earlier := encodeValue(time.Date(2025, 1, 1, 10, 0, 0, 500, time.UTC)).(string)
	later := encodeValue(time.Date(2025, 1, 1, 10, 0, 1, 0, time.UTC)).(string)
	assert.Less(t, earlier, later)
}
