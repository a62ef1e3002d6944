package postgres

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/expenseledger/internal/domain"
)

// Times are stored as fixed-width UTC strings so that text order is chronological.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const selectDocument = `SELECT id, fields, version, created_at, updated_at FROM documents`

var sqlOperators = map[domain.Operator]string{
	domain.OpEqual:          "=",
	domain.OpLessThan:       "<",
	domain.OpLessOrEqual:    "<=",
	domain.OpGreaterThan:    ">",
	domain.OpGreaterOrEqual: ">=",
}

func encodeValue(v any) any {
	switch x := v.(type) {
	case time.Time:
		return x.UTC().Format(timeLayout)
	case decimal.Decimal:
		return x.String()
	default:
		return v
	}
}

func encodeFields(fields domain.Fields) ([]byte, error) {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = encodeValue(v)
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	return data, nil
}

func decodeFields(data []byte) (domain.Fields, error) {
	fields := domain.Fields{}
	if len(data) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	return fields, nil
}

// buildQuery translates a domain.Query into SQL over the documents table.
// Field names are always bound as parameters.
func buildQuery(collection string, q domain.Query) (string, []any, error) {
	args := []any{collection}
	where := []string{"collection = $1"}

	bind := func(v any) int {
		args = append(args, v)
		return len(args)
	}

	for _, f := range q.Filters {
		op, ok := sqlOperators[f.Op]
		if !ok {
			return "", nil, fmt.Errorf("unsupported operator %q", f.Op)
		}

		key := bind(f.Field)
		switch v := f.Value.(type) {
		case string:
			where = append(where, fmt.Sprintf("fields->>$%d::text %s $%d", key, op, bind(v)))
		case time.Time:
			where = append(where, fmt.Sprintf("fields->>$%d::text %s $%d", key, op, bind(encodeValue(v))))
		case bool:
			where = append(where, fmt.Sprintf("(fields->>$%d::text)::boolean %s $%d", key, op, bind(v)))
		case decimal.Decimal:
			where = append(where, fmt.Sprintf("(fields->>$%d::text)::numeric %s $%d::numeric", key, op, bind(v.String())))
		case int, int64, float64:
			where = append(where, fmt.Sprintf("(fields->>$%d::text)::numeric %s $%d::numeric", key, op, bind(fmt.Sprint(v))))
		default:
			return "", nil, fmt.Errorf("unsupported filter value %T for field %s", f.Value, f.Field)
		}
	}

	if q.AfterID != "" {
		where = append(where, fmt.Sprintf("id > $%d", bind(q.AfterID)))
	}

	var sb strings.Builder
	sb.WriteString(selectDocument)
	sb.WriteString(" WHERE ")
	sb.WriteString(strings.Join(where, " AND "))

	orders := make([]string, 0, len(q.OrderBy)+1)
	for _, o := range q.OrderBy {
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		orders = append(orders, fmt.Sprintf("fields->>$%d::text %s", bind(o.Field), dir))
	}
	orders = append(orders, "id")
	sb.WriteString(" ORDER BY ")
	sb.WriteString(strings.Join(orders, ", "))

	if q.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT $%d", bind(q.Limit))
	}

	return sb.String(), args, nil
}
