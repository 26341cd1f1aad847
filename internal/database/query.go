package database

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"servicehub/internal/domain"
)

// columns maps query field names to sql columns for one table.
type columns map[string]string

var (
	listingColumns = columns{
		"id":          "id",
		"provider_id": "provider_id",
		"category":    "category",
		"archived":    "archived",
		"price":       "price",
		"title":       "title",
		"created_at":  "created_at",
	}
	bookingColumns = columns{
		"id":          "id",
		"listing_id":  "listing_id",
		"customer_id": "customer_id",
		"provider_id": "provider_id",
		"date":        "date",
		"time_slot":   "time_slot",
		"status":      "status",
		"created_at":  "created_at",
		"updated_at":  "updated_at",
	}
	reviewColumns = columns{
		"id":          "id",
		"booking_id":  "booking_id",
		"listing_id":  "listing_id",
		"provider_id": "provider_id",
		"customer_id": "customer_id",
		"rating":      "rating",
		"created_at":  "created_at",
	}
	messageColumns = columns{
		"id":          "id",
		"booking_id":  "booking_id",
		"sender_id":   "sender_id",
		"receiver_id": "receiver_id",
		"created_at":  "created_at",
	}
)

// buildQuery renders the WHERE, ORDER BY and LIMIT clauses of q.
// Unknown fields and operators fail with domain.ErrInvalidInput.
func buildQuery(q domain.Query, allowed columns, defaultOrder string) (string, []any, error) {
	var (
		sb    strings.Builder
		args  []any
		where []string
	)

	for _, c := range q.Conditions {
		col, ok := allowed[c.Field]
		if !ok {
			return "", nil, domain.Invalid(fmt.Sprintf("unknown field %q", c.Field))
		}
		if !c.Op.Valid() {
			return "", nil, domain.Invalid(fmt.Sprintf("unsupported operator %q", c.Op))
		}

		if c.Op == domain.OpIn {
			values, err := expand(c.Value)
			if err != nil {
				return "", nil, err
			}
			if len(values) == 0 {
				where = append(where, "1 = 0")
				continue
			}
			placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
			where = append(where, fmt.Sprintf("%s IN (%s)", col, placeholders))
			for _, v := range values {
				args = append(args, arg(v))
			}
			continue
		}

		where = append(where, fmt.Sprintf("%s %s ?", col, c.Op))
		args = append(args, arg(c.Value))
	}

	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}

	order := defaultOrder
	if q.OrderBy != "" {
		col, ok := allowed[q.OrderBy]
		if !ok {
			return "", nil, domain.Invalid(fmt.Sprintf("unknown order field %q", q.OrderBy))
		}
		order = col
	}
	if order != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(order)
		if q.Descending {
			sb.WriteString(" DESC")
		}
		// rowid keeps rows written in the same instant in insert order
		sb.WriteString(", rowid")
		if q.Descending {
			sb.WriteString(" DESC")
		}
	}

	if q.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
	}

	return sb.String(), args, nil
}

func expand(v any) ([]any, error) {
	if values, ok := v.([]any); ok {
		// Eq-style helpers pass variadic values; a single nested slice is unwrapped.
		if len(values) == 1 {
			if rv := reflect.ValueOf(values[0]); rv.Kind() == reflect.Slice {
				return expand(values[0])
			}
		}
		return values, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, domain.Invalid("IN requires a list of values")
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

// arg normalizes query values to the representation stored in sqlite.
func arg(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case fmt.Stringer:
		return t.String()
	}
	return v
}
