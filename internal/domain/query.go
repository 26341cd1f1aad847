package domain

import "fmt"

// Op is a comparison operator supported by gateway queries.
type Op string

const (
	OpEq  Op = "="
	OpNeq Op = "!="
	OpGt  Op = ">"
	OpGte Op = ">="
	OpLt  Op = "<"
	OpLte Op = "<="
	OpIn  Op = "IN"
)

// Condition restricts a list query to records whose Field compares to Value.
// For OpIn, Value must be a slice.
type Condition struct {
	Field string
	Op    Op
	Value any
}

// Query is a small filter/order/limit builder shared by every collection.
// Builder methods return copies so a base query can be reused.
type Query struct {
	Conditions []Condition
	OrderBy    string
	Descending bool
	Limit      int
}

func NewQuery() Query { return Query{} }

func (q Query) Where(field string, op Op, value any) Query {
	conds := make([]Condition, len(q.Conditions), len(q.Conditions)+1)
	copy(conds, q.Conditions)
	q.Conditions = append(conds, Condition{Field: field, Op: op, Value: value})
	return q
}

func (q Query) Eq(field string, value any) Query { return q.Where(field, OpEq, value) }
func (q Query) Gte(field string, value any) Query { return q.Where(field, OpGte, value) }
func (q Query) Lte(field string, value any) Query { return q.Where(field, OpLte, value) }

func (q Query) In(field string, values ...any) Query {
	return q.Where(field, OpIn, values)
}

func (q Query) Order(field string, descending bool) Query {
	q.OrderBy = field
	q.Descending = descending
	return q
}

func (q Query) Take(limit int) Query {
	q.Limit = limit
	return q
}

func (o Op) Valid() bool {
	switch o {
	case OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte, OpIn:
		return true
	}
	return false
}

func (c Condition) String() string {
	return fmt.Sprintf("%s %s %v", c.Field, c.Op, c.Value)
}
