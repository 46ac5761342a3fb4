package queryir

import (
	"strings"

	"github.com/roach88/crudkit/internal/value"
)

// Query represents an abstract query in the IR.
//
// This is a sealed interface - only types in this package implement it.
type Query interface {
	queryNode() // Marker method - seals interface to this package
}

// Predicate represents a filter condition in the IR.
//
// This is a sealed interface - only types in this package implement it.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// ParseDirection parses a direction token case-insensitively.
// Anything other than ASC or DESC yields Asc and ok=false.
func ParseDirection(token string) (dir Direction, ok bool) {
	switch Direction(strings.ToUpper(strings.TrimSpace(token))) {
	case Asc:
		return Asc, true
	case Desc:
		return Desc, true
	default:
		return Asc, false
	}
}

// Order is one ORDER BY term.
type Order struct {
	Field     string
	Direction Direction
}

// Select reads rows of one table.
//
// Semantics:
//
//	SELECT <columns> FROM <from> WHERE <filter>
//	ORDER BY <order...>, <tiebreaker> ASC
//	LIMIT <limit> OFFSET <offset>
//
// Columns is the closed set of fields the query may reference. Fields used
// in Filter or Order that are not in Columns are rejected by the backend.
// TieBreaker, when set, is appended as a final ascending order term so that
// pages are stable across requests (typically the resource key).
// Limit 0 means no limit.
type Select struct {
	From       string
	Columns    []string
	Filter     Predicate // nil = no filter
	Order      []Order
	TieBreaker string
	Limit      int
	Offset     int
}

func (Select) queryNode() {}

// Count counts rows of one table matching Filter.
// Columns has the same meaning as in Select.
type Count struct {
	From    string
	Columns []string
	Filter  Predicate // nil = count all rows
}

func (Count) queryNode() {}

// CountOf returns a Count over the same table and filter as s.
// Ordering and pagination do not affect counts.
func CountOf(s Select) Count {
	return Count{From: s.From, Columns: s.Columns, Filter: s.Filter}
}

// Distinct lists the distinct non-null values of one column.
type Distinct struct {
	From    string
	Columns []string
	Column  string
}

func (Distinct) queryNode() {}

// Equals represents a field-equals-value predicate.
//
// Semantics:
//
//	<field> = ?
type Equals struct {
	Field string
	Value value.Value
}

func (Equals) predicateNode() {}

// ContainsFold matches rows whose field contains Term, ignoring case.
//
// Semantics:
//
//	fold(<field>) LIKE '%' || fold(term) || '%'
//
// Term is matched literally; LIKE wildcards in it are escaped.
type ContainsFold struct {
	Field string
	Term  string
}

func (ContainsFold) predicateNode() {}

// And requires every child predicate to hold.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Or requires at least one child predicate to hold.
type Or struct {
	Predicates []Predicate
}

func (Or) predicateNode() {}

// Fields returns the field names referenced by p, in traversal order.
func Fields(p Predicate) []string {
	var out []string
	var walk func(Predicate)
	walk = func(p Predicate) {
		switch pred := p.(type) {
		case Equals:
			out = append(out, pred.Field)
		case *Equals:
			out = append(out, pred.Field)
		case ContainsFold:
			out = append(out, pred.Field)
		case *ContainsFold:
			out = append(out, pred.Field)
		case And:
			for _, c := range pred.Predicates {
				walk(c)
			}
		case *And:
			for _, c := range pred.Predicates {
				walk(c)
			}
		case Or:
			for _, c := range pred.Predicates {
				walk(c)
			}
		case *Or:
			for _, c := range pred.Predicates {
				walk(c)
			}
		}
	}
	if p != nil {
		walk(p)
	}
	return out
}
