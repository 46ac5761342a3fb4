package queryir

import (
	"fmt"
	"slices"
)

// ValidationResult contains the structural analysis of a query.
type ValidationResult struct {
	// Valid is true when the query has no problems and references only
	// known columns.
	Valid bool

	// Problems lists structural defects (missing table, negative limit, ...).
	Problems []string

	// UnknownFields lists referenced fields that are not in the query's
	// column set, in the order they were found, without duplicates.
	UnknownFields []string
}

// Validate checks a query's structure.
//
// Rules:
//  1. From and Columns are required
//  2. Every field in filters, order terms, tie-breaker and distinct column
//     must be one of Columns
//  3. Limit and Offset are non-negative
//  4. Order directions are ASC or DESC
//
// Validate is a pure function with no side effects.
func Validate(query Query) ValidationResult {
	v := &validator{
		problems: []string{},
		unknown:  []string{},
	}
	v.validateQuery(query)

	return ValidationResult{
		Valid:         len(v.problems) == 0 && len(v.unknown) == 0,
		Problems:      v.problems,
		UnknownFields: v.unknown,
	}
}

// validator accumulates findings during traversal.
type validator struct {
	problems []string
	unknown  []string
	columns  []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) checkField(field string) {
	if field == "" {
		v.addProblem("empty field name")
		return
	}
	if slices.Contains(v.columns, field) || slices.Contains(v.unknown, field) {
		return
	}
	v.unknown = append(v.unknown, field)
}

func (v *validator) validateQuery(q Query) {
	if q == nil {
		v.addProblem("nil query")
		return
	}

	switch query := q.(type) {
	case Select:
		v.validateSelect(query)
	case *Select:
		v.validateSelect(*query)
	case Count:
		v.validateSource(query.From, query.Columns)
		v.validatePredicate(query.Filter)
	case *Count:
		v.validateSource(query.From, query.Columns)
		v.validatePredicate(query.Filter)
	case Distinct:
		v.validateSource(query.From, query.Columns)
		v.checkField(query.Column)
	case *Distinct:
		v.validateSource(query.From, query.Columns)
		v.checkField(query.Column)
	default:
		v.addProblem("unknown query type: %T", q)
	}
}

func (v *validator) validateSource(from string, columns []string) {
	if from == "" {
		v.addProblem("missing table name")
	}
	if len(columns) == 0 {
		v.addProblem("empty column set for table %q", from)
	}
	v.columns = columns
}

func (v *validator) validateSelect(sel Select) {
	v.validateSource(sel.From, sel.Columns)
	v.validatePredicate(sel.Filter)

	for _, o := range sel.Order {
		v.checkField(o.Field)
		if o.Direction != Asc && o.Direction != Desc {
			v.addProblem("invalid direction %q for field %q", o.Direction, o.Field)
		}
	}
	if sel.TieBreaker != "" {
		v.checkField(sel.TieBreaker)
	}
	if sel.Limit < 0 {
		v.addProblem("negative limit %d", sel.Limit)
	}
	if sel.Offset < 0 {
		v.addProblem("negative offset %d", sel.Offset)
	}
}

// validatePredicate recursively validates a predicate node.
func (v *validator) validatePredicate(p Predicate) {
	if p == nil {
		return // nil predicates are valid (no filter)
	}

	switch pred := p.(type) {
	case Equals:
		v.validateEquals(pred)
	case *Equals:
		v.validateEquals(*pred)
	case ContainsFold:
		v.checkField(pred.Field)
	case *ContainsFold:
		v.checkField(pred.Field)
	case And:
		v.validateChildren("And", pred.Predicates)
	case *And:
		v.validateChildren("And", pred.Predicates)
	case Or:
		v.validateChildren("Or", pred.Predicates)
	case *Or:
		v.validateChildren("Or", pred.Predicates)
	default:
		v.addProblem("unknown predicate type: %T", p)
	}
}

func (v *validator) validateEquals(eq Equals) {
	v.checkField(eq.Field)
	if eq.Value == nil {
		v.addProblem("missing value for field %q", eq.Field)
	}
}

func (v *validator) validateChildren(kind string, children []Predicate) {
	for i, c := range children {
		if c == nil {
			v.addProblem("%s child %d is nil", kind, i)
			continue
		}
		v.validatePredicate(c)
	}
}
